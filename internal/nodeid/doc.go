/*
Package nodeid provides a structured, type-safe representation for vertex
identifiers in a pipeline graph, based on the canonical format `kind.name`.

The kind is a lowercase word (`stage` for diagram nodes). The name is the
identifier used in the diagram source and may contain any characters,
including dots and spaces, as long as it is not blank. Only the first dot
separates the kind from the name, so `stage.claims.v2` has the name
`claims.v2`.
*/
package nodeid
