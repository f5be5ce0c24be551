// Package registry provides the central "glue" for the module system.
//
// The Registry stores the mapping between the runner names used in binding
// files (e.g., "csv_read") and the compiled Go functions and input types that
// implement them.
//
// During application startup, the registry is populated by every module and
// then validated, so that a runner with a malformed signature fails at boot
// instead of in the middle of a run.
package registry
