package nodeid

// KindStage is the kind used for vertices that come from a pipeline diagram.
const KindStage = "stage"

// Address is the structured representation of a unique vertex identifier.
type Address struct {
	Kind string
	Name string
}

// Stage returns the address of the diagram node with the given identifier.
func Stage(name string) Address {
	return Address{Kind: KindStage, Name: name}
}

// IsZero reports whether the address is empty.
func (a Address) IsZero() bool {
	return a.Kind == "" && a.Name == ""
}
