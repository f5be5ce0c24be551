package nodeid

// String serializes the Address into its canonical `kind.name` representation.
func (a Address) String() string {
	if a.IsZero() {
		return ""
	}
	return a.Kind + "." + a.Name
}

// Equal reports whether two addresses identify the same vertex.
func (a Address) Equal(other Address) bool {
	return a.Kind == other.Kind && a.Name == other.Name
}

// Less orders addresses by kind, then by name.
func (a Address) Less(other Address) bool {
	if a.Kind != other.Kind {
		return a.Kind < other.Kind
	}
	return a.Name < other.Name
}
