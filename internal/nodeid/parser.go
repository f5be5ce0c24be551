package nodeid

import (
	"fmt"
	"regexp"
	"strings"
)

// kindRegex restricts the kind segment to lowercase words.
var kindRegex = regexp.MustCompile(`^[a-z][a-z_]*$`)

// Parse creates a new Address by parsing its canonical string representation.
func Parse(rawID string) (Address, error) {
	if rawID == "" {
		return Address{}, fmt.Errorf("identifier cannot be empty")
	}

	kind, name, found := strings.Cut(rawID, ".")
	if !found {
		return Address{}, fmt.Errorf("identifier %q has no kind prefix", rawID)
	}
	if !kindRegex.MatchString(kind) {
		return Address{}, fmt.Errorf("invalid kind %q in identifier %q", kind, rawID)
	}
	if strings.TrimSpace(name) == "" {
		return Address{}, fmt.Errorf("identifier %q has an empty name", rawID)
	}

	return Address{Kind: kind, Name: name}, nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(rawID string) Address {
	addr, err := Parse(rawID)
	if err != nil {
		panic(err)
	}
	return addr
}
