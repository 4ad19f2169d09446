package extract

import "strings"

// Signature is the declaration text of one callable, captured without the
// brace that opens its body. A Signature followed by a semicolon is a valid
// forward declaration.
type Signature struct {
	// Text is the verbatim declaration source.
	Text string

	// Name is the callable's identifier.
	Name string

	// Offset is the byte offset of Text within the scanned module.
	Offset int
}

// String returns the verbatim declaration text.
func (s Signature) String() string {
	return s.Text
}

// Declaration returns the signature terminated as a forward declaration.
func (s Signature) Declaration() string {
	return s.Text + ";"
}

// Line returns the 1-based line of the signature within source.
// source must be the text the signature was extracted from.
func (s Signature) Line(source string) int {
	if s.Offset > len(source) {
		return 0
	}
	return strings.Count(source[:s.Offset], "\n") + 1
}

// Set is an ordered sequence of signatures in order of first appearance.
// Duplicates are kept: a Set mirrors textual occurrence, not semantic
// uniqueness.
type Set []Signature

// Names returns the identifiers of the set in order.
func (s Set) Names() []string {
	names := make([]string, len(s))
	for i, sig := range s {
		names[i] = sig.Name
	}
	return names
}
