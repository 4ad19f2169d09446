package extract

import "regexp"

// DefaultMaxSignatures is the signature cap used when none is configured.
const DefaultMaxSignatures = 128

// signaturePattern matches a definition head up to and including the body's
// opening brace. Group 1 is the declaration, group 2 the identifier.
//
// Return-type tokens stay on one line; the separator before the identifier
// may break the line (GNU style). The parameter list stops at the first ')'.
var signaturePattern = regexp.MustCompile(
	`([a-zA-Z_][a-zA-Z0-9_ \t*]*[\s*]+([a-zA-Z_][a-zA-Z0-9_]*)\s*\([^)]*\))\s*\{`,
)

// Extractor produces the signature set of a module.
type Extractor interface {
	Extract(source string) (Set, error)
}

// Scanner is the regular-expression Extractor.
type Scanner struct {
	max int
}

// NewScanner returns a Scanner that collects at most maxSignatures
// signatures. A non-positive value selects DefaultMaxSignatures.
func NewScanner(maxSignatures int) *Scanner {
	if maxSignatures <= 0 {
		maxSignatures = DefaultMaxSignatures
	}
	return &Scanner{max: maxSignatures}
}

// Max returns the configured signature cap.
func (s *Scanner) Max() int {
	return s.max
}

// Extract scans source left to right for non-overlapping signatures. Each
// search resumes at the end of the previous declaration (before its brace),
// and the scan stops at end of input or when nothing further matches.
// Finding more than Max signatures returns an *OverflowError.
func (s *Scanner) Extract(source string) (Set, error) {
	var set Set

	cursor := 0
	for cursor < len(source) {
		loc := signaturePattern.FindStringSubmatchIndex(source[cursor:])
		if loc == nil {
			break
		}

		declStart, declEnd := cursor+loc[2], cursor+loc[3]
		nameStart, nameEnd := cursor+loc[4], cursor+loc[5]

		if len(set) == s.max {
			return nil, &OverflowError{Cap: s.max, Offset: declStart}
		}

		set = append(set, Signature{
			Text:   source[declStart:declEnd],
			Name:   source[nameStart:nameEnd],
			Offset: declStart,
		})

		cursor = declEnd
	}

	return set, nil
}
