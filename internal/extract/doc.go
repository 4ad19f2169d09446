// Package extract finds callable signatures in raw module source text.
//
// The scan is a textual approximation, not a parser. A signature is the
// longest run of return-type-like tokens, an identifier, and a parenthesized
// parameter list that is followed (after whitespace only) by an opening
// brace. The parameter list ends at the first closing parenthesis, so a
// parameter whose type itself contains parentheses (function pointers, for
// example) is extracted incorrectly. Callers depend only on the Extractor
// interface so the scanner can later be replaced by a real tokenizer.
//
// Each Signature is the exact source substring of the declaration without
// its trailing brace. Nothing is normalized: whitespace, type spelling and
// parameter names are reproduced verbatim by the driver synthesizer.
package extract
