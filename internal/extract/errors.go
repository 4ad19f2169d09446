package extract

import (
	"errors"
	"fmt"
)

// ErrCodeOverflow identifies an extraction that found more signatures than
// the configured cap.
const ErrCodeOverflow = "EXTRACTION_OVERFLOW"

// OverflowError reports that a module holds more callable signatures than
// the scanner is allowed to collect. Extraction never truncates silently.
type OverflowError struct {
	// Cap is the configured maximum.
	Cap int

	// Offset is the byte offset of the first signature beyond the cap.
	Offset int
}

// Error implements the error interface.
func (e *OverflowError) Error() string {
	return fmt.Sprintf("%s: module declares more than %d callable signatures (first excess at byte %d)",
		ErrCodeOverflow, e.Cap, e.Offset)
}

// Code returns the error code.
func (e *OverflowError) Code() string {
	return ErrCodeOverflow
}

// IsOverflow reports whether err is, or wraps, an OverflowError.
func IsOverflow(err error) bool {
	var oe *OverflowError
	return errors.As(err, &oe)
}
