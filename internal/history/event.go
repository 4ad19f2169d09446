package history

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// Kind is the session operation an Event records.
type Kind string

const (
	KindCompile  Kind = "compile"
	KindEvaluate Kind = "evaluate"
	KindClean    Kind = "clean"
)

// Event is one journal row.
//
// Callers fill Root, Kind and the payload fields. Record assigns ID, Seq,
// ExpressionKey and Timestamp.
type Event struct {
	ID            string    `json:"id"`
	Root          string    `json:"root"`
	SessionID     string    `json:"session_id,omitempty"`
	Seq           int64     `json:"seq"`
	Kind          Kind      `json:"kind"`
	ModuleDigest  string    `json:"module_digest,omitempty"`
	Expression    string    `json:"expression,omitempty"`
	ExpressionKey string    `json:"expression_key,omitempty"`
	Output        string    `json:"output,omitempty"`
	ErrorCode     string    `json:"error_code,omitempty"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Failed reports whether the recorded operation failed.
func (e Event) Failed() bool {
	return e.ErrorCode != ""
}

// DomainModule separates module digests from any other hash in the journal.
const DomainModule = "jitcalc/module/v1"

// ModuleDigest returns the hex SHA-256 of src under DomainModule.
func ModuleDigest(src []byte) string {
	return hashWithDomain(DomainModule, src)
}

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte keeps domain and data from running together.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ExpressionKey normalizes an expression for de-duplication: NFC, with
// leading and trailing whitespace removed. Interior spacing is significant.
func ExpressionKey(expr string) string {
	return norm.NFC.String(strings.TrimSpace(expr))
}

// IDGenerator produces event IDs.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 event IDs.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
