// Package session is the session controller: a two-state machine over one
// artifact directory.
//
// A Session is an owned handle. Open claims the root for the process and
// Close releases it, so two handles can never operate on the same directory
// at once. Every operation also holds the session's mutex.
//
//	Uninitialized --Compile ok--> Compiled
//	Compiled      --Evaluate----> Compiled
//	any           --Clean-------> Uninitialized
//
// Compile copies the module into the directory and lowers it once. Evaluate
// re-reads that copy, extracts signatures, synthesizes a driver, lowers it
// and links it against the module IR. Clean removes the five artifacts and
// the directory.
package session
