// Package history is the evaluation journal: a SQLite log of every compile,
// evaluate and clean performed against a session root.
//
// The journal is metadata only. Nothing in it is ever used to skip a
// compile or reuse an artifact; it backs the `history` command and seeds the
// REPL's line history.
//
// Events for one root carry a logical sequence number assigned inside the
// insert transaction, so ordering never depends on wall-clock time.
package history
