package session

import (
	"path/filepath"
	"sync"
)

// claims tracks the roots owned by open sessions in this process.
var claims = struct {
	mu    sync.Mutex
	roots map[string]string
}{roots: map[string]string{}}

// claimRoot records root as owned by sessionID. It fails if another open
// session already owns it.
func claimRoot(root, sessionID string) error {
	claims.mu.Lock()
	defer claims.mu.Unlock()

	if owner, ok := claims.roots[root]; ok {
		return usagef("session root %s is already owned by session %s", root, owner)
	}
	claims.roots[root] = sessionID
	return nil
}

func releaseRoot(root, sessionID string) {
	claims.mu.Lock()
	defer claims.mu.Unlock()

	if claims.roots[root] == sessionID {
		delete(claims.roots, root)
	}
}

// canonicalRoot returns the absolute, cleaned form of root used as the claim
// key and as the journal's root column.
func canonicalRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", &IOError{Op: "resolve root", Path: root, Err: err}
	}
	return filepath.Clean(abs), nil
}
