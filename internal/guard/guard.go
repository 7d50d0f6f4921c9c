// Package guard provides the process-wide creation guard. Remote challenge
// creation is not idempotent, so at most one handler per ticket key may be
// inside the creation path at a time; contenders are bounced into the retry
// service instead of blocking.
package guard

import (
	"fmt"
	"sync"

	"github.com/gitcontest/xbridge/internal/errors"
	"github.com/gitcontest/xbridge/internal/models"
)

// CreationGuard tracks in-flight challenge creations by ticket key.
type CreationGuard struct {
	mu       sync.Mutex
	inFlight map[string]bool
}

// New creates an empty CreationGuard.
func New() *CreationGuard {
	return &CreationGuard{inFlight: make(map[string]bool)}
}

// Key builds the guard key for a ticket identity.
func Key(provider models.Provider, repositoryID int64, number int) string {
	return fmt.Sprintf("%s-%d-%d", provider, repositoryID, number)
}

// Acquire marks a creation as in flight. It returns a Conflict error when
// another handler already holds the key; the caller must treat that as
// rescheduleable and must not proceed.
func (g *CreationGuard) Acquire(key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inFlight[key] {
		return errors.Conflict("challenge creation already in progress for %s", key)
	}
	g.inFlight[key] = true
	return nil
}

// Release clears the in-flight flag. Releasing a key that is not held is a
// no-op; every exit path of the creation handler calls Release.
func (g *CreationGuard) Release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, key)
}

// Held reports whether a creation is currently in flight for the key.
func (g *CreationGuard) Held(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight[key]
}
