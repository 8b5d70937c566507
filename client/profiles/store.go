// Package profiles holds the user's identity snapshots: the list of owned
// profiles plus the currently selected one.
package profiles

import (
	"context"
	"sync"

	"cosmossdk.io/log"

	"github.com/therealharpaljadeja/lens-it/client/auth"
	"github.com/therealharpaljadeja/lens-it/client/errors"
	"github.com/therealharpaljadeja/lens-it/client/graph"
)

// Store keeps the owned-profile list and the current selection. List and
// index are always replaced together under one lock so no reader observes a
// half-updated pair; the index, when set, is always a valid position.
type Store struct {
	mu      sync.RWMutex
	items   []graph.Profile
	current int
}

// NewStore returns an empty store with no current selection.
func NewStore() *Store {
	return &Store{current: -1}
}

// Replace swaps in a new list and selection in one step. An out-of-range
// current clears the selection.
func (s *Store) Replace(items []graph.Profile, current int) {
	copied := make([]graph.Profile, len(items))
	copy(copied, items)

	if current < 0 || current >= len(copied) {
		current = -1
	}

	s.mu.Lock()
	s.items = copied
	s.current = current
	s.mu.Unlock()
}

// SetCurrent selects a profile by position.
func (s *Store) SetCurrent(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.items) {
		return errors.ErrInvalidConfig.Wrapf("profile index %d out of range (have %d)", i, len(s.items))
	}
	s.current = i
	return nil
}

// Current returns the selected profile, if any.
func (s *Store) Current() (graph.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current < 0 {
		return graph.Profile{}, false
	}
	return s.items[s.current], true
}

// All returns a copy of the profile list.
func (s *Store) All() []graph.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]graph.Profile, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of loaded profiles.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// SessionEnsurer is the authentication precondition Loader enforces before
// fetching.
type SessionEnsurer interface {
	EnsureAuthenticated(ctx context.Context) (auth.Session, error)
}

// API is the profile listing query the loader uses.
type API interface {
	Profiles(ctx context.Context, ownedBy []string) ([]graph.Profile, error)
}

// Loader fetches the owned profiles into a Store.
type Loader struct {
	api    API
	authn  SessionEnsurer
	store  *Store
	logger log.Logger
}

// NewLoader wires a loader over the graph API and a target store.
func NewLoader(api API, authn SessionEnsurer, store *Store, logger log.Logger) *Loader {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Loader{api: api, authn: authn, store: store, logger: logger}
}

// Load replaces the store contents with the profiles owned by ownedBy. The
// profile marked default becomes current, falling back to the first entry.
func (l *Loader) Load(ctx context.Context, ownedBy string) ([]graph.Profile, error) {
	if _, err := l.authn.EnsureAuthenticated(ctx); err != nil {
		return nil, err
	}

	items, err := l.api.Profiles(ctx, []string{ownedBy})
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrAuthServerError, "profile fetch failed")
	}

	current := -1
	for i, p := range items {
		if p.IsDefault {
			current = i
			break
		}
	}
	if current == -1 && len(items) > 0 {
		current = 0
	}

	l.store.Replace(items, current)
	l.logger.Debug("profiles loaded", "owned_by", ownedBy, "count", len(items))

	return l.store.All(), nil
}
