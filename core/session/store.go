package session

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// ErrNotRestored is the panic value of a Store read before Restore ran: it is a wiring defect.
var ErrNotRestored = errors.New("session store used before Restore")

// RestoreResult describes what Restore found in storage.
type RestoreResult int

const (
	NoSession RestoreResult = iota
	Restored
	ClearedCorrupt    // undecodable data was removed
	ClearedIneligible // a student session was removed
)

func (r RestoreResult) String() string {
	switch r {
	case Restored:
		return "restored"
	case ClearedCorrupt:
		return "cleared corrupt session"
	case ClearedIneligible:
		return "cleared ineligible session"
	default:
		return "no session"
	}
}

// Store is the single source of truth for who is logged in within one storage scope.
type Store struct {
	storage Storage

	mu       sync.RWMutex
	restored bool
	token    string
	user     *User
}

func NewStore(storage Storage) *Store {
	return &Store{storage: storage}
}

// Restore reloads the session persisted in storage.
// Corrupt and student sessions are removed from storage and leave the Store logged out; only storage
// failures are returned, in which case the Store is logged out as well.
func (s *Store) Restore(ctx context.Context) (RestoreResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.restored = true
	s.token, s.user = "", nil

	token, _, err := s.storage.Get(ctx, TokenKey)
	if err != nil {
		return NoSession, errors.Wrap(err, "reading token")
	}
	rawUser, _, err := s.storage.Get(ctx, UserKey)
	if err != nil {
		return NoSession, errors.Wrap(err, "reading user")
	}

	p, err := Decode(token, rawUser)
	switch {
	case err == ErrAbsent:
		return NoSession, nil
	case IsCorrupt(err):
		return ClearedCorrupt, errors.Wrap(s.clear(ctx), "clearing corrupt session")
	case err != nil:
		return NoSession, err
	}

	if !Eligible(p.User) {
		return ClearedIneligible, errors.Wrap(s.clear(ctx), "clearing ineligible session")
	}

	s.token, s.user = p.Token, &p.User
	return Restored, nil
}

// Login persists the identity then makes it current. Role eligibility is the caller's concern.
func (s *Store) Login(ctx context.Context, usr User, token string) error {
	tokenVal, userVal, err := Encode(Persisted{Token: token, User: usr})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.storage.Set(ctx, TokenKey, tokenVal); err != nil {
		return errors.Wrap(err, "persisting token")
	}
	if err = s.storage.Set(ctx, UserKey, userVal); err != nil {
		return errors.Wrap(err, "persisting user")
	}

	s.restored = true
	s.token, s.user = token, &usr
	return nil
}

// Logout forgets the session. It is safe to call when already logged out.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.restored = true
	s.token, s.user = "", nil
	return errors.Wrap(s.clear(ctx), "clearing session")
}

// Current returns a snapshot of the session state.
func (s *Store) Current() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.restored {
		panic(ErrNotRestored)
	}
	if s.user == nil || s.token == "" || !Eligible(*s.user) {
		return State{}
	}
	usr := *s.user
	return State{IsAuthenticated: true, User: &usr}
}

// Token returns the bearer credential of the current session, "" when logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.restored {
		panic(ErrNotRestored)
	}
	return s.token
}

func (s *Store) clear(ctx context.Context) error {
	return s.storage.Remove(ctx, TokenKey, UserKey)
}
