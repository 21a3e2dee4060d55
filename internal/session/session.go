// Package session tracks who is logged in. A Session is the single source of
// truth for the current user; nothing else keeps its own copy across calls.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/five82/snooze/internal/credentials"
	"github.com/five82/snooze/internal/hns"
	"github.com/five82/snooze/internal/state"
)

// CredentialStore persists the token and username of the current session.
type CredentialStore interface {
	Load() (credentials.Credentials, error)
	Save(credentials.Credentials) error
	Clear() error
}

// Session holds the current user, or nil when logged out.
type Session struct {
	api   hns.API
	store CredentialStore

	mu      sync.RWMutex
	current *state.User
}

// New returns a logged-out session.
func New(api hns.API, store CredentialStore) *Session {
	return &Session{api: api, store: store}
}

// Current returns the logged-in user, or nil.
func (s *Session) Current() *state.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Require returns the logged-in user or state.ErrNoUser.
func (s *Session) Require() (*state.User, error) {
	if u := s.Current(); u != nil {
		return u, nil
	}
	return nil, state.ErrNoUser
}

// Establish makes user the current user and persists its credentials. The
// user stays established even if persisting fails; the error is returned so
// the caller can warn that the login will not be remembered.
func (s *Session) Establish(ctx context.Context, user *state.User) error {
	if user == nil {
		return fmt.Errorf("establish session: %w", state.ErrNoUser)
	}
	s.mu.Lock()
	s.current = user
	s.mu.Unlock()

	if err := s.store.Save(credentials.Credentials{Token: user.Token(), Username: user.Username()}); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("username", user.Username()).Msg("could not persist credentials")
		return fmt.Errorf("persist credentials: %w", err)
	}
	return nil
}

// EstablishFromStoredCredentials resumes a session from stored credentials.
// It reports whether a user is now established. Failures are never fatal.
func (s *Session) EstablishFromStoredCredentials(ctx context.Context) bool {
	logger := zerolog.Ctx(ctx)

	creds, err := s.store.Load()
	if err != nil {
		if !errors.Is(err, credentials.ErrNone) {
			logger.Warn().Err(err).Msg("could not read stored credentials")
		}
		return false
	}

	if subject, err := hns.TokenSubject(creds.Token); err == nil && subject != creds.Username {
		logger.Warn().Str("username", creds.Username).Str("token_subject", subject).Msg("stored token belongs to another user")
		return false
	}

	user := state.Resume(ctx, s.api, creds.Token, creds.Username)
	if user == nil {
		return false
	}
	s.mu.Lock()
	s.current = user
	s.mu.Unlock()
	return true
}

// Login authenticates and establishes the resulting user.
func (s *Session) Login(ctx context.Context, username, password string) (*state.User, error) {
	user, err := state.Login(ctx, s.api, username, password)
	if err != nil {
		return nil, err
	}
	return user, s.Establish(ctx, user)
}

// Signup registers a new account and establishes it.
func (s *Session) Signup(ctx context.Context, username, password, name string) (*state.User, error) {
	user, err := state.Signup(ctx, s.api, username, password, name)
	if err != nil {
		return nil, err
	}
	return user, s.Establish(ctx, user)
}

// Teardown logs out: it forgets the current user and clears stored credentials.
func (s *Session) Teardown(ctx context.Context) error {
	s.mu.Lock()
	prev := s.current
	s.current = nil
	s.mu.Unlock()

	if prev != nil {
		zerolog.Ctx(ctx).Info().Str("username", prev.Username()).Msg("logged out")
	}
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}
