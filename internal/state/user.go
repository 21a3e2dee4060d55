package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/snooze/internal/hns"
)

// FavoriteState is the state of one story in a user's favorites.
type FavoriteState int

// A story is PendingAdd or PendingRemove while the server has not yet
// answered a favorite change; no other change to it is accepted meanwhile.
const (
	NotFavorited FavoriteState = iota
	PendingAdd
	Favorited
	PendingRemove
)

func (s FavoriteState) String() string {
	switch s {
	case PendingAdd:
		return "pending-add"
	case Favorited:
		return "favorited"
	case PendingRemove:
		return "pending-remove"
	default:
		return "not-favorited"
	}
}

// User is the authenticated account together with its own stories and
// favorites. Favorite changes are optimistic: the local set changes first and
// is rolled back if the server rejects the change.
type User struct {
	api hns.API

	mu          sync.RWMutex
	username    string
	displayName string
	createdAt   time.Time
	token       string
	own         []Story
	favorites   []Story
	pending     map[string]pendingChange
	seq         uint64
}

// pendingChange marks a favorite change in flight. seq identifies the call
// that owns the marker so a finished call never clears a newer one.
type pendingChange struct {
	state FavoriteState
	seq   uint64
}

func newUser(api hns.API, payload hns.UserPayload, token string) *User {
	return &User{
		api:         api,
		username:    payload.Username,
		displayName: payload.Name,
		createdAt:   payload.ParsedCreatedAt(),
		token:       token,
		own:         fromPayload(payload.Stories),
		favorites:   fromPayload(payload.Favorites),
		pending:     make(map[string]pendingChange),
	}
}

// Signup registers a new account and returns the signed-in user.
func Signup(ctx context.Context, api hns.API, username, password, name string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("signup: %w: username and password required", ErrInvalidCredentials)
	}
	auth, err := api.Signup(ctx, username, password, strings.TrimSpace(name))
	if err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}
	zerolog.Ctx(ctx).Info().Str("username", auth.User.Username).Msg("signed up")
	return newUser(api, auth.User, auth.Token), nil
}

// Login authenticates with username and password.
func Login(ctx context.Context, api hns.API, username, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("login: %w: username and password required", ErrInvalidCredentials)
	}
	auth, err := api.Login(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	zerolog.Ctx(ctx).Info().Str("username", auth.User.Username).Msg("logged in")
	return newUser(api, auth.User, auth.Token), nil
}

// Resume rebuilds a user from a previously issued token. Any failure yields
// nil: a stale or unusable token must never stop the caller from starting.
func Resume(ctx context.Context, api hns.API, token, username string) *User {
	logger := zerolog.Ctx(ctx)
	if token == "" || username == "" {
		return nil
	}
	payload, err := api.FetchUser(ctx, token, username)
	if err != nil {
		logger.Warn().Err(err).Str("username", username).Msg("resume from stored credentials failed")
		return nil
	}
	logger.Debug().Str("username", payload.Username).Msg("session resumed")
	return newUser(api, payload, token)
}

func (u *User) Username() string     { return u.username }
func (u *User) DisplayName() string  { return u.displayName }
func (u *User) CreatedAt() time.Time { return u.createdAt }
func (u *User) Token() string        { return u.token }

// OwnStories returns a copy of the stories this user submitted, newest first.
func (u *User) OwnStories() []Story {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return cloneStories(u.own)
}

// Favorites returns a copy of the user's favorites in the order they were added.
func (u *User) Favorites() []Story {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return cloneStories(u.favorites)
}

// IsFavorite reports whether story is in the user's favorites, including an
// add that is still waiting for the server.
func (u *User) IsFavorite(story Story) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return indexOf(u.favorites, story.id) >= 0
}

// FavoriteState returns the favorite state of the story with id.
func (u *User) FavoriteState(id string) FavoriteState {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if change, ok := u.pending[id]; ok {
		return change.state
	}
	if indexOf(u.favorites, id) >= 0 {
		return Favorited
	}
	return NotFavorited
}

// AddFavorite marks story as a favorite. The story shows as a favorite
// immediately; if the server rejects the change it is removed again and the
// error returned.
func (u *User) AddFavorite(ctx context.Context, story Story) error {
	id := story.id
	u.mu.Lock()
	if _, busy := u.pending[id]; busy {
		u.mu.Unlock()
		return fmt.Errorf("add favorite %s: %w", id, ErrFavoritePending)
	}
	if indexOf(u.favorites, id) >= 0 {
		u.mu.Unlock()
		return nil
	}
	u.favorites = append(u.favorites, story)
	seq := u.beginLocked(id, PendingAdd)
	u.mu.Unlock()

	err := u.api.AddFavorite(ctx, u.token, u.username, id)
	return u.settle(ctx, PendingAdd, id, seq, err, func() {
		u.favorites = without(u.favorites, id)
	})
}

// RemoveFavorite unmarks story as a favorite. The story disappears from the
// favorites immediately; if the server rejects the change it is put back in
// its previous position and the error returned.
func (u *User) RemoveFavorite(ctx context.Context, story Story) error {
	id := story.id
	u.mu.Lock()
	if _, busy := u.pending[id]; busy {
		u.mu.Unlock()
		return fmt.Errorf("remove favorite %s: %w", id, ErrFavoritePending)
	}
	idx := indexOf(u.favorites, id)
	if idx < 0 {
		u.mu.Unlock()
		return nil
	}
	previous := u.favorites[idx]
	u.favorites = without(u.favorites, id)
	seq := u.beginLocked(id, PendingRemove)
	u.mu.Unlock()

	err := u.api.RemoveFavorite(ctx, u.token, u.username, id)
	if errors.Is(err, hns.ErrNotFound) {
		// Nothing to remove on the server either.
		err = nil
	}
	return u.settle(ctx, PendingRemove, id, seq, err, func() {
		if indexOf(u.favorites, id) < 0 {
			u.favorites = insertAt(u.favorites, idx, previous)
		}
	})
}

// ToggleFavorite flips the favorite state of story and reports the new state.
func (u *User) ToggleFavorite(ctx context.Context, story Story) (bool, error) {
	switch u.FavoriteState(story.id) {
	case PendingAdd, PendingRemove:
		return u.IsFavorite(story), fmt.Errorf("toggle favorite %s: %w", story.id, ErrFavoritePending)
	case Favorited:
		if err := u.RemoveFavorite(ctx, story); err != nil {
			return true, err
		}
		return false, nil
	default:
		if err := u.AddFavorite(ctx, story); err != nil {
			return false, err
		}
		return u.IsFavorite(story), nil
	}
}

// beginLocked records a change in flight and returns its sequence number.
// Callers hold u.mu.
func (u *User) beginLocked(id string, state FavoriteState) uint64 {
	u.seq++
	u.pending[id] = pendingChange{state: state, seq: u.seq}
	return u.seq
}

// settle finishes an optimistic change once the server has answered. The
// marker is cleared and, when err is non-nil, the rollback run under the user
// lock only while the marker still belongs to call seq. A story dropped from
// the user mid-flight, or already claimed by a newer change, is left alone.
func (u *User) settle(ctx context.Context, op FavoriteState, id string, seq uint64, err error, rollback func()) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	change, ok := u.pending[id]
	owned := ok && change.seq == seq
	if owned {
		delete(u.pending, id)
	}
	if err == nil {
		return nil
	}
	if owned {
		rollback()
	}

	logger := zerolog.Ctx(ctx)
	if op == PendingAdd && errors.Is(err, hns.ErrNotFound) {
		logger.Warn().Str("story_id", id).Msg("favorite target no longer exists")
		return nil
	}
	logger.Warn().Err(err).Str("story_id", id).Str("change", op.String()).Msg("favorite change rolled back")
	if op == PendingRemove {
		return fmt.Errorf("remove favorite %s: %w", id, err)
	}
	return fmt.Errorf("add favorite %s: %w", id, err)
}

// dropLocked forgets the story with id everywhere on the user. Callers hold u.mu.
func (u *User) dropLocked(id string) {
	u.own = without(u.own, id)
	u.favorites = without(u.favorites, id)
	delete(u.pending, id)
}
