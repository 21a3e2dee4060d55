package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/snooze/internal/hns"
)

// StoryList is the authoritative in-memory list of known stories, newest
// first. Create and Remove are fail-atomic: the remote call is made first and
// local state changes only once it succeeds.
type StoryList struct {
	api      hns.API
	pageSize int

	mu          sync.RWMutex
	stories     []Story
	lastUpdated time.Time
}

// NewStoryList returns an empty list backed by api. A pageSize of zero leaves
// the page size to the server.
func NewStoryList(api hns.API, pageSize int) *StoryList {
	return &StoryList{api: api, pageSize: pageSize}
}

// FetchAll replaces the list with the server's current stories. On failure
// the previous contents are kept and the error is returned.
func (l *StoryList) FetchAll(ctx context.Context) error {
	items, err := l.api.ListStories(ctx, hns.ListQuery{Limit: l.pageSize})
	if err != nil {
		return fmt.Errorf("fetch stories: %w", err)
	}
	stories := fromPayload(items)

	l.mu.Lock()
	l.stories = stories
	l.lastUpdated = time.Now()
	l.mu.Unlock()

	zerolog.Ctx(ctx).Debug().Int("count", len(stories)).Msg("stories refreshed")
	return nil
}

// Create submits draft as user and, once the server accepts it, puts the
// server's copy at the front of both the list and the user's own stories.
func (l *StoryList) Create(ctx context.Context, user *User, draft Draft) (Story, error) {
	if user == nil {
		return Story{}, fmt.Errorf("create story: %w", ErrNoUser)
	}
	draft = draft.trimmed()
	if err := draft.validate(); err != nil {
		return Story{}, err
	}

	payload, err := l.api.CreateStory(ctx, user.Token(), hns.NewStory{
		Title:  draft.Title,
		Author: draft.Author,
		URL:    draft.URL,
	})
	if err != nil {
		return Story{}, fmt.Errorf("create story: %w", err)
	}
	story := NewStory(payload)

	l.mu.Lock()
	defer l.mu.Unlock()
	user.mu.Lock()
	defer user.mu.Unlock()

	l.stories = prepend(l.stories, story)
	user.own = prepend(user.own, story)

	zerolog.Ctx(ctx).Info().Str("story_id", story.id).Str("username", user.username).Msg("story created")
	return story, nil
}

// Remove deletes the story with id on the server and then drops it from the
// list, the user's own stories and the user's favorites together. If the
// server call fails nothing changes locally. A story the server no longer
// knows about is treated as already deleted.
func (l *StoryList) Remove(ctx context.Context, user *User, id string) error {
	if user == nil {
		return fmt.Errorf("remove story: %w", ErrNoUser)
	}
	logger := zerolog.Ctx(ctx)

	if err := l.api.DeleteStory(ctx, user.Token(), id); err != nil {
		if !errors.Is(err, hns.ErrNotFound) {
			return fmt.Errorf("remove story %s: %w", id, err)
		}
		logger.Warn().Str("story_id", id).Msg("story already gone on server")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	user.mu.Lock()
	defer user.mu.Unlock()

	l.stories = without(l.stories, id)
	user.dropLocked(id)

	logger.Info().Str("story_id", id).Str("username", user.username).Msg("story removed")
	return nil
}

// Reconcile overwrites the user's cached copies of stories with the list's
// canonical entries for the same ids.
func (l *StoryList) Reconcile(user *User) {
	if user == nil {
		return
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	user.mu.Lock()
	defer user.mu.Unlock()

	for i, s := range user.own {
		if idx := indexOf(l.stories, s.id); idx >= 0 {
			user.own[i] = l.stories[idx]
		}
	}
	for i, s := range user.favorites {
		if idx := indexOf(l.stories, s.id); idx >= 0 {
			user.favorites[i] = l.stories[idx]
		}
	}
}

// Stories returns a copy of the list.
func (l *StoryList) Stories() []Story {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneStories(l.stories)
}

// Find returns the story with id, if known.
func (l *StoryList) Find(id string) (Story, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if idx := indexOf(l.stories, id); idx >= 0 {
		return l.stories[idx], true
	}
	return Story{}, false
}

// Len returns the number of stories in the list.
func (l *StoryList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.stories)
}

// LastUpdated returns when FetchAll last succeeded.
func (l *StoryList) LastUpdated() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastUpdated
}
