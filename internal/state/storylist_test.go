package state

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/snooze/internal/hns"
)

func login(t *testing.T, api *fakeAPI) *User {
	t.Helper()
	u, err := Login(context.Background(), api, "alice", "pw")
	require.NoError(t, err)
	return u
}

func ids(stories []Story) []string {
	out := make([]string, 0, len(stories))
	for _, s := range stories {
		out = append(out, s.ID())
	}
	return out
}

func TestStoryList_FetchAllReplacesAndDedups(t *testing.T) {
	api := newFakeAPI()
	api.stories = []hns.Story{{StoryID: "2"}, {StoryID: "1"}, {StoryID: "2"}}
	list := NewStoryList(api, 25)

	require.NoError(t, list.FetchAll(context.Background()))
	assert.Equal(t, []string{"2", "1"}, ids(list.Stories()))
	assert.False(t, list.LastUpdated().IsZero())

	api.stories = []hns.Story{{StoryID: "3"}}
	require.NoError(t, list.FetchAll(context.Background()))
	assert.Equal(t, []string{"3"}, ids(list.Stories()))
}

func TestStoryList_FetchAllFailureKeepsPrevious(t *testing.T) {
	api := newFakeAPI()
	api.stories = []hns.Story{{StoryID: "1"}}
	list := NewStoryList(api, 0)
	require.NoError(t, list.FetchAll(context.Background()))
	before := list.LastUpdated()

	api.failNext("list", apiError(hns.ErrNetwork, 0))
	err := list.FetchAll(context.Background())
	require.ErrorIs(t, err, hns.ErrNetwork)
	assert.Equal(t, []string{"1"}, ids(list.Stories()))
	assert.Equal(t, before, list.LastUpdated())
}

func TestStoryList_CreatePrependsToListAndOwnStories(t *testing.T) {
	api := newFakeAPI()
	list := NewStoryList(api, 0)
	user := login(t, api)

	story, err := list.Create(context.Background(), user, Draft{Title: "A", Author: "X", URL: "http://a.com"})
	require.NoError(t, err)

	assert.Equal(t, "1", story.ID())
	require.Len(t, list.Stories(), 1)
	require.Len(t, user.OwnStories(), 1)
	assert.Equal(t, story, list.Stories()[0])
	assert.Equal(t, story, user.OwnStories()[0])
	assert.Equal(t, "alice", story.SubmittedBy())
	assert.False(t, story.CreatedAt().IsZero(), "createdAt comes from the server")

	second, err := list.Create(context.Background(), user, Draft{Title: "B", Author: "Y", URL: "http://b.com"})
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID(), "1"}, ids(list.Stories()))
	assert.Equal(t, []string{second.ID(), "1"}, ids(user.OwnStories()))
}

func TestStoryList_CreateRejectsInvalidDraftWithoutRemoteCall(t *testing.T) {
	api := newFakeAPI()
	list := NewStoryList(api, 0)
	user := login(t, api)

	_, err := list.Create(context.Background(), user, Draft{Title: "A", URL: "http://a.com"})
	require.ErrorIs(t, err, ErrInvalidDraft)
	assert.Zero(t, api.callCount("create"))
	assert.Zero(t, list.Len())
}

func TestStoryList_RequiresUser(t *testing.T) {
	api := newFakeAPI()
	list := NewStoryList(api, 0)

	_, err := list.Create(context.Background(), nil, Draft{Title: "A", Author: "X", URL: "http://a.com"})
	assert.ErrorIs(t, err, ErrNoUser)
	assert.ErrorIs(t, list.Remove(context.Background(), nil, "1"), ErrNoUser)
	assert.Empty(t, api.calls)
}

func TestStoryList_CreateFailureLeavesStateUntouched(t *testing.T) {
	api := newFakeAPI()
	list := NewStoryList(api, 0)
	user := login(t, api)

	api.failNext("create", apiError(hns.ErrUnauthorized, 401))
	_, err := list.Create(context.Background(), user, Draft{Title: "A", Author: "X", URL: "http://a.com"})
	require.ErrorIs(t, err, hns.ErrUnauthorized)
	assert.Zero(t, list.Len())
	assert.Empty(t, user.OwnStories())
}

func TestStoryList_CreateAfterRefetchDoesNotDuplicate(t *testing.T) {
	api := newFakeAPI()
	list := NewStoryList(api, 0)
	user := login(t, api)

	story, err := list.Create(context.Background(), user, Draft{Title: "A", Author: "X", URL: "http://a.com"})
	require.NoError(t, err)
	require.NoError(t, list.FetchAll(context.Background()))

	// The server copy is already listed; prepending it again must not duplicate it.
	list.mu.Lock()
	list.stories = prepend(list.stories, story)
	list.mu.Unlock()
	assert.Equal(t, []string{"1"}, ids(list.Stories()))
}

func userWithStory(t *testing.T) (*fakeAPI, *StoryList, *User, Story) {
	t.Helper()
	api := newFakeAPI()
	payload := hns.Story{StoryID: "s1", Title: "Mine", Author: "X", URL: "http://a.com", Username: "alice"}
	other := hns.Story{StoryID: "s2", Title: "Theirs", Author: "Y", URL: "http://b.com", Username: "bob"}
	api.stories = []hns.Story{payload, other}
	api.user.Stories = []hns.Story{payload}
	api.user.Favorites = []hns.Story{payload, other}

	list := NewStoryList(api, 0)
	require.NoError(t, list.FetchAll(context.Background()))
	user := login(t, api)
	return api, list, user, NewStory(payload)
}

func TestStoryList_RemoveDropsFromAllThreeCollections(t *testing.T) {
	_, list, user, story := userWithStory(t)

	require.NoError(t, list.Remove(context.Background(), user, story.ID()))

	assert.Equal(t, []string{"s2"}, ids(list.Stories()))
	assert.Empty(t, user.OwnStories())
	assert.Equal(t, []string{"s2"}, ids(user.Favorites()))
	assert.False(t, user.IsFavorite(story))
}

func TestStoryList_RemoveFailureChangesNothing(t *testing.T) {
	for _, kind := range []error{hns.ErrServer, hns.ErrNetwork, hns.ErrUnauthorized} {
		t.Run(kind.Error(), func(t *testing.T) {
			api, list, user, story := userWithStory(t)
			beforeList, beforeOwn, beforeFav := list.Stories(), user.OwnStories(), user.Favorites()

			api.failNext("delete", apiError(kind, 0))
			err := list.Remove(context.Background(), user, story.ID())
			require.ErrorIs(t, err, kind)

			assert.Equal(t, beforeList, list.Stories())
			assert.Equal(t, beforeOwn, user.OwnStories())
			assert.Equal(t, beforeFav, user.Favorites())
		})
	}
}

func TestStoryList_RemoveTwiceIsSafe(t *testing.T) {
	api, list, user, story := userWithStory(t)

	require.NoError(t, list.Remove(context.Background(), user, story.ID()))
	api.failNext("delete", apiError(hns.ErrNotFound, 404))
	require.NoError(t, list.Remove(context.Background(), user, story.ID()))

	assert.Equal(t, []string{"s2"}, ids(list.Stories()))
	assert.Equal(t, 2, api.callCount("delete"))
}

func TestStoryList_RemoveUnknownIDIsNoop(t *testing.T) {
	_, list, user, _ := userWithStory(t)

	require.NoError(t, list.Remove(context.Background(), user, "missing"))
	assert.Equal(t, []string{"s1", "s2"}, ids(list.Stories()))
	assert.Len(t, user.OwnStories(), 1)
	assert.Len(t, user.Favorites(), 2)
}

func TestStoryList_IDsStayUniqueUnderRandomOps(t *testing.T) {
	api := newFakeAPI()
	list := NewStoryList(api, 0)
	user := login(t, api)
	rng := rand.New(rand.NewSource(7))
	ctx := context.Background()

	for i := 0; i < 200; i++ {
		switch rng.Intn(4) {
		case 0, 1:
			if rng.Intn(5) == 0 {
				api.failNext("create", apiError(hns.ErrServer, 500))
			}
			_, _ = list.Create(ctx, user, Draft{Title: fmt.Sprint("t", i), Author: "a", URL: "http://x.io"})
		case 2:
			stories := list.Stories()
			if len(stories) == 0 {
				continue
			}
			if rng.Intn(5) == 0 {
				api.failNext("delete", apiError(hns.ErrServer, 500))
			}
			_ = list.Remove(ctx, user, stories[rng.Intn(len(stories))].ID())
		case 3:
			require.NoError(t, list.FetchAll(ctx))
		}

		seen := map[string]bool{}
		for _, id := range ids(list.Stories()) {
			require.False(t, seen[id], "duplicate id %s after op %d", id, i)
			seen[id] = true
		}
		seen = map[string]bool{}
		for _, id := range ids(user.OwnStories()) {
			require.False(t, seen[id], "duplicate own id %s after op %d", id, i)
			seen[id] = true
		}
	}
}

func TestStoryList_FindAndReconcile(t *testing.T) {
	api, list, user, story := userWithStory(t)

	got, ok := list.Find(story.ID())
	require.True(t, ok)
	assert.Equal(t, story, got)
	_, ok = list.Find("missing")
	assert.False(t, ok)

	// The server edits the title; a refetch updates the list, Reconcile the user.
	api.stories[0].Title = "Edited"
	require.NoError(t, list.FetchAll(context.Background()))
	assert.Equal(t, "Mine", user.OwnStories()[0].Title())

	list.Reconcile(user)
	assert.Equal(t, "Edited", user.OwnStories()[0].Title())
	assert.Equal(t, "Edited", user.Favorites()[0].Title())
	list.Reconcile(nil)
}

func TestStoryList_ErrorsKeepKind(t *testing.T) {
	api, list, user, story := userWithStory(t)
	api.failNext("delete", apiError(hns.ErrUnauthorized, 401))

	err := list.Remove(context.Background(), user, story.ID())
	var apiErr *hns.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 401, apiErr.Status)
	assert.Contains(t, err.Error(), "remove story s1")
}
