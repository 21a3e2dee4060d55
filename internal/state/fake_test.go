package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/five82/snooze/internal/hns"
)

// fakeAPI is a scripted hns.API. Errors queued with failNext are returned by
// the next call of that operation.
type fakeAPI struct {
	mu      sync.Mutex
	stories []hns.Story
	user    hns.UserPayload
	token   string
	nextID  int
	errs    map[string][]error
	calls   []string

	// When set, favorite calls signal entered and then wait on release.
	entered chan string
	release chan struct{}

	// When set, each favorite call hands over its own release channel.
	holds chan chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		user:  hns.UserPayload{Username: "alice", Name: "Alice", CreatedAt: "2024-01-02T03:04:05Z"},
		token: "tok-alice",
		errs:  make(map[string][]error),
	}
}

func (f *fakeAPI) failNext(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[op] = append(f.errs[op], err)
}

func (f *fakeAPI) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	if queued := f.errs[op]; len(queued) > 0 {
		f.errs[op] = queued[1:]
		return queued[0]
	}
	return nil
}

func (f *fakeAPI) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeAPI) gate(id string) {
	if f.holds != nil {
		hold := make(chan struct{})
		f.holds <- hold
		<-hold
		return
	}
	if f.entered == nil {
		return
	}
	f.entered <- id
	<-f.release
}

func (f *fakeAPI) ListStories(ctx context.Context, query hns.ListQuery) ([]hns.Story, error) {
	if err := f.record("list"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]hns.Story(nil), f.stories...), nil
}

func (f *fakeAPI) CreateStory(ctx context.Context, token string, story hns.NewStory) (hns.Story, error) {
	if err := f.record("create"); err != nil {
		return hns.Story{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	created := hns.Story{
		StoryID:   fmt.Sprint(f.nextID),
		Title:     story.Title,
		Author:    story.Author,
		URL:       story.URL,
		Username:  f.user.Username,
		CreatedAt: "2024-03-01T12:00:00Z",
	}
	f.stories = append([]hns.Story{created}, f.stories...)
	return created, nil
}

func (f *fakeAPI) DeleteStory(ctx context.Context, token, storyID string) error {
	if err := f.record("delete"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.stories[:0]
	for _, s := range f.stories {
		if s.StoryID != storyID {
			kept = append(kept, s)
		}
	}
	f.stories = kept
	return nil
}

func (f *fakeAPI) AddFavorite(ctx context.Context, token, username, storyID string) error {
	f.gate(storyID)
	return f.record("add-favorite")
}

func (f *fakeAPI) RemoveFavorite(ctx context.Context, token, username, storyID string) error {
	f.gate(storyID)
	return f.record("remove-favorite")
}

func (f *fakeAPI) FetchUser(ctx context.Context, token, username string) (hns.UserPayload, error) {
	if err := f.record("fetch-user"); err != nil {
		return hns.UserPayload{}, err
	}
	return f.user, nil
}

func (f *fakeAPI) Login(ctx context.Context, username, password string) (hns.AuthResponse, error) {
	if err := f.record("login"); err != nil {
		return hns.AuthResponse{}, err
	}
	return hns.AuthResponse{Token: f.token, User: f.user}, nil
}

func (f *fakeAPI) Signup(ctx context.Context, username, password, name string) (hns.AuthResponse, error) {
	if err := f.record("signup"); err != nil {
		return hns.AuthResponse{}, err
	}
	user := f.user
	user.Username, user.Name = username, name
	return hns.AuthResponse{Token: f.token, User: user}, nil
}

func apiError(kind error, status int) error {
	return &hns.Error{Op: "test", Status: status, Kind: kind}
}
