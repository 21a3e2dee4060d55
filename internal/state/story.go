package state

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/five82/snooze/internal/hns"
)

// Story is a single posted item. It is immutable; the zero value is an
// empty story with no id.
type Story struct {
	id          string
	title       string
	author      string
	url         string
	submittedBy string
	createdAt   time.Time
}

// NewStory builds a Story from its API representation.
func NewStory(p hns.Story) Story {
	return Story{
		id:          p.StoryID,
		title:       p.Title,
		author:      p.Author,
		url:         p.URL,
		submittedBy: p.Username,
		createdAt:   p.ParsedCreatedAt(),
	}
}

func (s Story) ID() string           { return s.id }
func (s Story) Title() string        { return s.title }
func (s Story) Author() string       { return s.author }
func (s Story) URL() string          { return s.url }
func (s Story) SubmittedBy() string  { return s.submittedBy }
func (s Story) CreatedAt() time.Time { return s.createdAt }

// Host returns the host component of the story URL, port included.
func (s Story) Host() (string, error) {
	u, err := url.Parse(s.url)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrMalformedURL, s.url, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrMalformedURL, s.url)
	}
	return u.Host, nil
}

// HostOr returns Host, or fallback when the URL is malformed.
func (s Story) HostOr(fallback string) string {
	host, err := s.Host()
	if err != nil {
		return fallback
	}
	return host
}

// Draft is a story submission before the server has accepted it.
type Draft struct {
	Title  string
	Author string
	URL    string
}

func (d Draft) trimmed() Draft {
	return Draft{
		Title:  strings.TrimSpace(d.Title),
		Author: strings.TrimSpace(d.Author),
		URL:    strings.TrimSpace(d.URL),
	}
}

// validate expects a trimmed draft.
func (d Draft) validate() error {
	var missing []string
	if d.Title == "" {
		missing = append(missing, "title")
	}
	if d.Author == "" {
		missing = append(missing, "author")
	}
	if d.URL == "" {
		missing = append(missing, "url")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %v", ErrInvalidDraft, missing)
	}
	return nil
}

func indexOf(stories []Story, id string) int {
	for i, s := range stories {
		if s.id == id {
			return i
		}
	}
	return -1
}

func without(stories []Story, id string) []Story {
	idx := indexOf(stories, id)
	if idx < 0 {
		return stories
	}
	out := make([]Story, 0, len(stories)-1)
	out = append(out, stories[:idx]...)
	return append(out, stories[idx+1:]...)
}

// prepend puts story at the front, dropping any older entry with its id.
func prepend(stories []Story, story Story) []Story {
	rest := without(stories, story.id)
	out := make([]Story, 0, len(rest)+1)
	out = append(out, story)
	return append(out, rest...)
}

func insertAt(stories []Story, idx int, story Story) []Story {
	if idx < 0 || idx > len(stories) {
		idx = len(stories)
	}
	out := make([]Story, 0, len(stories)+1)
	out = append(out, stories[:idx]...)
	out = append(out, story)
	return append(out, stories[idx:]...)
}

// fromPayload converts API stories, keeping the first copy of each id.
func fromPayload(items []hns.Story) []Story {
	if len(items) == 0 {
		return nil
	}
	out := make([]Story, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, dup := seen[item.StoryID]; dup {
			continue
		}
		seen[item.StoryID] = struct{}{}
		out = append(out, NewStory(item))
	}
	return out
}

func cloneStories(stories []Story) []Story {
	if len(stories) == 0 {
		return nil
	}
	dup := make([]Story, len(stories))
	copy(dup, stories)
	return dup
}
