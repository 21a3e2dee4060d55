package hns

import "time"

// Story mirrors the story object returned by the API.
type Story struct {
	StoryID   string `json:"storyId"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	URL       string `json:"url"`
	Username  string `json:"username"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// ParsedCreatedAt returns the parsed CreatedAt timestamp.
func (s Story) ParsedCreatedAt() time.Time {
	return parseTime(s.CreatedAt)
}

// NewStory is the submission payload for POST /stories.
type NewStory struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	URL    string `json:"url"`
}

// UserPayload mirrors the user object returned by /users, /login and /signup.
type UserPayload struct {
	Username  string  `json:"username"`
	Name      string  `json:"name"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt,omitempty"`
	Favorites []Story `json:"favorites"`
	Stories   []Story `json:"stories"`
}

// ParsedCreatedAt returns the parsed CreatedAt timestamp.
func (u UserPayload) ParsedCreatedAt() time.Time {
	return parseTime(u.CreatedAt)
}

// AuthResponse is returned by login and signup.
type AuthResponse struct {
	Token string      `json:"token"`
	User  UserPayload `json:"user"`
}

// ListQuery configures GET /stories requests.
type ListQuery struct {
	Skip  int
	Limit int
}

// StoryListResponse mirrors GET /stories.
type StoryListResponse struct {
	Stories []Story `json:"stories"`
}

// StoryResponse mirrors POST /stories.
type StoryResponse struct {
	Story Story `json:"story"`
}

// UserResponse mirrors GET /users/{username}.
type UserResponse struct {
	User UserPayload `json:"user"`
}

type tokenBody struct {
	Token string `json:"token"`
}

type createStoryBody struct {
	Token string   `json:"token"`
	Story NewStory `json:"story"`
}

type credentialsBody struct {
	User credentials `json:"user"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type errorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Title   string `json:"title"`
		Message string `json:"message"`
	} `json:"error"`
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
