package hns

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// API is the set of remote operations the state layer depends on.
// It is implemented by *Client and can be faked in tests.
type API interface {
	ListStories(ctx context.Context, query ListQuery) ([]Story, error)
	CreateStory(ctx context.Context, token string, story NewStory) (Story, error)
	DeleteStory(ctx context.Context, token, storyID string) error
	AddFavorite(ctx context.Context, token, username, storyID string) error
	RemoveFavorite(ctx context.Context, token, username, storyID string) error
	FetchUser(ctx context.Context, token, username string) (UserPayload, error)
	Login(ctx context.Context, username, password string) (AuthResponse, error)
	Signup(ctx context.Context, username, password, name string) (AuthResponse, error)
}

// Ensure Client implements API at compile time.
var _ API = (*Client)(nil)

// Client talks to the story service HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	log       zerolog.Logger
}

const (
	// DefaultBaseURL is the public deployment of the API.
	DefaultBaseURL   = "https://hack-or-snooze-v3.herokuapp.com"
	defaultUserAgent = "snooze/0.1"
	requestTimeout   = 10 * time.Second
	requestIDHeader  = "X-Request-Id"
)

// Option customizes a Client.
type Option func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger used for per-request debug output.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient builds a Client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: requestTimeout},
		userAgent: defaultUserAgent,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListStories retrieves stories, newest first.
func (c *Client) ListStories(ctx context.Context, query ListQuery) ([]Story, error) {
	values := url.Values{}
	if query.Skip > 0 {
		values.Set("skip", strconv.Itoa(query.Skip))
	}
	if query.Limit > 0 {
		values.Set("limit", strconv.Itoa(query.Limit))
	}
	rel := endpoint("stories")
	rel.RawQuery = values.Encode()
	var payload StoryListResponse
	if err := c.do(ctx, "list stories", http.MethodGet, rel, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Stories, nil
}

// CreateStory submits a new story and returns the server's copy of it.
func (c *Client) CreateStory(ctx context.Context, token string, story NewStory) (Story, error) {
	const op = "create story"
	if err := required(op, "token", token); err != nil {
		return Story{}, err
	}
	body := createStoryBody{Token: token, Story: story}
	var payload StoryResponse
	if err := c.do(ctx, op, http.MethodPost, endpoint("stories"), body, &payload); err != nil {
		return Story{}, err
	}
	return payload.Story, nil
}

// DeleteStory deletes one of the token owner's stories.
func (c *Client) DeleteStory(ctx context.Context, token, storyID string) error {
	const op = "delete story"
	if err := required(op, "token", token); err != nil {
		return err
	}
	if err := required(op, "story id", storyID); err != nil {
		return err
	}
	return c.do(ctx, op, http.MethodDelete, endpoint("stories", storyID), tokenBody{Token: token}, nil)
}

// AddFavorite marks storyID as a favorite of username.
func (c *Client) AddFavorite(ctx context.Context, token, username, storyID string) error {
	return c.favorite(ctx, "add favorite", http.MethodPost, token, username, storyID)
}

// RemoveFavorite unmarks storyID as a favorite of username.
func (c *Client) RemoveFavorite(ctx context.Context, token, username, storyID string) error {
	return c.favorite(ctx, "remove favorite", http.MethodDelete, token, username, storyID)
}

func (c *Client) favorite(ctx context.Context, op, method, token, username, storyID string) error {
	if err := required(op, "token", token); err != nil {
		return err
	}
	if err := required(op, "username", username); err != nil {
		return err
	}
	if err := required(op, "story id", storyID); err != nil {
		return err
	}
	return c.do(ctx, op, method, endpoint("users", username, "favorites", storyID), tokenBody{Token: token}, nil)
}

// FetchUser retrieves a user profile using a previously issued token.
func (c *Client) FetchUser(ctx context.Context, token, username string) (UserPayload, error) {
	const op = "fetch user"
	if err := required(op, "token", token); err != nil {
		return UserPayload{}, err
	}
	if err := required(op, "username", username); err != nil {
		return UserPayload{}, err
	}
	values := url.Values{}
	values.Set("token", token)
	rel := endpoint("users", username)
	rel.RawQuery = values.Encode()
	var payload UserResponse
	if err := c.do(ctx, op, http.MethodGet, rel, nil, &payload); err != nil {
		return UserPayload{}, err
	}
	return payload.User, nil
}

// Login exchanges credentials for a token and the user's profile.
func (c *Client) Login(ctx context.Context, username, password string) (AuthResponse, error) {
	const op = "login"
	if err := required(op, "username", username); err != nil {
		return AuthResponse{}, err
	}
	if err := required(op, "password", password); err != nil {
		return AuthResponse{}, err
	}
	body := credentialsBody{User: credentials{Username: username, Password: password}}
	var payload AuthResponse
	if err := c.do(ctx, op, http.MethodPost, endpoint("login"), body, &payload); err != nil {
		return AuthResponse{}, err
	}
	return payload, nil
}

// Signup registers a new account and returns its token and profile.
func (c *Client) Signup(ctx context.Context, username, password, name string) (AuthResponse, error) {
	const op = "signup"
	if err := required(op, "username", username); err != nil {
		return AuthResponse{}, err
	}
	if err := required(op, "password", password); err != nil {
		return AuthResponse{}, err
	}
	body := credentialsBody{User: credentials{Username: username, Password: password, Name: name}}
	var payload AuthResponse
	if err := c.do(ctx, op, http.MethodPost, endpoint("signup"), body, &payload); err != nil {
		return AuthResponse{}, err
	}
	return payload, nil
}

// endpoint builds a relative URL from unescaped path segments.
func endpoint(segments ...string) *url.URL {
	escaped := make([]string, len(segments))
	for i, seg := range segments {
		escaped[i] = url.PathEscape(seg)
	}
	return &url.URL{
		Path:    "/" + strings.Join(segments, "/"),
		RawPath: "/" + strings.Join(escaped, "/"),
	}
}

func (c *Client) do(ctx context.Context, op, method string, rel *url.URL, body, dest any) error {
	fail := func(kind error, status int, message string, cause error) error {
		return &Error{Op: op, Method: method, Path: rel.Path, Status: status, Message: message, Kind: kind, Err: cause}
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fail(ErrBadRequest, 0, "", fmt.Errorf("encode request: %w", err))
		}
		reader = bytes.NewReader(buf)
	}

	// Endpoints hang off the base path, e.g. https://host/v3 + /stories.
	reqURL := *c.baseURL
	reqURL.Path = c.baseURL.Path + rel.Path
	reqURL.RawPath = c.baseURL.EscapedPath() + rel.EscapedPath()
	reqURL.RawQuery = rel.RawQuery
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fail(ErrBadRequest, 0, "", fmt.Errorf("create request: %w", err))
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(requestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("request_id", requestID).Str("method", method).Str("path", rel.Path).Msg("request failed")
		return fail(ErrNetwork, 0, "", fmt.Errorf("execute request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	c.log.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", rel.Path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("api call")

	if kind := classifyStatus(resp.StatusCode); kind != nil {
		return fail(kind, resp.StatusCode, readErrorMessage(resp.Body), nil)
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fail(ErrServer, resp.StatusCode, "", fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 64*1024))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload errorBody
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	return strings.TrimSpace(string(raw))
}

func required(op, field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &Error{Op: op, Message: field + " required", Kind: ErrBadRequest}
	}
	return nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse base url %q: missing host", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
