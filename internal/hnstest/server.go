// Package hnstest runs an in-memory imitation of the story service API for
// tests. It follows the routes, payload shapes and status codes of the real
// service closely enough to drive the client and state layers end to end.
package hnstest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/five82/snooze/internal/hns"
)

// Server is a fake story service backed by memory.
type Server struct {
	*httptest.Server

	secret []byte

	mu       sync.Mutex
	stories  []hns.Story // newest first
	users    map[string]*account
	failures map[string]int
	calls    map[string]int
}

type account struct {
	password  string
	name      string
	createdAt string
	favorites []string
}

// New starts a fake server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		secret:   []byte("hnstest-" + uuid.NewString()),
		users:    make(map[string]*account),
		failures: make(map[string]int),
		calls:    make(map[string]int),
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.countAndFail)

	r.Get("/stories", s.listStories)
	r.Post("/stories", s.createStory)
	r.Delete("/stories/{storyID}", s.deleteStory)

	r.Get("/users/{username}", s.getUser)
	r.Post("/users/{username}/favorites/{storyID}", s.addFavorite)
	r.Delete("/users/{username}/favorites/{storyID}", s.removeFavorite)

	r.Post("/login", s.login)
	r.Post("/signup", s.signup)
	return r
}

// AddUser registers an account directly and returns a valid token for it.
func (s *Server) AddUser(username, password, name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = &account{password: password, name: name, createdAt: now()}
	return s.mintToken(username)
}

// Token returns a freshly signed token for username.
func (s *Server) Token(username string) string {
	return s.mintToken(username)
}

// AddStory inserts a story at the head of the list, assigning an id and
// timestamp when missing. The stored copy is returned.
func (s *Server) AddStory(story hns.Story) hns.Story {
	s.mu.Lock()
	defer s.mu.Unlock()
	if story.StoryID == "" {
		story.StoryID = uuid.NewString()
	}
	if story.CreatedAt == "" {
		story.CreatedAt = now()
	}
	s.stories = append([]hns.Story{story}, s.stories...)
	return story
}

// Stories returns the stored stories, newest first.
func (s *Server) Stories() []hns.Story {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]hns.Story(nil), s.stories...)
}

// Favorites returns the favorite story ids of username.
func (s *Server) Favorites(username string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.users[username]
	if !ok {
		return nil
	}
	return append([]string(nil), acct.favorites...)
}

// FailNext makes the next request matching method and path answer with status.
func (s *Server) FailNext(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = status
}

// Calls reports how many requests were received for method and path.
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+path]
}

func (s *Server) countAndFail(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		s.mu.Lock()
		s.calls[key]++
		status, fail := s.failures[key]
		delete(s.failures, key)
		s.mu.Unlock()
		if fail {
			writeError(w, status, "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) listStories(w http.ResponseWriter, r *http.Request) {
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 25
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	items := []hns.Story{}
	for i := skip; i < len(s.stories) && len(items) < limit; i++ {
		items = append(items, s.stories[i])
	}
	writeJSON(w, http.StatusOK, hns.StoryListResponse{Stories: items})
}

func (s *Server) createStory(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string       `json:"token"`
		Story hns.NewStory `json:"story"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	username, ok := s.authenticate(w, body.Token)
	if !ok {
		return
	}
	if body.Story.Title == "" || body.Story.Author == "" || body.Story.URL == "" {
		writeError(w, http.StatusBadRequest, "story requires title, author and url")
		return
	}
	story := s.AddStory(hns.Story{
		Title:    body.Story.Title,
		Author:   body.Story.Author,
		URL:      body.Story.URL,
		Username: username,
	})
	writeJSON(w, http.StatusCreated, hns.StoryResponse{Story: story})
}

func (s *Server) deleteStory(w http.ResponseWriter, r *http.Request) {
	token, ok := decodeToken(w, r)
	if !ok {
		return
	}
	username, ok := s.authenticate(w, token)
	if !ok {
		return
	}
	id := chi.URLParam(r, "storyID")

	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		writeError(w, http.StatusNotFound, "no story with id "+id)
		return
	}
	story := s.stories[idx]
	if story.Username != username {
		writeError(w, http.StatusForbidden, "only the author may delete a story")
		return
	}
	s.stories = append(s.stories[:idx], s.stories[idx+1:]...)
	for _, acct := range s.users {
		acct.favorites = without(acct.favorites, id)
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "story deleted", "story": story})
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	username, ok := s.authenticate(w, r.URL.Query().Get("token"))
	if !ok {
		return
	}
	target := chi.URLParam(r, "username")
	if username != target {
		writeError(w, http.StatusUnauthorized, "token does not match user")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, found := s.userPayload(target)
	if !found {
		writeError(w, http.StatusNotFound, "no such user")
		return
	}
	writeJSON(w, http.StatusOK, hns.UserResponse{User: payload})
}

func (s *Server) addFavorite(w http.ResponseWriter, r *http.Request) {
	s.toggleFavorite(w, r, true)
}

func (s *Server) removeFavorite(w http.ResponseWriter, r *http.Request) {
	s.toggleFavorite(w, r, false)
}

func (s *Server) toggleFavorite(w http.ResponseWriter, r *http.Request, add bool) {
	token, ok := decodeToken(w, r)
	if !ok {
		return
	}
	username, ok := s.authenticate(w, token)
	if !ok {
		return
	}
	if username != chi.URLParam(r, "username") {
		writeError(w, http.StatusUnauthorized, "token does not match user")
		return
	}
	id := chi.URLParam(r, "storyID")

	s.mu.Lock()
	defer s.mu.Unlock()
	acct, found := s.users[username]
	if !found {
		writeError(w, http.StatusNotFound, "no such user")
		return
	}
	if s.indexOf(id) < 0 {
		writeError(w, http.StatusNotFound, "no story with id "+id)
		return
	}
	acct.favorites = without(acct.favorites, id)
	message := "favorite removed"
	if add {
		acct.favorites = append(acct.favorites, id)
		message = "favorite added"
	}
	payload, _ := s.userPayload(username)
	writeJSON(w, http.StatusOK, map[string]any{"message": message, "user": payload})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	creds, ok := decodeCredentials(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	acct, found := s.users[creds.Username]
	if !found {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "no such user")
		return
	}
	if acct.password != creds.Password {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "invalid password")
		return
	}
	payload, _ := s.userPayload(creds.Username)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, hns.AuthResponse{Token: s.mintToken(creds.Username), User: payload})
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	creds, ok := decodeCredentials(w, r)
	if !ok {
		return
	}
	if creds.Username == "" || creds.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password required")
		return
	}
	s.mu.Lock()
	if _, taken := s.users[creds.Username]; taken {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "username already taken")
		return
	}
	s.users[creds.Username] = &account{password: creds.Password, name: creds.Name, createdAt: now()}
	payload, _ := s.userPayload(creds.Username)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, hns.AuthResponse{Token: s.mintToken(creds.Username), User: payload})
}

// userPayload must be called with s.mu held.
func (s *Server) userPayload(username string) (hns.UserPayload, bool) {
	acct, ok := s.users[username]
	if !ok {
		return hns.UserPayload{}, false
	}
	payload := hns.UserPayload{
		Username:  username,
		Name:      acct.name,
		CreatedAt: acct.createdAt,
		Favorites: []hns.Story{},
		Stories:   []hns.Story{},
	}
	for _, id := range acct.favorites {
		if idx := s.indexOf(id); idx >= 0 {
			payload.Favorites = append(payload.Favorites, s.stories[idx])
		}
	}
	for _, story := range s.stories {
		if story.Username == username {
			payload.Stories = append(payload.Stories, story)
		}
	}
	return payload, true
}

// indexOf must be called with s.mu held.
func (s *Server) indexOf(id string) int {
	for i, story := range s.stories {
		if story.StoryID == id {
			return i
		}
	}
	return -1
}

func (s *Server) mintToken(username string) string {
	claims := hns.TokenClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		panic(err)
	}
	return signed
}

func (s *Server) authenticate(w http.ResponseWriter, token string) (string, bool) {
	var claims hns.TokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid || claims.Username == "" {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return "", false
	}
	s.mu.Lock()
	_, known := s.users[claims.Username]
	s.mu.Unlock()
	if !known {
		writeError(w, http.StatusUnauthorized, "unknown user")
		return "", false
	}
	return claims.Username, true
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (credentials, bool) {
	var body struct {
		User credentials `json:"user"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return credentials{}, false
	}
	return body.User, true
}

func decodeToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusUnauthorized, "token required")
		return "", false
	}
	return body.Token, true
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	var body struct {
		Error struct {
			Status  int    `json:"status"`
			Title   string `json:"title"`
			Message string `json:"message"`
		} `json:"error"`
	}
	body.Error.Status = status
	body.Error.Title = http.StatusText(status)
	body.Error.Message = message
	writeJSON(w, status, body)
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
