package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/five82/snooze/internal/hns"
	"github.com/five82/snooze/internal/hnstest"
	"github.com/five82/snooze/internal/state"
)

type harness struct {
	srv        *hnstest.Server
	dir        string
	configPath string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	h := &harness{srv: hnstest.New(t), dir: dir, configPath: filepath.Join(dir, "config.toml")}
	cfg := fmt.Sprintf(`base_url = %q
timeout = "5s"
log_dir = %q
log_level = "debug"
credentials_path = %q
page_size = 10
`, h.srv.URL, filepath.Join(dir, "logs"), filepath.Join(dir, "credentials.toml"))
	if err := os.WriteFile(h.configPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return h
}

func (h *harness) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := Run(context.Background(), Options{
		ConfigPath: h.configPath,
		Args:       args,
		Stdout:     &stdout,
		Stderr:     &stderr,
	})
	return stdout.String(), stderr.String(), err
}

func (h *harness) passwordFile(t *testing.T, password string) string {
	t.Helper()
	path := filepath.Join(h.dir, "password")
	if err := os.WriteFile(path, []byte(password+"\n"), 0o600); err != nil {
		t.Fatalf("write password file: %v", err)
	}
	return path
}

func (h *harness) login(t *testing.T, username string) {
	t.Helper()
	h.srv.AddUser(username, "hunter22", "Test User")
	out, _, err := h.run(t, "login", "--username", username, "--password-file", h.passwordFile(t, "hunter22"))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out, "logged in as "+username) {
		t.Fatalf("login output = %q", out)
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	h := newHarness(t)
	_, stderr, err := h.run(t, "frobnicate")
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("expected ErrUsage, got %v", err)
	}
	if !strings.Contains(stderr, "commands:") {
		t.Fatalf("usage not printed: %q", stderr)
	}
}

func TestRun_LoginPersistsSession(t *testing.T) {
	h := newHarness(t)
	h.login(t, "alice")

	info, err := os.Stat(filepath.Join(h.dir, "credentials.toml"))
	if err != nil {
		t.Fatalf("credentials not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("credentials mode = %o, want 600", perm)
	}

	out, _, err := h.run(t, "whoami")
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	if !strings.Contains(out, "alice (Test User)") {
		t.Fatalf("whoami output = %q", out)
	}
}

func TestRun_LoginWithWrongPassword(t *testing.T) {
	h := newHarness(t)
	h.srv.AddUser("alice", "hunter22", "Alice")

	_, _, err := h.run(t, "login", "-u", "alice", "--password-file", h.passwordFile(t, "nope"))
	if !errors.Is(err, hns.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(h.dir, "credentials.toml")); !os.IsNotExist(statErr) {
		t.Fatalf("credentials written after failed login: %v", statErr)
	}
}

func TestRun_LoggedOutCommandsNeedUser(t *testing.T) {
	h := newHarness(t)
	for _, args := range [][]string{
		{"mine"},
		{"favorites"},
		{"submit", "--title", "t", "--author", "a", "--url", "https://example.com"},
		{"delete", "abc"},
		{"fav", "abc"},
	} {
		_, _, err := h.run(t, args...)
		if !errors.Is(err, state.ErrNoUser) {
			t.Errorf("%v: expected ErrNoUser, got %v", args, err)
		}
	}

	out, _, err := h.run(t, "whoami")
	if err != nil || !strings.Contains(out, "not logged in") {
		t.Fatalf("whoami = %q, %v", out, err)
	}
}

func TestRun_StoriesListsNewestWithoutMarkersWhenLoggedOut(t *testing.T) {
	h := newHarness(t)
	h.srv.AddStory(hns.Story{Title: "Older", Author: "A", URL: "https://old.example.com/a", Username: "bob"})
	h.srv.AddStory(hns.Story{Title: "Newer", Author: "B", URL: "not a url", Username: "bob"})

	out, _, err := h.run(t, "stories")
	if err != nil {
		t.Fatalf("stories: %v", err)
	}
	if strings.Index(out, "Newer") > strings.Index(out, "Older") {
		t.Fatalf("stories not newest first: %q", out)
	}
	if !strings.Contains(out, "old.example.com") || !strings.Contains(out, "unknown host") {
		t.Fatalf("hosts missing: %q", out)
	}
	if strings.ContainsAny(out, "★☆") {
		t.Fatalf("logged-out listing shows favorite markers: %q", out)
	}
}

func TestRun_SubmitFavoriteDelete(t *testing.T) {
	h := newHarness(t)
	h.login(t, "alice")

	out, _, err := h.run(t, "submit", "--title", "Go Proverbs", "--author", "Rob", "--url", "https://go-proverbs.github.io")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	stored := h.srv.Stories()
	if len(stored) != 1 || stored[0].Username != "alice" {
		t.Fatalf("server stories = %+v", stored)
	}
	id := stored[0].StoryID
	if !strings.Contains(out, "submitted "+id) {
		t.Fatalf("submit output = %q", out)
	}

	if out, _, err = h.run(t, "mine"); err != nil || !strings.Contains(out, "Go Proverbs") {
		t.Fatalf("mine = %q, %v", out, err)
	}

	if out, _, err = h.run(t, "fav", id); err != nil {
		t.Fatalf("fav: %v", err)
	}
	if !strings.Contains(out, "★") {
		t.Fatalf("fav output lacks marker: %q", out)
	}
	if favs := h.srv.Favorites("alice"); len(favs) != 1 || favs[0] != id {
		t.Fatalf("server favorites = %v", favs)
	}
	if out, _, err = h.run(t, "favorites"); err != nil || !strings.Contains(out, "Go Proverbs") {
		t.Fatalf("favorites = %q, %v", out, err)
	}

	if _, _, err = h.run(t, "unfav", id); err != nil {
		t.Fatalf("unfav: %v", err)
	}
	if favs := h.srv.Favorites("alice"); len(favs) != 0 {
		t.Fatalf("server favorites after unfav = %v", favs)
	}

	if out, _, err = h.run(t, "delete", id); err != nil || !strings.Contains(out, "deleted "+id) {
		t.Fatalf("delete = %q, %v", out, err)
	}
	if len(h.srv.Stories()) != 0 {
		t.Fatalf("story still on server")
	}
	if out, _, err = h.run(t, "mine"); err != nil || !strings.Contains(out, "no stories added by you yet") {
		t.Fatalf("mine after delete = %q, %v", out, err)
	}
}

func TestRun_SubmitRejectsIncompleteDraft(t *testing.T) {
	h := newHarness(t)
	h.login(t, "alice")

	_, _, err := h.run(t, "submit", "--title", "  ", "--author", "Rob", "--url", "https://example.com")
	if !errors.Is(err, state.ErrInvalidDraft) {
		t.Fatalf("expected ErrInvalidDraft, got %v", err)
	}
	if h.srv.Calls("POST", "/stories") != 0 {
		t.Fatalf("invalid draft reached the server")
	}
}

func TestRun_FavoriteUnknownStory(t *testing.T) {
	h := newHarness(t)
	h.login(t, "alice")

	_, _, err := h.run(t, "fav", "missing")
	if err == nil || !strings.Contains(err.Error(), "missing") {
		t.Fatalf("expected lookup error, got %v", err)
	}
}

func TestRun_LogoutForgetsSession(t *testing.T) {
	h := newHarness(t)
	h.login(t, "alice")

	if out, _, err := h.run(t, "logout"); err != nil || !strings.Contains(out, "logged out") {
		t.Fatalf("logout = %q, %v", out, err)
	}
	if _, err := os.Stat(filepath.Join(h.dir, "credentials.toml")); !os.IsNotExist(err) {
		t.Fatalf("credentials survive logout: %v", err)
	}
	if _, _, err := h.run(t, "mine"); !errors.Is(err, state.ErrNoUser) {
		t.Fatalf("expected ErrNoUser after logout, got %v", err)
	}
}

func TestRun_LogShowsFormattedEntries(t *testing.T) {
	h := newHarness(t)
	if _, _, err := h.run(t, "delete", "abc"); err == nil {
		t.Fatal("expected delete to fail while logged out")
	}

	out, _, err := h.run(t, "log", "-n", "5")
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if !strings.Contains(out, "command failed") || !strings.Contains(out, "command=delete") {
		t.Fatalf("log output = %q", out)
	}
	if strings.Contains(out, `"message"`) {
		t.Fatalf("log output not formatted: %q", out)
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"no user", fmt.Errorf("wrap: %w", state.ErrNoUser), "not logged in"},
		{"unauthorized", &hns.Error{Op: "login", Status: 401, Kind: hns.ErrUnauthorized}, "not authorized"},
		{"conflict", &hns.Error{Op: "signup", Status: 409, Kind: hns.ErrConflict}, "already taken"},
		{"network", &hns.Error{Op: "list stories", Kind: hns.ErrNetwork, Err: errors.New("dial tcp")}, "could not be reached"},
		{"pending", state.ErrFavoritePending, "still in progress"},
		{"other", errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Describe(tt.err)
			if !strings.Contains(got, tt.want) || (tt.want == "" && got != "") {
				t.Fatalf("Describe() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}
