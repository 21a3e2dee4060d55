package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/five82/snooze/internal/logtail"
	"github.com/five82/snooze/internal/state"
)

func newFlagSet(e *env, name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(e.errOut)
	return fs
}

func singleArg(fs *pflag.FlagSet, what string) (string, error) {
	if fs.NArg() != 1 || strings.TrimSpace(fs.Arg(0)) == "" {
		return "", fmt.Errorf("%w: %s requires exactly one %s", ErrUsage, fs.Name(), what)
	}
	return strings.TrimSpace(fs.Arg(0)), nil
}

func runStories(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "stories")
	limit := fs.Int("limit", 0, "number of stories to fetch (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	list := e.stories
	if *limit > 0 {
		list = state.NewStoryList(e.client, *limit)
	}
	if err := list.FetchAll(ctx); err != nil {
		return err
	}
	user := e.session.Current()
	list.Reconcile(user)
	e.printStories(list.Stories(), user, "no stories yet")
	return nil
}

func runMine(ctx context.Context, e *env, args []string) error {
	user, err := e.session.Require()
	if err != nil {
		return err
	}
	e.printStories(user.OwnStories(), user, "no stories added by you yet")
	return nil
}

func runFavorites(ctx context.Context, e *env, args []string) error {
	user, err := e.session.Require()
	if err != nil {
		return err
	}
	e.printStories(user.Favorites(), user, "no favorites added")
	return nil
}

func runSubmit(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "submit")
	var draft state.Draft
	fs.StringVar(&draft.Title, "title", "", "story title")
	fs.StringVar(&draft.Author, "author", "", "story author")
	fs.StringVar(&draft.URL, "url", "", "story url")
	if err := fs.Parse(args); err != nil {
		return err
	}
	user, err := e.session.Require()
	if err != nil {
		return err
	}
	story, err := e.stories.Create(ctx, user, draft)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "submitted %s\n", story.ID())
	e.printStories([]state.Story{story}, user, "")
	return nil
}

func runDelete(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "delete")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := singleArg(fs, "story id")
	if err != nil {
		return err
	}
	user, err := e.session.Require()
	if err != nil {
		return err
	}
	if err := e.stories.Remove(ctx, user, id); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "deleted %s\n", id)
	return nil
}

func runFavorite(ctx context.Context, e *env, args []string) error {
	return changeFavorite(ctx, e, "fav", args, true)
}

func runUnfavorite(ctx context.Context, e *env, args []string) error {
	return changeFavorite(ctx, e, "unfav", args, false)
}

func changeFavorite(ctx context.Context, e *env, name string, args []string, add bool) error {
	fs := newFlagSet(e, name)
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := singleArg(fs, "story id")
	if err != nil {
		return err
	}
	user, err := e.session.Require()
	if err != nil {
		return err
	}
	story, err := e.lookupStory(ctx, user, id)
	if err != nil {
		return err
	}
	if add {
		err = user.AddFavorite(ctx, story)
	} else {
		err = user.RemoveFavorite(ctx, story)
	}
	if err != nil {
		return err
	}
	e.printStories([]state.Story{story}, user, "")
	return nil
}

// lookupStory finds id among the user's own stories and favorites, then in a
// fresh copy of the story list.
func (e *env) lookupStory(ctx context.Context, user *state.User, id string) (state.Story, error) {
	for _, group := range [][]state.Story{user.Favorites(), user.OwnStories()} {
		for _, s := range group {
			if s.ID() == id {
				return s, nil
			}
		}
	}
	if err := e.stories.FetchAll(ctx); err != nil {
		return state.Story{}, err
	}
	if s, ok := e.stories.Find(id); ok {
		return s, nil
	}
	return state.Story{}, fmt.Errorf("story %s is not among the latest %d stories", id, e.stories.Len())
}

func runLogin(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "login")
	username := fs.StringP("username", "u", "", "account username (prompted when empty)")
	passwordFile := fs.String("password-file", "", "read the password from this file (\"-\" or empty prompts)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	name, password, err := e.readCredentials(*username, *passwordFile)
	if err != nil {
		return err
	}
	user, err := e.session.Login(ctx, name, password)
	if user == nil {
		return err
	}
	if err != nil {
		fmt.Fprintf(e.errOut, "warning: login will not be remembered: %v\n", err)
	}
	fmt.Fprintf(e.out, "logged in as %s\n", user.Username())
	return nil
}

func runSignup(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "signup")
	username := fs.StringP("username", "u", "", "account username (prompted when empty)")
	display := fs.String("name", "", "display name")
	passwordFile := fs.String("password-file", "", "read the password from this file (\"-\" or empty prompts)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	name, password, err := e.readCredentials(*username, *passwordFile)
	if err != nil {
		return err
	}
	user, err := e.session.Signup(ctx, name, password, *display)
	if user == nil {
		return err
	}
	if err != nil {
		fmt.Fprintf(e.errOut, "warning: login will not be remembered: %v\n", err)
	}
	fmt.Fprintf(e.out, "signed up as %s\n", user.Username())
	return nil
}

func runLogout(ctx context.Context, e *env, args []string) error {
	if err := e.session.Teardown(ctx); err != nil {
		return err
	}
	fmt.Fprintln(e.out, "logged out")
	return nil
}

func runWhoami(ctx context.Context, e *env, args []string) error {
	user := e.session.Current()
	if user == nil {
		fmt.Fprintln(e.out, "not logged in")
		return nil
	}
	fmt.Fprintf(e.out, "%s (%s)\n", e.styles.title.Render(user.Username()), user.DisplayName())
	if !user.CreatedAt().IsZero() {
		fmt.Fprintf(e.out, "member since %s\n", user.CreatedAt().Format("2006-01-02"))
	}
	fmt.Fprintf(e.out, "%d stories, %d favorites\n", len(user.OwnStories()), len(user.Favorites()))
	return nil
}

func runWatch(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "watch")
	pollSeconds := fs.Int("poll", 0, "refresh interval in seconds (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	interval := e.cfg.PollInterval
	if *pollSeconds > 0 {
		interval = time.Duration(*pollSeconds) * time.Second
	}

	seen := make(map[string]struct{})
	first := true
	Poll(ctx, e.stories, interval, func(err error) {
		if err != nil {
			fmt.Fprintf(e.errOut, "refresh failed: %s\n", Describe(err))
			return
		}
		var fresh []state.Story
		for _, s := range e.stories.Stories() {
			if _, ok := seen[s.ID()]; !ok {
				seen[s.ID()] = struct{}{}
				fresh = append(fresh, s)
			}
		}
		if first || len(fresh) > 0 {
			e.printStories(fresh, e.session.Current(), "no stories yet")
		}
		first = false
	})
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

func runLog(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "log")
	lines := fs.IntP("lines", "n", 20, "number of lines to show")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tail, err := logtail.Read(e.cfg.LogPath(), *lines)
	if err != nil {
		return err
	}
	for _, line := range tail {
		fmt.Fprintln(e.out, logtail.Format(line))
	}
	return nil
}

func (e *env) readCredentials(username, passwordFile string) (string, string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		fmt.Fprint(e.errOut, "Username: ")
		line, err := bufio.NewReader(e.stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", "", fmt.Errorf("read username: %w", err)
		}
		username = strings.TrimSpace(line)
	}
	password, err := readPassword(passwordFile, e.stdin, e.errOut)
	if err != nil {
		return "", "", err
	}
	return username, password, nil
}
