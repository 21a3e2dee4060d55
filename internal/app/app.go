package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/five82/snooze/internal/config"
	"github.com/five82/snooze/internal/credentials"
	"github.com/five82/snooze/internal/hns"
	"github.com/five82/snooze/internal/logging"
	"github.com/five82/snooze/internal/session"
	"github.com/five82/snooze/internal/state"
)

// Options configure a snooze invocation.
type Options struct {
	ConfigPath string
	Args       []string // command name followed by its arguments
	Stdin      *os.File
	Stdout     io.Writer
	Stderr     io.Writer
}

// env is what every command runs against.
type env struct {
	cfg     config.Config
	client  *hns.Client
	session *session.Session
	stories *state.StoryList
	stdin   *os.File
	out     io.Writer
	errOut  io.Writer
	styles  styles
}

type command struct {
	summary string
	resume  bool // try stored credentials before running
	run     func(ctx context.Context, e *env, args []string) error
}

var commands = map[string]command{
	"stories":   {summary: "list the newest stories", resume: true, run: runStories},
	"mine":      {summary: "list your own stories", resume: true, run: runMine},
	"favorites": {summary: "list your favorite stories", resume: true, run: runFavorites},
	"submit":    {summary: "submit a new story", resume: true, run: runSubmit},
	"delete":    {summary: "delete one of your stories", resume: true, run: runDelete},
	"fav":       {summary: "add a story to your favorites", resume: true, run: runFavorite},
	"unfav":     {summary: "remove a story from your favorites", resume: true, run: runUnfavorite},
	"login":     {summary: "log in and remember the session", run: runLogin},
	"signup":    {summary: "create an account and log in", run: runSignup},
	"logout":    {summary: "forget the stored session", run: runLogout},
	"whoami":    {summary: "show the logged-in user", resume: true, run: runWhoami},
	"watch":     {summary: "poll for new stories until interrupted", resume: true, run: runWatch},
	"log":       {summary: "show the end of the snooze log", run: runLog},
}

// ErrUsage is returned for an unknown or missing command.
var ErrUsage = errors.New("usage")

// Run executes one snooze command.
func Run(ctx context.Context, opts Options) error {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}

	if len(opts.Args) == 0 {
		PrintUsage(opts.Stderr)
		return ErrUsage
	}
	name, args := opts.Args[0], opts.Args[1:]
	cmd, ok := commands[name]
	if !ok {
		PrintUsage(opts.Stderr)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, name)
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, closeLog, err := logging.New(logging.Options{Level: cfg.LogLevel, Path: cfg.LogPath()})
	if err != nil {
		fmt.Fprintf(opts.Stderr, "snooze: logging disabled: %v\n", err)
		logger = zerolog.Nop()
	}
	defer func() { _ = closeLog() }()
	logger = logger.With().Str("command", name).Logger()
	ctx = logger.WithContext(ctx)

	client, err := hns.NewClient(cfg.BaseURL, hns.WithTimeout(cfg.Timeout), hns.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("init api client: %w", err)
	}

	e := &env{
		cfg:     cfg,
		client:  client,
		session: session.New(client, credentials.File{Path: cfg.CredentialsPath}),
		stories: state.NewStoryList(client, cfg.PageSize),
		stdin:   opts.Stdin,
		out:     opts.Stdout,
		errOut:  opts.Stderr,
		styles:  newStyles(opts.Stdout),
	}
	if cmd.resume {
		e.session.EstablishFromStoredCredentials(ctx)
	}

	if err := cmd.run(ctx, e, args); err != nil {
		logger.Error().Err(err).Msg("command failed")
		return err
	}
	return nil
}

// PrintUsage writes the command overview.
func PrintUsage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("usage: snooze [--config PATH] <command> [flags]\n\ncommands:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "  %-10s %s\n", name, commands[name].summary)
	}
	fmt.Fprint(w, b.String())
}

// Describe turns an error into the message shown to the user.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, state.ErrNoUser):
		return "not logged in; run `snooze login` first"
	case errors.Is(err, hns.ErrUnauthorized):
		return "not authorized; please log in again"
	case errors.Is(err, hns.ErrConflict):
		return "that username is already taken; choose a different one"
	case errors.Is(err, hns.ErrNotFound):
		return "not found: " + err.Error()
	case errors.Is(err, state.ErrFavoritePending):
		return "a favorite change for that story is still in progress"
	case hns.Retryable(err):
		return "the story service could not be reached; try again (" + err.Error() + ")"
	default:
		return err.Error()
	}
}
