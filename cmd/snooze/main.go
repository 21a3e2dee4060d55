package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/five82/snooze/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	flags := pflag.NewFlagSet("snooze", pflag.ContinueOnError)
	flags.SetInterspersed(false)
	configPath := flags.String("config", "", "override config path (optional)")
	help := flags.BoolP("help", "h", false, "show usage")
	flags.Usage = func() { app.PrintUsage(os.Stderr) }
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *help {
		app.PrintUsage(os.Stdout)
		return 0
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err := app.Run(ctx, app.Options{ConfigPath: *configPath, Args: flags.Args()})
	switch {
	case err == nil:
		return 0
	case errors.Is(err, app.ErrUsage), errors.Is(err, pflag.ErrHelp):
		return 2
	default:
		fmt.Fprintf(os.Stderr, "snooze: %s\n", app.Describe(err))
		return 1
	}
}
