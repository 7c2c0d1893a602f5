package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/traitquest/traitquest/internal/apiclient"
	"github.com/traitquest/traitquest/internal/auth"
	"github.com/traitquest/traitquest/internal/channel"
	"github.com/traitquest/traitquest/internal/cli"
	"github.com/traitquest/traitquest/internal/config"
	"github.com/traitquest/traitquest/internal/db"
	"github.com/traitquest/traitquest/internal/observability"
	"github.com/traitquest/traitquest/internal/quest"
	"github.com/traitquest/traitquest/internal/regions"
	"github.com/traitquest/traitquest/internal/repository"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return err
	}

	interactive := func() bool {
		return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	}

	// The TUI owns the terminal; only line mode logs to stderr.
	logOpts := observability.LoggerOptions{
		Level:   cfg.LogLevel,
		Verbose: cli.VerboseRequested(os.Args[1:]),
	}
	if interactive() {
		logOpts.File = cfg.LogFile
	}
	logger, err := observability.NewLogger(logOpts)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	ctx := context.Background()
	authStore, err := auth.NewStore(ctx, repository.NewSQLiteKeyValueRepo(database), logger)
	if err != nil {
		return err
	}

	nav := cli.NewNavigator(os.Stderr)
	api := apiclient.New(cfg.APIBaseURL, authStore,
		apiclient.WithTimeout(cfg.HTTPTimeout),
		apiclient.WithObserver(observability.NewLogObserver(logger)),
		apiclient.WithUnauthorizedHandler(func(ctx context.Context) {
			authStore.LogoutAndRedirect(ctx, nav)
		}),
	)

	ch := channel.New(cfg.WSBaseURL,
		channel.WithLogger(logger),
		channel.WithConnectTimeout(cfg.ConnectTimeout),
		channel.WithTokenInQuery(cfg.TokenInQuery),
	)
	questStore := quest.NewStore(ch,
		quest.WithLogger(logger),
		quest.WithSubmitTimeout(cfg.SubmitTimeout),
	)
	defer questStore.Close()
	questStore.SetOnLevelUp(authStore.ApplyLevelUp)

	app := &cli.App{
		Logger:        logger,
		API:           api,
		Auth:          authStore,
		Regions:       regions.NewStore(api, logger),
		Quest:         questStore,
		Nav:           nav,
		IsInteractive: interactive,
	}

	return cli.NewRootCmd(app).ExecuteContext(ctx)
}
