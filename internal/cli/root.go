package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/traitquest/traitquest/internal/auth"
	"github.com/traitquest/traitquest/internal/cli/formatter"
	"github.com/traitquest/traitquest/internal/domain"
	"github.com/traitquest/traitquest/internal/observability"
	"github.com/traitquest/traitquest/internal/regions"
	"go.uber.org/zap"
)

var (
	errNotLoggedIn    = errors.New("not logged in: run `traitquest login` first")
	errSessionExpired = errors.New("session expired: run `traitquest login` again")
)

// App holds the stores and clients used by CLI commands and the TUI.
type App struct {
	Logger  *zap.Logger
	API     API
	Auth    *auth.Store
	Regions *regions.Store
	Quest   QuestSession
	Nav     *Navigator

	// IsInteractive reports whether stdin is a terminal. Nil means never.
	IsInteractive func() bool

	// In feeds line-mode prompts. Defaults to os.Stdin.
	In io.Reader

	// Now is the clock used for token expiry. Defaults to time.Now.
	Now func() time.Time
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *App) logger() *zap.Logger {
	return observability.OrNop(a.Logger)
}

func (a *App) interactive() bool {
	return a.IsInteractive != nil && a.IsInteractive()
}

func (a *App) stdin() io.Reader {
	if a.In != nil {
		return a.In
	}
	return os.Stdin
}

// globalOptions are the flags every command accepts.
type globalOptions struct {
	plain   bool
	verbose bool
}

func globalFlags(opts *globalOptions) *pflag.FlagSet {
	fs := pflag.NewFlagSet("global", pflag.ContinueOnError)
	fs.BoolVar(&opts.plain, "plain", false, "line-mode output even on a terminal")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	return fs
}

// VerboseRequested scans args for the global --verbose flag. The logger is
// built before cobra parses the command line, so main asks early.
func VerboseRequested(args []string) bool {
	opts := &globalOptions{}
	fs := globalFlags(opts)
	fs.ParseErrorsAllowlist.UnknownFlags = true
	fs.Usage = func() {}
	fs.SetOutput(io.Discard)
	_ = fs.Parse(args)
	return opts.verbose
}

// NewRootCmd creates the top-level "traitquest" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "traitquest",
		Short:         "Personality quests in your terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAuth(cmd.Context(), app); err != nil {
				return err
			}
			if !opts.plain && app.interactive() {
				return runTUI(app, "")
			}
			return printMap(cmd, app, false)
		},
	}
	root.PersistentFlags().AddFlagSet(globalFlags(opts))

	root.AddCommand(
		newLoginCmd(app),
		newLogoutCmd(app),
		newWhoamiCmd(app),
		newMapCmd(app),
		newQuestCmd(app, opts),
		newReportCmd(app, opts),
	)

	return root
}

// requireAuth refuses to continue without a usable token. An expired token
// is dropped so the next run starts clean.
func requireAuth(ctx context.Context, app *App) error {
	if !app.Auth.IsAuthenticated() {
		return errNotLoggedIn
	}
	if app.Auth.Expired(app.now()) {
		_ = app.Auth.Logout(ctx)
		return errSessionExpired
	}
	return nil
}

func printMap(cmd *cobra.Command, app *App, force bool) error {
	if err := app.Regions.FetchRegions(cmd.Context(), force); err != nil {
		return fmt.Errorf("loading map: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), formatter.FormatRegions(app.Regions.Regions()))
	return nil
}

// runTUI runs the full-screen client. With a quest id the quest view opens
// on top of the map.
func runTUI(app *App, questID domain.QuestID) error {
	return runProgram(app, func(state *SharedState) appModel {
		return newAppModel(state, questID)
	})
}

// runReportTUI opens a stored report on top of the map.
func runReportTUI(app *App, region domain.Region, rep *domain.QuestReport) error {
	return runProgram(app, func(state *SharedState) appModel {
		m := newAppModel(state, "")
		m.viewStack = append(m.viewStack, newReportView(state, region, rep))
		return m
	})
}

func runProgram(app *App, build func(*SharedState) appModel) error {
	state := newSharedState(app)
	state.Animate = true
	state.TypeDelay = defaultTypeDelay

	p := tea.NewProgram(build(state), tea.WithAltScreen())
	state.send = func(msg tea.Msg) { go p.Send(msg) }

	if app.Nav != nil {
		detach := app.Nav.Attach(state.send)
		defer detach()
	}
	defer app.Quest.ResetQuest()

	_, err := p.Run()
	return err
}
