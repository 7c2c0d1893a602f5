package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/traitquest/traitquest/internal/cli/formatter"
	"github.com/traitquest/traitquest/internal/domain"
	"golang.org/x/sync/errgroup"
)

func newLoginCmd(app *App) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a Google ID token",
		Long: "Exchange a Google ID token for a TraitQuest session. The session " +
			"token is stored locally and reused by later commands.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" && app.interactive() {
				form := huh.NewForm(huh.NewGroup(
					huh.NewInput().
						Title("Google ID token").
						Description("Paste the credential from the sign-in page.").
						EchoMode(huh.EchoModePassword).
						Value(&token).
						Validate(func(s string) error {
							if strings.TrimSpace(s) == "" {
								return errors.New("token is required")
							}
							return nil
						}),
				)).WithTheme(questHuhTheme())
				if err := form.Run(); err != nil {
					return err
				}
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return errors.New("a Google ID token is required (--token)")
			}

			resp, err := app.API.Login(cmd.Context(), token)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			if err := app.Auth.Login(cmd.Context(), resp.AccessToken, resp.User()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s %s\n",
				formatter.Bold(resp.DisplayName),
				formatter.Dim(fmt.Sprintf("(Lv.%d)", resp.Level)))
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Google ID token")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Auth.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in hero",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAuth(cmd.Context(), app); err != nil {
				return err
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error { return app.Auth.FetchUser(ctx, app.API) })
			g.Go(func() error { return app.Regions.FetchRegions(ctx, false) })
			if err := g.Wait(); err != nil {
				return err
			}

			var expires time.Time
			if claims, err := app.Auth.Claims(); err == nil && claims.ExpiresAt != nil {
				expires = claims.ExpiresAt.Time
			}

			out := cmd.OutOrStdout()
			fmt.Fprint(out, formatter.FormatUser(app.Auth.User(), expires, app.now()))

			conquered := 0
			all := app.Regions.Regions()
			for _, r := range all {
				if r.Status == domain.RegionConquered {
					conquered++
				}
			}
			fmt.Fprintf(out, "Regions %s\n", formatter.Dim(fmt.Sprintf("%d/%d conquered", conquered, len(all))))
			return nil
		},
	}
}
