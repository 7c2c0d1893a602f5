package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/traitquest/traitquest/internal/apiclient"
	"github.com/traitquest/traitquest/internal/cli/formatter"
	"github.com/traitquest/traitquest/internal/domain"
	"go.uber.org/zap"
)

const plainReportWidth = 80

func newReportCmd(app *App, opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "report <id>",
		Short:     "Show the latest report of a conquered region",
		Args:      cobra.ExactArgs(1),
		ValidArgs: questIDStrings(),
		RunE: func(cmd *cobra.Command, args []string) error {
			questID, err := domain.ParseQuestID(args[0])
			if err != nil {
				return err
			}
			if err := requireAuth(cmd.Context(), app); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			stop := formatter.StartSpinner(out, "Unrolling the chronicle...")
			rep, err := app.API.Report(cmd.Context(), questID)
			stop()
			if err != nil {
				var se *apiclient.StatusError
				if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
					return fmt.Errorf("no report for %s yet: finish its quest first", questID.DisplayName())
				}
				return fmt.Errorf("loading report: %w", err)
			}

			if !opts.plain && app.interactive() {
				return runReportTUI(app, reportRegion(cmd.Context(), app, questID), rep)
			}
			fmt.Fprintln(out, formatter.Header(questID.DisplayName()+" report"))
			fmt.Fprint(out, formatter.FormatReport(rep, plainReportWidth))
			return nil
		},
	}
}

// reportRegion names the region a report belongs to. The map is loaded
// from cache when possible; without it the quest name stands in.
func reportRegion(ctx context.Context, app *App, questID domain.QuestID) domain.Region {
	if err := app.Regions.FetchRegions(ctx, false); err != nil {
		app.logger().Warn("loading map for report title", zap.Error(err))
	}
	if r, ok := app.Regions.Region(string(questID)); ok {
		return r
	}
	return domain.Region{ID: string(questID), Name: questID.DisplayName(), Status: domain.RegionConquered}
}
