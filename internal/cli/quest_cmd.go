package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/traitquest/traitquest/internal/cli/formatter"
	"github.com/traitquest/traitquest/internal/domain"
	"go.uber.org/zap"
)

var errQuestAborted = errors.New("quest abandoned")

func newMapCmd(app *App) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Show the world map and region status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAuth(cmd.Context(), app); err != nil {
				return err
			}
			return printMap(cmd, app, refresh)
		},
	}
	cmd.Flags().BoolVarP(&refresh, "refresh", "r", false, "ignore the cached map")
	return cmd
}

func newQuestCmd(app *App, opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "quest <id>",
		Short: "Enter a region and answer its questionnaire",
		Long: "Start a quest in one of the regions: mbti, bigfive, disc, enneagram, gallup.\n" +
			"On a terminal the quest runs full screen; with --plain or piped input it\n" +
			"runs line by line.",
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

			access := app.Regions.CheckAccess(cmd.Context(), string(questID))
			if !access.CanEnter {
				msg := access.Message
				if msg == "" {
					msg = "region is locked"
				}
				return fmt.Errorf("cannot enter %s: %s", questID.DisplayName(), msg)
			}

			if !opts.plain && app.interactive() {
				return runTUI(app, questID)
			}
			return runPlainQuest(cmd.Context(), app, cmd.OutOrStdout(), app.stdin(), questID)
		},
	}
}

func questIDStrings() []string {
	ids := domain.AllQuests()
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

// runPlainQuest walks a quest over the REST endpoints, one prompt per line.
func runPlainQuest(ctx context.Context, app *App, out io.Writer, in io.Reader, questID domain.QuestID) error {
	stop := formatter.StartSpinner(out, "Entering "+questID.DisplayName()+"...")
	resp, err := app.API.StartQuest(ctx, questID)
	stop()
	if err != nil {
		return fmt.Errorf("starting quest: %w", err)
	}

	fmt.Fprintln(out, formatter.Header(questID.DisplayName()))
	scanner := bufio.NewScanner(in)
	step := 0

	for !resp.IsCompleted {
		if resp.Narrative != "" {
			fmt.Fprintln(out, formatter.Narrative(resp.Narrative))
		}
		if resp.Question == nil {
			return errors.New("quest service sent no question")
		}
		step++
		fmt.Fprintf(out, "\n%s\n%s", formatter.Dim(fmt.Sprintf("Step %d", step)), formatter.FormatQuestion(resp.Question))

		answer, err := promptAnswer(out, scanner, resp.Question)
		if err != nil {
			return err
		}

		stop := formatter.StartSpinner(out, "The guide ponders...")
		resp, err = app.API.Interact(ctx, domain.InteractRequest{
			SessionID: resp.SessionID,
			QuestID:   questID,
			Answer:    answer,
		})
		stop()
		if err != nil {
			return fmt.Errorf("submitting answer: %w", err)
		}
	}

	if resp.Narrative != "" {
		fmt.Fprintln(out, formatter.Narrative(resp.Narrative))
	}
	fmt.Fprintln(out, formatter.StyleGreen.Render("✔ Quest complete."))

	if err := app.Regions.FetchRegions(ctx, true); err != nil {
		app.logger().Warn("refreshing map after quest", zap.Error(err))
	}
	return nil
}

// promptAnswer reads lines until one resolves to an answer.
func promptAnswer(out io.Writer, scanner *bufio.Scanner, q *domain.Question) (string, error) {
	for {
		fmt.Fprint(out, formatter.StyleHeader.Render("> "))
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", fmt.Errorf("reading answer: %w", err)
			}
			return "", errQuestAborted
		}
		answer, ok := resolveAnswer(q, scanner.Text())
		if ok {
			return answer, nil
		}
		if q.IsFreeText() {
			fmt.Fprintln(out, formatter.Dim("Say something, traveller."))
		} else {
			fmt.Fprintln(out, formatter.Dim(fmt.Sprintf("Choose 1-%d.", len(q.Options))))
		}
	}
}

// resolveAnswer maps user input to the answer sent to the quest service:
// the option id for choice questions (by number or id), the trimmed text
// otherwise.
func resolveAnswer(q *domain.Question, input string) (string, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", false
	}
	if q.IsFreeText() {
		return input, true
	}
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(q.Options) {
		return q.Options[n-1].ID, true
	}
	for _, o := range q.Options {
		if strings.EqualFold(o.ID, input) {
			return o.ID, true
		}
	}
	return "", false
}
