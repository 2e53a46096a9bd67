package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"subflow/internal/runstore"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var prune int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded runs, or the videos of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := runstore.Open(cfg.LedgerPath())
			if err != nil {
				return fmt.Errorf("open run ledger: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if cmd.Flags().Changed("prune") {
				if prune < 0 {
					return errors.New("--prune must not be negative")
				}
				if err := store.Prune(cmd.Context(), prune); err != nil {
					return fmt.Errorf("prune run ledger: %w", err)
				}
				fmt.Fprintf(out, "Kept the %d most recent runs\n", prune)
				return nil
			}

			if len(args) == 1 {
				runID, err := store.ResolveRunID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				videos, err := store.ListVideos(cmd.Context(), runID)
				if err != nil {
					return fmt.Errorf("list videos: %w", err)
				}
				fmt.Fprintf(out, "Run %s\n", runID)
				if len(videos) == 0 {
					fmt.Fprintln(out, "No videos recorded")
					return nil
				}
				fmt.Fprintln(out, renderVideoTable(videos))
				return nil
			}

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderRunTable(runs))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list")
	cmd.Flags().IntVar(&prune, "prune", 0, "Delete all but the N most recent runs")
	return cmd
}

func renderRunTable(runs []runstore.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		outcome := run.Outcome
		if run.FinishedAt == nil {
			outcome = "in progress"
		}
		rows = append(rows, []string{
			shortID(run.ID),
			humanize.Time(run.StartedAt),
			dashIfEmpty(outcome),
			strconv.Itoa(run.Videos),
			strconv.Itoa(run.Partial),
			strconv.Itoa(run.Failed),
			run.OutputDir,
		})
	}
	return renderTable(
		[]string{"Run", "Started", "Outcome", "Videos", "Partial", "Failed", "Output"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	)
}

func renderVideoTable(videos []runstore.Video) string {
	rows := make([][]string, 0, len(videos))
	for _, video := range videos {
		failure := "-"
		if video.FailedStep != "" {
			failure = fmt.Sprintf("%s (%s)", video.FailedStep, dashIfEmpty(video.ErrorKind))
		}
		rows = append(rows, []string{
			video.Name,
			video.Stage,
			failure,
			languageStates(video.Languages),
			formatDuration(video.Duration),
		})
	}
	return renderTable(
		[]string{"Video", "Stage", "Failure", "Languages", "Duration"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	)
}

// languageStates renders each language as code=state, where state is the
// furthest step reached or the step that failed.
func languageStates(languages []runstore.Language) string {
	if len(languages) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(languages))
	for _, lang := range languages {
		var state string
		switch {
		case lang.FailedStep != "":
			state = "failed:" + lang.FailedStep
		case lang.Burned:
			state = "burned"
		case lang.Subtitled:
			state = "subtitled"
		case lang.Translated:
			state = "translated"
		default:
			state = "pending"
		}
		code := lang.Code
		if lang.Original {
			code += "*"
		}
		parts = append(parts, code+"="+state)
	}
	return strings.Join(parts, " ")
}
