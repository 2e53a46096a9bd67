package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"subflow/internal/batch"
	"subflow/internal/config"
	"subflow/internal/logging"
	"subflow/internal/notifications"
	"subflow/internal/preflight"
	"subflow/internal/services"
)

type runFlags struct {
	videosDir     string
	outputDir     string
	workers       int
	skipPreflight bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process every video in the videos directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := flags.apply(cfg); err != nil {
				return err
			}
			return runBatch(cmd, ctx, cfg, flags.skipPreflight, func(o *batch.Orchestrator) (batch.Summary, error) {
				return o.Run(cmd.Context(), cfg.Paths.VideosDirectory, cfg.Paths.OutputDirectory)
			})
		},
	}

	cmd.Flags().StringVar(&flags.videosDir, "videos", "", "Override paths.videos_directory")
	cmd.Flags().StringVarP(&flags.outputDir, "output", "o", "", "Override paths.output_directory")
	cmd.Flags().IntVarP(&flags.workers, "workers", "w", 0, "Override workflow.video_workers")
	cmd.Flags().BoolVar(&flags.skipPreflight, "skip-preflight", false, "Start without checking directories and binaries")
	return cmd
}

func newVideoCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "video <file>",
		Short: "Process a single video file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := flags.apply(cfg); err != nil {
				return err
			}
			videoPath, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve video path: %w", err)
			}
			return runBatch(cmd, ctx, cfg, flags.skipPreflight, func(o *batch.Orchestrator) (batch.Summary, error) {
				return o.RunVideo(cmd.Context(), videoPath, cfg.Paths.OutputDirectory)
			})
		},
	}

	cmd.Flags().StringVarP(&flags.outputDir, "output", "o", "", "Override paths.output_directory")
	cmd.Flags().BoolVar(&flags.skipPreflight, "skip-preflight", false, "Start without checking directories and binaries")
	return cmd
}

func (f runFlags) apply(cfg *config.Config) error {
	if dir := strings.TrimSpace(f.videosDir); dir != "" {
		expanded, err := config.ExpandPath(dir)
		if err != nil {
			return fmt.Errorf("resolve --videos: %w", err)
		}
		cfg.Paths.VideosDirectory = expanded
	}
	if dir := strings.TrimSpace(f.outputDir); dir != "" {
		expanded, err := config.ExpandPath(dir)
		if err != nil {
			return fmt.Errorf("resolve --output: %w", err)
		}
		cfg.Paths.OutputDirectory = expanded
	}
	if f.workers < 0 {
		return services.Wrap(services.ErrConfiguration, "cli", "flags", "--workers must be positive", nil)
	}
	if f.workers > 0 {
		cfg.Workflow.VideoWorkers = f.workers
	}
	if cfg.Paths.VideosDirectory == cfg.Paths.OutputDirectory {
		return services.Wrap(services.ErrConfiguration, "cli", "flags", "videos and output directories must differ", nil)
	}
	return nil
}

func runBatch(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, skipPreflight bool, run func(*batch.Orchestrator) (batch.Summary, error)) error {
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}
	if !skipPreflight {
		if err := checkBeforeRun(cmd.ErrOrStderr(), cfg); err != nil {
			return err
		}
	}

	orchestrator, closeLedger, err := newOrchestrator(cfg, logger)
	if err != nil {
		return err
	}
	defer closeLedger()

	notifier := notifications.NewService(cfg)
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), notifyTimeout)
	defer cancel()

	summary, err := run(orchestrator)
	if err != nil {
		logging.ErrorWithContext(logger, "run could not start", "run_start_failed", logging.ErrorAttrs(err)...)
		if notifyErr := notifier.NotifyError(notifyCtx, err, "run"); notifyErr != nil {
			warnNotifyFailed(logger, notifyErr)
		}
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), renderSummary(summary))
	if notifyErr := notifier.NotifyBatchCompleted(notifyCtx, reportFor(summary)); notifyErr != nil {
		warnNotifyFailed(logger, notifyErr)
	}
	return summary.Err()
}

const notifyTimeout = 30 * time.Second

func reportFor(summary batch.Summary) notifications.Report {
	succeeded, partial, failed := summary.Counts()
	return notifications.Report{
		RunID:      summary.RunID,
		Outcome:    summary.Outcome(),
		Succeeded:  succeeded,
		Partial:    partial,
		Failed:     failed,
		NotStarted: summary.NotStarted,
		Duration:   summary.Duration,
		OutputDir:  summary.OutputDir,
	}
}

func warnNotifyFailed(logger *slog.Logger, err error) {
	logging.WarnWithContext(logger, "notification failed", "notification_failed",
		logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		logging.String(logging.FieldImpact, "batch outcome was not delivered"),
		logging.Error(err),
	)
}

// checkBeforeRun runs the local preflight and refuses to start when a
// required check fails.
func checkBeforeRun(out io.Writer, cfg *config.Config) error {
	failed := preflight.Failed(preflight.RunLocal(cfg))
	if len(failed) == 0 {
		return nil
	}
	colorize := shouldColorize(out)
	names := make([]string, 0, len(failed))
	for _, result := range failed {
		fmt.Fprintln(out, renderStatusLine(result.Name, statusError, result.Detail, colorize))
		names = append(names, result.Name)
	}
	return services.Wrap(services.ErrConfiguration, "cli", "preflight",
		"preflight failed: "+strings.Join(names, ", "), nil)
}
