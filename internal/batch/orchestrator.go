package batch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"golang.org/x/sync/errgroup"

	"subflow/internal/config"
	"subflow/internal/logging"
	"subflow/internal/pipeline"
	"subflow/internal/services"
)

// Runner executes single videos. *pipeline.Pipeline implements it.
type Runner interface {
	NewJob(videoPath, outputRoot string) (pipeline.Job, error)
	Run(ctx context.Context, job pipeline.Job) pipeline.Result
}

// Recorder persists run progress. Recording failures are logged and never
// fail the batch.
type Recorder interface {
	BeginRun(ctx context.Context, runID, videosDir, outputDir string, started time.Time) error
	RecordVideo(ctx context.Context, runID string, result pipeline.Result) error
	FinishRun(ctx context.Context, runID, outcome string, finished time.Time) error
}

// Options bounds batch behaviour.
type Options struct {
	VideoWorkers int
	SkipNonVideo bool
}

// Orchestrator runs batches of videos.
type Orchestrator struct {
	runner   Runner
	recorder Recorder
	opts     Options
	logger   *slog.Logger
}

const recordTimeout = 10 * time.Second

// magic bytes needed by filetype to recognise every container it supports.
const headerSize = 262

// New returns an Orchestrator driving runner.
func New(runner Runner, opts Options, logger *slog.Logger) *Orchestrator {
	if opts.VideoWorkers < 1 {
		opts.VideoWorkers = 1
	}
	return &Orchestrator{
		runner: runner,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "batch"),
	}
}

// WithRecorder attaches a run ledger.
func (o *Orchestrator) WithRecorder(recorder Recorder) {
	o.recorder = recorder
}

type plannedJob struct {
	job pipeline.Job
	// err is set when the entry could not become a runnable job.
	err error
}

// Run processes every entry directly under videosDir. The returned error is
// non-nil only when the run could not start; per-video failures are reported
// through the Summary.
func (o *Orchestrator) Run(ctx context.Context, videosDir, outputDir string) (Summary, error) {
	entries, err := os.ReadDir(videosDir)
	if err != nil {
		return Summary{}, services.Wrap(services.ErrIO, "batch", "list videos", videosDir, err)
	}
	return o.execute(ctx, videosDir, outputDir, func() ([]plannedJob, []Skip) {
		return o.plan(videosDir, outputDir, entries)
	})
}

// RunVideo processes a single video file as a one-job batch.
func (o *Orchestrator) RunVideo(ctx context.Context, videoPath, outputDir string) (Summary, error) {
	info, err := os.Stat(videoPath)
	if err != nil {
		return Summary{}, services.Wrap(services.ErrIO, "batch", "stat video", videoPath, err)
	}
	if info.IsDir() {
		return Summary{}, services.Wrap(services.ErrIO, "batch", "stat video", fmt.Sprintf("%s is a directory", videoPath), nil)
	}
	return o.execute(ctx, filepath.Dir(videoPath), outputDir, func() ([]plannedJob, []Skip) {
		job, err := o.runner.NewJob(videoPath, outputDir)
		if err != nil {
			job = pipeline.Job{VideoPath: videoPath, VideoName: pipeline.VideoName(videoPath)}
		}
		return []plannedJob{{job: job, err: err}}, nil
	})
}

func (o *Orchestrator) execute(ctx context.Context, videosDir, outputDir string, plan func() ([]plannedJob, []Skip)) (Summary, error) {
	if o.runner == nil {
		return Summary{}, services.Wrap(services.ErrConfiguration, "batch", "init", "pipeline runner required", nil)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return Summary{}, services.Wrap(services.ErrIO, "batch", "create output directory", outputDir, err)
	}
	lock := flock.New(config.LockPath(outputDir))
	locked, err := lock.TryLock()
	if err != nil {
		return Summary{}, services.Wrap(services.ErrIO, "batch", "lock output directory", outputDir, err)
	}
	if !locked {
		return Summary{}, services.Wrap(services.ErrIO, "batch", "lock output directory", "another subflow run is using "+outputDir, nil)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			o.logger.Warn("failed to release output lock", logging.Error(err))
		}
	}()

	summary := Summary{
		RunID:     uuid.NewString(),
		VideosDir: videosDir,
		OutputDir: outputDir,
		Started:   time.Now(),
	}
	ctx = services.WithRunID(ctx, summary.RunID)
	logger := logging.WithContext(ctx, o.logger)

	jobs, skipped := plan()
	summary.Skipped = skipped
	for _, skip := range skipped {
		logger.Info("entry skipped",
			logging.String(logging.FieldEventType, "entry_skipped"),
			logging.String("entry", skip.Name),
			logging.String("reason", skip.Reason),
		)
	}
	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.String("videos_dir", videosDir),
		logging.String("output_dir", outputDir),
		logging.Int("videos", len(jobs)),
		logging.Int("workers", o.opts.VideoWorkers),
	)
	o.record(logger, func(ctx context.Context) error {
		return o.recorder.BeginRun(ctx, summary.RunID, videosDir, outputDir, summary.Started)
	})

	results := make([]pipeline.Result, len(jobs))
	scheduled := 0
	var group errgroup.Group
	group.SetLimit(o.opts.VideoWorkers)
	for i, planned := range jobs {
		if ctx.Err() != nil {
			break
		}
		scheduled++
		group.Go(func() error {
			results[i] = o.runOne(ctx, logger, summary.RunID, planned, i+1, len(jobs))
			return nil
		})
	}
	_ = group.Wait()

	summary.Results = results[:scheduled]
	summary.NotStarted = len(jobs) - scheduled
	summary.Interrupted = ctx.Err() != nil
	summary.Duration = time.Since(summary.Started)

	o.record(logger, func(ctx context.Context) error {
		return o.recorder.FinishRun(ctx, summary.RunID, summary.Outcome(), time.Now())
	})
	succeeded, partial, failed := summary.Counts()
	logger.Info("batch finished",
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.String("outcome", summary.Outcome()),
		logging.Int("succeeded", succeeded),
		logging.Int("partial", partial),
		logging.Int("failed", failed),
		logging.Int("skipped", len(summary.Skipped)),
		logging.Int("not_started", summary.NotStarted),
		logging.Duration("duration", summary.Duration),
	)
	return summary, nil
}

func (o *Orchestrator) runOne(ctx context.Context, logger *slog.Logger, runID string, planned plannedJob, index, total int) pipeline.Result {
	var result pipeline.Result
	if planned.err != nil {
		result = pipeline.Result{
			Job:        planned.job,
			Stage:      pipeline.StageFailed,
			FailedStep: "plan",
			Err:        planned.err,
			Started:    time.Now(),
		}
		logging.ErrorWithContext(logger, "video not runnable", "video_failure",
			append(logging.ErrorAttrs(planned.err), logging.String(logging.FieldVideo, planned.job.VideoName))...)
	} else {
		logger.Info("video started",
			logging.String(logging.FieldVideo, planned.job.VideoName),
			logging.Int("index", index),
			logging.Int("count", total),
		)
		result = o.runner.Run(ctx, planned.job)
	}
	o.record(logger, func(ctx context.Context) error {
		return o.recorder.RecordVideo(ctx, runID, result)
	})
	return result
}

// record runs fn against the recorder, detached from cancellation so an
// interrupted run still lands in the ledger.
func (o *Orchestrator) record(logger *slog.Logger, fn func(context.Context) error) {
	if o.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		logging.WarnWithContext(logger, "run ledger update failed", "ledger_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "history for this run may be incomplete"),
		)
	}
}

// plan turns directory entries into jobs. Directories are skipped, non-video
// files are skipped when configured, and entries whose names map to an
// already claimed output directory become failed jobs.
func (o *Orchestrator) plan(videosDir, outputDir string, entries []os.DirEntry) ([]plannedJob, []Skip) {
	var (
		jobs    []plannedJob
		skipped []Skip
		claimed = make(map[string]string, len(entries))
	)
	absOutput, _ := filepath.Abs(outputDir)
	for _, entry := range entries {
		name := entry.Name()
		path := filepath.Join(videosDir, name)
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			if abs, _ := filepath.Abs(path); abs != absOutput {
				skipped = append(skipped, Skip{Name: name, Reason: "directory"})
			}
			continue
		}
		if err == nil && o.opts.SkipNonVideo && !looksLikeVideo(path) {
			skipped = append(skipped, Skip{Name: name, Reason: "not a video container"})
			continue
		}
		if strings.HasPrefix(name, ".") || pipeline.VideoName(name) == "" {
			skipped = append(skipped, Skip{Name: name, Reason: "hidden file"})
			continue
		}

		job, jobErr := o.runner.NewJob(path, outputDir)
		if err != nil {
			jobErr = services.Wrap(services.ErrIO, "batch", "stat video", path, err)
		}
		if jobErr != nil {
			jobs = append(jobs, plannedJob{job: pipeline.Job{VideoPath: path, VideoName: pipeline.VideoName(path)}, err: jobErr})
			continue
		}
		if previous, ok := claimed[job.OutputDir]; ok {
			jobs = append(jobs, plannedJob{job: job, err: services.Wrap(services.ErrIO, "batch", "plan",
				fmt.Sprintf("%s and %s share output directory %s", previous, name, job.OutputDir), nil)})
			continue
		}
		claimed[job.OutputDir] = name
		jobs = append(jobs, plannedJob{job: job})
	}
	return jobs, skipped
}

func looksLikeVideo(path string) bool {
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()
	head := make([]byte, headerSize)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return false
	}
	return filetype.IsVideo(head[:n])
}
