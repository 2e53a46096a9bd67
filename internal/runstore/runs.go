package runstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"subflow/internal/language"
	"subflow/internal/pipeline"
	"subflow/internal/services"
)

// ErrRunNotFound is returned when no run matches an identifier.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded batch invocation.
type Run struct {
	ID         string
	VideosDir  string
	OutputDir  string
	StartedAt  time.Time
	FinishedAt *time.Time
	Outcome    string
	Videos     int
	Failed     int
	Partial    int
}

// Video is one recorded video outcome.
type Video struct {
	Name         string
	Path         string
	Stage        string
	FailedStep   string
	ErrorKind    string
	ErrorMessage string
	Duration     time.Duration
	Languages    []Language
}

// Language is one recorded language outcome for a video.
type Language struct {
	Code         string
	Original     bool
	Translated   bool
	Subtitled    bool
	Burned       bool
	FailedStep   string
	ErrorKind    string
	ErrorMessage string
}

// BeginRun records the start of a run.
func (s *Store) BeginRun(ctx context.Context, runID, videosDir, outputDir string, started time.Time) error {
	err := s.execWithRetry(ctx,
		`INSERT INTO runs (id, videos_dir, output_dir, started_at) VALUES (?, ?, ?, ?)`,
		runID, videosDir, outputDir, formatTime(started),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stamps a run with its outcome.
func (s *Store) FinishRun(ctx context.Context, runID, outcome string, finished time.Time) error {
	err := s.execWithRetry(ctx,
		`UPDATE runs SET finished_at = ?, outcome = ? WHERE id = ?`,
		formatTime(finished), outcome, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// RecordVideo stores the outcome of one video and its languages, replacing
// any earlier record for the same path in the run.
func (s *Store) RecordVideo(ctx context.Context, runID string, result pipeline.Result) error {
	return retryOnBusy(ctx, func() error {
		return s.recordVideoTx(ctx, runID, result)
	})
}

func (s *Store) recordVideoTx(ctx context.Context, runID string, result pipeline.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM videos WHERE run_id = ? AND video_path = ?`, runID, result.Job.VideoPath); err != nil {
		return fmt.Errorf("clear video record: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO videos (
            run_id, video_name, video_path, stage, failed_step,
            error_kind, error_message, duration_ms, recorded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		result.Job.VideoName,
		result.Job.VideoPath,
		string(result.Stage),
		nullableString(result.FailedStep),
		nullableString(string(services.KindOf(result.Err))),
		nullableString(errorMessage(result.Err)),
		result.Duration.Milliseconds(),
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("insert video: %w", err)
	}
	videoID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}

	codes := make([]language.Code, 0, len(result.Languages))
	for code := range result.Languages {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		lang := result.Languages[code]
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO video_languages (
                video_id, code, original, translated, subtitled, burned,
                failed_step, error_kind, error_message
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			videoID,
			string(code),
			boolToInt(lang.Original),
			boolToInt(lang.Translated),
			boolToInt(lang.Subtitled),
			boolToInt(lang.Burned),
			nullableString(lang.FailedStep),
			nullableString(string(services.KindOf(lang.Err))),
			nullableString(errorMessage(lang.Err)),
		); err != nil {
			return fmt.Errorf("insert language %s: %w", code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit video record: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT r.id, r.videos_dir, r.output_dir, r.started_at, r.finished_at, r.outcome,
            COUNT(v.id),
            COALESCE(SUM(CASE WHEN v.stage = 'failed' THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN v.stage != 'failed' AND EXISTS (
                SELECT 1 FROM video_languages l WHERE l.video_id = v.id AND l.error_kind IS NOT NULL
            ) THEN 1 ELSE 0 END), 0)
        FROM runs r
        LEFT JOIN videos v ON v.run_id = r.id
        GROUP BY r.id
        ORDER BY r.started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run         Run
			startedRaw  string
			finishedRaw sql.NullString
			outcome     sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.VideosDir, &run.OutputDir, &startedRaw, &finishedRaw, &outcome,
			&run.Videos, &run.Failed, &run.Partial); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if t, err := parseTimeString(startedRaw); err == nil {
			run.StartedAt = t
		}
		if finishedRaw.Valid {
			if t, err := parseTimeString(finishedRaw.String); err == nil {
				run.FinishedAt = &t
			}
		}
		run.Outcome = outcome.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ResolveRunID expands a unique run ID prefix into the full ID.
func (s *Store) ResolveRunID(ctx context.Context, prefix string) (string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs WHERE id LIKE ? || '%' LIMIT 2`, prefix)
	if err != nil {
		return "", fmt.Errorf("resolve run: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("run prefix %q is ambiguous", prefix)
	}
}

// ListVideos returns the recorded videos of a run in recording order.
func (s *Store) ListVideos(ctx context.Context, runID string) ([]Video, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, video_name, video_path, stage, failed_step, error_kind, error_message, duration_ms
        FROM videos WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	var (
		videos []Video
		ids    []int64
	)
	for rows.Next() {
		var (
			id                        int64
			video                     Video
			failedStep, kind, message sql.NullString
			durationMS                int64
		)
		if err := rows.Scan(&id, &video.Name, &video.Path, &video.Stage, &failedStep, &kind, &message, &durationMS); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan video: %w", err)
		}
		video.FailedStep = failedStep.String
		video.ErrorKind = kind.String
		video.ErrorMessage = message.String
		video.Duration = time.Duration(durationMS) * time.Millisecond
		videos = append(videos, video)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i, id := range ids {
		langs, err := s.listLanguages(ctx, id)
		if err != nil {
			return nil, err
		}
		videos[i].Languages = langs
	}
	return videos, nil
}

func (s *Store) listLanguages(ctx context.Context, videoID int64) ([]Language, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, original, translated, subtitled, burned, failed_step, error_kind, error_message
        FROM video_languages WHERE video_id = ? ORDER BY original DESC, code`, videoID)
	if err != nil {
		return nil, fmt.Errorf("list languages: %w", err)
	}
	defer rows.Close()
	var langs []Language
	for rows.Next() {
		var (
			lang                                   Language
			original, translated, subtitled, burned int
			failedStep, kind, message              sql.NullString
		)
		if err := rows.Scan(&lang.Code, &original, &translated, &subtitled, &burned, &failedStep, &kind, &message); err != nil {
			return nil, fmt.Errorf("scan language: %w", err)
		}
		lang.Original = original != 0
		lang.Translated = translated != 0
		lang.Subtitled = subtitled != 0
		lang.Burned = burned != 0
		lang.FailedStep = failedStep.String
		lang.ErrorKind = kind.String
		lang.ErrorMessage = message.String
		langs = append(langs, lang)
	}
	return langs, rows.Err()
}

// Prune deletes all but the newest keep runs.
func (s *Store) Prune(ctx context.Context, keep int) error {
	if keep < 0 {
		keep = 0
	}
	return s.execWithRetry(ctx,
		`DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY started_at DESC LIMIT ?)`, keep)
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
