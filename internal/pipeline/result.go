package pipeline

import (
	"slices"
	"time"

	"subflow/internal/language"
)

// Stage is the furthest point a video reached.
type Stage string

const (
	StagePending           Stage = "pending"
	StageAudioExtracted    Stage = "audio_extracted"
	StageTranscribed       Stage = "transcribed"
	StageOriginalSubtitled Stage = "original_subtitled"
	StageTranslated        Stage = "translated"
	StageBurned            Stage = "burned"
	StageDone              Stage = "done"
	StageFailed            Stage = "failed"
)

// Step names used in logs, error details, and the run ledger.
const (
	StepAudioExtraction  = "audio_extraction"
	StepTranscription    = "transcription"
	StepOriginalSubtitle = "original_subtitle"
	StepTranslation      = "translation"
	StepSubtitle         = "subtitle"
	StepBurnIn           = "burn_in"
)

// LanguageResult records what happened to one language of a video.
type LanguageResult struct {
	Code         language.Code
	Original     bool
	SubtitlePath string
	OutputPath   string
	Translated   bool
	Subtitled    bool
	Burned       bool
	FailedStep   string
	Err          error
}

// Result is the outcome of running one video.
type Result struct {
	Job        Job
	Stage      Stage
	FailedStep string
	Err        error
	Languages  map[language.Code]LanguageResult
	Started    time.Time
	Duration   time.Duration
}

// Succeeded reports whether the video and every language completed.
func (r Result) Succeeded() bool {
	return r.Err == nil && len(r.FailedLanguages()) == 0
}

// Partial reports whether the video completed with at least one failed
// language.
func (r Result) Partial() bool {
	return r.Err == nil && len(r.FailedLanguages()) > 0
}

// FailedLanguages returns the sorted codes whose language work failed.
func (r Result) FailedLanguages() []language.Code {
	var failed []language.Code
	for code, lang := range r.Languages {
		if lang.Err != nil {
			failed = append(failed, code)
		}
	}
	slices.Sort(failed)
	return failed
}

// Rendered returns the sorted codes that produced a final video.
func (r Result) Rendered() []language.Code {
	var rendered []language.Code
	for code, lang := range r.Languages {
		if lang.Burned {
			rendered = append(rendered, code)
		}
	}
	slices.Sort(rendered)
	return rendered
}
