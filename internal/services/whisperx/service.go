package whisperx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"subflow/internal/logging"
	"subflow/internal/services"
	"subflow/internal/transcript"
)

// CommandRunner executes an external command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Service provides WhisperX transcription capabilities.
type Service struct {
	cfg           Config
	binary        string
	commandRunner CommandRunner
	logger        *slog.Logger
}

// NewService creates a WhisperX service with the given configuration.
func NewService(cfg Config) *Service {
	return &Service{cfg: cfg, binary: UVXCommand, logger: logging.NewNop()}
}

// WithLogger sets the logger used for transcript warnings.
func (s *Service) WithLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, "whisperx")
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner CommandRunner) {
	s.commandRunner = runner
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	if s.cfg.Model != "" {
		return s.cfg.Model
	}
	return DefaultModel
}

// Transcribe runs WhisperX on audioPath and returns its segments in order.
// WhisperX writes into a scratch directory beside the audio file which is
// removed afterwards.
func (s *Service) Transcribe(ctx context.Context, audioPath string) ([]transcript.Segment, error) {
	if strings.TrimSpace(audioPath) == "" {
		return nil, services.Wrap(services.ErrTranscription, "transcription", "whisperx", "audio path required", nil)
	}
	scratch, err := os.MkdirTemp(filepath.Dir(audioPath), ".whisperx-")
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "transcription", "whisperx", "create scratch dir", err)
	}
	defer os.RemoveAll(scratch)

	args := s.buildArgs(audioPath, scratch)
	if output, err := s.run(ctx, s.binary, args...); err != nil {
		return nil, services.Wrap(services.ErrTranscription, "transcription", "whisperx", tail(output), err)
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	raw, err := LoadSegments(filepath.Join(scratch, base+".json"))
	if err != nil {
		return nil, services.Wrap(services.ErrTranscription, "transcription", "load output", "", err)
	}
	segments, dropped := toSegments(raw)
	if len(dropped) > 0 {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "whisperx segments dropped", "transcript_segments_dropped",
			logging.Int("dropped", len(dropped)),
			logging.Int("kept", len(segments)),
			logging.String("segments", strings.Join(dropped, ", ")),
			logging.String(logging.FieldErrorHint, "inspect the audio around the listed times"),
			logging.String(logging.FieldImpact, "dropped lines are missing from every subtitle"),
		)
	}
	return segments, nil
}

// toSegments converts WhisperX output into transcript segments. A negative
// start (or a missing one, decoded as zero) is clamped to zero; segments with
// non-finite times or that do not end after they start are dropped and
// described in the second return value.
func toSegments(raw []Segment) ([]transcript.Segment, []string) {
	segments := make([]transcript.Segment, 0, len(raw))
	var dropped []string
	for i, seg := range raw {
		start, end := seg.Start, seg.End
		if math.IsNaN(start) || math.IsNaN(end) || math.IsInf(start, 0) || math.IsInf(end, 0) {
			dropped = append(dropped, fmt.Sprintf("#%d non-finite", i+1))
			continue
		}
		start = max(start, 0)
		if end <= start {
			dropped = append(dropped, fmt.Sprintf("#%d %.3f-%.3f", i+1, start, end))
			continue
		}
		segments = append(segments, transcript.Segment{
			Start: start,
			End:   end,
			Text:  strings.TrimSpace(seg.Text),
		})
	}
	return segments, dropped
}

func (s *Service) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 changed torch.load default to weights_only=true, breaking WhisperX/pyannote.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	return cmd.CombinedOutput()
}

// buildArgs constructs the uvx command arguments for WhisperX.
func (s *Service) buildArgs(source, outputDir string) []string {
	args := make([]string, 0, 32)

	if s.cfg.CUDAEnabled {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	args = append(args,
		"whisperx",
		source,
		"--model", s.Model(),
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--segment_resolution", SegmentResolution,
		"--chunk_size", ChunkSize,
		"--beam_size", BeamSize,
		"--temperature", Temperature,
	)

	vadMethod := s.cfg.VADMethod
	if vadMethod == "" {
		vadMethod = VADMethodSilero
	}
	args = append(args, "--vad_method", vadMethod)
	if vadMethod == VADMethodPyannote && s.cfg.HFToken != "" {
		args = append(args, "--hf_token", s.cfg.HFToken)
	}

	if lang := whisperLanguage(s.cfg.Language); lang != "" {
		args = append(args, "--language", lang)
	}

	if s.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}
	return args
}

// whisperLanguage maps codes onto the ISO 639-1 form WhisperX expects.
func whisperLanguage(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	switch code {
	case "iw":
		return "he"
	case "zh-cn", "zh-tw":
		return "zh"
	}
	if primary, _, found := strings.Cut(code, "-"); found {
		return primary
	}
	return code
}

// Segment represents a transcribed segment from WhisperX JSON output.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type whisperXPayload struct {
	Segments []Segment `json:"segments"`
}

// LoadSegments loads segments from a WhisperX JSON file.
func LoadSegments(jsonPath string) ([]Segment, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, err
	}
	var payload whisperXPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse whisperx json: %w", err)
	}
	return payload.Segments, nil
}

func tail(output []byte) string {
	text := strings.TrimSpace(string(output))
	const limit = 400
	if len(text) > limit {
		text = "..." + text[len(text)-limit:]
	}
	return text
}
