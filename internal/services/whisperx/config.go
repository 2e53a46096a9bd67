package whisperx

// Config captures runtime settings for WhisperX operations.
type Config struct {
	// Model is the WhisperX model to use (e.g., "large-v3").
	Model string
	// Language is the spoken language hint; empty lets WhisperX detect it.
	Language string
	// CUDAEnabled enables GPU acceleration.
	CUDAEnabled bool
	// VADMethod selects the voice activity detection method ("silero" or "pyannote").
	VADMethod string
	// HFToken is the Hugging Face token for pyannote VAD.
	HFToken string
}

// WhisperX configuration constants.
const (
	DefaultModel      = "large-v3"
	CUDAIndexURL      = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL      = "https://pypi.org/simple"
	BatchSize         = "4"
	ChunkSize         = "15"
	BeamSize          = "5"
	Temperature       = "0.0"
	SegmentResolution = "sentence"
	OutputFormat      = "json"
	CPUDevice         = "cpu"
	CUDADevice        = "cuda"
	CPUComputeType    = "float32"
	VADMethodPyannote = "pyannote"
	VADMethodSilero   = "silero"
)

// UVXCommand is the launcher used to run WhisperX in an isolated environment.
const UVXCommand = "uvx"
