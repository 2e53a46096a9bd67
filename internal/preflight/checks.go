package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"subflow/internal/config"
	"subflow/internal/services/googletranslate"
	"subflow/internal/services/httpretry"
	"subflow/internal/services/llm"
)

const networkCheckTimeout = 30 * time.Second

// CheckLLM verifies that the LLM API is reachable and the key is valid.
// It makes a single attempt with no retries.
func CheckLLM(ctx context.Context, name string, cfg config.LLM) Result {
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, networkCheckTimeout)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		Model:          cfg.Model,
		Referer:        cfg.Referer,
		Title:          cfg.Title,
		TimeoutSeconds: cfg.TimeoutSeconds,
	}, llm.WithRetryPolicy(httpretry.Policy{Attempts: 1}))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeNetworkError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckGoogleTranslate translates a single word to confirm the endpoint
// answers.
func CheckGoogleTranslate(ctx context.Context, name, baseURL string) Result {
	checkCtx, cancel := context.WithTimeout(ctx, networkCheckTimeout)
	defer cancel()

	client := googletranslate.New(googletranslate.Config{BaseURL: baseURL},
		googletranslate.WithRetryPolicy(httpretry.Policy{Attempts: 1}))
	out, err := client.Translate(checkCtx, "hello", "es")
	if err != nil {
		return Result{Name: name, Detail: summarizeNetworkError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("reachable (hello -> %s)", out)}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.W_OK|unix.X_OK, "read/write ok")
}

// CheckReadableDirectory verifies that the directory exists and can be listed.
func CheckReadableDirectory(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.X_OK, "read ok")
}

func checkDirectory(name, path string, mode uint32, okDetail string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, okDetail)}
}

// CheckFreeSpace reports whether the filesystem holding path has at least
// minBytes available. A shortfall is reported as optional.
func CheckFreeSpace(name, path string, minBytes uint64) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	available := stat.Bavail * uint64(stat.Bsize)
	detail := fmt.Sprintf("%s free on %s", humanize.IBytes(available), path)
	if available < minBytes {
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("%s (below %s)", detail, humanize.IBytes(minBytes))}
	}
	return Result{Name: name, Passed: true, Optional: true, Detail: detail}
}

// nearestExisting walks up from path to the first directory that exists, so
// checks against a not-yet-created output directory test its parent.
func nearestExisting(path string) string {
	current := filepath.Clean(path)
	for {
		if _, err := os.Stat(current); err == nil {
			return current
		}
		parent := filepath.Dir(current)
		if parent == current {
			return current
		}
		current = parent
	}
}

func summarizeNetworkError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (API unreachable)"
	}
	return err.Error()
}
