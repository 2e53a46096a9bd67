package translation

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"subflow/internal/language"
)

// PaceConfig bounds how hard a backend is driven.
type PaceConfig struct {
	// RequestsPerSecond caps the request rate; zero or less disables pacing.
	RequestsPerSecond float64
	// Burst is the number of requests allowed at once; defaults to 1.
	Burst int
	// CallTimeout bounds each backend call; zero means no deadline.
	CallTimeout time.Duration
}

type paced struct {
	inner   Backend
	limiter *rate.Limiter
	timeout time.Duration
}

// Paced wraps backend so every call waits for the shared limiter and runs
// under its own deadline. One limiter is shared by all languages and videos
// using the returned Backend.
func Paced(backend Backend, cfg PaceConfig) Backend {
	if backend == nil {
		return nil
	}
	p := &paced{inner: backend, timeout: cfg.CallTimeout}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	if p.limiter == nil && p.timeout <= 0 {
		return backend
	}
	return p
}

func (p *paced) Translate(ctx context.Context, text string, target language.Code) (string, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	return p.inner.Translate(ctx, text, target)
}
