package experiment

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/experimentkit/pkg/targeting"
)

// PlatformExtractor derives the request's platform class from context.
// Platform is deliberately not taken from caller-supplied attributes so
// that clients cannot spoof platform targeting; wire an extractor that
// classifies the server-observed User-Agent, e.g.:
//
//	experiment.WithPlatformExtractor(func(ctx context.Context) targeting.Platform {
//		return targeting.DetectPlatform(useragentFromContext(ctx))
//	})
type PlatformExtractor func(ctx context.Context) targeting.Platform

// Option configures an Engine.
type Option func(*Engine)

// WithEventEmitter wires an analytics sink for exposure and conversion
// events. Without one the engine emits nothing.
func WithEventEmitter(emitter EventEmitter) Option {
	return func(e *Engine) {
		if emitter != nil {
			e.emitter = emitter
		}
	}
}

// WithLogger sets the logger for background-operation failures.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithPlatformExtractor sets the platform derivation function. Without one
// every request evaluates as PlatformUnknown, which fails closed against
// platform-targeted rules.
func WithPlatformExtractor(extractor PlatformExtractor) Option {
	return func(e *Engine) {
		if extractor != nil {
			e.platform = extractor
		}
	}
}

// WithPersistTimeout bounds each background persistence or emission call.
func WithPersistTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.persistTimeout = d
		}
	}
}

// WithTimeSource overrides the engine's clock, used for scheduling bounds
// and assignment timestamps.
func WithTimeSource(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}
