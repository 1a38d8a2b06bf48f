package scanner

import (
	"context"
	"time"

	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/sift/internal/core/ports"
)

// Option configures a Scanner.
type Option func(*options)

type options struct {
	interval        time.Duration
	autoPrune       bool
	continueOnError bool
	maxKeys         int
	tracer          ports.Tracer
	logger          ports.Logger
	onError         func(error)
}

func defaultOptions() options {
	return options{
		interval:  domain.DefaultInterval,
		autoPrune: true,
		tracer:    noopTracer{},
		logger:    noopLogger{},
	}
}

// WithInterval sets the period of the fallback rescan. Zero or less disables it.
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		o.interval = d
	}
}

// WithAutoPrune controls whether subscriptions for files that are no longer
// discovered are cancelled after every discovery. It is on by default.
func WithAutoPrune(enabled bool) Option {
	return func(o *options) {
		o.autoPrune = enabled
	}
}

// WithContinueOnFileError keeps a pass going when one file fails to parse,
// subscribe or be consumed. The failures are joined and returned at the end.
func WithContinueOnFileError() Option {
	return func(o *options) {
		o.continueOnError = true
	}
}

// WithMaxKeys bounds the dedup index to n keys, evicting the least recently
// seen. An evicted key can be delivered again. Zero means unbounded.
func WithMaxKeys(n int) Option {
	return func(o *options) {
		o.maxKeys = n
	}
}

// WithTracer sets the tracer for pass and file spans.
func WithTracer(t ports.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l ports.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithErrorHandler sets the handler for failures of background passes.
// By default they are logged.
func WithErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.onError = fn
	}
}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, ports.Span) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End() {}

func (noopSpan) RecordError(error) {}

func (noopSpan) SetAttribute(string, any) {}

type noopLogger struct{}

func (noopLogger) Debug(string) {}

func (noopLogger) Info(string) {}

func (noopLogger) Warn(string) {}

func (noopLogger) Error(error) {}
