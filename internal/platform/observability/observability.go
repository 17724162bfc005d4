package observability

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Config captures observability toggles.
type Config struct {
	Enabled bool
}

// ShutdownFunc tears down anything Setup started.
type ShutdownFunc func(context.Context) error

var (
	mu     sync.RWMutex
	logger *slog.Logger
	state  Config
)

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if !state.Enabled {
		return nil
	}
	return logger
}

// Setup routes spans and metrics to l as debug records. With Enabled false
// every call is a no-op.
func Setup(ctx context.Context, cfg Config, l *slog.Logger) (ShutdownFunc, error) {
	mu.Lock()
	logger, state = l, cfg
	mu.Unlock()

	if l != nil && cfg.Enabled {
		l.InfoContext(ctx, "[BOOT] span and metric logging enabled")
	}
	return func(context.Context) error {
		mu.Lock()
		logger, state = nil, Config{}
		mu.Unlock()
		return nil
	}, nil
}

// Enabled reports whether Setup turned instrumentation on.
func Enabled() bool {
	return current() != nil
}

// StartSpan times an operation. The returned func ends the span; a non-nil
// error logs it at error level.
func StartSpan(ctx context.Context, component, operation string, attrs ...slog.Attr) func(error) {
	l := current()
	if l == nil {
		return func(error) {}
	}

	start := time.Now()
	return func(err error) {
		level := slog.LevelDebug
		all := append([]slog.Attr{
			slog.String("component", component),
			slog.String("operation", operation),
			slog.Duration("duration", time.Since(start)),
		}, attrs...)
		if err != nil {
			level = slog.LevelError
			all = append(all, slog.String("error", err.Error()))
		}
		l.LogAttrs(ctx, level, "span", all...)
	}
}

// RecordMetric emits one datapoint with labels in key order.
func RecordMetric(ctx context.Context, name string, value float64, labels map[string]string) {
	l := current()
	if l == nil {
		return
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := []slog.Attr{slog.String("metric", name), slog.Float64("value", value)}
	for _, k := range keys {
		attrs = append(attrs, slog.String(k, labels[k]))
	}
	l.LogAttrs(ctx, slog.LevelDebug, "metric", attrs...)
}
