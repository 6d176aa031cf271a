// Package enhance rewrites idea descriptions through a generative model.
package enhance

import (
	"context"
	"log/slog"
	"strings"

	"ideon/internal/observability"
)

// Enhancer turns a draft description into a more compelling one.
type Enhancer interface {
	Enhance(ctx context.Context, title, description string) (string, error)
	Name() string
}

// Noop returns the description unchanged.
type Noop struct{}

func (Noop) Enhance(_ context.Context, _, description string) (string, error) {
	return description, nil
}

func (Noop) Name() string { return "noop" }

// OrOriginal runs e and falls back to description on any failure or empty
// result. It never returns an error so submission can always proceed.
func OrOriginal(ctx context.Context, e Enhancer, title, description string) string {
	if e == nil {
		observability.EnhanceRequests.WithLabelValues("skipped").Inc()
		return description
	}
	ctx, span := observability.StartSpan(ctx, "enhance", e.Name())
	defer span.End()

	out, err := e.Enhance(ctx, title, description)
	if err != nil {
		span.SetError(err)
		observability.EnhanceRequests.WithLabelValues("error").Inc()
		observability.GlobalLogger.WarnContext(ctx, "description enhancement failed, keeping original",
			slog.String("enhancer", e.Name()),
			slog.String("error", err.Error()),
		)
		return description
	}
	out = strings.TrimSpace(out)
	if out == "" {
		observability.EnhanceRequests.WithLabelValues("empty").Inc()
		return description
	}
	observability.EnhanceRequests.WithLabelValues("ok").Inc()
	return out
}
