package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// Into returns ctx carrying l.
func Into(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the request logger, or the global zap logger (a no-op
// unless replaced) outside a request.
func From(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return zap.L()
}

// With returns a context whose logger carries the extra fields.
func With(ctx context.Context, fields ...zap.Field) context.Context {
	return Into(ctx, From(ctx).With(fields...))
}

// ForReference tags every later log line of a search with its reference
// publication.
func ForReference(ctx context.Context, publicationNumber, country string) context.Context {
	return With(ctx,
		zap.String("publication_number", publicationNumber),
		zap.String("country_code", country),
	)
}
