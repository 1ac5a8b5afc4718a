package crm

import "context"

type contextKey string

const sourceKey contextKey = "source_id"

// DefaultSource attributes mutations that carry no caller identity.
const DefaultSource = "system"

// WithSource attaches the id recorded as the author of change log entries.
func WithSource(ctx context.Context, sourceID string) context.Context {
	return context.WithValue(ctx, sourceKey, sourceID)
}

// SourceFromContext returns the mutation author, or DefaultSource.
func SourceFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sourceKey).(string); ok && v != "" {
		return v
	}
	return DefaultSource
}
