package common

import "context"

type contextKey string

const contextKeyBatchID contextKey = "batch_id"

// WithBatchID tags the context with the run's batch identifier so every
// component logs under the same correlation key.
func WithBatchID(ctx context.Context, batchID string) context.Context {
	return context.WithValue(ctx, contextKeyBatchID, batchID)
}

// BatchIDFromContext extracts the batch identifier, or "" if absent.
func BatchIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyBatchID).(string); ok {
		return id
	}
	return ""
}
