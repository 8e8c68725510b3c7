package services

import "context"

type contextKey string

const (
	requestIDKey     contextKey = "request_id"
	requesterKey     contextKey = "requester"
	correlationIDKey contextKey = "correlation_id"
)

// WithRequestID annotates context with the queue request identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the queue request identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequester annotates context with the submitting viewer's login.
func WithRequester(ctx context.Context, login string) context.Context {
	if login == "" {
		return ctx
	}
	return context.WithValue(ctx, requesterKey, login)
}

// RequesterFromContext returns the requester login if present.
func RequesterFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requesterKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithCorrelationID annotates context with an inbound call correlation identifier.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext extracts the correlation identifier if present.
func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(correlationIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
