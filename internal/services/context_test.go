package services_test

import (
	"context"
	"testing"

	"songline/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRequestID(ctx, "req-123")
	ctx = services.WithRequester(ctx, "viewer")
	ctx = services.WithCorrelationID(ctx, "corr-1")

	if id, ok := services.RequestIDFromContext(ctx); !ok || id != "req-123" {
		t.Fatalf("unexpected request id: %v %v", id, ok)
	}
	if login, ok := services.RequesterFromContext(ctx); !ok || login != "viewer" {
		t.Fatalf("unexpected requester: %v %v", login, ok)
	}
	if cid, ok := services.CorrelationIDFromContext(ctx); !ok || cid != "corr-1" {
		t.Fatalf("unexpected correlation id: %v %v", cid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	if services.WithRequester(ctx, "") != ctx {
		t.Fatal("expected blank requester to return the same context")
	}
	if _, ok := services.RequesterFromContext(ctx); ok {
		t.Fatal("expected no requester in empty context")
	}
}
