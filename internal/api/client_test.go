package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"songline/internal/api"
	"songline/internal/services"
)

type recorded struct {
	method string
	path   string
	auth   string
	body   map[string]any
}

func newTestServer(t *testing.T, status int, response any) (*httptest.Server, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.RequestURI()
		rec.auth = r.Header.Get("Authorization")
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&rec.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if response != nil {
			_ = json.NewEncoder(w).Encode(response)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestClientSendsBearerToken(t *testing.T) {
	srv, rec := newTestServer(t, http.StatusOK, api.DaemonStatus{Running: true, PID: 42})
	client := api.NewClient(srv.URL+"/", api.WithToken(" secret "))

	status, err := client.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running || status.PID != 42 {
		t.Fatalf("unexpected status %+v", status)
	}
	if rec.auth != "Bearer secret" {
		t.Fatalf("authorization header = %q", rec.auth)
	}
	if rec.method != http.MethodGet || rec.path != "/api/status" {
		t.Fatalf("unexpected call %s %s", rec.method, rec.path)
	}
}

func TestClientRoutes(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name   string
		call   func(c *api.Client) error
		method string
		path   string
	}{
		{"remove", func(c *api.Client) error { _, err := c.Remove(ctx, "r1"); return err }, http.MethodDelete, "/api/requests/r1"},
		{"front", func(c *api.Client) error { _, err := c.MoveToFront(ctx, "r1"); return err }, http.MethodPost, "/api/requests/r1/front"},
		{"link", func(c *api.Client) error { _, err := c.EditLink(ctx, "r1", "x"); return err }, http.MethodPut, "/api/requests/r1/link"},
		{"clear", func(c *api.Client) error { _, err := c.Clear(ctx); return err }, http.MethodPost, "/api/queue/clear"},
		{"reorder", func(c *api.Client) error { _, err := c.Reorder(ctx, []string{"a"}); return err }, http.MethodPut, "/api/queue/order"},
		{"active", func(c *api.Client) error { _, err := c.SetActive(ctx, "r1"); return err }, http.MethodPut, "/api/active"},
		{"finish", func(c *api.Client) error { _, err := c.FinishActive(ctx); return err }, http.MethodPost, "/api/active/finish"},
		{"archive", func(c *api.Client) error { _, err := c.Archive(ctx, 5, 10); return err }, http.MethodGet, "/api/archive?limit=5&offset=10"},
		{"requeue", func(c *api.Client) error { _, err := c.Requeue(ctx, "r1"); return err }, http.MethodPost, "/api/archive/r1/requeue"},
		{"delete archived", func(c *api.Client) error { _, err := c.DeleteArchived(ctx, "r1"); return err }, http.MethodDelete, "/api/archive/r1"},
		{"block", func(c *api.Client) error { _, err := c.Block(ctx, "troll"); return err }, http.MethodPost, "/api/blocklist/troll"},
		{"unblock", func(c *api.Client) error { _, err := c.Unblock(ctx, "troll"); return err }, http.MethodDelete, "/api/blocklist/troll"},
		{"add filter", func(c *api.Client) error {
			_, err := c.AddFilter(ctx, api.ContentFilter{Term: "x", Category: "title"})
			return err
		}, http.MethodPost, "/api/filters"},
		{"ceiling", func(c *api.Client) error { _, err := c.SetCeiling(ctx, "elevated", 900); return err }, http.MethodPut, "/api/settings/ceilings/elevated"},
		{"logs", func(c *api.Client) error { _, err := c.Logs(ctx, 7, 0, true); return err }, http.MethodGet, "/api/logs?follow=1&since=7"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, rec := newTestServer(t, http.StatusOK, api.CommandResponse{OK: true})
			if err := tc.call(api.NewClient(srv.URL)); err != nil {
				t.Fatalf("call failed: %v", err)
			}
			if rec.method != tc.method || rec.path != tc.path {
				t.Fatalf("got %s %s, want %s %s", rec.method, rec.path, tc.method, tc.path)
			}
		})
	}
}

func TestClientSetActiveEmptySendsNull(t *testing.T) {
	srv, rec := newTestServer(t, http.StatusOK, api.CommandResponse{OK: true})
	if _, err := api.NewClient(srv.URL).SetActive(context.Background(), ""); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if v, ok := rec.body["id"]; !ok || v != nil {
		t.Fatalf("expected explicit null id, got %#v", rec.body)
	}
}

func TestClientSubmitReturnsDeclineAsResponse(t *testing.T) {
	srv, rec := newTestServer(t, http.StatusConflict, api.SubmitResponse{
		Accepted: false,
		Reason:   "outstanding",
		Message:  "You already have a song in the queue.",
	})
	resp, err := api.NewClient(srv.URL).Submit(context.Background(), api.SubmitRequest{Reference: "dQw4w9WgXcQ", Login: "alice"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if resp.Accepted || resp.Reason != "outstanding" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if rec.body["reference"] != "dQw4w9WgXcQ" || rec.body["login"] != "alice" {
		t.Fatalf("unexpected body %+v", rec.body)
	}
}

func TestClientMapsErrorKinds(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusNotFound, api.ErrorResponse{Error: "request \"x\" not found", Kind: "not_found"})
	_, err := api.NewClient(srv.URL).Remove(context.Background(), "x")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Fatalf("expected *api.Error with 404, got %v", err)
	}

	srv, _ = newTestServer(t, http.StatusBadRequest, api.ErrorResponse{Error: "bad ids", Kind: "validation"})
	_, err = api.NewClient(srv.URL).Reorder(context.Background(), nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestClientUnauthorized(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
	_, err := api.NewClient(srv.URL).State(context.Background())
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized || apiErr.Message != "unauthorized" {
		t.Fatalf("unexpected error %v", err)
	}
}
