package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/doublewordai/arbiter/internal/engine"
)

func remoteFor(t *testing.T, srv *httptest.Server, retries int) *Remote {
	t.Helper()
	return NewRemote(Config{
		Endpoint:   srv.URL,
		Timeout:    5 * time.Second,
		MaxRetries: retries,
	}, nil)
}

func upstreamOK(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		var br batchRequest
		if err := json.NewDecoder(r.Body).Decode(&br); err != nil {
			t.Errorf("decode upstream request: %v", err)
		}

		responses := make([]remoteResult, len(br.Requests))
		for i, req := range br.Requests {
			data := make([]engine.ClassificationData, len(req.Input))
			for j := range req.Input {
				data[j] = engine.ClassificationData{Index: j, Label: "Claim", Probs: []float64{0.2, 0.8}, NumClasses: 2}
			}
			responses[i] = remoteResult{Response: &engine.ClassificationResponse{
				ID:      engine.NewResponseID(),
				Object:  engine.ObjectList,
				Created: engine.Now(),
				Model:   req.Model,
				Data:    data,
				Usage:   engine.EstimateUsage(req.Input),
			}}
		}
		_ = json.NewEncoder(w).Encode(batchResponse{Responses: responses})
	}
}

func TestRemote_ClassifyBatch(t *testing.T) {
	srv := httptest.NewServer(upstreamOK(t))
	defer srv.Close()

	r := remoteFor(t, srv, 0)

	reqs := []engine.ClassificationRequest{
		{Model: "m", Input: []string{"a"}},
		{Model: "m", Input: []string{"b"}},
	}
	results, err := r.ClassifyBatch(context.Background(), reqs)
	if err != nil {
		t.Fatalf("ClassifyBatch: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for i, res := range results {
		if res.Err != nil {
			t.Errorf("result %d: %v", i, res.Err)
		}
		if res.Response.Data[0].Label != "Claim" {
			t.Errorf("result %d label = %q", i, res.Response.Data[0].Label)
		}
	}
}

func TestRemote_PerRequestUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(batchResponse{Responses: []remoteResult{
			{Error: "sequence too long"},
			{Response: &engine.ClassificationResponse{ID: "classify-x", Object: engine.ObjectList}},
		}})
	}))
	defer srv.Close()

	r := remoteFor(t, srv, 0)

	results, err := r.ClassifyBatch(context.Background(), []engine.ClassificationRequest{
		{Model: "m", Input: []string{"a"}},
		{Model: "m", Input: []string{"b"}},
	})
	if err != nil {
		t.Fatalf("ClassifyBatch: %v", err)
	}
	if results[0].Err == nil {
		t.Error("result 0: expected error")
	}
	if results[1].Err != nil || results[1].Response == nil {
		t.Error("result 1: expected success")
	}
}

func TestRemote_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	r := remoteFor(t, srv, 3)

	_, err := r.ClassifyBatch(context.Background(), []engine.ClassificationRequest{{Model: "m", Input: []string{"a"}}})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("upstream called %d times, want 1", got)
	}
}

func TestRemote_ServerErrorRetried(t *testing.T) {
	var calls atomic.Int32
	ok := upstreamOK(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		ok(w, r)
	}))
	defer srv.Close()

	r := remoteFor(t, srv, 2)

	results, err := r.ClassifyBatch(context.Background(), []engine.ClassificationRequest{{Model: "m", Input: []string{"a"}}})
	if err != nil {
		t.Fatalf("ClassifyBatch after retry: %v", err)
	}
	if len(results) != 1 || results[0].Err != nil {
		t.Fatalf("unexpected results: %+v", results)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("upstream called %d times, want 2", got)
	}
}

func TestRemote_ResultCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(batchResponse{Responses: []remoteResult{}})
	}))
	defer srv.Close()

	r := remoteFor(t, srv, 0)

	_, err := r.ClassifyBatch(context.Background(), []engine.ClassificationRequest{{Model: "m", Input: []string{"a"}}})
	if err == nil {
		t.Fatal("expected batch-level error on count mismatch")
	}
}

func TestBackendNew_UnknownKind(t *testing.T) {
	if _, err := New(Config{Kind: "gpu9000"}, nil); err == nil {
		t.Fatal("expected error for unknown backend kind")
	}
}
