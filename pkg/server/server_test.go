package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zen-systems/retailgate/pkg/agent"
	"github.com/zen-systems/retailgate/pkg/router"
)

type stubHandler struct {
	response agent.Response
	queries  []string
}

func (h *stubHandler) Handle(_ context.Context, query string) agent.Response {
	h.queries = append(h.queries, query)
	return h.response
}

func TestHealthz(t *testing.T) {
	s := New(&stubHandler{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected health response: %d %q", rec.Code, rec.Body.String())
	}
}

func TestQueryReturnsAgentResponse(t *testing.T) {
	handler := &stubHandler{response: agent.Response{
		RequestID: "req-1",
		Decision:  router.DecisionDocs,
		Message:   "Returns are accepted within 30 days.",
	}}
	s := New(handler)

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":"What is the return policy?"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp agent.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Message != "Returns are accepted within 30 days." || resp.Decision != router.DecisionDocs {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(handler.queries) != 1 || handler.queries[0] != "What is the return policy?" {
		t.Fatalf("handler not called with query: %v", handler.queries)
	}
}

func TestEmptyQueryRejected(t *testing.T) {
	handler := &stubHandler{}
	s := New(handler)

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":"  "}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(handler.queries) != 0 {
		t.Fatalf("handler must not run for empty query")
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] == "" {
		t.Fatalf("expected json error body, got %s", rec.Body.String())
	}
}

func TestMalformedBodyRejected(t *testing.T) {
	s := New(&stubHandler{})

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUnavailableMapsTo503(t *testing.T) {
	handler := &stubHandler{response: agent.Response{
		RequestID: "req-2",
		Message:   "The language model is currently unavailable; please try again later.",
		Error:     "llm_unavailable",
	}}
	s := New(handler)

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":"How many orders?"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
