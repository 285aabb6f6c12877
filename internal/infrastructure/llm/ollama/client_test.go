package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/sme-health/internal/core/domain"
	"github.com/kirillkom/sme-health/internal/infrastructure/resilience"
)

func TestGenerateJSONRequestsJSONFormat(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"response":"Sure! {\"mappings\":{\"date\":\"Txn Date\"}} done"}`))
	}))
	defer server.Close()

	client := New(server.URL+"/", "llama3.1")
	out, err := client.GenerateJSON(context.Background(), "map these columns")
	if err != nil {
		t.Fatalf("GenerateJSON() error = %v", err)
	}
	if out != `{"mappings":{"date":"Txn Date"}}` {
		t.Fatalf("unexpected json %q", out)
	}
	if captured["format"] != "json" || captured["model"] != "llama3.1" || captured["stream"] != false {
		t.Fatalf("unexpected request %+v", captured)
	}
	if captured["prompt"] != "map these columns" {
		t.Fatalf("unexpected prompt %v", captured["prompt"])
	}
}

func TestGenerateTextTrimsResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if _, ok := payload["format"]; ok {
			t.Fatalf("text generation must not request json format")
		}
		_, _ = w.Write([]byte(`{"response":"\n# AI Insights\n\n"}`))
	}))
	defer server.Close()

	out, err := New(server.URL, "gen").GenerateText(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("GenerateText() error = %v", err)
	}
	if out != "# AI Insights" {
		t.Fatalf("unexpected text %q", out)
	}
}

func TestStatusErrorIncludesBodyAndIsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := New(server.URL, "gen").GenerateText(context.Background(), "hello")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error for 502, got %v", err)
	}
}

func TestClientErrorIsNotTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := New(server.URL, "missing").GenerateJSON(context.Background(), "hello")
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestExecutorRetriesRetryableStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"response":"ok"}`))
	}))
	defer server.Close()

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		BreakerEnabled:      false,
	})
	client := NewWithOptions(server.URL, "gen", Options{ResilienceExecutor: executor})

	out, err := client.GenerateText(context.Background(), "hello")
	if err != nil {
		t.Fatalf("GenerateText() error = %v", err)
	}
	if out != "ok" || calls.Load() != 2 {
		t.Fatalf("expected retry then success, got %q after %d calls", out, calls.Load())
	}
}

func TestMissingModelIsInvalidInput(t *testing.T) {
	if _, err := New("http://127.0.0.1:1", "").GenerateText(context.Background(), "x"); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestClassifyOllamaError(t *testing.T) {
	missing := &HTTPStatusError{Operation: "generate_json", StatusCode: http.StatusNotFound, Status: "404 Not Found", Body: `{"error":"model 'llama3' not found"}`}
	if !missing.ModelMissing() {
		t.Fatalf("expected model missing for %v", missing)
	}
	if got := classifyOllamaError(missing); got.Retryable || !got.RecordFailure {
		t.Fatalf("missing model must trip the breaker without retry, got %+v", got)
	}

	busy := &HTTPStatusError{StatusCode: http.StatusServiceUnavailable}
	if got := classifyOllamaError(busy); !got.Retryable || !got.RecordFailure {
		t.Fatalf("503 must retry, got %+v", got)
	}

	badRequest := &HTTPStatusError{StatusCode: http.StatusBadRequest, Body: "invalid prompt"}
	if got := classifyOllamaError(badRequest); got.Retryable || got.RecordFailure {
		t.Fatalf("400 must be ignored, got %+v", got)
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	busy := &HTTPStatusError{Operation: "generate_text", StatusCode: http.StatusBadGateway, Status: "502 Bad Gateway"}
	if err := wrapTemporaryIfNeeded("ollama generate_text", busy); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary, got %v", err)
	}
	plain := &HTTPStatusError{Operation: "generate_text", StatusCode: http.StatusBadRequest, Status: "400 Bad Request"}
	if err := wrapTemporaryIfNeeded("ollama generate_text", plain); domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("400 must stay permanent, got %v", err)
	}
	if wrapTemporaryIfNeeded("op", nil) != nil {
		t.Fatalf("nil must stay nil")
	}
}
