package ollama

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/kirillkom/sme-health/internal/core/domain"
	"github.com/kirillkom/sme-health/internal/infrastructure/resilience"
)

// HTTPStatusError is a non-2xx answer from the Ollama server.
type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "ollama status error"
	}
	if e.Body == "" {
		return fmt.Sprintf("ollama %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("ollama %s status: %s: %s", e.Operation, e.Status, e.Body)
}

// ModelMissing reports the 404 Ollama returns when the model is not pulled.
func (e *HTTPStatusError) ModelMissing() bool {
	return e != nil && e.StatusCode == http.StatusNotFound && strings.Contains(strings.ToLower(e.Body), "not found")
}

var (
	retryAndTrip = resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	tripOnly     = resilience.ErrorClassification{RecordFailure: true}
	ignore       = resilience.ErrorClassification{}
)

// classifyOllamaError decides retries and breaker accounting for calls
// that reached the server or failed on the network.
func classifyOllamaError(err error) resilience.ErrorClassification {
	if err == nil {
		return ignore
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch {
		case isRetryableHTTPStatus(statusErr.StatusCode):
			return retryAndTrip
		case statusErr.ModelMissing():
			return tripOnly
		default:
			return ignore
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return retryAndTrip
	}
	return tripOnly
}

// wrapTemporaryIfNeeded marks outages as domain.ErrTemporary when the
// client runs without an executor, so the narrator can report the model as
// unavailable either way.
func wrapTemporaryIfNeeded(operation string, err error) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if resilience.IsCircuitOpen(err) || classifyOllamaError(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
