package opensearch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	opensearch "github.com/opensearch-project/opensearch-go/v4"

	"github.com/ayr-records/recordsearch/internal/types"
)

type SearchError struct {
	Type       types.ErrorType `json:"type"`
	Message    string          `json:"message"`
	StatusCode int             `json:"status_code,omitempty"`
	Retryable  bool            `json:"retryable"`
	RetryAfter time.Duration   `json:"retry_after,omitempty"`
	Operation  string          `json:"operation,omitempty"`
	Suggestion string          `json:"suggestion,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	Cause      error           `json:"-"`
}

func (e *SearchError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Type, e.Message)
	if e.Operation != "" {
		msg = fmt.Sprintf("[%s] %s: %s", e.Type, e.Operation, e.Message)
	}
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	return msg
}

func (e *SearchError) Unwrap() error {
	return e.Cause
}

func (e *SearchError) IsRetryable() bool {
	return e.Retryable
}

func NewSearchError(errType types.ErrorType, message string) *SearchError {
	return &SearchError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
	}
}

func NewRetryableSearchError(errType types.ErrorType, message string, retryAfter time.Duration) *SearchError {
	return &SearchError{
		Type:       errType,
		Message:    message,
		Retryable:  true,
		RetryAfter: retryAfter,
		Timestamp:  time.Now(),
	}
}

// WrapError attaches operation context to err, keeping an existing
// SearchError classification.
func WrapError(err error, errType types.ErrorType, operation string) error {
	if err == nil {
		return nil
	}
	var searchErr *SearchError
	if errors.As(err, &searchErr) {
		if searchErr.Operation == "" {
			searchErr.Operation = operation
		}
		return searchErr
	}
	return &SearchError{
		Type:      errType,
		Message:   err.Error(),
		Operation: operation,
		Timestamp: time.Now(),
		Cause:     err,
	}
}

func ClassifyHTTPError(statusCode int, body string) *SearchError {
	switch statusCode {
	case http.StatusBadRequest:
		return &SearchError{
			Type:       types.ErrorTypeOpenSearchQuery,
			Message:    fmt.Sprintf("request rejected by OpenSearch: %s", body),
			StatusCode: statusCode,
			Suggestion: "Check the query body and the index mapping.",
			Timestamp:  time.Now(),
		}
	case http.StatusUnauthorized:
		return &SearchError{
			Type:       types.ErrorTypeAuthentication,
			Message:    "authentication failed",
			StatusCode: statusCode,
			Suggestion: "Check the AWS credentials or the basic-auth user for the cluster.",
			Timestamp:  time.Now(),
		}
	case http.StatusForbidden:
		return &SearchError{
			Type:       types.ErrorTypeAuthentication,
			Message:    "access denied",
			StatusCode: statusCode,
			Suggestion: "Check that the IAM role or user is mapped to a role with search permissions.",
			Timestamp:  time.Now(),
		}
	case http.StatusNotFound:
		return &SearchError{
			Type:       types.ErrorTypeValidation,
			Message:    "index or endpoint not found",
			StatusCode: statusCode,
			Suggestion: "Check OPENSEARCH_ENDPOINT and OPENSEARCH_INDEX.",
			Timestamp:  time.Now(),
		}
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return &SearchError{
			Type:       types.ErrorTypeNetworkTimeout,
			Message:    "request timed out",
			StatusCode: statusCode,
			Retryable:  true,
			RetryAfter: 5 * time.Second,
			Suggestion: "Check network connectivity and cluster load.",
			Timestamp:  time.Now(),
		}
	case http.StatusTooManyRequests:
		retryAfter := 10 * time.Second
		if strings.Contains(body, "retry after") {
			retryAfter = 30 * time.Second
		}
		return &SearchError{
			Type:       types.ErrorTypeRateLimit,
			Message:    "rate limit reached",
			StatusCode: statusCode,
			Retryable:  true,
			RetryAfter: retryAfter,
			Suggestion: "Lower OPENSEARCH_RATE_LIMIT or retry later.",
			Timestamp:  time.Now(),
		}
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return &SearchError{
			Type:       types.ErrorTypeOpenSearchConnection,
			Message:    "OpenSearch server error",
			StatusCode: statusCode,
			Retryable:  true,
			RetryAfter: 10 * time.Second,
			Suggestion: "Check the cluster health.",
			Timestamp:  time.Now(),
		}
	default:
		return &SearchError{
			Type:       types.ErrorTypeUnknown,
			Message:    fmt.Sprintf("unexpected HTTP error: %s", body),
			StatusCode: statusCode,
			Retryable:  statusCode >= 500,
			RetryAfter: 5 * time.Second,
			Timestamp:  time.Now(),
		}
	}
}

func ClassifyConnectionError(err error) *SearchError {
	errMsg := err.Error()

	switch {
	case strings.Contains(errMsg, "timeout"):
		return &SearchError{
			Type:       types.ErrorTypeNetworkTimeout,
			Message:    "connection to OpenSearch timed out",
			Retryable:  true,
			RetryAfter: 5 * time.Second,
			Suggestion: "Check network connectivity and the OpenSearch endpoint.",
			Timestamp:  time.Now(),
			Cause:      err,
		}
	case strings.Contains(errMsg, "connection refused"):
		return &SearchError{
			Type:       types.ErrorTypeOpenSearchConnection,
			Message:    "connection to OpenSearch refused",
			Suggestion: "Check the OpenSearch endpoint URL and port.",
			Timestamp:  time.Now(),
			Cause:      err,
		}
	case strings.Contains(errMsg, "no such host"):
		return &SearchError{
			Type:       types.ErrorTypeOpenSearchConnection,
			Message:    "OpenSearch host not found",
			Suggestion: "Check the host name in OPENSEARCH_ENDPOINT.",
			Timestamp:  time.Now(),
			Cause:      err,
		}
	}

	return &SearchError{
		Type:       types.ErrorTypeUnknown,
		Message:    fmt.Sprintf("connection error: %v", err),
		Retryable:  true,
		RetryAfter: 10 * time.Second,
		Suggestion: "Check network connectivity.",
		Timestamp:  time.Now(),
		Cause:      err,
	}
}

// classifyError turns a client error into a SearchError. Context errors pass
// through so callers can still match them with errors.Is.
func classifyError(err error, operation string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var searchErr *SearchError
	var structErr *opensearch.StructError
	var stringErr *opensearch.StringError
	switch {
	case errors.As(err, &structErr):
		searchErr = ClassifyHTTPError(structErr.Status, structErr.Err.Reason)
	case errors.As(err, &stringErr):
		searchErr = ClassifyHTTPError(stringErr.Status, stringErr.Err)
	default:
		searchErr = ClassifyConnectionError(err)
	}
	searchErr.Operation = operation
	searchErr.Cause = err
	return searchErr
}
