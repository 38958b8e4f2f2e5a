package opensearch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	opensearch "github.com/opensearch-project/opensearch-go/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayr-records/recordsearch/internal/types"
)

func TestClassifyHTTPError(t *testing.T) {
	cases := []struct {
		status    int
		wantType  types.ErrorType
		retryable bool
	}{
		{status: http.StatusBadRequest, wantType: types.ErrorTypeOpenSearchQuery},
		{status: http.StatusUnauthorized, wantType: types.ErrorTypeAuthentication},
		{status: http.StatusForbidden, wantType: types.ErrorTypeAuthentication},
		{status: http.StatusNotFound, wantType: types.ErrorTypeValidation},
		{status: http.StatusRequestTimeout, wantType: types.ErrorTypeNetworkTimeout, retryable: true},
		{status: http.StatusTooManyRequests, wantType: types.ErrorTypeRateLimit, retryable: true},
		{status: http.StatusServiceUnavailable, wantType: types.ErrorTypeOpenSearchConnection, retryable: true},
		{status: http.StatusTeapot, wantType: types.ErrorTypeUnknown},
		{status: 599, wantType: types.ErrorTypeUnknown, retryable: true},
	}

	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			err := ClassifyHTTPError(tc.status, "body")
			assert.Equal(t, tc.wantType, err.Type)
			assert.Equal(t, tc.retryable, err.IsRetryable())
			assert.Equal(t, tc.status, err.StatusCode)
		})
	}
}

func TestClassifyConnectionError(t *testing.T) {
	assert.True(t, ClassifyConnectionError(errors.New("dial tcp: i/o timeout")).IsRetryable())
	assert.False(t, ClassifyConnectionError(errors.New("connect: connection refused")).IsRetryable())
	assert.False(t, ClassifyConnectionError(errors.New("lookup search.local: no such host")).IsRetryable())
	assert.True(t, ClassifyConnectionError(errors.New("EOF")).IsRetryable())
}

func TestClassifyErrorKeepsContextErrors(t *testing.T) {
	err := classifyError(fmt.Errorf("perform: %w", context.DeadlineExceeded), "Search")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	var searchErr *SearchError
	assert.False(t, errors.As(err, &searchErr))
}

func TestClassifyErrorUsesResponseStatus(t *testing.T) {
	structErr := &opensearch.StructError{Status: http.StatusTooManyRequests}
	structErr.Err.Reason = "too many requests"

	err := classifyError(structErr, "Search")
	var searchErr *SearchError
	require.ErrorAs(t, err, &searchErr)
	assert.Equal(t, types.ErrorTypeRateLimit, searchErr.Type)
	assert.Equal(t, "Search", searchErr.Operation)
	assert.True(t, errors.Is(err, structErr))
}

func TestWrapErrorKeepsClassification(t *testing.T) {
	original := ClassifyHTTPError(http.StatusForbidden, "")
	wrapped := WrapError(original, types.ErrorTypeOpenSearchQuery, "Search[records]")

	var searchErr *SearchError
	require.ErrorAs(t, wrapped, &searchErr)
	assert.Equal(t, types.ErrorTypeAuthentication, searchErr.Type)
	assert.Equal(t, "Search[records]", searchErr.Operation)
	assert.Contains(t, wrapped.Error(), "HTTP 403")

	assert.NoError(t, WrapError(nil, types.ErrorTypeUnknown, "noop"))
}
