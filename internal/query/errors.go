package query

import "fmt"

// ConfigurationError reports a field selection the match-policy table cannot
// serve. It signals a programming error, never bad user input.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("query configuration error: field %q %s", e.Field, e.Reason)
}

// DiagnosticCode classifies a recovered problem with a request.
type DiagnosticCode string

const (
	DiagEmptyQuery        DiagnosticCode = "empty_query"
	DiagInvalidDate       DiagnosticCode = "invalid_date"
	DiagInvertedDateRange DiagnosticCode = "inverted_date_range"
	DiagUnknownSearchArea DiagnosticCode = "unknown_search_area"
	DiagUnknownSort       DiagnosticCode = "unknown_sort"
	DiagPageAdjusted      DiagnosticCode = "page_adjusted"
	DiagTokensTruncated   DiagnosticCode = "tokens_truncated"
)

// Diagnostic is a non-fatal note produced while building a query.
type Diagnostic struct {
	Code    DiagnosticCode `json:"code"`
	Field   string         `json:"field,omitempty"`
	Message string         `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Field != "" {
		return fmt.Sprintf("[%s] %s: %s", d.Code, d.Field, d.Message)
	}
	return fmt.Sprintf("[%s] %s", d.Code, d.Message)
}
