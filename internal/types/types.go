package types

import (
	"fmt"
	"time"
)

// ErrorType represents the type of error that occurred
type ErrorType string

const (
	ErrorTypeNetworkTimeout ErrorType = "network_timeout"
	ErrorTypeTimeout        ErrorType = "timeout"
	ErrorTypeRateLimit      ErrorType = "rate_limit"
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeAuthentication ErrorType = "authentication"
	ErrorTypeConfiguration  ErrorType = "configuration"
	ErrorTypeUnknown        ErrorType = "unknown"
	// OpenSearch specific error types
	ErrorTypeOpenSearchConnection ErrorType = "opensearch_connection"
	ErrorTypeOpenSearchMapping    ErrorType = "opensearch_mapping"
	ErrorTypeOpenSearchIndexing   ErrorType = "opensearch_indexing"
	ErrorTypeOpenSearchBulkIndex  ErrorType = "opensearch_bulk_index"
	ErrorTypeOpenSearchQuery      ErrorType = "opensearch_query"
	ErrorTypeOpenSearchResponse   ErrorType = "opensearch_response"
)

// Config represents the service configuration
type Config struct {
	// OpenSearch configuration
	OpenSearchEndpoint          string        `json:"opensearch_endpoint" env:"OPENSEARCH_ENDPOINT,required=true"`
	OpenSearchIndex             string        `json:"opensearch_index" env:"OPENSEARCH_INDEX,default=documents"`
	OpenSearchRegion            string        `json:"opensearch_region" env:"OPENSEARCH_REGION,default=eu-west-2"`
	OpenSearchAuthMethod        string        `json:"opensearch_auth_method" env:"OPENSEARCH_AUTH_METHOD,default=iam"`
	OpenSearchUsername          string        `json:"-" env:"OPENSEARCH_USERNAME"`
	OpenSearchPassword          string        `json:"-" env:"OPENSEARCH_PASSWORD"`
	OpenSearchCredentialsSecret string        `json:"opensearch_credentials_secret" env:"OPENSEARCH_CREDENTIALS_SECRET"`
	OpenSearchInsecureSkipTLS   bool          `json:"opensearch_insecure_skip_tls" env:"OPENSEARCH_INSECURE_SKIP_TLS,default=false"`
	OpenSearchRateLimit         float64       `json:"opensearch_rate_limit" env:"OPENSEARCH_RATE_LIMIT,default=10.0"`
	OpenSearchRateBurst         int           `json:"opensearch_rate_burst" env:"OPENSEARCH_RATE_BURST,default=20"`
	OpenSearchConnectionTimeout time.Duration `json:"opensearch_connection_timeout" env:"OPENSEARCH_CONNECTION_TIMEOUT,default=30s"`
	OpenSearchRequestTimeout    time.Duration `json:"opensearch_request_timeout" env:"OPENSEARCH_REQUEST_TIMEOUT,default=60s"`
	OpenSearchMaxRetries        int           `json:"opensearch_max_retries" env:"OPENSEARCH_MAX_RETRIES,default=3"`
	OpenSearchRetryDelay        time.Duration `json:"opensearch_retry_delay" env:"OPENSEARCH_RETRY_DELAY,default=1s"`
	OpenSearchMaxConnections    int           `json:"opensearch_max_connections" env:"OPENSEARCH_MAX_CONNECTIONS,default=100"`
	OpenSearchMaxIdleConns      int           `json:"opensearch_max_idle_conns" env:"OPENSEARCH_MAX_IDLE_CONNS,default=10"`
	OpenSearchIdleConnTimeout   time.Duration `json:"opensearch_idle_conn_timeout" env:"OPENSEARCH_IDLE_CONN_TIMEOUT,default=90s"`

	// Search behaviour
	DefaultPageSize int    `json:"default_page_size" env:"DEFAULT_PAGE_SIZE,default=20"`
	HighlightTag    string `json:"highlight_tag" env:"SEARCH_HIGHLIGHT_TAG,default=mark"`

	// Local usage statistics (SQLite)
	UsageStatsEnabled bool   `json:"usage_stats_enabled" env:"USAGE_STATS_ENABLED,default=true"`
	UsageStatsPath    string `json:"usage_stats_path" env:"USAGE_STATS_PATH"`

	// OpenTelemetry configuration
	OTelEnabled              bool    `json:"otel_enabled" env:"OTEL_ENABLED,default=false"`
	OTelServiceName          string  `json:"otel_service_name" env:"OTEL_SERVICE_NAME,default=recordsearch"`
	OTelResourceAttributes   string  `json:"otel_resource_attributes" env:"OTEL_RESOURCE_ATTRIBUTES"`
	OTelExporterOTLPEndpoint string  `json:"otel_exporter_otlp_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelExporterOTLPProtocol string  `json:"otel_exporter_otlp_protocol" env:"OTEL_EXPORTER_OTLP_PROTOCOL,default=http/protobuf"`
	OTelTracesSampler        string  `json:"otel_traces_sampler" env:"OTEL_TRACES_SAMPLER,default=always_on"`
	OTelTracesSamplerArg     float64 `json:"otel_traces_sampler_arg" env:"OTEL_TRACES_SAMPLER_ARG,default=1.0"`
}

// RecordDocument is the shape of a record as stored in the documents index.
type RecordDocument struct {
	FileID                    string `json:"file_id" yaml:"file_id"`
	FileName                  string `json:"file_name" yaml:"file_name"`
	FileReference             string `json:"file_reference,omitempty" yaml:"file_reference"`
	FilePath                  string `json:"file_path,omitempty" yaml:"file_path"`
	CiteableReference         string `json:"citeable_reference,omitempty" yaml:"citeable_reference"`
	Description               string `json:"description,omitempty" yaml:"description"`
	Content                   string `json:"content,omitempty" yaml:"content"`
	SeriesID                  string `json:"series_id,omitempty" yaml:"series_id"`
	SeriesName                string `json:"series_name,omitempty" yaml:"series_name"`
	TransferringBody          string `json:"transferring_body,omitempty" yaml:"transferring_body"`
	TransferringBodyID        string `json:"transferring_body_id" yaml:"transferring_body_id"`
	ConsignmentID             string `json:"consignment_id,omitempty" yaml:"consignment_id"`
	ConsignmentReference      string `json:"consignment_reference,omitempty" yaml:"consignment_reference"`
	ClosureType               string `json:"closure_type,omitempty" yaml:"closure_type"`
	LegalStatus               string `json:"legal_status,omitempty" yaml:"legal_status"`
	HeldBy                    string `json:"held_by,omitempty" yaml:"held_by"`
	Language                  string `json:"language,omitempty" yaml:"language"`
	RightsCopyright           string `json:"rights_copyright,omitempty" yaml:"rights_copyright"`
	FormerReferenceDepartment string `json:"former_reference_department,omitempty" yaml:"former_reference_department"`
	DateLastModified          string `json:"date_last_modified,omitempty" yaml:"date_last_modified"`
	OpeningDate               string `json:"opening_date,omitempty" yaml:"opening_date"`
	ClosureStartDate          string `json:"closure_start_date,omitempty" yaml:"closure_start_date"`
	EndDate                   string `json:"end_date,omitempty" yaml:"end_date"`
}

// Validate checks the fields the index cannot do without.
func (d *RecordDocument) Validate() error {
	if d.FileID == "" {
		return fmt.Errorf("file_id is required")
	}
	if d.TransferringBodyID == "" {
		return fmt.Errorf("transferring_body_id is required (file %s)", d.FileID)
	}
	return nil
}
