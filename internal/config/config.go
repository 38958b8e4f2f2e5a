package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	env "github.com/netflix/go-env"

	"github.com/ayr-records/recordsearch/internal/query"
	"github.com/ayr-records/recordsearch/internal/types"
)

// Type alias for Config
type Config = types.Config

// Load reads configuration from the environment. Values from a .env file in
// the working directory are used for variables that are not already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(config *Config) error {
	if err := validateOpenSearchConfig(config); err != nil {
		return fmt.Errorf("OpenSearch configuration validation failed: %w", err)
	}

	if config.DefaultPageSize < 1 {
		config.DefaultPageSize = query.DefaultPerPage
	}
	if config.DefaultPageSize > query.MaxPerPage {
		config.DefaultPageSize = query.MaxPerPage
	}

	config.HighlightTag = strings.TrimSpace(config.HighlightTag)
	if config.HighlightTag == "" {
		config.HighlightTag = query.DefaultHighlightTag
	}
	if !isValidTagName(config.HighlightTag) {
		return fmt.Errorf("SEARCH_HIGHLIGHT_TAG must be a plain element name, got %q", config.HighlightTag)
	}

	if config.OTelEnabled {
		if err := validateOTelConfig(config); err != nil {
			return fmt.Errorf("OpenTelemetry configuration validation failed: %w", err)
		}
	}

	return nil
}

func validateOpenSearchConfig(config *Config) error {
	if config.OpenSearchEndpoint == "" {
		return fmt.Errorf("OPENSEARCH_ENDPOINT is required")
	}

	parsedURL, err := url.Parse(config.OpenSearchEndpoint)
	if err != nil {
		return fmt.Errorf("invalid OPENSEARCH_ENDPOINT URL format: %w", err)
	}
	if parsedURL.Scheme == "" {
		return fmt.Errorf("OPENSEARCH_ENDPOINT must include scheme (http:// or https://)")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("OPENSEARCH_ENDPOINT scheme must be http or https")
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("OPENSEARCH_ENDPOINT must include a valid host")
	}

	if !isValidIndexName(config.OpenSearchIndex) {
		return fmt.Errorf("OPENSEARCH_INDEX %q is not a valid index name", config.OpenSearchIndex)
	}

	config.OpenSearchAuthMethod = strings.ToLower(strings.TrimSpace(config.OpenSearchAuthMethod))
	switch config.OpenSearchAuthMethod {
	case "iam":
		if config.OpenSearchRegion == "" {
			return fmt.Errorf("OPENSEARCH_REGION is required for IAM authentication")
		}
	case "basic":
		if config.OpenSearchCredentialsSecret == "" &&
			(config.OpenSearchUsername == "" || config.OpenSearchPassword == "") {
			return fmt.Errorf("basic authentication needs OPENSEARCH_USERNAME and OPENSEARCH_PASSWORD or OPENSEARCH_CREDENTIALS_SECRET")
		}
		if config.OpenSearchCredentialsSecret != "" && config.OpenSearchRegion == "" {
			return fmt.Errorf("OPENSEARCH_REGION is required to read OPENSEARCH_CREDENTIALS_SECRET")
		}
	default:
		return fmt.Errorf("OPENSEARCH_AUTH_METHOD must be iam or basic, got %q", config.OpenSearchAuthMethod)
	}

	if config.OpenSearchRateLimit <= 0 {
		return fmt.Errorf("OPENSEARCH_RATE_LIMIT must be greater than 0")
	}
	if config.OpenSearchRateLimit > 1000 {
		return fmt.Errorf("OPENSEARCH_RATE_LIMIT cannot exceed 1000 requests/second")
	}

	if config.OpenSearchRateBurst <= 0 {
		return fmt.Errorf("OPENSEARCH_RATE_BURST must be greater than 0")
	}
	if config.OpenSearchRateBurst > int(config.OpenSearchRateLimit*10) {
		return fmt.Errorf("OPENSEARCH_RATE_BURST should not exceed 10x the rate limit")
	}

	if config.OpenSearchConnectionTimeout <= 0 {
		return fmt.Errorf("OPENSEARCH_CONNECTION_TIMEOUT must be greater than 0")
	}
	if config.OpenSearchRequestTimeout <= 0 {
		return fmt.Errorf("OPENSEARCH_REQUEST_TIMEOUT must be greater than 0")
	}

	if config.OpenSearchMaxRetries < 0 {
		return fmt.Errorf("OPENSEARCH_MAX_RETRIES cannot be negative")
	}
	if config.OpenSearchMaxRetries > 10 {
		return fmt.Errorf("OPENSEARCH_MAX_RETRIES cannot exceed 10")
	}
	if config.OpenSearchRetryDelay <= 0 {
		return fmt.Errorf("OPENSEARCH_RETRY_DELAY must be greater than 0")
	}

	if config.OpenSearchMaxConnections <= 0 {
		return fmt.Errorf("OPENSEARCH_MAX_CONNECTIONS must be greater than 0")
	}
	if config.OpenSearchMaxConnections > 100 {
		return fmt.Errorf("OPENSEARCH_MAX_CONNECTIONS cannot exceed 100")
	}
	if config.OpenSearchMaxIdleConns <= 0 {
		return fmt.Errorf("OPENSEARCH_MAX_IDLE_CONNS must be greater than 0")
	}
	if config.OpenSearchMaxIdleConns > config.OpenSearchMaxConnections {
		return fmt.Errorf("OPENSEARCH_MAX_IDLE_CONNS cannot exceed OPENSEARCH_MAX_CONNECTIONS")
	}
	if config.OpenSearchIdleConnTimeout <= 0 {
		return fmt.Errorf("OPENSEARCH_IDLE_CONN_TIMEOUT must be greater than 0")
	}

	return nil
}

func validateOTelConfig(config *Config) error {
	switch config.OTelExporterOTLPProtocol {
	case "", "http/protobuf", "grpc":
	default:
		return fmt.Errorf("OTEL_EXPORTER_OTLP_PROTOCOL must be http/protobuf or grpc, got %q", config.OTelExporterOTLPProtocol)
	}

	if config.OTelTracesSamplerArg < 0 || config.OTelTracesSamplerArg > 1 {
		return fmt.Errorf("OTEL_TRACES_SAMPLER_ARG must be between 0 and 1")
	}
	return nil
}

// isValidIndexName applies OpenSearch index naming rules.
func isValidIndexName(name string) bool {
	if len(name) == 0 || len(name) > 255 || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name[:1], "_-+") {
		return false
	}
	for _, char := range name {
		if !((char >= 'a' && char <= 'z') || (char >= '0' && char <= '9') ||
			char == '_' || char == '-' || char == '.') {
			return false
		}
	}
	return true
}

func isValidTagName(name string) bool {
	for i, char := range name {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') {
			continue
		}
		if i > 0 && char >= '0' && char <= '9' {
			continue
		}
		return false
	}
	return name != ""
}
