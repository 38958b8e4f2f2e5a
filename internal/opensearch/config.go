package opensearch

import (
	"fmt"
	"strings"
	"time"

	"github.com/ayr-records/recordsearch/internal/types"
)

func NewConfigFromTypes(cfg *types.Config) (*Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	return &Config{
		Endpoint:          cfg.OpenSearchEndpoint,
		Region:            cfg.OpenSearchRegion,
		AuthMethod:        cfg.OpenSearchAuthMethod,
		Username:          cfg.OpenSearchUsername,
		Password:          cfg.OpenSearchPassword,
		CredentialsSecret: cfg.OpenSearchCredentialsSecret,
		InsecureSkipTLS:   cfg.OpenSearchInsecureSkipTLS,
		RateLimit:         cfg.OpenSearchRateLimit,
		RateBurst:         cfg.OpenSearchRateBurst,
		ConnectionTimeout: cfg.OpenSearchConnectionTimeout,
		RequestTimeout:    cfg.OpenSearchRequestTimeout,
		MaxRetries:        cfg.OpenSearchMaxRetries,
		RetryDelay:        cfg.OpenSearchRetryDelay,
		MaxConnections:    cfg.OpenSearchMaxConnections,
		MaxIdleConns:      cfg.OpenSearchMaxIdleConns,
		IdleConnTimeout:   cfg.OpenSearchIdleConnTimeout,
	}, nil
}

// Validate checks required settings and fills or caps the tuning values.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}

	c.AuthMethod = strings.ToLower(strings.TrimSpace(c.AuthMethod))
	if c.AuthMethod == "" {
		c.AuthMethod = AuthMethodIAM
	}
	switch c.AuthMethod {
	case AuthMethodIAM:
		if c.Region == "" {
			return fmt.Errorf("region is required for IAM authentication")
		}
	case AuthMethodBasic:
		if c.CredentialsSecret != "" && c.Region == "" {
			return fmt.Errorf("region is required to read credentials secret %s", c.CredentialsSecret)
		}
		if c.CredentialsSecret == "" && c.Username == "" {
			return fmt.Errorf("username is required for basic authentication")
		}
	default:
		return fmt.Errorf("unsupported auth method %q (want %s or %s)", c.AuthMethod, AuthMethodIAM, AuthMethodBasic)
	}

	if c.RateLimit <= 0 {
		c.RateLimit = 10.0
	}
	if c.RateLimit > 1000 {
		c.RateLimit = 1000.0
	}

	if c.RateBurst <= 0 {
		c.RateBurst = 20
	}
	if c.RateBurst > 10000 {
		c.RateBurst = 10000
	}

	if c.ConnectionTimeout <= 0 {
		c.ConnectionTimeout = 30 * time.Second
	}
	if c.ConnectionTimeout > 300*time.Second {
		c.ConnectionTimeout = 300 * time.Second
	}

	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 60 * time.Second
	}
	if c.RequestTimeout > 600*time.Second {
		c.RequestTimeout = 600 * time.Second
	}

	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = 100
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 10
	}
	if c.IdleConnTimeout <= 0 {
		c.IdleConnTimeout = 90 * time.Second
	}

	return nil
}
