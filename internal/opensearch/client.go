package opensearch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"sync"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	opensearch "github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"
	requestsigner "github.com/opensearch-project/opensearch-go/v4/signer/awsv2"
	"golang.org/x/time/rate"
)

const (
	AuthMethodIAM   = "iam"
	AuthMethodBasic = "basic"
)

// Client talks to the records cluster. All requests go through the rate
// limiter and are retried on retryable SearchErrors.
type Client struct {
	client      *opensearchapi.Client
	rateLimiter *rate.Limiter
	config      *Config

	metricsMu sync.Mutex
	metrics   PerformanceMetrics
}

type Config struct {
	Endpoint          string
	Region            string
	AuthMethod        string
	Username          string
	Password          string
	CredentialsSecret string
	InsecureSkipTLS   bool
	RateLimit         float64
	RateBurst         int
	ConnectionTimeout time.Duration
	RequestTimeout    time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
	MaxConnections    int
	MaxIdleConns      int
	IdleConnTimeout   time.Duration
}

func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipTLS,
		},
		MaxConnsPerHost:       cfg.MaxConnections,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConns / 2,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.RequestTimeout,
	}

	// Retries are handled by ExecuteWithRetry.
	osConfig := opensearch.Config{
		Addresses:    []string{cfg.Endpoint},
		Transport:    transport,
		DisableRetry: true,
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectionTimeout)
	defer cancel()

	switch cfg.AuthMethod {
	case AuthMethodIAM:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		signer, err := requestsigner.NewSignerWithService(awsCfg, "es")
		if err != nil {
			return nil, fmt.Errorf("failed to create AWS signer: %w", err)
		}
		osConfig.Signer = signer
	case AuthMethodBasic:
		if cfg.CredentialsSecret != "" {
			creds, err := LoadCredentials(ctx, cfg.Region, cfg.CredentialsSecret)
			if err != nil {
				return nil, err
			}
			cfg.Username, cfg.Password = creds.Username, creds.Password
		}
		osConfig.Username = cfg.Username
		osConfig.Password = cfg.Password
	}

	osClient, err := opensearchapi.NewClient(opensearchapi.Config{Client: osConfig})
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenSearch client: %w", err)
	}

	return &Client{
		client:      osClient,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		config:      cfg,
	}, nil
}

func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit exceeded: %w", err)
	}

	if _, err := c.client.Cluster.Health(ctx, &opensearchapi.ClusterHealthReq{}); err != nil {
		log.Printf("opensearch: health check failed: %v", err)
		return classifyError(err, "HealthCheck")
	}
	return nil
}

// do sends req and decodes a successful response body into out. Error
// statuses are classified from the response body.
func (c *Client) do(ctx context.Context, req opensearch.Request, out interface{}, operation string) error {
	resp, err := c.client.Client.Do(ctx, req, out)
	if err != nil {
		return classifyError(err, operation)
	}
	if resp.Body != nil {
		defer resp.Body.Close()
	}

	if resp.IsError() {
		var body []byte
		if resp.Body != nil {
			body, _ = io.ReadAll(resp.Body)
		}
		searchErr := ClassifyHTTPError(resp.StatusCode, string(body))
		searchErr.Operation = operation
		return searchErr
	}
	return nil
}

func (c *Client) WaitForRateLimit(ctx context.Context) error {
	return c.rateLimiter.Wait(ctx)
}

// RetryableOperation is one attempt of a request.
type RetryableOperation func() error

// ExecuteWithRetry runs operation until it succeeds, returns a non-retryable
// error, or MaxRetries is exhausted. Delays double from RetryDelay.
func (c *Client) ExecuteWithRetry(ctx context.Context, operation RetryableOperation, operationName string) error {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * c.config.RetryDelay
			log.Printf("opensearch: retrying %s after %v (attempt %d/%d)",
				operationName, delay, attempt, c.config.MaxRetries)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := operation()
		if err == nil {
			if attempt > 0 {
				log.Printf("opensearch: %s succeeded after %d retries", operationName, attempt)
			}
			return nil
		}
		lastErr = err

		var searchErr *SearchError
		if errors.As(err, &searchErr) && !searchErr.IsRetryable() {
			return err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		log.Printf("opensearch: %s failed (attempt %d/%d): %v",
			operationName, attempt+1, c.config.MaxRetries+1, err)
	}

	return fmt.Errorf("%s failed after %d attempts, last error: %w",
		operationName, c.config.MaxRetries+1, lastErr)
}

// PerformanceMetrics holds request statistics for one client.
type PerformanceMetrics struct {
	RequestCount    int64
	SuccessCount    int64
	ErrorCount      int64
	TotalDuration   time.Duration
	AverageLatency  time.Duration
	LastRequestTime time.Time
}

func (c *Client) RecordRequest(duration time.Duration, success bool) {
	c.metricsMu.Lock()
	defer c.metricsMu.Unlock()

	c.metrics.RequestCount++
	c.metrics.TotalDuration += duration
	c.metrics.LastRequestTime = time.Now()
	if success {
		c.metrics.SuccessCount++
	} else {
		c.metrics.ErrorCount++
	}
	c.metrics.AverageLatency = c.metrics.TotalDuration / time.Duration(c.metrics.RequestCount)
}

// GetMetrics returns a snapshot of the request statistics.
func (c *Client) GetMetrics() PerformanceMetrics {
	c.metricsMu.Lock()
	defer c.metricsMu.Unlock()
	return c.metrics
}

func (c *Client) LogMetrics() {
	m := c.GetMetrics()
	log.Printf("opensearch: requests=%d success=%d errors=%d avg_latency=%v",
		m.RequestCount, m.SuccessCount, m.ErrorCount, m.AverageLatency)
}
