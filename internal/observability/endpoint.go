package observability

import (
	"fmt"
	"net/url"
	"strings"
)

type signal string

const (
	signalTraces  signal = "/v1/traces"
	signalMetrics signal = "/v1/metrics"
)

// otlpTarget is a resolved exporter destination. URL is set for
// http/protobuf, HostPort for grpc.
type otlpTarget struct {
	Protocol string
	URL      string
	HostPort string
	Insecure bool
}

func resolveTarget(cfg *Config, sig signal) (otlpTarget, error) {
	switch cfg.ExporterProtocol {
	case protocolHTTP:
		endpoint, err := signalURL(cfg.ExporterEndpoint, sig)
		if err != nil {
			return otlpTarget{}, fmt.Errorf("observability: invalid OTLP HTTP endpoint: %w", err)
		}
		return otlpTarget{
			Protocol: protocolHTTP,
			URL:      endpoint,
			Insecure: strings.HasPrefix(endpoint, "http://"),
		}, nil
	case protocolGRPC:
		hostPort, insecure, err := grpcHostPort(cfg.ExporterEndpoint)
		if err != nil {
			return otlpTarget{}, fmt.Errorf("observability: invalid OTLP gRPC endpoint: %w", err)
		}
		return otlpTarget{Protocol: protocolGRPC, HostPort: hostPort, Insecure: insecure}, nil
	default:
		return otlpTarget{}, fmt.Errorf("observability: unsupported OTLP exporter protocol %q", cfg.ExporterProtocol)
	}
}

// signalURL appends the signal path to an http(s) endpoint unless it is
// already there. Query strings are kept.
func signalURL(endpoint string, sig signal) (string, error) {
	if strings.TrimSpace(endpoint) == "" {
		return "", fmt.Errorf("endpoint cannot be empty")
	}

	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("endpoint must use http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("endpoint must include a host")
	}

	path := strings.TrimSuffix(parsed.Path, "/")
	if !strings.HasSuffix(path, string(sig)) {
		path += string(sig)
	}
	parsed.Path = path

	return parsed.String(), nil
}

// grpcHostPort accepts host:port or a URL. Plain host:port, http and grpc
// schemes connect without TLS.
func grpcHostPort(raw string) (string, bool, error) {
	endpoint := strings.TrimSpace(raw)
	if endpoint == "" {
		return "", false, fmt.Errorf("endpoint cannot be empty")
	}

	if !strings.Contains(endpoint, "://") {
		if !strings.Contains(endpoint, ":") {
			return "", false, fmt.Errorf("endpoint should be host:port")
		}
		return endpoint, true, nil
	}

	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", false, err
	}
	if parsed.Host == "" {
		return "", false, fmt.Errorf("endpoint must include host")
	}
	switch parsed.Scheme {
	case "http", "grpc":
		return parsed.Host, true, nil
	case "https", "grpcs":
		return parsed.Host, false, nil
	default:
		return "", false, fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
}
