package observability

import "testing"

func TestSignalURL(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		name     string
		endpoint string
		sig      signal
		want     string
		wantErr  bool
	}{
		{name: "no path appends signal", endpoint: "https://collector:4318", sig: signalMetrics, want: "https://collector:4318/v1/metrics"},
		{name: "http scheme preserved", endpoint: "http://localhost:4318", sig: signalTraces, want: "http://localhost:4318/v1/traces"},
		{name: "prefix path kept", endpoint: "https://example.com/otlp/", sig: signalMetrics, want: "https://example.com/otlp/v1/metrics"},
		{name: "signal already present", endpoint: "https://example.com/otlp/v1/traces", sig: signalTraces, want: "https://example.com/otlp/v1/traces"},
		{name: "query string preserved", endpoint: "https://example.com/otlp?token=abc", sig: signalTraces, want: "https://example.com/otlp/v1/traces?token=abc"},
		{name: "empty endpoint", endpoint: "", sig: signalTraces, wantErr: true},
		{name: "missing scheme", endpoint: "collector:4318", sig: signalTraces, wantErr: true},
	}

	for _, tt := range testcases {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := signalURL(tt.endpoint, tt.sig)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error but got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestGRPCHostPort(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		raw          string
		wantHost     string
		wantInsecure bool
		wantErr      bool
	}{
		{raw: "collector:4317", wantHost: "collector:4317", wantInsecure: true},
		{raw: "grpc://collector:4317", wantHost: "collector:4317", wantInsecure: true},
		{raw: "https://collector:4317", wantHost: "collector:4317"},
		{raw: "collector", wantErr: true},
		{raw: "ftp://collector:21", wantErr: true},
		{raw: " ", wantErr: true},
	}

	for _, tt := range testcases {
		host, insecure, err := grpcHostPort(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error: %v", tt.raw, err)
			continue
		}
		if host != tt.wantHost || insecure != tt.wantInsecure {
			t.Errorf("%q: got %s/%v, want %s/%v", tt.raw, host, insecure, tt.wantHost, tt.wantInsecure)
		}
	}
}
