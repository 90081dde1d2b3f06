package observability

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"jan-server/services/dm-api/internal/config"
)

func TestExporterEndpoint(t *testing.T) {
	cases := []struct {
		raw      string
		endpoint string
		insecure bool
	}{
		{"otel-collector:4318", "otel-collector:4318", true},
		{"http://otel-collector:4318/", "otel-collector:4318", true},
		{"https://otlp.example.com", "otlp.example.com", false},
	}
	for _, tc := range cases {
		endpoint, insecure := exporterEndpoint(tc.raw)
		if endpoint != tc.endpoint || insecure != tc.insecure {
			t.Errorf("exporterEndpoint(%q) = %q, %v; want %q, %v", tc.raw, endpoint, insecure, tc.endpoint, tc.insecure)
		}
	}
}

func TestParseHeaders(t *testing.T) {
	headers := parseHeaders("authorization=Bearer abc, x-tenant = dm ,broken,=empty")
	if len(headers) != 2 {
		t.Fatalf("expected 2 headers, got %v", headers)
	}
	if headers["authorization"] != "Bearer abc" || headers["x-tenant"] != "dm" {
		t.Fatalf("unexpected headers %v", headers)
	}
}

func TestSetupWithoutExporterProducesTraceIDs(t *testing.T) {
	cfg := &config.Config{ServiceName: "dm-api", ServiceNamespace: "jan", Environment: "test"}
	shutdown, err := Setup(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	ctx, span := StartSpan(context.Background(), "test")
	defer span.End()
	if GetTraceID(ctx) == "" || GetSpanID(ctx) == "" {
		t.Fatal("expected a valid span context")
	}
}
