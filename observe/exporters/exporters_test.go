package exporters

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewTracingExporter(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr error
	}{
		{name: "stdout"},
		{name: "none"},
		{name: ""},
		{name: "otlp", env: map[string]string{"OTEL_EXPORTER_OTLP_ENDPOINT": "", "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT": ""}, wantErr: ErrEndpointNotConfigured},
		{name: "otlp", env: map[string]string{"OTEL_EXPORTER_OTLP_ENDPOINT": "http://localhost:4317"}},
		{name: "jaeger", env: map[string]string{"OTEL_EXPORTER_JAEGER_ENDPOINT": ""}, wantErr: ErrEndpointNotConfigured},
		{name: "zipkin", wantErr: ErrUnknownExporter},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			exp, err := NewTracingExporter(context.Background(), tc.name, WithWriter(&bytes.Buffer{}))
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil || exp == nil {
				t.Fatalf("NewTracingExporter() = %v, %v", exp, err)
			}
			_ = exp.Shutdown(context.Background())
		})
	}
}

func TestNewMetricsReader(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr error
	}{
		{name: "stdout"},
		{name: "none"},
		{name: "prometheus"},
		{name: "otlp", env: map[string]string{"OTEL_EXPORTER_OTLP_ENDPOINT": "", "OTEL_EXPORTER_OTLP_METRICS_ENDPOINT": ""}, wantErr: ErrEndpointNotConfigured},
		{name: "statsd", wantErr: ErrUnknownExporter},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			reader, err := NewMetricsReader(context.Background(), tc.name,
				WithWriter(&bytes.Buffer{}), WithRegisterer(prometheus.NewRegistry()))
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil || reader == nil {
				t.Fatalf("NewMetricsReader() = %v, %v", reader, err)
			}
		})
	}
}
