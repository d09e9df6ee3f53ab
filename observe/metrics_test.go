package observe

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func newTestMetrics(t *testing.T) (Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	return m, reader
}

func TestMetrics_DecisionCounter(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()
	req := InvocationMeta{Phase: PhaseRequest, Tenant: "tenant-a"}

	m.RecordDecision(ctx, req, Outcome{Decision: DecisionAllow}, time.Millisecond)
	m.RecordDecision(ctx, req, Outcome{Decision: DecisionAllow}, time.Millisecond)
	m.RecordDecision(ctx, req, Outcome{Decision: DecisionDeny, Kind: "role_not_permitted"}, time.Millisecond)

	found := findMetric(collect(t, reader), MetricDecisions)
	if found == nil {
		t.Fatalf("%s metric not found", MetricDecisions)
	}
	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", found.Data)
	}

	counts := map[string]int64{}
	for _, dp := range sum.DataPoints {
		outcome, _ := dp.Attributes.Value(attribute.Key("outcome"))
		kind, _ := dp.Attributes.Value(attribute.Key("kind"))
		if _, ok := dp.Attributes.Value(attribute.Key("tenant")); ok {
			t.Error("tenant must not be a metric attribute")
		}
		counts[outcome.AsString()+"/"+kind.AsString()] += dp.Value
	}
	if counts["allow/"] != 2 {
		t.Errorf("allow count = %d, want 2", counts["allow/"])
	}
	if counts["deny/role_not_permitted"] != 1 {
		t.Errorf("deny count = %d, want 1", counts["deny/role_not_permitted"])
	}
}

func TestMetrics_DurationHistogram(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.RecordDecision(context.Background(), InvocationMeta{Phase: PhaseResponse},
		Outcome{Decision: DecisionFiltered}, 1500*time.Microsecond)

	found := findMetric(collect(t, reader), MetricDuration)
	if found == nil {
		t.Fatalf("%s metric not found", MetricDuration)
	}
	hist, ok := found.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64], got %T", found.Data)
	}
	if len(hist.DataPoints) != 1 {
		t.Fatalf("expected 1 data point, got %d", len(hist.DataPoints))
	}
	dp := hist.DataPoints[0]
	if dp.Count != 1 || dp.Sum != 1.5 {
		t.Errorf("count/sum = %d/%v, want 1/1.5", dp.Count, dp.Sum)
	}
}

func TestNopMetrics_NoPanic(t *testing.T) {
	NopMetrics().RecordDecision(context.Background(), InvocationMeta{}, Outcome{}, 0)
}
