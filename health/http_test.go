package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func serve(t *testing.T, agg *Aggregator, path string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	RegisterHandlers(mux, agg)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestLiveness(t *testing.T) {
	agg := NewAggregator()
	agg.Register("jwks", fixed("jwks", Unhealthy("down", ErrCheckFailed)))

	rec := serve(t, agg, "/healthz")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("liveness = %d %q; must not depend on checks", rec.Code, rec.Body.String())
	}
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(*Aggregator)
		wantCode int
		wantBody string
	}{
		{
			name:     "healthy",
			setup:    func(a *Aggregator) { a.Register("jwks", fixed("jwks", Healthy("ok"))) },
			wantCode: http.StatusOK,
			wantBody: "OK",
		},
		{
			name: "optional cache down",
			setup: func(a *Aggregator) {
				a.Register("jwks", fixed("jwks", Healthy("ok")))
				a.RegisterOptional("cache", fixed("cache", Unhealthy("down", ErrCheckFailed)))
			},
			wantCode: http.StatusOK,
			wantBody: "DEGRADED",
		},
		{
			name: "policy store down",
			setup: func(a *Aggregator) {
				a.Register("policystore", fixed("policystore", Unhealthy("down", ErrCheckFailed)))
			},
			wantCode: http.StatusServiceUnavailable,
			wantBody: "UNHEALTHY",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			agg := NewAggregator()
			tc.setup(agg)
			rec := serve(t, agg, "/readyz")
			if rec.Code != tc.wantCode || rec.Body.String() != tc.wantBody {
				t.Errorf("readyz = %d %q, want %d %q", rec.Code, rec.Body.String(), tc.wantCode, tc.wantBody)
			}
		})
	}
}

func TestDetailed(t *testing.T) {
	agg := NewAggregator()
	agg.Register("jwks", fixed("jwks", Healthy("2 keys").WithDetails(map[string]any{"key_count": 2})))
	agg.Register("policystore", fixed("policystore", Unhealthy("unreachable", ErrCheckFailed)))

	rec := serve(t, agg, "/health")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("code = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Status != "unhealthy" || len(resp.Checks) != 2 {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Checks["policystore"].Error != ErrCheckFailed.Error() {
		t.Errorf("policystore error = %q", resp.Checks["policystore"].Error)
	}
	if resp.Checks["jwks"].Details["key_count"] != float64(2) {
		t.Errorf("jwks details = %v", resp.Checks["jwks"].Details)
	}
}
