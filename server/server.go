// Package server exposes the interceptors and the token trigger over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/jonwraymond/gatewayauthz/enrich"
	"github.com/jonwraymond/gatewayauthz/gateway"
	"github.com/jonwraymond/gatewayauthz/health"
	"github.com/jonwraymond/gatewayauthz/interceptor"
	"github.com/jonwraymond/gatewayauthz/observe"
	"github.com/jonwraymond/gatewayauthz/resilience"
)

// Routes.
const (
	PathRequest  = "/interceptors/request"
	PathResponse = "/interceptors/response"
	PathTrigger  = "/triggers/pre-token-generation"
	PathMetrics  = "/metrics"
)

// InvocationIDHeader carries the invocation id on every interceptor reply.
const InvocationIDHeader = "X-Invocation-Id"

// Interceptor decides one encoded interceptor input.
type Interceptor interface {
	InterceptJSON(ctx context.Context, data []byte) (*gateway.Output, interceptor.Decision)
}

// TriggerHandler answers a pre-token-generation event.
type TriggerHandler interface {
	HandleTrigger(ctx context.Context, event enrich.TriggerEvent) enrich.TriggerEvent
}

// Config configures a Server.
type Config struct {
	// Request and Response handle the two interceptor phases. Required.
	Request  Interceptor
	Response Interceptor

	// Trigger, when set, serves the pre-token-generation route.
	Trigger TriggerHandler

	// Health, when set, serves /healthz, /readyz and /health.
	Health *health.Aggregator

	// Metrics, when set, is served on /metrics.
	Metrics http.Handler

	// InvocationTimeout bounds each invocation. Default: 5s
	InvocationTimeout time.Duration

	// MaxBodyBytes caps request bodies. Default: 1 MiB
	MaxBodyBytes int64

	// Logger receives transport-level events. Default: no-op.
	Logger observe.Logger

	// NewID generates invocation ids. Default: uuid.NewString
	NewID func() string
}

// Server routes HTTP invocations to the interceptors.
type Server struct {
	config Config
	mux    *http.ServeMux
}

// New creates a server.
func New(config Config) (*Server, error) {
	if config.Request == nil || config.Response == nil {
		return nil, errors.New("server: request and response interceptors are required")
	}
	if config.InvocationTimeout <= 0 {
		config.InvocationTimeout = 5 * time.Second
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = 1 << 20
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	if config.NewID == nil {
		config.NewID = uuid.NewString
	}

	s := &Server{config: config, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST "+PathRequest, s.interceptorHandler(observe.PhaseRequest, config.Request))
	s.mux.HandleFunc("POST "+PathResponse, s.interceptorHandler(observe.PhaseResponse, config.Response))
	if config.Trigger != nil {
		s.mux.HandleFunc("POST "+PathTrigger, s.triggerHandler())
	}
	if config.Health != nil {
		health.RegisterHandlers(s.mux, config.Health)
	}
	if config.Metrics != nil {
		s.mux.Handle("GET "+PathMetrics, config.Metrics)
	}
	return s, nil
}

// Handler returns the routing handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

type errorBody struct {
	Error        string `json:"error"`
	InvocationID string `json:"invocationId,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		http.Error(w, "encode failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func (s *Server) writeError(w http.ResponseWriter, status int, id, msg string) {
	s.writeJSON(w, status, errorBody{Error: msg, InvocationID: id})
}

// readBody reads at most MaxBodyBytes. It returns the HTTP status to send
// when the body cannot be used.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, int, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge, err
		}
		return nil, http.StatusBadRequest, err
	}
	return data, 0, nil
}

// invoke runs fn under the invocation timeout and maps the failure to an
// HTTP status. A zero status means fn completed.
func (s *Server) invoke(ctx context.Context, fn func(context.Context)) (int, error) {
	err := resilience.ExecuteWithTimeout(ctx, s.config.InvocationTimeout, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
	switch {
	case err == nil:
		return 0, nil
	case errors.Is(err, resilience.ErrTimeout):
		return http.StatusGatewayTimeout, err
	default:
		return http.StatusServiceUnavailable, err
	}
}

func (s *Server) interceptorHandler(phase string, ic Interceptor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := s.config.NewID()
		ctx := interceptor.WithInvocationID(r.Context(), id)
		log := s.config.Logger.With(observe.F("invocation_id", id), observe.F("phase", phase))
		w.Header().Set(InvocationIDHeader, id)

		data, status, err := s.readBody(w, r)
		if err != nil {
			log.Warn(ctx, "unreadable invocation body", observe.F("error", err.Error()))
			s.writeError(w, status, id, "unreadable request body")
			return
		}

		var out *gateway.Output
		status, err = s.invoke(ctx, func(ctx context.Context) {
			out, _ = ic.InterceptJSON(ctx, data)
		})
		if err != nil {
			log.Error(ctx, "invocation aborted", observe.F("error", err.Error()), observe.F("status", status))
			s.writeError(w, status, id, invocationFailure(status))
			return
		}

		body, err := gateway.Encode(out)
		if err != nil {
			log.Error(ctx, "encode interceptor output", observe.F("error", err.Error()))
			s.writeError(w, http.StatusInternalServerError, id, "internal error")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}

func (s *Server) triggerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := s.config.NewID()
		ctx := interceptor.WithInvocationID(r.Context(), id)
		log := s.config.Logger.With(observe.F("invocation_id", id), observe.F("phase", observe.PhaseEnrich))

		data, status, err := s.readBody(w, r)
		if err != nil {
			s.writeError(w, status, id, "unreadable request body")
			return
		}
		var event enrich.TriggerEvent
		if err := sonic.ConfigStd.Unmarshal(data, &event); err != nil {
			log.Warn(ctx, "invalid trigger event", observe.F("error", err.Error()))
			s.writeError(w, http.StatusBadRequest, id, "invalid trigger event")
			return
		}

		var reply enrich.TriggerEvent
		status, err = s.invoke(ctx, func(ctx context.Context) {
			reply = s.config.Trigger.HandleTrigger(ctx, event)
		})
		if err != nil {
			log.Error(ctx, "trigger aborted", observe.F("error", err.Error()), observe.F("status", status))
			s.writeError(w, status, id, invocationFailure(status))
			return
		}
		s.writeJSON(w, http.StatusOK, reply)
	}
}

func invocationFailure(status int) string {
	if status == http.StatusGatewayTimeout {
		return "invocation timed out"
	}
	return fmt.Sprintf("invocation aborted (%d)", status)
}
