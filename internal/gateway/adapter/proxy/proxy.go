// Package proxy exposes instrument controllers as XML resources. Every
// instrument route runs the same pipeline: authorize, call the controller,
// convert its result into a typed document.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"observe/internal/domain"
	gw "observe/internal/gateway"
	"observe/internal/gateway/document"
	"observe/internal/platform/telemetry"
)

// Instrument binds a route name to a controller of a given kind.
type Instrument struct {
	Name   string
	Kind   document.Kind
	Caller gw.RPCCaller
}

// ReadinessCheck reports whether dependencies are usable.
type ReadinessCheck func(ctx context.Context) error

// Router serves one route per instrument plus health endpoints.
type Router struct {
	mux     *http.ServeMux
	authz   gw.Authorizer
	metrics *telemetry.GatewayMetrics
	ready   ReadinessCheck
}

// Option configures a Router.
type Option func(*Router)

// WithReadiness makes /readyz answer 503 while check fails.
func WithReadiness(check ReadinessCheck) Option {
	return func(r *Router) { r.ready = check }
}

// NewRouter creates a router serving /<name> for every instrument.
// The metrics parameter is optional; pass nil to skip metric recording.
func NewRouter(instruments []Instrument, authz gw.Authorizer, m *telemetry.GatewayMetrics, opts ...Option) (*Router, error) {
	r := &Router{
		mux:     http.NewServeMux(),
		authz:   authz,
		metrics: m,
	}
	for _, o := range opts {
		o(r)
	}

	r.mux.HandleFunc("GET /healthz", r.healthz)
	r.mux.HandleFunc("GET /readyz", r.readyz)

	seen := make(map[string]struct{}, len(instruments))
	for _, in := range instruments {
		if in.Name == "" || in.Caller == nil {
			return nil, fmt.Errorf("instrument %q: name and caller are required", in.Name)
		}
		if _, dup := seen[in.Name]; dup {
			return nil, fmt.Errorf("instrument %q registered twice", in.Name)
		}
		seen[in.Name] = struct{}{}
		r.mux.HandleFunc("/"+in.Name, r.makeHandler(in))
	}
	return r, nil
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) makeHandler(in Instrument) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			r.info(w, req, in)
		case http.MethodPut, http.MethodPost:
			r.execute(w, req, in)
		default:
			w.Header().Set("Allow", "GET, PUT, POST")
			gw.WriteProblem(w, gw.Problem{
				Status:  http.StatusMethodNotAllowed,
				Code:    "method_not_allowed",
				Message: "Method not allowed.",
			}, 0)
		}
	}
}

func (r *Router) info(w http.ResponseWriter, req *http.Request, in Instrument) {
	ctx := req.Context()
	if err := r.authorize(req, domain.ActionInfo); err != nil {
		r.fail(w, req, in, "info", err)
		return
	}

	m, err := call(ctx, r, in, "info", in.Kind.InfoFunction, nil, domain.ExpectMap)
	if err != nil {
		r.fail(w, req, in, "info", err)
		return
	}
	doc, err := in.Kind.DecodeInfo(m)
	if err != nil {
		r.fail(w, req, in, "info", err)
		return
	}
	r.respond(w, req, in, doc)
}

func (r *Router) execute(w http.ResponseWriter, req *http.Request, in Instrument) {
	ctx := req.Context()
	if err := r.authorize(req, domain.ActionExecute); err != nil {
		r.fail(w, req, in, "execute", err)
		return
	}

	cmd, err := document.ParseExecute(req.Body)
	if err != nil {
		r.fail(w, req, in, "execute", err)
		return
	}
	params, err := document.Values(cmd.Params)
	if err != nil {
		r.fail(w, req, in, "execute", err)
		return
	}

	result, err := call(ctx, r, in, "execute", cmd.FunctionName, params, domain.ExpectScalar)
	if err != nil {
		r.fail(w, req, in, "execute", err)
		return
	}
	slog.InfoContext(ctx, "instrument command executed",
		"instrument", in.Name,
		"function", cmd.FunctionName,
		"principal_id", principalID(req),
		"request_id", gw.RequestIDFromContext(ctx),
	)
	r.respond(w, req, in, in.Kind.NewExecute(cmd.FunctionName, cmd.Params, result))
}

func (r *Router) authorize(req *http.Request, action domain.Action) error {
	p, ok := gw.PrincipalFromContext(req.Context())
	if !ok {
		return domain.ErrUnauthorized
	}
	return r.authz.Authorize(req.Context(), p, action, domain.AccessRequest{RemoteAddr: gw.ClientIP(req)})
}

// call performs one controller call and checks the result shape with expect.
func call[T any](ctx context.Context, r *Router, in Instrument, operation, function string, params []any, expect func(domain.CallResult) (T, error)) (T, error) {
	start := time.Now()
	v, err := expect(in.Caller.Call(ctx, function, params))
	if r.metrics != nil {
		result := "success"
		switch {
		case errors.Is(err, domain.ErrServiceUnavailable):
			result = "unavailable"
		case err != nil:
			result = "error"
		}
		r.metrics.RecordRPCCall(ctx, in.Name, operation, result, time.Since(start).Seconds())
	}
	return v, err
}

func (r *Router) respond(w http.ResponseWriter, req *http.Request, in Instrument, doc any) {
	body, err := document.Encode(doc)
	if err != nil {
		r.fail(w, req, in, "encode", err)
		return
	}
	gw.WriteXML(w, http.StatusOK, body)
}

func (r *Router) fail(w http.ResponseWriter, req *http.Request, in Instrument, operation string, err error) {
	p := gw.StatusOf(err)
	attrs := []any{
		"instrument", in.Name,
		"operation", operation,
		"status", p.Status,
		"principal_id", principalID(req),
		"request_id", gw.RequestIDFromContext(req.Context()),
		"error", err,
	}
	if p.Status >= http.StatusInternalServerError {
		slog.ErrorContext(req.Context(), "instrument request failed", attrs...)
	} else {
		slog.InfoContext(req.Context(), "instrument request rejected", attrs...)
	}
	gw.WriteProblem(w, p, 0)
}

func principalID(req *http.Request) string {
	p, _ := gw.PrincipalFromContext(req.Context())
	return p.ID
}

func (r *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
		slog.Error("encoding healthz response", "error", err)
	}
}

func (r *Router) readyz(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	status := map[string]string{"status": "ready"}
	if r.ready != nil {
		if err := r.ready(req.Context()); err != nil {
			slog.Warn("readiness check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			status = map[string]string{"status": "unavailable"}
		}
	}
	if err := json.NewEncoder(w).Encode(status); err != nil {
		slog.Error("encoding readyz response", "error", err)
	}
}
