package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// ShutdownFunc releases telemetry resources.
type ShutdownFunc func(ctx context.Context) error

// Setup initializes OpenTelemetry with a Prometheus exporter.
// Returns a shutdown function that must be called on exit.
func Setup(ctx context.Context, serviceName string) (ShutdownFunc, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	return provider.Shutdown, nil
}

// MetricsHandler returns an http.Handler that serves Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// GatewayMetrics holds all OTel instruments for the gateway.
type GatewayMetrics struct {
	httpRequestsTotal       otelmetric.Int64Counter
	httpRequestDuration     otelmetric.Float64Histogram
	authValidationsTotal    otelmetric.Int64Counter
	jwksRefreshesTotal      otelmetric.Int64Counter
	rateLimitDecisionsTotal otelmetric.Int64Counter
	rpcCallsTotal           otelmetric.Int64Counter
	rpcDuration             otelmetric.Float64Histogram
	policyDecisionsTotal    otelmetric.Int64Counter
	passwordResetsTotal     otelmetric.Int64Counter
	mailDeliveriesTotal     otelmetric.Int64Counter
}

// NewGatewayMetrics creates and registers all gateway metrics.
func NewGatewayMetrics() (*GatewayMetrics, error) {
	meter := otel.Meter("observe")
	m := &GatewayMetrics{}
	var err error

	latencyBuckets := otelmetric.WithExplicitBucketBoundaries(
		0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0,
	)

	if m.httpRequestsTotal, err = meter.Int64Counter("observe_http_requests_total",
		otelmetric.WithDescription("Total HTTP requests")); err != nil {
		return nil, fmt.Errorf("creating http_requests_total: %w", err)
	}
	if m.httpRequestDuration, err = meter.Float64Histogram("observe_http_request_duration_seconds",
		otelmetric.WithDescription("HTTP request duration"), latencyBuckets); err != nil {
		return nil, fmt.Errorf("creating http_request_duration: %w", err)
	}
	if m.authValidationsTotal, err = meter.Int64Counter("observe_auth_validations_total",
		otelmetric.WithDescription("Total auth validations")); err != nil {
		return nil, fmt.Errorf("creating auth_validations_total: %w", err)
	}
	if m.jwksRefreshesTotal, err = meter.Int64Counter("observe_jwks_refreshes_total",
		otelmetric.WithDescription("Total JWKS refreshes")); err != nil {
		return nil, fmt.Errorf("creating jwks_refreshes_total: %w", err)
	}
	if m.rateLimitDecisionsTotal, err = meter.Int64Counter("observe_ratelimit_decisions_total",
		otelmetric.WithDescription("Total rate limit decisions")); err != nil {
		return nil, fmt.Errorf("creating ratelimit_decisions_total: %w", err)
	}
	if m.rpcCallsTotal, err = meter.Int64Counter("observe_rpc_calls_total",
		otelmetric.WithDescription("Total instrument RPC calls")); err != nil {
		return nil, fmt.Errorf("creating rpc_calls_total: %w", err)
	}
	if m.rpcDuration, err = meter.Float64Histogram("observe_rpc_duration_seconds",
		otelmetric.WithDescription("Instrument RPC call duration"), latencyBuckets); err != nil {
		return nil, fmt.Errorf("creating rpc_duration: %w", err)
	}
	if m.policyDecisionsTotal, err = meter.Int64Counter("observe_policy_decisions_total",
		otelmetric.WithDescription("Total access policy decisions")); err != nil {
		return nil, fmt.Errorf("creating policy_decisions_total: %w", err)
	}
	if m.passwordResetsTotal, err = meter.Int64Counter("observe_password_resets_total",
		otelmetric.WithDescription("Total password reset requests and redemptions")); err != nil {
		return nil, fmt.Errorf("creating password_resets_total: %w", err)
	}
	if m.mailDeliveriesTotal, err = meter.Int64Counter("observe_mail_deliveries_total",
		otelmetric.WithDescription("Total outbound mail deliveries")); err != nil {
		return nil, fmt.Errorf("creating mail_deliveries_total: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request metric.
func (m *GatewayMetrics) RecordHTTPRequest(ctx context.Context, method, path string, status int, durationSec float64) {
	attrs := otelmetric.WithAttributes(
		methodAttr(method),
		pathAttr(path),
		statusAttr(status),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, durationSec, attrs)
}

// RecordAuthValidation records an auth validation result for a credential scheme.
func (m *GatewayMetrics) RecordAuthValidation(ctx context.Context, scheme, result string) {
	m.authValidationsTotal.Add(ctx, 1, otelmetric.WithAttributes(schemeAttr(scheme), resultAttr(result)))
}

// RecordJWKSRefresh records a JWKS refresh attempt.
func (m *GatewayMetrics) RecordJWKSRefresh(ctx context.Context, result string) {
	m.jwksRefreshesTotal.Add(ctx, 1, otelmetric.WithAttributes(resultAttr(result)))
}

// RecordRateLimitDecision records a rate limit decision for a request class
// ("read" or "command").
func (m *GatewayMetrics) RecordRateLimitDecision(ctx context.Context, class, result string) {
	m.rateLimitDecisionsTotal.Add(ctx, 1, otelmetric.WithAttributes(classAttr(class), resultAttr(result)))
}

// RecordRPCCall records a call to an instrument controller.
func (m *GatewayMetrics) RecordRPCCall(ctx context.Context, instrument, operation, result string, durationSec float64) {
	attrs := otelmetric.WithAttributes(
		instrumentAttr(instrument),
		operationAttr(operation),
		resultAttr(result),
	)
	m.rpcCallsTotal.Add(ctx, 1, attrs)
	m.rpcDuration.Record(ctx, durationSec, attrs)
}

// RecordPolicyDecision records an access policy decision.
func (m *GatewayMetrics) RecordPolicyDecision(ctx context.Context, action, result string) {
	m.policyDecisionsTotal.Add(ctx, 1, otelmetric.WithAttributes(actionAttr(action), resultAttr(result)))
}

// RecordPasswordReset records a reset request or redemption outcome.
func (m *GatewayMetrics) RecordPasswordReset(ctx context.Context, stage, result string) {
	m.passwordResetsTotal.Add(ctx, 1, otelmetric.WithAttributes(stageAttr(stage), resultAttr(result)))
}

// RecordMailDelivery records an outbound mail attempt.
func (m *GatewayMetrics) RecordMailDelivery(ctx context.Context, result string) {
	m.mailDeliveriesTotal.Add(ctx, 1, otelmetric.WithAttributes(resultAttr(result)))
}
