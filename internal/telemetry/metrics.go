package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/WailSalutem-Health-Care/mindmap-service"

// Metrics holds all custom metrics for the service
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal metric.Int64Counter
	HTTPDurationMs    metric.Float64Histogram

	// Business metrics
	MindMapBuildsTotal     metric.Int64Counter
	MindMapNodes           metric.Int64Histogram
	NormalizerSkippedTotal metric.Int64Counter
	UpstreamFailuresTotal  metric.Int64Counter
	PatientOperationsTotal metric.Int64Counter

	// Auth metrics
	AuthFailuresTotal       metric.Int64Counter
	PermissionCheckDuration metric.Float64Histogram
}

// InitMetrics initializes all custom metrics on the global meter provider
func InitMetrics() (*Metrics, error) {
	return NewMetrics(otel.Meter(meterName))
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	httpRequestsTotal, err := meter.Int64Counter(
		"http_server_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	httpDurationMs, err := meter.Float64Histogram(
		"http_server_duration_milliseconds",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	mindMapBuildsTotal, err := meter.Int64Counter(
		"mindmap_builds_total",
		metric.WithDescription("Total number of mind maps produced, by outcome"),
		metric.WithUnit("{build}"),
	)
	if err != nil {
		return nil, err
	}

	mindMapNodes, err := meter.Int64Histogram(
		"mindmap_nodes",
		metric.WithDescription("Number of nodes in a produced mind map"),
		metric.WithUnit("{node}"),
	)
	if err != nil {
		return nil, err
	}

	normalizerSkippedTotal, err := meter.Int64Counter(
		"normalizer_skipped_records_total",
		metric.WithDescription("Records dropped while normalizing backend responses"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	upstreamFailuresTotal, err := meter.Int64Counter(
		"upstream_failures_total",
		metric.WithDescription("Failed fetches from the clinical record source"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	patientOperationsTotal, err := meter.Int64Counter(
		"patient_total",
		metric.WithDescription("Total number of patient record operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	authFailuresTotal, err := meter.Int64Counter(
		"auth_failures_total",
		metric.WithDescription("Total number of authentication failures"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	permissionCheckDuration, err := meter.Float64Histogram(
		"permission_check_duration_ms",
		metric.WithDescription("Permission check duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		HTTPRequestsTotal:       httpRequestsTotal,
		HTTPDurationMs:          httpDurationMs,
		MindMapBuildsTotal:      mindMapBuildsTotal,
		MindMapNodes:            mindMapNodes,
		NormalizerSkippedTotal:  normalizerSkippedTotal,
		UpstreamFailuresTotal:   upstreamFailuresTotal,
		PatientOperationsTotal:  patientOperationsTotal,
		AuthFailuresTotal:       authFailuresTotal,
		PermissionCheckDuration: permissionCheckDuration,
	}, nil
}

// RecordHTTPRequest records an HTTP request metric
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, durationMs float64) {
	attrs := []attribute.KeyValue{
		attribute.String("http_method", method),
		attribute.String("http_route", route),
		attribute.Int("http_status_code", statusCode),
	}

	m.HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.HTTPDurationMs.Record(ctx, durationMs, metric.WithAttributes(attrs...))
}

// RecordMindMapBuild records a produced mind map and its size
func (m *Metrics) RecordMindMapBuild(ctx context.Context, outcome string, nodes int) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.MindMapBuildsTotal.Add(ctx, 1, attrs)
	m.MindMapNodes.Record(ctx, int64(nodes), attrs)
}

// RecordNormalizerSkip records a record the normalizer dropped
func (m *Metrics) RecordNormalizerSkip(ctx context.Context, resource, reason string) {
	m.NormalizerSkippedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("resource", resource),
		attribute.String("reason", reason),
	))
}

// RecordUpstreamFailure records a failed fetch from the record source
func (m *Metrics) RecordUpstreamFailure(ctx context.Context, operation string) {
	m.UpstreamFailuresTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

// RecordPatientOperation records a patient operation metric
func (m *Metrics) RecordPatientOperation(ctx context.Context, operation string) {
	m.PatientOperationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

// RecordAuthFailure records an authentication failure metric
func (m *Metrics) RecordAuthFailure(ctx context.Context, reason string) {
	m.AuthFailuresTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}

// RecordPermissionCheck records a permission check duration metric
func (m *Metrics) RecordPermissionCheck(ctx context.Context, permission string, durationMs float64, allowed bool) {
	m.PermissionCheckDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("permission", permission),
		attribute.Bool("allowed", allowed),
	))
}
