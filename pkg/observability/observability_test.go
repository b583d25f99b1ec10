package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/semevo/pkg/model"
	"github.com/Sumatoshi-tech/semevo/pkg/observability"
)

var errBoom = errors.New("boom")

func newReader(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	t.Cleanup(func() { require.NoError(t, mp.Shutdown(context.Background())) })

	return mp, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}

func sumValue(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	require.NotNil(t, m)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}

	return total
}

// TestInit_NoopByDefault verifies the zero-config providers are usable and
// expose no metrics handler.
func TestInit_NoopByDefault(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.LogWriter = &bytes.Buffer{}

	p, err := observability.Init(cfg)
	require.NoError(t, err)

	assert.NotNil(t, p.Tracer)
	assert.NotNil(t, p.Meter)
	assert.NotNil(t, p.Logger)
	assert.Nil(t, p.MetricsHandler)
	require.NoError(t, p.Shutdown(context.Background()))
}

// TestInit_PrometheusServesRunMetrics verifies instruments created from the
// returned meter appear on the scrape endpoint.
func TestInit_PrometheusServesRunMetrics(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.Prometheus = true
	cfg.LogWriter = &bytes.Buffer{}

	p, err := observability.Init(cfg)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, p.Shutdown(context.Background())) })
	require.NotNil(t, p.MetricsHandler)

	rm, err := observability.NewRunMetrics(p.Meter)
	require.NoError(t, err)

	rm.RecordRun(context.Background(), model.Generalization, observability.StatusOK, 12, time.Second)

	rec := httptest.NewRecorder()
	observability.NewMetricsMux(p).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "semevo_model_runs_total")
}

// TestNewMetricsMux_Healthz verifies the liveness endpoint.
func TestNewMetricsMux_Healthz(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.LogWriter = &bytes.Buffer{}

	p, err := observability.Init(cfg)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	observability.NewMetricsMux(p).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

// TestNewLogger_InjectsTraceContext verifies trace_id and span_id appear on
// records logged inside a span.
func TestNewLogger_InjectsTraceContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.LogJSON = true
	cfg.LogWriter = &buf
	cfg.Environment = "lab"

	logger := observability.NewLogger(cfg)

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	logger.InfoContext(ctx, "hello", "n", 3)
	span.End()

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))

	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "semevo", rec["service"])
	assert.Equal(t, "lab", rec["env"])
	assert.Equal(t, string(observability.ModeCLI), rec["mode"])
	assert.Equal(t, span.SpanContext().TraceID().String(), rec["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), rec["span_id"])
}

// TestNewLogger_NoSpan verifies records outside a span carry no trace fields.
func TestNewLogger_NoSpan(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.LogWriter = &buf

	observability.NewLogger(cfg).Info("plain")

	assert.Contains(t, buf.String(), "msg=plain")
	assert.NotContains(t, buf.String(), "trace_id")
}

// TestParseLevel verifies level names and the info fallback.
func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelDebug, observability.ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, observability.ParseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, observability.ParseLevel("chatty"))
}

// TestParseOTLPHeaders verifies key=value parsing.
func TestParseOTLPHeaders(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		map[string]string{"api-key": "abc", "tenant": "lab"},
		observability.ParseOTLPHeaders("api-key=abc, tenant = lab,broken"),
	)
	assert.Nil(t, observability.ParseOTLPHeaders(""))
	assert.Nil(t, observability.ParseOTLPHeaders("novalue"))
}

// TestAttributeFilter verifies only allow-listed attributes reach the exporter.
func TestAttributeFilter(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(observability.NewAttributeFilter(sdktrace.NewSimpleSpanProcessor(exporter))),
	)

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	_, span := tp.Tracer("test").Start(context.Background(), "run")
	span.SetAttributes(
		attribute.Int("model.interval_numb", 10),
		attribute.String("user.email", "x@example.com"),
	)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	keys := make([]string, 0, len(spans[0].Attributes))
	for _, kv := range spans[0].Attributes {
		keys = append(keys, string(kv.Key))
	}

	assert.Equal(t, []string{"model.interval_numb"}, keys)
}

// TestREDMetrics verifies request and error counting and the in-flight gauge.
func TestREDMetrics(t *testing.T) {
	t.Parallel()

	mp, reader := newReader(t)

	red, err := observability.NewREDMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	done := red.TrackInflight(ctx, "semevo_cover")

	red.RecordRequest(ctx, "semevo_cover", observability.StatusOK, time.Millisecond)
	red.RecordRequest(ctx, "semevo_cover", observability.StatusError, time.Millisecond)

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(2), sumValue(t, findMetric(rm, "semevo.requests.total")))
	assert.Equal(t, int64(1), sumValue(t, findMetric(rm, "semevo.errors.total")))
	assert.Equal(t, int64(1), sumValue(t, findMetric(rm, "semevo.inflight.requests")))
	assert.NotNil(t, findMetric(rm, "semevo.request.duration.seconds"))

	done()

	rm = collectMetrics(t, reader)
	assert.Zero(t, sumValue(t, findMetric(rm, "semevo.inflight.requests")))
}

// TestRunMetrics_Observer verifies rounds and resolutions are counted.
func TestRunMetrics_Observer(t *testing.T) {
	t.Parallel()

	mp, reader := newReader(t)

	rm, err := observability.NewRunMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	obs := rm.Observer(ctx)

	obs.ObserveRound(model.RoundStats{Model: model.Specialization, Round: 1, Resolved: 4})
	obs.ObserveRound(model.RoundStats{Model: model.Specialization, Round: 2})

	rm.RecordRun(ctx, model.Specialization, observability.StatusNotConverged, 2, time.Millisecond)

	data := collectMetrics(t, reader)
	assert.Equal(t, int64(2), sumValue(t, findMetric(data, "semevo.model.rounds.total")))
	assert.Equal(t, int64(4), sumValue(t, findMetric(data, "semevo.model.resolutions.total")))
	assert.Equal(t, int64(1), sumValue(t, findMetric(data, "semevo.model.runs.total")))
	assert.NotNil(t, findMetric(data, "semevo.model.run.rounds"))
}

// TestRunStatus verifies error classification.
func TestRunStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, observability.StatusOK, observability.RunStatus(nil))
	assert.Equal(t, observability.StatusError, observability.RunStatus(errBoom))
	assert.Equal(t, observability.StatusNotConverged, observability.RunStatus(&model.NotConvergedError{
		Model:  model.Generalization,
		Reason: model.ReasonMaxRounds,
	}))
}

// TestRoundLogger verifies only every n-th round is logged.
func TestRoundLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	obs := observability.RoundLogger(context.Background(), logger, 2)

	for round := 1; round <= 4; round++ {
		obs.ObserveRound(model.RoundStats{Model: model.Generalization, Round: round, Active: 5 - round})
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "round=2")
	assert.Contains(t, lines[1], "round=4")
}

// TestTracingHandler_RunAttributes verifies records logged under WithRun
// carry the model run identity next to the service attributes.
func TestTracingHandler_RunAttributes(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(observability.NewTracingHandler(inner, "semevo", "", observability.ModeCLI))

	ctx := observability.WithRun(context.Background(), observability.RunInfo{
		Model: model.Specialization,
		Run:   3,
		Seed:  1103,
	})

	info, ok := observability.RunFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, 3, info.Run)

	logger.InfoContext(ctx, "job converged")
	logger.InfoContext(context.Background(), "sweep finished")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var withRun map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &withRun))
	assert.Equal(t, model.Specialization, withRun["model.name"])
	assert.InDelta(t, 3, withRun["model.run"], 0)
	assert.InDelta(t, 1103, withRun["model.seed"], 0)
	assert.Equal(t, "semevo", withRun["service"])

	var plain map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &plain))
	assert.NotContains(t, plain, "model.name")
}

// TestHTTPMiddleware verifies a server span is recorded with the status.
func TestHTTPMiddleware(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	handler := http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusInternalServerError)
	})

	rec := httptest.NewRecorder()
	observability.HTTPMiddleware(tp.Tracer("test"), handler).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /metrics", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
}
