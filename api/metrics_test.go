package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type tracing struct {
	tp       *sdktrace.TracerProvider
	exporter *tracetest.InMemoryExporter
}

// installTracer swaps the global tracer provider for one backed by an
// in-memory exporter until the test ends.
func installTracer(t *testing.T) *tracing {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return &tracing{tp: tp, exporter: exporter}
}

// onlySpan flushes and returns the single recorded span.
func (tr *tracing) onlySpan(t *testing.T) tracetest.SpanStub {
	t.Helper()
	if err := tr.tp.ForceFlush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	spans := tr.exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("want 1 span, got %d", len(spans))
	}
	return spans[0]
}

func observabilityAttrs(t *testing.T, span tracetest.SpanStub) map[string]any {
	t.Helper()
	for _, ev := range span.Events {
		if ev.Name == observabilityMsg {
			return attrMap(ev.Attributes)
		}
	}
	t.Fatalf("span has no %s event: %#v", observabilityMsg, span.Events)
	return nil
}

func attrMap(kvs []attribute.KeyValue) map[string]any {
	m := make(map[string]any, len(kvs))
	for _, kv := range kvs {
		m[string(kv.Key)] = kv.Value.AsInterface()
	}
	return m
}

func loggedAttrs(t *testing.T, entry *log.Entry) map[string]any {
	t.Helper()
	attrs, ok := entry.Data["attributes"].(map[string]any)
	if !ok {
		t.Fatalf("attributes field is %T", entry.Data["attributes"])
	}
	return attrs
}

func TestRequestMetricsSuccess(t *testing.T) {
	tr := installTracer(t)
	logger, hook := test.NewNullLogger()

	m, _ := newRequestMetrics(context.Background(), logger, "/api/tasks", http.MethodPut)
	m.start = m.start.Add(-40 * time.Millisecond)
	m.ObserveService(15 * time.Millisecond)
	m.SetRequestID("req-1")
	m.Log(http.StatusOK, nil)

	entry := hook.LastEntry()
	if entry == nil || entry.Message != observabilityMsg {
		t.Fatalf("expected observability log entry, got %#v", entry)
	}
	if entry.Level != log.InfoLevel || entry.Data["severity_text"] != "INFO" || entry.Data["severity_number"] != 9 {
		t.Fatalf("unexpected severity on %#v", entry.Data)
	}
	if entry.Data["event.name"] != requestEventName || entry.Data["event.domain"] != requestEventDomain {
		t.Fatalf("unexpected event identity on %#v", entry.Data)
	}
	if id, _ := entry.Data["trace_id"].(string); id == "" {
		t.Fatal("trace_id missing from log entry")
	}

	attrs := loggedAttrs(t, entry)
	want := map[string]any{
		attrRoute:      "/api/tasks",
		attrMethod:     http.MethodPut,
		attrStatusCode: http.StatusOK,
		attrRequestID:  "req-1",
		attrSvcMillis:  15.0,
	}
	for k, v := range want {
		if attrs[k] != v {
			t.Fatalf("attribute %s = %#v, want %#v", k, attrs[k], v)
		}
	}
	if total, _ := attrs[attrTotalMillis].(float64); total < 40 {
		t.Fatalf("total_ms = %v, want >= 40", attrs[attrTotalMillis])
	}
	if _, ok := attrs[attrErrorStage]; ok {
		t.Fatalf("unexpected error stage %#v", attrs[attrErrorStage])
	}

	span := tr.onlySpan(t)
	if span.Name != requestSpanName || span.SpanKind.String() != "server" {
		t.Fatalf("unexpected span %s (%s)", span.Name, span.SpanKind)
	}
	if span.Status.Code != codes.Ok {
		t.Fatalf("span status = %v, want Ok", span.Status.Code)
	}
	if code := attrMap(span.Attributes)[attrStatusCode]; code != int64(http.StatusOK) {
		t.Fatalf("span status code attribute = %#v", code)
	}
	if sev := observabilityAttrs(t, span)["severity_text"]; sev != "INFO" {
		t.Fatalf("span event severity = %#v", sev)
	}
}

func TestRequestMetricsFailure(t *testing.T) {
	tr := installTracer(t)
	logger, hook := test.NewNullLogger()

	m, _ := newRequestMetrics(context.Background(), logger, "/api/board", http.MethodGet)
	m.SetErrorStage("store")
	boom := errors.New("load board: connection refused")
	m.Log(http.StatusInternalServerError, boom)

	if entry := hook.LastEntry(); entry == nil || entry.Level != log.ErrorLevel {
		t.Fatalf("expected error level entry, got %#v", entry)
	}

	span := tr.onlySpan(t)
	if span.Status.Code != codes.Error || span.Status.Description != boom.Error() {
		t.Fatalf("span status = %v %q", span.Status.Code, span.Status.Description)
	}
	attrs := observabilityAttrs(t, span)
	if attrs["severity_text"] != "ERROR" || attrs[attrErrorStage] != "store" || attrs[attrErrorMsg] != boom.Error() {
		t.Fatalf("unexpected span event attributes %#v", attrs)
	}
}

func TestRequestMetricsRecordedError(t *testing.T) {
	installTracer(t)
	logger, hook := test.NewNullLogger()

	m, _ := newRequestMetrics(context.Background(), logger, "/api/tasks", http.MethodPost)
	m.SetErrorStage("validation")
	m.SetError(errors.New("Missing task text"))
	m.Log(http.StatusBadRequest, nil)

	entry := hook.LastEntry()
	if entry == nil || entry.Level != log.WarnLevel {
		t.Fatalf("expected warn level entry, got %#v", entry)
	}
	attrs := loggedAttrs(t, entry)
	if attrs[attrErrorMsg] != "Missing task text" || attrs[attrErrorStage] != "validation" {
		t.Fatalf("unexpected attributes %#v", attrs)
	}
}

func TestRequestMetricsMiddleware(t *testing.T) {
	tr := installTracer(t)
	logger, hook := test.NewNullLogger()

	e := echo.New()
	e.HTTPErrorHandler = httpErrorHandler
	e.Use(RequestMetricsMiddleware(logger))
	e.DELETE("/api/tasks", func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderXRequestID, "abc")
		return echo.NewHTTPError(http.StatusTeapot, "short and stout")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/tasks", nil))

	if rec.Code != http.StatusTeapot || !strings.Contains(rec.Body.String(), "short and stout") {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("no log entry")
	}
	attrs := loggedAttrs(t, entry)
	if attrs[attrRoute] != "/api/tasks" || attrs[attrStatusCode] != http.StatusTeapot || attrs[attrRequestID] != "abc" {
		t.Fatalf("unexpected attributes %#v", attrs)
	}
	if span := tr.onlySpan(t); span.Status.Code != codes.Error {
		t.Fatalf("span status = %v, want Error", span.Status.Code)
	}
}

func TestSeverityForStatus(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		status     int
		err        error
		wantText   string
		wantNumber int
	}{
		{status: http.StatusOK, wantText: "INFO", wantNumber: 9},
		{status: http.StatusCreated, wantText: "INFO", wantNumber: 9},
		{status: http.StatusNotFound, wantText: "WARN", wantNumber: 13},
		{status: http.StatusConflict, err: boom, wantText: "WARN", wantNumber: 13},
		{status: http.StatusServiceUnavailable, wantText: "ERROR", wantNumber: 17},
		{status: 0, err: boom, wantText: "ERROR", wantNumber: 17},
	}
	for _, tt := range tests {
		text, number := severityForStatus(tt.status, tt.err)
		if text != tt.wantText || number != tt.wantNumber {
			t.Fatalf("severityForStatus(%d, %v) = %s/%d, want %s/%d", tt.status, tt.err, text, number, tt.wantText, tt.wantNumber)
		}
	}
}
