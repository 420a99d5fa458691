package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName         = "mission-board/api"
	requestSpanName    = "board.request"
	requestEventName   = "board.api.request"
	requestEventDomain = "app"
	observabilityMsg   = "observability.event"

	attrRoute       = "http.route"
	attrMethod      = "http.method"
	attrStatusCode  = "http.status_code"
	attrTotalMillis = "board.total_ms"
	attrSvcMillis   = "board.service_ms"
	attrErrorStage  = "board.error_stage"
	attrRequestID   = "board.request_id"
	attrErrorMsg    = "error.message"

	metricsContextKey = "board.metrics"
)

type requestMetrics struct {
	logger          *log.Logger
	span            trace.Span
	start           time.Time
	route           string
	method          string
	serviceDuration time.Duration
	errorStage      string
	requestID       string
	failure         error
}

func newRequestMetrics(ctx context.Context, logger *log.Logger, route, method string) (*requestMetrics, context.Context) {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, requestSpanName, trace.WithSpanKind(trace.SpanKindServer))
	return &requestMetrics{
		logger: logger,
		span:   span,
		start:  time.Now(),
		route:  route,
		method: method,
	}, spanCtx
}

func (m *requestMetrics) ObserveService(d time.Duration) {
	if d <= 0 {
		return
	}
	m.serviceDuration = d
}

func (m *requestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

// SetError records an error the handler already rendered as a response.
func (m *requestMetrics) SetError(err error) {
	m.failure = err
}

func (m *requestMetrics) SetRequestID(id string) {
	m.requestID = id
}

// Log emits the request as one structured log entry and closes its span.
func (m *requestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}
	if err == nil {
		err = m.failure
	}
	severityText, severityNumber := severityForStatus(status, err)

	attrs := map[string]any{
		attrRoute:       m.route,
		attrMethod:      m.method,
		attrStatusCode:  status,
		attrTotalMillis: durationToMillis(time.Since(m.start)),
	}
	if m.serviceDuration > 0 {
		attrs[attrSvcMillis] = durationToMillis(m.serviceDuration)
	}
	if m.errorStage != "" {
		attrs[attrErrorStage] = m.errorStage
	}
	if m.requestID != "" {
		attrs[attrRequestID] = m.requestID
	}
	if err != nil {
		attrs[attrErrorMsg] = err.Error()
	}

	if m.span != nil {
		kvs := toKeyValues(attrs)
		m.span.SetAttributes(kvs...)
		event := append([]attribute.KeyValue{
			attribute.String("event.name", requestEventName),
			attribute.String("event.domain", requestEventDomain),
			attribute.String("severity_text", severityText),
		}, kvs...)
		m.span.AddEvent(observabilityMsg, trace.WithAttributes(event...))
		switch {
		case err != nil:
			m.span.SetStatus(codes.Error, err.Error())
		case status >= http.StatusInternalServerError:
			m.span.SetStatus(codes.Error, http.StatusText(status))
		default:
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}
	fields := log.Fields{
		"event.name":      requestEventName,
		"event.domain":    requestEventDomain,
		"severity_text":   severityText,
		"severity_number": severityNumber,
		"attributes":      attrs,
	}
	if m.span != nil {
		if sc := m.span.SpanContext(); sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
			fields["span_id"] = sc.SpanID().String()
		}
	}
	entry := m.logger.WithFields(fields)
	switch severityText {
	case "ERROR":
		entry.Error(observabilityMsg)
	case "WARN":
		entry.Warn(observabilityMsg)
	default:
		entry.Info(observabilityMsg)
	}
}

// severityForStatus maps to OpenTelemetry severity numbers.
func severityForStatus(status int, err error) (string, int) {
	switch {
	case status >= http.StatusInternalServerError, status == 0 && err != nil:
		return "ERROR", 17
	case status >= http.StatusBadRequest:
		return "WARN", 13
	default:
		return "INFO", 9
	}
}

func toKeyValues(attrs map[string]any) []attribute.KeyValue {
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		switch val := v.(type) {
		case string:
			kvs = append(kvs, attribute.String(k, val))
		case int:
			kvs = append(kvs, attribute.Int(k, val))
		case float64:
			kvs = append(kvs, attribute.Float64(k, val))
		case bool:
			kvs = append(kvs, attribute.Bool(k, val))
		}
	}
	return kvs
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}

// RequestMetricsMiddleware wraps every request in a span and logs one
// observability event when it completes.
func RequestMetricsMiddleware(logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			m, ctx := newRequestMetrics(req.Context(), logger, c.Path(), req.Method)
			c.SetRequest(req.WithContext(ctx))
			c.Set(metricsContextKey, m)

			err := next(c)
			if err != nil {
				// Let echo write the error response so the logged status is final.
				c.Error(err)
			}
			m.SetRequestID(c.Response().Header().Get(echo.HeaderXRequestID))
			m.Log(c.Response().Status, err)
			return nil
		}
	}
}

func metricsFrom(c echo.Context) *requestMetrics {
	m, _ := c.Get(metricsContextKey).(*requestMetrics)
	return m
}

func observeService(c echo.Context, start time.Time) {
	if m := metricsFrom(c); m != nil {
		m.ObserveService(time.Since(start))
	}
}

func setErrorStage(c echo.Context, stage string) {
	if m := metricsFrom(c); m != nil {
		m.SetErrorStage(stage)
	}
}

func recordError(c echo.Context, err error) {
	if m := metricsFrom(c); m != nil {
		m.SetError(err)
	}
}
