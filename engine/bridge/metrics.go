package bridge

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "taskbridge.bridge"

type executionOutcome string

const (
	outcomeSuccess  executionOutcome = "success"
	outcomeError    executionOutcome = "error"
	outcomeNotFound executionOutcome = "not_found"
	outcomeTimeout  executionOutcome = "timeout"
)

type errorKind string

const (
	errorKindConfig  errorKind = "config"
	errorKindStart   errorKind = "start"
	errorKindStdin   errorKind = "stdin"
	errorKindWait    errorKind = "wait"
	errorKindExit    errorKind = "exit"
	errorKindParse   errorKind = "parse"
	errorKindTimeout errorKind = "timeout"
)

type processStatus string

const (
	processStatusExit   processStatus = "exit"
	processStatusSignal processStatus = "signal"
)

type bridgeMetrics struct {
	executionLatency metric.Float64Histogram
	errorCounter     metric.Int64Counter
	processExits     metric.Int64Counter
	outputSize       metric.Float64Histogram
}

func newBridgeMetrics(provider metric.MeterProvider) *bridgeMetrics {
	if provider == nil {
		provider = noop.NewMeterProvider()
	}
	meter := provider.Meter(meterName)
	fallback := noop.NewMeterProvider().Meter(meterName)
	return &bridgeMetrics{
		executionLatency: createHistogram(
			meter,
			fallback,
			"taskbridge_bridge_execute_seconds",
			"Latency of task engine executions from spawn to exit",
			"s",
			[]float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
		),
		errorCounter: createCounter(
			meter,
			fallback,
			"taskbridge_bridge_errors_total",
			"Total task engine execution errors categorized by failure point",
		),
		processExits: createCounter(
			meter,
			fallback,
			"taskbridge_bridge_process_exits_total",
			"Task engine process termination reasons",
		),
		outputSize: createHistogram(
			meter,
			fallback,
			"taskbridge_bridge_output_bytes",
			"Size distribution of task engine stdout payloads",
			"By",
			[]float64{100, 1000, 10000, 100000, 1000000, 10000000},
		),
	}
}

func createHistogram(
	meter metric.Meter,
	fallback metric.Meter,
	name string,
	description string,
	unit string,
	boundaries []float64,
) metric.Float64Histogram {
	opts := []metric.Float64HistogramOption{
		metric.WithDescription(description),
		metric.WithUnit(unit),
		metric.WithExplicitBucketBoundaries(boundaries...),
	}
	histogram, err := meter.Float64Histogram(name, opts...)
	if err != nil {
		histogram, _ = fallback.Float64Histogram(name, opts...)
	}
	return histogram
}

func createCounter(meter metric.Meter, fallback metric.Meter, name string, description string) metric.Int64Counter {
	opts := []metric.Int64CounterOption{
		metric.WithDescription(description),
		metric.WithUnit("1"),
	}
	counter, err := meter.Int64Counter(name, opts...)
	if err != nil {
		counter, _ = fallback.Int64Counter(name, opts...)
	}
	return counter
}

func (m *bridgeMetrics) recordExecution(
	ctx context.Context,
	engine string,
	outcome executionOutcome,
	duration time.Duration,
) {
	m.executionLatency.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("engine", engine),
		attribute.String("outcome", string(outcome)),
	))
}

func (m *bridgeMetrics) recordError(ctx context.Context, engine string, kind errorKind) {
	m.errorCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("engine", engine),
		attribute.String("kind", string(kind)),
	))
}

func (m *bridgeMetrics) recordExit(ctx context.Context, engine string, status processStatus, code int) {
	m.processExits.Add(ctx, 1, metric.WithAttributes(
		attribute.String("engine", engine),
		attribute.String("status", string(status)),
		attribute.Int("exit_code", code),
	))
}

func (m *bridgeMetrics) recordOutputSize(ctx context.Context, engine string, size int) {
	m.outputSize.Record(ctx, float64(size), metric.WithAttributes(
		attribute.String("engine", engine),
	))
}
