// Package metrics holds the OpenTelemetry instruments of the gate flow.
// Instruments come from the global MeterProvider, so they are no-ops until
// the binary installs an SDK.
package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const scope = "github.com/m3rciful/subgate/gate"

// Recorder records gate counters. The zero value and a nil *Recorder are
// both safe and record nothing.
type Recorder struct {
	flowsStarted   metric.Int64Counter
	flowsCompleted metric.Int64Counter
	verifyEvents   metric.Int64Counter
	providerCalls  metric.Int64Counter
	providerTook   metric.Float64Histogram
}

// New builds a Recorder on the global meter provider.
func New() *Recorder {
	return NewWithMeter(otel.Meter(scope))
}

// NewWithMeter builds a Recorder on the given meter. Instruments that fail
// to register are left nil and silently skipped.
func NewWithMeter(meter metric.Meter) *Recorder {
	r := &Recorder{}
	r.flowsStarted, _ = meter.Int64Counter("gate.flows.started",
		metric.WithDescription("Flows that received a first batch"))
	r.flowsCompleted, _ = meter.Int64Counter("gate.flows.completed",
		metric.WithDescription("Flows that reached the reward"))
	r.verifyEvents, _ = meter.Int64Counter("gate.verify.events",
		metric.WithDescription("Verify presses by outcome"))
	r.providerCalls, _ = meter.Int64Counter("gate.provider.calls",
		metric.WithDescription("Task provider calls by operation and status"))
	r.providerTook, _ = meter.Float64Histogram("gate.provider.duration",
		metric.WithDescription("Task provider call latency"),
		metric.WithUnit("s"))
	return r
}

// FlowStarted counts a started flow.
func (r *Recorder) FlowStarted(ctx context.Context) {
	if r == nil || r.flowsStarted == nil {
		return
	}
	r.flowsStarted.Add(ctx, 1)
}

// FlowCompleted counts a flow that reached the reward.
func (r *Recorder) FlowCompleted(ctx context.Context) {
	if r == nil || r.flowsCompleted == nil {
		return
	}
	r.flowsCompleted.Add(ctx, 1)
}

// VerifyEvent counts a verify press with its outcome.
func (r *Recorder) VerifyEvent(ctx context.Context, outcome string) {
	if r == nil || r.verifyEvents == nil {
		return
	}
	r.verifyEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// ProviderCall counts a provider call and records its latency.
func (r *Recorder) ProviderCall(ctx context.Context, op, status string, took time.Duration) {
	if r == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("op", op), attribute.String("status", status))
	if r.providerCalls != nil {
		r.providerCalls.Add(ctx, 1, attrs)
	}
	if r.providerTook != nil {
		r.providerTook.Record(ctx, took.Seconds(), attrs)
	}
}
