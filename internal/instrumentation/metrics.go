package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys - using constants for consistency.
const (
	attrKind   = "kind"
	attrResult = "result"
	attrEvent  = "event"
	attrTool   = "tool"
	attrStatus = "status"
)

// Watcher event kinds as used in metric labels.
const (
	EventNew      = "new"
	EventModified = "modified"
	EventRemoved  = "removed"
)

// Metrics provides methods for recording observability metrics.
//
// The zero value is a no-op recorder: every method checks that its
// instruments are initialized and returns silently otherwise, so a disabled
// provider can hand out &Metrics{} safely.
type Metrics struct {
	// Resource registry metrics
	resourcesActive metric.Int64UpDownCounter

	// Session metrics
	trackedSessions     metric.Int64UpDownCounter
	subscribedResources metric.Int64UpDownCounter

	// Notification fan-out metrics
	notificationsTotal        metric.Int64Counter
	notificationsDroppedTotal metric.Int64Counter

	// Watcher metrics
	watcherCyclesTotal  metric.Int64Counter
	watcherCycleSeconds metric.Float64Histogram
	watcherEventsTotal  metric.Int64Counter

	// MCP tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram
}

// NewMetrics creates a new Metrics instance with all instruments initialized.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.resourcesActive, err = meter.Int64UpDownCounter(
		"resources_active",
		metric.WithDescription("Number of resources currently in the registry"),
		metric.WithUnit("{resource}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resources_active gauge: %w", err)
	}

	m.trackedSessions, err = meter.Int64UpDownCounter(
		"tracked_sessions",
		metric.WithDescription("Number of sessions tracked for list-changed broadcasts"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracked_sessions gauge: %w", err)
	}

	m.subscribedResources, err = meter.Int64UpDownCounter(
		"subscribed_resources",
		metric.WithDescription("Number of resource URIs with at least one subscriber"),
		metric.WithUnit("{resource}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscribed_resources gauge: %w", err)
	}

	m.notificationsTotal, err = meter.Int64Counter(
		"notifications_total",
		metric.WithDescription("Total number of notification deliveries by kind and result"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create notifications_total counter: %w", err)
	}

	m.notificationsDroppedTotal, err = meter.Int64Counter(
		"notifications_dropped_total",
		metric.WithDescription("Total number of notifications dropped because the fan-out queue was full"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create notifications_dropped_total counter: %w", err)
	}

	m.watcherCyclesTotal, err = meter.Int64Counter(
		"watcher_cycles_total",
		metric.WithDescription("Total number of completed watcher poll cycles"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher_cycles_total counter: %w", err)
	}

	m.watcherCycleSeconds, err = meter.Float64Histogram(
		"watcher_cycle_duration_seconds",
		metric.WithDescription("Watcher diff-computation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher_cycle_duration_seconds histogram: %w", err)
	}

	m.watcherEventsTotal, err = meter.Int64Counter(
		"watcher_events_total",
		metric.WithDescription("Total number of watcher file events by kind (new, modified, removed)"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher_events_total counter: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// AddResources adjusts the active resource gauge by delta.
func (m *Metrics) AddResources(ctx context.Context, delta int64) {
	if m == nil || m.resourcesActive == nil {
		return
	}
	m.resourcesActive.Add(ctx, delta)
}

// AddTrackedSessions adjusts the tracked session gauge by delta.
func (m *Metrics) AddTrackedSessions(ctx context.Context, delta int64) {
	if m == nil || m.trackedSessions == nil {
		return
	}
	m.trackedSessions.Add(ctx, delta)
}

// AddSubscribedResources adjusts the subscribed-resource gauge by delta.
func (m *Metrics) AddSubscribedResources(ctx context.Context, delta int64) {
	if m == nil || m.subscribedResources == nil {
		return
	}
	m.subscribedResources.Add(ctx, delta)
}

// RecordNotification records one notification delivery attempt.
// Kind is "list_changed" or "resource_updated"; result is "success" or "error".
func (m *Metrics) RecordNotification(ctx context.Context, kind, result string) {
	if m == nil || m.notificationsTotal == nil {
		return
	}
	m.notificationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrKind, kind),
		attribute.String(attrResult, result),
	))
}

// RecordNotificationDropped records a notification that was dropped because
// the fan-out queue was saturated.
func (m *Metrics) RecordNotificationDropped(ctx context.Context, kind string) {
	if m == nil || m.notificationsDroppedTotal == nil {
		return
	}
	m.notificationsDroppedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrKind, kind),
	))
}

// RecordWatcherCycle records a completed poll cycle and its diff duration.
func (m *Metrics) RecordWatcherCycle(ctx context.Context, duration time.Duration) {
	if m == nil || m.watcherCyclesTotal == nil || m.watcherCycleSeconds == nil {
		return
	}
	m.watcherCyclesTotal.Add(ctx, 1)
	m.watcherCycleSeconds.Record(ctx, duration.Seconds())
}

// RecordWatcherEvent records one observed file transition by kind
// (EventNew, EventModified, EventRemoved).
func (m *Metrics) RecordWatcherEvent(ctx context.Context, event string) {
	if m == nil || m.watcherEventsTotal == nil {
		return
	}
	m.watcherEventsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrEvent, event),
	))
}

// RecordToolInvocation records an MCP tool invocation with name, status, and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}
	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
