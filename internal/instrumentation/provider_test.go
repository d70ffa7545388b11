package instrumentation

import (
	"context"
	"testing"
	"time"
)

func TestNewProviderDisabled(t *testing.T) {
	config := DefaultConfig()
	config.Enabled = false

	provider, err := NewProvider(context.Background(), config)
	if err != nil {
		t.Fatalf("NewProvider() unexpected error: %v", err)
	}

	if provider.Enabled() {
		t.Error("expected provider to be disabled")
	}
	if provider.Metrics() == nil {
		t.Error("disabled provider must still return a no-op metrics recorder")
	}
	if provider.Tracer("test") == nil {
		t.Error("disabled provider must still return a tracer")
	}
	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() on disabled provider returned error: %v", err)
	}
}

func TestNoOpMetricsRecorderIsSafe(t *testing.T) {
	ctx := context.Background()

	// The zero value must be callable without panicking; a nil receiver too.
	var nilMetrics *Metrics
	recorders := []*Metrics{{}, nilMetrics}

	for _, m := range recorders {
		m.AddResources(ctx, 1)
		m.AddTrackedSessions(ctx, 1)
		m.AddSubscribedResources(ctx, -1)
		m.RecordNotification(ctx, "list_changed", StatusSuccess)
		m.RecordNotificationDropped(ctx, "resource_updated")
		m.RecordWatcherCycle(ctx, time.Millisecond)
		m.RecordWatcherEvent(ctx, EventNew)
		m.RecordToolInvocation(ctx, "resources_subscribe", StatusSuccess, time.Millisecond)
	}
}

func TestNewProviderStdoutExporters(t *testing.T) {
	config := DefaultConfig()
	config.Enabled = true
	config.MetricsExporter = ExporterStdout
	config.TracingExporter = ExporterStdout
	config.ServiceVersion = "test"

	provider, err := NewProvider(context.Background(), config)
	if err != nil {
		t.Fatalf("NewProvider() unexpected error: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown() returned error: %v", err)
		}
	}()

	if !provider.Enabled() {
		t.Error("expected provider to be enabled")
	}
	if provider.Metrics() == nil {
		t.Fatal("expected metrics recorder")
	}

	// Instruments are live; recording must not panic.
	provider.Metrics().RecordWatcherCycle(context.Background(), 5*time.Millisecond)
	provider.Metrics().RecordNotification(context.Background(), "list_changed", StatusSuccess)
}

func TestNewProviderInvalidExporter(t *testing.T) {
	config := DefaultConfig()
	config.Enabled = true
	config.MetricsExporter = "bogus"

	if _, err := NewProvider(context.Background(), config); err == nil {
		t.Error("expected error for unsupported metrics exporter")
	}
}
