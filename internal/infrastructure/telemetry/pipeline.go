package telemetry

import (
	"context"
	"fmt"

	"github.com/profilehub/backend/internal/application/ingest"
	"go.opentelemetry.io/otel/metric"
)

// RegisterPipelineMetrics exposes the ingest pipeline counters as observable
// counters. The pipeline keeps counting in its own atomics; the callback just
// reads snapshots at export time, so disabled telemetry costs nothing.
func RegisterPipelineMetrics(mp *MeterProvider, metrics *ingest.Metrics) error {
	meter := mp.Meter("profilehub/ingest")

	received, err := meter.Int64ObservableCounter("events_received_total",
		metric.WithDescription("Bus messages received"))
	if err != nil {
		return fmt.Errorf("create received counter: %w", err)
	}
	decodeErrors, err := meter.Int64ObservableCounter("events_decode_errors_total",
		metric.WithDescription("Messages dropped as undecodable"))
	if err != nil {
		return fmt.Errorf("create decode errors counter: %w", err)
	}
	processed, err := meter.Int64ObservableCounter("events_processed_total",
		metric.WithDescription("Events whose writes committed"))
	if err != nil {
		return fmt.Errorf("create processed counter: %w", err)
	}
	rejected, err := meter.Int64ObservableCounter("events_rejected_total",
		metric.WithDescription("Events dropped for missing identity"))
	if err != nil {
		return fmt.Errorf("create rejected counter: %w", err)
	}
	failed, err := meter.Int64ObservableCounter("events_failed_total",
		metric.WithDescription("Events rolled back on store errors"))
	if err != nil {
		return fmt.Errorf("create failed counter: %w", err)
	}
	duplicates, err := meter.Int64ObservableCounter("events_duplicate_total",
		metric.WithDescription("Messages skipped by the dedupe guard"))
	if err != nil {
		return fmt.Errorf("create duplicates counter: %w", err)
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := metrics.Snapshot()
		o.ObserveInt64(received, stats.Received)
		o.ObserveInt64(decodeErrors, stats.DecodeErrors)
		o.ObserveInt64(processed, stats.Processed)
		o.ObserveInt64(rejected, stats.Rejected)
		o.ObserveInt64(failed, stats.Failed)
		o.ObserveInt64(duplicates, stats.Duplicates)
		return nil
	}, received, decodeErrors, processed, rejected, failed, duplicates)
	if err != nil {
		return fmt.Errorf("register pipeline metrics callback: %w", err)
	}
	return nil
}
