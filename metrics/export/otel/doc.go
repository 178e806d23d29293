// Package otel exports kidsAuth engine metrics through OpenTelemetry.
//
// [NewExporter] registers one Int64ObservableCounter per engine counter and
// one Int64ObservableGauge per latency bucket; a single callback reads
// Engine.MetricsSnapshot on each collection. Callers own the MeterProvider.
package otel
