// Package prometheus serves kidsAuth engine metrics in the Prometheus text
// exposition format. Mount [Exporter] on a scrape route; it registers nothing
// globally and never mutates engine state.
package prometheus
