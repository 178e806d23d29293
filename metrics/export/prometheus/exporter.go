package prometheus

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	kidsAuth "github.com/MrEthical07/kidsAuth"
	"github.com/MrEthical07/kidsAuth/metrics/export/internaldefs"
)

// Source is what the exporter reads on every scrape.
type Source interface {
	MetricsSnapshot() kidsAuth.MetricsSnapshot
	AuditDropped() uint64
}

// Exporter renders engine metrics in the Prometheus text exposition format
// and serves them as an http.Handler.
type Exporter struct {
	source Source
}

// NewExporter returns an exporter reading from source, typically *kidsAuth.Engine.
func NewExporter(source Source) *Exporter {
	return &Exporter{source: source}
}

// ServeHTTP writes the current metrics.
func (e *Exporter) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	_ = e.Write(w)
}

// Render returns the exposition text. It is empty when metrics are disabled.
func (e *Exporter) Render() string {
	var b strings.Builder
	_ = e.Write(&b)
	return b.String()
}

// Write streams the exposition text to w.
func (e *Exporter) Write(w io.Writer) error {
	if e == nil || e.source == nil {
		return nil
	}

	snapshot := e.source.MetricsSnapshot()
	dropped := e.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return nil
	}

	pw := &promWriter{w: w}
	for _, def := range internaldefs.CounterDefs {
		pw.counter(def.Name, def.Help, snapshot.Counters[def.ID])
	}
	for _, def := range internaldefs.HistogramDefs {
		pw.histogram(def.Name, def.Help,
			internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID])))
	}
	pw.counter(internaldefs.AuditDroppedName, "Audit events dropped because the dispatcher queue was full.", dropped)
	return pw.err
}

// promWriter remembers the first write error and skips the rest.
type promWriter struct {
	w   io.Writer
	err error
}

func (p *promWriter) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *promWriter) header(name, help, kind string) {
	p.printf("# HELP %s %s\n# TYPE %s %s\n", name, escapeHelp(help), name, kind)
}

func (p *promWriter) counter(name, help string, value uint64) {
	p.header(name, help, "counter")
	p.printf("%s %d\n", name, value)
}

func (p *promWriter) histogram(name, help string, cumulative [8]uint64) {
	p.header(name, help, "histogram")
	for i, le := range internaldefs.HistogramBounds {
		p.printf("%s_bucket{le=%q} %d\n", name, le, cumulative[i])
	}
	p.printf("%s_count %d\n", name, cumulative[len(cumulative)-1])
	// Engine snapshots carry bucket counts only.
	p.printf("%s_sum 0\n", name)
}

func escapeHelp(help string) string {
	return strings.NewReplacer(`\`, `\\`, "\n", `\n`).Replace(help)
}
