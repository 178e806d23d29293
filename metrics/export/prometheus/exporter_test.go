package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	kidsAuth "github.com/MrEthical07/kidsAuth"
)

type fakeSource struct {
	snapshot kidsAuth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() kidsAuth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                      { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewExporter(fakeSource{})
	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output, got:\n%s", got)
	}
}

func TestRenderCountersAndHistogram(t *testing.T) {
	exp := NewExporter(fakeSource{
		snapshot: kidsAuth.MetricsSnapshot{
			Counters: map[kidsAuth.MetricID]uint64{
				kidsAuth.MetricLoginFailure: 7,
			},
			Histograms: map[kidsAuth.MetricID][]uint64{
				kidsAuth.MetricValidateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"# TYPE kidsauth_login_failure_total counter\n",
		"kidsauth_login_failure_total 7\n",
		"kidsauth_challenge_issued_total 0\n",
		`kidsauth_session_validate_latency_seconds_bucket{le="0.005"} 1`,
		`kidsauth_session_validate_latency_seconds_bucket{le="+Inf"} 36`,
		"kidsauth_session_validate_latency_seconds_count 36\n",
		"kidsauth_audit_dropped_total 2\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if out != exp.Render() {
		t.Fatal("render must be deterministic")
	}
}

func TestServeHTTP(t *testing.T) {
	exp := NewExporter(fakeSource{dropped: 1})
	rec := httptest.NewRecorder()
	exp.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain; version=0.0.4") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "kidsauth_audit_dropped_total 1") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestEscapeHelp(t *testing.T) {
	if got := escapeHelp("a\\b\nc"); got != `a\\b\nc` {
		t.Fatalf("unexpected escape %q", got)
	}
}
