package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetric はラベルが一致するメトリクスを探す。
func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				return m
			}
		}
	}
	return nil
}

func labelsMatch(m *dto.Metric, labels map[string]string) bool {
	matched := 0
	for _, lp := range m.GetLabel() {
		if v, ok := labels[lp.GetName()]; ok && v == lp.GetValue() {
			matched++
		}
	}
	return matched == len(labels)
}

func TestRecordUpstreamRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordUpstreamRequest("search", OutcomeSuccess, 120*time.Millisecond)
	c.RecordUpstreamRequest("search", OutcomeSuccess, 80*time.Millisecond)
	c.RecordUpstreamRequest("search", OutcomeFailure, time.Second)

	m := findMetric(t, reg, "podsearch_upstream_requests_total", map[string]string{"operation": "search", "outcome": OutcomeSuccess})
	if m == nil {
		t.Fatal("podsearch_upstream_requests_total{outcome=success} が見つからない")
	}
	if got := m.GetCounter().GetValue(); got != 2 {
		t.Errorf("success = %v, want 2", got)
	}

	m = findMetric(t, reg, "podsearch_upstream_latency_seconds", map[string]string{"operation": "search"})
	if m == nil {
		t.Fatal("podsearch_upstream_latency_seconds が見つからない")
	}
	if got := m.GetHistogram().GetSampleCount(); got != 3 {
		t.Errorf("sample count = %d, want 3", got)
	}
}

func TestRecordRows(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRowSaved("podcasts")
	c.RecordRowSaved("podcasts")
	c.RecordRowFailed("episodes")

	if m := findMetric(t, reg, "podsearch_rows_saved_total", map[string]string{"table": "podcasts"}); m == nil || m.GetCounter().GetValue() != 2 {
		t.Errorf("rows_saved_total{table=podcasts} = %v, want 2", m)
	}
	if m := findMetric(t, reg, "podsearch_rows_failed_total", map[string]string{"table": "episodes"}); m == nil || m.GetCounter().GetValue() != 1 {
		t.Errorf("rows_failed_total{table=episodes} = %v, want 1", m)
	}
}

func TestRecordPersistJob(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordPersistJob(JobCompleted)
	c.RecordPersistJob(JobDropped)
	c.RecordPersistJob(JobDropped)

	m := findMetric(t, reg, "podsearch_persist_jobs_total", map[string]string{"outcome": JobDropped})
	if m == nil || m.GetCounter().GetValue() != 2 {
		t.Errorf("persist_jobs_total{outcome=dropped} = %v, want 2", m)
	}
}

func TestCollector_ImplementsInterface(t *testing.T) {
	var _ MetricsCollector = NewCollector(prometheus.NewRegistry())
	var _ MetricsCollector = Nop{}
}

// 同一プロセス内で複数のレジストリに登録してもpanicしないこと。
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	c1 := NewCollector(prometheus.NewRegistry())
	c2 := NewCollector(prometheus.NewRegistry())
	c1.RecordRowSaved("podcasts")
	c2.RecordRowSaved("podcasts")
}

func TestHandler_ServesPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordPersistJob(JobCompleted)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body, _ := io.ReadAll(w.Result().Body)
	if !strings.Contains(string(body), `podsearch_persist_jobs_total{outcome="completed"} 1`) {
		t.Errorf("レスポンスにpersist_jobs_totalが含まれない:\n%s", body)
	}
}
