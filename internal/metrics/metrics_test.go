package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

func TestRecordOutcome(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordOutcome(domain.OutcomeExecuted, 8.66)
	m.RecordOutcome(domain.OutcomeExecuted, 1.34)
	m.RecordOutcome(domain.OutcomeRejected, 5)

	assert.InDelta(t, 2, testutil.ToFloat64(m.Outcomes.WithLabelValues("executed")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Outcomes.WithLabelValues("rejected")), 1e-9)
	assert.InDelta(t, 10, testutil.ToFloat64(m.ExecutedDollars), 1e-9)
}

func TestGauges(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordIndex(42, time.Unix(1768672800, 0))
	m.RecordBankroll(850, 0.15)
	m.RecordFeedError("0xa")

	assert.InDelta(t, 42, testutil.ToFloat64(m.IndexSize), 1e-9)
	assert.InDelta(t, 1768672800, testutil.ToFloat64(m.IndexBuiltAt), 1e-9)
	assert.InDelta(t, 0.15, testutil.ToFloat64(m.Drawdown), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.FeedErrors.WithLabelValues("0xa")), 1e-9)
}

func TestHandlerAndMiddleware(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordOutcome(domain.OutcomeSkipped, 0)

	h := m.Middleware(func(*http.Request) string { return "/status" })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/status?x=1", nil))
	assert.InDelta(t, 1, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/status", "418")), 1e-9)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `polycopy_outcomes_total{kind="skipped"} 1`))
}
