package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentHandlerUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(InstrumentHandler)
	r.Get("/vehicles/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/vehicles/{id}", "418"))
	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/vehicles/"+id, nil))
		require.Equal(t, http.StatusTeapot, rec.Code)
	}

	assert.Equal(t, before+3, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/vehicles/{id}", "418")))
	assert.Equal(t, 0.0, testutil.ToFloat64(httpInFlight))
}

func TestDomainCounters(t *testing.T) {
	before := testutil.ToFloat64(contractTransitions.WithLabelValues("closed"))
	RecordTransition("closed")
	assert.Equal(t, before+1, testutil.ToFloat64(contractTransitions.WithLabelValues("closed")))

	SetOverdueContracts(7)
	assert.Equal(t, 7.0, testutil.ToFloat64(overdueContracts))

	failed := testutil.ToFloat64(overdueSweeps.WithLabelValues("false"))
	RecordOverdueSweep(false)
	assert.Equal(t, failed+1, testutil.ToFloat64(overdueSweeps.WithLabelValues("false")))
}

func TestHandlerServesRegistry(t *testing.T) {
	RecordTransition("open")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `rentdesk_contracts_transitions_total{status="open"}`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
