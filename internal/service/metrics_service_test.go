package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceBookingCounters(t *testing.T) {
	m := NewMetricsService()
	m.RecordBooking(BookingOutcomeCreated)
	m.RecordBooking(BookingOutcomeConflict)
	m.RecordBooking(BookingOutcomeConflict)
	m.ObserveConflictCheck(true, 2*time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.bookings.WithLabelValues(BookingOutcomeCreated)))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.bookings.WithLabelValues(BookingOutcomeConflict)))
}

func TestMetricsServiceHandler(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/labs", http.StatusOK, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `http_requests_total{method="GET",path="/api/v1/labs",status="200"} 1`))
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.RecordBooking(BookingOutcomeCreated)
	m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsServiceRegistersDBStats(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := NewMetricsService()
	require.NoError(t, m.RegisterDBStats(db, "lab_scheduler"))

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "go_sql_open_connections")

	var nilMetrics *MetricsService
	assert.NoError(t, nilMetrics.RegisterDBStats(db, "lab_scheduler"))
}
