package monitor

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_Counters(t *testing.T) {
	m := NewMonitor("test")

	m.RecordScore(true)
	m.RecordScore(false)
	m.RecordScore(true)
	m.IncCommentaryFallbacks()
	m.IncCredentialRefreshes()
	m.IncCredentialRefreshes()
	m.ObserveConnectAttempt("ok")
	m.ObserveConnectAttempt("auth")
	m.ObserveConnectAttempt("ok")

	metrics := m.Metrics()
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.ScoresSubmitted))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.HumanWins))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CommentaryFallbacks))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.CredentialRefreshes))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.DBConnectAttempts.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DBConnectAttempts.WithLabelValues("auth")))
}

func TestMonitor_FeedWatchers(t *testing.T) {
	m := NewMonitor("test")

	m.IncFeedWatchers()
	m.IncFeedWatchers()
	m.DecFeedWatchers()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Metrics().FeedWatchers))
}

func TestMonitor_IndependentRegistries(t *testing.T) {
	a := NewMonitor("test")
	b := NewMonitor("test")

	a.RecordScore(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.Metrics().ScoresSubmitted))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Metrics().ScoresSubmitted))
}

func TestMonitor_NilIsNoop(t *testing.T) {
	var m *Monitor

	assert.NotPanics(t, func() {
		m.RecordScore(true)
		m.IncCommentaryFallbacks()
		m.IncCredentialRefreshes()
		m.ObserveConnectAttempt("ok")
		m.ObserveRequest("/api/score", time.Millisecond)
		m.IncFeedWatchers()
		m.DecFeedWatchers()
	})
}

func TestMonitor_Handler(t *testing.T) {
	m := NewMonitor("test")
	m.ObserveRequest("/api/stats", 20*time.Millisecond)
	m.RecordScore(true)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "test_scores_submitted_total 1")
	assert.Contains(t, string(body), `test_http_request_duration_seconds_count{route="/api/stats"} 1`)

	vars, err := http.Get(srv.URL + "/debug/vars")
	require.NoError(t, err)
	defer vars.Body.Close()
	assert.Equal(t, http.StatusOK, vars.StatusCode)
}
