package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsObserveRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.ObserveRun("request-expiry", 250*time.Millisecond, nil)
	m.ObserveRun("request-expiry", time.Second, errors.New("db down"))
	m.ObserveRun("", time.Millisecond, nil)
	m.ObserveSkipped()

	mfs := gather(t, reg)
	ok := series(mfs, "cron_job_runs_total", map[string]string{"job": "request-expiry", "result": "success"})
	require.NotNil(t, ok)
	assert.Equal(t, 1.0, ok.GetCounter().GetValue())

	failed := series(mfs, "cron_job_runs_total", map[string]string{"job": "request-expiry", "result": "failure"})
	require.NotNil(t, failed)
	assert.Equal(t, 1.0, failed.GetCounter().GetValue())

	hist := series(mfs, "cron_job_duration_seconds", map[string]string{"job": "request-expiry"})
	require.NotNil(t, hist)
	assert.EqualValues(t, 2, hist.GetHistogram().GetSampleCount())

	last := series(mfs, "cron_job_last_success_timestamp_seconds", map[string]string{"job": "request-expiry"})
	require.NotNil(t, last)
	assert.Greater(t, last.GetGauge().GetValue(), 0.0)

	assert.NotNil(t, series(mfs, "cron_job_runs_total", map[string]string{"job": "unknown"}))

	skipped := findMetricFamily(mfs, "cron_cycles_skipped_total")
	require.NotNil(t, skipped)
	assert.Equal(t, 1.0, skipped.GetMetric()[0].GetCounter().GetValue())
}

func TestCronJobMetricsNilIsNoop(t *testing.T) {
	m := NewCronJobMetrics(nil)
	assert.Nil(t, m)
	m.ObserveRun("request-expiry", time.Second, nil)
	m.ObserveSkipped()
}
