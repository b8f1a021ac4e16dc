package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"ytdlpanel/internal/models"
)

func TestItemFinished(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ItemFinished(models.DownloadResult{
		Status:   models.StatusSuccess,
		Duration: 3,
		Files:    []models.FileRecord{{SizeBytes: 10 << 20}, {SizeBytes: 1 << 10}},
	})
	m.ItemFinished(models.DownloadResult{Status: models.StatusError, ErrorCategory: "Content Error"})
	m.ItemFinished(models.DownloadResult{Status: models.StatusError, ErrorCategory: "Content Error"})
	m.ItemFinished(models.DownloadResult{Status: models.StatusSkipped})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.itemsTotal.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.itemsTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.itemsTotal.WithLabelValues("skipped")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.errorsTotal.WithLabelValues("Content Error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.fileSizeBytes))
}

func TestInFlight(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ItemStarted()
	m.ItemStarted()
	m.ItemStopped()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inFlight))

	m.BatchStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.batchesTotal))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.BatchStarted()
		m.ItemStarted()
		m.ItemStopped()
		m.ItemFinished(models.DownloadResult{Status: models.StatusSuccess})
	})
}
