package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourname/staticserve/internal/metrics"
)

func TestCollector_ObserveArchive(t *testing.T) {
	t.Parallel()

	c := metrics.New("test")
	c.ObserveArchive("tar", metrics.ResultOK, 3, 120, time.Second)
	c.ObserveArchive("tar.zst", metrics.ResultError, 1, 10, time.Second)
	c.ObserveArchive("", metrics.ResultSkipped, 0, 0, 0)
	c.ObserveReload()

	n, err := testutil.GatherAndCount(c.Registry(), "test_archives_total")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `test_archives_total{format="unknown",result="skipped"} 1`)
	assert.Contains(t, string(body), "test_extracted_entries_total 4")
	assert.Contains(t, string(body), "test_extracted_bytes_total 130")
	assert.Contains(t, string(body), "test_reloads_total 1")
}

func TestCollector_NilIsNoop(t *testing.T) {
	t.Parallel()

	var c *metrics.Collector
	assert.NotPanics(t, func() {
		c.ObserveArchive("tar", metrics.ResultOK, 1, 1, time.Millisecond)
		c.ObserveReload()
	})
}
