package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Independent(t *testing.T) {
	a, b := New(), New()
	a.FilesProcessed.Inc()
	a.Changed.WithLabelValues("25126").Set(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.FilesProcessed))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.FilesProcessed))
	assert.Equal(t, 3.0, testutil.ToFloat64(a.Changed.WithLabelValues("25126")))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ClassifierHits.WithLabelValues("2025", "sin_avaluo").Add(4)
	m.Unexplained.Set(7)
	m.ObserveFetch("tramites", time.Now())

	path := filepath.Join(t.TempDir(), "catastro.prom")
	require.NoError(t, m.WriteTextfile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(raw)
	assert.Contains(t, out, `catastro_classifier_hits_total{classifier="sin_avaluo",vigencia="2025"} 4`)
	assert.Contains(t, out, "catastro_unexplained_changes 7")
	assert.Contains(t, out, `catastro_reference_fetch_duration_seconds_count{reference="tramites"} 1`)
}
