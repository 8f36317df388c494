package orchestrator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/deploybuilder/internal/metrics"
)

func TestTextfileSink_WritesAfterBuild(t *testing.T) {
	h := newHarness(t)
	rec := metrics.NewPrometheusRecorder(prometheus.NewRegistry())
	path := filepath.Join(h.dir, "metrics", "deploybuilder.prom")

	_, err := h.run(t, WithRecorder(rec), WithSink(TextfileSink{Recorder: rec, Path: path}))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `deploybuilder_build_outcomes_total{outcome="success"} 1`)
	assert.Contains(t, string(data), "deploybuilder_fallback_entry_created_total 1")
}
