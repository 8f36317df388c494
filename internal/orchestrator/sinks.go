package orchestrator

import (
	"context"

	"git.home.luguber.info/inful/deploybuilder/internal/metrics"
	"git.home.luguber.info/inful/deploybuilder/internal/pipeline"
)

// TextfileSink writes the Prometheus registry to a node-exporter textfile after every build.
type TextfileSink struct {
	Recorder *metrics.PrometheusRecorder
	Path     string
}

func (s TextfileSink) Name() string { return "metrics" }

func (s TextfileSink) Record(_ context.Context, _ *pipeline.BuildReport) error {
	return s.Recorder.WriteTextfile(s.Path)
}
