package run

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/relex/bulksink/sink"
	"github.com/relex/gotils/logger"
	"github.com/relex/gotils/promexporter/promreg"
)

// Loader holds everything derived from a parsed config file, ready to be launched
//
// Nothing is started until LaunchEngine; the split allows tests and Run() to decide
// how to drive the engine
type Loader struct {
	Config
	MetricFactory *promreg.MetricFactory
}

func NewLoaderFromConfigFile(filepath string, metricPrefix string) (*Loader, error) {
	config, configErr := LoadConfigFile(filepath)
	if configErr != nil {
		return nil, configErr
	}

	return &Loader{
		Config:        *config,
		MetricFactory: promreg.NewMetricFactory(metricPrefix, nil, nil),
	}, nil
}

// LaunchEngine launches the sink engine with its workers in background and returns it
func (loader *Loader) LaunchEngine(parentLogger logger.Logger) (*sink.Engine, error) {
	return loader.Sink.NewEngine(parentLogger, loader.MetricFactory)
}

// GetMetricGatherer returns the gatherer collecting all metrics created under the loader's MetricFactory
func (loader *Loader) GetMetricGatherer() prometheus.Gatherer {
	return loader.MetricFactory
}
