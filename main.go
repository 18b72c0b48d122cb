package main

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/relex/bulksink/cmd"
	"github.com/relex/gotils/logger"
)

// version is filled in by the linker in release builds
var version = "development"

func main() {
	logger.Infof("bulksink %s, GOMAXPROCS: %d", version, runtime.GOMAXPROCS(0))

	registerBuildInfoMetric()

	cmd.Execute()
}

func registerBuildInfoMetric() {
	info := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bulksink_info",
		Help: "bulksink application information",
	}, []string{"version"})
	info.WithLabelValues(version).Set(1)
	prometheus.MustRegister(info)
}
