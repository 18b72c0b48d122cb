// Package run runs the actual bulk sink agent
package run

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/relex/bulksink/defs"
	"github.com/relex/bulksink/util"
	"github.com/relex/gotils/logger"
)

// Run runs the agent until the input is exhausted or a stop signal arrives
//
// inputPath may be empty or "-" for stdin.
func Run(configFile string, inputPath string, metricsAddr string) {
	loader, loaderErr := NewLoaderFromConfigFile(configFile, "bulksink_")
	if loaderErr != nil {
		logger.Fatal(loaderErr)
	}

	metricsServer := util.LaunchMetricsListener(metricsAddr, loader.GetMetricGatherer())

	input, closeInput := openInput(inputPath)
	defer closeInput()

	engine, engineErr := loader.LaunchEngine(logger.Root())
	if engineErr != nil {
		logger.Fatal(engineErr)
	}
	// undelivered batches are logged by the engine; keep the report channel drained
	go func() {
		for range engine.Errors() {
		}
	}()

	feeder := NewFeeder(logger.Root(), input, engine)
	feeder.Launch()

	runLogger := logger.WithField(defs.LabelComponent, "Launcher")

	// wait for shutdown signal or end of input
	{
		sigChan := make(chan os.Signal, 10)
		signal.Notify(sigChan, syscall.SIGINT)
		signal.Notify(sigChan, syscall.SIGTERM)
		select {
		case s := <-sigChan:
			runLogger.Infof("received %s, shutting down", s)
		case <-feeder.Stopped().Channel():
			runLogger.Info("input exhausted, shutting down")
		}
	}

	engine.Shutdown()
	if err := metricsServer.Shutdown(context.Background()); err != nil {
		runLogger.Errorf("error shutting down metrics listener: %v", err)
	}
	runLogger.Info("clean exit")
}

func openInput(path string) (io.Reader, func()) {
	if path == "" || path == "-" {
		return os.Stdin, func() {}
	}

	file, err := os.Open(path)
	if err != nil {
		logger.Fatalf("failed to open input '%s': %v", path, err)
	}
	return file, func() {
		if cerr := file.Close(); cerr != nil {
			logger.Warnf("error closing input '%s': %v", path, cerr)
		}
	}
}
