package test

import (
	"bytes"
	"fmt"
	"os"

	dto "github.com/prometheus/client_model/go"
	"github.com/relex/bulksink/run"
	"github.com/relex/bulksink/sink"
	"github.com/relex/gotils/logger"
	"github.com/relex/gotils/promexporter/promext"
)

type benchmarkMetric struct {
	fmt string
	val float64
}

// RunBenchmarkSink benchmarks a fully configured sink engine with null or configured output
func RunBenchmarkSink(inputPath string, outputMode string, repeat int, configFile string) {
	loader, loaderErr := run.NewLoaderFromConfigFile(configFile, "benchsink_")
	if loaderErr != nil {
		logger.Fatal(loaderErr)
	}

	var engine *sink.Engine
	var nullWriter *nullBulkWriter
	switch outputMode {
	case "null":
		nullWriter = &nullBulkWriter{}
		var engineErr error
		engine, engineErr = loader.Sink.NewEngineWithWriter(logger.Root(), nullWriter, loader.MetricFactory)
		if engineErr != nil {
			logger.Fatal(engineErr)
		}
	case "":
		var engineErr error
		engine, engineErr = loader.LaunchEngine(logger.Root())
		if engineErr != nil {
			logger.Fatal(engineErr)
		}
	default:
		logger.Fatalf("unsupported output mode '%s'", outputMode)
	}

	inputRecords, inputLength := loadInputRecords(inputPath)
	totalInputCount := len(inputRecords) * repeat
	totalInputLength := int64(inputLength) * int64(repeat)

	costTracker := NewCostTracker()
	for i := 0; i < repeat; i++ {
		for _, record := range inputRecords {
			if err := engine.Write(record); err != nil {
				logger.Fatalf("failed to write record: %s", err.Error())
			}
		}
	}
	engine.Shutdown()
	report := costTracker.Report()

	families, gatherErr := loader.MetricFactory.Gather()
	if gatherErr != nil {
		logger.Fatalf("failed to gather metrics: %v", gatherErr)
	}
	numAccepted := sumMetricFamily(families, "benchsink_sink_accepted_messages_total")
	numRejected := sumMetricFamily(families, "benchsink_sink_rejected_messages_total")
	if numAccepted+numRejected != float64(totalInputCount) {
		logger.Errorf("numbers of accepted and rejected records don't match: %.0f + %.0f, should be %d", numAccepted, numRejected, totalInputCount)
	}

	metrics := []benchmarkMetric{
		{fmt: "%.0f rec/sec", val: float64(totalInputCount) / report.RealTime.Seconds()},
		{fmt: "%.0f MB/sec", val: float64(totalInputLength) / 1048576 / report.RealTime.Seconds()},
		{fmt: "%0.2f alloc/rec", val: float64(report.NumHeapAllocs) / float64(totalInputCount)},
		{fmt: "%0.2f%% user", val: 100.0 * report.UserTime.Seconds() / report.RealTime.Seconds()},
		{fmt: "%0.2f%% sys", val: 100.0 * report.SystemTime.Seconds() / report.RealTime.Seconds()},
		{fmt: "%0.2f%% gc", val: 100.0 * report.GCCPUFraction},
		{fmt: "%.02f sec", val: report.RealTime.Seconds()},
	}
	if nullWriter != nil {
		numBatches, numRecords, numBytes := nullWriter.counts()
		if int(numRecords) != totalInputCount {
			logger.Errorf("numbers of delivered records don't match: %d, should be %d", numRecords, totalInputCount)
		}
		metrics = append(metrics, benchmarkMetric{fmt: "%.0f rec/batch", val: float64(numRecords) / float64(numBatches)})
		metrics = append(metrics, benchmarkMetric{fmt: "%.0f KB/batch", val: float64(numBytes) / 1024.0 / float64(numBatches)})
		metrics = append(metrics, benchmarkMetric{fmt: "%.0f MB out", val: float64(numBytes) / 1048576})
	}
	printBenchmarkMetrics("BenchmarkSink", metrics)
	logger.Info(promext.DumpMetrics("", true, true, loader.MetricFactory))
}

func sumMetricFamily(metricFamilies []*dto.MetricFamily, fullName string) float64 {
	for _, mf := range metricFamilies {
		if mf.GetName() == fullName {
			return promext.SumExportedMetrics(mf, map[string]string{})
		}
	}
	return 0
}

// loadInputRecords loads a sample NDJSON file into an array of records for feeding the sink
func loadInputRecords(inputPath string) ([][]byte, int) {
	content, err := os.ReadFile(inputPath)
	if err != nil {
		logger.Fatalf("error reading %s: %v", inputPath, err)
	}
	lines := bytes.Split(content, []byte("\n"))
	records := make([][]byte, 0, len(lines))
	numBytes := 0
	for _, line := range lines {
		if len(line) == 0 {
			continue
		}
		records = append(records, line)
		numBytes += len(line) + 1
	}
	logger.Infof("loaded %s: %d records, %d bytes", inputPath, len(records), len(content))
	return records, numBytes
}

func printBenchmarkMetrics(title string, metrics []benchmarkMetric) {
	sb := make([]byte, 0, 200)
	sb = append(sb, fmt.Sprintf("%s:", title)...)
	for _, m := range metrics {
		sb = append(sb, fmt.Sprintf("\t"+m.fmt, m.val)...)
	}
	fmt.Println(string(sb))
}
