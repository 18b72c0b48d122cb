// Package testdata provides access to shared sample records and config for testing
package testdata

import (
	"path/filepath"
	"runtime"
)

// GetConfigPath returns the absolute path of the sample sink configuration
func GetConfigPath() string {
	return filepath.Join(dirPath(), "config_sample.yml")
}

// GetBenchRecordsPath returns the absolute path of the sample NDJSON records
func GetBenchRecordsPath() string {
	return filepath.Join(dirPath(), "bench_records.ndjson")
}

func dirPath() string {
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Dir(thisFile)
}
