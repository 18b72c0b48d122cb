// Package cmd registers the bulksink commands and flags
package cmd

import (
	"github.com/relex/gotils/config"
)

func init() {
	config.AddParentCmdWithArgs("", "bulksink batches JSON records and ships them in bulk to a configured upstream", &rootCmd, rootCmd.preRun, rootCmd.postRun)
	config.AddCmdWithArgs("benchmark ...", "Benchmark the sink with null or configured upstream", &benchCmd, benchCmd.runBenchmarkSinkCommand)
	config.AddCmdWithArgs("run ...", "Run the sink feeding input records from a file or stdin", &runCmd, runCmd.run)
}

// Execute parses the command line and runs the selected command
func Execute() {
	config.Execute()
}
