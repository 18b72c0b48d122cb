package cmd

import (
	"github.com/relex/bulksink/defs"
	"github.com/relex/bulksink/test"
)

type benchmarkCommandState struct {
	Config string `help:"Sink configuration file path"`
	Input  string `help:"Input file with one JSON record per line"`
	Output string `help:"Output:\n'': (empty) deliver to the configured upstream\n'null': count and abandon all batches"`
	Repeat int    `help:"Number of times to replay the input file"`
}

var benchCmd = benchmarkCommandState{
	Config: "testdata/config_sample.yml",
	Input:  "testdata/bench_records.ndjson",
	Output: "null",
	Repeat: 200,
}

func (cmd *benchmarkCommandState) runBenchmarkSinkCommand(_ []string) {
	defs.EnableTestMode()
	test.RunBenchmarkSink(cmd.Input, cmd.Output, cmd.Repeat, cmd.Config)
}
