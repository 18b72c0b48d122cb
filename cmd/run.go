package cmd

import (
	"github.com/relex/bulksink/defs"
	"github.com/relex/bulksink/run"
)

type runCommandState struct {
	Config      string `help:"Path of the sink configuration file"`
	Input       string `help:"File with one JSON record per line, or '-' for stdin"`
	MetricsAddr string `help:"Listener address exposing Prometheus metrics and debug endpoints"`
	TestMode    bool   `help:"Switch to test-mode tunables: fast retries and short timeouts"`
}

var runCmd = runCommandState{
	Config:      "config.yml",
	Input:       "-",
	MetricsAddr: ":9336",
	TestMode:    false,
}

func (cmd *runCommandState) run(args []string) {
	if cmd.TestMode {
		defs.EnableTestMode()
	}

	run.Run(cmd.Config, cmd.Input, cmd.MetricsAddr)
}
