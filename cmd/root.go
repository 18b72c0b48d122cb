package cmd

import (
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"

	"github.com/relex/gotils/logger"
)

type rootCommandState struct {
	CPUProfile   string `name:"cpuprofile" help:"Write CPU profile to file."`
	MemProfile   string `name:"memprofile" help:"Write memory profile to file."`
	BlockProfile string `name:"blockprofile" help:"Write block (contention) profile to file."`
	Trace        string `help:"Write trace to file."`

	cpuProfileFile   *os.File
	memProfileFile   *os.File
	blockProfileFile *os.File
	traceFile        *os.File
}

var rootCmd rootCommandState

// blockProfileRate samples one blocking event per 100 microseconds of blocked time
const blockProfileRate = 100 * 1000

func (cmd *rootCommandState) preRun() {
	if cmd.CPUProfile != "" {
		cmd.cpuProfileFile = createProfileFile("CPU profile", cmd.CPUProfile)
		if err := pprof.StartCPUProfile(cmd.cpuProfileFile); err != nil {
			logger.Fatalf("failed to start CPU profiling: %s", err.Error())
		}
	}

	if cmd.MemProfile != "" {
		// only opened here; the heap snapshot is taken at exit in postRun
		cmd.memProfileFile = createProfileFile("memory profile", cmd.MemProfile)
	}

	if cmd.BlockProfile != "" {
		cmd.blockProfileFile = createProfileFile("block profile", cmd.BlockProfile)
		runtime.SetBlockProfileRate(blockProfileRate)
	}

	if cmd.Trace != "" {
		cmd.traceFile = createProfileFile("trace", cmd.Trace)
		if err := trace.Start(cmd.traceFile); err != nil {
			logger.Fatalf("failed to start tracing: %s", err.Error())
		}
	}
}

func (cmd *rootCommandState) postRun() {
	if cmd.cpuProfileFile != nil {
		pprof.StopCPUProfile()
		cmd.cpuProfileFile.Close()
	}

	if cmd.memProfileFile != nil {
		runtime.GC()
		if err := pprof.WriteHeapProfile(cmd.memProfileFile); err != nil {
			logger.Errorf("failed to write memory profile: %s", err.Error())
		}
		cmd.memProfileFile.Close()
	}

	if cmd.blockProfileFile != nil {
		runtime.SetBlockProfileRate(0)
		if err := pprof.Lookup("block").WriteTo(cmd.blockProfileFile, 0); err != nil {
			logger.Errorf("failed to write block profile: %s", err.Error())
		}
		cmd.blockProfileFile.Close()
	}

	if cmd.traceFile != nil {
		trace.Stop()
		cmd.traceFile.Close()
	}
}

func createProfileFile(what string, path string) *os.File {
	f, err := os.Create(path)
	if err != nil {
		logger.Fatalf("failed to create %s %s: %s", what, path, err.Error())
	}
	logger.Infof("writing %s to %s", what, path)
	return f
}
