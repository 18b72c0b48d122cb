package test

import (
	"runtime"
	"syscall"
	"time"

	"github.com/relex/gotils/logger"
)

// CostTracker measures CPU time and heap allocations between its creation and Report
type CostTracker struct {
	start costSnapshot
}

// CostReport contains resource measurements accumulated over the tracked period
type CostReport struct {
	RealTime      time.Duration
	UserTime      time.Duration
	SystemTime    time.Duration
	NumHeapAllocs uint64
	GCCPUFraction float64
}

type costSnapshot struct {
	realTime      time.Time
	userTime      time.Duration
	systemTime    time.Duration
	heapAllocs    uint64
	gcCPUFraction float64
}

// NewCostTracker creates a cost tracker and takes the initial measurements
func NewCostTracker() *CostTracker {
	runtime.GC()
	return &CostTracker{start: takeCostSnapshot()}
}

// Report returns the measurements since the tracker was created
func (tracker *CostTracker) Report() CostReport {
	runtime.GC()
	end := takeCostSnapshot()
	return CostReport{
		RealTime:      end.realTime.Sub(tracker.start.realTime),
		UserTime:      end.userTime - tracker.start.userTime,
		SystemTime:    end.systemTime - tracker.start.systemTime,
		NumHeapAllocs: end.heapAllocs - tracker.start.heapAllocs,
		GCCPUFraction: end.gcCPUFraction,
	}
}

func takeCostSnapshot() costSnapshot {
	var rusage syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &rusage); err != nil {
		logger.Panic("failed to get resource usage: ", err)
	}
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	return costSnapshot{
		realTime:      time.Now(),
		userTime:      durationFromTimeval(rusage.Utime),
		systemTime:    durationFromTimeval(rusage.Stime),
		heapAllocs:    memStats.Mallocs,
		gcCPUFraction: memStats.GCCPUFraction,
	}
}

func durationFromTimeval(val syscall.Timeval) time.Duration {
	return time.Duration(val.Sec)*time.Second + time.Duration(val.Usec)*time.Microsecond
}
