// Package benchmark wraps a command and reports the time and memory it used.
package benchmark

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"time"
)

// Result is the resource usage of one wrapped run.
type Result struct {
	Label      string
	Started    time.Time
	Elapsed    time.Duration
	HeapDelta  int64
	TotalAlloc uint64
	HeapAlloc  uint64
	Sys        uint64
	GCCycles   uint32
	Goroutines [2]int
}

const mb = 1024.0 * 1024.0

// Run executes f and writes a resource report to w, even when f fails.
func Run(w io.Writer, label string, f func() error) (Result, error) {
	fmt.Fprintf(w, "[Benchmark] Running: %s\n", label)
	res := Result{Label: label, Started: time.Now()}
	fmt.Fprintln(w, "[Benchmark] Timestamp:", res.Started.Format(time.RFC1123))
	if host, err := os.Hostname(); err == nil {
		fmt.Fprintln(w, "[Benchmark] Hostname:", host)
	}
	fmt.Fprintln(w, "[Benchmark] Go Version:", runtime.Version())
	fmt.Fprintf(w, "[Benchmark] OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)

	runtime.GC()
	var memStart, memEnd runtime.MemStats
	runtime.ReadMemStats(&memStart)
	res.Goroutines[0] = runtime.NumGoroutine()

	err := f()

	res.Elapsed = time.Since(res.Started)
	runtime.ReadMemStats(&memEnd)
	res.Goroutines[1] = runtime.NumGoroutine()
	res.HeapDelta = int64(memEnd.Alloc) - int64(memStart.Alloc)
	res.TotalAlloc = memEnd.TotalAlloc - memStart.TotalAlloc
	res.HeapAlloc = memEnd.HeapAlloc
	res.Sys = memEnd.Sys
	res.GCCycles = memEnd.NumGC - memStart.NumGC

	res.Report(w)
	return res, err
}

// Report writes the usage summary.
func (r Result) Report(w io.Writer) {
	fmt.Fprintf(w, "[Benchmark] Time Elapsed: %v\n", r.Elapsed)
	fmt.Fprintf(w, "[Benchmark] Memory Used: %.2f MB\n", float64(r.HeapDelta)/mb)
	fmt.Fprintf(w, "[Benchmark] Total Allocated: %.2f MB\n", float64(r.TotalAlloc)/mb)
	fmt.Fprintf(w, "[Benchmark] Heap In Use: %.2f MB\n", float64(r.HeapAlloc)/mb)
	fmt.Fprintf(w, "[Benchmark] GC Cycles: %d\n", r.GCCycles)
	fmt.Fprintf(w, "[Benchmark] Total System Memory Allocated: %.2f MB\n", float64(r.Sys)/mb)
	fmt.Fprintf(w, "[Benchmark] CPU Cores: %d\n", runtime.NumCPU())
	fmt.Fprintf(w, "[Benchmark] Goroutines: %d -> %d\n", r.Goroutines[0], r.Goroutines[1])
	fmt.Fprintln(w, "[Benchmark] ----------------------------------------")
}
