package metrics

import (
	"runtime"
	"time"
)

// CollectRuntime samples Go runtime stats into gauges named
// <prefix>_goroutines, <prefix>_heap_alloc_bytes, <prefix>_heap_sys_bytes
// and <prefix>_gc_runs_total, refreshed every interval. The sampler
// goroutine runs for the life of the process.
func (r *Registry) CollectRuntime(prefix string, interval time.Duration) {
	goroutines := r.Gauge(prefix+"_goroutines", "Number of live goroutines")
	heapAlloc := r.Gauge(prefix+"_heap_alloc_bytes", "Bytes of allocated heap objects")
	heapSys := r.Gauge(prefix+"_heap_sys_bytes", "Bytes of heap obtained from the OS")
	gcRuns := r.Gauge(prefix+"_gc_runs_total", "Completed GC cycles")

	sample := func() {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		goroutines.Set(int64(runtime.NumGoroutine()))
		heapAlloc.Set(int64(ms.HeapAlloc))
		heapSys.Set(int64(ms.HeapSys))
		gcRuns.Set(int64(ms.NumGC))
	}
	sample()

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for range t.C {
			sample()
		}
	}()
}
