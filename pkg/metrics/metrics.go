// Package metrics is a small in-process registry that exposes counters,
// gauges, and histograms in the Prometheus text exposition format. It
// exists so the API and worker binaries can publish operational numbers
// on a side port without pulling in a client library; anything that
// scrapes Prometheus output can scrape these endpoints.
package metrics

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultBuckets cover request latencies from a few milliseconds up to
// a minute, which spans both a cache-hit search and a full pipeline run.
var DefaultBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// Counter only goes up.
type Counter struct{ n atomic.Int64 }

func (c *Counter) Inc()        { c.n.Add(1) }
func (c *Counter) Add(d int64) { c.n.Add(d) }
func (c *Counter) Value() int64 { return c.n.Load() }

// Gauge holds the latest value of something sampled, like queue depth.
type Gauge struct{ n atomic.Int64 }

func (g *Gauge) Set(v int64)  { g.n.Store(v) }
func (g *Gauge) Value() int64 { return g.n.Load() }

// Histogram buckets observed values against fixed upper bounds.
type Histogram struct {
	bounds []float64 // sorted ascending

	mu     sync.Mutex
	counts []uint64 // per bound, not cumulative
	sum    float64
	count  uint64
}

func newHistogram(bounds []float64) *Histogram {
	b := append([]float64(nil), bounds...)
	sort.Float64s(b)
	return &Histogram{bounds: b, counts: make([]uint64, len(b))}
}

// Observe records v into the first bucket whose bound is >= v. Values
// above every bound only count toward +Inf.
func (h *Histogram) Observe(v float64) {
	i := sort.SearchFloat64s(h.bounds, v)
	h.mu.Lock()
	if i < len(h.counts) {
		h.counts[i]++
	}
	h.sum += v
	h.count++
	h.mu.Unlock()
}

// Since observes the seconds elapsed since t.
func (h *Histogram) Since(t time.Time) {
	h.Observe(time.Since(t).Seconds())
}

func (h *Histogram) snapshot() (counts []uint64, sum float64, count uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]uint64(nil), h.counts...), h.sum, h.count
}

type kind uint8

const (
	kindCounter kind = iota
	kindGauge
	kindHistogram
)

func (k kind) String() string {
	switch k {
	case kindCounter:
		return "counter"
	case kindGauge:
		return "gauge"
	case kindHistogram:
		return "histogram"
	}
	return "untyped"
}

// family groups every labeled series that shares a base name, so the
// renderer can emit one HELP/TYPE header per name.
type family struct {
	kind   kind
	help   string
	series map[string]any
}

// Registry holds metric families and renders them for scraping.
type Registry struct {
	mu       sync.RWMutex
	families map[string]*family
	order    []string // base names in registration order
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{families: make(map[string]*family)}
}

// series returns the metric registered under name, creating family and
// series as needed. It returns nil when the base name is already taken
// by a different metric type.
func (r *Registry) series(name string, k kind, help string, mk func() any) any {
	base := baseName(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	f := r.families[base]
	if f == nil {
		f = &family{kind: k, series: make(map[string]any)}
		r.families[base] = f
		r.order = append(r.order, base)
	}
	if f.kind != k {
		return nil
	}
	if f.help == "" {
		f.help = help
	}
	m := f.series[name]
	if m == nil {
		m = mk()
		f.series[name] = m
	}
	return m
}

// Counter returns the counter registered under name, creating it on
// first use. Pass a labeled name from WithLabels to get one series per
// label combination. If the name is already registered as a different
// type, the returned counter is live but detached from the registry.
func (r *Registry) Counter(name, help string) *Counter {
	c, ok := r.series(name, kindCounter, help, func() any { return new(Counter) }).(*Counter)
	if !ok {
		return new(Counter)
	}
	return c
}

// Gauge returns the gauge registered under name, creating it on first
// use.
func (r *Registry) Gauge(name, help string) *Gauge {
	g, ok := r.series(name, kindGauge, help, func() any { return new(Gauge) }).(*Gauge)
	if !ok {
		return new(Gauge)
	}
	return g
}

// Histogram returns the histogram registered under name, creating it
// on first use. A nil buckets slice takes DefaultBuckets.
func (r *Registry) Histogram(name, help string, buckets []float64) *Histogram {
	if buckets == nil {
		buckets = DefaultBuckets
	}
	h, ok := r.series(name, kindHistogram, help, func() any { return newHistogram(buckets) }).(*Histogram)
	if !ok {
		return newHistogram(buckets)
	}
	return h
}

// WithLabels appends label pairs to a metric name:
// WithLabels("jobs_total", "outcome", "ok") is `jobs_total{outcome="ok"}`.
// An odd number of kvs leaves the name unlabeled.
func WithLabels(name string, kvs ...string) string {
	if len(kvs) == 0 || len(kvs)%2 != 0 {
		return name
	}
	pairs := make([]string, 0, len(kvs)/2)
	for i := 0; i+1 < len(kvs); i += 2 {
		pairs = append(pairs, fmt.Sprintf("%s=%q", kvs[i], kvs[i+1]))
	}
	return name + "{" + strings.Join(pairs, ",") + "}"
}

// baseName strips the label block from a series name.
func baseName(name string) string {
	if i := strings.IndexByte(name, '{'); i >= 0 {
		return name[:i]
	}
	return name
}

// innerLabels returns the label block's content without braces, or "".
func innerLabels(name string) string {
	i := strings.IndexByte(name, '{')
	if i < 0 {
		return ""
	}
	return name[i+1 : len(name)-1]
}

// Render returns the full scrape payload as a string.
func (r *Registry) Render() string {
	var b strings.Builder
	r.renderTo(&b)
	return b.String()
}

func (r *Registry) renderTo(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, base := range r.order {
		f := r.families[base]
		if f.help != "" {
			fmt.Fprintf(w, "# HELP %s %s\n", base, f.help)
		}
		fmt.Fprintf(w, "# TYPE %s %s\n", base, f.kind)

		names := make([]string, 0, len(f.series))
		for n := range f.series {
			names = append(names, n)
		}
		sort.Strings(names)

		for _, n := range names {
			switch m := f.series[n].(type) {
			case *Counter:
				fmt.Fprintf(w, "%s %d\n", n, m.Value())
			case *Gauge:
				fmt.Fprintf(w, "%s %d\n", n, m.Value())
			case *Histogram:
				renderHistogram(w, base, n, m)
			}
		}
	}
}

// renderHistogram expands one histogram series into its _bucket, _sum,
// and _count lines. The le label goes last inside any existing labels.
func renderHistogram(w io.Writer, base, name string, h *Histogram) {
	counts, sum, count := h.snapshot()
	inner := innerLabels(name)

	var cum uint64
	for i, bound := range h.bounds {
		cum += counts[i]
		fmt.Fprintf(w, "%s_bucket%s %d\n", base, joinLabels(inner, fmt.Sprintf(`le="%g"`, bound)), cum)
	}
	fmt.Fprintf(w, "%s_bucket%s %d\n", base, joinLabels(inner, `le="+Inf"`), count)
	fmt.Fprintf(w, "%s_sum%s %g\n", base, joinLabels(inner), sum)
	fmt.Fprintf(w, "%s_count%s %d\n", base, joinLabels(inner), count)
}

// joinLabels builds a label block from non-empty parts, or "" if none.
func joinLabels(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return ""
	}
	return "{" + strings.Join(kept, ",") + "}"
}

// Handler serves the scrape payload.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		r.renderTo(w)
	})
}

// Serve blocks serving /metrics and /healthz on the given port.
func (r *Registry) Serve(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok\n"))
	})
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}

// ServeAsync runs Serve in a goroutine for the life of the process.
func (r *Registry) ServeAsync(port int) {
	go func() {
		if err := r.Serve(port); err != nil {
			slog.Error("metrics server stopped", "port", port, "error", err)
		}
	}()
}
