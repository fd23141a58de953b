// Package hist implements the bounded-memory latency accumulator used by the
// benchmark spawns. Bucket bounds are fixed at construction; every sample
// lands in a bucket or in the overflow slot, so no sample is ever dropped.
package hist

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// DefaultBounds is the bucket ladder used for database latencies, in
// milliseconds. It is dense below 100ms where graph query latencies live and
// widens geometrically up to one minute.
var DefaultBounds = []float64{
	0.1, 0.25, 0.5, 0.75,
	1, 2, 3, 4, 5, 6, 8,
	10, 15, 20, 25, 30, 40, 50, 60, 80,
	100, 150, 200, 250, 300, 400, 500, 750,
	1000, 1500, 2000, 2500, 5000, 7500,
	10000, 20000, 30000, 60000,
}

// Histogram tracks a latency distribution over fixed bucket upper bounds
// (milliseconds). Counts above the last bound accumulate in the overflow
// bucket. Not safe for concurrent use; each spawn owns its own instance.
type Histogram struct {
	bounds   []float64
	counts   []uint64
	overflow uint64
	total    uint64
	sumMs    float64
}

// New returns a Histogram over the given strictly increasing bucket bounds.
// Nil or empty bounds fall back to DefaultBounds.
func New(bounds []float64) *Histogram {
	if len(bounds) == 0 {
		bounds = DefaultBounds
	}
	b := make([]float64, len(bounds))
	copy(b, bounds)
	return &Histogram{
		bounds: b,
		counts: make([]uint64, len(b)),
	}
}

// Insert records one latency sample.
func (h *Histogram) Insert(d time.Duration) {
	h.InsertMs(float64(d.Nanoseconds()) / 1e6)
}

// InsertMs records one latency sample given in milliseconds.
func (h *Histogram) InsertMs(ms float64) {
	h.total++
	h.sumMs += ms
	i := sort.SearchFloat64s(h.bounds, ms)
	if i == len(h.bounds) {
		h.overflow++
		return
	}
	h.counts[i]++
}

// Count returns the number of inserted samples, overflow included.
func (h *Histogram) Count() uint64 {
	return h.total
}

// Sum returns the sum of all inserted samples in milliseconds.
func (h *Histogram) Sum() float64 {
	return h.sumMs
}

// Mean returns the average sample in milliseconds, 0 when empty.
func (h *Histogram) Mean() float64 {
	if h.total == 0 {
		return 0
	}
	return h.sumMs / float64(h.total)
}

// Merge adds other into h bucket-wise. Both histograms must share the same
// bucket bounds; merging is associative and commutative so fold order does
// not matter.
func (h *Histogram) Merge(other *Histogram) error {
	if other == nil {
		return nil
	}
	if len(h.bounds) != len(other.bounds) {
		return fmt.Errorf("hist: bucket bound mismatch: %d vs %d buckets", len(h.bounds), len(other.bounds))
	}
	for i, b := range h.bounds {
		if other.bounds[i] != b {
			return fmt.Errorf("hist: bucket bound mismatch at %d: %v vs %v", i, b, other.bounds[i])
		}
	}
	for i := range h.counts {
		h.counts[i] += other.counts[i]
	}
	h.overflow += other.overflow
	h.total += other.total
	h.sumMs += other.sumMs
	return nil
}

// Percentile returns the smallest bucket bound whose cumulative count covers
// the p-th percentile (p in (0,1]). Samples in the overflow bucket resolve to
// the largest bound. Returns 0 when the histogram is empty.
func (h *Histogram) Percentile(p float64) float64 {
	if h.total == 0 {
		return 0
	}
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	target := uint64(math.Ceil(p * float64(h.total)))
	if target == 0 {
		target = 1
	}
	var cum uint64
	for i, c := range h.counts {
		cum += c
		if cum >= target {
			return h.bounds[i]
		}
	}
	return h.bounds[len(h.bounds)-1]
}

// Export returns the serializable view: bucket upper bounds in ms and the
// matching cumulative counts. The final cumulative entry (the overflow,
// attributed to the last bound) always equals Count.
func (h *Histogram) Export() (bucketsMs []float64, cumulative []uint64) {
	bucketsMs = make([]float64, len(h.bounds))
	copy(bucketsMs, h.bounds)
	cumulative = make([]uint64, len(h.counts))
	var cum uint64
	for i, c := range h.counts {
		cum += c
		cumulative[i] = cum
	}
	if n := len(cumulative); n > 0 {
		cumulative[n-1] += h.overflow
	}
	return bucketsMs, cumulative
}

// Clone returns an independent copy, useful when folding without mutating
// spawn-owned state.
func (h *Histogram) Clone() *Histogram {
	c := New(h.bounds)
	copy(c.counts, h.counts)
	c.overflow = h.overflow
	c.total = h.total
	c.sumMs = h.sumMs
	return c
}
