package runner

import (
	"encoding/json"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
	"github.com/pkg/errors"

	"github.com/FalkorDB/gdbench/hist"
)

// Run terminal states. External cancellation still completes with a smaller
// sample; only configuration or capability failures abort.
const (
	StatusCompleted = "completed"
	StatusAborted   = "aborted"
)

// Latency is the merged-histogram percentile block.
type Latency struct {
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

// HistogramExport is the serialized bucket view of the merged histogram.
type HistogramExport struct {
	BucketsMs        []float64 `json:"buckets-ms"`
	CumulativeCounts []uint64  `json:"cumulative-counts"`
	Count            uint64    `json:"count"`
}

// Operations breaks completed operations down by query name and by spawn.
type Operations struct {
	ByQuery map[string]uint64 `json:"by-query"`
	BySpawn map[string]uint64 `json:"by-spawn"`
}

// SpawnStats describes how evenly work spread across spawns: the
// distribution of per-spawn issued-operation totals.
type SpawnStats struct {
	Min         uint64  `json:"min"`
	Max         uint64  `json:"max"`
	P50         uint64  `json:"p50"`
	P95         uint64  `json:"p95"`
	MaxMinRatio float64 `json:"max-min-ratio"`
	CV          float64 `json:"cv"`
}

// RunResult is the single artifact of a run. Created once after all spawns
// join, then serialized and never mutated.
type RunResult struct {
	Status             string          `json:"status"`
	DeadlineOffset     float64         `json:"deadline-offset"`
	ActualMPS          float64         `json:"actual-messages-per-second"`
	Latency            Latency         `json:"latency"`
	AvgLatencyMs       float64         `json:"avg-latency-ms"`
	LatencyHistogram   HistogramExport `json:"latency-histogram"`
	ElapsedMs          uint64          `json:"elapsed-ms"`
	CPUUsage           float64         `json:"cpu-usage"`
	RAMUsage           uint64          `json:"ram-usage"`
	Errors             uint64          `json:"errors"`
	SuccessfulRequests uint64          `json:"successful-requests"`
	Operations         Operations      `json:"operations"`
	SpawnStats         SpawnStats      `json:"spawn-stats"`
}

// WriteResult serializes res indented to path.
func WriteResult(path string, res *RunResult) error {
	data, err := json.MarshalIndent(res, "", " ")
	if err != nil {
		return errors.Wrap(err, "cannot marshal run result")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "cannot write run result %s", path)
	}
	return nil
}

// fold joins the spawn results into the final RunResult plus the merged
// per-query-name detail histograms. Merge order does not matter.
func fold(runStart time.Time, spawnResults []*SpawnResult, buckets []float64) (*RunResult, map[string]*hdrhistogram.Histogram, error) {
	merged := hist.New(buckets)
	opHists := make(map[string]*hdrhistogram.Histogram)
	byQuery := make(map[string]uint64)
	bySpawn := make(map[string]uint64)
	totals := make([]uint64, 0, len(spawnResults))

	var issued, succeeded, failed uint64
	var offsetSum time.Duration
	var last time.Time
	for _, sr := range spawnResults {
		issued += sr.Issued
		succeeded += sr.Succeeded
		failed += sr.Failed
		offsetSum += sr.DeadlineOffset
		totals = append(totals, sr.Issued)
		bySpawn[strconv.Itoa(sr.SpawnID)] = sr.Issued
		for name, n := range sr.KindCounts {
			byQuery[name] += n
		}
		if err := merged.Merge(sr.Hist); err != nil {
			return nil, nil, err
		}
		for name, h := range sr.OpHists {
			mh, ok := opHists[name]
			if !ok {
				mh = newDetailHistogram()
				opHists[name] = mh
			}
			mh.Merge(h)
		}
		if sr.LastCompletion.After(last) {
			last = sr.LastCompletion
		}
	}

	elapsed := last.Sub(runStart)
	if elapsed < 0 {
		elapsed = 0
	}
	elapsedMs := uint64(elapsed.Milliseconds())

	actualMPS := 0.0
	if elapsed > 0 {
		actualMPS = wrapNaN(float64(succeeded) / elapsed.Seconds())
	}

	meanOffsetMs := 0.0
	if n := len(spawnResults); n > 0 {
		meanOffsetMs = float64(offsetSum.Nanoseconds()) / 1e6 / float64(n)
	}

	bucketsMs, cumulative := merged.Export()
	res := &RunResult{
		DeadlineOffset: meanOffsetMs,
		ActualMPS:      actualMPS,
		Latency: Latency{
			P50: merged.Percentile(0.50),
			P95: merged.Percentile(0.95),
			P99: merged.Percentile(0.99),
		},
		AvgLatencyMs: merged.Mean(),
		LatencyHistogram: HistogramExport{
			BucketsMs:        bucketsMs,
			CumulativeCounts: cumulative,
			Count:            merged.Count(),
		},
		ElapsedMs:          elapsedMs,
		Errors:             failed,
		SuccessfulRequests: succeeded,
		Operations:         Operations{ByQuery: byQuery, BySpawn: bySpawn},
		SpawnStats:         computeSpawnStats(totals),
	}
	return res, opHists, nil
}

// computeSpawnStats derives the fairness block from per-spawn totals.
// Quantiles use the nearest-rank rule on the sorted totals; the ratio and
// the coefficient of variation report 0 on their degenerate denominators.
func computeSpawnStats(totals []uint64) SpawnStats {
	if len(totals) == 0 {
		return SpawnStats{}
	}
	sorted := make([]uint64, len(totals))
	copy(sorted, totals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	min := sorted[0]
	max := sorted[len(sorted)-1]

	ratio := 0.0
	if min > 0 {
		ratio = float64(max) / float64(min)
	}

	var sum float64
	for _, v := range sorted {
		sum += float64(v)
	}
	mean := sum / float64(len(sorted))
	var variance float64
	for _, v := range sorted {
		d := float64(v) - mean
		variance += d * d
	}
	variance /= float64(len(sorted))
	cv := 0.0
	if mean > 0 {
		cv = math.Sqrt(variance) / mean
	}

	return SpawnStats{
		Min:         min,
		Max:         max,
		P50:         quantileNearestRank(sorted, 0.50),
		P95:         quantileNearestRank(sorted, 0.95),
		MaxMinRatio: ratio,
		CV:          cv,
	}
}

// quantileNearestRank picks sorted[round((len-1)*q)].
func quantileNearestRank(sorted []uint64, q float64) uint64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Round(float64(len(sorted)-1) * q))
	return sorted[idx]
}

// wrapNaN keeps NaN out of serialized JSON.
func wrapNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
