package runner

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func within(got, want, eps float64) bool {
	return math.Abs(got-want) <= eps
}

func TestComputeSpawnStats(t *testing.T) {
	tests := []struct {
		name   string
		totals []uint64
		want   SpawnStats
	}{
		{"no spawns", nil, SpawnStats{}},
		{"uniform", []uint64{100, 100, 100, 100},
			SpawnStats{Min: 100, Max: 100, P50: 100, P95: 100, MaxMinRatio: 1, CV: 0}},
		{"spread", []uint64{10, 20, 30, 40},
			SpawnStats{Min: 10, Max: 40, P50: 30, P95: 40, MaxMinRatio: 4, CV: 0.4472135955}},
		{"starved spawn", []uint64{0, 10},
			SpawnStats{Min: 0, Max: 10, P50: 10, P95: 10, MaxMinRatio: 0, CV: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := computeSpawnStats(tt.totals)
			if got.Min != tt.want.Min || got.Max != tt.want.Max {
				t.Errorf("min/max = %d/%d, want %d/%d", got.Min, got.Max, tt.want.Min, tt.want.Max)
			}
			if got.P50 != tt.want.P50 || got.P95 != tt.want.P95 {
				t.Errorf("p50/p95 = %d/%d, want %d/%d", got.P50, got.P95, tt.want.P50, tt.want.P95)
			}
			if !within(got.MaxMinRatio, tt.want.MaxMinRatio, 1e-9) {
				t.Errorf("max-min-ratio = %v, want %v", got.MaxMinRatio, tt.want.MaxMinRatio)
			}
			if !within(got.CV, tt.want.CV, 1e-9) {
				t.Errorf("cv = %v, want %v", got.CV, tt.want.CV)
			}
		})
	}
}

func TestQuantileNearestRank(t *testing.T) {
	tests := []struct {
		name   string
		sorted []uint64
		q      float64
		want   uint64
	}{
		{"empty", nil, 0.5, 0},
		{"singleton", []uint64{7}, 0.95, 7},
		{"median of four", []uint64{1, 2, 3, 4}, 0.5, 3},
		{"tail of four", []uint64{1, 2, 3, 4}, 0.95, 4},
		{"floor", []uint64{1, 2, 3, 4}, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := quantileNearestRank(tt.sorted, tt.q); got != tt.want {
				t.Errorf("quantileNearestRank(%v, %v) = %d, want %d", tt.sorted, tt.q, got, tt.want)
			}
		})
	}
}

func TestWrapNaN(t *testing.T) {
	if got := wrapNaN(math.NaN()); got != 0 {
		t.Errorf("wrapNaN(NaN) = %v, want 0", got)
	}
	if got := wrapNaN(1.5); got != 1.5 {
		t.Errorf("wrapNaN(1.5) = %v, want 1.5", got)
	}
}

func TestFoldMergesSpawnResults(t *testing.T) {
	runStart := time.Unix(1000, 0)

	sr0 := newSpawnResult(0, nil)
	sr0.Issued, sr0.Succeeded, sr0.Failed = 3, 2, 1
	sr0.Hist.Insert(5 * time.Millisecond)
	sr0.Hist.Insert(5 * time.Millisecond)
	sr0.KindCounts["expand"] = 2
	oh := newDetailHistogram()
	_ = oh.RecordValue(5000)
	_ = oh.RecordValue(5000)
	sr0.OpHists["expand"] = oh
	sr0.DeadlineOffset = 10 * time.Millisecond
	sr0.LastCompletion = runStart.Add(1 * time.Second)

	sr1 := newSpawnResult(1, nil)
	sr1.Issued, sr1.Succeeded = 2, 2
	sr1.Hist.Insert(10 * time.Millisecond)
	sr1.Hist.Insert(10 * time.Millisecond)
	sr1.KindCounts["point"] = 2
	sr1.DeadlineOffset = 30 * time.Millisecond
	sr1.LastCompletion = runStart.Add(2 * time.Second)

	res, opHists, err := fold(runStart, []*SpawnResult{sr0, sr1}, nil)
	if err != nil {
		t.Fatalf("fold() error = %v", err)
	}

	if res.Errors != 1 || res.SuccessfulRequests != 4 {
		t.Errorf("errors/successful = %d/%d, want 1/4", res.Errors, res.SuccessfulRequests)
	}
	if res.ElapsedMs != 2000 {
		t.Errorf("elapsed-ms = %d, want 2000", res.ElapsedMs)
	}
	if !within(res.ActualMPS, 2.0, 1e-9) {
		t.Errorf("actual mps = %v, want 2", res.ActualMPS)
	}
	if !within(res.DeadlineOffset, 20.0, 1e-9) {
		t.Errorf("deadline-offset = %v, want 20", res.DeadlineOffset)
	}
	if res.LatencyHistogram.Count != 4 {
		t.Errorf("histogram count = %d, want 4", res.LatencyHistogram.Count)
	}
	if res.Latency.P50 != 5.0 || res.Latency.P95 != 10.0 || res.Latency.P99 != 10.0 {
		t.Errorf("latency = %+v, want p50=5 p95=10 p99=10", res.Latency)
	}
	if !within(res.AvgLatencyMs, 7.5, 1e-9) {
		t.Errorf("avg latency = %v, want 7.5", res.AvgLatencyMs)
	}
	if res.Operations.ByQuery["expand"] != 2 || res.Operations.ByQuery["point"] != 2 {
		t.Errorf("by-query = %v, want expand=2 point=2", res.Operations.ByQuery)
	}
	if res.Operations.BySpawn["0"] != 3 || res.Operations.BySpawn["1"] != 2 {
		t.Errorf("by-spawn = %v, want 0:3 1:2", res.Operations.BySpawn)
	}
	if res.SpawnStats.Min != 2 || res.SpawnStats.Max != 3 {
		t.Errorf("spawn-stats min/max = %d/%d, want 2/3", res.SpawnStats.Min, res.SpawnStats.Max)
	}
	if !within(res.SpawnStats.MaxMinRatio, 1.5, 1e-9) || !within(res.SpawnStats.CV, 0.2, 1e-9) {
		t.Errorf("spawn-stats ratio/cv = %v/%v, want 1.5/0.2", res.SpawnStats.MaxMinRatio, res.SpawnStats.CV)
	}
	if opHists["expand"].TotalCount() != 2 {
		t.Errorf("detail histogram count = %d, want 2", opHists["expand"].TotalCount())
	}
}

func TestFoldEmptySpawns(t *testing.T) {
	runStart := time.Unix(1000, 0)
	res, _, err := fold(runStart, []*SpawnResult{newSpawnResult(0, nil)}, nil)
	if err != nil {
		t.Fatalf("fold() error = %v", err)
	}
	if res.SuccessfulRequests != 0 || res.Errors != 0 {
		t.Errorf("counts = %d/%d, want 0/0", res.SuccessfulRequests, res.Errors)
	}
	if res.Latency.P50 != 0 || res.AvgLatencyMs != 0 {
		t.Errorf("latency on empty run = %+v avg %v, want zeros", res.Latency, res.AvgLatencyMs)
	}
	if res.ActualMPS != 0 {
		t.Errorf("actual mps = %v, want 0", res.ActualMPS)
	}
}

func TestRunResultJSONFieldNames(t *testing.T) {
	res := &RunResult{
		Status:         StatusCompleted,
		DeadlineOffset: 1.5,
		ActualMPS:      99.5,
		Latency:        Latency{P50: 5, P95: 10, P99: 20},
		AvgLatencyMs:   6.1,
		LatencyHistogram: HistogramExport{
			BucketsMs:        []float64{5, 10},
			CumulativeCounts: []uint64{2, 4},
			Count:            4,
		},
		ElapsedMs:          1000,
		Errors:             1,
		SuccessfulRequests: 4,
		Operations: Operations{
			ByQuery: map[string]uint64{"expand": 2},
			BySpawn: map[string]uint64{"0": 3},
		},
		SpawnStats: SpawnStats{Min: 2, Max: 3, P50: 3, P95: 3, MaxMinRatio: 1.5, CV: 0.2},
	}
	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal error = %v", err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal error = %v", err)
	}

	top := []string{
		"status", "deadline-offset", "actual-messages-per-second", "latency",
		"avg-latency-ms", "latency-histogram", "elapsed-ms", "cpu-usage",
		"ram-usage", "errors", "successful-requests", "operations", "spawn-stats",
	}
	for _, key := range top {
		if _, ok := doc[key]; !ok {
			t.Errorf("missing field %q in %s", key, data)
		}
	}

	nested := map[string][]string{
		"latency":           {"p50", "p95", "p99"},
		"latency-histogram": {"buckets-ms", "cumulative-counts", "count"},
		"operations":        {"by-query", "by-spawn"},
		"spawn-stats":       {"min", "max", "p50", "p95", "max-min-ratio", "cv"},
	}
	for parent, keys := range nested {
		var sub map[string]json.RawMessage
		if err := json.Unmarshal(doc[parent], &sub); err != nil {
			t.Fatalf("unmarshal %s error = %v", parent, err)
		}
		for _, key := range keys {
			if _, ok := sub[key]; !ok {
				t.Errorf("missing field %s.%s", parent, key)
			}
		}
	}
}
