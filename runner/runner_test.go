package runner

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/FalkorDB/gdbench/catalog"
)

// fakeClient stands in for a database. It reports latency as a fixed value
// and can burn real time or fail on a fixed cadence.
type fakeClient struct {
	latency   time.Duration
	sleep     time.Duration
	failEvery int
	failWith  error

	mu    sync.Mutex
	calls int
}

func (f *fakeClient) Execute(ctx context.Context, rec catalog.QueryRecord) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if f.sleep > 0 {
		timer := time.NewTimer(f.sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return 0, ctx.Err()
		case <-timer.C:
		}
	}
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	if f.failEvery > 0 && n%f.failEvery == 0 {
		if f.failWith != nil {
			return 0, f.failWith
		}
		return 0, errors.New("query rejected")
	}
	return f.latency, nil
}

func (f *fakeClient) Ping(ctx context.Context) error  { return nil }
func (f *fakeClient) Clear(ctx context.Context) error { return nil }
func (f *fakeClient) Close() error                    { return nil }

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testCatalog(n int) []catalog.QueryRecord {
	recs := make([]catalog.QueryRecord, n)
	for i := range recs {
		recs[i] = catalog.QueryRecord{
			ID:     fmt.Sprintf("q%08d", i),
			Vendor: catalog.VendorFalkor,
			Class:  catalog.ClassRead,
			Name:   "single_vertex_read",
			Text:   "MATCH (n:User {id : 1}) RETURN n",
		}
	}
	return recs
}

func testConfig(parallelism uint, mps float64) Config {
	return Config{
		Vendor:      "falkor",
		RunID:       "test",
		Parallelism: parallelism,
		TargetMPS:   mps,
		StartDelay:  50 * time.Millisecond,
	}
}

// A solo spawn at 100 mps over 100 fixed 5ms queries should track the
// schedule: throughput near the target, negligible lateness, and every
// percentile sitting on the 5ms bucket.
func TestRunFixedLatencyPacing(t *testing.T) {
	client := &fakeClient{latency: 5 * time.Millisecond}
	r := New(testConfig(1, 100), client, testCatalog(100))

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.Status != StatusCompleted {
		t.Errorf("status = %q, want %q", res.Status, StatusCompleted)
	}
	if res.SuccessfulRequests != 100 || res.Errors != 0 {
		t.Errorf("successful/errors = %d/%d, want 100/0", res.SuccessfulRequests, res.Errors)
	}
	if res.ActualMPS < 80 || res.ActualMPS > 120 {
		t.Errorf("actual mps = %v, want near 100", res.ActualMPS)
	}
	if res.DeadlineOffset > 500 {
		t.Errorf("deadline-offset = %vms, want near 0", res.DeadlineOffset)
	}
	if res.Latency.P50 != 5 || res.Latency.P95 != 5 || res.Latency.P99 != 5 {
		t.Errorf("latency = %+v, want all quantiles at 5ms", res.Latency)
	}
	if res.LatencyHistogram.Count != 100 {
		t.Errorf("histogram count = %d, want 100", res.LatencyHistogram.Count)
	}
	if res.ElapsedMs < 900 || res.ElapsedMs > 3000 {
		t.Errorf("elapsed-ms = %d, want about 1000", res.ElapsedMs)
	}
}

// Failures land in the error count but never in the latency sample.
func TestRunCountsFailures(t *testing.T) {
	client := &fakeClient{latency: time.Millisecond, failEvery: 10}
	r := New(testConfig(1, 1000), client, testCatalog(100))

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.Status != StatusCompleted {
		t.Errorf("status = %q, want %q", res.Status, StatusCompleted)
	}
	if res.SuccessfulRequests != 90 || res.Errors != 10 {
		t.Errorf("successful/errors = %d/%d, want 90/10", res.SuccessfulRequests, res.Errors)
	}
	if res.LatencyHistogram.Count != 90 {
		t.Errorf("histogram count = %d, want only the 90 successes", res.LatencyHistogram.Count)
	}
	if got := res.Operations.BySpawn["0"]; got != 100 {
		t.Errorf("by-spawn issued = %d, want 100", got)
	}
	var byQuery uint64
	for _, n := range res.Operations.ByQuery {
		byQuery += n
	}
	if byQuery != 90 {
		t.Errorf("by-query total = %d, want 90 completed", byQuery)
	}
}

// Identical queries over four spawns must split 400 records into four equal
// sub-streams.
func TestRunSpreadsWorkEvenly(t *testing.T) {
	client := &fakeClient{latency: time.Millisecond}
	r := New(testConfig(4, 2000), client, testCatalog(400))

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.SuccessfulRequests != 400 {
		t.Errorf("successful = %d, want 400", res.SuccessfulRequests)
	}
	for i := 0; i < 4; i++ {
		if got := res.Operations.BySpawn[fmt.Sprintf("%d", i)]; got != 100 {
			t.Errorf("spawn %d issued %d, want 100", i, got)
		}
	}
	if res.SpawnStats.Min != 100 || res.SpawnStats.Max != 100 {
		t.Errorf("spawn-stats min/max = %d/%d, want 100/100", res.SpawnStats.Min, res.SpawnStats.Max)
	}
	if res.SpawnStats.MaxMinRatio != 1 || res.SpawnStats.CV != 0 {
		t.Errorf("spawn-stats ratio/cv = %v/%v, want 1/0", res.SpawnStats.MaxMinRatio, res.SpawnStats.CV)
	}
}

// When the database cannot keep up, the deadline offset grows while observed
// throughput settles at what the database sustains, far below the target.
func TestRunRecordsBackpressure(t *testing.T) {
	client := &fakeClient{latency: 10 * time.Millisecond, sleep: 10 * time.Millisecond}
	r := New(testConfig(1, 1000), client, testCatalog(60))

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.SuccessfulRequests != 60 {
		t.Errorf("successful = %d, want 60", res.SuccessfulRequests)
	}
	if res.ActualMPS < 50 || res.ActualMPS > 150 {
		t.Errorf("actual mps = %v, want near 100 and far below the 1000 target", res.ActualMPS)
	}
	if res.DeadlineOffset < 2*float64(res.ElapsedMs) {
		t.Errorf("deadline-offset = %vms over %dms elapsed, want lateness dwarfing the run",
			res.DeadlineOffset, res.ElapsedMs)
	}
}

func TestRunConfigValidation(t *testing.T) {
	tests := []struct {
		name       string
		cfg        Config
		catalogLen int
		want       error
	}{
		{"zero parallelism", testConfig(0, 100), 10, ErrBadParallelism},
		{"zero rate", testConfig(1, 0), 10, ErrBadRate},
		{"negative rate", testConfig(1, -5), 10, ErrBadRate},
		{"empty catalog", testConfig(1, 100), 0, ErrEmptyCatalog},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{latency: time.Millisecond}
			r := New(tt.cfg, client, testCatalog(tt.catalogLen))
			res, err := r.Run(context.Background())
			if !errors.Is(err, tt.want) {
				t.Errorf("Run() error = %v, want %v", err, tt.want)
			}
			if res != nil {
				t.Errorf("Run() result = %+v, want nil before start", res)
			}
			if client.callCount() != 0 {
				t.Errorf("client called %d times before a valid start", client.callCount())
			}
		})
	}
}

// External cancellation ends the run cleanly: the partial sample folds into
// a completed result and the aborted in-flight attempt counts nothing.
func TestRunCancelledMidway(t *testing.T) {
	client := &fakeClient{latency: time.Millisecond}
	r := New(testConfig(1, 100), client, testCatalog(10000))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(300 * time.Millisecond)
		cancel()
	}()

	res, err := r.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v, want clean completion", err)
	}
	if res.Status != StatusCompleted {
		t.Errorf("status = %q, want %q", res.Status, StatusCompleted)
	}
	issued := res.SuccessfulRequests + res.Errors
	if issued == 0 || issued >= 10000 {
		t.Errorf("issued = %d, want a partial sample", issued)
	}
	if res.LatencyHistogram.Count != res.SuccessfulRequests {
		t.Errorf("histogram count = %d, want %d", res.LatencyHistogram.Count, res.SuccessfulRequests)
	}
}

// A lost capability aborts the whole run and surfaces the cause.
func TestRunAbortsOnUnrecoverable(t *testing.T) {
	down := &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
	client := &fakeClient{latency: time.Millisecond, failEvery: 1, failWith: down}
	r := New(testConfig(2, 1000), client, testCatalog(100))

	res, err := r.Run(context.Background())
	if err == nil {
		t.Fatal("Run() error = nil, want the abort cause")
	}
	if !errors.Is(err, syscall.ECONNREFUSED) {
		t.Errorf("Run() error = %v, want connection refused", err)
	}
	if res == nil {
		t.Fatal("Run() result = nil, want the partial fold")
	}
	if res.Status != StatusAborted {
		t.Errorf("status = %q, want %q", res.Status, StatusAborted)
	}
	if res.Errors == 0 {
		t.Errorf("errors = 0, want the failed attempt counted")
	}
	if res.SuccessfulRequests+res.Errors >= 100 {
		t.Errorf("issued = %d, want an aborted partial run", res.SuccessfulRequests+res.Errors)
	}
}

func TestCalculateRateMetrics(t *testing.T) {
	if got := calculateRateMetrics(300, 100, 2*time.Second); got != 100 {
		t.Errorf("calculateRateMetrics() = %v, want 100", got)
	}
	if got := calculateRateMetrics(100, 100, time.Second); got != 0 {
		t.Errorf("calculateRateMetrics() = %v, want 0", got)
	}
}
