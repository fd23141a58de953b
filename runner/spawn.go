package runner

import (
	"context"
	"sync/atomic"
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
	log "github.com/sirupsen/logrus"

	"github.com/FalkorDB/gdbench/catalog"
	"github.com/FalkorDB/gdbench/graphdb"
	"github.com/FalkorDB/gdbench/hist"
)

// Detail histograms track microseconds from 1µs to 1 minute at 3 significant
// figures, per query name.
const (
	detailHistMin = 1
	detailHistMax = int64(time.Minute / time.Microsecond)
	detailHistSig = 3
)

func newDetailHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(detailHistMin, detailHistMax, detailHistSig)
}

// SpawnResult is the statistics bundle of one spawn. It is owned exclusively
// by its spawn while running and becomes read-only the moment the spawn hands
// it back to the orchestrator.
type SpawnResult struct {
	SpawnID   int
	Issued    uint64
	Succeeded uint64
	Failed    uint64
	// KindCounts counts completed operations per query name.
	KindCounts map[string]uint64
	// Hist is the bounded-bucket accumulator feeding the run-level result.
	Hist *hist.Histogram
	// OpHists carries per-query-name detail quantiles for the report table.
	OpHists map[string]*hdrhistogram.Histogram
	// DeadlineOffset accumulates how late each dispatch was against the
	// open-loop schedule. The backpressure signal.
	DeadlineOffset time.Duration
	LastCompletion time.Time
}

func newSpawnResult(id int, buckets []float64) *SpawnResult {
	return &SpawnResult{
		SpawnID:    id,
		KindCounts: make(map[string]uint64),
		Hist:       hist.New(buckets),
		OpHists:    make(map[string]*hdrhistogram.Histogram),
	}
}

// liveCounters are written only by the owning spawn and read by the progress
// reporter. Single writer, so plain atomics suffice.
type liveCounters struct {
	issued   atomic.Uint64
	failed   atomic.Uint64
	offsetNs atomic.Int64
}

// Observer receives per-operation notifications, e.g. for exported counters.
// Implementations must be cheap and safe for concurrent use; they carry no
// percentile state.
type Observer interface {
	ObserveOperation(spawnID int, name string)
	ObserveError(spawnID int, name string)
}

type spawn struct {
	id     int
	recs   []catalog.QueryRecord
	stride uint
	sched  schedule
	client graphdb.Client
	res    *SpawnResult
	live   *liveCounters
	obs    Observer
	// fatal cancels the whole run with a cause when the capability is lost.
	fatal context.CancelCauseFunc
	log   *log.Entry
}

// run executes the spawn's sub-stream. The timer wait below is the only
// scheduler suspension point; cancellation is observed there and before each
// overdue dispatch, and a cancelled spawn returns with its partial result
// intact.
func (s *spawn) run(ctx context.Context) {
	defer func() {
		s.res.LastCompletion = time.Now()
	}()

	total := len(s.recs)
	for k := 0; ; k++ {
		idx := assignedIndex(s.id, k, s.stride)
		if idx >= total {
			return
		}
		rec := s.recs[idx]

		due := s.sched.at(k)
		if wait := time.Until(due); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		} else {
			select {
			case <-ctx.Done():
				return
			default:
			}
		}

		offset := time.Since(due)
		if offset < 0 {
			offset = 0
		}
		s.res.DeadlineOffset += offset
		s.live.offsetNs.Add(int64(offset))

		took, err := s.client.Execute(ctx, rec)
		if err != nil {
			if ctx.Err() != nil {
				// Run ended mid-flight; the aborted attempt is not a sample.
				return
			}
			s.res.Issued++
			s.res.Failed++
			s.live.issued.Add(1)
			s.live.failed.Add(1)
			if s.obs != nil {
				s.obs.ObserveError(s.id, rec.Name)
			}
			s.log.WithError(err).WithField("query", rec.Name).Debug("query failed")
			if graphdb.IsUnrecoverable(err) {
				s.fatal(err)
				return
			}
			continue
		}

		s.res.Issued++
		s.res.Succeeded++
		s.live.issued.Add(1)
		s.res.Hist.Insert(took)
		s.res.KindCounts[rec.Name]++
		oh, ok := s.res.OpHists[rec.Name]
		if !ok {
			oh = newDetailHistogram()
			s.res.OpHists[rec.Name] = oh
		}
		_ = oh.RecordValue(took.Microseconds())
		if s.obs != nil {
			s.obs.ObserveOperation(s.id, rec.Name)
		}
	}
}
