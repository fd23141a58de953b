package runner

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// startProgress launches the periodic progress table on stderr. It reads
// only the spawns' single-writer atomics, so it never contends with the hot
// loop. The returned stop function blocks until the reporter exits.
func (r *Runner) startProgress(lives []liveCounters) func() {
	period := r.cfg.ReportingPeriod
	if period <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		w := new(tabwriter.Writer)
		w.Init(os.Stderr, 20, 0, 0, ' ', tabwriter.AlignRight)
		fmt.Fprint(w, "issued/sec\terrors/sec\ttotal issued\ttotal errors\tavg late ms\n")
		w.Flush()

		ticker := time.NewTicker(period)
		defer ticker.Stop()
		prevTime := time.Now()
		var prevIssued, prevFailed uint64
		for {
			select {
			case <-done:
				return
			case now := <-ticker.C:
				took := now.Sub(prevTime)
				var issued, failed uint64
				var offsetNs int64
				for i := range lives {
					issued += lives[i].issued.Load()
					failed += lives[i].failed.Load()
					offsetNs += lives[i].offsetNs.Load()
				}
				avgLateMs := 0.0
				if issued > 0 {
					avgLateMs = float64(offsetNs) / float64(issued) / 1e6
				}
				fmt.Fprintf(w, "%.0f\t%.0f\t%d\t%d\t%.3f\n",
					calculateRateMetrics(int64(issued), int64(prevIssued), took),
					calculateRateMetrics(int64(failed), int64(prevFailed), took),
					issued, failed, avgLateMs)
				w.Flush()
				prevIssued, prevFailed, prevTime = issued, failed, now
			}
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}

// calculateRateMetrics returns the per-second rate between two counter
// observations.
func calculateRateMetrics(current, prev int64, took time.Duration) float64 {
	return float64(current-prev) / took.Seconds()
}
