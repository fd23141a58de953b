package telemetry

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/procfs"
)

// Sampler periodically reads the process's own /proc entry while a run is in
// flight. It reports the mean CPU utilization over the sampled window and
// the peak resident set size.
type Sampler struct {
	proc     procfs.Proc
	start    time.Time
	startCPU float64
	onSample func(cpuPercent float64, rssBytes uint64)

	mu         sync.Mutex
	cpuPercent float64
	peakRSS    uint64

	done     chan struct{}
	finished chan struct{}
}

// StartSampler begins sampling the current process every period. onSample,
// if non-nil, receives every observation, e.g. to feed exported gauges.
func StartSampler(period time.Duration, onSample func(cpuPercent float64, rssBytes uint64)) (*Sampler, error) {
	proc, err := procfs.Self()
	if err != nil {
		return nil, errors.Wrap(err, "cannot open /proc for self")
	}
	stat, err := proc.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "cannot read initial process stat")
	}
	if period <= 0 {
		period = time.Second
	}
	s := &Sampler{
		proc:     proc,
		start:    time.Now(),
		startCPU: stat.CPUTime(),
		onSample: onSample,
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	s.observe(uint64(stat.ResidentMemory()), s.startCPU, s.start)
	go s.loop(period)
	return s, nil
}

func (s *Sampler) loop(period time.Duration) {
	defer close(s.finished)
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.sample(now)
		}
	}
}

func (s *Sampler) sample(now time.Time) {
	stat, err := s.proc.Stat()
	if err != nil {
		return
	}
	s.observe(uint64(stat.ResidentMemory()), stat.CPUTime(), now)
}

func (s *Sampler) observe(rss uint64, cpuSeconds float64, now time.Time) {
	cpu := meanCPUPercent(s.startCPU, cpuSeconds, now.Sub(s.start))
	s.mu.Lock()
	if rss > s.peakRSS {
		s.peakRSS = rss
	}
	s.cpuPercent = cpu
	rss = s.peakRSS
	s.mu.Unlock()
	if s.onSample != nil {
		s.onSample(cpu, rss)
	}
}

// Stop takes a final sample and ends the loop. Safe to call once.
func (s *Sampler) Stop() {
	close(s.done)
	<-s.finished
	s.sample(time.Now())
}

// CPUPercent returns the mean CPU utilization of the process over the
// sampled window, in percent of one core. A fresh sample is taken first so
// end-of-run reads are current.
func (s *Sampler) CPUPercent() float64 {
	s.sample(time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cpuPercent
}

// PeakRSS returns the largest resident set size observed, in bytes.
func (s *Sampler) PeakRSS() uint64 {
	s.sample(time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peakRSS
}

// meanCPUPercent converts two cumulative CPU-time readings into the mean
// utilization across the wall-clock window between them.
func meanCPUPercent(startCPU, endCPU float64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	used := endCPU - startCPU
	if used < 0 {
		used = 0
	}
	return used / elapsed.Seconds() * 100
}
