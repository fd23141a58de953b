// Package runner contains the deadline-paced dispatch and measurement engine:
// an open-loop schedule partitioned across concurrent spawns, per-spawn local
// accumulation, and a single fold into the run result. Spawns never share
// mutable state; the orchestrator is the only join point.
package runner

import (
	"errors"
	"time"
)

// Configuration failures abort before any spawn starts.
var (
	ErrBadParallelism = errors.New("parallelism must be at least 1")
	ErrBadRate        = errors.New("target rate must be positive")
	ErrEmptyCatalog   = errors.New("catalog is empty")
)

const defaultStartDelay = 200 * time.Millisecond

// Config parameterizes one run.
type Config struct {
	// Vendor tags logs, metrics and the emitted result. Informational here;
	// the client is dialed by the caller.
	Vendor string
	// RunID tags logs and artifacts. Informational.
	RunID string
	// Parallelism is the spawn count N.
	Parallelism uint
	// TargetMPS is the aggregate target rate R across all spawns.
	TargetMPS float64
	// StartDelay anchors the shared schedule origin slightly in the future so
	// spawn goroutine startup jitter cannot skew the first deadlines.
	// Defaults to 200ms.
	StartDelay time.Duration
	// ReportingPeriod drives the live progress table; 0 disables it.
	ReportingPeriod time.Duration
	// Buckets overrides the latency histogram bounds (milliseconds).
	// Empty means the default ladder.
	Buckets []float64
}

// Validate applies the fail-fast configuration checks against the catalog
// about to be driven.
func (c Config) Validate(catalogLen int) error {
	if c.Parallelism < 1 {
		return ErrBadParallelism
	}
	if !(c.TargetMPS > 0) {
		return ErrBadRate
	}
	if catalogLen == 0 {
		return ErrEmptyCatalog
	}
	return nil
}

func (c Config) startDelay() time.Duration {
	if c.StartDelay <= 0 {
		return defaultStartDelay
	}
	return c.StartDelay
}
