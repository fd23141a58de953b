package runner

import "time"

// schedule fixes one spawn's ideal dispatch timeline. The k-th assigned
// record is due at start + k*interval regardless of how long earlier queries
// took: lateness is recorded, never absorbed.
type schedule struct {
	start    time.Time
	interval time.Duration
}

// newSchedule derives the per-spawn interval from the aggregate target rate.
// Each of the N spawns carries R/N messages per second, so consecutive
// deadlines of one spawn sit N/R seconds apart.
func newSchedule(start time.Time, parallelism uint, targetMPS float64) schedule {
	interval := time.Duration(float64(parallelism) / targetMPS * float64(time.Second))
	return schedule{start: start, interval: interval}
}

// at returns the ideal dispatch instant of the spawn's k-th record.
func (s schedule) at(k int) time.Time {
	return s.start.Add(time.Duration(k) * s.interval)
}

// Catalog partitioning is round-robin: spawn s of N owns catalog indices
// s, s+N, s+2N, ... This is deterministic, keeps assignment order within a
// spawn equal to catalog order, and spreads any remainder one record wide.

// assignedIndex maps a spawn's k-th slot back to the catalog index it owns.
func assignedIndex(spawnID, k int, parallelism uint) int {
	return spawnID + k*int(parallelism)
}

// assignedCount returns how many records a spawn owns out of total.
func assignedCount(total, spawnID int, parallelism uint) int {
	n := int(parallelism)
	count := total / n
	if spawnID < total%n {
		count++
	}
	return count
}
