// Package telemetry captures the environment around a run: machine facts for
// the run manifest, process CPU and memory sampling, and the exported
// per-operation counters.
package telemetry

import (
	"os"
	"runtime"

	"github.com/prometheus/procfs"
)

// Machine describes the host a run executed on, as recorded in the run
// manifest.
type Machine struct {
	OS          string `json:"os"`
	Arch        string `json:"arch"`
	CPUCount    int    `json:"cpu_count"`
	Cores       int    `json:"cores"`
	MemoryBytes uint64 `json:"memory_bytes"`
	Hostname    string `json:"hostname"`
}

// CollectMachine gathers host facts. Fields that cannot be read stay at
// their zero value; a benchmark never fails because /proc is unreadable.
func CollectMachine() Machine {
	m := Machine{
		OS:       runtime.GOOS,
		Arch:     runtime.GOARCH,
		CPUCount: runtime.NumCPU(),
		Cores:    runtime.NumCPU(),
	}
	if host, err := os.Hostname(); err == nil {
		m.Hostname = host
	}
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return m
	}
	if mi, err := fs.Meminfo(); err == nil && mi.MemTotal != nil {
		// Meminfo reports kB.
		m.MemoryBytes = *mi.MemTotal * 1024
	}
	if cores := physicalCores(fs); cores > 0 {
		m.Cores = cores
	}
	return m
}

// physicalCores counts distinct physical cores, as opposed to the hardware
// threads runtime.NumCPU reports.
func physicalCores(fs procfs.FS) int {
	infos, err := fs.CPUInfo()
	if err != nil {
		return 0
	}
	seen := make(map[string]struct{})
	for _, info := range infos {
		seen[info.PhysicalID+"/"+info.CoreID] = struct{}{}
	}
	return len(seen)
}
