// Package aggregate turns per-run artifact directories into the cross-vendor
// outputs: a UI-facing JSON document and a human comparison table.
package aggregate

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/FalkorDB/gdbench/telemetry"
)

// RunMeta is the run manifest written next to every result. It records what
// was asked for; the measured outcome lives in the result document.
type RunMeta struct {
	RunID               string            `json:"run_id"`
	Vendor              string            `json:"vendor"`
	Dataset             string            `json:"dataset"`
	Endpoint            string            `json:"endpoint,omitempty"`
	QueriesFile         string            `json:"queries_file"`
	QueriesCount        int               `json:"queries_count"`
	Parallel            uint              `json:"parallel"`
	MPS                 float64           `json:"mps"`
	StartedAtEpochSecs  int64             `json:"started_at_epoch_secs"`
	FinishedAtEpochSecs int64             `json:"finished_at_epoch_secs"`
	ElapsedMs           uint64            `json:"elapsed_ms"`
	Machine             telemetry.Machine `json:"machine"`
}

// WriteMeta serializes meta indented to path.
func WriteMeta(path string, meta *RunMeta) error {
	data, err := json.MarshalIndent(meta, "", " ")
	if err != nil {
		return errors.Wrap(err, "cannot marshal run meta")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "cannot write run meta %s", path)
	}
	return nil
}

// LoadMeta reads a run manifest back.
func LoadMeta(path string) (*RunMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read run meta %s", path)
	}
	var meta RunMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, errors.Wrapf(err, "cannot parse run meta %s", path)
	}
	return &meta, nil
}
