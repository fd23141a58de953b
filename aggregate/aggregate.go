package aggregate

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/FalkorDB/gdbench/catalog"
	"github.com/FalkorDB/gdbench/datasets"
	"github.com/FalkorDB/gdbench/runner"
)

// Artifact file names inside one run directory, and the merged document
// consumed by the results viewer.
const (
	MetaFile   = "meta.json"
	ResultFile = "result.json"
	UIFile     = "ui-data.json"
)

// Run pairs one run's manifest with its measured result.
type Run struct {
	Meta   *RunMeta          `json:"meta"`
	Result *runner.RunResult `json:"result"`
}

// UIRun is one run entry in the merged UI document: the headline facts
// up front, the full manifest and result nested.
type UIRun struct {
	Vendor    string  `json:"vendor"`
	Dataset   string  `json:"dataset"`
	Clients   uint    `json:"clients"`
	Platform  string  `json:"platform"`
	TargetMPS float64 `json:"target-messages-per-second"`
	Vertices  uint64  `json:"vertices,omitempty"`
	Edges     uint64  `json:"edges,omitempty"`

	Meta   *RunMeta          `json:"meta"`
	Result *runner.RunResult `json:"result"`
}

// UIData is the merged document over every run found under a results root.
type UIData struct {
	GeneratedAtEpochSecs int64   `json:"generated-at-epoch-secs"`
	Runs                 []UIRun `json:"runs"`
}

// LoadRunDir reads one artifact directory.
func LoadRunDir(dir string) (*Run, error) {
	meta, err := LoadMeta(filepath.Join(dir, MetaFile))
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, ResultFile))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read run result in %s", dir)
	}
	var res runner.RunResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, errors.Wrapf(err, "cannot parse run result in %s", dir)
	}
	return &Run{Meta: meta, Result: &res}, nil
}

// Merge collects every artifact directory under root into one UI document.
// Directories without a complete artifact pair are skipped with a warning.
func Merge(root string) (*UIData, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read results dir %s", root)
	}

	var runs []*Run
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		run, err := LoadRunDir(dir)
		if err != nil {
			log.WithError(err).WithField("dir", dir).Warn("skipping incomplete run dir")
			continue
		}
		runs = append(runs, run)
	}
	if len(runs) == 0 {
		return nil, errors.Errorf("no complete runs under %s", root)
	}

	sort.Slice(runs, func(i, j int) bool {
		if runs[i].Meta.Vendor != runs[j].Meta.Vendor {
			return runs[i].Meta.Vendor < runs[j].Meta.Vendor
		}
		return runs[i].Meta.StartedAtEpochSecs < runs[j].Meta.StartedAtEpochSecs
	})

	ui := &UIData{GeneratedAtEpochSecs: time.Now().Unix()}
	for _, run := range runs {
		ui.Runs = append(ui.Runs, buildUIRun(run))
	}
	return ui, nil
}

func buildUIRun(run *Run) UIRun {
	u := UIRun{
		Vendor:    VendorID(run.Meta.Vendor),
		Dataset:   run.Meta.Dataset,
		Clients:   run.Meta.Parallel,
		Platform:  Platform(),
		TargetMPS: run.Meta.MPS,
		Meta:      run.Meta,
		Result:    run.Result,
	}
	if spec, err := datasets.ForSize(run.Meta.Dataset); err == nil {
		u.Vertices = spec.Vertices
		u.Edges = spec.Edges
	}
	return u
}

// WriteUI serializes the merged document indented to path.
func WriteUI(path string, data *UIData) error {
	raw, err := json.MarshalIndent(data, "", " ")
	if err != nil {
		return errors.Wrap(err, "cannot marshal ui data")
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return errors.Wrapf(err, "cannot write ui data %s", path)
	}
	return nil
}

// VendorID maps internal vendor names onto the identifiers the results
// viewer expects.
func VendorID(vendor string) string {
	if vendor == catalog.VendorFalkor {
		return "falkordb"
	}
	return vendor
}

// Platform names the CPU family the run executed on.
func Platform() string {
	switch runtime.GOARCH {
	case "arm64":
		return "arm"
	case "amd64":
		return "intel"
	default:
		return runtime.GOARCH
	}
}

// FormatMS renders a millisecond figure the way the results viewer parses
// it: seconds above one second, two decimals from 10ms up, three below.
func FormatMS(ms float64) string {
	if ms <= 0 || math.IsNaN(ms) || math.IsInf(ms, 0) {
		return "0ms"
	}
	if ms >= 1000 {
		return fmt.Sprintf("%.3fs", ms/1000)
	}
	if ms >= 10 {
		return fmt.Sprintf("%.2fms", ms)
	}
	return fmt.Sprintf("%.3fms", ms)
}
