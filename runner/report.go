package runner

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
	"github.com/pkg/errors"
)

// usToMs converts a detail-histogram value (microseconds) for display.
func usToMs(v int64) float64 {
	return float64(v) / 1000.0
}

// PrintSummary writes the post-run console summary.
func (r *Runner) PrintSummary(out io.Writer, res *RunResult) {
	fmt.Fprintf(out, "\nSummary:\n")
	fmt.Fprintf(out, "Issued %d queries in %.3fsec with %d spawns (target %.0f mps)\n",
		res.SuccessfulRequests+res.Errors, float64(res.ElapsedMs)/1000.0, r.cfg.Parallelism, r.cfg.TargetMPS)
	fmt.Fprintf(out, "\tOverall stats:\n\t"+
		"- Actual rate %0.0f ops/sec\n\t"+
		"- Latency q50 %0.3f ms, q95 %0.3f ms, q99 %0.3f ms, avg %0.3f ms\n\t"+
		"- Deadline offset %0.3f ms (mean per spawn)\n\t"+
		"- Errors %d\n",
		res.ActualMPS,
		res.Latency.P50, res.Latency.P95, res.Latency.P99, res.AvgLatencyMs,
		res.DeadlineOffset,
		res.Errors)
	for _, name := range sortedOpNames(r.opHists) {
		h := r.opHists[name]
		fmt.Fprintf(out, "\t- %s: %d ops, q50 %0.3f ms\n",
			name, h.TotalCount(), usToMs(h.ValueAtQuantile(50.0)))
	}
}

// BuildReport renders the per-query-name markdown report.
func BuildReport(cfg Config, res *RunResult, opHists map[string]*hdrhistogram.Histogram) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Benchmark report: %s\n\n", cfg.Vendor)
	fmt.Fprintf(&sb, "- run: %s\n", cfg.RunID)
	fmt.Fprintf(&sb, "- status: %s\n", res.Status)
	fmt.Fprintf(&sb, "- parallel: %d, target mps: %.0f, actual mps: %.2f\n",
		cfg.Parallelism, cfg.TargetMPS, res.ActualMPS)
	fmt.Fprintf(&sb, "- elapsed: %dms, successful: %d, errors: %d\n",
		res.ElapsedMs, res.SuccessfulRequests, res.Errors)
	fmt.Fprintf(&sb, "- deadline offset: %.3fms (mean per spawn)\n\n", res.DeadlineOffset)

	sb.WriteString("| query | count | p50 (ms) | p95 (ms) | p99 (ms) | worst (ms) |\n")
	sb.WriteString("|-------|-------|----------|----------|----------|------------|\n")
	for _, name := range sortedOpNames(opHists) {
		h := opHists[name]
		fmt.Fprintf(&sb, "| %s | %d | %.3f | %.3f | %.3f | %.3f |\n",
			name,
			h.TotalCount(),
			usToMs(h.ValueAtQuantile(50.0)),
			usToMs(h.ValueAtQuantile(95.0)),
			usToMs(h.ValueAtQuantile(99.0)),
			usToMs(h.Max()))
	}
	return sb.String()
}

// WriteReport writes the markdown report to path.
func WriteReport(path string, cfg Config, res *RunResult, opHists map[string]*hdrhistogram.Histogram) error {
	if err := os.WriteFile(path, []byte(BuildReport(cfg, res, opHists)), 0644); err != nil {
		return errors.Wrapf(err, "cannot write report %s", path)
	}
	return nil
}

func sortedOpNames(opHists map[string]*hdrhistogram.Histogram) []string {
	names := make([]string, 0, len(opHists))
	for name := range opHists {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
