package aggregate

import (
	"fmt"
	"strings"

	"code.cloudfoundry.org/bytefmt"
)

// CompareTable renders the merged runs as a markdown table, one row per run.
func CompareTable(data *UIData) string {
	var sb strings.Builder
	sb.WriteString("| vendor | dataset | clients | target mps | actual mps | p50 | p95 | p99 | avg | errors | deadline offset | peak ram |\n")
	sb.WriteString("|--------|---------|---------|------------|------------|-----|-----|-----|-----|--------|-----------------|----------|\n")
	for _, run := range data.Runs {
		res := run.Result
		fmt.Fprintf(&sb, "| %s | %s | %d | %.0f | %.1f | %s | %s | %s | %s | %d | %s | %s |\n",
			run.Vendor,
			run.Dataset,
			run.Clients,
			run.TargetMPS,
			res.ActualMPS,
			FormatMS(res.Latency.P50),
			FormatMS(res.Latency.P95),
			FormatMS(res.Latency.P99),
			FormatMS(res.AvgLatencyMs),
			res.Errors,
			FormatMS(res.DeadlineOffset),
			bytefmt.ByteSize(res.RAMUsage))
	}
	return sb.String()
}
