package main

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"cpelink/internal/pipeline"
)

var reportHeaders = []string{"Stage", "Run", "Left", "Right", "Candidates", "Rejected", "Labelled", "Model", "Classified", "Links", "Elapsed"}

var reportAligns = []columnAlignment{
	alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft,
	alignRight, alignLeft, alignRight, alignRight, alignRight,
}

func renderReports(results []pipeline.StageResult) string {
	rows := make([][]string, 0, len(results))
	for _, result := range results {
		report := result.Report
		if report.Stage == "" {
			continue
		}
		rows = append(rows, []string{
			report.Stage,
			result.RunID,
			strconv.Itoa(report.Left),
			strconv.Itoa(report.Right),
			strconv.Itoa(report.Candidates),
			formatRejected(report.Rejected),
			strconv.Itoa(report.Labelled),
			yesNo(report.ModelLoaded),
			strconv.Itoa(report.ClassifiedPositive),
			strconv.Itoa(report.Matches),
			report.Elapsed.Round(time.Millisecond).String(),
		})
	}
	return projection{Headers: reportHeaders, Rows: rows, Aligns: reportAligns}.render()
}

// formatRejected lists non-zero rejection counts by rule name. Left records
// without a partition are counted under the missing_partition rule.
func formatRejected(rejected map[string]int) string {
	var parts []string
	for _, rule := range slices.Sorted(maps.Keys(rejected)) {
		if rejected[rule] > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", rule, rejected[rule]))
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}
