// Package report renders the benchmark comparison report.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/x0rium/llm-structured-output-benchmark/internal/bench"
)

// Render writes the comparison table to w, one row per model configuration in
// configuration-list order.
func Render(w io.Writer, rep *bench.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "MODEL\tPROVIDER\tSUCCESS\tAVG TIME\tRESULTS\tCOST")
	for _, s := range rep.Summaries {
		fmt.Fprintf(tw, "%s\t%s\t%.1f%%\t%.2fs\t%d/%d/%d\t$%.4f\n",
			s.Model,
			s.Provider,
			s.SuccessRate,
			s.AvgSuccessLatency.Seconds(),
			s.Counts.Success,
			s.Counts.ValidationError,
			s.Counts.Failure,
			s.CostUSD,
		)
	}

	return tw.Flush()
}

// WriteJSON writes the full report as an indented JSON artifact.
func WriteJSON(path string, rep *bench.Report) error {
	data, err := json.MarshalIndent(rep, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
