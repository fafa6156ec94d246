package verify

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/sarchlab/podsim/compiler"
	"github.com/sarchlab/podsim/cyclemodel"
)

// VerificationReport represents a complete verification report
type VerificationReport struct {
	LayerCount   int
	OpCount      int
	MainRounds   int
	PostRounds   int
	LintIssues   []Issue
	StructIssues []Issue
	TimingIssues []Issue
	Result       *cyclemodel.Result
}

// GenerateReport lints the schedule of c. The replay result may be nil.
func GenerateReport(c *compiler.Compiler, res *cyclemodel.Result) *VerificationReport {
	report := &VerificationReport{
		LayerCount: len(c.Layers()),
		OpCount:    c.Platform().Arena.NumOps(),
		MainRounds: c.NoMainRounds(),
		PostRounds: c.NoPostRounds(),
		Result:     res,
	}

	report.LintIssues = RunLint(c)

	for _, issue := range report.LintIssues {
		if issue.Type == IssueStruct {
			report.StructIssues = append(report.StructIssues, issue)
		} else {
			report.TimingIssues = append(report.TimingIssues, issue)
		}
	}

	return report
}

// Passed tells if the schedule has no issue and its replay, if any, finished.
func (r *VerificationReport) Passed() bool {
	if len(r.LintIssues) > 0 {
		return false
	}

	return r.Result == nil || !r.Result.Failed()
}

// WriteReport writes a formatted report to a writer
func (r *VerificationReport) WriteReport(w io.Writer) {
	separator := strings.Repeat("=", 60)

	fmt.Fprintln(w, separator)
	fmt.Fprintln(w, "SCHEDULE VERIFICATION REPORT")
	fmt.Fprintln(w, separator)

	fmt.Fprintf(w, "\n%d layers, %d ops, %d main rounds, %d post rounds\n",
		r.LayerCount, r.OpCount, r.MainRounds, r.PostRounds)

	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "STAGE 1: STATIC LINT CHECKS")
	fmt.Fprintln(w, separator)

	if len(r.LintIssues) == 0 {
		fmt.Fprintln(w, "✓ No lint issues found!")
	} else {
		fmt.Fprintf(w, "⚠ Found %d lint issues (%d STRUCT, %d TIMING):\n\n",
			len(r.LintIssues), len(r.StructIssues), len(r.TimingIssues))

		t := table.NewWriter()
		t.AppendHeader(table.Row{"Type", "Layer", "Unit", "Round", "Op", "Message"})
		for _, issue := range r.LintIssues {
			t.AppendRow(table.Row{
				issue.Type, issue.Layer, issue.Unit, issue.Round, issue.OpID, issue.Message,
			})
		}
		fmt.Fprintln(w, t.Render())
	}

	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "STAGE 2: CYCLE MODEL")
	fmt.Fprintln(w, separator)

	switch {
	case r.Result == nil:
		fmt.Fprintln(w, "- Not replayed")
	case r.Result.Failed():
		fmt.Fprintf(w, "⚠ Replay aborted: %s while waiting for round %d\n",
			r.Result.Failure, r.Result.FailedRound)
	default:
		fmt.Fprintf(w, "✓ Replay finished in %d cycles (%d memory stall cycles)\n",
			r.Result.NoCycles, r.Result.MemoryStallCycles)
	}

	fmt.Fprintln(w, "\n"+separator)
	if r.Passed() {
		fmt.Fprintln(w, "✓ SCHEDULE PASSED ALL CHECKS")
	} else {
		fmt.Fprintln(w, "⚠ SCHEDULE FAILED")
	}
	fmt.Fprintln(w, separator)
}

// SaveReportToFile saves the report to a file
func (r *VerificationReport) SaveReportToFile(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	r.WriteReport(file)

	return nil
}
