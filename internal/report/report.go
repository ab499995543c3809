// Package report summarizes a pipeline run: what was read, what was dropped and how
// well each variable is covered in the result table.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sensorgrid/domain/core"
	"sensorgrid/domain/sensor"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/montanaflynn/stats"
)

// PartitionSummary holds the counters of one partition.
type PartitionSummary struct {
	ID         core.PartitionID
	Sensors    int
	Readings   int
	Unresolved int
	Suspect    int
	Untracked  int
	Rows       int
	Error      string // set when the partition was skipped
}

// Skipped reports whether the partition was left out of the result.
func (p PartitionSummary) Skipped() bool {
	return p.Error != ""
}

// VariableCoverage describes one output column.
type VariableCoverage struct {
	Variable core.VariableKey
	Present  int
	Missing  int
	Mean     float64
	Median   float64
	StdDev   float64
	Min      float64
	Max      float64
}

// RunReport is the audit record of one run.
type RunReport struct {
	RunID       core.RunID
	Fingerprint core.Hash
	StartedAt   time.Time
	FinishedAt  time.Time
	Variables   []core.VariableKey
	FullDay     bool

	Partitions        []PartitionSummary
	Rows              int
	DuplicatesDropped int
	BackfilledBuckets int
	EmptyAggregates   int
	Labeled           int
	Coverage          []VariableCoverage
}

// New starts a report for a run.
func New(variables []core.VariableKey, fingerprint core.Hash, fullDay bool) *RunReport {
	return &RunReport{
		RunID:       core.RunID(core.NewID()),
		Fingerprint: fingerprint,
		StartedAt:   time.Now().UTC(),
		Variables:   append([]core.VariableKey(nil), variables...),
		FullDay:     fullDay,
	}
}

// Duration returns the wall time of the run.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// SkippedPartitions counts partitions left out after a failure.
func (r *RunReport) SkippedPartitions() int {
	n := 0
	for _, p := range r.Partitions {
		if p.Skipped() {
			n++
		}
	}
	return n
}

// Finish stamps the end time and computes coverage from the final table.
func (r *RunReport) Finish(table *sensor.ResultTable) {
	r.FinishedAt = time.Now().UTC()
	r.Rows = len(table.Records)
	r.Coverage = Coverage(table)
}

// Coverage computes per-variable presence and summary statistics over a result table.
func Coverage(table *sensor.ResultTable) []VariableCoverage {
	out := make([]VariableCoverage, 0, len(table.Variables))
	for _, v := range table.Variables {
		cov := VariableCoverage{Variable: v}
		values := make([]float64, 0, len(table.Records))
		for _, rec := range table.Records {
			if mean, ok := rec.Mean(v); ok {
				values = append(values, mean)
			} else {
				cov.Missing++
			}
		}
		cov.Present = len(values)
		if len(values) > 0 {
			data := stats.Float64Data(values)
			cov.Mean, _ = data.Mean()
			cov.Median, _ = data.Median()
			cov.StdDev, _ = data.StandardDeviation()
			cov.Min, _ = data.Min()
			cov.Max, _ = data.Max()
		}
		out = append(out, cov)
	}
	return out
}

// Markdown renders the report.
func (r *RunReport) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Run %s\n\n", r.RunID)
	fmt.Fprintf(&b, "- Fingerprint: `%s`\n", r.Fingerprint.Short())
	fmt.Fprintf(&b, "- Started: %s\n", r.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Duration: %s\n", r.Duration().Round(time.Millisecond))
	fmt.Fprintf(&b, "- Variables: %s\n", joinKeys(r.Variables))
	fmt.Fprintf(&b, "- Day/Night labels: %v\n", r.FullDay)
	fmt.Fprintf(&b, "- Rows: %d (duplicates dropped: %d)\n", r.Rows, r.DuplicatesDropped)
	fmt.Fprintf(&b, "- Backfilled buckets: %d\n", r.BackfilledBuckets)
	fmt.Fprintf(&b, "- Empty aggregates: %d\n", r.EmptyAggregates)
	if r.FullDay {
		fmt.Fprintf(&b, "- Labeled rows: %d\n", r.Labeled)
	}

	b.WriteString("\n## Partitions\n\n")
	b.WriteString("| Partition | Sensors | Readings | Unresolved | Suspect | Untracked | Rows | Status |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|\n")
	for _, p := range r.Partitions {
		status := "ok"
		if p.Skipped() {
			status = "skipped: " + strings.ReplaceAll(p.Error, "|", "/")
		}
		fmt.Fprintf(&b, "| %s | %d | %d | %d | %d | %d | %d | %s |\n",
			p.ID, p.Sensors, p.Readings, p.Unresolved, p.Suspect, p.Untracked, p.Rows, status)
	}

	b.WriteString("\n## Coverage\n\n")
	b.WriteString("| Variable | Present | Missing | Mean | Median | StdDev | Min | Max |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|\n")
	for _, c := range r.Coverage {
		fmt.Fprintf(&b, "| %s | %d | %d | %.4g | %.4g | %.4g | %.4g | %.4g |\n",
			c.Variable, c.Present, c.Missing, c.Mean, c.Median, c.StdDev, c.Min, c.Max)
	}

	return b.String()
}

// HTML renders the report as a standalone HTML page.
func (r *RunReport) HTML() []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: "Run " + r.RunID.String(),
	})
	return markdown.ToHTML([]byte(r.Markdown()), p, renderer)
}

// WriteFile writes the report to path, as HTML when the extension is .html or .htm
// and as markdown otherwise.
func (r *RunReport) WriteFile(path string) error {
	var content []byte
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		content = r.HTML()
	default:
		content = []byte(r.Markdown())
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func joinKeys(keys []core.VariableKey) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = string(k)
	}
	return strings.Join(parts, ", ")
}
