package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/boorucrawl/internal/model"
)

// MarkdownWriter outputs the history as a Markdown document.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs runs in Markdown format.
func (w *MarkdownWriter) Write(runs []*model.RunRecord) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Crawl History")
	md.PlainText("")

	if len(runs) == 0 {
		md.PlainText("No crawl runs recorded yet.")
		return len(md.String()), md.Build()
	}

	s := Summarize(runs)
	w.writeSummary(md, s)
	w.writeRuns(md, runs)
	w.writeDropped(md, s)
	w.writeFailures(md, runs)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated by [boorucrawl](https://github.com/nao1215/boorucrawl)*")

	return len(md.String()), md.Build()
}

// writeSummary writes the totals table and an alert for failed runs.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, s Summary) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Runs", strconv.Itoa(s.Runs)},
			{"Completed", strconv.Itoa(s.Completed)},
			{"Failed", strconv.Itoa(s.Failed)},
			{"Images fetched", strconv.Itoa(s.Fetched)},
			{"Images exported", strconv.Itoa(s.Exported)},
		},
	})
	md.PlainText("")

	if s.Failed > 0 {
		md.Warningf("%d run(s) failed. See the failures section for details.", s.Failed)
	} else {
		md.Tip("All recorded runs completed.")
	}
	md.PlainText("")
}

// writeRuns writes one table row per run.
func (w *MarkdownWriter) writeRuns(md *markdown.Markdown, runs []*model.RunRecord) {
	md.H2("Runs")
	md.PlainText("")

	rows := make([][]string, len(runs))
	for i, r := range runs {
		status := "✅ " + statusText(r)
		if r.Status == model.RunStatusFailed {
			status = "❌ " + statusText(r)
		}
		rows[i] = []string{
			r.StartedAt.Local().Format(timeLayout),
			r.Parameters.Source.String(),
			"`" + truncateString(r.Parameters.SearchTerm, 40) + "`",
			strconv.Itoa(r.Parameters.ResizeSize),
			strconv.Itoa(r.Exported) + " / " + strconv.Itoa(r.Parameters.MaxCount),
			status,
			r.Duration().Round(time.Second).String(),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Started", "Source", "Query", "Resize", "Exported", "Status", "Duration"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeDropped writes a pie chart of the items removed per step.
func (w *MarkdownWriter) writeDropped(md *markdown.Markdown, s Summary) {
	steps := s.DroppedSteps()
	if len(steps) == 0 {
		return
	}

	md.H2("Dropped Images")
	md.PlainText("")

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Images removed per step"),
		piechart.WithShowData(true),
	)
	for _, step := range steps {
		chart.LabelAndIntValue(step, uint64(s.Dropped[step])) //nolint:gosec // counts are never negative
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFailures writes the error of each failed run.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, runs []*model.RunRecord) {
	var failed []*model.RunRecord
	for _, r := range runs {
		if r.Status == model.RunStatusFailed {
			failed = append(failed, r)
		}
	}
	if len(failed) == 0 {
		return
	}

	md.H2("Failures")
	md.PlainText("")
	for _, r := range failed {
		md.Details(r.StartedAt.Local().Format(timeLayout)+" "+r.ID, r.Error)
	}
	md.PlainText("")
}
