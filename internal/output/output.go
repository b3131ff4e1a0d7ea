// Package output renders run reports, escalation tasks, and watch events.
// It supports text, JSON, and table formats.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/bimmerbailey/templar/internal/escalate"
	"github.com/bimmerbailey/templar/internal/pipeline"
)

// Format represents an output format type.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatTable Format = "table"
)

// ParseFormat converts a string to a Format, defaulting to text.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	case "table":
		return FormatTable
	default:
		return FormatText
	}
}

// Writer handles writing formatted output.
type Writer struct {
	w      io.Writer
	format Format
}

// New creates a new output Writer.
func New(w io.Writer, format Format) *Writer {
	return &Writer{w: w, format: format}
}

// WriteJSON outputs any value as indented JSON.
func (wr *Writer) WriteJSON(v interface{}) error {
	enc := json.NewEncoder(wr.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteReport outputs a run report in the configured format.
func (wr *Writer) WriteReport(report pipeline.Report) error {
	switch wr.format {
	case FormatJSON:
		return wr.WriteJSON(report)
	case FormatTable:
		return wr.writeReportTable(report)
	default:
		return wr.writeReportText(report)
	}
}

func (wr *Writer) writeReportText(report pipeline.Report) error {
	fmt.Fprintf(wr.w, "source: %s (device=%s, vendor=%s)\n",
		report.Source.SourceID, report.Source.DeviceType, report.Source.Vendor)
	fmt.Fprintf(wr.w, "processed: %d  matched: %d  learned: %d  escalated: %d\n",
		report.Counters.ProcessedLines, report.Counters.MatchedLines,
		report.Counters.LearnedTemplates, report.Counters.Escalations)
	fmt.Fprintf(wr.w, "parsed output: %s\n", report.Artifacts.Parsed)
	fmt.Fprintf(wr.w, "templates: %s\n", report.Artifacts.Templates)
	fmt.Fprintf(wr.w, "metrics: %s\n", report.Artifacts.Metrics)
	return nil
}

func (wr *Writer) writeReportTable(report pipeline.Report) error {
	tw := tabwriter.NewWriter(wr.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TEMPLATE\tACTIVE\tPATTERN")
	fmt.Fprintln(tw, "--------\t------\t-------")

	for _, rec := range report.Templates {
		pattern := rec.Pattern
		if len(pattern) > 80 {
			pattern = pattern[:77] + "..."
		}
		fmt.Fprintf(tw, "%s\t%t\t%s\n", rec.ID, rec.Active, pattern)
	}

	return tw.Flush()
}

// WriteTasks outputs the escalation queue in the configured format.
func (wr *Writer) WriteTasks(tasks []escalate.Task) error {
	switch wr.format {
	case FormatJSON:
		return wr.WriteJSON(tasks)
	case FormatTable:
		return wr.writeTasksTable(tasks)
	default:
		return wr.writeTasksText(tasks)
	}
}

func (wr *Writer) writeTasksText(tasks []escalate.Task) error {
	if len(tasks) == 0 {
		fmt.Fprintln(wr.w, "no escalated tasks")
		return nil
	}
	for _, t := range tasks {
		fmt.Fprintf(wr.w, "%s [%s] %s: %s\n", t.ID, t.Status, t.Kind, t.Description)
	}
	return nil
}

func (wr *Writer) writeTasksTable(tasks []escalate.Task) error {
	tw := tabwriter.NewWriter(wr.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tKIND\tDESCRIPTION")
	fmt.Fprintln(tw, "--\t------\t----\t-----------")

	for _, t := range tasks {
		desc := t.Description
		if len(desc) > 60 {
			desc = desc[:57] + "..."
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, t.Status, t.Kind, desc)
	}

	return tw.Flush()
}
