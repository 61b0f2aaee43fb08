package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/groom/pkg/groom/types"
)

// PrettyFormatter renders the summary with lipgloss boxes for a terminal.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")

	if len(r.Renames) > 0 {
		w.WriteString(f.formatRenames(r.Renames))
	}

	w.WriteString(f.formatFooter(r))
	w.WriteString("\n")

	if len(r.Warnings) > 0 {
		w.WriteString("\n")
		w.WriteString(f.formatWarnings(r.Warnings))
	}
	return nil
}

func (f *PrettyFormatter) formatHeader(r *Result) string {
	var lines []string

	lines = append(lines, LabelStyle.Render("Root:")+" "+ValueStyle.Render(r.Root))

	action := ValueStyle.Render(r.Action)
	if r.DryRun {
		action += " " + WarningStyle.Render("(dry run)")
	}
	info := LabelStyle.Render("Action:") + " " + action
	if r.RunID != "" {
		info += "  " + LabelStyle.Render("Run:") + " " + MutedStyle.Render(r.RunID)
	}
	lines = append(lines, info)

	if r.Interrupted {
		lines = append(lines, WarningStyle.Bold(true).Render("Run interrupted before the queue drained"))
	}

	return HeaderBox.Render(strings.Join(lines, "\n"))
}

func (f *PrettyFormatter) formatRenames(renames []Rename) string {
	var sb strings.Builder
	arrow := ArrowStyle.Render("->")
	for _, rn := range renames {
		sb.WriteString(fmt.Sprintf("  %s %s %s\n",
			MutedStyle.Render(rn.Old), arrow, ValueStyle.Render(rn.New)))
	}
	return sb.String()
}

func (f *PrettyFormatter) formatFooter(r *Result) string {
	field := func(label, value string) string {
		return LabelStyle.Render(label) + " " + value
	}

	parts := []string{
		field("Files:", CountStyle.Render(humanize.Comma(r.Stats.FilesSeen))),
		field("Dirs:", CountStyle.Render(humanize.Comma(r.Stats.DirsSeen))),
		field("Modified:", SuccessStyle.Render(humanize.Comma(r.Modified()))),
	}
	if r.Stats.Failed > 0 {
		parts = append(parts, field("Failed:", ErrorStyle.Render(humanize.Comma(r.Stats.Failed))))
	}
	parts = append(parts,
		field("Size:", ValueStyle.Render(humanize.IBytes(uint64(r.Stats.BytesSeen)))),
		field("Took:", ValueStyle.Render(types.FormatElapsed(r.Stats.Elapsed))),
	)

	return FooterBox.Render(strings.Join(parts, "  "))
}

func (f *PrettyFormatter) formatWarnings(warnings []string) string {
	var sb strings.Builder
	sb.WriteString(WarningStyle.Bold(true).Render("Warnings:"))
	sb.WriteString("\n")
	for _, warning := range warnings {
		sb.WriteString(WarningStyle.Render("  " + warning))
		sb.WriteString("\n")
	}
	return sb.String()
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

var _ Formatter = (*PrettyFormatter)(nil)
