package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// PrettyFormatter renders colored output with lipgloss for terminals.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	switch r.Kind {
	case KindEntries:
		w.WriteString(f.formatEntries(r.Entries))
		w.WriteString(f.formatEntriesFooter(r.Entries))
	case KindStatus:
		w.WriteString(f.formatStatus(r))
	case KindCommit:
		w.WriteString(f.formatCommit(r.Commit))
	case KindHistory:
		w.WriteString(f.formatHistory(r))
	}

	if len(r.Warnings) > 0 {
		w.WriteString("\n")
		w.WriteString(f.formatWarnings(r.Warnings))
	}
	return nil
}

func (f *PrettyFormatter) formatEntries(entries []EntryInfo) string {
	if len(entries) == 0 {
		return MutedStyle.Render("  No variables found matching criteria") + "\n"
	}

	width := 0
	for _, e := range entries {
		width = max(width, len(e.Name))
	}

	var sb strings.Builder
	for _, e := range entries {
		marker := stateMarkers[e.State]
		style, ok := stateStyles[e.State]
		if !ok {
			style = MutedStyle
		}
		name := padRight(e.Name, width)
		value := singleLine(e.Value)

		switch {
		case e.State == "deleted":
			name = DeletedStyle.Render(name)
			value = DeletedStyle.Render(value)
		case e.Corrupted:
			name = NameStyle.Render(name)
			value = CorruptedStyle.Render(value)
		default:
			name = NameStyle.Render(name)
			value = ValueStyle.Render(value)
		}

		fmt.Fprintf(&sb, "%s %s %s  %s\n", style.Render(marker), MutedStyle.Render(padRight(e.Scope, 7)), name, value)
		if e.State == "modified" {
			fmt.Fprintf(&sb, "  %s %s\n", strings.Repeat(" ", 7+width+1), MutedStyle.Render("was: "+singleLine(e.Baseline)))
		}
		if len(e.Broken) > 0 {
			fmt.Fprintf(&sb, "  %s %s\n", strings.Repeat(" ", 7+width+1), ErrorStyle.Render("missing: "+strings.Join(e.Broken, ", ")))
		}
		if e.CheckErr != "" {
			fmt.Fprintf(&sb, "  %s %s\n", strings.Repeat(" ", 7+width+1), WarningStyle.Render("check failed: "+e.CheckErr))
		}
	}
	return sb.String()
}

func (f *PrettyFormatter) formatEntriesFooter(entries []EntryInfo) string {
	counts := make(map[string]int)
	corrupted := 0
	for _, e := range entries {
		counts[e.State]++
		if e.Corrupted {
			corrupted++
		}
	}

	parts := []string{
		LabelStyle.Render("Variables:") + " " + ValueStyle.Render(fmt.Sprintf("%d", len(entries))),
	}
	pending := counts["added"] + counts["modified"] + counts["deleted"]
	if pending > 0 {
		parts = append(parts, WarningStyle.Render(fmt.Sprintf("%d pending", pending)))
	}
	if corrupted > 0 {
		parts = append(parts, ErrorStyle.Render(fmt.Sprintf("%d corrupted", corrupted)))
	}
	if pending > 0 {
		parts = append(parts, MutedStyle.Render("Run 'enviro commit' to apply"))
	}
	return FooterBox.Render(strings.Join(parts, "  ")) + "\n"
}

func (f *PrettyFormatter) formatStatus(r *Result) string {
	var sb strings.Builder

	if len(r.Entries) == 0 {
		sb.WriteString(SuccessStyle.Render("No pending changes"))
		sb.WriteString("\n")
	} else {
		sb.WriteString(TitleStyle.Render("Pending changes"))
		sb.WriteString("\n")
		sb.WriteString(f.formatEntries(r.Entries))
	}

	if len(r.Drift) > 0 {
		sb.WriteString("\n")
		sb.WriteString(TitleStyle.Render("Changed outside enviro"))
		sb.WriteString("\n")
		for _, d := range r.Drift {
			var detail string
			switch {
			case d.Untracked:
				detail = SuccessStyle.Render("new") + " " + singleLine(d.Current)
			case !d.Present:
				detail = ErrorStyle.Render("removed")
			default:
				detail = singleLine(d.Baseline) + MutedStyle.Render(" -> ") + singleLine(d.Current)
			}
			fmt.Fprintf(&sb, "  %s %s  %s\n", MutedStyle.Render(padRight(d.Scope, 7)), NameStyle.Render(d.Name), detail)
		}
	}
	return sb.String()
}

func (f *PrettyFormatter) formatCommit(c *CommitInfo) string {
	if c == nil {
		return ""
	}

	var sb strings.Builder
	title := "Commit"
	if c.DryRun {
		title = "Commit plan (dry run)"
	}
	sb.WriteString(TitleStyle.Render(title))
	sb.WriteString("\n")

	for _, s := range c.Scopes {
		header := NameStyle.Render(s.Scope)
		if s.Skipped {
			header += " " + WarningStyle.Render("skipped: "+s.SkipReason)
		}
		sb.WriteString(header)
		sb.WriteString("\n")
		for _, op := range s.Ops {
			sb.WriteString("  ")
			sb.WriteString(f.formatOp(op, s.Skipped))
			sb.WriteString("\n")
		}
	}

	var parts []string
	switch {
	case c.DryRun:
		parts = append(parts, LabelStyle.Render("Planned:")+" "+ValueStyle.Render(fmt.Sprintf("%d", c.Count(StatusPlanned))))
	case c.Success:
		parts = append(parts, SuccessStyle.Render(fmt.Sprintf("%d applied", c.Count(StatusApplied))))
	default:
		parts = append(parts, ErrorStyle.Render("Commit failed"))
		if n := c.Count(StatusApplied); n > 0 {
			parts = append(parts, WarningStyle.Render(fmt.Sprintf("%d applied before failure", n)))
		}
	}
	if c.Duration > 0 {
		parts = append(parts, MutedStyle.Render(formatDuration(c.Duration.Seconds())))
	}
	if c.ID != "" {
		parts = append(parts, MutedStyle.Render(c.ID))
	}
	sb.WriteString(FooterBox.Render(strings.Join(parts, "  ")))
	sb.WriteString("\n")

	if c.Error != "" {
		sb.WriteString(ErrorStyle.Render(c.Error))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (f *PrettyFormatter) formatOp(op OpInfo, skipped bool) string {
	status := op.Status
	if skipped {
		status = StatusPending
	}

	var mark string
	switch status {
	case StatusApplied:
		mark = SuccessStyle.Render("✓")
	case StatusFailed:
		mark = ErrorStyle.Render("✗")
	case StatusPending:
		mark = MutedStyle.Render("·")
	default:
		mark = TitleStyle.Render("›")
	}

	var line string
	if op.Kind == "unset" {
		line = ErrorStyle.Render("unset") + " " + NameStyle.Render(op.Name)
	} else {
		line = SuccessStyle.Render("set") + " " + NameStyle.Render(op.Name) + "=" + singleLine(op.Value)
	}
	if op.Error != "" {
		line += " " + ErrorStyle.Render(op.Error)
	}
	return mark + " " + line
}

func (f *PrettyFormatter) formatHistory(r *Result) string {
	if len(r.History) == 0 {
		return MutedStyle.Render("  No commits recorded") + "\n"
	}

	now := r.now()
	var sb strings.Builder
	for _, h := range r.History {
		status := SuccessStyle.Render("ok    ")
		if !h.Success {
			status = ErrorStyle.Render("failed")
		}
		when := humanize.RelTime(h.Timestamp, now, "ago", "from now")
		counts := fmt.Sprintf("%d set, %d unset", h.Sets, h.Unsets)
		fmt.Fprintf(&sb, "%s  %s  %s  %s\n", status, ValueStyle.Render(h.ID), MutedStyle.Render(when), LabelStyle.Render(counts))
		if h.Error != "" {
			fmt.Fprintf(&sb, "        %s\n", ErrorStyle.Render(h.Error))
		}
	}
	return sb.String()
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

// padRight pads s with spaces on the right to width.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// formatDuration formats seconds in a human-friendly way.
func formatDuration(sec float64) string {
	if sec < 1 {
		return fmt.Sprintf("%.0fms", sec*1000)
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	minutes := int(sec) / 60
	seconds := int(sec) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
