package output

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
)

// PlainFormatter renders aligned, uncolored tables suitable for scripts.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	var err error
	switch r.Kind {
	case KindEntries:
		err = f.entries(tw, r.Entries)
	case KindStatus:
		err = f.status(tw, r)
	case KindCommit:
		err = f.commit(tw, r.Commit)
	case KindHistory:
		err = f.history(tw, r)
	}
	if err != nil {
		return err
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	return nil
}

func (f *PlainFormatter) entries(tw *tabwriter.Writer, entries []EntryInfo) error {
	if _, err := fmt.Fprintln(tw, "SCOPE\tSTATE\tNAME\tVALUE"); err != nil {
		return err
	}
	for _, e := range entries {
		state := e.State
		if e.Corrupted {
			state += ",corrupted"
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Scope, state, e.Name, singleLine(e.Value)); err != nil {
			return err
		}
	}
	return nil
}

func (f *PlainFormatter) status(tw *tabwriter.Writer, r *Result) error {
	if err := f.entries(tw, r.Entries); err != nil {
		return err
	}
	if len(r.Drift) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(tw, "\nDRIFT\tNAME\tBASELINE\tCURRENT"); err != nil {
		return err
	}
	for _, d := range r.Drift {
		current := d.Current
		if !d.Present {
			current = "<removed>"
		}
		baseline := d.Baseline
		if d.Untracked {
			baseline = "<untracked>"
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Scope, d.Name, singleLine(baseline), singleLine(current)); err != nil {
			return err
		}
	}
	return nil
}

func (f *PlainFormatter) commit(tw *tabwriter.Writer, c *CommitInfo) error {
	if c == nil {
		return nil
	}
	if _, err := fmt.Fprintln(tw, "SCOPE\tSTATUS\tOP\tNAME\tVALUE"); err != nil {
		return err
	}
	for _, s := range c.Scopes {
		if s.Skipped {
			if _, err := fmt.Fprintf(tw, "%s\tskipped\t-\t-\t%s\n", s.Scope, s.SkipReason); err != nil {
				return err
			}
		}
		for _, op := range s.Ops {
			status := op.Status
			if s.Skipped {
				status = StatusPending
			}
			if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.Scope, status, op.Kind, op.Name, singleLine(op.Value)); err != nil {
				return err
			}
		}
	}
	if c.Error != "" {
		if _, err := fmt.Fprintf(tw, "error: %s\n", c.Error); err != nil {
			return err
		}
	}
	return nil
}

func (f *PlainFormatter) history(tw *tabwriter.Writer, r *Result) error {
	if _, err := fmt.Fprintln(tw, "ID\tWHEN\tRESULT\tSETS\tUNSETS"); err != nil {
		return err
	}
	now := r.now()
	for _, h := range r.History {
		result := "ok"
		if !h.Success {
			result = "failed"
		}
		when := humanize.RelTime(h.Timestamp, now, "ago", "from now")
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", h.ID, when, result, h.Sets, h.Unsets); err != nil {
			return err
		}
	}
	return nil
}

// singleLine flattens newlines so a value stays on one table row.
func singleLine(s string) string {
	return strings.NewReplacer("\r", `\r`, "\n", `\n`).Replace(s)
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
