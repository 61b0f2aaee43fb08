package output

import (
	"bytes"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/jamesainslie/groom/pkg/groom/types"
)

// PlainFormatter writes aligned key/value lines without styling, followed by
// one "old<TAB>new" line per rename.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	rows := [][2]string{
		{"run", r.RunID},
		{"root", r.Root},
		{"action", r.Action},
		{"dry_run", strconv.FormatBool(r.DryRun)},
		{"files", strconv.FormatInt(r.Stats.FilesSeen, 10)},
		{"dirs", strconv.FormatInt(r.Stats.DirsSeen, 10)},
		{"files_modified", strconv.FormatInt(r.Stats.FilesModified, 10)},
		{"dirs_modified", strconv.FormatInt(r.Stats.DirsModified, 10)},
		{"failed", strconv.FormatInt(r.Stats.Failed, 10)},
		{"bytes", strconv.FormatInt(r.Stats.BytesSeen, 10)},
		{"elapsed", types.FormatElapsed(r.Stats.Elapsed)},
		{"interrupted", strconv.FormatBool(r.Interrupted)},
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1]); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, rn := range r.Renames {
		fmt.Fprintf(w, "%s\t%s\n", rn.Old, rn.New)
	}
	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	return nil
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

var _ Formatter = (*PlainFormatter)(nil)
