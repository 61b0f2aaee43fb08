package output

import "time"

// document is the machine-readable shape shared by the json and yaml
// formatters.
type document struct {
	Run      docRun   `json:"run" yaml:"run"`
	Stats    docStats `json:"stats" yaml:"stats"`
	Renames  []Rename `json:"renames,omitempty" yaml:"renames,omitempty"`
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

type docRun struct {
	ID          string `json:"id" yaml:"id"`
	Root        string `json:"root" yaml:"root"`
	Action      string `json:"action" yaml:"action"`
	DryRun      bool   `json:"dry_run" yaml:"dry_run"`
	Interrupted bool   `json:"interrupted" yaml:"interrupted"`
}

type docStats struct {
	FilesSeen     int64  `json:"files_seen" yaml:"files_seen"`
	DirsSeen      int64  `json:"dirs_seen" yaml:"dirs_seen"`
	FilesModified int64  `json:"files_modified" yaml:"files_modified"`
	DirsModified  int64  `json:"dirs_modified" yaml:"dirs_modified"`
	BytesSeen     int64  `json:"bytes_seen" yaml:"bytes_seen"`
	Failed        int64  `json:"failed" yaml:"failed"`
	DirsListed    int64  `json:"dirs_listed" yaml:"dirs_listed"`
	WalkErrors    int64  `json:"walk_errors" yaml:"walk_errors"`
	Elapsed       string `json:"elapsed" yaml:"elapsed"`
}

func buildDocument(r *Result) document {
	return document{
		Run: docRun{
			ID:          r.RunID,
			Root:        r.Root,
			Action:      r.Action,
			DryRun:      r.DryRun,
			Interrupted: r.Interrupted,
		},
		Stats: docStats{
			FilesSeen:     r.Stats.FilesSeen,
			DirsSeen:      r.Stats.DirsSeen,
			FilesModified: r.Stats.FilesModified,
			DirsModified:  r.Stats.DirsModified,
			BytesSeen:     r.Stats.BytesSeen,
			Failed:        r.Stats.Failed,
			DirsListed:    r.DirsListed,
			WalkErrors:    r.WalkErrors,
			Elapsed:       formatDurationString(r.Stats.Elapsed),
		},
		Renames:  r.Renames,
		Warnings: r.Warnings,
	}
}

// formatDurationString formats a duration for machine output; zero is empty.
func formatDurationString(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}
