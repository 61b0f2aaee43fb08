package output

import (
	"bytes"
	"sync"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/groom/pkg/groom/types"
)

// TemplateFormatter renders a Result through a text/template.
type TemplateFormatter struct {
	templateStr string
	template    *template.Template
	mu          sync.Mutex
}

// NewTemplateFormatter creates a template formatter for templateStr.
func NewTemplateFormatter(templateStr string) *TemplateFormatter {
	return &TemplateFormatter{templateStr: templateStr}
}

// SetTemplate replaces the template string.
func (f *TemplateFormatter) SetTemplate(templateStr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.templateStr = templateStr
	f.template = nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		// {{bytes .Stats.BytesSeen}}
		"bytes": func(size int64) string {
			return humanize.IBytes(uint64(size))
		},
		// {{comma .Stats.FilesSeen}}
		"comma": humanize.Comma,
		// {{elapsed .Stats.Elapsed}}
		"elapsed": func(d time.Duration) string {
			return types.FormatElapsed(d)
		},
	}
}

// Format writes the formatted output to the buffer.
func (f *TemplateFormatter) Format(w *bytes.Buffer, r *Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.template == nil {
		tmpl, err := template.New("output").Funcs(templateFuncs()).Parse(f.templateStr)
		if err != nil {
			return err
		}
		f.template = tmpl
	}
	return f.template.Execute(w, r)
}

// DefaultTemplate prints the classic one-line summary.
const DefaultTemplate = `Processed {{comma .Stats.FilesSeen}} files in {{comma .Stats.DirsSeen}} directories, ` +
	`{{comma .Stats.FilesModified}} files modified in {{elapsed .Stats.Elapsed}}.
`

func init() {
	Register("template", func() Formatter {
		return NewTemplateFormatter(DefaultTemplate)
	})
}

var _ Formatter = (*TemplateFormatter)(nil)
