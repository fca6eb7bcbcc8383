package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rug-cit-hpc/slurm-jobinfo/hints"
	"github.com/rug-cit-hpc/slurm-jobinfo/record"
)

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// MT: Constant after initialization; immutable
var Formats = []string{FormatText, FormatJSON, FormatYAML}

// The report as data, for the structured output formats and the HTTP API.
type Document struct {
	JobID         string        `json:"job" yaml:"job"`
	Phase         string        `json:"phase" yaml:"phase"`
	Live          bool          `json:"live" yaml:"live"`
	Lines         []record.Line `json:"lines" yaml:"lines"`
	Hints         []hints.Hint  `json:"hints" yaml:"hints"`
	Documentation string        `json:"documentation,omitempty" yaml:"documentation,omitempty"`
}

func (r *Report) Document() *Document {
	d := &Document{
		JobID: r.JobID,
		Phase: r.Phase.String(),
		Live:  r.Live,
		Lines: r.Meta.Lines(),
		Hints: r.Hints,
	}
	if len(r.Hints) > 0 {
		d.Documentation = r.Documentation
	}
	return d
}

func Write(w io.Writer, r *Report, format string) error {
	switch format {
	case FormatText, "":
		WriteText(w, r)
		return nil
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r.Document())
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r.Document()); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("Unknown output format %q, expected one of %s", format, strings.Join(Formats, ", "))
}

// One "label : value" line per visible attribute, labels padded to the same width, then the
// hints if there are any.
func WriteText(w io.Writer, r *Report) {
	lines := r.Meta.Lines()
	width := 0
	for _, l := range lines {
		width = max(width, len(l.Label))
	}
	for _, l := range lines {
		fmt.Fprintf(w, "%-*s : %s\n", width, l.Label, l.Value)
	}
	if len(r.Hints) > 0 {
		fmt.Fprintln(w)
		hints.Write(w, r.Hints, r.Documentation)
	}
}
