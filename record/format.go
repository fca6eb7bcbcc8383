package record

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Rendering of attribute values for the report.  Formatters get the whole aggregate because some
// lines are derived from several attributes.

const zeroPlaceholder = "--"

// A byte quantity with two decimals and the largest binary unit that keeps the number >= 1.
func FormatByteSize(b float64) string {
	if b <= 0 {
		return "0.00"
	}
	e := int(math.Log2(b+1) / 10)
	e = min(max(e, 0), len(binaryUnits)-1)
	if e == 0 {
		return fmt.Sprintf("%.2f", b)
	}
	return fmt.Sprintf("%.2f%c", b/math.Exp2(float64(10*e)), binaryUnits[e])
}

// HH:MM:SS, with a day field D- when dayWidth > 0.  The day field is right-aligned to dayWidth and
// blank for durations under a day, so that columns line up.
func FormatDuration(d Duration, dayWidth int) string {
	if d.Empty() {
		return zeroPlaceholder
	}
	n := int64(math.Round(d.TotalSeconds()))
	days, hms := n/86400, fmt.Sprintf("%02d:%02d:%02d", n%86400/3600, n%3600/60, n%60)
	switch {
	case dayWidth > 0 && days > 0:
		return fmt.Sprintf("%*d-%s", dayWidth, days, hms)
	case dayWidth > 0:
		return strings.Repeat(" ", dayWidth+1) + hms
	case days > 0:
		return fmt.Sprintf("%d-%s", days, hms)
	}
	return hms
}

// The width of the widest day count among the walltime-like lines.
func DayWidth(m *Meta) int {
	width := 0
	secs := []float64{
		ParseDuration(m.Text(Timelimit)).TotalSeconds(),
		m.Seconds(Elapsed),
		m.Seconds(TotalCPU),
	}
	for _, s := range secs {
		if days := int64(math.Round(s)) / 86400; days > 0 {
			width = max(width, len(strconv.FormatInt(days, 10)))
		}
	}
	return width
}

func formatText(v Value, _ *Meta) string {
	switch x := v.(type) {
	case Text:
		return string(x)
	case Stamp:
		return string(x)
	}
	return ""
}

func formatCount(v Value, _ *Meta) string {
	c, _ := v.(Count)
	return strconv.FormatInt(int64(c), 10)
}

// STATE, then the block reason and the parenthesized dependencies if there are any.
func formatState(v Value, m *Meta) string {
	s := formatText(v, m)
	if m.Reason != "" {
		s += " " + m.Reason
	}
	if m.Dependencies != "" {
		s += " (" + m.Dependencies + ")"
	}
	return s
}

// Time limits that are durations align with the other walltimes, sentinels print as they are.
func formatLimit(v Value, m *Meta) string {
	s := formatText(v, m)
	if isDuration(s) {
		return FormatDuration(ParseDuration(s), DayWidth(m))
	}
	if s == "" {
		return zeroPlaceholder
	}
	return s
}

func formatWalltime(v Value, m *Meta) string {
	d, _ := v.(Duration)
	return FormatDuration(d, DayWidth(m))
}

// CPU time with its efficiency relative to the cores allocated over the walltime.
func formatCPUTime(v Value, m *Meta) string {
	d, _ := v.(Duration)
	s := FormatDuration(d, DayWidth(m))
	if avail := m.Seconds(Elapsed) * float64(m.Count(NCPUS)); !d.Empty() && avail > 0 {
		s += fmt.Sprintf(" (efficiency: %5.2f%%)", 100*d.TotalSeconds()/avail)
	}
	return s
}

// A share of the total CPU time.
func formatCPUShare(v Value, m *Meta) string {
	d, _ := v.(Duration)
	total := m.Seconds(TotalCPU)
	if total <= 0 {
		return zeroPlaceholder
	}
	return fmt.Sprintf("%5.2f%%", 100*d.TotalSeconds()/total)
}

func formatMemRequest(v Value, m *Meta) string {
	r, _ := v.(MemRequest)
	if r.Empty() {
		return zeroPlaceholder
	}
	s := FormatByteSize(float64(r.Bytes)) + "/" + r.Qualifier()
	total := r.RequestedBytes(m.Count(NCPUS), m.Count(NNodes))
	if total != float64(r.Bytes) {
		s += " (" + FormatByteSize(total) + " total)"
	}
	return s
}

func formatBytes(v Value, _ *Meta) string {
	b, _ := v.(ByteSize)
	return FormatByteSize(float64(b))
}

// A per-node maximum with the node that attained it.
func formatPeak(v Value, p Peak) string {
	b, _ := v.(ByteSize)
	if p.Node == "" {
		p = Peak{NodeUnknown, QualifierNotKnown}
	}
	return fmt.Sprintf("%s (%s, %s)", FormatByteSize(float64(b)), p.Node, p.Qualifier)
}

func formatPeakMem(v Value, m *Meta) string   { return formatPeak(v, m.PeakMem) }
func formatPeakWrite(v Value, m *Meta) string { return formatPeak(v, m.PeakDiskWrite) }
func formatPeakRead(v Value, m *Meta) string  { return formatPeak(v, m.PeakDiskRead) }

func formatUsage(v Value, _ *Meta) string {
	u, _ := v.(Usage)
	if u.Empty() {
		return zeroPlaceholder
	}
	return fmt.Sprintf(
		"%s (memory), %s (disk read)", FormatByteSize(float64(u.Mem)), FormatByteSize(float64(u.Disk)))
}

func formatGPUs(v Value, m *Meta) string {
	n := GPUCount(formatText(v, m))
	switch {
	case n == 0:
		return zeroPlaceholder
	case m.GPUUsage < 0:
		return fmt.Sprintf("%d (usage unavailable)", n)
	}
	return fmt.Sprintf("%d (average usage: %.1f%%)", n, m.GPUUsage)
}

// One label/value pair of the report.
type Line struct {
	Name  string `json:"name" yaml:"name"`
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// The visible attributes of the aggregate, in attribute order.
func (m *Meta) Lines() []Line {
	lines := make([]Line, 0, NumFields)
	for i := range Schema {
		a := &Schema[i]
		if !a.Visible {
			continue
		}
		lines = append(lines, Line{Name: a.Name, Label: a.Desc, Value: a.Format(m.Row[i], m)})
	}
	return lines
}
