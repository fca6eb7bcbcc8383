package record

import (
	"strings"
)

// Where the maximum of a per-node attribute was observed.
type Peak struct {
	Node      string
	Qualifier string
}

const (
	NodeUnknown       = "Node unknown"
	QualifierPerTask  = "per task"
	QualifierPerNode  = "per node"
	QualifierNotKnown = "N/A"
)

// The aggregate record for one job: all rows folded through the combinators, plus the fields that
// are derived from the rows as a set or come from other subsystems.  Built fresh for every query.
type Meta struct {
	Row

	PeakMem       Peak
	PeakDiskWrite Peak
	PeakDiskRead  Peak

	// From the queue state, for pending jobs
	Dependencies string
	Reason       string

	// Average GPU utilization in percent, or -1 if not known
	GPUUsage float64
}

// Combine the rows and locate the per-node maxima.
func NewMeta(rows []Row) (*Meta, error) {
	r, err := Combine(rows)
	if err != nil {
		return nil, err
	}
	return &Meta{
		Row:           r,
		PeakMem:       FindPeak(rows, MaxRSS),
		PeakDiskWrite: FindPeak(rows, MaxDiskWrite),
		PeakDiskRead:  FindPeak(rows, MaxDiskRead),
		GPUUsage:      -1,
	}, nil
}

// Find the row with the largest value for the attribute and report the node recorded with that
// value.  With no value above zero the node is unknown, which is the case for jobs that never
// accrued any usage.
func FindPeak(rows []Row, f Field) Peak {
	nodeField, ok := peakNodeField[f]
	if !ok {
		return Peak{NodeUnknown, QualifierNotKnown}
	}
	var best ByteSize
	var peak = Peak{NodeUnknown, QualifierNotKnown}
	for _, r := range rows {
		v, _ := r[f].(ByteSize)
		if v <= best {
			continue
		}
		best = v
		node, _ := r[nodeField].(Text)
		peak.Node = string(node)
		if peak.Node == "" {
			peak.Node = NodeUnknown
		}
		if tasks, _ := r[NTasks].(Count); tasks > 1 {
			peak.Qualifier = QualifierPerTask
		} else {
			peak.Qualifier = QualifierPerNode
		}
	}
	return peak
}

func (m *Meta) Text(f Field) string {
	switch v := m.Row[f].(type) {
	case Text:
		return string(v)
	case Stamp:
		return string(v)
	}
	return ""
}

func (m *Meta) Count(f Field) int64 {
	v, _ := m.Row[f].(Count)
	return int64(v)
}

func (m *Meta) Bytes(f Field) float64 {
	v, _ := m.Row[f].(ByteSize)
	return float64(v)
}

func (m *Meta) Duration(f Field) Duration {
	v, _ := m.Row[f].(Duration)
	return v
}

func (m *Meta) Seconds(f Field) float64 {
	return m.Duration(f).TotalSeconds()
}

func (m *Meta) MemRequest() MemRequest {
	v, _ := m.Row[ReqMem].(MemRequest)
	return v
}

func (m *Meta) Usage() Usage {
	v, _ := m.Row[TRESUsageInTot].(Usage)
	return v
}

func (m *Meta) GPUs() int {
	return GPUCount(m.Text(AllocTRES))
}

func (m *Meta) EndKnown() bool {
	v, _ := m.Row[End].(Stamp)
	return v != "" && !v.IsUnknown()
}

// The lifecycle phase at the time of the query.
type Phase int

const (
	Terminal Phase = iota
	Running
	Pending
)

func (p Phase) String() string {
	switch p {
	case Running:
		return "RUNNING"
	case Pending:
		return "PENDING"
	}
	return "TERMINAL"
}

// Any token set that has neither RUNNING nor PENDING is terminal.  A job with a running step is
// running even if another step is recorded as pending.
func PhaseOf(state string) Phase {
	var pending bool
	for _, t := range strings.Split(state, ",") {
		switch strings.TrimSpace(t) {
		case "RUNNING":
			return Running
		case "PENDING":
			pending = true
		}
	}
	if pending {
		return Pending
	}
	return Terminal
}

func (m *Meta) Phase() Phase {
	return PhaseOf(m.Text(State))
}
