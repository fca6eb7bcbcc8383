package record

import (
	"strings"
)

// One tracked attribute of a job.  The Name is the sacct/sstat column name.
type Attribute struct {
	Name    string
	Parse   func(raw string) Value
	Combine func(a, b Value) Value

	// Shown in the report
	Visible bool

	// Requested from live telemetry (sstat) for running jobs
	PreferLive bool

	// Format may look at the whole aggregate, not just the value
	Format func(v Value, m *Meta) string
	Desc   string
}

type Field int

// The order is the column order of the accounting query and the line order of the report.
const (
	JobID Field = iota
	JobName
	User
	Partition
	NodeList
	NNodes
	NCPUS
	NTasks
	State
	Submit
	Start
	End
	Timelimit
	Elapsed
	TotalCPU
	UserCPU
	SystemCPU
	ReqMem
	MaxRSS
	MaxRSSNode
	TRESUsageInTot
	TRESUsageOutTot
	MaxDiskWrite
	MaxDiskWriteNode
	MaxDiskRead
	MaxDiskReadNode
	AllocTRES
	NumFields
)

type Row [NumFields]Value

// MT: Constant after initialization; immutable
var Schema = [NumFields]Attribute{
	JobID:            {"JobID", ParseText, KeepFirst, true, false, formatText, "Job ID"},
	JobName:          {"JobName", ParseText, KeepFirst, true, false, formatText, "Name"},
	User:             {"User", ParseText, KeepFirst, true, false, formatText, "User"},
	Partition:        {"Partition", ParseText, KeepFirst, true, false, formatText, "Partition"},
	NodeList:         {"NodeList", ParseText, KeepFirst, true, false, formatText, "Nodes"},
	NNodes:           {"NNodes", ParseCount, Max, true, false, formatCount, "Number of Nodes"},
	NCPUS:            {"NCPUS", ParseCount, Max, true, false, formatCount, "Cores"},
	NTasks:           {"NTasks", ParseCount, Max, true, true, formatCount, "Number of Tasks"},
	State:            {"State", ParseText, Append, true, false, formatState, "State"},
	Submit:           {"Submit", ParseStamp, KeepFirst, true, false, formatText, "Submit"},
	Start:            {"Start", ParseStamp, TimeMinValue, true, false, formatText, "Start"},
	End:              {"End", ParseStamp, TimeMaxValue, true, false, formatText, "End"},
	Timelimit:        {"Timelimit", ParseLimit, TimeMaxValue, true, false, formatLimit, "Reserved walltime"},
	Elapsed:          {"Elapsed", parseDurationValue, Max, true, false, formatWalltime, "Used walltime"},
	TotalCPU:         {"TotalCPU", parseDurationValue, Max, true, false, formatCPUTime, "Used CPU time"},
	UserCPU:          {"UserCPU", parseDurationValue, Max, true, false, formatCPUShare, "% User (Computation)"},
	SystemCPU:        {"SystemCPU", parseDurationValue, Max, true, false, formatCPUShare, "% System (I/O)"},
	ReqMem:           {"ReqMem", ParseMemRequest, KeepFirst, true, false, formatMemRequest, "Mem reserved"},
	MaxRSS:           {"MaxRSS", parseByteSizeValue, Max, true, true, formatPeakMem, "Max Mem (Node/step)"},
	MaxRSSNode:       {"MaxRSSNode", ParseText, KeepFirst, false, true, formatText, ""},
	TRESUsageInTot:   {"TRESUsageInTot", parseUsageValue, MaxTot, true, true, formatUsage, "Total Mem / Disk Read"},
	TRESUsageOutTot:  {"TRESUsageOutTot", parseDiskValue, Sum, true, true, formatBytes, "Total Disk Write"},
	MaxDiskWrite:     {"MaxDiskWrite", parseByteSizeValue, Max, true, true, formatPeakWrite, "Max Disk Write"},
	MaxDiskWriteNode: {"MaxDiskWriteNode", ParseText, KeepFirst, false, true, formatText, ""},
	MaxDiskRead:      {"MaxDiskRead", parseByteSizeValue, Max, true, true, formatPeakRead, "Max Disk Read"},
	MaxDiskReadNode:  {"MaxDiskReadNode", ParseText, KeepFirst, false, true, formatText, ""},
	AllocTRES:        {"AllocTRES", ParseText, KeepFirst, true, false, formatGPUs, "GPUs allocated"},
}

// The column that names the node on which the peak of a per-node maximum was observed.
//
// MT: Constant after initialization; immutable
var peakNodeField = map[Field]Field{
	MaxRSS:       MaxRSSNode,
	MaxDiskWrite: MaxDiskWriteNode,
	MaxDiskRead:  MaxDiskReadNode,
}

const (
	// Between fields of accounting rows; U+2603, which does not occur in job names in practice.
	AccountingDelimiter = "☃"

	LiveDelimiter = "|"
)

// All column names, for the accounting query.
func AccountingColumns() []string {
	names := make([]string, NumFields)
	for i := range Schema {
		names[i] = Schema[i].Name
	}
	return names
}

func LiveFields() []Field {
	fields := make([]Field, 0)
	for i := range Schema {
		if Schema[i].PreferLive {
			fields = append(fields, Field(i))
		}
	}
	return fields
}

// The columns requested from live telemetry, in the order they appear in a live row.
func LiveColumns() []string {
	fields := LiveFields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = Schema[f].Name
	}
	return names
}

// Parse one accounting line.  Absent trailing columns parse as empty text; extra columns are
// ignored.
func ParseAccountingLine(line string) Row {
	return parseColumns(strings.Split(line, AccountingDelimiter), nil)
}

// Parse one live-telemetry line, which holds only the PreferLive columns.  The other attributes are
// synthesized by parsing the empty string.
func ParseLiveLine(line string) Row {
	return parseColumns(strings.Split(line, LiveDelimiter), LiveFields())
}

func parseColumns(tokens []string, fields []Field) Row {
	raw := make([]string, NumFields)
	if fields == nil {
		copy(raw, tokens)
	} else {
		for i, f := range fields {
			if i < len(tokens) {
				raw[f] = tokens[i]
			}
		}
	}
	var r Row
	for i := range Schema {
		r[i] = Schema[i].Parse(raw[i])
	}
	return r
}
