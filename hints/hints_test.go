package hints

import (
	"slices"
	"strings"
	"testing"

	"github.com/rug-cit-hpc/slurm-jobinfo/record"
)

func makeMeta(t *testing.T, cols map[record.Field]string) *record.Meta {
	raw := make([]string, record.NumFields)
	for f, s := range cols {
		raw[f] = s
	}
	m, err := record.NewMeta([]record.Row{
		record.ParseAccountingLine(strings.Join(raw, record.AccountingDelimiter)),
	})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func cores(n int) func(string) int {
	return func(string) int { return n }
}

func TestNotParallel(t *testing.T) {
	m := makeMeta(t, map[record.Field]string{
		Partition: "regular",
		NNodes:    "1",
		NCPUS:     "4",
		End:       "2024-01-02T04:00:00",
		Elapsed:   "00:04:00",
		TotalCPU:  "00:01:00",
	})
	if eff := CPUEfficiency(m); eff != 6.25 {
		t.Fatalf("Efficiency: %v", eff)
	}
	hs := Compute(m, DefaultConfig(), cores(128))
	if len(hs) != 1 || !slices.Equal(hs[0], NotParallel) {
		t.Fatalf("Hints: %v", hs)
	}

	// Excluded partition
	m = makeMeta(t, map[record.Field]string{
		Partition: "gpu",
		NNodes:    "1",
		NCPUS:     "4",
		End:       "2024-01-02T04:00:00",
		Elapsed:   "00:04:00",
		TotalCPU:  "00:01:00",
	})
	if hs := Compute(m, DefaultConfig(), cores(128)); len(hs) != 0 {
		t.Fatalf("Excluded partition: %v", hs)
	}
}

// Aliases to keep the tables short
const (
	Partition = record.Partition
	NNodes    = record.NNodes
	NCPUS     = record.NCPUS
	NTasks    = record.NTasks
	End       = record.End
	Elapsed   = record.Elapsed
	TotalCPU  = record.TotalCPU
	ReqMem    = record.ReqMem
	MaxRSS    = record.MaxRSS
	RSSNode   = record.MaxRSSNode
)

func TestCPUGrades(t *testing.T) {
	tests := []struct {
		ncpus, cputime string
		want           Hint
	}{
		{"1", "00:02:00", CheckIO},
		{"1", "00:03:50", nil},
		{"4", "00:08:00", UnusedCores},
		{"4", "00:04:00", NotParallel},
		{"4", "00:15:00", nil},
	}
	for _, test := range tests {
		m := makeMeta(t, map[record.Field]string{
			NCPUS:    test.ncpus,
			End:      "2024-01-02T04:00:00",
			Elapsed:  "00:04:00",
			TotalCPU: test.cputime,
		})
		hs := Compute(m, DefaultConfig(), cores(128))
		if test.want == nil {
			if len(hs) != 0 {
				t.Fatalf("%s cores, %s: %v", test.ncpus, test.cputime, hs)
			}
			continue
		}
		if len(hs) != 1 || !slices.Equal(hs[0], test.want) {
			t.Fatalf("%s cores, %s: %v", test.ncpus, test.cputime, hs)
		}
	}
}

func TestPreconditions(t *testing.T) {
	base := map[record.Field]string{
		NCPUS:    "4",
		End:      "2024-01-02T04:00:00",
		Elapsed:  "00:04:00",
		TotalCPU: "00:01:00",
	}
	for _, f := range []record.Field{End, Elapsed, TotalCPU} {
		cols := make(map[record.Field]string)
		for k, v := range base {
			cols[k] = v
		}
		delete(cols, f)
		if hs := Compute(makeMeta(t, cols), DefaultConfig(), cores(128)); len(hs) != 0 {
			t.Fatalf("Without %s: %v", record.Schema[f].Name, hs)
		}
	}
	base[Elapsed] = "00:02:59"
	if hs := Compute(makeMeta(t, base), DefaultConfig(), cores(128)); len(hs) != 0 {
		t.Fatalf("Short job: %v", hs)
	}
}

func TestMemory(t *testing.T) {
	cols := map[record.Field]string{
		NNodes:   "1",
		NCPUS:    "1",
		NTasks:   "1",
		End:      "2024-01-02T04:00:00",
		Elapsed:  "00:04:00",
		TotalCPU: "00:03:59",
		ReqMem:   "4Gn",
		MaxRSS:   "1G",
		RSSNode:  "c1-1",
	}
	m := makeMeta(t, cols)
	if used := UsedMemory(m); used != gib {
		t.Fatalf("Used: %v", used)
	}
	hs := Compute(m, DefaultConfig(), cores(24))
	if len(hs) != 1 || !slices.Equal(hs[0], TooMuchMemory) {
		t.Fatalf("Memory hint: %v", hs)
	}

	// Whole node allocated
	if hs := Compute(m, DefaultConfig(), cores(1)); len(hs) != 0 {
		t.Fatalf("Whole node: %v", hs)
	}

	// Unused memory below the headroom
	cols[ReqMem] = "2Gn"
	if hs := Compute(makeMeta(t, cols), DefaultConfig(), cores(24)); len(hs) != 0 {
		t.Fatalf("Small headroom: %v", hs)
	}

	// Headroom scales with the cores
	cols[ReqMem] = "4Gn"
	cols[NCPUS] = "2"
	cols[TotalCPU] = "00:07:59"
	if hs := Compute(makeMeta(t, cols), DefaultConfig(), cores(24)); len(hs) != 0 {
		t.Fatalf("Headroom per core: %v", hs)
	}

	// Peak node not known
	cols[NCPUS] = "1"
	cols[TotalCPU] = "00:03:59"
	cols[MaxRSS] = "0"
	if hs := Compute(makeMeta(t, cols), DefaultConfig(), cores(24)); len(hs) != 0 {
		t.Fatalf("Unknown node: %v", hs)
	}
}

func TestWrite(t *testing.T) {
	var b strings.Builder
	Write(&b, nil, "https://example.com")
	if b.Len() != 0 {
		t.Fatalf("No hints should print nothing: %q", b.String())
	}
	Write(&b, []Hint{CheckIO, TooMuchMemory}, "https://example.com")
	lines := strings.Split(b.String(), "\n")
	if lines[0] != "Hints and tips:" ||
		lines[1] != " 1) "+CheckIO[0] ||
		lines[2] != " 2) "+TooMuchMemory[0] ||
		lines[3] != "    "+TooMuchMemory[1] ||
		lines[5] != "    https://example.com" {
		t.Fatalf("Output: %q", b.String())
	}
}
