// Advisory hints about the resource efficiency of a finished job.
//
// The heuristics are fixed thresholds applied to the aggregate record.  A hint is only given when
// the job has ended, ran long enough for its usage numbers to mean something, and was not in a
// partition that allocates whole nodes or special resources.

package hints

import (
	"fmt"
	"io"
	"math"
	"slices"
	"strings"

	"github.com/rug-cit-hpc/slurm-jobinfo/record"
)

// The thresholds of the heuristics.  Immutable once set up; passed by value.
type Config struct {
	// Jobs that ran for fewer seconds than this get no hints
	MinWalltime float64

	// CPU efficiency in percent below which a hint is given
	CPUEfficiency float64

	// Ratio of used to requested memory below which a hint may be given
	MemoryRatio float64

	// Unused bytes per allocated core that must be exceeded for the memory hint
	MemoryHeadroomPerCore float64

	// Partitions for which no hints are given
	ExcludedPartitions []string

	// Pointer printed after the hints
	Documentation string
}

const gib = 1024 * 1024 * 1024

func DefaultConfig() Config {
	return Config{
		MinWalltime:           180,
		CPUEfficiency:         75,
		MemoryRatio:           0.75,
		MemoryHeadroomPerCore: 1.5 * gib,
		ExcludedPartitions:    []string{"gpu", "gpushort", "gpumedium", "gpulong", "gpuextended"},
		Documentation:         "https://wiki.hpc.rug.nl/habrok/additional_information/job_hints",
	}
}

// One hint, as a headline and zero or more lines of elaboration.
type Hint []string

// MT: Constant after initialization; immutable
var (
	NotParallel = Hint{
		"The program efficiency is very low. Your program does not seem to run in parallel.",
		"Please check the program documentation to see how to make the program run in parallel.",
		"If you can't find information about this, the program will not run in parallel!",
		"Stop requesting more than 1 CPU core if the program does not run in parallel.",
	}
	CheckIO = Hint{
		"The program efficiency is low. Check the file in- and output pattern of your application.",
	}
	UnusedCores = Hint{
		"The program efficiency is low. Your program is not using the assigned cores effectively.",
		"Please check if you are using all the cores you requested.",
		"You may also need to check the file in- and output pattern of your program.",
	}
	TooMuchMemory = Hint{
		"You requested much more memory than your program used.",
		"Please reduce the requested amount of memory.",
	}
)

// Compute the hints for the job.  nodeCores returns the number of cores on a node; it is only
// called for the memory check, with the node that had the peak memory usage.
func Compute(m *record.Meta, cfg Config, nodeCores func(node string) int) []Hint {
	hints := make([]Hint, 0)
	if !applies(m, cfg) {
		return hints
	}
	if h := cpuHint(m, cfg); h != nil {
		hints = append(hints, h)
	}
	if h := memoryHint(m, cfg, nodeCores); h != nil {
		hints = append(hints, h)
	}
	return hints
}

func applies(m *record.Meta, cfg Config) bool {
	if !m.EndKnown() || m.Seconds(record.TotalCPU) <= 0 || m.Seconds(record.Elapsed) < cfg.MinWalltime {
		return false
	}
	for _, p := range strings.Split(m.Text(record.Partition), ",") {
		if slices.Contains(cfg.ExcludedPartitions, strings.TrimSpace(p)) {
			return false
		}
	}
	return true
}

// CPU efficiency in percent of the allocated core-seconds, or -1 if nothing was allocated.
func CPUEfficiency(m *record.Meta) float64 {
	avail := float64(m.Count(record.NCPUS)) * m.Seconds(record.Elapsed)
	if avail <= 0 {
		return -1
	}
	return 100 * m.Seconds(record.TotalCPU) / avail
}

func cpuHint(m *record.Meta, cfg Config) Hint {
	eff := CPUEfficiency(m)
	if eff < 0 || eff >= cfg.CPUEfficiency {
		return nil
	}
	ncpus := m.Count(record.NCPUS)
	switch {
	case ncpus > 1 && eff <= 100/float64(ncpus):
		return NotParallel
	case ncpus == 1:
		return CheckIO
	}
	return UnusedCores
}

// No memory hint for a job that holds all cores of the node where it peaked.
func memoryHint(m *record.Meta, cfg Config, nodeCores func(node string) int) Hint {
	node := m.PeakMem.Node
	if node == "" || node == record.NodeUnknown {
		return nil
	}
	ncpus := m.Count(record.NCPUS)
	nnodes := max(m.Count(record.NNodes), 1)
	coresPerNode := int64(math.Ceil(float64(ncpus) / float64(nnodes)))
	if total := nodeCores(node); total > 0 && coresPerNode >= int64(total) {
		return nil
	}
	requested := m.MemRequest().RequestedBytes(ncpus, nnodes)
	if requested <= 0 {
		return nil
	}
	used := UsedMemory(m)
	unused := requested - used
	if used/requested < cfg.MemoryRatio && unused > cfg.MemoryHeadroomPerCore*float64(max(ncpus, 1)) {
		return TooMuchMemory
	}
	return nil
}

// Peak memory for the whole job.  The per-node maximum is scaled by the number of tasks or nodes it
// was observed for, and the TRES total is used instead if it is larger.
func UsedMemory(m *record.Meta) float64 {
	used := m.Bytes(record.MaxRSS)
	if m.PeakMem.Qualifier == record.QualifierPerTask {
		used *= float64(max(m.Count(record.NTasks), 1))
	} else {
		used *= float64(max(m.Count(record.NNodes), 1))
	}
	return max(used, float64(m.Usage().Mem))
}

// Print the hints as a numbered list followed by the documentation pointer.  Nothing is printed if
// there are no hints.
func Write(w io.Writer, hints []Hint, documentation string) {
	if len(hints) == 0 {
		return
	}
	fmt.Fprintln(w, "Hints and tips:")
	for i, h := range hints {
		for j, line := range h {
			if j == 0 {
				fmt.Fprintf(w, " %d) %s\n", i+1, line)
			} else {
				fmt.Fprintf(w, "    %s\n", line)
			}
		}
	}
	if documentation != "" {
		fmt.Fprintln(w, " *) For more information on these issues see:")
		fmt.Fprintf(w, "    %s\n", documentation)
	}
}
