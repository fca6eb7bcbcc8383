// Build the report for one job: query accounting, enrich the aggregate according to the lifecycle
// phase of the job, and compute the hints.
//
// Only a failure of the accounting query, or an accounting query that finds nothing, is fatal.
// Every other data source degrades to a neutral default with a warning in the log.

package report

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/rug-cit-hpc/slurm-jobinfo/common"
	"github.com/rug-cit-hpc/slurm-jobinfo/gpu"
	"github.com/rug-cit-hpc/slurm-jobinfo/hints"
	"github.com/rug-cit-hpc/slurm-jobinfo/nodelist"
	"github.com/rug-cit-hpc/slurm-jobinfo/record"
	"github.com/rug-cit-hpc/slurm-jobinfo/slurm"
)

var (
	ErrInvalidJobID = errors.New("Invalid job ID")
	ErrNotFound     = errors.New("No such job")
)

// MT: Constant after initialization; immutable
var jobIDRe = regexp.MustCompile(`^[0-9_.]+$`)

func ValidJobID(jobID string) bool {
	return jobIDRe.MatchString(jobID)
}

// Who is asking.  Live telemetry for a running job is only read for its owner or a privileged
// user.
type Identity struct {
	User       string
	Privileged bool
}

func (id Identity) MayReadLive(owner string) bool {
	return id.Privileged || (id.User != "" && id.User == owner)
}

type Options struct {
	Hints hints.Config

	// nil if there is no metrics service
	GPU *gpu.Client

	// The current time, for the GPU query of a job that has not ended; time.Now if nil
	Now func() time.Time
}

type Report struct {
	JobID string
	Meta  *record.Meta
	Phase record.Phase

	// True if live telemetry was merged into the aggregate
	Live bool

	Hints         []hints.Hint
	Documentation string
}

// Timestamps as printed by sacct, in local time.
const stampLayout = "2006-01-02T15:04:05"

func Build(ctx context.Context, src slurm.Source, who Identity, opts Options, jobID string) (*Report, error) {
	if !ValidJobID(jobID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidJobID, jobID)
	}

	lines, err := src.Accounting(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("Accounting query for job %s failed: %w", jobID, err)
	}
	rows := make([]record.Row, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, record.ParseAccountingLine(l))
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	meta, err := record.NewMeta(rows)
	if err != nil {
		return nil, err
	}

	r := &Report{
		JobID:         jobID,
		Phase:         meta.Phase(),
		Documentation: opts.Hints.Documentation,
	}
	switch r.Phase {
	case record.Running:
		if !who.MayReadLive(meta.Text(record.User)) {
			common.Log.Infof("Not reading live data for job %s owned by %s", jobID, meta.Text(record.User))
			break
		}
		live := liveRows(ctx, src, jobID)
		if len(live) > 0 {
			meta, err = record.NewMeta(append(rows, live...))
			if err != nil {
				return nil, err
			}
			r.Live = true
		}
	case record.Pending:
		q, err := src.Queue(ctx, jobID)
		if err != nil {
			common.Log.Warningf("Queue query for job %s failed: %v", jobID, err)
		}
		state := slurm.ParseQueue(q)
		meta.Dependencies = state.Dependencies
		meta.Reason = state.Reason
	}
	r.Meta = meta

	if opts.GPU != nil && meta.GPUs() > 0 {
		meta.GPUUsage = gpuUsage(ctx, opts, meta)
	}
	r.Hints = hints.Compute(meta, opts.Hints, func(node string) int {
		return slurm.NodeCores(ctx, src, node)
	})
	return r, nil
}

func liveRows(ctx context.Context, src slurm.Source, jobID string) []record.Row {
	lines, err := src.Live(ctx, jobID)
	if err != nil {
		common.Log.Warningf("Live query for job %s failed: %v", jobID, err)
		return nil
	}
	rows := make([]record.Row, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, record.ParseLiveLine(l))
	}
	return rows
}

// Average GPU utilization over the job's lifetime so far, or -1.
func gpuUsage(ctx context.Context, opts Options, meta *record.Meta) float64 {
	nodes, err := nodelist.Expand(meta.Text(record.NodeList))
	if err != nil || len(nodes) == 0 {
		return -1
	}
	start, err := time.ParseInLocation(stampLayout, meta.Text(record.Start), time.Local)
	if err != nil {
		return -1
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	end := now()
	if meta.EndKnown() {
		if t, err := time.ParseInLocation(stampLayout, meta.Text(record.End), time.Local); err == nil {
			end = t
		}
	}
	usage, err := opts.GPU.AverageUsage(ctx, nodes, start, end)
	if err != nil {
		if !errors.Is(err, gpu.ErrNoData) {
			common.Log.Warningf("GPU query failed: %v", err)
		}
		return -1
	}
	return usage
}
