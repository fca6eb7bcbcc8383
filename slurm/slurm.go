// The Slurm command line tools as data sources: sacct for accounting, sstat for live telemetry of
// running jobs, squeue for the queue state of pending jobs, and scontrol for node information.
//
// A Source returns the raw output lines of the tools; the report builder parses them.  The
// CommandSource runs the tools, tests substitute their own Source.

package slurm

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/rug-cit-hpc/slurm-jobinfo/process"
	"github.com/rug-cit-hpc/slurm-jobinfo/record"
)

type Source interface {
	// One line per job step, fields separated by record.AccountingDelimiter in the order of
	// record.AccountingColumns().  No lines for an unknown job.
	Accounting(ctx context.Context, jobID string) ([]string, error)

	// One line per running step of the job and its batch step, fields separated by
	// record.LiveDelimiter in the order of record.LiveColumns().
	Live(ctx context.Context, jobID string) ([]string, error)

	// Lines of the form dependencies;reason.  No lines if the job is not in the queue.
	Queue(ctx context.Context, jobID string) ([]string, error)

	// The scontrol description of the node, one line.
	Node(ctx context.Context, node string) (string, error)
}

// Paths (or names, to be found in $PATH) of the programs.
type Commands struct {
	Sacct    string
	Sstat    string
	Squeue   string
	Scontrol string
}

func DefaultCommands() Commands {
	return Commands{
		Sacct:    "sacct",
		Sstat:    "sstat",
		Squeue:   "squeue",
		Scontrol: "scontrol",
	}
}

type CommandSource struct {
	cmds Commands
}

func NewCommandSource(cmds Commands) *CommandSource {
	return &CommandSource{cmds: cmds}
}

var _ Source = (*CommandSource)(nil)

func AccountingArgs(jobID string) []string {
	return []string{
		"--noheader",
		"--parsable2",
		"--delimiter=" + record.AccountingDelimiter,
		"--format", strings.Join(record.AccountingColumns(), ","),
		"-j", jobID,
	}
}

func LiveArgs(jobID string) []string {
	return []string{
		"--noheader",
		"--parsable2",
		"--format", strings.Join(record.LiveColumns(), ","),
		"-j", jobID + "," + jobID + ".batch",
	}
}

func QueueArgs(jobID string) []string {
	return []string{"-h", "-j", jobID, "-o", "%E;%r"}
}

func NodeArgs(node string) []string {
	return []string{"show", "node", node, "-o"}
}

func (cs *CommandSource) Accounting(ctx context.Context, jobID string) ([]string, error) {
	return run(ctx, cs.cmds.Sacct, AccountingArgs(jobID))
}

func (cs *CommandSource) Live(ctx context.Context, jobID string) ([]string, error) {
	return run(ctx, cs.cmds.Sstat, LiveArgs(jobID))
}

func (cs *CommandSource) Queue(ctx context.Context, jobID string) ([]string, error) {
	return run(ctx, cs.cmds.Squeue, QueueArgs(jobID))
}

func (cs *CommandSource) Node(ctx context.Context, node string) (string, error) {
	lines, err := run(ctx, cs.cmds.Scontrol, NodeArgs(node))
	if err != nil || len(lines) == 0 {
		return "", err
	}
	return lines[0], nil
}

func run(ctx context.Context, program string, args []string) ([]string, error) {
	stdout, _, err := process.RunSubprocess(ctx, program, args)
	if err != nil {
		return nil, err
	}
	return process.OutputLines(stdout), nil
}

// What the queue says about a pending job.
type QueueState struct {
	Dependencies string
	Reason       string
}

// Parse the first queue line.  squeue prints (null) for a job without dependencies and None for a
// job without a reason.
func ParseQueue(lines []string) QueueState {
	if len(lines) == 0 {
		return QueueState{}
	}
	deps, reason, _ := strings.Cut(strings.TrimSpace(lines[0]), ";")
	return QueueState{
		Dependencies: cleanQueueField(deps),
		Reason:       cleanQueueField(reason),
	}
}

func cleanQueueField(s string) string {
	s = strings.TrimSpace(s)
	if s == "(null)" || s == "None" {
		return ""
	}
	return s
}

// MT: Constant after initialization; immutable
var cfgCoresRe = regexp.MustCompile(`\bCfgTRES=cpu=(\d+)`)

// The configured core count of the node, from its CfgTRES field.  1 if it can't be found.
func ParseNodeCores(description string) int {
	m := cfgCoresRe.FindStringSubmatch(description)
	if m == nil {
		return 1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// The core count of a node, with every failure mapped to 1.
func NodeCores(ctx context.Context, src Source, node string) int {
	description, err := src.Node(ctx, node)
	if err != nil {
		return 1
	}
	return ParseNodeCores(description)
}
