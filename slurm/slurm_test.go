package slurm

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
)

func TestParseQueue(t *testing.T) {
	q := ParseQueue([]string{"afterok:12(unfulfilled);Dependency", "(null);Priority"})
	if q.Dependencies != "afterok:12(unfulfilled)" || q.Reason != "Dependency" {
		t.Fatalf("First line: %v", q)
	}
	q = ParseQueue([]string{"(null);Priority"})
	if q.Dependencies != "" || q.Reason != "Priority" {
		t.Fatalf("No dependencies: %v", q)
	}
	q = ParseQueue([]string{"(null);None"})
	if q.Dependencies != "" || q.Reason != "" {
		t.Fatalf("Nothing: %v", q)
	}
	if q = ParseQueue(nil); q != (QueueState{}) {
		t.Fatalf("Left the queue: %v", q)
	}
}

func TestParseNodeCores(t *testing.T) {
	s := "NodeName=pg-node123 Arch=x86_64 CoresPerSocket=12 CfgTRES=cpu=24,mem=128500M,billing=24 State=MIXED"
	if n := ParseNodeCores(s); n != 24 {
		t.Fatalf("Cores: %d", n)
	}
	if n := ParseNodeCores("   CfgTRES=cpu=24,mem=128500M,billing=24"); n != 24 {
		t.Fatalf("Cores, bare: %d", n)
	}
	for _, s := range []string{"", "NodeName=x CfgTRES=mem=10G", "Node x not found"} {
		if n := ParseNodeCores(s); n != 1 {
			t.Fatalf("Fallback %q: %d", s, n)
		}
	}
}

type nodeSource struct {
	Source
	description string
	err         error
}

func (ns *nodeSource) Node(_ context.Context, _ string) (string, error) {
	return ns.description, ns.err
}

func TestNodeCores(t *testing.T) {
	if n := NodeCores(context.Background(), &nodeSource{description: "CfgTRES=cpu=64"}, "c1"); n != 64 {
		t.Fatalf("Cores: %d", n)
	}
	if n := NodeCores(context.Background(), &nodeSource{err: errors.New("No scontrol")}, "c1"); n != 1 {
		t.Fatalf("Failure: %d", n)
	}
}

func TestArgs(t *testing.T) {
	args := AccountingArgs("123")
	if args[2] != "--delimiter=☃" || args[len(args)-1] != "123" {
		t.Fatalf("sacct: %v", args)
	}
	if !strings.HasPrefix(args[4], "JobID,JobName,User,") {
		t.Fatalf("sacct columns: %s", args[4])
	}
	args = LiveArgs("123")
	if args[len(args)-1] != "123,123.batch" || !strings.HasPrefix(args[3], "NTasks,MaxRSS,") {
		t.Fatalf("sstat: %v", args)
	}
	if args := QueueArgs("9"); !slices.Equal(args, []string{"-h", "-j", "9", "-o", "%E;%r"}) {
		t.Fatalf("squeue: %v", args)
	}
}

func TestCommandSource(t *testing.T) {
	// Stand-ins for the Slurm programs that echo their last argument
	cs := NewCommandSource(Commands{Sacct: "/bin/echo", Sstat: "/bin/echo", Squeue: "/bin/echo", Scontrol: "/bin/echo"})
	lines, err := cs.Accounting(context.Background(), "77")
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 || !strings.HasSuffix(lines[0], "-j 77") {
		t.Fatalf("Accounting: %v", lines)
	}
	node, err := cs.Node(context.Background(), "c1")
	if err != nil || node != "show node c1 -o" {
		t.Fatalf("Node: %q %v", node, err)
	}
	cs = NewCommandSource(Commands{Sacct: "/nonexistent/sacct"})
	if _, err := cs.Accounting(context.Background(), "77"); err == nil {
		t.Fatalf("Expected failure")
	}
}
