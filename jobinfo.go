// `jobinfo` - resource usage report for one Slurm job
//
// jobinfo collects what Slurm knows about a job from its accounting database (sacct), from the live
// counters of a running job (sstat) and from the queue (squeue) for a pending job, combines it into
// one record, and prints it as a two-column report followed by hints about the efficiency of the
// job's use of the resources it requested.
//
// Usage:
//
//  jobinfo [options] job-id
//  jobinfo -daemon [options]
//
// The job ID is a number, optionally with an array index (1234_5) or a step (1234.0).
//
// Options:
//
// -fmt text|json|yaml
//
//  Output format, default text.
//
// -config <filename>
//
//  Read the configuration from the file.  By default the file named by $JOBINFO_CONFIG is read, or
//  the first of /etc/jobinfo.ini and $HOME/.jobinfo that exists.  See common/config.go.
//
// -v
//
//  Verbose logging to stderr.
//
// -daemon, -port <port-number>, -auth-file <filename>
//
//  Serve reports over HTTP instead, see daemon/daemon.go.  The auth file has username:password
//  lines to be matched with HTTP basic authentication.
//
// Live counters of a running job are only read when the user running jobinfo owns the job, is
// root, or is listed as an operator in the configuration.
//
// Exit codes: 0 for a report or for -h; 1 for usage errors, unknown jobs, and failure of the
// accounting query.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/user"
	"slices"
	"strings"

	"github.com/rug-cit-hpc/slurm-jobinfo/auth"
	"github.com/rug-cit-hpc/slurm-jobinfo/common"
	"github.com/rug-cit-hpc/slurm-jobinfo/daemon"
	"github.com/rug-cit-hpc/slurm-jobinfo/gpu"
	"github.com/rug-cit-hpc/slurm-jobinfo/report"
	"github.com/rug-cit-hpc/slurm-jobinfo/slurm"
	"github.com/rug-cit-hpc/slurm-jobinfo/status"
)

const (
	version           = "1.0.0"
	logTag            = "jobinfo"
	defaultListenPort = 8090
)

type commandLine struct {
	format     string
	configFile string
	verbose    bool
	daemon     bool
	port       int
	authFile   string
	jobID      string
}

var errHelp = errors.New("Help requested")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cl, err := parseCommandLine(args, stdout)
	if err != nil {
		if err == errHelp {
			return 0
		}
		fmt.Fprintf(stderr, "jobinfo: %v\n\n", err)
		usage(stderr)
		return 1
	}
	if cl.verbose {
		common.Log.LowerLevelTo(status.LogLevelInfo)
	}

	cfg, err := common.LoadConfig(cl.configFile)
	if err != nil {
		fmt.Fprintf(stderr, "jobinfo: %v\n", err)
		return 1
	}
	src := slurm.NewCommandSource(cfg.Slurm)
	opts := report.Options{Hints: cfg.Hints}
	if cfg.GPU.PrometheusURL != "" {
		opts.GPU, err = gpu.NewClient(cfg.GPU.PrometheusURL, cfg.GPU.Query, cfg.GPU.Step)
		if err != nil {
			common.Log.Warningf("GPU usage not available: %v", err)
		}
	}

	if cl.daemon {
		return runDaemon(cl, cfg, src, opts, stderr)
	}

	r, err := report.Build(context.Background(), src, currentIdentity(cfg), opts, cl.jobID)
	if err != nil {
		fmt.Fprintf(stderr, "jobinfo: %v\n", err)
		return 1
	}
	if err := report.Write(stdout, r, cl.format); err != nil {
		fmt.Fprintf(stderr, "jobinfo: %v\n", err)
		return 1
	}
	return 0
}

func runDaemon(
	cl *commandLine,
	cfg *common.Config,
	src slurm.Source,
	opts report.Options,
	stderr io.Writer,
) int {
	if err := status.StartSyslog(logTag); err != nil {
		common.Log.Warningf("No syslog: %v", err)
	}
	common.Log.LowerLevelTo(status.LogLevelInfo)
	var authenticator *auth.Authenticator
	if cl.authFile != "" {
		var err error
		authenticator, err = auth.ReadPasswords(cl.authFile)
		if err != nil {
			fmt.Fprintf(stderr, "jobinfo: Failed to read password file: %v\n", err)
			return 1
		}
	}
	s := daemon.New(daemon.Config{
		Source:        src,
		Options:       opts,
		Authenticator: authenticator,
		IsOperator:    cfg.IsOperator,
		Version:       version,
		Verbose:       cl.verbose,
	})
	if err := s.Run(cl.port); err != nil {
		common.Log.Critical(err.Error())
		return 1
	}
	return 0
}

func currentIdentity(cfg *common.Config) report.Identity {
	var name string
	if u, err := user.Current(); err == nil {
		name = u.Username
	} else {
		common.Log.Warningf("Unknown user: %v", err)
	}
	return report.Identity{
		User:       name,
		Privileged: os.Getuid() == 0 || cfg.IsOperator(name),
	}
}

func newFlagSet(cl *commandLine) *flag.FlagSet {
	flags := flag.NewFlagSet("jobinfo", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	flags.StringVar(&cl.format, "fmt", report.FormatText,
		"Output `format`, one of "+strings.Join(report.Formats, ", "))
	flags.StringVar(&cl.configFile, "config", "", "Read configuration from `filename`")
	flags.BoolVar(&cl.verbose, "v", false, "Verbose logging")
	flags.BoolVar(&cl.daemon, "daemon", false, "Serve reports over HTTP")
	flags.IntVar(&cl.port, "port", defaultListenPort, "Listen for connections on `port` (with -daemon)")
	flags.StringVar(&cl.authFile, "auth-file", "",
		"Read user names and passwords from `filename` (with -daemon)")
	return flags
}

func parseCommandLine(args []string, stdout io.Writer) (*commandLine, error) {
	cl := new(commandLine)
	flags := newFlagSet(cl)
	err := flags.Parse(args)
	if err == flag.ErrHelp {
		usage(stdout)
		return nil, errHelp
	}
	if err != nil {
		return nil, err
	}
	if !slices.Contains(report.Formats, cl.format) {
		return nil, fmt.Errorf("Unknown output format %q", cl.format)
	}
	rest := flags.Args()
	if cl.daemon {
		if len(rest) != 0 {
			return nil, errors.New("No job ID is taken with -daemon")
		}
		return cl, nil
	}
	if len(rest) != 1 {
		return nil, errors.New("Exactly one job ID is required")
	}
	cl.jobID = rest[0]
	if !report.ValidJobID(cl.jobID) {
		return nil, fmt.Errorf("%w: %q", report.ErrInvalidJobID, cl.jobID)
	}
	return cl, nil
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: jobinfo [options] job-id")
	fmt.Fprintln(w, "       jobinfo -daemon [options]")
	fmt.Fprintln(w, "\nOptions:")
	flags := newFlagSet(new(commandLine))
	flags.SetOutput(w)
	flags.PrintDefaults()
}
