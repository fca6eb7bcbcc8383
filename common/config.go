// Site and user configuration.
//
// The configuration file is an ini file; every section and field is optional:
//
//   [hints]
//   min-walltime = 180
//   cpu-efficiency = 75
//   memory-ratio = 0.75
//   memory-headroom-per-core = 1.5G
//   excluded-partitions = gpu,gpushort,gpumedium,gpulong
//   documentation = https://wiki.example.com/job_hints
//
//   [access]
//   operators = root,slurm
//
//   [gpu]
//   prometheus-url = http://prometheus.example.com:9090
//   query = utilization_gpu{instance=~"($NODES)(:[0-9]+)?"}
//   step = 60s
//
//   [slurm]
//   sacct = /usr/bin/sacct
//   sstat = /usr/bin/sstat
//   squeue = /usr/bin/squeue
//   scontrol = /usr/bin/scontrol
//
// Without a prometheus-url no GPU usage is reported.

package common

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	ini "github.com/lars-t-hansen/ini"

	"github.com/rug-cit-hpc/slurm-jobinfo/hints"
	"github.com/rug-cit-hpc/slurm-jobinfo/record"
	"github.com/rug-cit-hpc/slurm-jobinfo/slurm"
)

const (
	ConfigEnvVar     = "JOBINFO_CONFIG"
	SystemConfigFile = "/etc/jobinfo.ini"
	UserConfigFile   = ".jobinfo"
)

type GPUConfig struct {
	PrometheusURL string
	Query         string
	Step          time.Duration
}

type Config struct {
	Hints     hints.Config
	Operators []string
	GPU       GPUConfig
	Slurm     slurm.Commands
}

func DefaultConfig() *Config {
	return &Config{
		Hints: hints.DefaultConfig(),
		Slurm: slurm.DefaultCommands(),
	}
}

func (c *Config) IsOperator(user string) bool {
	return user != "" && slices.Contains(c.Operators, user)
}

// MT: Constant after initialization
var (
	p = ini.NewParser()

	hintsSection               = p.AddSection("hints")
	HintsMinWalltime           = hintsSection.AddString("min-walltime")
	HintsCPUEfficiency         = hintsSection.AddString("cpu-efficiency")
	HintsMemoryRatio           = hintsSection.AddString("memory-ratio")
	HintsMemoryHeadroomPerCore = hintsSection.AddString("memory-headroom-per-core")
	HintsExcludedPartitions    = hintsSection.AddString("excluded-partitions")
	HintsDocumentation         = hintsSection.AddString("documentation")

	accessSection   = p.AddSection("access")
	AccessOperators = accessSection.AddString("operators")

	gpuSection       = p.AddSection("gpu")
	GPUPrometheusURL = gpuSection.AddString("prometheus-url")
	GPUQuery         = gpuSection.AddString("query")
	GPUStep          = gpuSection.AddString("step")

	slurmSection  = p.AddSection("slurm")
	SlurmSacct    = slurmSection.AddString("sacct")
	SlurmSstat    = slurmSection.AddString("sstat")
	SlurmSqueue   = slurmSection.AddString("squeue")
	SlurmScontrol = slurmSection.AddString("scontrol")
)

// Find the configuration file: the explicit name if not empty, otherwise the file named by
// $JOBINFO_CONFIG, otherwise the first of /etc/jobinfo.ini and $HOME/.jobinfo that exists.  The
// explicit and environment names must exist.  Returns "" if there is no file.
func ConfigPath(explicit string) (string, error) {
	for _, fn := range []string{explicit, os.Getenv(ConfigEnvVar)} {
		if fn == "" {
			continue
		}
		if _, err := os.Stat(fn); err != nil {
			return "", fmt.Errorf("Configuration file %s: %w", fn, err)
		}
		return fn, nil
	}
	candidates := []string{SystemConfigFile}
	if home := os.Getenv("HOME"); home != "" {
		candidates = append(candidates, path.Join(path.Clean(home), UserConfigFile))
	}
	for _, fn := range candidates {
		if _, err := os.Stat(fn); err == nil {
			return fn, nil
		}
	}
	return "", nil
}

// Locate and read the configuration, or return the defaults if there is no file.
func LoadConfig(explicit string) (*Config, error) {
	fn, err := ConfigPath(explicit)
	if err != nil {
		return nil, err
	}
	if fn == "" {
		return DefaultConfig(), nil
	}
	input, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer input.Close()
	cfg, err := ReadConfig(input)
	if err != nil {
		return nil, fmt.Errorf("In %s: %w", fn, err)
	}
	Log.Infof("Configuration read from %s", fn)
	return cfg, nil
}

// Read a configuration, starting from the defaults.
func ReadConfig(input io.Reader) (*Config, error) {
	store, err := p.Parse(input)
	if err != nil {
		return nil, err
	}
	get := func(f *ini.Field) (string, bool) {
		if !f.Present(store) {
			return "", false
		}
		return strings.TrimSpace(f.StringVal(store)), true
	}

	cfg := DefaultConfig()
	var errs []error
	number := func(dest *float64, f *ini.Field, name string) {
		if s, ok := get(f); ok {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil || v < 0 {
				errs = append(errs, fmt.Errorf("Bad %s: %s", name, s))
				return
			}
			*dest = v
		}
	}
	text := func(dest *string, f *ini.Field) {
		if s, ok := get(f); ok && s != "" {
			*dest = s
		}
	}

	number(&cfg.Hints.MinWalltime, HintsMinWalltime, "min-walltime")
	number(&cfg.Hints.CPUEfficiency, HintsCPUEfficiency, "cpu-efficiency")
	number(&cfg.Hints.MemoryRatio, HintsMemoryRatio, "memory-ratio")
	if s, ok := get(HintsMemoryHeadroomPerCore); ok {
		if record.IsByteSize(s) {
			cfg.Hints.MemoryHeadroomPerCore = float64(record.ParseByteSize(s))
		} else {
			errs = append(errs, fmt.Errorf("Bad memory-headroom-per-core: %s", s))
		}
	}
	if s, ok := get(HintsExcludedPartitions); ok {
		cfg.Hints.ExcludedPartitions = splitList(s)
	}
	text(&cfg.Hints.Documentation, HintsDocumentation)

	if s, ok := get(AccessOperators); ok {
		cfg.Operators = splitList(s)
	}

	text(&cfg.GPU.PrometheusURL, GPUPrometheusURL)
	text(&cfg.GPU.Query, GPUQuery)
	if s, ok := get(GPUStep); ok {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("Bad step: %s", s))
		} else {
			cfg.GPU.Step = d
		}
	}

	text(&cfg.Slurm.Sacct, SlurmSacct)
	text(&cfg.Slurm.Sstat, SlurmSstat)
	text(&cfg.Slurm.Squeue, SlurmSqueue)
	text(&cfg.Slurm.Scontrol, SlurmScontrol)

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// A comma-separated list with blanks removed.
func splitList(s string) []string {
	xs := make([]string, 0)
	for _, x := range strings.Split(s, ",") {
		if x = strings.TrimSpace(x); x != "" {
			xs = append(xs, x)
		}
	}
	return xs
}
