// Typed values for the columns of an accounting or live-telemetry row, and the parsers that produce
// them from the raw text tokens printed by sacct and sstat.
//
// No parser fails.  A token that does not match its expected pattern yields the zero value of the
// type, trading strict correctness for a report that is always produced.

package record

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// A column value.  Empty() tells the keepFirst combinator whether a value was actually recorded.
type Value interface {
	Empty() bool
}

// Plain text: names, node lists, state token lists.
type Text string

func (t Text) Empty() bool { return t == "" }

func ParseText(s string) Value {
	return Text(strings.TrimSpace(s))
}

// Counts: nodes, cores, tasks.
type Count int64

func (c Count) Empty() bool { return c == 0 }

func ParseCount(s string) Value {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 0 {
		return Count(0)
	}
	return Count(n)
}

// Byte quantities, kept as float since sacct prints fractional values ("5098.29M").
type ByteSize float64

func (b ByteSize) Empty() bool { return b == 0 }

// MT: Constant after initialization; immutable
var byteSizeRe = regexp.MustCompile(`^([0-9]*\.?[0-9]+)([KMGTPE]?)$`)

const binaryUnits = " KMGTPE"

// Parse a number with an optional binary magnitude suffix K..E (2^10..2^60).  Empty input, the
// "Unknown" placeholder and anything else that does not parse yield 0.
func ParseByteSize(s string) ByteSize {
	m := byteSizeRe.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(s)))
	if m == nil {
		return 0
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	if m[2] != "" {
		n *= math.Exp2(float64(10 * strings.Index(binaryUnits, m[2])))
	}
	return ByteSize(n)
}

// True if s is a number with an optional magnitude suffix, so that a zero from ParseByteSize is a
// real zero.
func IsByteSize(s string) bool {
	return byteSizeRe.MatchString(strings.ToUpper(strings.TrimSpace(s)))
}

func parseByteSizeValue(s string) Value {
	return ParseByteSize(s)
}

// A duration as printed by sacct, `[[D-]HH:]MM:SS[.frac]`, kept in its decomposed form.
type Duration struct {
	Days    int
	Hours   int
	Minutes int
	Seconds float64
}

func (d Duration) Empty() bool { return d.TotalSeconds() == 0 }

func (d Duration) TotalSeconds() float64 {
	return float64(((d.Days*24+d.Hours)*60+d.Minutes)*60) + d.Seconds
}

// The canonical decomposition of a number of seconds.
func DurationFromSeconds(secs float64) Duration {
	if secs <= 0 {
		return Duration{}
	}
	whole := math.Floor(secs)
	n := int64(whole)
	return Duration{
		Days:    int(n / 86400),
		Hours:   int(n % 86400 / 3600),
		Minutes: int(n % 3600 / 60),
		Seconds: float64(n%60) + (secs - whole),
	}
}

// MT: Constant after initialization; immutable
var durationRe = regexp.MustCompile(`^(?:(?:(\d+)-)?(\d+):)?(\d+):(\d+(?:\.\d*)?)$`)

func ParseDuration(s string) Duration {
	m := durationRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Duration{}
	}
	var d Duration
	d.Days, _ = strconv.Atoi(m[1])
	d.Hours, _ = strconv.Atoi(m[2])
	d.Minutes, _ = strconv.Atoi(m[3])
	d.Seconds, _ = strconv.ParseFloat(m[4], 64)
	return d
}

func isDuration(s string) bool {
	return durationRe.MatchString(s)
}

func parseDurationValue(s string) Value {
	return ParseDuration(s)
}

// Timestamps and time limits are kept as text, since the sentinels sacct prints for them carry
// meaning.  Real timestamps are ISO 8601 and compare correctly as strings.
type Stamp string

func (s Stamp) Empty() bool { return s == "" }

const (
	// Printed for a start or end time that has not happened yet.  Sorts after every real
	// timestamp, so the timeMin combinator never picks it over a recorded start time.
	Unknown = "Unknown"

	Unlimited = "UNLIMITED"
	Invalid   = "INVALID"
)

// Dates: empty, "unknown" in any case and "None" all mean not yet known.
func ParseStamp(s string) Value {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, Unknown) || s == "None" {
		return Stamp(Unknown)
	}
	return Stamp(s)
}

// Time limits keep the empty string, which loses in both timeMin and timeMax.
func ParseLimit(s string) Value {
	return Stamp(strings.TrimSpace(s))
}

func (s Stamp) IsUnknown() bool {
	return string(s) == Unknown
}

// A memory request: an amount per core or per node.
type MemRequest struct {
	Bytes   ByteSize
	PerCore bool
}

func (r MemRequest) Empty() bool { return r.Bytes == 0 }

// The request is a byte size followed by `c` (per core) or `n` (per node).  Newer Slurm versions
// print no qualifier, which means per node.
func ParseMemRequest(s string) Value {
	s = strings.TrimSpace(s)
	var perCore bool
	switch {
	case strings.HasSuffix(s, "c"):
		perCore = true
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "n"):
		s = s[:len(s)-1]
	}
	return MemRequest{Bytes: ParseByteSize(s), PerCore: perCore}
}

// The total memory requested by the job in bytes.
func (r MemRequest) RequestedBytes(ncpus, nnodes int64) float64 {
	if r.PerCore {
		return float64(r.Bytes) * float64(max(ncpus, 1))
	}
	return float64(r.Bytes) * float64(max(nnodes, 1))
}

func (r MemRequest) Qualifier() string {
	if r.PerCore {
		return "core"
	}
	return "node"
}

// The memory and disk components of a TRES usage string, eg
// "cpu=00:01:00,energy=0,fs/disk=1234567,mem=2G,pages=0,vmem=3G".
type Usage struct {
	Mem  ByteSize
	Disk ByteSize
}

func (u Usage) Empty() bool { return u.Mem == 0 && u.Disk == 0 }

// MT: Constant after initialization; immutable
var (
	tresMemRe  = regexp.MustCompile(`(?:^|,)mem=([0-9.]+[KMGTPE]?)(?:,|$)`)
	tresDiskRe = regexp.MustCompile(`(?:^|,)fs/disk=([0-9.]+[KMGTPE]?)(?:,|$)`)
)

// A missing component is zero.  TRES amounts without a suffix are bytes.
func ParseUsage(s string) Usage {
	var u Usage
	s = strings.TrimSpace(s)
	if s == "" {
		return u
	}
	if m := tresMemRe.FindStringSubmatch(s); m != nil {
		u.Mem = ParseByteSize(m[1])
	}
	if m := tresDiskRe.FindStringSubmatch(s); m != nil {
		u.Disk = ParseByteSize(m[1])
	}
	return u
}

func parseUsageValue(s string) Value {
	return ParseUsage(s)
}

// Only the disk component, for totals that add up across steps.
func parseDiskValue(s string) Value {
	return ParseUsage(s).Disk
}

// The number of GPUs in an AllocTRES string.  The untyped gres/gpu=n entry is the total; if only
// typed entries (gres/gpu:model=n) are present they are summed.
func GPUCount(tres string) int {
	var total, typed int
	var haveTotal bool
	for _, f := range strings.Split(tres, ",") {
		name, val, found := strings.Cut(strings.TrimSpace(f), "=")
		if !found || !strings.HasPrefix(name, "gres/gpu") {
			continue
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			continue
		}
		if name == "gres/gpu" {
			total, haveTotal = n, true
		} else if strings.HasPrefix(name, "gres/gpu:") {
			typed += n
		}
	}
	if haveTotal {
		return total
	}
	return typed
}
