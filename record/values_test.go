package record

import (
	"math"
	"testing"
)

func TestByteSize(t *testing.T) {
	if x := ParseByteSize("1.5G"); x != ByteSize(1.5*math.Exp2(30)) {
		t.Fatalf("1.5G: %v", x)
	}
	if x := ParseByteSize("2g"); x != ByteSize(2*math.Exp2(30)) {
		t.Fatalf("2g: %v", x)
	}
	if x := ParseByteSize("12"); x != 12 {
		t.Fatalf("12: %v", x)
	}
	for _, s := range []string{"", "Unknown", "INVALID", "12Q", "G"} {
		if x := ParseByteSize(s); x != 0 {
			t.Fatalf("%q should be zero: %v", s, x)
		}
	}

	if !IsByteSize("0") || !IsByteSize(" 2g ") || IsByteSize("lots") || IsByteSize("") {
		t.Fatal("IsByteSize")
	}

	// Round trip at the display precision
	for _, s := range []string{"1.50G", "512.00M", "1023.00K", "1.00K", "3.25T", "12.00"} {
		if x := FormatByteSize(float64(ParseByteSize(s))); x != s {
			t.Fatalf("Round trip %s: %s", s, x)
		}
	}
	if x := FormatByteSize(0); x != "0.00" {
		t.Fatalf("Zero: %s", x)
	}
}

func TestDuration(t *testing.T) {
	d := ParseDuration("1-02:03:04.5")
	if d.Days != 1 || d.Hours != 2 || d.Minutes != 3 || d.Seconds != 4.5 {
		t.Fatalf("Decomposition: %v", d)
	}
	if d.TotalSeconds() != 93784.5 {
		t.Fatalf("Seconds: %v", d.TotalSeconds())
	}
	if x := DurationFromSeconds(93784.5); x != d {
		t.Fatalf("From seconds: %v", x)
	}
	d = ParseDuration("03:04")
	if d.Days != 0 || d.Hours != 0 || d.Minutes != 3 || d.Seconds != 4 {
		t.Fatalf("Short form: %v", d)
	}
	for _, s := range []string{"", "INVALID", "1:2:3:4", "abc"} {
		if x := ParseDuration(s); !x.Empty() {
			t.Fatalf("%q should be empty: %v", s, x)
		}
	}

	for _, s := range []string{"00:04:00", "12:34:56", "01:00:00", "23:59:59"} {
		if x := FormatDuration(ParseDuration(s), 0); x != s {
			t.Fatalf("Round trip %s: %s", s, x)
		}
		if x := FormatDuration(DurationFromSeconds(ParseDuration(s).TotalSeconds()), 0); x != s {
			t.Fatalf("Round trip via seconds %s: %s", s, x)
		}
	}
	if x := FormatDuration(ParseDuration("3-01:02:03"), 0); x != "3-01:02:03" {
		t.Fatalf("Days: %s", x)
	}
	if x := FormatDuration(ParseDuration("3-01:02:03"), 2); x != " 3-01:02:03" {
		t.Fatalf("Days, padded: %q", x)
	}
	if x := FormatDuration(ParseDuration("12:00:00"), 2); x != "   12:00:00" {
		t.Fatalf("No days, padded: %q", x)
	}
	if x := FormatDuration(Duration{}, 0); x != "--" {
		t.Fatalf("Zero: %s", x)
	}
}

func TestMemRequest(t *testing.T) {
	gib := math.Exp2(30)
	r := ParseMemRequest("1Gc").(MemRequest)
	if !r.PerCore || r.RequestedBytes(24, 1) != 24*gib || r.Qualifier() != "core" {
		t.Fatalf("Per core: %v", r)
	}
	r = ParseMemRequest("1Gn").(MemRequest)
	if r.PerCore || r.RequestedBytes(24, 1) != gib || r.Qualifier() != "node" {
		t.Fatalf("Per node: %v", r)
	}
	r = ParseMemRequest("4G").(MemRequest)
	if r.PerCore || r.RequestedBytes(8, 2) != 8*gib {
		t.Fatalf("Unqualified: %v", r)
	}
	r = ParseMemRequest("").(MemRequest)
	if !r.Empty() {
		t.Fatalf("Empty: %v", r)
	}
}

func TestUsage(t *testing.T) {
	u := ParseUsage("cpu=00:01:00,energy=0,fs/disk=1048576,mem=2G,pages=0,vmem=3G")
	if u.Mem != ByteSize(math.Exp2(31)) || u.Disk != ByteSize(math.Exp2(20)) {
		t.Fatalf("Usage: %v", u)
	}
	u = ParseUsage("cpu=00:01:00,vmem=3G")
	if !u.Empty() {
		t.Fatalf("No components: %v", u)
	}
	if x := parseDiskValue("fs/disk=2048,mem=1M"); x != ByteSize(2048) {
		t.Fatalf("Disk only: %v", x)
	}
}

func TestStamp(t *testing.T) {
	for _, s := range []string{"", "Unknown", "UNKNOWN", "None"} {
		if x := ParseStamp(s).(Stamp); !x.IsUnknown() {
			t.Fatalf("%q should be unknown: %s", s, x)
		}
	}
	if x := ParseStamp("2024-01-02T03:04:05").(Stamp); x != "2024-01-02T03:04:05" {
		t.Fatalf("Timestamp: %s", x)
	}
	// The sentinel must sort after real timestamps
	if !(Unknown > "2999-12-31T23:59:59") {
		t.Fatalf("Sentinel order")
	}
	if x := ParseLimit("").(Stamp); x != "" {
		t.Fatalf("Limit: %s", x)
	}
}

func TestGPUCount(t *testing.T) {
	tests := []struct {
		tres string
		n    int
	}{
		{"", 0},
		{"billing=4,cpu=4,mem=8G,node=1", 0},
		{"cpu=4,gres/gpu=2,mem=8G", 2},
		{"gres/gpu:a100=1,gres/gpu:v100=2", 3},
		{"gres/gpu=2,gres/gpu:a100=2", 2},
		{"gres/gpumem=40G,gres/gpu=1", 1},
	}
	for _, test := range tests {
		if x := GPUCount(test.tres); x != test.n {
			t.Fatalf("%q: got %d", test.tres, x)
		}
	}
}
