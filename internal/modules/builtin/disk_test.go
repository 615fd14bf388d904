package builtin

import (
	"testing"

	"github.com/fleetcore/fleetcore/internal/hoststate"
)

func TestParseDfRoot(t *testing.T) {
	out := "Filesystem     1024-blocks      Used Available Capacity Mounted on\n" +
		"/dev/sda1         10485760   8912896   1048576      90% /\n"
	pct, avail, ok := parseDfRoot(out)
	if !ok {
		t.Fatalf("parseDfRoot: expected ok")
	}
	if pct != 90 {
		t.Errorf("pct = %d, want 90", pct)
	}
	if avail != "1.0G" {
		t.Errorf("avail = %q, want 1.0G", avail)
	}
}

func TestParseDfRootMalformed(t *testing.T) {
	if _, _, ok := parseDfRoot("garbage"); ok {
		t.Fatalf("parseDfRoot: expected !ok for malformed input")
	}
}

func TestDiskUsageCriticality(t *testing.T) {
	d := &diskUsage{base{meta: registryMetaForTest("disk_usage")}}
	cases := []struct {
		df   string
		want string
		crit hoststate.Criticality
	}{
		{"F B U A C M\n/dev/sda1 1 1 1 10% /\n", "10%", hoststate.Normal},
		{"F B U A C M\n/dev/sda1 1 1 1 85% /\n", "85%", hoststate.Warning},
		{"F B U A C M\n/dev/sda1 1 1 1 99% /\n", "99%", hoststate.Critical},
	}
	for _, c := range cases {
		resp := respOK(c.df)
		dp, err := d.ProcessResponse(testHost(), &resp, nil)
		if err != nil {
			t.Fatalf("ProcessResponse: %v", err)
		}
		if dp.Value != c.want {
			t.Errorf("Value = %q, want %q", dp.Value, c.want)
		}
		if dp.Criticality != c.crit {
			t.Errorf("Criticality = %v, want %v", dp.Criticality, c.crit)
		}
	}
}

func TestParseDu(t *testing.T) {
	children := parseDu("12M\t/var/log\n4.0K\t/tmp\n")
	if len(children) != 2 {
		t.Fatalf("len(children) = %d, want 2", len(children))
	}
	if children[0].Label != "/var/log" || children[0].Value != "12M" {
		t.Errorf("children[0] = %+v", children[0])
	}
}
