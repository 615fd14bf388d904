package builtin

import (
	"testing"

	"github.com/fleetcore/fleetcore/internal/hoststate"
)

func TestParsePvsFlagsMissingVolume(t *testing.T) {
	out := "PV|Attr|PSize\n" +
		"  /dev/sda1|a--|10.00g\n" +
		"  /dev/sdb1|a-m|5.00g\n"
	points := parsePvs(out)
	if len(points) != 2 {
		t.Fatalf("len(points) = %d, want 2", len(points))
	}
	if points[0].Criticality != hoststate.Normal || points[0].Value != "OK" {
		t.Errorf("points[0] = %+v, want Normal/OK", points[0])
	}
	if points[1].Criticality != hoststate.Critical || points[1].Value != "Missing" {
		t.Errorf("points[1] = %+v, want Critical/Missing", points[1])
	}
	if points[1].CommandParams["pv_name"] != points[1].Label {
		t.Errorf("CommandParams[pv_name] = %q, want %q", points[1].CommandParams["pv_name"], points[1].Label)
	}
}

func TestParsePvsEmptyOutput(t *testing.T) {
	if points := parsePvs("PV|VG|Fmt\n"); points != nil {
		t.Errorf("expected no points for a header-only listing, got %+v", points)
	}
}

func TestLVMPhysicalVolumeProcessResponseError(t *testing.T) {
	l := &lvmPhysicalVolume{base{meta: registryMetaForTest("lvm_physical_volume")}}
	resp := respErr("pvs: command not found")
	dp, err := l.ProcessResponse(testHost(), &resp, nil)
	if err != nil {
		t.Fatalf("ProcessResponse: %v", err)
	}
	if dp.Criticality != hoststate.Error {
		t.Errorf("Criticality = %v, want Error", dp.Criticality)
	}
}

func TestLVMPhysicalVolumeProcessResponseMultivalue(t *testing.T) {
	l := &lvmPhysicalVolume{base{meta: registryMetaForTest("lvm_physical_volume")}}
	resp := respOK("PV|Attr|PSize\n  /dev/sda1|a--|10.00g\n")
	dp, err := l.ProcessResponse(testHost(), &resp, nil)
	if err != nil {
		t.Fatalf("ProcessResponse: %v", err)
	}
	if !dp.IsMultivalue() {
		t.Fatal("expected a multivalue result")
	}
}
