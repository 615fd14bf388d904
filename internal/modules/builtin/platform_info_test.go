package builtin

import "testing"

func TestParseOSReleaseLinux(t *testing.T) {
	out := "NAME=\"Ubuntu\"\nID=ubuntu\nVERSION_ID=\"22.04\"\nLinux 5.15.0 x86_64\n"
	plat := parseOSRelease(out)
	if plat.OSFlavor != "ubuntu" {
		t.Errorf("OSFlavor = %q, want ubuntu", plat.OSFlavor)
	}
	if plat.OSVersion != "22.04" {
		t.Errorf("OSVersion = %q, want 22.04", plat.OSVersion)
	}
	if plat.Architecture != "x86_64" {
		t.Errorf("Architecture = %q, want x86_64", plat.Architecture)
	}
}

func TestParseOSReleaseEmpty(t *testing.T) {
	plat := parseOSRelease("")
	if plat.OS != "unknown" {
		t.Errorf("OS = %q, want unknown", plat.OS)
	}
}

func TestPlatformInfoProcessResponseError(t *testing.T) {
	p := &platformInfo{base{meta: registryMetaForTest("platform_info.ssh")}}
	resp := respErr("connection reset")
	dp, err := p.ProcessResponse(testHost(), &resp, nil)
	if err != nil {
		t.Fatalf("ProcessResponse: %v", err)
	}
	if dp.Label != "_platform_info" {
		t.Errorf("Label = %q, want _platform_info", dp.Label)
	}
}

func TestPlatformInfoProcessResponseMultivalue(t *testing.T) {
	p := &platformInfo{base{meta: registryMetaForTest("platform_info.ssh")}}
	resp := respOK("NAME=\"Debian\"\nID=debian\nVERSION_ID=\"12\"\nLinux 6.1.0 aarch64\n")
	dp, err := p.ProcessResponse(testHost(), &resp, nil)
	if err != nil {
		t.Fatalf("ProcessResponse: %v", err)
	}
	want := map[string]string{"os": "Debian", "os_version": "12", "os_flavor": "debian", "architecture": "aarch64"}
	got := make(map[string]string, len(dp.Multivalue))
	for _, c := range dp.Multivalue {
		got[c.Label] = c.Value
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("Multivalue[%q] = %q, want %q", k, got[k], v)
		}
	}
}
