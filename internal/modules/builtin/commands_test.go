package builtin

import (
	"strings"
	"testing"

	"github.com/fleetcore/fleetcore/internal/hoststate"
)

func TestShellCommandMissingParam(t *testing.T) {
	s := &shellCommand{base{meta: registryMetaForTest("run_shell")}}
	if _, err := s.GetConnectorMessage(testHost(), nil); err == nil {
		t.Fatalf("expected error for missing %q param", "line")
	}
}

func TestShellCommandBuildsLine(t *testing.T) {
	s := &shellCommand{base{meta: registryMetaForTest("run_shell")}}
	msg, err := s.GetConnectorMessage(testHost(), map[string]string{"line": "uptime"})
	if err != nil {
		t.Fatalf("GetConnectorMessage: %v", err)
	}
	if msg != "uptime" {
		t.Errorf("msg = %q, want uptime", msg)
	}
}

func TestServiceRestartBuildsLine(t *testing.T) {
	s := &serviceRestart{base{meta: registryMetaForTest("restart_service")}}
	msg, err := s.GetConnectorMessage(testHost(), map[string]string{"unit": "nginx.service"})
	if err != nil {
		t.Fatalf("GetConnectorMessage: %v", err)
	}
	if msg != "systemctl restart nginx.service" {
		t.Errorf("msg = %q, want systemctl restart nginx.service", msg)
	}
}

func TestServiceRestartSanitizesUnit(t *testing.T) {
	s := &serviceRestart{base{meta: registryMetaForTest("restart_service")}}
	msg, err := s.GetConnectorMessage(testHost(), map[string]string{"unit": "nginx; rm -rf /"})
	if err != nil {
		t.Fatalf("GetConnectorMessage: %v", err)
	}
	if strings.Contains(msg, ";") || strings.Contains(msg, " /") {
		t.Errorf("msg = %q: shell metacharacters survived sanitization", msg)
	}
}

func TestServiceRestartMissingUnit(t *testing.T) {
	s := &serviceRestart{base{meta: registryMetaForTest("restart_service")}}
	if _, err := s.GetConnectorMessage(testHost(), nil); err == nil {
		t.Fatalf("expected error for missing %q param", "unit")
	}
}

func TestServiceMaskBuildsLine(t *testing.T) {
	s := &serviceMask{base{meta: registryMetaForTest("mask_service")}}
	msg, err := s.GetConnectorMessage(testHost(), map[string]string{"unit": "telnet.socket"})
	if err != nil {
		t.Fatalf("GetConnectorMessage: %v", err)
	}
	if msg != "systemctl mask telnet.socket" {
		t.Errorf("msg = %q, want systemctl mask telnet.socket", msg)
	}
}

func TestServiceMaskMissingUnit(t *testing.T) {
	s := &serviceMask{base{meta: registryMetaForTest("mask_service")}}
	if _, err := s.GetConnectorMessage(testHost(), nil); err == nil {
		t.Fatalf("expected error for missing %q param", "unit")
	}
}

func TestServiceMaskProcessResponseEmptyOutputIsSuccess(t *testing.T) {
	s := &serviceMask{base{meta: registryMetaForTest("mask_service")}}
	resp := respOK("")
	res, err := s.ProcessResponse(testHost(), &resp)
	if err != nil {
		t.Fatalf("ProcessResponse: %v", err)
	}
	if res.Criticality != hoststate.Normal {
		t.Errorf("Criticality = %v, want Normal for empty systemctl mask output", res.Criticality)
	}
}

func TestServiceMaskProcessResponseOutputIsFailure(t *testing.T) {
	s := &serviceMask{base{meta: registryMetaForTest("mask_service")}}
	resp := respOK("Failed to mask unit: Unit not found.")
	res, err := s.ProcessResponse(testHost(), &resp)
	if err != nil {
		t.Fatalf("ProcessResponse: %v", err)
	}
	if res.Criticality != hoststate.Error {
		t.Errorf("Criticality = %v, want Error when systemctl mask prints output", res.Criticality)
	}
}
