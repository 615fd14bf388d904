package command

import (
	"testing"

	"github.com/fleetcore/fleetcore/internal/connector"
	"github.com/fleetcore/fleetcore/internal/hoststate"
	"github.com/fleetcore/fleetcore/internal/moduleid"
	"github.com/fleetcore/fleetcore/internal/registry"
	"github.com/rs/zerolog"
)

type fakeCommand struct {
	meta    registry.Metadata
	process func(resp *connector.ResponseMessage) (hoststate.CommandResult, error)
}

func (f *fakeCommand) ModuleSpec() moduleid.Spec   { return f.meta.Spec }
func (f *fakeCommand) Metadata() registry.Metadata { return f.meta }
func (f *fakeCommand) Clone() registry.Module      { return f }

func (f *fakeCommand) GetConnectorMessage(hoststate.Host, map[string]string) (string, error) {
	return "", registry.NotImplemented(f.meta.Spec.ID)
}
func (f *fakeCommand) GetConnectorMessages(hoststate.Host, map[string]string) ([]string, error) {
	return []string{"one", "two"}, nil
}
func (f *fakeCommand) ProcessResponse(_ hoststate.Host, resp *connector.ResponseMessage) (hoststate.CommandResult, error) {
	return f.process(resp)
}
func (f *fakeCommand) ProcessResponses(hoststate.Host, []connector.ResponseMessage) (hoststate.CommandResult, error) {
	return hoststate.CommandResult{}, registry.NotImplemented(f.meta.Spec.ID)
}

func TestExecuteUsesMultiMessageForm(t *testing.T) {
	reg := registry.New()
	requests := make(chan connector.Request, 4)
	updates := make(chan hoststate.StateUpdateMessage, 4)
	meta := registry.Metadata{Spec: moduleid.New("cmd1", "1")}
	reg.RegisterCommand(meta, func(registry.Settings) (registry.Command, error) {
		return &fakeCommand{meta: meta, process: func(resp *connector.ResponseMessage) (hoststate.CommandResult, error) {
			return hoststate.CommandResult{Message: resp.Message, Criticality: hoststate.Normal}, nil
		}}, nil
	})

	h := NewHandler(zerolog.Nop(), reg, requests, updates, nil)
	host := hoststate.Host{Name: "h1"}
	if err := h.AddCommand(host, meta.Spec, nil); err != nil {
		t.Fatalf("AddCommand: %v", err)
	}

	inv := h.Execute(host, "cmd1", nil)
	if inv == 0 {
		t.Fatalf("Execute returned 0 invocation id")
	}
	req := <-requests
	if len(req.Messages) != 2 || req.Messages[0] != "one" || req.Messages[1] != "two" {
		t.Fatalf("Messages = %v, want [one two]", req.Messages)
	}
	req.ResponseHandler([]connector.Result{
		connector.Ok(connector.ResponseMessage{Message: "a"}),
		connector.Ok(connector.ResponseMessage{Message: "b"}),
	})
	update := <-updates
	if update.CommandResult.InvocationID != inv {
		t.Errorf("InvocationID = %d, want %d", update.CommandResult.InvocationID, inv)
	}
}

type fakeVerifier bool

func (f fakeVerifier) Verify(code string) bool { return bool(f) }

func TestExecuteRejectsDestructiveCommandWithoutValidTOTP(t *testing.T) {
	reg := registry.New()
	requests := make(chan connector.Request, 4)
	updates := make(chan hoststate.StateUpdateMessage, 4)
	meta := registry.Metadata{Spec: moduleid.New("reboot", "1"), Destructive: true}
	reg.RegisterCommand(meta, func(registry.Settings) (registry.Command, error) {
		return &fakeCommand{meta: meta}, nil
	})

	h := NewHandler(zerolog.Nop(), reg, requests, updates, nil, WithTOTPVerifier(fakeVerifier(false)))
	host := hoststate.Host{Name: "h1"}
	if err := h.AddCommand(host, meta.Spec, nil); err != nil {
		t.Fatalf("AddCommand: %v", err)
	}

	inv := h.Execute(host, "reboot", map[string]string{"totp_code": "000000"})
	if inv != 0 {
		t.Fatalf("expected Execute to reject without a valid TOTP code, got invocation %d", inv)
	}
	if len(requests) != 0 {
		t.Fatal("expected no connector request to be dispatched")
	}
	update := <-updates
	if update.CommandResult.Criticality != hoststate.Error {
		t.Fatalf("expected an error result to be published, got %+v", update.CommandResult)
	}
}

func TestExecuteAllowsDestructiveCommandWithValidTOTP(t *testing.T) {
	reg := registry.New()
	requests := make(chan connector.Request, 4)
	updates := make(chan hoststate.StateUpdateMessage, 4)
	meta := registry.Metadata{Spec: moduleid.New("reboot", "1"), Destructive: true}
	reg.RegisterCommand(meta, func(registry.Settings) (registry.Command, error) {
		return &fakeCommand{meta: meta, process: func(resp *connector.ResponseMessage) (hoststate.CommandResult, error) {
			return hoststate.CommandResult{Message: "ok", Criticality: hoststate.Normal}, nil
		}}, nil
	})

	h := NewHandler(zerolog.Nop(), reg, requests, updates, nil, WithTOTPVerifier(fakeVerifier(true)))
	host := hoststate.Host{Name: "h1"}
	if err := h.AddCommand(host, meta.Spec, nil); err != nil {
		t.Fatalf("AddCommand: %v", err)
	}

	inv := h.Execute(host, "reboot", map[string]string{"totp_code": "123456"})
	if inv == 0 {
		t.Fatal("expected Execute to dispatch with a valid TOTP code")
	}
	req := <-requests
	if len(req.Messages) == 0 {
		t.Fatal("expected a connector request with messages to be dispatched")
	}
}

func TestAddCommandIsInsertOnlyIfAbsent(t *testing.T) {
	reg := registry.New()
	requests := make(chan connector.Request, 4)
	updates := make(chan hoststate.StateUpdateMessage, 4)
	meta := registry.Metadata{Spec: moduleid.New("cmd1", "1")}
	calls := 0
	reg.RegisterCommand(meta, func(registry.Settings) (registry.Command, error) {
		calls++
		return &fakeCommand{meta: meta}, nil
	})
	h := NewHandler(zerolog.Nop(), reg, requests, updates, nil)
	host := hoststate.Host{Name: "h1"}
	if err := h.AddCommand(host, meta.Spec, nil); err != nil {
		t.Fatalf("AddCommand: %v", err)
	}
	if err := h.AddCommand(host, meta.Spec, nil); err != nil {
		t.Fatalf("AddCommand (second): %v", err)
	}
	if calls != 1 {
		t.Errorf("constructor called %d times, want 1", calls)
	}
}
