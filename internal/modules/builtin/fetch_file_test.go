package builtin

import (
	"testing"

	"github.com/fleetcore/fleetcore/internal/fleeterr"
	"github.com/fleetcore/fleetcore/internal/moduleid"
	"github.com/fleetcore/fleetcore/internal/registry"
)

func TestRegisterFetchFileInstallsEditFileCommand(t *testing.T) {
	reg := registry.New()
	RegisterFetchFile(reg)

	meta, ok := reg.ResolveCommandMeta(moduleid.New("edit_file", "1"))
	if !ok {
		t.Fatal("expected edit_file command to be registered")
	}
	if meta.Display.ActionHint != "edit" {
		t.Errorf("ActionHint = %q, want %q", meta.Display.ActionHint, "edit")
	}
	if meta.ConnectorSpec == nil {
		t.Error("expected edit_file to declare a connector spec")
	}
}

func TestFetchFileSignalsNotImplementedForDispatch(t *testing.T) {
	f := &fetchFile{base{meta: registryMetaForTest("edit_file")}}

	if _, err := f.GetConnectorMessage(testHost(), nil); !fleeterr.NotImplementedSentinel(err) {
		t.Errorf("GetConnectorMessage: expected the not-implemented sentinel, got %v", err)
	}
	if _, err := f.GetConnectorMessages(testHost(), nil); !fleeterr.NotImplementedSentinel(err) {
		t.Errorf("GetConnectorMessages: expected the not-implemented sentinel, got %v", err)
	}
	if _, err := f.ProcessResponse(testHost(), nil); !fleeterr.NotImplementedSentinel(err) {
		t.Errorf("ProcessResponse: expected the not-implemented sentinel, got %v", err)
	}
	if _, err := f.ProcessResponses(testHost(), nil); !fleeterr.NotImplementedSentinel(err) {
		t.Errorf("ProcessResponses: expected the not-implemented sentinel, got %v", err)
	}
}
