package builtin

import (
	"github.com/fleetcore/fleetcore/internal/connector"
	"github.com/fleetcore/fleetcore/internal/hoststate"
	"github.com/fleetcore/fleetcore/internal/moduleid"
	"github.com/fleetcore/fleetcore/internal/registry"
)

func testHost() hoststate.Host {
	return hoststate.Host{Name: "test-host", FQDN: "test-host.example.com"}
}

func registryMetaForTest(id string) registry.Metadata {
	return registry.Metadata{Spec: moduleid.New(id, "1")}
}

func respOK(msg string) connector.ResponseMessage {
	return connector.ResponseMessage{Message: msg}
}

func respErr(msg string) connector.ResponseMessage {
	return connector.ResponseMessage{Message: msg, IsError: true}
}
