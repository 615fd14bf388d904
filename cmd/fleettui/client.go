package main

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/fleetcore/fleetcore/internal/hoststate"
	"github.com/gorilla/websocket"
)

// streamHostUpdates dials the fleetd dashboard websocket and forwards every
// decoded snapshot onto updates, closing it when the connection drops. This
// proves the same Observer wire format dashboardobserver.Hub emits for
// browser clients works for a second, independent UI (spec.md §6: "any
// number of UI observers" attach to the same fan-out).
func streamHostUpdates(serverURL string, updates chan<- hoststate.HostDisplayData, errs chan<- error) {
	defer close(updates)

	wsURL, err := toWebsocketURL(serverURL)
	if err != nil {
		errs <- err
		return
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		errs <- fmt.Errorf("fleettui: connect to %s: %w", wsURL, err)
		return
	}
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			errs <- fmt.Errorf("fleettui: connection to %s lost: %w", wsURL, err)
			return
		}
		var snap hoststate.HostDisplayData
		if err := json.Unmarshal(data, &snap); err != nil {
			continue
		}
		updates <- snap
	}
}

func toWebsocketURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("fleettui: invalid server URL %q: %w", serverURL, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("fleettui: unsupported server URL scheme %q", u.Scheme)
	}
	u.Path = "/ws"
	return u.String(), nil
}
