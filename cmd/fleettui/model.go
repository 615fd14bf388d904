package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/fleetcore/fleetcore/internal/hoststate"
)

// hostUpdateMsg carries one decoded snapshot off the websocket.
type hostUpdateMsg hoststate.HostDisplayData

// connErrMsg reports the websocket connection dying; the model keeps the
// last-known snapshot on screen and surfaces the error instead of quitting.
type connErrMsg struct{ err error }

type model struct {
	updates chan hoststate.HostDisplayData
	errs    chan error

	hosts  map[string]hoststate.HostDisplayData
	lastAt map[string]time.Time

	width, height int
	connErr       error
}

func newModel(updates chan hoststate.HostDisplayData, errs chan error) *model {
	return &model{
		updates: updates,
		errs:    errs,
		hosts:   make(map[string]hoststate.HostDisplayData),
		lastAt:  make(map[string]time.Time),
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), waitForErr(m.errs))
}

func waitForUpdate(updates chan hoststate.HostDisplayData) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return connErrMsg{err: fmt.Errorf("fleettui: update stream closed")}
		}
		return hostUpdateMsg(snap)
	}
}

func waitForErr(errs chan error) tea.Cmd {
	return func() tea.Msg {
		err, ok := <-errs
		if !ok {
			return nil
		}
		return connErrMsg{err: err}
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case hostUpdateMsg:
		snap := hoststate.HostDisplayData(msg)
		m.hosts[snap.Name] = snap
		m.lastAt[snap.Name] = time.Now()
		return m, waitForUpdate(m.updates)
	case connErrMsg:
		m.connErr = msg.err
		return m, nil
	}
	return m, nil
}

func (m *model) View() string {
	var b strings.Builder
	b.WriteString(styleHeading.Render("fleetcore — live host status"))
	b.WriteString("\n")

	if m.connErr != nil {
		b.WriteString(styleError.Render(m.connErr.Error()))
		b.WriteString("\n\n")
	}

	if len(m.hosts) == 0 {
		b.WriteString(styleSubtle.Render("waiting for the first snapshot..."))
		return styleBox.Render(b.String())
	}

	names := make([]string, 0, len(m.hosts))
	for name := range m.hosts {
		names = append(names, name)
	}
	sort.Strings(names)

	b.WriteString(fmt.Sprintf("%-20s %-8s %-8s %-10s %s\n",
		styleHeader.Render("HOST"), styleHeader.Render("STATUS"), styleHeader.Render("MONITORS"),
		styleHeader.Render("COMMANDS"), styleHeader.Render("UPDATED")))

	for _, name := range names {
		h := m.hosts[name]
		b.WriteString(fmt.Sprintf("%-20s %-8s %-8d %-10d %s\n",
			name, renderStatus(h.Status), len(h.MonitoringData), len(h.CommandResults),
			styleSubtle.Render(humanize.Time(m.lastAt[name]))))
	}

	b.WriteString("\n")
	b.WriteString(styleSubtle.Render("q: quit"))

	return styleBox.Render(b.String())
}

func renderStatus(s hoststate.Status) string {
	switch s {
	case hoststate.StatusUp:
		return styleSuccess.Render(iconUp + " up")
	case hoststate.StatusDown:
		return styleError.Render(iconDown + " down")
	default:
		return styleWarning.Render(iconPending + " pending")
	}
}
