package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"sshwatch/internal/analysis"
)

func (m FlowModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case TickMsg:
		m.refresh()
		return m, tickCmd()
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *FlowModel) refresh() {
	m.counters = m.flows.GetCounters()
	m.snapshot = m.flows.GetFlows()
	m.alerts = m.flows.GetAlerts(5)

	rows := make([]table.Row, len(m.snapshot))
	for i, f := range m.snapshot {
		rows[i] = table.Row{
			fmt.Sprintf("%s:%d", f.Key.ClientIP, f.Key.ClientPort),
			fmt.Sprintf("%s:%d (%s)", f.Key.ServerIP, f.Key.ServerPort, analysis.GetServiceName(f.Key.ServerPort)),
			f.Client.ProtocolBanner,
			f.Server.ProtocolBanner,
			f.Client.KexAlgorithms,
		}
	}
	m.table.SetRows(rows)
}
