package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"sshwatch/internal/analysis"
)

// TickMsg drives the periodic refresh.
type TickMsg time.Time

type FlowModel struct {
	flows    *analysis.FlowTable
	counters analysis.Counters
	snapshot []analysis.FlowSnapshot
	alerts   []analysis.Alert
	table    table.Model
	source   string
}

func NewFlowModel(flows *analysis.FlowTable, source string) FlowModel {
	columns := []table.Column{
		{Title: "Client", Width: 22},
		{Title: "Server", Width: 28},
		{Title: "Client Banner", Width: 26},
		{Title: "Server Banner", Width: 26},
		{Title: "KEX (client)", Width: 34},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return FlowModel{
		flows:  flows,
		table:  t,
		source: source,
	}
}

func (m FlowModel) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
