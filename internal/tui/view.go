package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFF7DB")).
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Margin(0, 1)

	alertStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F"))
)

func (m FlowModel) View() string {
	title := titleStyle.Render(fmt.Sprintf("sshwatch - Monitoring: %s", m.source))

	stats := fmt.Sprintf("Flows: %d (%d ended)\nChunks: %d\nBytes: %d",
		m.counters.Flows+m.counters.Retired, m.counters.Retired, m.counters.Chunks, m.counters.Bytes)
	statsBox := infoStyle.Render(stats)

	var alertStrs []string
	for _, a := range m.alerts {
		alertStrs = append(alertStrs, alertStyle.Render(fmt.Sprintf("%s %s", a.Timestamp.Format("15:04:05"), a.Type))+" "+a.Source)
	}
	if len(alertStrs) == 0 {
		alertStrs = append(alertStrs, "No alerts")
	}
	alertBox := infoStyle.Render("Alerts:\n" + strings.Join(alertStrs, "\n"))

	flowBox := infoStyle.Render("SSH Flows\n" + m.table.View())

	// Layout
	row1 := lipgloss.JoinHorizontal(lipgloss.Top, statsBox, alertBox)
	body := lipgloss.JoinVertical(lipgloss.Left, title, row1, flowBox)

	return body + "\nPress q to quit."
}
