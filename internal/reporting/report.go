package reporting

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"sshwatch/internal/analysis"
)

// GenerateSessionReport writes a report of the session's activity into dir
// and returns the file name. Supports "json" and "html" formats.
func GenerateSessionReport(table *analysis.FlowTable, format, dir string) (string, error) {
	if format != "json" && format != "html" {
		return "", errors.Errorf("unsupported format: %s", format)
	}

	now := time.Now()
	timestamp := now.Format("20060102_150405")
	filename := filepath.Join(dir, fmt.Sprintf("sshwatch_%s.%s", timestamp, format))

	file, err := os.Create(filename)
	if err != nil {
		return "", errors.Wrap(err, "create report")
	}
	defer file.Close()

	report := BuildSessionReport(table, now)

	if format == "json" {
		if err := WriteJSON(file, report); err != nil {
			return "", err
		}
		return filename, nil
	}

	if _, err := file.WriteString(renderHTML(report)); err != nil {
		return "", errors.Wrap(err, "write report")
	}
	return filename, nil
}

func renderHTML(report SessionReport) string {
	// Generate HTML content
	out := fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>sshwatch Session Report - %s</title>
    <style>
        body { font-family: sans-serif; margin: 20px; color: #333; }
        h1, h2 { color: #2c3e50; }
        table { width: 100%%; border-collapse: collapse; margin-bottom: 20px; }
        th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
        th { background-color: #f2f2f2; }
        tr:nth-child(even) { background-color: #f9f9f9; }
        td.mono { font-family: monospace; word-break: break-all; }
        .summary { background: #eef; padding: 15px; border-radius: 5px; margin-bottom: 20px; }
        .alert { color: #d9534f; font-weight: bold; }
    </style>
</head>
<body>
    <h1>sshwatch Session Report</h1>
    <div class="summary">
        <p><strong>Date:</strong> %s</p>
        <p><strong>Data Inspected:</strong> %s in %d chunks</p>
        <p><strong>Flows:</strong> %d</p>
    </div>

    <h2>SSH Handshakes</h2>
    <table>
        <thead>
            <tr>
                <th>Client</th>
                <th>Server</th>
                <th>Side</th>
                <th>Protocol</th>
                <th>Cookie</th>
                <th>Key Exchange Algorithms</th>
            </tr>
        </thead>
        <tbody>
`, report.GeneratedAt.Format("20060102_150405"), report.GeneratedAt.Format(time.RFC1123),
		formatBytes(report.Bytes), report.Chunks, len(report.Flows))

	rows := 0
	for _, flow := range report.Flows {
		for _, side := range []*DirectionReport{flow.FromClient, flow.FromServer} {
			if side == nil || side.SSH == nil {
				continue
			}
			var algos string
			if side.SSH.KexAlgorithms != nil {
				algos = *side.SSH.KexAlgorithms
			}
			out += fmt.Sprintf("            <tr><td>%s</td><td>%s (%s)</td><td>%s</td><td>%s</td><td class=\"mono\">%s</td><td class=\"mono\">%s</td></tr>\n",
				html.EscapeString(flow.Client), html.EscapeString(flow.Server), html.EscapeString(flow.Service),
				side.Role, html.EscapeString(side.SSH.Protocol), side.SSH.Cookie, html.EscapeString(algos))
			rows++
		}
	}
	if rows == 0 {
		out += "            <tr><td colspan=\"6\">No SSH handshakes observed.</td></tr>\n"
	}

	out += `        </tbody>
    </table>

    <h2>Alerts</h2>
    <table>
        <thead>
            <tr>
                <th>Time</th>
                <th>Type</th>
                <th>Flow</th>
                <th>Message</th>
            </tr>
        </thead>
        <tbody>
`

	if len(report.Alerts) == 0 {
		out += "            <tr><td colspan=\"4\">No alerts triggered during this session.</td></tr>\n"
	} else {
		for _, alert := range report.Alerts {
			out += fmt.Sprintf("            <tr><td>%s</td><td class=\"alert\">%s</td><td>%s</td><td>%s</td></tr>\n",
				alert.Time.Format("15:04:05"), alert.Type, html.EscapeString(alert.Source), html.EscapeString(alert.Message))
		}
	}

	out += `        </tbody>
    </table>
</body>
</html>`

	return out
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
