package reporting

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"

	"sshwatch/internal/analysis"
	"sshwatch/internal/sshproto"
)

// SSHSection is the "ssh" object for one direction of a flow.
type SSHSection struct {
	Protocol string `json:"protocol,omitempty"`
	// Cookie is hex encoded and left out while it is all zero.
	Cookie string `json:"cookie,omitempty"`
	// KexAlgorithms is the first KEXINIT name-list (kex_algorithms).
	KexAlgorithms *string `json:"kex_algorithms,omitempty"`
	KexInitCount  int     `json:"kexinit_count,omitempty"`
}

// NewSSHSection renders an observation. It returns nil while the role is
// unknown, and an empty section while no banner has been captured.
func NewSSHSection(obs sshproto.Observation) *SSHSection {
	if obs.Role == sshproto.RoleUnknown {
		return nil
	}

	s := &SSHSection{}
	if obs.ProtocolBanner == "" {
		return s
	}

	s.Protocol = obs.ProtocolBanner
	if obs.HasCookie() {
		s.Cookie = hex.EncodeToString(obs.Cookie[:])
	}
	algos := obs.KexAlgorithms
	s.KexAlgorithms = &algos
	s.KexInitCount = obs.KexInitCount
	return s
}

// DirectionReport describes what one peer sent.
type DirectionReport struct {
	Role string      `json:"role"`
	SSH  *SSHSection `json:"ssh,omitempty"`
}

// NewDirectionReport returns nil for a direction that never revealed its role.
func NewDirectionReport(obs sshproto.Observation) *DirectionReport {
	if obs.Role == sshproto.RoleUnknown {
		return nil
	}
	return &DirectionReport{Role: obs.Role.String(), SSH: NewSSHSection(obs)}
}

// FlowReport describes one connection.
type FlowReport struct {
	Client     string           `json:"client"`
	Server     string           `json:"server"`
	Service    string           `json:"service"`
	FirstSeen  time.Time        `json:"first_seen"`
	LastSeen   time.Time        `json:"last_seen"`
	Chunks     int              `json:"chunks"`
	Bytes      int64            `json:"bytes"`
	Closed     bool             `json:"closed,omitempty"`
	FromClient *DirectionReport `json:"from_client,omitempty"`
	FromServer *DirectionReport `json:"from_server,omitempty"`
}

// AlertReport is an anomaly in report form.
type AlertReport struct {
	Time    time.Time `json:"time"`
	Type    string    `json:"type"`
	Source  string    `json:"source"`
	Message string    `json:"message"`
}

// SessionReport is the JSON document written at the end of a session.
type SessionReport struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Chunks      int64         `json:"chunks"`
	Bytes       int64         `json:"bytes"`
	Flows       []FlowReport  `json:"flows"`
	Alerts      []AlertReport `json:"alerts"`
}

// BuildFlowReports converts flow snapshots into their report form.
func BuildFlowReports(flows []analysis.FlowSnapshot) []FlowReport {
	reports := make([]FlowReport, 0, len(flows))
	for _, f := range flows {
		reports = append(reports, FlowReport{
			Client:     fmt.Sprintf("%s:%d", f.Key.ClientIP, f.Key.ClientPort),
			Server:     fmt.Sprintf("%s:%d", f.Key.ServerIP, f.Key.ServerPort),
			Service:    analysis.GetServiceName(f.Key.ServerPort),
			FirstSeen:  f.FirstSeen,
			LastSeen:   f.LastSeen,
			Chunks:     f.Chunks,
			Bytes:      f.Bytes,
			Closed:     f.Closed,
			FromClient: NewDirectionReport(f.Client),
			FromServer: NewDirectionReport(f.Server),
		})
	}
	return reports
}

// BuildSessionReport gathers everything the table knows.
func BuildSessionReport(table *analysis.FlowTable, now time.Time) SessionReport {
	counters := table.GetCounters()
	alerts := table.GetAlerts(0)

	r := SessionReport{
		GeneratedAt: now,
		Chunks:      counters.Chunks,
		Bytes:       counters.Bytes,
		Flows:       BuildFlowReports(table.GetFlows()),
		Alerts:      make([]AlertReport, 0, len(alerts)),
	}
	for _, a := range alerts {
		r.Alerts = append(r.Alerts, AlertReport{
			Time:    a.Timestamp,
			Type:    string(a.Type),
			Source:  a.Source,
			Message: a.Message,
		})
	}
	return r
}

// WriteJSON writes the session report as indented JSON.
func WriteJSON(w io.Writer, report SessionReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(report), "encode report")
}
