package analysis

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"sshwatch/internal/models"
	"sshwatch/internal/sshproto"
)

// AnomalyType represents the type of anomaly detected.
type AnomalyType string

const (
	AnomalyLegacyVersion AnomalyType = "LEGACY_SSH_VERSION"
	AnomalyWeakKex       AnomalyType = "WEAK_KEX"
	AnomalyNonSSHBanner  AnomalyType = "NON_SSH_BANNER"
)

// Config holds configuration for the flow table and anomaly detector.
type Config struct {
	DeepInspection  bool          // Feature gate for the SSH dissector
	AlertCooldown   time.Duration // Cooldown per alert type and flow
	CleanupInterval time.Duration // Interval for memory cleanup
	DataRetention   time.Duration // How long to keep idle flows
	MaxAlerts       int           // Alert history size
	MaxRetiredFlows int           // Ended or idle flows kept for reports
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		DeepInspection:  true,
		AlertCooldown:   30 * time.Second,
		CleanupInterval: 1 * time.Minute,
		DataRetention:   10 * time.Minute,
		MaxAlerts:       20,
		MaxRetiredFlows: 1024,
	}
}

// weakKexMethods are key exchange methods RFC 9142 marks as SHOULD NOT or MUST NOT.
var weakKexMethods = []string{
	"diffie-hellman-group1-sha1",
	"diffie-hellman-group-exchange-sha1",
	"rsa1024-sha1",
	"gss-group1-sha1-",
}

// Alert represents a detected anomaly on a flow.
type Alert struct {
	Type      AnomalyType
	Source    string // Flow key
	Message   string // Human-readable description
	Timestamp time.Time
}

// AnomalyDetector raises alerts when an SSH observation changes into
// something worth flagging.
type AnomalyDetector struct {
	mu sync.Mutex

	config Config

	// key: type + flow -> last alert time
	lastAlert map[string]time.Time

	// Alert History (circular buffer)
	alerts    []Alert
	maxAlerts int

	lastCleanup time.Time
}

// NewAnomalyDetector creates a new anomaly detection engine.
func NewAnomalyDetector(cfg Config) *AnomalyDetector {
	maxAlerts := cfg.MaxAlerts
	if maxAlerts <= 0 {
		maxAlerts = 20
	}
	return &AnomalyDetector{
		config:    cfg,
		lastAlert: make(map[string]time.Time),
		alerts:    make([]Alert, 0),
		maxAlerts: maxAlerts,
	}
}

// ProcessObservation compares a record before and after a chunk was applied.
func (ad *AnomalyDetector) ProcessObservation(key models.FlowKey, before, after sshproto.Observation, now time.Time) {
	if before == after {
		return
	}

	ad.mu.Lock()
	defer ad.mu.Unlock()

	// Lazy cleanup, on the same packet clock as the flow table
	if ad.lastCleanup.IsZero() {
		ad.lastCleanup = now
	} else if now.Sub(ad.lastCleanup) > ad.config.CleanupInterval {
		ad.cleanup(now)
		ad.lastCleanup = now
	}

	if before.ProtocolBanner != after.ProtocolBanner {
		ad.detectBanner(key, after, now)
	}
	if after.KexInitCount != before.KexInitCount {
		ad.detectWeakKex(key, after, now)
	}
}

// cleanup removes old entries to prevent memory leaks.
func (ad *AnomalyDetector) cleanup(now time.Time) {
	for k, last := range ad.lastAlert {
		if now.Sub(last) > ad.config.DataRetention {
			delete(ad.lastAlert, k)
		}
	}
}

// detectBanner flags SSH-1 peers and banners that are not SSH at all.
func (ad *AnomalyDetector) detectBanner(key models.FlowKey, obs sshproto.Observation, now time.Time) {
	banner := obs.ProtocolBanner
	switch {
	case !strings.HasPrefix(banner, "SSH-"):
		ad.raise(AnomalyNonSSHBanner, key, now,
			fmt.Sprintf("%s sent a non-SSH identification %q on %s", obs.Role, banner, key))
	case strings.HasPrefix(banner, "SSH-1.") && !strings.HasPrefix(banner, "SSH-1.99-"):
		ad.raise(AnomalyLegacyVersion, key, now,
			fmt.Sprintf("%s speaks SSH protocol 1 (%q) on %s", obs.Role, banner, key))
	}
}

// detectWeakKex checks the offered key exchange methods.
func (ad *AnomalyDetector) detectWeakKex(key models.FlowKey, obs sshproto.Observation, now time.Time) {
	for _, method := range strings.Split(obs.KexAlgorithms, ",") {
		for _, weak := range weakKexMethods {
			if method == weak || (strings.HasSuffix(weak, "-") && strings.HasPrefix(method, weak)) {
				ad.raise(AnomalyWeakKex, key, now,
					fmt.Sprintf("%s offers weak key exchange %s on %s", obs.Role, method, key))
				return
			}
		}
	}
}

// raise records an alert unless the same type fired for the flow within the cooldown.
func (ad *AnomalyDetector) raise(typ AnomalyType, key models.FlowKey, now time.Time, msg string) {
	throttleKey := string(typ) + "|" + key.String()
	if last, exists := ad.lastAlert[throttleKey]; exists && now.Sub(last) <= ad.config.AlertCooldown {
		return
	}
	ad.lastAlert[throttleKey] = now

	ad.addAlert(Alert{
		Type:      typ,
		Source:    key.String(),
		Message:   msg,
		Timestamp: now,
	})
}

// addAlert adds an alert to the history (circular buffer).
func (ad *AnomalyDetector) addAlert(alert Alert) {
	ad.alerts = append(ad.alerts, alert)

	// Keep only last maxAlerts
	if len(ad.alerts) > ad.maxAlerts {
		ad.alerts = ad.alerts[len(ad.alerts)-ad.maxAlerts:]
	}
}

// GetRecentAlerts returns the most recent alerts (thread-safe).
func (ad *AnomalyDetector) GetRecentAlerts(limit int) []Alert {
	ad.mu.Lock()
	defer ad.mu.Unlock()

	if len(ad.alerts) == 0 {
		return []Alert{}
	}

	// Return last N alerts (newest last)
	start := 0
	if limit > 0 && len(ad.alerts) > limit {
		start = len(ad.alerts) - limit
	}

	// Make a copy to avoid race conditions
	result := make([]Alert, len(ad.alerts)-start)
	copy(result, ad.alerts[start:])

	return result
}
