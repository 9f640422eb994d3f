package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds everything needed to run a capture session.
type Config struct {
	Interface   string `yaml:"interface"`
	PcapFile    string `yaml:"pcap_file"`
	Source      string `yaml:"source"` // "pcap" or "tshark"
	BPFFilter   string `yaml:"bpf_filter"`
	SnapLen     int    `yaml:"snaplen"`
	Promisc     bool   `yaml:"promisc"`
	ServerPorts []int  `yaml:"server_ports"`

	// DeepInspection gates the SSH handshake dissector for every flow.
	DeepInspection bool `yaml:"deep_inspection"`

	FlushInterval   time.Duration `yaml:"flush_interval"`
	FlowIdleTimeout time.Duration `yaml:"flow_idle_timeout"`
	DataRetention   time.Duration `yaml:"data_retention"`
	AlertCooldown   time.Duration `yaml:"alert_cooldown"`

	ReportFormat string `yaml:"report_format"` // "json", "html" or "" for none
	ReportDir    string `yaml:"report_dir"`
	TUI          bool   `yaml:"tui"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Source:          "pcap",
		BPFFilter:       "tcp port 22",
		SnapLen:         65536,
		Promisc:         true,
		ServerPorts:     []int{22},
		DeepInspection:  true,
		FlushInterval:   10 * time.Second,
		FlowIdleTimeout: 2 * time.Minute,
		DataRetention:   10 * time.Minute,
		AlertCooldown:   30 * time.Second,
		ReportFormat:    "json",
		ReportDir:       ".",
	}
}

// Load reads a YAML file on top of the defaults. An empty path returns the
// defaults unchanged. The result is not validated, so command-line overrides
// can still complete it; call Validate once they are applied.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}

// UseInterface switches the session to a live capture on name.
func (c *Config) UseInterface(name string) {
	c.Interface = name
	c.PcapFile = ""
}

// UsePcapFile switches the session to replaying path.
func (c *Config) UsePcapFile(path string) {
	c.PcapFile = path
	c.Interface = ""
}

// Validate checks that the configuration can drive a session.
func (c Config) Validate() error {
	if c.Interface == "" && c.PcapFile == "" {
		return errors.New("either an interface or a pcap file is required")
	}
	if c.Interface != "" && c.PcapFile != "" {
		return errors.New("interface and pcap file are mutually exclusive")
	}
	switch c.Source {
	case "pcap":
	case "tshark":
	default:
		return errors.Errorf("unsupported capture source: %s", c.Source)
	}
	switch c.ReportFormat {
	case "", "json", "html":
	default:
		return errors.Errorf("unsupported report format: %s", c.ReportFormat)
	}
	if len(c.ServerPorts) == 0 {
		return errors.New("at least one server port is required")
	}
	for _, p := range c.ServerPorts {
		if p <= 0 || p > 65535 {
			return errors.Errorf("invalid server port: %d", p)
		}
	}
	return nil
}
