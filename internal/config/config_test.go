package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sshwatch.yaml")
	content := `
pcap_file: capture.pcap
server_ports: [22, 2222]
deep_inspection: false
flow_idle_timeout: 45s
report_format: html
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := Default()
	want.PcapFile = "capture.pcap"
	want.ServerPorts = []int{22, 2222}
	want.DeepInspection = false
	want.FlowIdleTimeout = 45 * time.Second
	want.ReportFormat = "html"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadWithoutInputThenOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sshwatch.yaml")
	if err := os.WriteFile(path, []byte("server_ports: [22, 2222]\nreport_format: html\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("config without an input validated")
	}

	cfg.UseInterface("eth0")
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate after -i: %v", err)
	}
}

func TestInputOverrideReplacesFileInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sshwatch.yaml")
	if err := os.WriteFile(path, []byte("interface: eth0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	cfg.UsePcapFile("capture.pcap")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate after -r: %v", err)
	}
	if cfg.Interface != "" || cfg.PcapFile != "capture.pcap" {
		t.Errorf("inputs = %q / %q", cfg.Interface, cfg.PcapFile)
	}

	cfg.UseInterface("wlan0")
	if cfg.Interface != "wlan0" || cfg.PcapFile != "" {
		t.Errorf("inputs = %q / %q", cfg.Interface, cfg.PcapFile)
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sshwatch.yaml")
	if err := os.WriteFile(path, []byte("server_ports: [22\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	base := Default()
	base.Interface = "eth0"

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(c *Config) {}, true},
		{"no input", func(c *Config) { c.Interface = "" }, false},
		{"both inputs", func(c *Config) { c.PcapFile = "x.pcap" }, false},
		{"bad source", func(c *Config) { c.Source = "netflow" }, false},
		{"bad format", func(c *Config) { c.ReportFormat = "xml" }, false},
		{"no report", func(c *Config) { c.ReportFormat = "" }, true},
		{"no ports", func(c *Config) { c.ServerPorts = nil }, false},
		{"bad port", func(c *Config) { c.ServerPorts = []int{70000} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			cfg.ServerPorts = append([]int(nil), base.ServerPorts...)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}
