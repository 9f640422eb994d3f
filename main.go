package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/darkit/slog"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"sshwatch/internal/analysis"
	"sshwatch/internal/capture"
	"sshwatch/internal/config"
	"sshwatch/internal/models"
	"sshwatch/internal/reporting"
	"sshwatch/internal/tshark"
	"sshwatch/internal/tui"
)

func main() {
	configFile := pflag.StringP("config", "c", "", "YAML config file")
	interfaceName := pflag.StringP("interface", "i", "", "Network interface to capture from (e.g., eth0, wlan0)")
	pcapFile := pflag.StringP("read", "r", "", "pcap file to replay instead of a live capture")
	source := pflag.String("source", "", "Capture source: pcap or tshark")
	filter := pflag.StringP("filter", "f", "", "BPF capture filter")
	ports := pflag.IntSlice("ports", nil, "SSH server ports used to tell client from server")
	noInspect := pflag.Bool("no-inspect", false, "Track flows without dissecting SSH handshakes")
	reportFormat := pflag.String("report", "", "Session report format written on exit: json, html or none")
	reportDir := pflag.String("report-dir", "", "Directory for the session report")
	useTUI := pflag.Bool("tui", false, "Show the live terminal UI")
	pflag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Flags override the file.
	switch {
	case *interfaceName != "" && *pcapFile != "":
		fmt.Fprintln(os.Stderr, "-i and -r are mutually exclusive")
		os.Exit(2)
	case *interfaceName != "":
		cfg.UseInterface(*interfaceName)
	case *pcapFile != "":
		cfg.UsePcapFile(*pcapFile)
	}
	if *source != "" {
		cfg.Source = *source
	}
	if *filter != "" {
		cfg.BPFFilter = *filter
	}
	if len(*ports) > 0 {
		cfg.ServerPorts = *ports
	}
	if *noInspect {
		cfg.DeepInspection = false
	}
	switch *reportFormat {
	case "":
	case "none":
		cfg.ReportFormat = ""
	default:
		cfg.ReportFormat = *reportFormat
	}
	if *reportDir != "" {
		cfg.ReportDir = *reportDir
	}
	if *useTUI {
		cfg.TUI = true
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, "Example: sshwatch -i eth0   or   sshwatch -r capture.pcap")
		os.Exit(2)
	}

	if err := run(cfg); err != nil {
		slog.Error("sshwatch failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flows := analysis.NewFlowTable(analysis.Config{
		DeepInspection:  cfg.DeepInspection,
		AlertCooldown:   cfg.AlertCooldown,
		CleanupInterval: cfg.FlushInterval,
		DataRetention:   cfg.DataRetention,
		MaxAlerts:       analysis.DefaultConfig().MaxAlerts,
		MaxRetiredFlows: analysis.DefaultConfig().MaxRetiredFlows,
	})

	// Create channel for chunks
	chunkChan := make(chan models.FlowChunk, 1000)

	g, gctx := errgroup.WithContext(ctx)

	// Capture
	if cfg.Source == "tshark" {
		err := tshark.StartCapture(gctx, tshark.Options{
			Interface:     cfg.Interface,
			File:          cfg.PcapFile,
			CaptureFilter: cfg.BPFFilter,
			ServerPorts:   cfg.ServerPorts,
		}, chunkChan)
		if err != nil {
			return err
		}
	} else {
		g.Go(func() error {
			defer close(chunkChan)
			err := capture.Run(gctx, &capture.Config{
				Interface:     cfg.Interface,
				File:          cfg.PcapFile,
				BPFFilter:     cfg.BPFFilter,
				SnapLen:       cfg.SnapLen,
				Promisc:       &cfg.Promisc,
				ServerPorts:   cfg.ServerPorts,
				FlushInterval: cfg.FlushInterval,
				IdleTimeout:   cfg.FlowIdleTimeout,
			}, func(c models.FlowChunk) {
				select {
				case chunkChan <- c:
				case <-gctx.Done():
				}
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	// Chunk processor
	g.Go(func() error {
		for c := range chunkChan {
			flows.ProcessChunk(c)
		}
		return nil
	})

	if cfg.TUI {
		g.Go(func() error {
			p := tea.NewProgram(tui.NewFlowModel(flows, describeSource(cfg)), tea.WithAltScreen(), tea.WithContext(gctx))
			_, err := p.Run()
			stop()
			if errors.Is(err, tea.ErrProgramKilled) {
				return nil
			}
			return err
		})
	}

	err := g.Wait()

	if cfg.ReportFormat != "" {
		filename, rerr := reporting.GenerateSessionReport(flows, cfg.ReportFormat, cfg.ReportDir)
		if rerr != nil {
			slog.Error("report failed", "error", rerr)
		} else {
			slog.Info("report written", "file", filename)
		}
	}

	c := flows.GetCounters()
	slog.Infof("inspected %d chunks (%d bytes) across %d flows", c.Chunks, c.Bytes, c.Flows+c.Retired)
	return err
}

func describeSource(cfg config.Config) string {
	if cfg.PcapFile != "" {
		return cfg.PcapFile
	}
	return cfg.Interface
}
