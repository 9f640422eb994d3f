package capture

import (
	"context"
	"os"
	"time"

	"github.com/darkit/slog"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"github.com/google/gopacket/pcapgo"
	"github.com/google/gopacket/tcpassembly"
	"github.com/pkg/errors"

	"sshwatch/internal/models"
)

// Config controls where packets come from and how streams are reassembled.
type Config struct {
	// Interface to capture from live. Mutually exclusive with File.
	Interface string
	// File is a pcap file to replay.
	File string
	// BPFFilter applies to live captures only. Defaults to "tcp port 22".
	BPFFilter string
	// SnapLen defaults to 65536 if unset or <= 0.
	SnapLen int
	// Promisc controls whether we open the interface in promiscuous mode.
	// Defaults to true if unset.
	Promisc *bool
	// ServerPorts decide stream direction. Defaults to [22].
	ServerPorts []int
	// FlushInterval is how often idle streams are flushed. Defaults to 10s.
	FlushInterval time.Duration
	// IdleTimeout is how long a stream may wait on a gap. Defaults to 2m.
	IdleTimeout time.Duration
}

func applyDefaults(cfg *Config) Config {
	var out Config
	if cfg != nil {
		out = *cfg
	}

	if out.BPFFilter == "" {
		out.BPFFilter = "tcp port 22"
	}
	if out.SnapLen <= 0 {
		out.SnapLen = 65536
	}
	if out.Promisc == nil {
		out.Promisc = ptrBool(true)
	}
	if len(out.ServerPorts) == 0 {
		out.ServerPorts = []int{22}
	}
	if out.FlushInterval <= 0 {
		out.FlushInterval = 10 * time.Second
	}
	if out.IdleTimeout <= 0 {
		out.IdleTimeout = 2 * time.Minute
	}
	return out
}

func ptrBool(v bool) *bool {
	return &v
}

// Sink receives reassembled chunks in stream order. Payloads are owned by
// the receiver.
type Sink func(models.FlowChunk)

type packetSource interface {
	gopacket.PacketDataSource
	LinkType() layers.LinkType
}

// Run reads packets until the source is exhausted or ctx is cancelled,
// reassembles TCP streams and hands every non-empty chunk to sink.
func Run(ctx context.Context, cfg *Config, sink Sink) error {
	config := applyDefaults(cfg)

	src, closeFn, err := open(config)
	if err != nil {
		return err
	}
	defer closeFn()

	slog.Info("capture started", "interface", config.Interface, "file", config.File, "filter", config.BPFFilter)

	assembler := newAssembler(config.ServerPorts, sink)
	packets := gopacket.NewPacketSource(src, src.LinkType()).Packets()

	ticker := time.NewTicker(config.FlushInterval)
	defer ticker.Stop()

	var lastSeen time.Time
	for {
		select {
		case <-ctx.Done():
			assembler.FlushAll()
			return ctx.Err()
		case packet, ok := <-packets:
			if !ok {
				closed := assembler.FlushAll()
				slog.Info("capture finished", "streams_closed", closed)
				return nil
			}
			lastSeen = packet.Metadata().Timestamp
			assembler.assemble(packet)
		case <-ticker.C:
			// Packet time rather than wall time, so replayed files age correctly.
			if !lastSeen.IsZero() {
				assembler.FlushOlderThan(lastSeen.Add(-config.IdleTimeout))
			}
		}
	}
}

func open(config Config) (packetSource, func(), error) {
	if config.File != "" {
		f, err := os.Open(config.File)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "open pcap file %s", config.File)
		}
		r, err := pcapgo.NewReader(f)
		if err != nil {
			f.Close()
			return nil, nil, errors.Wrapf(err, "read pcap header %s", config.File)
		}
		return r, func() { f.Close() }, nil
	}

	if config.Interface == "" {
		return nil, nil, errors.New("no interface or file to capture from")
	}

	handle, err := pcap.OpenLive(config.Interface, int32(config.SnapLen), *config.Promisc, pcap.BlockForever)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open interface %s", config.Interface)
	}
	if err := handle.SetBPFFilter(config.BPFFilter); err != nil {
		handle.Close()
		return nil, nil, errors.Wrapf(err, "set BPF filter %q", config.BPFFilter)
	}
	return handle, handle.Close, nil
}

// assembler wraps a tcpassembly.Assembler and drops traffic that does not
// touch a server port.
type assembler struct {
	*tcpassembly.Assembler
	factory *streamFactory
}

func newAssembler(serverPorts []int, sink Sink) *assembler {
	factory := newStreamFactory(serverPorts, sink)
	pool := tcpassembly.NewStreamPool(factory)
	return &assembler{
		Assembler: tcpassembly.NewAssembler(pool),
		factory:   factory,
	}
}

func (a *assembler) assemble(packet gopacket.Packet) {
	network := packet.NetworkLayer()
	if network == nil {
		return
	}
	tcp, ok := packet.TransportLayer().(*layers.TCP)
	if !ok {
		return
	}
	if !a.factory.isServerPort(int(tcp.SrcPort)) && !a.factory.isServerPort(int(tcp.DstPort)) {
		return
	}
	a.AssembleWithTimestamp(network.NetworkFlow(), tcp, packet.Metadata().Timestamp)
}
