package capture

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"sshwatch/internal/models"
)

var (
	clientMAC = net.HardwareAddr{0x02, 0, 0, 0, 0, 0x01}
	serverMAC = net.HardwareAddr{0x02, 0, 0, 0, 0, 0x02}
	t0        = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
)

type segment struct {
	fromClient bool
	seq        uint32
	syn        bool
	fin        bool
	payload    string
}

// serialize builds an Ethernet/IPv4/TCP frame between 10.0.0.2:40000 and 10.0.0.1:22.
func serialize(t *testing.T, s segment) []byte {
	t.Helper()

	eth := layers.Ethernet{SrcMAC: clientMAC, DstMAC: serverMAC, EthernetType: layers.EthernetTypeIPv4}
	ip := layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.IP{10, 0, 0, 2},
		DstIP:    net.IP{10, 0, 0, 1},
	}
	tcp := layers.TCP{SrcPort: 40000, DstPort: 22, Seq: s.seq, SYN: s.syn, FIN: s.fin, ACK: !s.syn, Window: 65535}
	if !s.fromClient {
		eth.SrcMAC, eth.DstMAC = serverMAC, clientMAC
		ip.SrcIP, ip.DstIP = ip.DstIP, ip.SrcIP
		tcp.SrcPort, tcp.DstPort = tcp.DstPort, tcp.SrcPort
	}
	if err := tcp.SetNetworkLayerForChecksum(&ip); err != nil {
		t.Fatal(err)
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, &eth, &ip, &tcp, gopacket.Payload([]byte(s.payload))); err != nil {
		t.Fatalf("serialize: %v", err)
	}
	return buf.Bytes()
}

var handshake = []segment{
	{fromClient: true, seq: 1000, syn: true},
	{fromClient: false, seq: 5000, syn: true},
	{fromClient: false, seq: 5001, payload: "SSH-2.0-OpenSSH_9.6\r\n"},
	{fromClient: true, seq: 1001, payload: "SSH-2.0-Go\r\n"},
	{fromClient: true, seq: 1013, payload: "\x00\x00\x00\x0c\x0a\x15"},
}

func wantChunks() []models.FlowChunk {
	up := models.FlowChunk{SrcIP: "10.0.0.2", SrcPort: 40000, DstIP: "10.0.0.1", DstPort: 22, Direction: models.ToServer}
	down := models.FlowChunk{SrcIP: "10.0.0.1", SrcPort: 22, DstIP: "10.0.0.2", DstPort: 40000, Direction: models.ToClient}

	c1 := down
	c1.Payload = []byte("SSH-2.0-OpenSSH_9.6\r\n")
	c2 := up
	c2.Payload = []byte("SSH-2.0-Go\r\n")
	c3 := up
	c3.Payload = []byte("\x00\x00\x00\x0c\x0a\x15")
	return []models.FlowChunk{c1, c2, c3}
}

// splitEnds separates end-of-stream markers from data chunks.
func splitEnds(chunks []models.FlowChunk) (data, ends []models.FlowChunk) {
	for _, c := range chunks {
		if c.End {
			ends = append(ends, c)
		} else {
			data = append(data, c)
		}
	}
	return data, ends
}

var ignoreTimestamp = cmp.Transformer("zeroTime", func(c models.FlowChunk) models.FlowChunk {
	c.Timestamp = time.Time{}
	return c
})

func TestAssemblerEmitsOrderedChunks(t *testing.T) {
	var got []models.FlowChunk
	a := newAssembler([]int{22}, func(c models.FlowChunk) { got = append(got, c) })

	for i, s := range handshake {
		pkt := gopacket.NewPacket(serialize(t, s), layers.LayerTypeEthernet, gopacket.Default)
		pkt.Metadata().Timestamp = t0.Add(time.Duration(i) * time.Millisecond)
		a.assemble(pkt)
	}

	if diff := cmp.Diff(wantChunks(), got, ignoreTimestamp); diff != "" {
		t.Errorf("chunks mismatch (-want +got):\n%s", diff)
	}
	if len(got) > 0 && !got[0].Timestamp.Equal(t0.Add(2*time.Millisecond)) {
		t.Errorf("first chunk timestamp = %v", got[0].Timestamp)
	}
}

func TestAssemblerIgnoresOtherPorts(t *testing.T) {
	var got []models.FlowChunk
	a := newAssembler([]int{2222}, func(c models.FlowChunk) { got = append(got, c) })

	for _, s := range handshake {
		a.assemble(gopacket.NewPacket(serialize(t, s), layers.LayerTypeEthernet, gopacket.Default))
	}
	if len(got) != 0 {
		t.Errorf("got %d chunks for a non-server port", len(got))
	}
}

func TestRunReplaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ssh.pcap")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		t.Fatal(err)
	}
	for i, s := range handshake {
		data := serialize(t, s)
		ci := gopacket.CaptureInfo{
			Timestamp:     t0.Add(time.Duration(i) * time.Millisecond),
			CaptureLength: len(data),
			Length:        len(data),
		}
		if err := w.WritePacket(ci, data); err != nil {
			t.Fatal(err)
		}
	}
	f.Close()

	var got []models.FlowChunk
	err = Run(context.Background(), &Config{File: path}, func(c models.FlowChunk) { got = append(got, c) })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	data, ends := splitEnds(got)
	if diff := cmp.Diff(wantChunks(), data, ignoreTimestamp); diff != "" {
		t.Errorf("chunks mismatch (-want +got):\n%s", diff)
	}
	// The final flush closes both directions.
	if len(ends) != 2 {
		t.Fatalf("got %d end chunks, want 2", len(ends))
	}
	for _, e := range ends {
		if len(e.Payload) != 0 || e.Key() != wantChunks()[0].Key() {
			t.Errorf("unexpected end chunk %+v", e)
		}
	}
}

func TestAssemblerEndsStreamOnFIN(t *testing.T) {
	var got []models.FlowChunk
	a := newAssembler([]int{22}, func(c models.FlowChunk) { got = append(got, c) })

	segments := append(append([]segment(nil), handshake...), segment{fromClient: true, seq: 1019, fin: true})
	for i, s := range segments {
		pkt := gopacket.NewPacket(serialize(t, s), layers.LayerTypeEthernet, gopacket.Default)
		pkt.Metadata().Timestamp = t0.Add(time.Duration(i) * time.Millisecond)
		a.assemble(pkt)
	}

	data, ends := splitEnds(got)
	if diff := cmp.Diff(wantChunks(), data, ignoreTimestamp); diff != "" {
		t.Errorf("chunks mismatch (-want +got):\n%s", diff)
	}
	if len(ends) != 1 {
		t.Fatalf("got %d end chunks, want 1", len(ends))
	}
	if ends[0].Direction != models.ToServer {
		t.Errorf("end chunk direction = %v, want %v", ends[0].Direction, models.ToServer)
	}
	// Stamped with the last data the direction carried.
	if !ends[0].Timestamp.Equal(t0.Add(4 * time.Millisecond)) {
		t.Errorf("end chunk timestamp = %v", ends[0].Timestamp)
	}
}

func TestRunMissingFile(t *testing.T) {
	err := Run(context.Background(), &Config{File: filepath.Join(t.TempDir(), "nope.pcap")}, func(models.FlowChunk) {})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := applyDefaults(nil)
	if cfg.BPFFilter != "tcp port 22" || cfg.SnapLen != 65536 || !*cfg.Promisc {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if diff := cmp.Diff([]int{22}, cfg.ServerPorts); diff != "" {
		t.Errorf("server ports (-want +got):\n%s", diff)
	}

	off := false
	cfg = applyDefaults(&Config{Promisc: &off, ServerPorts: []int{2222}})
	if *cfg.Promisc || cfg.ServerPorts[0] != 2222 {
		t.Errorf("explicit values overridden: %+v", cfg)
	}
}
