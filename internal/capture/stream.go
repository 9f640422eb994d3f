package capture

import (
	"encoding/binary"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/tcpassembly"

	"sshwatch/internal/models"
)

type streamFactory struct {
	serverPorts map[int]bool
	sink        Sink
}

func newStreamFactory(ports []int, sink Sink) *streamFactory {
	f := &streamFactory{serverPorts: make(map[int]bool, len(ports)), sink: sink}
	for _, p := range ports {
		f.serverPorts[p] = true
	}
	return f
}

func (f *streamFactory) isServerPort(port int) bool {
	return f.serverPorts[port]
}

// New is called by the stream pool for each direction of a connection.
func (f *streamFactory) New(netFlow, tcpFlow gopacket.Flow) tcpassembly.Stream {
	srcIP, dstIP := netFlow.Endpoints()
	srcPort, dstPort := tcpFlow.Endpoints()

	tmpl := models.FlowChunk{
		SrcIP:   srcIP.String(),
		DstIP:   dstIP.String(),
		SrcPort: portOf(srcPort),
		DstPort: portOf(dstPort),
	}
	switch {
	case f.isServerPort(tmpl.DstPort):
		tmpl.Direction = models.ToServer
	case f.isServerPort(tmpl.SrcPort):
		tmpl.Direction = models.ToClient
	}

	return &chunkStream{template: tmpl, sink: f.sink}
}

func portOf(e gopacket.Endpoint) int {
	raw := e.Raw()
	if len(raw) != 2 {
		return 0
	}
	return int(binary.BigEndian.Uint16(raw))
}

// chunkStream emits one chunk per reassembled segment and an end chunk
// once the assembler is done with the direction.
type chunkStream struct {
	template models.FlowChunk
	sink     Sink
	lastSeen time.Time
}

func (s *chunkStream) Reassembled(reassemblies []tcpassembly.Reassembly) {
	for _, r := range reassemblies {
		if len(r.Bytes) == 0 {
			continue
		}
		chunk := s.template
		chunk.Timestamp = r.Seen
		s.lastSeen = r.Seen
		// The assembler reuses its pages once we return.
		chunk.Payload = append([]byte(nil), r.Bytes...)
		s.sink(chunk)
	}
}

// ReassemblyComplete fires on FIN, RST, idle flush or final flush.
func (s *chunkStream) ReassemblyComplete() {
	chunk := s.template
	chunk.Timestamp = s.lastSeen
	chunk.End = true
	s.sink(chunk)
}
