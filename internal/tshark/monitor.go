package tshark

import (
	"bufio"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/darkit/slog"
	"github.com/pkg/errors"

	"sshwatch/internal/models"
)

const displayFilter = "tcp.payload && !tcp.analysis.retransmission && !tcp.analysis.out_of_order"

// Options selects what tshark reads.
type Options struct {
	Interface     string
	File          string
	CaptureFilter string
	ServerPorts   []int
}

// StartCapture begins the tshark process and streams payload chunks to the
// out channel. The channel is closed when tshark exits.
func StartCapture(ctx context.Context, opts Options, out chan<- models.FlowChunk) error {
	// Construct the tshark command
	// -l: flush stdout after each packet
	// -n: disable name resolution
	// -T ek: output in Elasticsearch JSON format
	// -Y ...: only segments that carry data and are neither retransmitted nor out of order
	// -e ...: fields to extract
	args := []string{
		"-l", "-n", "-T", "ek",
		"-Y", displayFilter,
		"-e", "ip.src", "-e", "ip.dst",
		"-e", "ipv6.src", "-e", "ipv6.dst",
		"-e", "tcp.srcport", "-e", "tcp.dstport",
		"-e", "tcp.stream", "-e", "tcp.seq",
		"-e", "tcp.payload",
	}

	switch {
	case opts.File != "":
		args = append([]string{"-r", opts.File}, args...)
	case opts.Interface != "":
		args = append([]string{"-i", opts.Interface}, args...)
	default:
		return errors.New("no interface or file for tshark")
	}

	if opts.CaptureFilter != "" && opts.File == "" {
		args = append(args, "-f", opts.CaptureFilter)
	}

	cmd := exec.CommandContext(ctx, "tshark", args...)

	cmd.Stderr = os.Stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Wrap(err, "failed to get stdout pipe")
	}

	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "failed to start tshark")
	}

	go func() {
		defer close(out)

		// Wait for command to finish (which happens when context is canceled)
		defer func() {
			if err := cmd.Wait(); err != nil && ctx.Err() == nil {
				slog.Error("tshark exited", "error", err)
			}
		}()

		readChunks(stdout, opts.ServerPorts, out)
	}()

	return nil
}

func readChunks(r io.Reader, serverPorts []int, out chan<- models.FlowChunk) {
	scanner := bufio.NewScanner(r)
	// A payload line can carry a full 64k segment in hex.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	seq := newSequencer()

	for scanner.Scan() {
		line := scanner.Text()

		if strings.TrimSpace(line) == "" {
			continue
		}

		// Tshark -T ek outputs an index line before each packet sometimes, or just packet lines.
		// We look for lines containing "layers".
		if !strings.Contains(line, "\"layers\"") {
			continue
		}

		var ekPkt EkPacket
		if err := json.Unmarshal([]byte(line), &ekPkt); err != nil {
			// Skip malformed lines
			continue
		}

		chunk := convertToModel(ekPkt, serverPorts)
		if chunk == nil {
			continue
		}
		if !seq.accept(ekPkt.Layers, chunk) {
			continue
		}
		out <- *chunk
	}
}

func convertToModel(ek EkPacket, serverPorts []int) *models.FlowChunk {
	if len(ek.Layers.TCPPayload) == 0 {
		return nil
	}
	payload, err := decodePayload(ek.Layers.TCPPayload[0])
	if err != nil || len(payload) == 0 {
		return nil
	}

	c := &models.FlowChunk{
		Timestamp: parseTimestamp(ek.Timestamp),
		SrcIP:     first(ek.Layers.IPSrc, ek.Layers.IPv6Src),
		DstIP:     first(ek.Layers.IPDst, ek.Layers.IPv6Dst),
		Payload:   payload,
	}
	// We need at least IP info
	if c.SrcIP == "" || c.DstIP == "" {
		return nil
	}

	if len(ek.Layers.TCPSrcPort) > 0 {
		c.SrcPort, _ = strconv.Atoi(ek.Layers.TCPSrcPort[0])
	}
	if len(ek.Layers.TCPDstPort) > 0 {
		c.DstPort, _ = strconv.Atoi(ek.Layers.TCPDstPort[0])
	}

	for _, p := range serverPorts {
		if c.DstPort == p {
			c.Direction = models.ToServer
			break
		}
		if c.SrcPort == p {
			c.Direction = models.ToClient
		}
	}

	return c
}

func decodePayload(s string) ([]byte, error) {
	return hex.DecodeString(strings.ReplaceAll(s, ":", ""))
}

func first(lists ...[]string) string {
	for _, l := range lists {
		if len(l) > 0 && l[0] != "" {
			return l[0]
		}
	}
	return ""
}

// parseTimestamp reads the ek epoch-milliseconds timestamp, falling back to now.
func parseTimestamp(ts string) time.Time {
	if ms, err := strconv.ParseInt(ts, 10, 64); err == nil {
		return time.UnixMilli(ms)
	}
	return time.Now()
}

// sequencer keeps each direction of a tcp.stream moving forward. tshark
// does not reassemble, so bytes already delivered are cut off and segments
// that jump ahead of what was seen are dropped.
type sequencer struct {
	next map[string]uint64
}

func newSequencer() *sequencer {
	return &sequencer{next: make(map[string]uint64)}
}

// accept reports whether chunk should be delivered, trimming any prefix
// that overlaps bytes already delivered. Segments without stream or
// sequence fields pass through unchanged.
func (s *sequencer) accept(l EkLayers, chunk *models.FlowChunk) bool {
	if len(l.TCPStream) == 0 || len(l.TCPSeq) == 0 {
		return true
	}
	start, err := strconv.ParseUint(l.TCPSeq[0], 10, 64)
	if err != nil {
		return true
	}

	key := fmt.Sprintf("%s/%s:%d", l.TCPStream[0], chunk.SrcIP, chunk.SrcPort)
	end := start + uint64(len(chunk.Payload))

	next, seen := s.next[key]
	if !seen {
		s.next[key] = end
		return true
	}

	switch {
	case end <= next:
		// Duplicate
		return false
	case start > next:
		// Gap: the bytes in between never arrived
		return false
	case start < next:
		chunk.Payload = chunk.Payload[next-start:]
	}
	s.next[key] = end
	return true
}
