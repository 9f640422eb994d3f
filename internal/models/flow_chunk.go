package models

import (
	"fmt"
	"time"
)

// Direction tells which peer sent a chunk, when the capture layer knows it.
type Direction int

const (
	DirectionUnknown Direction = iota
	ToServer
	ToClient
)

func (d Direction) String() string {
	switch d {
	case ToServer:
		return "to_server"
	case ToClient:
		return "to_client"
	default:
		return "unknown"
	}
}

// FlowChunk holds one ordered piece of reassembled payload for a flow.
type FlowChunk struct {
	Timestamp time.Time
	SrcIP     string
	DstIP     string
	SrcPort   int
	DstPort   int
	Direction Direction

	// Payload is owned by the chunk; producers copy out of reused buffers.
	Payload []byte

	// End marks that the sender's side of the stream is finished. An end
	// chunk carries no payload.
	End bool
}

// FlowKey identifies a connection regardless of which side sent a chunk.
type FlowKey struct {
	ClientIP   string
	ClientPort int
	ServerIP   string
	ServerPort int
}

func (k FlowKey) String() string {
	return fmt.Sprintf("%s:%d -> %s:%d", k.ClientIP, k.ClientPort, k.ServerIP, k.ServerPort)
}

// Key returns the connection key for the chunk. Without a known direction
// the endpoint with the lower port is treated as the server.
func (c FlowChunk) Key() FlowKey {
	toServer := FlowKey{ClientIP: c.SrcIP, ClientPort: c.SrcPort, ServerIP: c.DstIP, ServerPort: c.DstPort}
	toClient := FlowKey{ClientIP: c.DstIP, ClientPort: c.DstPort, ServerIP: c.SrcIP, ServerPort: c.SrcPort}

	switch c.Direction {
	case ToServer:
		return toServer
	case ToClient:
		return toClient
	}

	if c.SrcPort < c.DstPort || (c.SrcPort == c.DstPort && c.SrcIP < c.DstIP) {
		return toClient
	}
	return toServer
}

// ResolvedDirection returns Direction, falling back to the same port
// heuristic Key uses when the capture layer did not set one.
func (c FlowChunk) ResolvedDirection() Direction {
	if c.Direction != DirectionUnknown {
		return c.Direction
	}
	k := c.Key()
	if k.ClientIP == c.SrcIP && k.ClientPort == c.SrcPort {
		return ToServer
	}
	return ToClient
}
