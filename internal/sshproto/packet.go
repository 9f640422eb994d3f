package sshproto

import "golang.org/x/crypto/cryptobyte"

const (
	// HeaderLen covers packet_length, padding_length and the message type byte.
	HeaderLen = 4 + 1 + 1

	// MaxPacketLen is a sanity ceiling on the declared packet_length.
	MaxPacketLen = 32768

	// packet_length field plus padding_length field
	packetOverhead = 5
)

// Packet is the decoded fixed header of an SSH binary packet (RFC 4253 §6):
//
//	uint32    packet_length
//	byte      padding_length
//	byte[n1]  payload; n1 = packet_length - padding_length - 1
//	byte[n2]  random padding; n2 = padding_length
//	byte[m]   mac
type Packet struct {
	Length  uint32
	Padding uint8
	Type    MsgType

	// PayloadLen is packet_length - padding_length - 5.
	PayloadLen int
}

// ParsePacket decodes the packet header at the start of data. It reports
// false when data is shorter than HeaderLen, when the declared length exceeds
// MaxPacketLen, or when the padding leaves no payload.
func ParsePacket(data []byte) (Packet, bool) {
	var p Packet

	if len(data) < HeaderLen {
		return p, false
	}

	s := cryptobyte.String(data)
	var msgType uint8
	if !s.ReadUint32(&p.Length) || !s.ReadUint8(&p.Padding) || !s.ReadUint8(&msgType) {
		return p, false
	}
	p.Type = MsgType(msgType)

	if p.Length > MaxPacketLen {
		return p, false
	}

	// No wrap-around: the padding and fixed overhead must leave something.
	if uint32(p.Padding)+packetOverhead >= p.Length {
		return p, false
	}
	p.PayloadLen = int(p.Length - uint32(p.Padding) - packetOverhead)

	return p, true
}

// Payload returns the bytes following the header, clamped to both the
// computed payload length and what data actually holds.
func (p Packet) Payload(data []byte) []byte {
	if len(data) <= HeaderLen {
		return nil
	}
	body := data[HeaderLen:]
	if len(body) > p.PayloadLen {
		body = body[:p.PayloadLen]
	}
	return body
}
