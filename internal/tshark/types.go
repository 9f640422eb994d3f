package tshark

// EkPacket represents the top-level structure of a Tshark -T ek output line.
type EkPacket struct {
	Timestamp string   `json:"timestamp"`
	Layers    EkLayers `json:"layers"`
}

// EkLayers holds the specific protocol layers we are interested in.
// When using -e flags with -T ek, tshark flattens the structure and replaces dots with underscores.
type EkLayers struct {
	IPSrc      []string `json:"ip_src,omitempty"`
	IPDst      []string `json:"ip_dst,omitempty"`
	IPv6Src    []string `json:"ipv6_src,omitempty"`
	IPv6Dst    []string `json:"ipv6_dst,omitempty"`
	TCPSrcPort []string `json:"tcp_srcport,omitempty"`
	TCPDstPort []string `json:"tcp_dstport,omitempty"`
	TCPStream  []string `json:"tcp_stream,omitempty"`
	TCPSeq     []string `json:"tcp_seq,omitempty"`

	// Hex-encoded segment payload, with or without ':' separators
	TCPPayload []string `json:"tcp_payload,omitempty"`
}
