package sshproto

// RolePolicy decides which role a record takes when its banner is captured.
// Content alone does not say which peer sent a banner, so the policy is
// supplied by whoever knows the flow direction.
type RolePolicy uint8

const (
	// AssumeClient attributes the first banner to the client.
	AssumeClient RolePolicy = iota
	// AssumeServer attributes the first banner to the server.
	AssumeServer
)

func (p RolePolicy) role() Role {
	if p == AssumeServer {
		return RoleServer
	}
	return RoleClient
}

// Accumulator applies observed chunks to a Record.
type Accumulator struct {
	Policy RolePolicy
}

// Update feeds one chunk of bytes from a flow into rec. Empty chunks and
// disabled analysis are no-ops. The first chunk seen on a record with no
// banner is taken as the identification string; every chunk is then tried as
// an SSH binary packet, and KEXINIT packets update the cookie and algorithm
// list. Malformed input is dropped silently.
func (a Accumulator) Update(rec *Record, chunk []byte, enabled bool) {
	if len(chunk) == 0 || !enabled {
		return
	}

	if rec.role == RoleUnknown && rec.banner[0] == 0 {
		CopyPrintable(rec.banner[:], chunk)
		rec.role = a.Policy.role()
	}

	pkt, ok := ParsePacket(chunk)
	if !ok {
		return
	}

	switch pkt.Type {
	case MsgKexInit:
		var k KexInit
		if DecodeKexInit(pkt.Payload(chunk), &k) {
			rec.kex = k
			rec.kexCount++
		}
	default:
		// not inspected
	}
}

// Update applies chunk to rec with the AssumeClient policy.
func Update(rec *Record, chunk []byte, enabled bool) {
	Accumulator{Policy: AssumeClient}.Update(rec, chunk, enabled)
}
