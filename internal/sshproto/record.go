package sshproto

// Role is the peer a record is attributed to.
type Role uint8

const (
	RoleUnknown Role = iota
	RoleClient
	RoleServer
)

func (r Role) String() string {
	switch r {
	case RoleClient:
		return "client"
	case RoleServer:
		return "server"
	default:
		return "unknown"
	}
}

// BannerCap is the capacity of the protocol banner buffer, terminator included.
const BannerCap = 256

// Record accumulates what has been observed on one direction of a flow.
// The zero value is ready to use. A Record must only be updated by one
// goroutine at a time, in the order the bytes were seen.
type Record struct {
	role     Role
	banner   [BannerCap]byte
	kex      KexInit
	kexCount int
}

// Role returns the role assigned to this direction, if any.
func (r *Record) Role() Role {
	return r.role
}

// ProtocolBanner returns the identification string, or "" if none was seen.
func (r *Record) ProtocolBanner() string {
	return cString(r.banner[:])
}

// Cookie returns the KEXINIT cookie, all zero until a KEXINIT is decoded.
func (r *Record) Cookie() [CookieLen]byte {
	return r.kex.Cookie
}

// KexAlgorithms returns the first name-list of the latest KEXINIT.
func (r *Record) KexAlgorithms() string {
	return r.kex.KexAlgorithms()
}

// KexInitCount is the number of KEXINIT messages decoded so far.
func (r *Record) KexInitCount() int {
	return r.kexCount
}

// HasKexInit reports whether a KEXINIT has been decoded.
func (r *Record) HasKexInit() bool {
	return r.kexCount > 0
}

// Observation is a read-only copy of a Record.
type Observation struct {
	Role           Role
	ProtocolBanner string
	Cookie         [CookieLen]byte
	KexAlgorithms  string
	KexInitCount   int
}

// Observation snapshots the record.
func (r *Record) Observation() Observation {
	return Observation{
		Role:           r.role,
		ProtocolBanner: r.ProtocolBanner(),
		Cookie:         r.kex.Cookie,
		KexAlgorithms:  r.kex.KexAlgorithms(),
		KexInitCount:   r.kexCount,
	}
}

// HasCookie reports whether any cookie byte is set.
func (o Observation) HasCookie() bool {
	return o.Cookie != [CookieLen]byte{}
}
