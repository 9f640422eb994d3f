package sshproto

import "golang.org/x/crypto/cryptobyte"

const (
	CookieLen        = 16
	AlgorithmListCap = 1024
)

// KexInit holds the parts of an SSH_MSG_KEXINIT payload that are kept for
// reporting (RFC 4253 §7.1):
//
//	byte         SSH_MSG_KEXINIT
//	byte[16]     cookie (random bytes)
//	name-list    kex_algorithms
//	name-list    server_host_key_algorithms
//	...
//	boolean      first_kex_packet_follows
//	uint32       0 (reserved for future extension)
//
// Only the cookie and the first name-list are decoded.
type KexInit struct {
	Cookie [CookieLen]byte

	algorithms [AlgorithmListCap]byte
}

// KexAlgorithms returns the printable prefix of the first name-list.
func (k *KexInit) KexAlgorithms() string {
	return cString(k.algorithms[:])
}

// DecodeKexInit decodes payload, which starts right after the message type
// byte. It reports false, leaving k untouched, when the cookie or the
// name-list length is missing or the name-list is declared empty.
func DecodeKexInit(payload []byte, k *KexInit) bool {
	var (
		cookie []byte
		n      uint32
	)

	s := cryptobyte.String(payload)
	if !s.ReadBytes(&cookie, CookieLen) {
		return false
	}
	if !s.ReadUint32(&n) || n == 0 {
		return false
	}

	list := []byte(s)
	if uint64(len(list)) > uint64(n) {
		list = list[:n]
	}

	copy(k.Cookie[:], cookie)
	CopyPrintable(k.algorithms[:], list)

	return true
}
