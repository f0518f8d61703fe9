package ospf2

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// version is the OSPF version implemented by this package (OSPFv2).
	version = 2

	// headerLen is the fixed length of the OSPF common header, per RFC 2328
	// appendix A.3.1.
	headerLen = 24
)

// Sentinel errors used to differentiate various types of errors in tests and
// by callers that need to distinguish malformed input from other failures.
var (
	errMarshal = errors.New("ospf2: failed to marshal bytes")
	errParse   = errors.New("ospf2: failed to parse bytes")
)

// A packetType is the type of an OSPFv2 packet, per RFC 2328 appendix A.3.1.
type packetType uint8

// Possible OSPFv2 packet types.
const (
	hello                    packetType = 1
	databaseDescription      packetType = 2
	linkStateRequest         packetType = 3
	linkStateUpdate          packetType = 4
	linkStateAcknowledgement packetType = 5
)

func (t packetType) String() string {
	switch t {
	case hello:
		return "Hello"
	case databaseDescription:
		return "DatabaseDescription"
	case linkStateRequest:
		return "LinkStateRequest"
	case linkStateUpdate:
		return "LinkStateUpdate"
	case linkStateAcknowledgement:
		return "LinkStateAcknowledgement"
	default:
		return fmt.Sprintf("packetType(%d)", uint8(t))
	}
}

// AuthType identifies the OSPF authentication scheme in use. This
// implementation only ever sets AuthNone; other values may be parsed but
// the Authentication payload is otherwise ignored, per spec Non-goals
// ("authentication beyond null/ignored").
type AuthType uint16

// Possible AuthType values.
const (
	AuthNone   AuthType = 0
	AuthSimple AuthType = 1
	AuthCrypto AuthType = 2
)

// A Header is the OSPFv2 packet header as described in RFC 2328 appendix
// A.3.1. It precedes every Message. Version, packet type, and packet length
// are computed automatically by MarshalMessage; callers only need to set
// the fields below.
type Header struct {
	RouterID ID
	AreaID   ID
	AuType   AuthType
	Auth     [8]byte
}

// marshal packs a Header's bytes into b, and sets the packet type and
// length fields. It assumes b has enough space for a Header to avoid a
// panic. The Checksum field is left zero; MarshalMessage fills it in once
// the whole packet has been serialized.
func (h *Header) marshal(b []byte, ptyp packetType, plen uint16) {
	b[0] = version
	b[1] = byte(ptyp)
	binary.BigEndian.PutUint16(b[2:4], plen)
	copy(b[4:8], h.RouterID[:])
	copy(b[8:12], h.AreaID[:])
	// b[12:14] Checksum, filled in by MarshalMessage.
	binary.BigEndian.PutUint16(b[14:16], uint16(h.AuType))
	copy(b[16:24], h.Auth[:])
}

// parseHeader parses an OSPFv2 Header and the offset of the end of the
// packet from bytes.
func parseHeader(b []byte) (Header, packetType, int, uint16, error) {
	if l := len(b); l < headerLen {
		return Header{}, 0, 0, 0, fmt.Errorf("not enough bytes for OSPFv2 header: %d: %w", l, errParse)
	}

	if v := b[0]; v != version {
		return Header{}, 0, 0, 0, fmt.Errorf("unrecognized OSPF version: %d: %w", v, errParse)
	}

	h := Header{
		AuType: AuthType(binary.BigEndian.Uint16(b[14:16])),
	}
	copy(h.RouterID[:], b[4:8])
	copy(h.AreaID[:], b[8:12])
	copy(h.Auth[:], b[16:24])

	checksum := binary.BigEndian.Uint16(b[12:14])

	plen := int(binary.BigEndian.Uint16(b[2:4]))
	if plen < headerLen {
		return Header{}, 0, 0, 0, fmt.Errorf("header packet length %d is too short for a valid packet: %w", plen, errParse)
	}
	if l := len(b); l < plen {
		return Header{}, 0, 0, 0, fmt.Errorf("header packet length is %d bytes but only %d bytes are available: %w",
			plen, l, errParse)
	}

	return h, packetType(b[1]), plen, checksum, nil
}

// VerifyChecksum reports whether b, a complete OSPFv2 packet, has a valid
// header checksum. It follows RFC 2328 appendix D: the IP-style
// one's-complement sum over the whole packet with the Checksum and
// Authentication fields treated as zero.
func VerifyChecksum(b []byte) bool {
	if len(b) < headerLen {
		return false
	}

	got := binary.BigEndian.Uint16(b[12:14])
	return got == computeHeaderChecksum(b)
}

// computeHeaderChecksum computes the RFC 2328 appendix D header checksum
// over b (a complete packet), treating the Checksum and Authentication
// fields as zero, without mutating b.
func computeHeaderChecksum(b []byte) uint16 {
	tmp := make([]byte, len(b))
	copy(tmp, b)
	tmp[12], tmp[13] = 0, 0
	for i := 16; i < 24 && i < len(tmp); i++ {
		tmp[i] = 0
	}

	return ipChecksum(tmp)
}
