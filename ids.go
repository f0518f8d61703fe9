package ospf2

import (
	"encoding/binary"
	"fmt"
	"net"
)

// An ID is a four byte identifier used for OSPFv2 Router IDs, Area IDs, and
// Link State IDs. It is conventionally rendered as a dotted-decimal IPv4
// address, but is treated as an opaque 32-bit value by the protocol.
type ID [4]byte

// String returns the dotted-decimal representation of an ID.
func (id ID) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", id[0], id[1], id[2], id[3])
}

// Uint32 returns id as a big-endian unsigned integer, the form used for
// numeric comparisons such as Router ID tie-breaking during DR/BDR election
// and DD master/slave negotiation.
func (id ID) Uint32() uint32 {
	return binary.BigEndian.Uint32(id[:])
}

// IDFromUint32 builds an ID from a big-endian unsigned integer.
func IDFromUint32(v uint32) ID {
	var id ID
	binary.BigEndian.PutUint32(id[:], v)
	return id
}

// IDFromIP builds an ID from the 4-byte representation of an IPv4 address.
// It panics if ip is not a valid IPv4 address, matching the fixed-size copy
// idiom used elsewhere in this package.
func IDFromIP(ip net.IP) ID {
	v4 := ip.To4()
	if v4 == nil {
		panic(fmt.Sprintf("ospf2: %v is not an IPv4 address", ip))
	}

	var id ID
	copy(id[:], v4)
	return id
}

// IP returns id reinterpreted as a net.IP.
func (id ID) IP() net.IP {
	return net.IPv4(id[0], id[1], id[2], id[3])
}

// Less reports whether id sorts before other when compared as unsigned
// 32-bit integers. Used for Router ID tie-breaks (higher ID wins ties in
// DR/BDR election and DD master selection, so callers typically negate
// this or compare Uint32 directly).
func (id ID) Less(other ID) bool {
	return id.Uint32() < other.Uint32()
}
