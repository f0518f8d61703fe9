package ospf2

import (
	"encoding/binary"
	"fmt"
	"time"
)

// An LSType is the type of an OSPFv2 Link State Advertisement, per RFC 2328
// section 12.1.
type LSType uint8

// Possible LSType values. This package fully implements RouterLSA and
// NetworkLSA; the remaining three are accepted on the wire (so that
// round-tripping a DD/LSU from a router that originates them doesn't fail)
// but carry an opaque body, per spec's scoping of Summary/ASBR-Summary/
// AS-External LSAs as optional extension points.
const (
	RouterLSAType      LSType = 1
	NetworkLSAType     LSType = 2
	SummaryLSAType     LSType = 3
	ASBRSummaryLSAType LSType = 4
	ASExternalLSAType  LSType = 5
)

func (t LSType) String() string {
	switch t {
	case RouterLSAType:
		return "Router"
	case NetworkLSAType:
		return "Network"
	case SummaryLSAType:
		return "Summary"
	case ASBRSummaryLSAType:
		return "ASBRSummary"
	case ASExternalLSAType:
		return "ASExternal"
	default:
		return fmt.Sprintf("LSType(%d)", uint8(t))
	}
}

// MaxAge is the age, in seconds, at which an LSA is considered to have
// expired and eligible for flushing from the LSDB. RFC 2328 section 13.
const MaxAge = 3600 * time.Second

// MaxAgeDiff is the minimum age difference, per RFC 2328 section 13.1, above
// which two LSAs with identical sequence number and checksum are no longer
// considered equally fresh; the one with the smaller age is newer.
const MaxAgeDiff = 900 * time.Second

// InitialSequenceNumber is the first sequence number an originating router
// assigns to one of its own LSAs, per RFC 2328 section 12.1.6.
const InitialSequenceNumber uint32 = 0x80000001

// A Key uniquely identifies an LSA within the LSDB: the triple (type,
// link-state-id, advertising-router) per RFC 2328 section 12.1.4.
type Key struct {
	Type              LSType
	LinkStateID       ID
	AdvertisingRouter ID
}

func (k Key) String() string {
	return fmt.Sprintf("%s{id=%s adv=%s}", k.Type, k.LinkStateID, k.AdvertisingRouter)
}

func (k Key) marshal(b []byte) {
	b[0] = byte(k.Type)
	// b[1:4] reserved, matches the 4-byte-aligned LSRequest/LSA encodings
	// used elsewhere in this package.
	copy(b[4:8], k.LinkStateID[:])
	copy(b[8:12], k.AdvertisingRouter[:])
}

func parseKey(b []byte) Key {
	return Key{
		Type:              LSType(b[0]),
		LinkStateID:       idFrom(b[4:8]),
		AdvertisingRouter: idFrom(b[8:12]),
	}
}

func idFrom(b []byte) ID {
	var id ID
	copy(id[:], b)
	return id
}

// An LSAHeader is the fixed 20-byte header that precedes every LSA body, per
// RFC 2328 appendix A.4.1.
type LSAHeader struct {
	Age            time.Duration
	Options        Options
	Key            Key
	SequenceNumber uint32
	Checksum       uint16
	Length         uint16
}

const lsaHeaderLen = 20

// marshal stores the LSAHeader bytes into b. It assumes b has enough space
// for an LSAHeader (lsaHeaderLen bytes) to avoid a panic.
func (h LSAHeader) marshal(b []byte) {
	putUint16Seconds(b[0:2], h.Age)
	b[2] = byte(h.Options)
	b[3] = byte(h.Key.Type)
	copy(b[4:8], h.Key.LinkStateID[:])
	copy(b[8:12], h.Key.AdvertisingRouter[:])
	binary.BigEndian.PutUint32(b[12:16], h.SequenceNumber)
	binary.BigEndian.PutUint16(b[16:18], h.Checksum)
	binary.BigEndian.PutUint16(b[18:20], h.Length)
}

func parseLSAHeader(b []byte) LSAHeader {
	return LSAHeader{
		Age:     uint16Seconds(b[0:2]),
		Options: Options(b[2]),
		Key: Key{
			Type:              LSType(b[3]),
			LinkStateID:       idFrom(b[4:8]),
			AdvertisingRouter: idFrom(b[8:12]),
		},
		SequenceNumber: binary.BigEndian.Uint32(b[12:16]),
		Checksum:       binary.BigEndian.Uint16(b[16:18]),
		Length:         binary.BigEndian.Uint16(b[18:20]),
	}
}

// Fresher reports whether h is a strictly newer instance of the same LSA
// than other, per RFC 2328 section 13.1: higher sequence number wins; if
// equal, higher checksum wins; if both equal, an LSA at MaxAge is newer than
// one that is not; if both equal and neither is at MaxAge, the one further
// from MaxAgeDiff apart with the smaller age is newer, and LSAs within
// MaxAgeDiff of one another are considered equally fresh.
func (h LSAHeader) Fresher(other LSAHeader) bool {
	if h.SequenceNumber != other.SequenceNumber {
		return h.SequenceNumber > other.SequenceNumber
	}
	if h.Checksum != other.Checksum {
		return h.Checksum > other.Checksum
	}

	hMax := h.Age >= MaxAge
	oMax := other.Age >= MaxAge
	if hMax != oMax {
		return hMax
	}

	diff := h.Age - other.Age
	if diff < 0 {
		diff = -diff
	}
	if diff <= MaxAgeDiff {
		return false
	}

	return h.Age < other.Age
}

// An LSA is a complete Link State Advertisement: a header plus a
// type-specific body. Body is a tagged sum type over *RouterLSABody,
// *NetworkLSABody, and *OpaqueLSABody (for the Summary/ASBR-Summary/
// AS-External extension points); callers switch on the dynamic type of
// Body.
type LSA struct {
	Header LSAHeader
	Body   LSABody
}

// LSABody is implemented by RouterLSABody, NetworkLSABody, and
// OpaqueLSABody.
type LSABody interface {
	len() int
	marshal(b []byte) error
	unmarshal(b []byte) error
}

// Encode serializes lsa to wire bytes, recomputing Length and Checksum
// fields in the returned copy's header (Age and SequenceNumber are taken
// as-is from lsa.Header). The LSA's own Header.Length/Checksum fields are
// not mutated in place.
func Encode(lsa LSA) ([]byte, error) {
	bodyLen := lsa.Body.len()
	total := lsaHeaderLen + bodyLen

	h := lsa.Header
	h.Length = uint16(total)

	b := make([]byte, total)
	h.marshal(b[:lsaHeaderLen])
	if err := lsa.Body.marshal(b[lsaHeaderLen:]); err != nil {
		return nil, fmt.Errorf("ospf2: failed to marshal LSA body: %w", err)
	}

	// Fletcher-16 checksum over everything from Options onward (i.e.
	// skipping the 2-byte Age field), with the Checksum field itself
	// zeroed during computation; it lives at offset 14 within that
	// sub-slice (16 from the start of b, minus the 2-byte Age skip).
	b[16], b[17] = 0, 0
	checksum := fletcher16(b[2:], 14)
	binary.BigEndian.PutUint16(b[16:18], checksum)

	return b, nil
}

// Decode parses a complete LSA (header and body) from b.
func Decode(b []byte) (LSA, error) {
	if len(b) < lsaHeaderLen {
		return LSA{}, fmt.Errorf("not enough bytes for LSA header: %d: %w", len(b), errParse)
	}

	h := parseLSAHeader(b)
	if int(h.Length) > len(b) {
		return LSA{}, fmt.Errorf("LSA length %d exceeds available %d bytes: %w", h.Length, len(b), errParse)
	}

	body, err := newLSABody(h.Key.Type)
	if err != nil {
		return LSA{}, err
	}

	if err := body.unmarshal(b[lsaHeaderLen:h.Length]); err != nil {
		return LSA{}, fmt.Errorf("ospf2: failed to parse %s LSA body: %w", h.Key.Type, err)
	}

	return LSA{Header: h, Body: body}, nil
}

func newLSABody(t LSType) (LSABody, error) {
	switch t {
	case RouterLSAType:
		return &RouterLSABody{}, nil
	case NetworkLSAType:
		return &NetworkLSABody{}, nil
	case SummaryLSAType, ASBRSummaryLSAType, ASExternalLSAType:
		return &OpaqueLSABody{Type: t}, nil
	default:
		return nil, fmt.Errorf("ospf2: unrecognized LSA type %d: %w", uint8(t), errParse)
	}
}

// RouterLSAFlags are the V/E/B flag bits carried in a Router-LSA, per RFC
// 2328 appendix A.4.2.
type RouterLSAFlags uint8

// Possible RouterLSAFlags bits.
const (
	VBit RouterLSAFlags = 1 << 2 // Virtual link endpoint.
	EBit RouterLSAFlags = 1 << 1 // AS boundary router.
	BBit RouterLSAFlags = 1 << 0 // Area border router.
)

// A RouterLinkType identifies the kind of a RouterLink, per RFC 2328
// appendix A.4.2.
type RouterLinkType uint8

// Possible RouterLinkType values.
const (
	PointToPointLink RouterLinkType = 1
	TransitLink      RouterLinkType = 2
	StubLink         RouterLinkType = 3
	VirtualLink      RouterLinkType = 4
)

// A RouterLink describes one of this router's connections to the rest of
// the topology, as carried in a Router-LSA.
type RouterLink struct {
	LinkID   ID
	LinkData ID
	Type     RouterLinkType
	Metric   uint16
}

const routerLinkLen = 12

// RouterLSABody is the body of a Type-1 (Router) LSA.
type RouterLSABody struct {
	Flags RouterLSAFlags
	Links []RouterLink
}

func (r *RouterLSABody) len() int {
	return 4 + routerLinkLen*len(r.Links)
}

func (r *RouterLSABody) marshal(b []byte) error {
	b[0] = byte(r.Flags)
	b[1] = 0 // reserved
	binary.BigEndian.PutUint16(b[2:4], uint16(len(r.Links)))

	off := 4
	for _, l := range r.Links {
		copy(b[off:off+4], l.LinkID[:])
		copy(b[off+4:off+8], l.LinkData[:])
		b[off+8] = byte(l.Type)
		b[off+9] = 0 // TOS count; TOS-specific metrics are not supported.
		binary.BigEndian.PutUint16(b[off+10:off+12], l.Metric)
		off += routerLinkLen
	}

	return nil
}

func (r *RouterLSABody) unmarshal(b []byte) error {
	if len(b) < 4 {
		return fmt.Errorf("not enough bytes for Router-LSA body: %d: %w", len(b), errParse)
	}

	r.Flags = RouterLSAFlags(b[0])
	n := int(binary.BigEndian.Uint16(b[2:4]))

	if l := len(b[4:]); l != n*routerLinkLen {
		return fmt.Errorf("Router-LSA declares %d links but has %d trailing bytes: %w", n, l, errParse)
	}

	r.Links = make([]RouterLink, 0, n)
	off := 4
	for i := 0; i < n; i++ {
		r.Links = append(r.Links, RouterLink{
			LinkID:   idFrom(b[off : off+4]),
			LinkData: idFrom(b[off+4 : off+8]),
			Type:     RouterLinkType(b[off+8]),
			Metric:   binary.BigEndian.Uint16(b[off+10 : off+12]),
		})
		off += routerLinkLen
	}

	return nil
}

// NetworkLSABody is the body of a Type-2 (Network) LSA, originated by the DR
// of a transit network.
type NetworkLSABody struct {
	NetworkMask     uint32
	AttachedRouters []ID
}

func (n *NetworkLSABody) len() int {
	return 4 + 4*len(n.AttachedRouters)
}

func (n *NetworkLSABody) marshal(b []byte) error {
	binary.BigEndian.PutUint32(b[0:4], n.NetworkMask)
	off := 4
	for _, r := range n.AttachedRouters {
		copy(b[off:off+4], r[:])
		off += 4
	}
	return nil
}

func (n *NetworkLSABody) unmarshal(b []byte) error {
	if len(b) < 4 {
		return fmt.Errorf("not enough bytes for Network-LSA body: %d: %w", len(b), errParse)
	}
	if l := len(b) % 4; l != 0 {
		return fmt.Errorf("Network-LSA body must end on a 4 byte boundary, got %d bytes: %w", len(b), errParse)
	}

	n.NetworkMask = binary.BigEndian.Uint32(b[0:4])
	n.AttachedRouters = make([]ID, 0, (len(b)-4)/4)
	for off := 4; off < len(b); off += 4 {
		n.AttachedRouters = append(n.AttachedRouters, idFrom(b[off:off+4]))
	}

	return nil
}

// OpaqueLSABody is used for LSA types this package does not interpret
// (Summary, ASBR-Summary, AS-External). It preserves the raw body bytes so
// that decode(encode(lsa)) == lsa still holds for these types, without this
// package needing to understand their semantics.
type OpaqueLSABody struct {
	Type LSType
	Data []byte
}

func (o *OpaqueLSABody) len() int { return len(o.Data) }

func (o *OpaqueLSABody) marshal(b []byte) error {
	copy(b, o.Data)
	return nil
}

func (o *OpaqueLSABody) unmarshal(b []byte) error {
	o.Data = append([]byte(nil), b...)
	return nil
}

// uint16Seconds interprets big endian uint16 bytes as a number of seconds.
func uint16Seconds(b []byte) time.Duration {
	return time.Duration(binary.BigEndian.Uint16(b)) * time.Second
}

// putUint16Seconds stores d in b as big endian uint16 bytes, rounded to the
// nearest whole second and clamped to MaxAge.
func putUint16Seconds(b []byte, d time.Duration) {
	if d > MaxAge {
		d = MaxAge
	}
	binary.BigEndian.PutUint16(b, uint16(d.Round(time.Second).Seconds()))
}
