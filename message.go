package ospf2

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Fixed length structures. Messages without a constant here only contain
// trailing variable-length data.
const (
	helloLen = 20 // No trailing array of neighbor IDs.
	ddLen    = 8  // No trailing array of LSA headers.
	lsrLen   = 12 // One (type, link-state-id, advertising-router) triple.
)

// Options is a bitmask of OSPFv2 options, per RFC 2328 appendix A.2.
type Options uint8

// Possible Options bits.
const (
	EOpt  Options = 1 << 1 // External routing capability.
	MCOpt Options = 1 << 2 // Multicast extensions.
	NPOpt Options = 1 << 3 // Type-7 (NSSA) LSAs.
	DCOpt Options = 1 << 5 // Demand circuits.
)

// A Message is an OSPFv2 message: a Header plus a type-specific payload.
type Message interface {
	len() int
	marshal(b []byte) error
	unmarshal(b []byte) error
}

// MarshalMessage turns a Message into OSPFv2 packet bytes, computing the
// header checksum over the result per RFC 2328 appendix D.
func MarshalMessage(m Message) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("ospf2: cannot marshal nil Message: %w", errMarshal)
	}

	b := make([]byte, m.len())
	if err := m.marshal(b); err != nil {
		return nil, fmt.Errorf("ospf2: failed to marshal Message: %w", err)
	}

	checksum := computeHeaderChecksum(b)
	binary.BigEndian.PutUint16(b[12:14], checksum)

	return b, nil
}

// ParseMessage parses an OSPFv2 Header and trailing Message from bytes. It
// does not itself validate the header checksum; callers reading from the
// wire should call VerifyChecksum first, per the malformed-packet handling
// rule (drop silently, don't alter state).
func ParseMessage(b []byte) (Message, error) {
	h, ptyp, plen, _, err := parseHeader(b)
	if err != nil {
		return nil, fmt.Errorf("ospf2: failed to parse Header: %w", err)
	}

	var m Message
	switch ptyp {
	case hello:
		m = &Hello{Header: h}
	case databaseDescription:
		m = &DatabaseDescription{Header: h}
	case linkStateRequest:
		m = &LinkStateRequest{Header: h}
	case linkStateUpdate:
		m = &LinkStateUpdate{Header: h}
	case linkStateAcknowledgement:
		m = &LinkStateAcknowledgement{Header: h}
	default:
		return nil, fmt.Errorf("ospf2: parsing not implemented for message type: %d", ptyp)
	}

	if err := m.unmarshal(b[headerLen:plen]); err != nil {
		return nil, fmt.Errorf("ospf2: failed to parse Message: %w", err)
	}

	return m, nil
}

var _ Message = &Hello{}

// A Hello is an OSPFv2 Hello packet, per RFC 2328 appendix A.3.2.
type Hello struct {
	Header                 Header
	NetworkMask            uint32
	HelloInterval          time.Duration
	Options                Options
	RouterPriority         uint8
	RouterDeadInterval     time.Duration
	DesignatedRouter       ID
	BackupDesignatedRouter ID
	NeighborIDs            []ID
}

func (h *Hello) len() int {
	return headerLen + helloLen + 4*len(h.NeighborIDs)
}

func (h *Hello) marshal(b []byte) error {
	const n = headerLen
	h.Header.marshal(b[:n], hello, uint16(h.len()))

	binary.BigEndian.PutUint32(b[n:n+4], h.NetworkMask)
	putUint16Seconds(b[n+4:n+6], h.HelloInterval)
	b[n+6] = byte(h.Options)
	b[n+7] = h.RouterPriority
	binary.BigEndian.PutUint32(b[n+8:n+12], uint32(h.RouterDeadInterval.Round(time.Second)/time.Second))
	copy(b[n+12:n+16], h.DesignatedRouter[:])
	copy(b[n+16:n+20], h.BackupDesignatedRouter[:])

	nn := n + helloLen
	for i := range h.NeighborIDs {
		copy(b[nn:nn+4], h.NeighborIDs[i][:])
		nn += 4
	}

	return nil
}

func (h *Hello) unmarshal(b []byte) error {
	if l := len(b); l < helloLen {
		return fmt.Errorf("not enough bytes for Hello: %d: %w", l, errParse)
	}
	if l := len(b); l%4 != 0 {
		return fmt.Errorf("Hello message must end on a 4 byte boundary, got %d bytes: %w", l, errParse)
	}

	h.NetworkMask = binary.BigEndian.Uint32(b[0:4])
	h.HelloInterval = uint16Seconds(b[4:6])
	h.Options = Options(b[6])
	h.RouterPriority = b[7]
	h.RouterDeadInterval = time.Duration(binary.BigEndian.Uint32(b[8:12])) * time.Second
	h.DesignatedRouter = idFrom(b[12:16])
	h.BackupDesignatedRouter = idFrom(b[16:20])

	h.NeighborIDs = make([]ID, 0, len(b[helloLen:])/4)
	for i := helloLen; i < len(b); i += 4 {
		h.NeighborIDs = append(h.NeighborIDs, idFrom(b[i:i+4]))
	}

	return nil
}

// DDFlags are flags which may appear in an OSPFv2 Database Description
// message, per RFC 2328 appendix A.3.3.
type DDFlags uint8

// Possible DDFlags values.
const (
	MSBit DDFlags = 1 << 0 // This router is the master.
	MBit  DDFlags = 1 << 1 // More DD packets follow.
	IBit  DDFlags = 1 << 2 // This is the first DD packet in the exchange.
)

var _ Message = &DatabaseDescription{}

// A DatabaseDescription is an OSPFv2 Database Description message, per RFC
// 2328 appendix A.3.3.
type DatabaseDescription struct {
	Header         Header
	InterfaceMTU   uint16
	Options        Options
	Flags          DDFlags
	SequenceNumber uint32
	LSAs           []LSAHeader
}

func (dd *DatabaseDescription) len() int {
	return headerLen + ddLen + lsaHeaderLen*len(dd.LSAs)
}

func (dd *DatabaseDescription) marshal(b []byte) error {
	const n = headerLen
	dd.Header.marshal(b[:n], databaseDescription, uint16(dd.len()))

	binary.BigEndian.PutUint16(b[n:n+2], dd.InterfaceMTU)
	b[n+2] = byte(dd.Options)
	b[n+3] = byte(dd.Flags)
	binary.BigEndian.PutUint32(b[n+4:n+8], dd.SequenceNumber)

	nn := n + ddLen
	for i := range dd.LSAs {
		dd.LSAs[i].marshal(b[nn : nn+lsaHeaderLen])
		nn += lsaHeaderLen
	}

	return nil
}

func (dd *DatabaseDescription) unmarshal(b []byte) error {
	if l := len(b); l < ddLen {
		return fmt.Errorf("not enough bytes for DatabaseDescription: %d: %w", l, errParse)
	}

	dd.InterfaceMTU = binary.BigEndian.Uint16(b[0:2])
	dd.Options = Options(b[2])
	dd.Flags = DDFlags(b[3])
	dd.SequenceNumber = binary.BigEndian.Uint32(b[4:8])

	rest := b[ddLen:]
	if l := len(rest); l%lsaHeaderLen != 0 {
		return fmt.Errorf("DatabaseDescription message must end on a 20 byte boundary for trailing LSA headers, got %d bytes: %w", l, errParse)
	}

	n := len(rest) / lsaHeaderLen
	dd.LSAs = make([]LSAHeader, 0, n)
	for i := 0; i < n; i++ {
		start, end := i*lsaHeaderLen, (i+1)*lsaHeaderLen
		dd.LSAs = append(dd.LSAs, parseLSAHeader(rest[start:end]))
	}

	return nil
}

var _ Message = &LinkStateRequest{}

// A LinkStateRequest is an OSPFv2 Link State Request message, per RFC 2328
// appendix A.3.4.
type LinkStateRequest struct {
	Header Header
	LSAs   []Key
}

func (lsr *LinkStateRequest) len() int {
	return headerLen + lsrLen*len(lsr.LSAs)
}

func (lsr *LinkStateRequest) marshal(b []byte) error {
	const n = headerLen
	lsr.Header.marshal(b[:n], linkStateRequest, uint16(lsr.len()))

	nn := n
	for i := range lsr.LSAs {
		lsr.LSAs[i].marshal(b[nn : nn+lsrLen])
		nn += lsrLen
	}

	return nil
}

func (lsr *LinkStateRequest) unmarshal(b []byte) error {
	if l := len(b); l%lsrLen != 0 {
		return fmt.Errorf("LinkStateRequest message must end on a 12 byte boundary, got %d bytes: %w", l, errParse)
	}

	n := len(b) / lsrLen
	lsr.LSAs = make([]Key, 0, n)
	for i := 0; i < n; i++ {
		start, end := i*lsrLen, (i+1)*lsrLen
		lsr.LSAs = append(lsr.LSAs, parseKey(b[start:end]))
	}

	return nil
}

var _ Message = &LinkStateUpdate{}

// A LinkStateUpdate is an OSPFv2 Link State Update message, per RFC 2328
// appendix A.3.5.
type LinkStateUpdate struct {
	Header Header
	LSAs   []LSA
}

func (lsu *LinkStateUpdate) len() int {
	total := headerLen + 4
	for _, lsa := range lsu.LSAs {
		total += lsaHeaderLen + lsa.Body.len()
	}
	return total
}

func (lsu *LinkStateUpdate) marshal(b []byte) error {
	const n = headerLen
	lsu.Header.marshal(b[:n], linkStateUpdate, uint16(lsu.len()))

	binary.BigEndian.PutUint32(b[n:n+4], uint32(len(lsu.LSAs)))

	nn := n + 4
	for _, lsa := range lsu.LSAs {
		enc, err := Encode(lsa)
		if err != nil {
			return err
		}
		copy(b[nn:nn+len(enc)], enc)
		nn += len(enc)
	}

	return nil
}

func (lsu *LinkStateUpdate) unmarshal(b []byte) error {
	if len(b) < 4 {
		return fmt.Errorf("not enough bytes for LinkStateUpdate: %d: %w", len(b), errParse)
	}

	count := int(binary.BigEndian.Uint32(b[0:4]))
	rest := b[4:]

	lsu.LSAs = make([]LSA, 0, count)
	off := 0
	for i := 0; i < count; i++ {
		if off+lsaHeaderLen > len(rest) {
			return fmt.Errorf("LinkStateUpdate declares %d LSAs but ran out of bytes: %w", count, errParse)
		}

		l, err := Decode(rest[off:])
		if err != nil {
			return fmt.Errorf("failed to decode LSA %d: %w", i, err)
		}

		lsu.LSAs = append(lsu.LSAs, l)
		off += int(l.Header.Length)
	}

	return nil
}

var _ Message = &LinkStateAcknowledgement{}

// A LinkStateAcknowledgement is an OSPFv2 Link State Acknowledgment
// message, per RFC 2328 appendix A.3.6.
type LinkStateAcknowledgement struct {
	Header Header
	LSAs   []LSAHeader
}

func (ack *LinkStateAcknowledgement) len() int {
	return headerLen + lsaHeaderLen*len(ack.LSAs)
}

func (ack *LinkStateAcknowledgement) marshal(b []byte) error {
	const n = headerLen
	ack.Header.marshal(b[:n], linkStateAcknowledgement, uint16(ack.len()))

	nn := n
	for i := range ack.LSAs {
		ack.LSAs[i].marshal(b[nn : nn+lsaHeaderLen])
		nn += lsaHeaderLen
	}

	return nil
}

func (ack *LinkStateAcknowledgement) unmarshal(b []byte) error {
	if l := len(b); l%lsaHeaderLen != 0 {
		return fmt.Errorf("LinkStateAcknowledgement message must end on a 20 byte boundary, got %d bytes: %w", l, errParse)
	}

	n := len(b) / lsaHeaderLen
	ack.LSAs = make([]LSAHeader, 0, n)
	for i := 0; i < n; i++ {
		start, end := i*lsaHeaderLen, (i+1)*lsaHeaderLen
		ack.LSAs = append(ack.LSAs, parseLSAHeader(b[start:end]))
	}

	return nil
}
