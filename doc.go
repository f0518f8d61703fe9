// Package ospf2 implements the OSPFv2 (RFC 2328) wire protocol: packet and
// LSA encoding/decoding, and an IPv4 multicast Conn for sending and
// receiving them. Everything above the wire format (interface and neighbor
// state machines, the LSDB, SPF) lives under internal/.
package ospf2
