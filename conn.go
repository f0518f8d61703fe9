package ospf2

import (
	"net"
	"time"

	"golang.org/x/net/ipv4"
)

// Fixed IPv4 header parameters for Conn use, per RFC 2328 appendix A.1.
const ttl = 1

var (
	// AllSPFRouters is the IPv4 multicast group address that all routers
	// running OSPFv2 participate in.
	AllSPFRouters = &net.IPAddr{IP: net.IPv4(224, 0, 0, 5)}

	// AllDRouters is the IPv4 multicast group address that the Designated
	// Router and Backup Designated Router participate in.
	AllDRouters = &net.IPAddr{IP: net.IPv4(224, 0, 0, 6)}
)

// A Conn sends and receives OSPFv2 packets on one network interface.
type Conn struct {
	c      *ipv4.PacketConn
	ifi    *net.Interface
	groups []*net.IPAddr
}

// Listen creates a *Conn bound to the specified network interface. If
// pointToPoint is true, the AllDRouters group is not joined, since DR/BDR
// election doesn't apply on point-to-point links.
func Listen(ifi *net.Interface, pointToPoint bool) (*Conn, error) {
	conn, err := net.ListenPacket("ip4:89", "0.0.0.0")
	if err != nil {
		return nil, err
	}
	c := ipv4.NewPacketConn(conn)

	if err := c.SetControlMessage(ipv4.FlagTTL|ipv4.FlagSrc|ipv4.FlagDst|ipv4.FlagInterface, true); err != nil {
		return nil, err
	}
	if err := c.SetTTL(ttl); err != nil {
		return nil, err
	}
	if err := c.SetMulticastTTL(ttl); err != nil {
		return nil, err
	}
	if err := c.SetMulticastInterface(ifi); err != nil {
		return nil, err
	}
	if err := c.SetMulticastLoopback(false); err != nil {
		return nil, err
	}

	groups := []*net.IPAddr{AllSPFRouters}
	if !pointToPoint {
		groups = append(groups, AllDRouters)
	}
	for _, g := range groups {
		if err := c.JoinGroup(ifi, g); err != nil {
			return nil, err
		}
	}

	return &Conn{c: c, ifi: ifi, groups: groups}, nil
}

// Close closes the Conn's underlying network connection.
func (c *Conn) Close() error {
	for _, g := range c.groups {
		if err := c.c.LeaveGroup(c.ifi, g); err != nil {
			return err
		}
	}
	return c.c.Close()
}

// SetReadDeadline sets the read deadline associated with the Conn. The send
// and recv loops use a short deadline so they can poll a shutdown signal
// without blocking forever on a read.
func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.c.SetReadDeadline(t)
}

// ReadFrom reads a single OSPFv2 packet and returns the parsed Message along
// with its source address. Packets that fail checksum validation or fail to
// parse are assumed to be invalid OSPFv2 data and are skipped rather than
// returned as an error, matching the malformed-packet handling rule (drop
// silently, keep reading); a deadline timeout is returned to the caller so
// it can check for shutdown.
func (c *Conn) ReadFrom(buf []byte) (Message, *net.IPAddr, error) {
	for {
		n, _, src, err := c.c.ReadFrom(buf)
		if err != nil {
			return nil, nil, err
		}

		if !VerifyChecksum(buf[:n]) {
			continue
		}

		m, err := ParseMessage(buf[:n])
		if err != nil {
			continue
		}

		return m, src.(*net.IPAddr), nil
	}
}

// WriteTo writes a single OSPFv2 Message to the specified destination
// address or multicast group.
func (c *Conn) WriteTo(m Message, dst *net.IPAddr) error {
	b, err := MarshalMessage(m)
	if err != nil {
		return err
	}

	_, err = c.c.WriteTo(b, nil, dst)
	return err
}
