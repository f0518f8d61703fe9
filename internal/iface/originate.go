package iface

import (
	"github.com/ospfd/ospfd"
	"github.com/ospfd/ospfd/internal/lsdb"
	"github.com/ospfd/ospfd/internal/neighbor"
)

// RouterLinkInput builds the lsdb.RouterLinkInput this interface
// contributes to the local Router-LSA, per RFC 2328 section 12.4.1.
//
// A broadcast/NBMA interface with a FULL adjacency to its DR (or that is
// itself the DR with at least one FULL neighbor) contributes a TRANSIT
// link. A point-to-point interface with a FULL neighbor contributes a
// POINT-TO-POINT link. Anything else — including a broadcast interface
// whose DR has no corresponding neighbor entry, the defense the source
// omits — falls back to a STUB link advertising the interface's own
// subnet.
func (i *Interface) RouterLinkInput() lsdb.RouterLinkInput {
	cost := i.Cost

	if i.Type.pointToPoint() {
		if peer := i.fullNeighbor(); peer != nil {
			return lsdb.RouterLinkInput{
				PointToPoint:     true,
				PeerRouterID:     peer.RouterID,
				InterfaceAddress: i.IPAddress,
				Cost:             cost,
			}
		}
		return i.stubLinkInput()
	}

	dr := i.DR()
	if dr == (ospf2.ID{}) {
		return i.stubLinkInput()
	}

	if dr == i.IPAddress {
		if i.hasFullNeighbor() {
			return lsdb.RouterLinkInput{
				Transit:          true,
				DRAddress:        dr,
				InterfaceAddress: i.IPAddress,
				Cost:             cost,
			}
		}
		return i.stubLinkInput()
	}

	n := i.drNeighbor(dr)
	if n == nil || n.State() != neighbor.Full {
		// Missing-neighbor defense (or not yet FULL): treat as STUB
		// rather than referencing an adjacency that doesn't exist.
		return i.stubLinkInput()
	}

	return lsdb.RouterLinkInput{
		Transit:          true,
		DRAddress:        dr,
		InterfaceAddress: i.IPAddress,
		Cost:             cost,
	}
}

func (i *Interface) stubLinkInput() lsdb.RouterLinkInput {
	network := andMask(i.IPAddress, i.Mask)
	return lsdb.RouterLinkInput{
		Network: network,
		Mask:    i.Mask,
		Cost:    i.Cost,
	}
}

func (i *Interface) fullNeighbor() *neighbor.Neighbor {
	for _, n := range i.Neighbors() {
		if n.State() == neighbor.Full {
			return n
		}
	}
	return nil
}

func (i *Interface) hasFullNeighbor() bool {
	return i.fullNeighbor() != nil
}

func (i *Interface) drNeighbor(dr ospf2.ID) *neighbor.Neighbor {
	for _, n := range i.Neighbors() {
		if n.IPAddress == dr {
			return n
		}
	}
	return nil
}

func andMask(ip, mask ospf2.ID) ospf2.ID {
	return ospf2.IDFromUint32(ip.Uint32() & mask.Uint32())
}
