package ospfd

import "github.com/ospfd/ospfd"

// ResolveNextHop implements spf.NeighborResolver: find a neighbor on any
// owned interface whose Router ID is firstHop.
func (r *Router) ResolveNextHop(firstHop ospf2.ID) (nextHopIP ospf2.ID, ifaceName string, ifIndex int, ok bool) {
	for _, bi := range r.snapshotBound() {
		for _, n := range bi.ifi.Neighbors() {
			if n.RouterID == firstHop {
				return n.IPAddress, bi.ifi.Name, bi.ifi.IfIndex, true
			}
		}
	}
	return ospf2.ID{}, "", 0, false
}

// DirectInterface implements spf.NeighborResolver: find the interface whose
// own network (ip & mask) equals dst/mask.
func (r *Router) DirectInterface(dst, mask ospf2.ID) (ifaceName string, ifIndex int, ok bool) {
	for _, bi := range r.snapshotBound() {
		if bi.ifi.Mask != mask {
			continue
		}
		if ospf2.IDFromUint32(bi.ifi.IPAddress.Uint32()&mask.Uint32()) == dst {
			return bi.ifi.Name, bi.ifi.IfIndex, true
		}
	}
	return "", 0, false
}
