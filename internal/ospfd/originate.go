package ospfd

import (
	"github.com/ospfd/ospfd"
	"github.com/ospfd/ospfd/internal/iface"
	"github.com/ospfd/ospfd/internal/lsdb"
	"github.com/ospfd/ospfd/internal/neighbor"
)

// reoriginateRouterLSA rebuilds this router's Router-LSA from every
// non-DOWN interface's link-type decision (TRANSIT/POINT-TO-POINT/STUB)
// and installs/floods the result.
func (r *Router) reoriginateRouterLSA() {
	var links []lsdb.RouterLinkInput
	for _, bi := range r.snapshotBound() {
		if bi.ifi.State() == iface.Down {
			continue
		}
		links = append(links, bi.ifi.RouterLinkInput())
	}

	lsa := r.db.OriginateRouterLSA(r.RouterID, r.AreaBorder, r.ASBoundary, links)
	r.db.Flood(lsa, "")
}

// originateNetworkLSA originates the Network-LSA for bi, an interface on
// which this router is DR: attached-routers is the set of FULL-adjacent
// neighbor Router IDs plus self.
func (r *Router) originateNetworkLSA(bi *boundInterface) {
	attached := []ospf2.ID{r.RouterID}
	for _, n := range bi.ifi.Neighbors() {
		if n.State() == neighbor.Full {
			attached = append(attached, n.RouterID)
		}
	}

	r.db.OriginateNetworkLSA(r.RouterID, bi.ifi.IPAddress, bi.ifi.Mask.Uint32(), attached)
}
