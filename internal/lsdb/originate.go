package lsdb

import "github.com/ospfd/ospfd"

// RouterLinkInput describes one non-DOWN interface's contribution to the
// local Router-LSA. Callers (internal/iface) build one of these per
// interface and pass the slice to OriginateRouterLSA; the DB doesn't know
// about interfaces directly, to avoid an import cycle.
type RouterLinkInput struct {
	// Transit is true when the interface has an adjacency to its DR in
	// state FULL, or this router is itself the DR (a TRANSIT link);
	// otherwise the interface contributes a STUB or POINT-TO-POINT link.
	Transit bool

	// DRAddress and InterfaceAddress are used for TRANSIT links:
	// link-id=DR-address, link-data=own-interface-address.
	DRAddress        ospf2.ID
	InterfaceAddress ospf2.ID

	// PointToPoint is true when the interface is a non-broadcast link
	// with a FULL neighbor at the other end: link-id=neighbor's router
	// ID, link-data=own-interface-address. Ignored when Transit is set.
	PointToPoint bool
	PeerRouterID ospf2.ID

	// Network and Mask are used for STUB links (no adjacency yet, or a
	// point-to-point link whose neighbor defense falls back to STUB per
	// the missing-neighbor handling rule): link-id=ip&mask,
	// link-data=mask. Ignored when Transit or PointToPoint is set.
	Network ospf2.ID
	Mask    ospf2.ID

	Cost uint16
}

// OriginateRouterLSA assembles this router's Router-LSA from links (one
// entry per non-DOWN interface), bumps the shared sequence counter, installs
// the result into the database, and returns it so the caller can flood it.
func (d *DB) OriginateRouterLSA(routerID ospf2.ID, areaBorder, asBoundary bool, links []RouterLinkInput) ospf2.LSA {
	body := &ospf2.RouterLSABody{
		Links: make([]ospf2.RouterLink, 0, len(links)),
	}
	if areaBorder {
		body.Flags |= ospf2.BBit
	}
	if asBoundary {
		body.Flags |= ospf2.EBit
	}

	for _, l := range links {
		if l.Transit {
			body.Links = append(body.Links, ospf2.RouterLink{
				LinkID:   l.DRAddress,
				LinkData: l.InterfaceAddress,
				Type:     ospf2.TransitLink,
				Metric:   l.Cost,
			})
			continue
		}

		if l.PointToPoint {
			body.Links = append(body.Links, ospf2.RouterLink{
				LinkID:   l.PeerRouterID,
				LinkData: l.InterfaceAddress,
				Type:     ospf2.PointToPointLink,
				Metric:   l.Cost,
			})
			continue
		}

		body.Links = append(body.Links, ospf2.RouterLink{
			LinkID:   l.Network,
			LinkData: l.Mask,
			Type:     ospf2.StubLink,
			Metric:   l.Cost,
		})
	}

	k := ospf2.Key{Type: ospf2.RouterLSAType, LinkStateID: routerID, AdvertisingRouter: routerID}

	d.mu.Lock()
	lsa := ospf2.LSA{
		Header: ospf2.LSAHeader{
			Key:            k,
			SequenceNumber: d.nextSequence(),
		},
		Body: body,
	}
	d.insertLocked(lsa)
	d.mu.Unlock()

	d.notify()
	d.log.WithField("sequence", lsa.Header.SequenceNumber).Info("originated Router-LSA")

	return lsa
}

// OriginateNetworkLSA assembles the Network-LSA for a transit network this
// router is the Designated Router on. drAddress is the Link State ID
// (the DR's interface address); attachedRouters must already include self.
func (d *DB) OriginateNetworkLSA(routerID, drAddress ospf2.ID, networkMask uint32, attachedRouters []ospf2.ID) ospf2.LSA {
	k := ospf2.Key{Type: ospf2.NetworkLSAType, LinkStateID: drAddress, AdvertisingRouter: routerID}

	d.mu.Lock()
	lsa := ospf2.LSA{
		Header: ospf2.LSAHeader{
			Key:            k,
			SequenceNumber: d.nextSequence(),
		},
		Body: &ospf2.NetworkLSABody{
			NetworkMask:     networkMask,
			AttachedRouters: append([]ospf2.ID(nil), attachedRouters...),
		},
	}
	d.insertLocked(lsa)
	d.mu.Unlock()

	d.notify()
	d.log.WithField("sequence", lsa.Header.SequenceNumber).Info("originated Network-LSA")

	return lsa
}
