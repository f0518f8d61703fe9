package iface

import (
	"testing"
	"time"

	"github.com/ospfd/ospfd"
	"github.com/ospfd/ospfd/internal/neighbor"
)

func TestRouterLinkInputStubWhenNoDR(t *testing.T) {
	i := New(nil, "eth0", 1, Broadcast, ospf2.ID{10, 0, 0, 1}, ospf2.ID{255, 255, 255, 0}, ospf2.ID{})

	link := i.RouterLinkInput()
	if link.Transit || link.PointToPoint {
		t.Fatalf("expected a STUB link with no DR elected, got %+v", link)
	}
	if want := (ospf2.ID{10, 0, 0, 0}); link.Network != want {
		t.Fatalf("Network = %s, want %s", link.Network, want)
	}
}

func TestRouterLinkInputStubWhenDRNeighborMissing(t *testing.T) {
	i := New(nil, "eth0", 1, Broadcast, ospf2.ID{10, 0, 0, 1}, ospf2.ID{255, 255, 255, 0}, ospf2.ID{})
	i.HandleEvent(InterfaceUp)

	// Force a DR that has no corresponding neighbor entry: the
	// missing-neighbor defense must fall back to STUB rather than
	// referencing a nonexistent adjacency.
	i.mu.Lock()
	i.dr = ospf2.ID{10, 0, 0, 99}
	i.mu.Unlock()

	link := i.RouterLinkInput()
	if link.Transit {
		t.Fatalf("expected STUB fallback for a DR with no neighbor entry, got %+v", link)
	}
}

func TestRouterLinkInputTransitWhenDRAdjacencyFull(t *testing.T) {
	i := New(nil, "eth0", 1, Broadcast, ospf2.ID{10, 0, 0, 1}, ospf2.ID{255, 255, 255, 0}, ospf2.ID{})
	i.HandleEvent(InterfaceUp)

	dr := ospf2.ID{10, 0, 0, 2}
	n := i.Neighbor(dr)
	n.HandleEvent(neighbor.HelloReceived, neighbor.AdjacencyContext{}, 40*time.Second)
	n.HandleEvent(neighbor.TwoWayReceived, neighbor.AdjacencyContext{PointToPoint: true}, 0)
	n.HandleEvent(neighbor.NegotiationDone, neighbor.AdjacencyContext{}, 0)
	n.HandleEvent(neighbor.ExchangeDone, neighbor.AdjacencyContext{}, 0)

	i.mu.Lock()
	i.dr = dr
	i.mu.Unlock()

	link := i.RouterLinkInput()
	if !link.Transit {
		t.Fatalf("expected a TRANSIT link to a FULL DR neighbor, got %+v", link)
	}
	if link.DRAddress != dr {
		t.Fatalf("DRAddress = %s, want %s", link.DRAddress, dr)
	}
}

func TestRouterLinkInputPointToPointWhenNeighborFull(t *testing.T) {
	i := New(nil, "eth0", 1, PointToPoint, ospf2.ID{10, 0, 0, 1}, ospf2.ID{255, 255, 255, 252}, ospf2.ID{})
	i.HandleEvent(InterfaceUp)

	peer := ospf2.ID{10, 0, 0, 2}
	n := i.Neighbor(peer)
	n.HandleEvent(neighbor.HelloReceived, neighbor.AdjacencyContext{}, 40*time.Second)
	n.HandleEvent(neighbor.TwoWayReceived, neighbor.AdjacencyContext{PointToPoint: true}, 0)
	n.HandleEvent(neighbor.NegotiationDone, neighbor.AdjacencyContext{}, 0)
	n.HandleEvent(neighbor.ExchangeDone, neighbor.AdjacencyContext{}, 0)

	link := i.RouterLinkInput()
	if !link.PointToPoint {
		t.Fatalf("expected a POINT-TO-POINT link, got %+v", link)
	}
	if link.PeerRouterID != peer {
		t.Fatalf("PeerRouterID = %s, want %s", link.PeerRouterID, peer)
	}
}

func TestRouterLinkInputPointToPointStubWithoutFullNeighbor(t *testing.T) {
	i := New(nil, "eth0", 1, PointToPoint, ospf2.ID{10, 0, 0, 1}, ospf2.ID{255, 255, 255, 252}, ospf2.ID{})
	i.HandleEvent(InterfaceUp)

	link := i.RouterLinkInput()
	if link.PointToPoint || link.Transit {
		t.Fatalf("expected STUB fallback with no FULL neighbor yet, got %+v", link)
	}
}
