package ospfd

import (
	"testing"
	"time"

	"github.com/ospfd/ospfd"
	"github.com/ospfd/ospfd/internal/iface"
	"github.com/ospfd/ospfd/internal/neighbor"
)

func TestTickInterfaceBringsUpAndSendsHello(t *testing.T) {
	r, bi := newBroadcastRouter()

	if bi.ifi.State() != iface.Down {
		t.Fatalf("setup: interface state = %v, want Down", bi.ifi.State())
	}

	r.tickInterface(bi)
	if bi.ifi.State() == iface.Down {
		t.Fatalf("expected tickInterface to bring the interface up out of Down")
	}

	// helloRemaining starts at zero, so the first tick should have sent a
	// Hello immediately and reset the countdown.
	fc := bi.conn.(*fakeConn)
	if len(fc.sent) != 1 {
		t.Fatalf("expected one Hello sent, got %d", len(fc.sent))
	}
	if _, ok := fc.sent[0].msg.(*ospf2.Hello); !ok {
		t.Fatalf("expected a Hello, got %T", fc.sent[0].msg)
	}
	if bi.helloRemaining != bi.ifi.HelloInterval {
		t.Fatalf("helloRemaining = %v, want reset to %v", bi.helloRemaining, bi.ifi.HelloInterval)
	}
}

func TestTickNeighborInactivityRemovesNeighborAndReoriginates(t *testing.T) {
	r, bi := newBroadcastRouter()
	r.tickInterface(bi) // bring the interface up so RouterLinkInput has something to build

	n := bi.ifi.Neighbor(peerIP)
	n.RouterID = peerID
	ctx := bi.ifi.AdjacencyContext(n)
	n.HandleEvent(neighbor.HelloReceived, ctx, 1*time.Nanosecond)

	r.tickNeighbor(bi, n)

	if len(bi.ifi.Neighbors()) != 0 {
		t.Fatalf("expected the dead neighbor to be removed")
	}
	if _, ok := r.db.Get(ospf2.Key{Type: ospf2.RouterLSAType, LinkStateID: r.RouterID, AdvertisingRouter: r.RouterID}); !ok {
		t.Fatalf("expected a re-originated Router-LSA after neighbor death")
	}
}

func TestSendHelloAdvertisesInitOrBetterNeighbors(t *testing.T) {
	r, bi := newBroadcastRouter()

	n := bi.ifi.Neighbor(peerIP)
	n.RouterID = peerID
	ctx := bi.ifi.AdjacencyContext(n)
	n.HandleEvent(neighbor.HelloReceived, ctx, 40*time.Second)

	r.sendHello(bi)

	fc := bi.conn.(*fakeConn)
	hello, ok := fc.sent[len(fc.sent)-1].msg.(*ospf2.Hello)
	if !ok {
		t.Fatalf("expected a Hello to be sent")
	}
	if len(hello.NeighborIDs) != 1 || hello.NeighborIDs[0] != peerID {
		t.Fatalf("NeighborIDs = %v, want [%v]", hello.NeighborIDs, peerID)
	}
}

func TestSendDDClearsMBitWhenSummaryExhausted(t *testing.T) {
	r, bi := newP2PRouter()

	n := bi.ifi.Neighbor(peerIP)
	n.RouterID = peerID
	n.NegotiateMaster(selfID, 5)
	if n.IsMaster() {
		t.Fatalf("setup: expected self to be slave (selfID < peerID)")
	}
	n.SetSummaryList(nil)

	r.sendDD(bi, n)

	fc := bi.conn.(*fakeConn)
	dd, ok := fc.sent[len(fc.sent)-1].msg.(*ospf2.DatabaseDescription)
	if !ok {
		t.Fatalf("expected a DatabaseDescription, got %T", fc.sent[len(fc.sent)-1].msg)
	}
	if dd.Flags&ospf2.MSBit != 0 {
		t.Fatalf("Flags = %v, want MSBit clear for a slave", dd.Flags)
	}
	if dd.Flags&ospf2.MBit != 0 {
		t.Fatalf("Flags = %v, want MBit clear once the summary list is exhausted", dd.Flags)
	}
}

func TestSendDDResendsCachedDDWithoutPoppingAgain(t *testing.T) {
	r, bi := newP2PRouter()

	n := bi.ifi.Neighbor(peerIP)
	n.RouterID = peerID
	n.NegotiateMaster(selfID, 5)
	n.SetSummaryList([]ospf2.LSAHeader{
		{Key: ospf2.Key{Type: ospf2.RouterLSAType, LinkStateID: peerID, AdvertisingRouter: peerID}},
	})

	r.sendDD(bi, n)
	r.sendDD(bi, n)

	fc := bi.conn.(*fakeConn)
	if len(fc.sent) != 2 {
		t.Fatalf("expected two sends, got %d", len(fc.sent))
	}
	first := fc.sent[0].msg.(*ospf2.DatabaseDescription)
	second := fc.sent[1].msg.(*ospf2.DatabaseDescription)
	if len(first.LSAs) != 1 || len(second.LSAs) != 1 {
		t.Fatalf("expected both sends to carry the same single LSA header, got %d and %d", len(first.LSAs), len(second.LSAs))
	}
	if first.SequenceNumber != second.SequenceNumber {
		t.Fatalf("expected the retransmit to reuse the cached sequence number: got %d then %d", first.SequenceNumber, second.SequenceNumber)
	}
	if n.SummaryRemaining() {
		t.Fatalf("summary list should already be drained after the first send")
	}
}

func TestRetransmitResendsDDInExchange(t *testing.T) {
	r, bi := newP2PRouter()

	n := bi.ifi.Neighbor(peerIP)
	n.RouterID = peerID
	ctx := bi.ifi.AdjacencyContext(n)
	n.HandleEvent(neighbor.HelloReceived, ctx, 40*time.Second)
	n.HandleEvent(neighbor.TwoWayReceived, ctx, 0)
	n.HandleEvent(neighbor.NegotiationDone, ctx, 0)
	if n.State() != neighbor.Exchange {
		t.Fatalf("setup: neighbor state = %v, want Exchange", n.State())
	}

	r.retransmit(bi, n)

	fc := bi.conn.(*fakeConn)
	if len(fc.sent) == 0 {
		t.Fatalf("expected retransmit to send a DatabaseDescription")
	}
	if _, ok := fc.sent[len(fc.sent)-1].msg.(*ospf2.DatabaseDescription); !ok {
		t.Fatalf("expected a DatabaseDescription, got %T", fc.sent[len(fc.sent)-1].msg)
	}
}
