package ospfd

import (
	"net"

	"github.com/ospfd/ospfd"
	"github.com/ospfd/ospfd/internal/iface"
	"github.com/ospfd/ospfd/internal/neighbor"
)

// snapshotHeaders returns the LSAHeader of every LSA currently in the
// database, for seeding a neighbor's db_summary_list on NegotiationDone.
func (r *Router) snapshotHeaders() []ospf2.LSAHeader {
	snapshot := r.db.Snapshot()
	headers := make([]ospf2.LSAHeader, len(snapshot))
	for i, lsa := range snapshot {
		headers[i] = lsa.Header
	}
	return headers
}

// dispatch validates the common header fields against the "malformed
// packet" rejection rules (checksum is already verified inside
// conn.ReadFrom) and routes msg to its type-specific handler. bi is the
// interface the packet arrived on; src is its source address.
func (r *Router) dispatch(bi *boundInterface, msg ospf2.Message, src *net.IPAddr) {
	header, ptype := headerOf(msg)

	if header.RouterID == r.RouterID {
		malformedPacketCount.Inc()
		return
	}
	if header.AreaID != r.AreaID {
		malformedPacketCount.Inc()
		return
	}

	packetsReceivedCount.WithLabelValues(ptype).Inc()

	neighborIP := ospf2.IDFromIP(src.IP)

	switch m := msg.(type) {
	case *ospf2.Hello:
		r.handleHello(bi, header.RouterID, neighborIP, m)
	case *ospf2.DatabaseDescription:
		r.handleDD(bi, neighborIP, m)
	case *ospf2.LinkStateRequest:
		r.handleLSR(bi, neighborIP, m)
	case *ospf2.LinkStateUpdate:
		r.handleLSU(bi, neighborIP, m)
	case *ospf2.LinkStateAcknowledgement:
		r.handleLSAck(bi, neighborIP, m)
	}
}

func headerOf(msg ospf2.Message) (ospf2.Header, string) {
	switch m := msg.(type) {
	case *ospf2.Hello:
		return m.Header, "Hello"
	case *ospf2.DatabaseDescription:
		return m.Header, "DatabaseDescription"
	case *ospf2.LinkStateRequest:
		return m.Header, "LinkStateRequest"
	case *ospf2.LinkStateUpdate:
		return m.Header, "LinkStateUpdate"
	case *ospf2.LinkStateAcknowledgement:
		return m.Header, "LinkStateAcknowledgement"
	default:
		return ospf2.Header{}, "Unknown"
	}
}

// handleHello discovers an unknown neighbor in DOWN (deliberate, per the
// error handling design), updates its claimed priority/DR/BDR, raises
// HelloReceived, and then 2-WayReceived or 1-WayReceived depending on
// whether this router's own ID appears in the neighbor list.
func (r *Router) handleHello(bi *boundInterface, routerID, neighborIP ospf2.ID, hello *ospf2.Hello) {
	n := bi.ifi.Neighbor(neighborIP)
	n.RouterID = routerID
	n.Priority = hello.RouterPriority
	n.DR = hello.DesignatedRouter
	n.BDR = hello.BackupDesignatedRouter

	ctx := bi.ifi.AdjacencyContext(n)
	n.HandleEvent(neighbor.HelloReceived, ctx, hello.RouterDeadInterval)

	sawSelf := false
	for _, id := range hello.NeighborIDs {
		if id == r.RouterID {
			sawSelf = true
			break
		}
	}

	if sawSelf {
		old := n.State()
		n.HandleEvent(neighbor.TwoWayReceived, ctx, 0)
		if old < neighbor.ExStart && n.State() >= neighbor.ExStart {
			n.NegotiateMaster(r.RouterID, 0)
			n.SetSummaryList(r.snapshotHeaders())
		}
	} else if n.State() >= neighbor.TwoWay {
		n.HandleEvent(neighbor.OneWayReceived, ctx, 0)
	}

	if hello.DesignatedRouter == neighborIP && hello.BackupDesignatedRouter == (ospf2.ID{}) ||
		hello.BackupDesignatedRouter == neighborIP {
		r.fireInterfaceTimer(bi, iface.BackupSeen)
	} else if bi.ifi.State() == iface.Waiting {
		// no-op: still waiting, nothing claimed yet.
	} else {
		r.fireInterfaceTimer(bi, iface.NeighborChange)
	}
}

// handleDD processes a Database Description packet: master/slave
// negotiation on the first exchange, duplicate detection, mismatch
// detection, and enqueuing requests for LSAs the DD describes that this
// router lacks or holds a stale copy of.
func (r *Router) handleDD(bi *boundInterface, neighborIP ospf2.ID, dd *ospf2.DatabaseDescription) {
	n := bi.ifi.Neighbor(neighborIP)
	ctx := bi.ifi.AdjacencyContext(n)

	if n.State() < neighbor.ExStart {
		return
	}

	if n.State() == neighbor.ExStart {
		n.NegotiateMaster(r.RouterID, dd.SequenceNumber)
		n.HandleEvent(neighbor.NegotiationDone, ctx, 0)
		n.SetSummaryList(r.snapshotHeaders())
	} else if n.DDMismatch(dd.Options, dd.Flags) {
		n.HandleEvent(neighbor.SeqNumberMismatch, ctx, 0)
		return
	}

	if n.IsDuplicateDD(dd.SequenceNumber, dd.Flags) {
		return
	}
	n.RecordDD(dd.SequenceNumber, dd.Options, dd.Flags)
	n.InvalidateCachedDD()

	for _, h := range dd.LSAs {
		existing, ok := r.db.Get(h.Key)
		if !ok || h.Fresher(existing.Header) {
			n.EnqueueRequest(h.Key)
		}
	}

	if dd.Flags&ospf2.MBit == 0 && !n.SummaryRemaining() {
		n.HandleEvent(neighbor.ExchangeDone, ctx, 0)
		if n.State() == neighbor.Full {
			r.reoriginateRouterLSA()
			if bi.ifi.IsDR() {
				r.originateNetworkLSA(bi)
			}
		}
	}
}

// handleLSR answers a Link State Request with an LSU carrying every
// requested LSA; a request for an LSA this router doesn't hold raises
// BadLSReq rather than silently dropping it.
func (r *Router) handleLSR(bi *boundInterface, neighborIP ospf2.ID, lsr *ospf2.LinkStateRequest) {
	n := bi.ifi.Neighbor(neighborIP)
	if n.State() < neighbor.Exchange {
		return
	}

	var lsas []ospf2.LSA
	for _, k := range lsr.LSAs {
		lsa, ok := r.db.Get(k)
		if !ok {
			n.HandleEvent(neighbor.BadLSReq, bi.ifi.AdjacencyContext(n), 0)
			return
		}
		lsas = append(lsas, lsa)
	}

	if len(lsas) > 0 {
		r.sendLSU(bi, n, lsas)
	}
}

// handleLSU installs every LSA newer than this router's copy, floods it
// onward (except back out the arrival interface), acknowledges receipt,
// and removes satisfied entries from the neighbor's request list.
func (r *Router) handleLSU(bi *boundInterface, neighborIP ospf2.ID, lsu *ospf2.LinkStateUpdate) {
	n := bi.ifi.Neighbor(neighborIP)
	if n.State() < neighbor.Exchange {
		return
	}

	var acked []ospf2.LSAHeader
	for _, lsa := range lsu.LSAs {
		if r.db.Insert(lsa) {
			r.db.Flood(lsa, bi.ifi.Name)
		}
		n.AckRetransmit(lsa.Header.Key)
		if empty := n.DequeueRequest(lsa.Header.Key); empty && n.State() == neighbor.Loading {
			n.HandleEvent(neighbor.LoadingDone, bi.ifi.AdjacencyContext(n), 0)
			r.reoriginateRouterLSA()
		}
		acked = append(acked, lsa.Header)
	}

	if len(acked) > 0 {
		r.sendLSAck(bi, n, acked)
	}
}

// handleLSAck removes acknowledged entries from the retransmit list.
func (r *Router) handleLSAck(bi *boundInterface, neighborIP ospf2.ID, ack *ospf2.LinkStateAcknowledgement) {
	n := bi.ifi.Neighbor(neighborIP)
	for _, h := range ack.LSAs {
		n.AckRetransmit(h.Key)
	}
}
