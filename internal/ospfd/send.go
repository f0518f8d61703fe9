package ospfd

import (
	"net"
	"time"

	"github.com/ospfd/ospfd"
	"github.com/ospfd/ospfd/internal/iface"
	"github.com/ospfd/ospfd/internal/neighbor"
)

// tick drives one second's worth of timer decrements and the work they
// trigger, across every registered interface.
func (r *Router) tick() {
	for _, bi := range r.snapshotBound() {
		r.tickInterface(bi)
	}
}

func (r *Router) tickInterface(bi *boundInterface) {
	i := bi.ifi
	interfaceStateGauge.WithLabelValues(i.Name).Set(float64(i.State()))

	if i.State() == iface.Down {
		i.HandleEvent(iface.InterfaceUp)
		bi.waitRemaining = i.RouterDeadInterval
	}

	if i.State() == iface.Waiting {
		bi.waitRemaining -= time.Second
		if bi.waitRemaining <= 0 {
			r.fireInterfaceTimer(bi, iface.WaitTimer)
		}
	}

	bi.helloRemaining -= time.Second
	if bi.helloRemaining <= 0 {
		r.sendHello(bi)
		bi.helloRemaining = i.HelloInterval
	}

	for _, n := range i.Neighbors() {
		r.tickNeighbor(bi, n)
	}
}

func (r *Router) fireInterfaceTimer(bi *boundInterface, ev iface.Event) {
	_, changed := bi.ifi.HandleEvent(ev)
	if changed {
		r.onElectionChanged(bi)
	}
}

// onElectionChanged re-originates this router's Router-LSA (its view of the
// interface's link type changed) and, if this router is DR after the
// change, originates the interface's Network-LSA; it also raises AdjOK? on every
// neighbor so each can reconsider its adjacency desirability.
func (r *Router) onElectionChanged(bi *boundInterface) {
	for _, n := range bi.ifi.Neighbors() {
		if n.State() < neighbor.TwoWay {
			continue
		}
		n.HandleEvent(neighbor.AdjOK, bi.ifi.AdjacencyContext(n), 0)
	}

	r.reoriginateRouterLSA()

	if bi.ifi.IsDR() {
		r.originateNetworkLSA(bi)
	}
}

func (r *Router) tickNeighbor(bi *boundInterface, n *neighbor.Neighbor) {
	neighborStateGauge.WithLabelValues(bi.ifi.Name, n.RouterID.String()).Set(float64(n.State()))

	if n.TickInactivity() {
		n.HandleEvent(neighbor.InactivityTimer, bi.ifi.AdjacencyContext(n), 0)
		bi.ifi.RemoveNeighbor(n.IPAddress)
		r.reoriginateRouterLSA()
		return
	}

	if n.TickRxmt() {
		r.retransmit(bi, n)
		n.ResetRxmtTimer(bi.ifi.RxmtInterval)
	}
}

// retransmit resends whatever this neighbor's state demands: a negotiation
// DD in EXSTART, the next DD segment in EXCHANGE, outstanding LSRs in
// EXCHANGE/LOADING, or unacknowledged LSU entries at any adjacency stage.
func (r *Router) retransmit(bi *boundInterface, n *neighbor.Neighbor) {
	switch n.State() {
	case neighbor.ExStart:
		r.sendDD(bi, n)
	case neighbor.Exchange:
		r.sendLSR(bi, n)
		r.sendDD(bi, n)
	case neighbor.Loading:
		r.sendLSR(bi, n)
	}

	if retrans := n.RetransmitList(); len(retrans) > 0 {
		r.sendLSU(bi, n, retrans)
	}
}

func (r *Router) sendHello(bi *boundInterface) {
	i := bi.ifi
	neighborIDs := make([]ospf2.ID, 0)
	for _, n := range i.Neighbors() {
		if n.State() >= neighbor.Init {
			neighborIDs = append(neighborIDs, n.RouterID)
		}
	}

	hello := &ospf2.Hello{
		Header:                 ospf2.Header{RouterID: r.RouterID, AreaID: r.AreaID},
		NetworkMask:            i.Mask.Uint32(),
		HelloInterval:          i.HelloInterval,
		RouterPriority:         i.Priority,
		RouterDeadInterval:     i.RouterDeadInterval,
		DesignatedRouter:       i.DR(),
		BackupDesignatedRouter: i.BDR(),
		NeighborIDs:            neighborIDs,
	}

	r.writeTo(bi, hello, ospf2.AllSPFRouters)
}

// sendDD resends the cached outgoing DD if one is outstanding — per RFC
// 2328 section 10.8, a retransmission must carry the identical content —
// and otherwise pops the next batch off the db_summary_list and caches it
// before sending.
func (r *Router) sendDD(bi *boundInterface, n *neighbor.Neighbor) {
	if cached, ok := n.CachedDD(); ok {
		r.writeToNeighbor(bi, n, cached)
		return
	}

	flags := ospf2.DDFlags(0)
	if n.IsMaster() {
		flags = ospf2.MSBit
	}

	headers := n.PopSummary(maxLSAsPerDD)
	if n.SummaryRemaining() {
		flags |= ospf2.MBit
	}

	dd := &ospf2.DatabaseDescription{
		Header:         ospf2.Header{RouterID: r.RouterID, AreaID: r.AreaID},
		InterfaceMTU:   1500,
		Flags:          flags,
		SequenceNumber: n.NextSequence(),
		LSAs:           headers,
	}

	n.CacheSentDD(dd)
	r.writeToNeighbor(bi, n, dd)
}

func (r *Router) sendLSR(bi *boundInterface, n *neighbor.Neighbor) {
	keys := n.RequestList()
	if len(keys) == 0 {
		return
	}

	lsr := &ospf2.LinkStateRequest{
		Header: ospf2.Header{RouterID: r.RouterID, AreaID: r.AreaID},
		LSAs:   keys,
	}
	r.writeToNeighbor(bi, n, lsr)
}

func (r *Router) sendLSU(bi *boundInterface, n *neighbor.Neighbor, lsas []ospf2.LSA) {
	lsu := &ospf2.LinkStateUpdate{
		Header: ospf2.Header{RouterID: r.RouterID, AreaID: r.AreaID},
		LSAs:   lsas,
	}
	r.writeToNeighbor(bi, n, lsu)
}

func (r *Router) sendLSAck(bi *boundInterface, n *neighbor.Neighbor, headers []ospf2.LSAHeader) {
	ack := &ospf2.LinkStateAcknowledgement{
		Header: ospf2.Header{RouterID: r.RouterID, AreaID: r.AreaID},
		LSAs:   headers,
	}
	r.writeToNeighbor(bi, n, ack)
}

func (r *Router) writeToNeighbor(bi *boundInterface, n *neighbor.Neighbor, m ospf2.Message) {
	r.writeTo(bi, m, &net.IPAddr{IP: n.IPAddress.IP()})
}

func (r *Router) writeTo(bi *boundInterface, m ospf2.Message, dst *net.IPAddr) {
	if err := bi.conn.WriteTo(m, dst); err != nil {
		r.log.WithError(err).WithField("interface", bi.ifi.Name).Warn("sendto failed")
	}
}

// maxLSAsPerDD bounds the number of LSA headers described per outgoing DD
// segment.
const maxLSAsPerDD = 32
