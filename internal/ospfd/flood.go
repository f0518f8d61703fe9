package ospfd

import (
	"github.com/ospfd/ospfd"
	"github.com/ospfd/ospfd/internal/neighbor"
)

// FloodLSA implements lsdb.Flooder: send an LSU carrying lsa out every
// interface except origin, to AllDRouters on a DR interface and
// AllSPFRouters otherwise, per RFC 2328 section 13.3. The outgoing copy's
// age is bumped by the egress interface's InfTransDelay, capped at MaxAge,
// per RFC 2328 section 13.3's transmission-delay rule; the stored copy in
// the database is untouched. lsa is also enqueued on every
// Exchange-or-later neighbor's retransmit list on those interfaces, so the
// send loop's rxmt timer keeps resending it until acknowledged.
func (r *Router) FloodLSA(lsa ospf2.LSA, origin string) {
	for _, bi := range r.snapshotBound() {
		if bi.ifi.Name == origin {
			continue
		}

		dst := ospf2.AllSPFRouters
		if bi.ifi.IsDR() {
			dst = ospf2.AllDRouters
		}

		outgoing := lsa
		outgoing.Header.Age += bi.ifi.InfTransDelay
		if outgoing.Header.Age > ospf2.MaxAge {
			outgoing.Header.Age = ospf2.MaxAge
		}

		if err := bi.conn.WriteTo(&ospf2.LinkStateUpdate{
			Header: ospf2.Header{RouterID: r.RouterID, AreaID: r.AreaID},
			LSAs:   []ospf2.LSA{outgoing},
		}, dst); err != nil {
			r.log.WithError(err).WithField("interface", bi.ifi.Name).Warn("flood sendto failed")
		}

		for _, n := range bi.ifi.Neighbors() {
			if n.State() >= neighbor.Exchange {
				n.EnqueueRetransmit(lsa)
			}
		}
	}
}
