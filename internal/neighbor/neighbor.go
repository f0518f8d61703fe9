// Package neighbor implements the per-neighbor OSPFv2 adjacency state
// machine: states DOWN through FULL, the named RFC 2328 section 10.3
// events, and the database-description/request/retransmit list bookkeeping
// the Database Exchange and Flooding procedures need.
package neighbor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ospfd/ospfd"
)

// State is a neighbor adjacency state. States are ordered per RFC 2328
// section 10.1: DOWN < ATTEMPT < INIT < TWOWAY < EXSTART < EXCHANGE <
// LOADING < FULL.
type State int

// Possible neighbor states.
const (
	Down State = iota
	Attempt
	Init
	TwoWay
	ExStart
	Exchange
	Loading
	Full
)

func (s State) String() string {
	switch s {
	case Down:
		return "Down"
	case Attempt:
		return "Attempt"
	case Init:
		return "Init"
	case TwoWay:
		return "TwoWay"
	case ExStart:
		return "ExStart"
	case Exchange:
		return "Exchange"
	case Loading:
		return "Loading"
	case Full:
		return "Full"
	default:
		return "Unknown"
	}
}

// Event is one of the named neighbor events from RFC 2328 section 10.3.
type Event int

// Possible Events.
const (
	HelloReceived Event = iota
	Start
	TwoWayReceived
	NegotiationDone
	ExchangeDone
	LoadingDone
	AdjOK
	SeqNumberMismatch
	BadLSReq
	OneWayReceived
	KillNbr
	InactivityTimer
	LLDown
)

func (e Event) String() string {
	switch e {
	case HelloReceived:
		return "HelloReceived"
	case Start:
		return "Start"
	case TwoWayReceived:
		return "2-WayReceived"
	case NegotiationDone:
		return "NegotiationDone"
	case ExchangeDone:
		return "ExchangeDone"
	case LoadingDone:
		return "LoadingDone"
	case AdjOK:
		return "AdjOK?"
	case SeqNumberMismatch:
		return "SeqNumberMismatch"
	case BadLSReq:
		return "BadLSReq"
	case OneWayReceived:
		return "1-WayReceived"
	case KillNbr:
		return "KillNbr"
	case InactivityTimer:
		return "InactivityTimer"
	case LLDown:
		return "LLDown"
	default:
		return "Unknown"
	}
}

// AdjacencyContext carries the information EstabAdj needs from the owning
// interface, passed in rather than imported to keep this package free of a
// dependency on internal/iface.
type AdjacencyContext struct {
	// PointToPoint is true when the interface's link type is P2P, P2MP,
	// or VIRTUAL.
	PointToPoint bool

	SelfIsDR, SelfIsBDR         bool
	NeighborIsDR, NeighborIsBDR bool
}

// EstabAdj reports whether a full adjacency should be established with this
// neighbor, per RFC 2328 section 10.4: true iff the interface is
// P2P/P2MP/VIRTUAL, or self or the neighbor is DR or BDR on the interface.
func EstabAdj(ctx AdjacencyContext) bool {
	return ctx.PointToPoint || ctx.SelfIsDR || ctx.SelfIsBDR || ctx.NeighborIsDR || ctx.NeighborIsBDR
}

var ddSeed uint32

func nextDDSeed() uint32 {
	return atomic.AddUint32(&ddSeed, 1)
}

// A Neighbor is one OSPFv2 adjacency, keyed by the neighbor's IP address on
// a particular interface.
type Neighbor struct {
	log *logrus.Entry

	RouterID  ospf2.ID
	IPAddress ospf2.ID
	Priority  uint8
	DR        ospf2.ID
	BDR       ospf2.ID

	mu              sync.Mutex
	state           State
	isMaster        bool
	ddSequence      uint32
	lastDDSequence  uint32
	lastDDOptions   ospf2.Options
	lastDDFlags     ospf2.DDFlags
	haveReceivedDD  bool
	inactivityTimer time.Duration
	rxmtTimer       time.Duration

	summaryMu   sync.Mutex
	dbSummary   []ospf2.LSAHeader

	requestMu sync.Mutex
	request   []ospf2.Key

	retransmitMu sync.Mutex
	retransmit   []ospf2.LSA

	ddSentMu   sync.Mutex
	lastSentDD *ospf2.DatabaseDescription
}

// New returns a Neighbor in state DOWN.
func New(log *logrus.Logger, routerID, ip ospf2.ID, priority uint8) *Neighbor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Neighbor{
		log: log.WithFields(logrus.Fields{
			"component": "neighbor",
			"router_id": routerID,
			"ip":        ip,
		}),
		RouterID:  routerID,
		IPAddress: ip,
		Priority:  priority,
		state:     Down,
	}
}

// State returns the neighbor's current state.
func (n *Neighbor) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// IsMaster reports whether this router is the DD exchange master for this
// neighbor.
func (n *Neighbor) IsMaster() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.isMaster
}

// clearLists empties the three per-neighbor LSA lists, as required on every
// downgrade transition (1-WayReceived, SeqNumberMismatch/BadLSReq, AdjOK?
// losing the adjacency, and any transition to DOWN).
func (n *Neighbor) clearLists() {
	n.summaryMu.Lock()
	n.dbSummary = nil
	n.summaryMu.Unlock()

	n.requestMu.Lock()
	n.request = nil
	n.requestMu.Unlock()

	n.retransmitMu.Lock()
	n.retransmit = nil
	n.retransmitMu.Unlock()

	n.ddSentMu.Lock()
	n.lastSentDD = nil
	n.ddSentMu.Unlock()
}

// HandleEvent applies ev to the neighbor's state machine and returns the
// resulting state. deadInterval is used only by HelloReceived, to reset the
// inactivity timer; other events ignore it.
func (n *Neighbor) HandleEvent(ev Event, ctx AdjacencyContext, deadInterval time.Duration) State {
	n.mu.Lock()
	defer n.mu.Unlock()

	old := n.state

	switch ev {
	case HelloReceived:
		n.inactivityTimer = deadInterval
		if old <= Init {
			n.state = Init
		}

	case Start:
		if old == Down {
			n.state = Attempt
		}

	case TwoWayReceived:
		if old != Init {
			break
		}
		if !EstabAdj(ctx) {
			n.state = TwoWay
			break
		}
		n.enterExStartLocked()

	case NegotiationDone:
		if old == ExStart {
			n.state = Exchange
		}

	case ExchangeDone:
		if old == Exchange {
			if len(n.requestLocked()) == 0 {
				n.state = Full
			} else {
				n.state = Loading
			}
		}

	case LoadingDone:
		if old == Loading {
			n.state = Full
		}

	case AdjOK:
		switch {
		case old == TwoWay && EstabAdj(ctx):
			n.enterExStartLocked()
		case old >= ExStart && !EstabAdj(ctx):
			n.state = TwoWay
			n.mu.Unlock()
			n.clearLists()
			n.mu.Lock()
		}

	case SeqNumberMismatch, BadLSReq:
		if old >= Exchange {
			n.enterExStartLocked()
			n.mu.Unlock()
			n.clearLists()
			n.mu.Lock()
		}

	case OneWayReceived:
		if old >= TwoWay {
			n.state = Init
			n.mu.Unlock()
			n.clearLists()
			n.mu.Lock()
		}

	case KillNbr, InactivityTimer, LLDown:
		n.state = Down
		n.inactivityTimer = 0
		n.rxmtTimer = 0
		n.mu.Unlock()
		n.clearLists()
		n.mu.Lock()
	}

	if n.state != old {
		n.log.WithFields(logrus.Fields{"event": ev, "from": old, "to": n.state}).Debug("neighbor state transition")
	}

	return n.state
}

// enterExStartLocked transitions to EXSTART and resets DD negotiation
// state. Callers must hold n.mu.
func (n *Neighbor) enterExStartLocked() {
	n.state = ExStart
	n.ddSequence = nextDDSeed()
	n.isMaster = false
	n.haveReceivedDD = false
}

func (n *Neighbor) requestLocked() []ospf2.Key {
	n.requestMu.Lock()
	defer n.requestMu.Unlock()
	return n.request
}

// RequestList returns a copy of the outstanding link_state_request_list.
func (n *Neighbor) RequestList() []ospf2.Key {
	n.requestMu.Lock()
	defer n.requestMu.Unlock()
	return append([]ospf2.Key(nil), n.request...)
}

// EnqueueRequest appends k to the link_state_request_list if not already
// present.
func (n *Neighbor) EnqueueRequest(k ospf2.Key) {
	n.requestMu.Lock()
	defer n.requestMu.Unlock()

	for _, existing := range n.request {
		if existing == k {
			return
		}
	}
	n.request = append(n.request, k)
}

// DequeueRequest removes k from the link_state_request_list. It returns
// whether the list is now empty.
func (n *Neighbor) DequeueRequest(k ospf2.Key) (empty bool) {
	n.requestMu.Lock()
	defer n.requestMu.Unlock()

	for i, existing := range n.request {
		if existing == k {
			n.request = append(n.request[:i], n.request[i+1:]...)
			break
		}
	}
	return len(n.request) == 0
}

// SetSummaryList installs the full set of LSA headers the DD exchange must
// describe to this neighbor, taken from a consistent LSDB snapshot at the
// moment NegotiationDone fires.
func (n *Neighbor) SetSummaryList(headers []ospf2.LSAHeader) {
	n.summaryMu.Lock()
	defer n.summaryMu.Unlock()
	n.dbSummary = append([]ospf2.LSAHeader(nil), headers...)
}

// PopSummary removes and returns up to max headers from the front of the
// db_summary_list, for inclusion in the next outgoing DD.
func (n *Neighbor) PopSummary(max int) []ospf2.LSAHeader {
	n.summaryMu.Lock()
	defer n.summaryMu.Unlock()

	if max > len(n.dbSummary) {
		max = len(n.dbSummary)
	}
	out := append([]ospf2.LSAHeader(nil), n.dbSummary[:max]...)
	n.dbSummary = n.dbSummary[max:]
	return out
}

// SummaryRemaining reports whether the db_summary_list is non-empty.
func (n *Neighbor) SummaryRemaining() bool {
	n.summaryMu.Lock()
	defer n.summaryMu.Unlock()
	return len(n.dbSummary) > 0
}

// EnqueueRetransmit appends lsa to the link_state_retransmit_list.
func (n *Neighbor) EnqueueRetransmit(lsa ospf2.LSA) {
	n.retransmitMu.Lock()
	defer n.retransmitMu.Unlock()
	n.retransmit = append(n.retransmit, lsa)
}

// AckRetransmit removes the retransmit-list entry matching k, acknowledging
// it (called on receipt of an LSAck, or implicitly on receipt of a newer
// LSU carrying the same LSA).
func (n *Neighbor) AckRetransmit(k ospf2.Key) {
	n.retransmitMu.Lock()
	defer n.retransmitMu.Unlock()

	for i, lsa := range n.retransmit {
		if lsa.Header.Key == k {
			n.retransmit = append(n.retransmit[:i], n.retransmit[i+1:]...)
			return
		}
	}
}

// RetransmitList returns a copy of the outstanding link_state_retransmit_list.
func (n *Neighbor) RetransmitList() []ospf2.LSA {
	n.retransmitMu.Lock()
	defer n.retransmitMu.Unlock()
	return append([]ospf2.LSA(nil), n.retransmit...)
}

// TickRxmt decrements the retransmit timer by one second and reports
// whether it just expired (the caller should resend and then call
// ResetRxmtTimer).
func (n *Neighbor) TickRxmt() bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.rxmtTimer <= 0 {
		return false
	}
	n.rxmtTimer -= time.Second
	return n.rxmtTimer <= 0
}

// ResetRxmtTimer resets the retransmission timer to interval.
func (n *Neighbor) ResetRxmtTimer(interval time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rxmtTimer = interval
}

// TickInactivity decrements the inactivity timer by one second and reports
// whether it has just reached zero (the caller should raise InactivityTimer).
func (n *Neighbor) TickInactivity() bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.inactivityTimer <= 0 {
		return false
	}
	n.inactivityTimer -= time.Second
	return n.inactivityTimer <= 0
}
