// Package iface implements the OSPFv2 interface state machine, including
// Designated Router and Backup Designated Router election, and owns the set
// of neighbors reachable on that interface.
package iface

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ospfd/ospfd"
	"github.com/ospfd/ospfd/internal/neighbor"
)

// LinkType is the OSPF interface network type, per RFC 2328 section 1.2.
type LinkType int

// Possible LinkType values.
const (
	PointToPoint LinkType = iota + 1
	Broadcast
	NBMA
	PointToMultipoint
	Virtual
)

func (t LinkType) String() string {
	switch t {
	case PointToPoint:
		return "PointToPoint"
	case Broadcast:
		return "Broadcast"
	case NBMA:
		return "NBMA"
	case PointToMultipoint:
		return "PointToMultipoint"
	case Virtual:
		return "Virtual"
	default:
		return "Unknown"
	}
}

// pointToPoint reports whether t is one of the types that never runs DR/BDR
// election, per RFC 2328 section 9.
func (t LinkType) pointToPoint() bool {
	return t == PointToPoint || t == PointToMultipoint || t == Virtual
}

// State is an interface's operational state, per RFC 2328 section 9.1.
type State int

// Possible interface States.
const (
	Down State = iota
	Loopback
	Waiting
	Point2Point
	DROther
	Backup
	DR
)

func (s State) String() string {
	switch s {
	case Down:
		return "Down"
	case Loopback:
		return "Loopback"
	case Waiting:
		return "Waiting"
	case Point2Point:
		return "Point2Point"
	case DROther:
		return "DROther"
	case Backup:
		return "Backup"
	case DR:
		return "DR"
	default:
		return "Unknown"
	}
}

// Event is a named interface event, per RFC 2328 section 9.3.
type Event int

// Possible interface Events.
const (
	InterfaceUp Event = iota
	WaitTimer
	BackupSeen
	NeighborChange
	LoopInd
	UnloopInd
	InterfaceDown
)

// An Interface is one OSPFv2-speaking network interface.
type Interface struct {
	log *logrus.Entry

	Name      string
	Type      LinkType
	IfIndex   int
	IPAddress ospf2.ID
	Mask      ospf2.ID
	AreaID    ospf2.ID

	HelloInterval      time.Duration
	RouterDeadInterval time.Duration
	RxmtInterval       time.Duration
	InfTransDelay      time.Duration
	Cost               uint16
	Priority           uint8

	mu         sync.Mutex
	state      State
	dr, bdr    ospf2.ID
	waitExpiry time.Duration

	neighborsMu sync.Mutex
	neighbors   map[ospf2.ID]*neighbor.Neighbor
}

// New returns an Interface in state DOWN.
func New(log *logrus.Logger, name string, ifIndex int, typ LinkType, ip, mask, area ospf2.ID) *Interface {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Interface{
		log: log.WithFields(logrus.Fields{
			"component": "iface",
			"interface": name,
		}),
		Name:               name,
		Type:               typ,
		IfIndex:            ifIndex,
		IPAddress:          ip,
		Mask:               mask,
		AreaID:             area,
		HelloInterval:      10 * time.Second,
		RouterDeadInterval: 40 * time.Second,
		RxmtInterval:       5 * time.Second,
		InfTransDelay:      1 * time.Second,
		Cost:               1,
		Priority:           1,
		state:              Down,
		neighbors:          make(map[ospf2.ID]*neighbor.Neighbor),
	}
}

// State returns the interface's current operational state.
func (i *Interface) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// DR and BDR return the currently elected Designated Router and Backup
// Designated Router addresses (the zero ID if none elected).
func (i *Interface) DR() ospf2.ID {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.dr
}

func (i *Interface) BDR() ospf2.ID {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.bdr
}

// IsDR and IsBDR report whether this router itself is DR/BDR on the
// interface.
func (i *Interface) IsDR() bool  { return i.DR() == i.IPAddress }
func (i *Interface) IsBDR() bool { return i.BDR() == i.IPAddress }

// Neighbor returns the Neighbor keyed by ip, creating it in state DOWN if
// absent. The Interface owns its neighbors rather than the process holding
// a separate global map.
func (i *Interface) Neighbor(ip ospf2.ID) *neighbor.Neighbor {
	i.neighborsMu.Lock()
	defer i.neighborsMu.Unlock()

	n, ok := i.neighbors[ip]
	if !ok {
		n = neighbor.New(nil, ip, ip, 0)
		i.neighbors[ip] = n
	}
	return n
}

// Neighbors returns a snapshot slice of every neighbor currently known on
// this interface.
func (i *Interface) Neighbors() []*neighbor.Neighbor {
	i.neighborsMu.Lock()
	defer i.neighborsMu.Unlock()

	out := make([]*neighbor.Neighbor, 0, len(i.neighbors))
	for _, n := range i.neighbors {
		out = append(out, n)
	}
	return out
}

// RemoveNeighbor deletes the neighbor keyed by ip.
func (i *Interface) RemoveNeighbor(ip ospf2.ID) {
	i.neighborsMu.Lock()
	defer i.neighborsMu.Unlock()
	delete(i.neighbors, ip)
}

// AdjacencyContext builds the neighbor.AdjacencyContext used to decide
// whether a full adjacency should form with n, based on this interface's
// link type and the current DR/BDR.
func (i *Interface) AdjacencyContext(n *neighbor.Neighbor) neighbor.AdjacencyContext {
	dr, bdr := i.DR(), i.BDR()
	return neighbor.AdjacencyContext{
		PointToPoint:  i.Type.pointToPoint(),
		SelfIsDR:      dr == i.IPAddress,
		SelfIsBDR:     bdr == i.IPAddress,
		NeighborIsDR:  dr == n.IPAddress,
		NeighborIsBDR: bdr == n.IPAddress,
	}
}

// HandleEvent applies ev to the interface state machine and returns the
// resulting state along with whether the DR/BDR election changed as a
// result (callers should raise AdjOK? on every neighbor whose desirability
// changed when this is true, and re-originate Router/Network LSAs).
func (i *Interface) HandleEvent(ev Event) (state State, electionChanged bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	old := i.state
	oldDR, oldBDR := i.dr, i.bdr

	switch ev {
	case InterfaceUp:
		if i.Type.pointToPoint() {
			i.state = Point2Point
		} else {
			i.state = Waiting
		}

	case WaitTimer:
		if i.state == Waiting {
			i.electLocked()
		}

	case BackupSeen:
		if i.state == Waiting {
			i.electLocked()
		}

	case NeighborChange:
		if i.state == DR || i.state == Backup || i.state == DROther {
			i.electLocked()
		}

	case LoopInd:
		i.state = Loopback

	case UnloopInd:
		if i.state == Loopback {
			i.state = Down
		}

	case InterfaceDown:
		i.state = Down
		i.dr, i.bdr = ospf2.ID{}, ospf2.ID{}
	}

	if i.state != old {
		i.log.WithFields(logrus.Fields{"event": eventName(ev), "from": old, "to": i.state}).Info("interface state transition")
	}

	return i.state, i.dr != oldDR || i.bdr != oldBDR
}

func eventName(ev Event) string {
	switch ev {
	case InterfaceUp:
		return "InterfaceUp"
	case WaitTimer:
		return "WaitTimer"
	case BackupSeen:
		return "BackupSeen"
	case NeighborChange:
		return "NeighborChange"
	case LoopInd:
		return "LoopInd"
	case UnloopInd:
		return "UnloopInd"
	case InterfaceDown:
		return "InterfaceDown"
	default:
		return "Unknown"
	}
}

// electLocked runs DR/BDR election (including the two-pass re-election
// rule) and updates i.state accordingly. Callers must hold i.mu.
func (i *Interface) electLocked() {
	candidates := i.candidatesLocked()

	dr, bdr := elect(candidates)
	changed := dr != i.dr || bdr != i.bdr
	i.dr, i.bdr = dr, bdr

	// Two-pass rule: if the first pass changed DR or BDR, the candidate
	// set's view of "self" may change (since a candidate's self-declared
	// DR/BDR reflects the previous round), so the computation is repeated
	// once more.
	if changed {
		candidates = i.candidatesLocked()
		dr, bdr = elect(candidates)
		i.dr, i.bdr = dr, bdr
	}

	switch {
	case i.dr == i.IPAddress:
		i.state = DR
	case i.bdr == i.IPAddress:
		i.state = Backup
	default:
		i.state = DROther
	}
}

// Candidate is one entrant in DR/BDR election: either this router (self) or
// a neighbor in state >= TWOWAY with a non-zero priority.
type Candidate struct {
	RouterID    ospf2.ID
	Priority    uint8
	DeclaresDR  bool
	DeclaresBDR bool
}

func (i *Interface) candidatesLocked() []Candidate {
	candidates := []Candidate{{
		RouterID:    i.IPAddress,
		Priority:    i.Priority,
		DeclaresDR:  i.dr == i.IPAddress,
		DeclaresBDR: i.bdr == i.IPAddress,
	}}

	for _, n := range i.Neighbors() {
		if n.State() < neighbor.TwoWay || n.Priority == 0 {
			continue
		}
		candidates = append(candidates, Candidate{
			RouterID:    n.RouterID,
			Priority:    n.Priority,
			DeclaresDR:  n.DR == n.IPAddress,
			DeclaresBDR: n.BDR == n.IPAddress,
		})
	}

	return candidates
}

// elect runs one pass of the RFC 2328 section 9.4 DR/BDR election algorithm
// over candidates and returns the elected (DR, BDR) Router IDs (the zero ID
// if none).
func elect(candidates []Candidate) (dr, bdr ospf2.ID) {
	bdr = electBDR(candidates)

	drCandidates := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.DeclaresDR {
			drCandidates = append(drCandidates, c)
		}
	}

	if len(drCandidates) == 0 {
		return bdr, bdr
	}

	return bestOf(drCandidates), bdr
}

func electBDR(candidates []Candidate) ospf2.ID {
	var pool []Candidate
	for _, c := range candidates {
		if c.DeclaresDR {
			continue
		}
		pool = append(pool, c)
	}

	var declaringBDR []Candidate
	for _, c := range pool {
		if c.DeclaresBDR {
			declaringBDR = append(declaringBDR, c)
		}
	}

	if len(declaringBDR) > 0 {
		return bestOf(declaringBDR)
	}
	if len(pool) > 0 {
		return bestOf(pool)
	}
	return ospf2.ID{}
}

// bestOf picks the winner by (priority desc, Router ID desc).
func bestOf(candidates []Candidate) ospf2.ID {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Priority > best.Priority ||
			(c.Priority == best.Priority && c.RouterID.Uint32() > best.RouterID.Uint32()) {
			best = c
		}
	}
	return best.RouterID
}
