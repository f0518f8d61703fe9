package neighbor

import "github.com/ospfd/ospfd"

// NegotiateMaster decides DD master/slave roles on entering EXSTART, per
// RFC 2328 section 10.6: the candidate with the larger Router ID wins; the
// loser clears MS and adopts the winner's sequence number. selfID is this
// router's own Router ID.
func (n *Neighbor) NegotiateMaster(selfID ospf2.ID, peerSeq uint32) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if selfID.Uint32() > n.RouterID.Uint32() {
		n.isMaster = true
		return
	}

	n.isMaster = false
	n.ddSequence = peerSeq
}

// NextSequence returns the DD sequence number to use for the next outgoing
// DD, bumping it first if this router is the master.
func (n *Neighbor) NextSequence() uint32 {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.isMaster {
		n.ddSequence++
	}
	return n.ddSequence
}

// IsDuplicateDD reports whether a received DD's sequence number and flags
// match the last one processed (a retransmission rather than new data).
func (n *Neighbor) IsDuplicateDD(seq uint32, flags ospf2.DDFlags) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.haveReceivedDD && seq == n.lastDDSequence && flags == n.lastDDFlags
}

// DDMismatch reports whether a received DD should raise SeqNumberMismatch,
// per RFC 2328 section 10.8: the Initialize bit is set again after
// negotiation, the sender's claimed master/slave role contradicts what
// NegotiateMaster already decided, or the Options field changed from the
// last DD processed in this exchange.
func (n *Neighbor) DDMismatch(options ospf2.Options, flags ospf2.DDFlags) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if flags&ospf2.IBit != 0 {
		return true
	}
	if senderClaimsMaster := flags&ospf2.MSBit != 0; senderClaimsMaster == n.isMaster {
		return true
	}
	return n.haveReceivedDD && options != n.lastDDOptions
}

// RecordDD stashes the sequence number, options, and flags of a
// just-processed DD, so a subsequent retransmission can be recognized by
// IsDuplicateDD and a later mismatch by DDMismatch, and advances the echo
// sequence a slave sends back to the master.
func (n *Neighbor) RecordDD(seq uint32, options ospf2.Options, flags ospf2.DDFlags) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.haveReceivedDD = true
	n.lastDDSequence = seq
	n.lastDDOptions = options
	n.lastDDFlags = flags

	if !n.isMaster {
		n.ddSequence = seq
	}
}

// CacheSentDD stashes dd as the most recently transmitted Database
// Description, so the retransmission timer can resend the identical
// message instead of popping a fresh batch off the db_summary_list.
func (n *Neighbor) CacheSentDD(dd *ospf2.DatabaseDescription) {
	n.ddSentMu.Lock()
	defer n.ddSentMu.Unlock()
	n.lastSentDD = dd
}

// CachedDD returns the most recently cached outgoing DD, if any.
func (n *Neighbor) CachedDD() (*ospf2.DatabaseDescription, bool) {
	n.ddSentMu.Lock()
	defer n.ddSentMu.Unlock()
	return n.lastSentDD, n.lastSentDD != nil
}

// InvalidateCachedDD clears the cached outgoing DD. Called once a
// non-duplicate DD arrives from the peer, confirming the cached one was
// received, so the next retransmit builds and sends the next segment.
func (n *Neighbor) InvalidateCachedDD() {
	n.ddSentMu.Lock()
	defer n.ddSentMu.Unlock()
	n.lastSentDD = nil
}
