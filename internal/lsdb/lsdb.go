// Package lsdb implements the process-wide Link-State Database: a
// concurrency-safe store of LSAs partitioned by type, with RFC 2328 section
// 13.1 freshness ordering, local origination, and flood fan-out.
package lsdb

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/ospfd/ospfd"
)

// A Flooder sends an LSA as a Link State Update to the interfaces that
// should receive it, per RFC 2328 section 13.3. It is implemented by
// internal/ospfd once interfaces exist; the DB never constructs sockets
// itself.
type Flooder interface {
	FloodLSA(lsa ospf2.LSA, origin string)
}

// DB is the Link-State Database. The zero value is not usable; construct one
// with New. A single mutex guards every partition, matching the "one mutex
// covers all partitions" concurrency note: every read and write acquires it,
// and SPF takes its consistent snapshot while holding it.
type DB struct {
	log *logrus.Entry

	mu      sync.Mutex
	entries map[ospf2.Key]ospf2.LSA

	// seq is the single monotonic sequence counter shared by every
	// locally-originated LSA, so two LSAs never race to reuse a number.
	seq uint32

	flooder Flooder

	changeMu sync.Mutex
	changeCs []chan struct{}
}

// New returns an empty DB.
func New(log *logrus.Logger) *DB {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &DB{
		log:     log.WithField("component", "lsdb"),
		entries: make(map[ospf2.Key]ospf2.LSA),
		seq:     ospf2.InitialSequenceNumber - 1,
	}
}

// SetFlooder installs the Flooder used by Flood. It is separate from New so
// that internal/ospfd can wire the DB and its transport in either order.
func (d *DB) SetFlooder(f Flooder) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.flooder = f
}

// Get returns the LSA identified by k, if present.
func (d *DB) Get(k ospf2.Key) (ospf2.LSA, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	lsa, ok := d.entries[k]
	return lsa, ok
}

// Insert stores lsa if no entry with the same identity exists, or if lsa is
// strictly fresher than the existing one per ospf2.LSAHeader.Fresher.
// Insert reports whether the stored LSA was replaced or newly added.
func (d *DB) Insert(lsa ospf2.LSA) bool {
	d.mu.Lock()
	refreshed := d.insertLocked(lsa)
	d.mu.Unlock()

	if refreshed {
		d.notify()
	}
	return refreshed
}

func (d *DB) insertLocked(lsa ospf2.LSA) bool {
	k := lsa.Header.Key
	existing, ok := d.entries[k]
	if ok && !lsa.Header.Fresher(existing.Header) {
		return false
	}

	d.entries[k] = lsa
	d.log.WithFields(logrus.Fields{
		"type":     k.Type,
		"ls_id":    k.LinkStateID,
		"adv_rtr":  k.AdvertisingRouter,
		"sequence": lsa.Header.SequenceNumber,
	}).Debug("installed LSA")

	return true
}

// Remove deletes the LSA identified by k, if present.
func (d *DB) Remove(k ospf2.Key) {
	d.mu.Lock()
	_, existed := d.entries[k]
	delete(d.entries, k)
	d.mu.Unlock()

	if existed {
		d.notify()
	}
}

// Snapshot returns every LSA currently in the database. The returned slice
// is a private copy and safe to range over without holding the lock, so
// that internal/spf can build its graph from a single consistent read.
func (d *DB) Snapshot() []ospf2.LSA {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]ospf2.LSA, 0, len(d.entries))
	for _, lsa := range d.entries {
		out = append(out, lsa)
	}
	return out
}

// Subscribe returns a channel that receives a value every time the database
// changes (an Insert that replaces/adds an entry, or a Remove of an existing
// one). The channel has a buffer of 1 and drops notifications the consumer
// hasn't caught up with yet, so that a burst of floods coalesces into one
// SPF recomputation, matching the "short debounce is acceptable" allowance.
func (d *DB) Subscribe() <-chan struct{} {
	c := make(chan struct{}, 1)

	d.changeMu.Lock()
	d.changeCs = append(d.changeCs, c)
	d.changeMu.Unlock()

	return c
}

func (d *DB) notify() {
	d.changeMu.Lock()
	defer d.changeMu.Unlock()

	for _, c := range d.changeCs {
		select {
		case c <- struct{}{}:
		default:
		}
	}
}

// nextSequence returns the next sequence number to assign to a
// locally-originated LSA.
func (d *DB) nextSequence() uint32 {
	return atomic.AddUint32(&d.seq, 1)
}

// Flood sends lsa as a Link State Update via the installed Flooder. origin
// identifies the interface the LSA arrived on (empty for locally-originated
// LSAs), so the Flooder can observe the split-horizon exception of not
// flooding an LSA back out the interface it arrived on.
func (d *DB) Flood(lsa ospf2.LSA, origin string) {
	d.mu.Lock()
	f := d.flooder
	d.mu.Unlock()

	if f == nil {
		d.log.Warn("flood requested before a Flooder was installed")
		return
	}
	f.FloodLSA(lsa, origin)
}
