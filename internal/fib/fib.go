// Package fib holds the routing table SPF computes and installs it into
// the kernel forwarding table.
package fib

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/gaissmai/bart"
	"github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"
)

// An Entry is one routing table entry: a destination network reached via
// NextHop out of Iface, at the given Metric. Direct is true for entries
// whose destination is directly attached (next hop 0), which per the
// diffing contract are never removed once installed.
type Entry struct {
	Dest    netip.Prefix
	NextHop netip.Addr
	Iface   string
	IfIndex int
	Metric  uint32
	Direct  bool
}

// A Table is the routing table SPF produces and diffs against on each run,
// backed by a longest-prefix-match trie so repeated SPF runs over an
// unchanged LSDB produce a diff of zero entries rather than a false-churn
// linear comparison.
type Table struct {
	t *bart.Table[Entry]
}

// New returns an empty Table.
func New() *Table {
	return &Table{t: new(bart.Table[Entry])}
}

// Entries returns every entry currently in the table.
func (t *Table) Entries() []Entry {
	var out []Entry
	for _, e := range t.t.All() {
		out = append(out, e)
	}
	return out
}

// Diff computes the additions and removals needed to turn t into next,
// without mutating either table. Direct entries present in t are never
// included in removals, per the "direct entries are never removed" rule.
func (t *Table) Diff(next *Table) (additions, removals []Entry) {
	for pfx, e := range next.t.All() {
		if old, ok := t.t.Get(pfx); !ok || old != e {
			additions = append(additions, e)
		}
	}

	for pfx, e := range t.t.All() {
		if e.Direct {
			continue
		}
		if _, ok := next.t.Get(pfx); !ok {
			removals = append(removals, e)
		}
	}

	return additions, removals
}

// Replace installs entries as the table's full contents, replacing whatever
// was there before.
func (t *Table) Replace(entries []Entry) {
	nt := new(bart.Table[Entry])
	for _, e := range entries {
		nt.Insert(e.Dest, e)
	}
	t.t = nt
}

// Installer installs and removes routes from the operating system
// forwarding table via netlink.
type Installer struct {
	log *logrus.Entry
}

// NewInstaller returns an Installer.
func NewInstaller(log *logrus.Logger) *Installer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Installer{log: log.WithField("component", "fib")}
}

// Apply installs additions and removes removals via netlink.RouteAdd and
// netlink.RouteDel. Failures are logged and otherwise ignored: a single bad
// route must not abort the rest of the diff. It returns the number of
// failed removals and installations so callers can track them separately.
func (ins *Installer) Apply(additions, removals []Entry) (removeFailures, addFailures int) {
	for _, e := range removals {
		route, err := toNetlinkRoute(e)
		if err != nil {
			ins.log.WithError(err).WithField("dest", e.Dest).Warn("failed to build route for removal")
			removeFailures++
			continue
		}
		if err := netlink.RouteDel(route); err != nil {
			ins.log.WithError(err).WithField("dest", e.Dest).Warn("failed to remove route")
			removeFailures++
			continue
		}
		ins.log.WithField("dest", e.Dest).Info("removed route")
	}

	for _, e := range additions {
		route, err := toNetlinkRoute(e)
		if err != nil {
			ins.log.WithError(err).WithField("dest", e.Dest).Warn("failed to build route for installation")
			addFailures++
			continue
		}
		if err := netlink.RouteAdd(route); err != nil {
			ins.log.WithError(err).WithField("dest", e.Dest).Warn("failed to install route")
			addFailures++
			continue
		}
		ins.log.WithField("dest", e.Dest).Info("installed route")
	}

	return removeFailures, addFailures
}

func toNetlinkRoute(e Entry) (*netlink.Route, error) {
	if !e.Dest.IsValid() {
		return nil, fmt.Errorf("fib: invalid destination prefix")
	}

	ipnet := &net.IPNet{
		IP:   e.Dest.Addr().AsSlice(),
		Mask: net.CIDRMask(e.Dest.Bits(), e.Dest.Addr().BitLen()),
	}

	route := &netlink.Route{
		LinkIndex: e.IfIndex,
		Dst:       ipnet,
		Priority:  int(e.Metric),
	}
	if !e.Direct && e.NextHop.IsValid() {
		route.Gw = e.NextHop.AsSlice()
	}

	return route, nil
}
