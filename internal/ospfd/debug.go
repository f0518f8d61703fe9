package ospfd

import (
	"fmt"
	"io"
)

// dumpDebug writes the current routing table and neighbor states to out,
// for the operator "debug" command.
func (r *Router) dumpDebug(out io.Writer) {
	fmt.Fprintln(out, "routing table:")
	for _, e := range r.fibTable.Entries() {
		if e.Direct {
			fmt.Fprintf(out, "  %s direct cost %d via %s\n", e.Dest, e.Metric, e.Iface)
			continue
		}
		fmt.Fprintf(out, "  %s via %s cost %d dev %s\n", e.Dest, e.NextHop, e.Metric, e.Iface)
	}

	fmt.Fprintln(out, "neighbors:")
	for _, bi := range r.snapshotBound() {
		for _, n := range bi.ifi.Neighbors() {
			fmt.Fprintf(out, "  %s on %s: %s (router-id %s)\n", n.IPAddress, bi.ifi.Name, n.State(), n.RouterID)
		}
	}
}
