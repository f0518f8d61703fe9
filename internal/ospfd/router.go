// Package ospfd ties the packet codec, LSDB, interface/neighbor state
// machines, and SPF/FIB packages together into a runnable daemon: the
// process context, the send/recv/control loops, and the concrete
// lsdb.Flooder and spf.NeighborResolver implementations those packages were
// decoupled to depend on.
package ospfd

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ospfd/ospfd"
	"github.com/ospfd/ospfd/internal/fib"
	"github.com/ospfd/ospfd/internal/iface"
	"github.com/ospfd/ospfd/internal/lsdb"
)

// wireConn is the subset of *ospf2.Conn the send/recv loops need; a narrow
// interface so tests can drive dispatch/flood/send logic against a fake
// without opening a real raw socket.
type wireConn interface {
	WriteTo(m ospf2.Message, dst *net.IPAddr) error
	ReadFrom(buf []byte) (ospf2.Message, *net.IPAddr, error)
	SetReadDeadline(t time.Time) error
	Close() error
}

var _ wireConn = (*ospf2.Conn)(nil)

// boundInterface pairs an owned Interface state machine with the raw
// socket it speaks on and the send loop's own hello/wait countdowns
// (touched only by the single send-loop goroutine, so unguarded).
type boundInterface struct {
	ifi  *iface.Interface
	conn wireConn

	helloRemaining time.Duration
	waitRemaining  time.Duration
}

// A Router is one OSPFv2 process context: the LSDB, the registered
// interfaces, and the installed routing table, all scoped to a single
// running instance rather than held as package-level globals.
type Router struct {
	log *logrus.Entry

	RouterID   ospf2.ID
	AreaID     ospf2.ID
	AreaBorder bool
	ASBoundary bool

	db        *lsdb.DB
	fibTable  *fib.Table
	installer *fib.Installer

	ifacesMu sync.RWMutex
	ifaces   map[string]*boundInterface

	running int32
}

// NewRouter returns a Router in the stopped state. Interfaces must be
// added with AddInterface before Run is called.
func NewRouter(log *logrus.Logger, routerID, areaID ospf2.ID) *Router {
	if log == nil {
		log = logrus.StandardLogger()
	}

	r := &Router{
		log:       log.WithField("component", "ospfd"),
		RouterID:  routerID,
		AreaID:    areaID,
		fibTable:  fib.New(),
		installer: fib.NewInstaller(log),
		ifaces:    make(map[string]*boundInterface),
	}
	r.db = lsdb.New(log)
	r.db.SetFlooder(r)

	return r
}

// AddInterface brings up a raw socket on ifi and registers an Interface
// state machine for it. The socket joins AllDRouters in addition to
// AllSPFRouters only when typ is Broadcast or NBMA.
func (r *Router) AddInterface(ifi *net.Interface, typ iface.LinkType, ip, mask ospf2.ID) error {
	conn, err := ospf2.Listen(ifi, typ.String() != "Broadcast" && typ.String() != "NBMA")
	if err != nil {
		return fmt.Errorf("ospfd: failed to listen on %s: %w", ifi.Name, err)
	}

	i := iface.New(r.log.Logger, ifi.Name, ifi.Index, typ, ip, mask, r.AreaID)

	r.ifacesMu.Lock()
	r.ifaces[ifi.Name] = &boundInterface{ifi: i, conn: conn}
	r.ifacesMu.Unlock()

	return nil
}

// Interfaces returns a snapshot of the registered interfaces.
func (r *Router) Interfaces() []*iface.Interface {
	r.ifacesMu.RLock()
	defer r.ifacesMu.RUnlock()

	out := make([]*iface.Interface, 0, len(r.ifaces))
	for _, bi := range r.ifaces {
		out = append(out, bi.ifi)
	}
	return out
}

// InterfaceByName returns the registered Interface named name, letting
// callers apply configuration overrides before Run starts.
func (r *Router) InterfaceByName(name string) (*iface.Interface, bool) {
	r.ifacesMu.RLock()
	defer r.ifacesMu.RUnlock()

	bi, ok := r.ifaces[name]
	if !ok {
		return nil, false
	}
	return bi.ifi, true
}

// isRunning reports whether the process-wide running flag is still set;
// every loop polls it at the top of every iteration.
func (r *Router) isRunning() bool {
	return atomic.LoadInt32(&r.running) != 0
}

// Stop clears the running flag, causing both loops to drain and return.
func (r *Router) Stop() {
	atomic.StoreInt32(&r.running, 0)
}

// Close tears down every interface's socket. Call after Run returns.
func (r *Router) Close() {
	r.ifacesMu.Lock()
	defer r.ifacesMu.Unlock()

	for name, bi := range r.ifaces {
		if err := bi.conn.Close(); err != nil {
			r.log.WithError(err).WithField("interface", name).Warn("failed to close socket")
		}
	}
}
