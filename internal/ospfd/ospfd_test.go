package ospfd

import (
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ospfd/ospfd"
	"github.com/ospfd/ospfd/internal/iface"
)

// fakeConn is a wireConn test double that records every outgoing message
// instead of touching a real socket.
type fakeConn struct {
	sent []sentMessage
}

type sentMessage struct {
	msg ospf2.Message
	dst *net.IPAddr
}

func (f *fakeConn) WriteTo(m ospf2.Message, dst *net.IPAddr) error {
	f.sent = append(f.sent, sentMessage{msg: m, dst: dst})
	return nil
}

func (f *fakeConn) ReadFrom(buf []byte) (ospf2.Message, *net.IPAddr, error) {
	<-make(chan struct{}) // never returns; tests drive dispatch directly.
	return nil, nil, nil
}

func (f *fakeConn) SetReadDeadline(t time.Time) error { return nil }
func (f *fakeConn) Close() error                      { return nil }

// testRouter builds a Router with one fake-socket interface named name,
// bypassing AddInterface's real ospf2.Listen call.
func testRouter(routerID ospf2.ID, name string, typ iface.LinkType, ip, mask ospf2.ID) (*Router, *boundInterface) {
	r := NewRouter(logrus.New(), routerID, ospf2.ID{})

	bi := &boundInterface{
		ifi:  iface.New(nil, name, 1, typ, ip, mask, ospf2.ID{}),
		conn: &fakeConn{},
	}
	r.ifacesMu.Lock()
	r.ifaces[name] = bi
	r.ifacesMu.Unlock()

	return r, bi
}
