//go:build linux

package ospfd

import (
	"fmt"
	"net"

	"github.com/ospfd/ospfd"
)

// DiscoveredInterface is one candidate interface found by DiscoverInterfaces,
// ready to hand to Router.AddInterface.
type DiscoveredInterface struct {
	Iface *net.Interface
	IP    ospf2.ID
	Mask  ospf2.ID
}

// DiscoverInterfaces enumerates the host's up, non-loopback IPv4 interfaces.
// It reads the mask directly from the *net.IPNet returned by Addrs, rather
// than issuing a separate netmask lookup whose result could be paired with
// the wrong interface's address.
func DiscoverInterfaces() ([]DiscoveredInterface, error) {
	ifis, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("ospfd: failed to enumerate interfaces: %w", err)
	}

	var out []DiscoveredInterface
	for i := range ifis {
		ifi := ifis[i]
		if ifi.Flags&net.FlagUp == 0 || ifi.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := ifi.Addrs()
		if err != nil {
			return nil, fmt.Errorf("ospfd: failed to read addresses for %s: %w", ifi.Name, err)
		}

		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			v4 := ipnet.IP.To4()
			if v4 == nil {
				continue
			}

			out = append(out, DiscoveredInterface{
				Iface: &ifi,
				IP:    ospf2.IDFromIP(v4),
				Mask:  ospf2.IDFromIP(net.IP(ipnet.Mask)),
			})
			break
		}
	}

	return out, nil
}
