package spf

import (
	"testing"

	"github.com/ospfd/ospfd"
)

type fakeResolver struct {
	neighbors map[ospf2.ID]struct {
		ip    ospf2.ID
		iface string
		index int
	}
	directs map[string]struct {
		iface string
		index int
	}
}

func (f *fakeResolver) ResolveNextHop(firstHop ospf2.ID) (ospf2.ID, string, int, bool) {
	n, ok := f.neighbors[firstHop]
	if !ok {
		return ospf2.ID{}, "", 0, false
	}
	return n.ip, n.iface, n.index, true
}

func (f *fakeResolver) DirectInterface(dst, mask ospf2.ID) (string, int, bool) {
	d, ok := f.directs[dst.String()+"/"+mask.String()]
	if !ok {
		return "", 0, false
	}
	return d.iface, d.index, true
}

// buildLine builds a simple three-router topology: R1 -- R2 -- R3 over
// point-to-point links, to exercise multi-hop SPF.
func buildLine() (r1, r2, r3 ospf2.ID, lsas []ospf2.LSA) {
	r1 = ospf2.ID{10, 0, 0, 1}
	r2 = ospf2.ID{10, 0, 0, 2}
	r3 = ospf2.ID{10, 0, 0, 3}

	lsas = []ospf2.LSA{
		{
			Header: ospf2.LSAHeader{Key: ospf2.Key{Type: ospf2.RouterLSAType, LinkStateID: r1, AdvertisingRouter: r1}},
			Body: &ospf2.RouterLSABody{Links: []ospf2.RouterLink{
				{LinkID: r2, Type: ospf2.PointToPointLink, Metric: 1},
			}},
		},
		{
			Header: ospf2.LSAHeader{Key: ospf2.Key{Type: ospf2.RouterLSAType, LinkStateID: r2, AdvertisingRouter: r2}},
			Body: &ospf2.RouterLSABody{Links: []ospf2.RouterLink{
				{LinkID: r1, Type: ospf2.PointToPointLink, Metric: 1},
				{LinkID: r3, Type: ospf2.PointToPointLink, Metric: 1},
			}},
		},
		{
			Header: ospf2.LSAHeader{Key: ospf2.Key{Type: ospf2.RouterLSAType, LinkStateID: r3, AdvertisingRouter: r3}},
			Body: &ospf2.RouterLSABody{Links: []ospf2.RouterLink{
				{LinkID: r2, Type: ospf2.PointToPointLink, Metric: 1},
			}},
		},
	}

	return r1, r2, r3, lsas
}

func TestDijkstraMultiHop(t *testing.T) {
	r1, r2, r3, lsas := buildLine()

	g := buildGraph(lsas)
	g.addRouterNode(r1)

	dist, prev := dijkstra(g, r1)

	if dist[r3] != 2 {
		t.Fatalf("dist[r3] = %d, want 2", dist[r3])
	}

	hop, direct := firstHop(prev, r1, r3)
	if direct {
		t.Fatal("r3 should not be directly reachable from r1")
	}
	if hop != r2 {
		t.Fatalf("first hop to r3 = %s, want r2 (%s)", hop, r2)
	}
}

func TestDijkstraDeterministic(t *testing.T) {
	_, _, _, lsas := buildLine()
	g := buildGraph(lsas)

	d1, _ := dijkstra(g, ospf2.ID{10, 0, 0, 1})
	d2, _ := dijkstra(g, ospf2.ID{10, 0, 0, 1})

	if len(d1) != len(d2) {
		t.Fatalf("two runs over a static LSDB snapshot produced different reachable sets")
	}
	for k, v := range d1 {
		if d2[k] != v {
			t.Fatalf("distance to %s differs between runs: %d vs %d", k, v, d2[k])
		}
	}
}

func TestComputeTransitNetwork(t *testing.T) {
	self := ospf2.ID{10, 0, 0, 1}
	peer := ospf2.ID{10, 0, 0, 2}
	dr := ospf2.ID{192, 168, 1, 1}

	lsas := []ospf2.LSA{
		{
			Header: ospf2.LSAHeader{Key: ospf2.Key{Type: ospf2.RouterLSAType, LinkStateID: self, AdvertisingRouter: self}},
			Body: &ospf2.RouterLSABody{Links: []ospf2.RouterLink{
				{LinkID: dr, LinkData: self, Type: ospf2.TransitLink, Metric: 1},
			}},
		},
		{
			Header: ospf2.LSAHeader{Key: ospf2.Key{Type: ospf2.RouterLSAType, LinkStateID: peer, AdvertisingRouter: peer}},
			Body: &ospf2.RouterLSABody{Links: []ospf2.RouterLink{
				{LinkID: dr, LinkData: peer, Type: ospf2.TransitLink, Metric: 1},
			}},
		},
		{
			Header: ospf2.LSAHeader{Key: ospf2.Key{Type: ospf2.NetworkLSAType, LinkStateID: dr, AdvertisingRouter: peer}},
			Body: &ospf2.NetworkLSABody{
				NetworkMask:     0xffffff00,
				AttachedRouters: []ospf2.ID{self, peer},
			},
		},
	}

	resolver := &fakeResolver{
		directs: map[string]struct {
			iface string
			index int
		}{
			ospf2.ID{192, 168, 1, 0}.String() + "/" + ospf2.IDFromUint32(0xffffff00).String(): {iface: "eth0", index: 2},
		},
	}

	entries := Compute(self, lsas, resolver)
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if !entries[0].Direct {
		t.Fatal("expected the transit network to be a direct entry for self")
	}
	if entries[0].Iface != "eth0" {
		t.Fatalf("Iface = %q, want eth0", entries[0].Iface)
	}
}
