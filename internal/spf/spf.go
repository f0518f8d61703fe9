// Package spf computes the shortest-path routing table over the topology
// described by the Link-State Database, per RFC 2328 section 16.1.
package spf

import (
	"container/heap"
	"net/netip"

	"github.com/ospfd/ospfd"
	"github.com/ospfd/ospfd/internal/fib"
)

// A NeighborResolver turns a Dijkstra first-hop router ID, or a directly
// attached network, into the egress interface and (for indirect routes) the
// neighbor IP address to use as next hop. It is implemented by
// internal/ospfd, which owns the interfaces and their neighbors; this
// package never imports internal/iface directly, keeping SPF computation
// decoupled from interface state.
type NeighborResolver interface {
	// ResolveNextHop finds a neighbor on any owned interface whose
	// Router ID is firstHop, returning that neighbor's IP, the egress
	// interface's name and index.
	ResolveNextHop(firstHop ospf2.ID) (nextHopIP ospf2.ID, ifaceName string, ifIndex int, ok bool)

	// DirectInterface finds the interface whose own network (ip & mask)
	// equals dst/mask, for routes one hop away (prev chain length 1).
	DirectInterface(dst, mask ospf2.ID) (ifaceName string, ifIndex int, ok bool)
}

type nodeKind int

const (
	routerNode nodeKind = iota
	networkNode
)

type nodeInfo struct {
	kind nodeKind
	mask uint32 // valid for networkNode
}

type edge struct {
	to     ospf2.ID
	metric uint32
}

// graph is the directed graph Dijkstra runs over: router nodes and network
// nodes, built fresh from an LSDB snapshot on every run.
type graph struct {
	nodes map[ospf2.ID]nodeInfo
	edges map[ospf2.ID][]edge
}

func newGraph() *graph {
	return &graph{
		nodes: make(map[ospf2.ID]nodeInfo),
		edges: make(map[ospf2.ID][]edge),
	}
}

func (g *graph) addRouterNode(id ospf2.ID) {
	if _, ok := g.nodes[id]; !ok {
		g.nodes[id] = nodeInfo{kind: routerNode}
	}
}

func (g *graph) addNetworkNode(id ospf2.ID, mask uint32) {
	g.nodes[id] = nodeInfo{kind: networkNode, mask: mask}
}

func (g *graph) addEdge(from, to ospf2.ID, metric uint32) {
	g.edges[from] = append(g.edges[from], edge{to: to, metric: metric})
}

// buildGraph assembles a graph from a consistent LSDB snapshot, per RFC 2328
// section 16.1 steps 1-2 restricted to a single area.
func buildGraph(lsas []ospf2.LSA) *graph {
	g := newGraph()

	networkByDR := make(map[ospf2.ID]*ospf2.NetworkLSABody)

	for _, lsa := range lsas {
		switch body := lsa.Body.(type) {
		case *ospf2.RouterLSABody:
			g.addRouterNode(lsa.Header.Key.AdvertisingRouter)
		case *ospf2.NetworkLSABody:
			g.addNetworkNode(lsa.Header.Key.LinkStateID, body.NetworkMask)
			networkByDR[lsa.Header.Key.LinkStateID] = body
		}
	}

	for _, lsa := range lsas {
		body, ok := lsa.Body.(*ospf2.RouterLSABody)
		if !ok {
			continue
		}
		self := lsa.Header.Key.AdvertisingRouter

		for _, l := range body.Links {
			switch l.Type {
			case ospf2.PointToPointLink:
				g.addEdge(self, l.LinkID, uint32(l.Metric))

			case ospf2.TransitLink:
				net, ok := networkByDR[l.LinkID]
				if !ok {
					continue
				}
				for _, r := range net.AttachedRouters {
					if r != self {
						g.addEdge(self, r, uint32(l.Metric))
					}
				}
				g.addEdge(self, l.LinkID, 0)

			case ospf2.StubLink:
				network := l.LinkID
				if _, ok := g.nodes[network]; !ok {
					g.addNetworkNode(network, l.LinkData.Uint32())
				}
				g.addEdge(self, network, uint32(l.Metric))
			}
		}
	}

	return g
}

// heapItem is one entry in the Dijkstra priority queue.
type heapItem struct {
	id   ospf2.ID
	dist uint32
}

type priorityQueue []heapItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].dist < pq[j].dist }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x interface{}) { *pq = append(*pq, x.(heapItem)) }
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

// dijkstra runs Dijkstra's algorithm from root over g, returning the
// shortest distance and predecessor for every reachable node.
func dijkstra(g *graph, root ospf2.ID) (dist map[ospf2.ID]uint32, prev map[ospf2.ID]ospf2.ID) {
	dist = map[ospf2.ID]uint32{root: 0}
	prev = make(map[ospf2.ID]ospf2.ID)
	visited := make(map[ospf2.ID]bool)

	pq := &priorityQueue{{id: root, dist: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(heapItem)
		if visited[cur.id] {
			continue
		}
		visited[cur.id] = true

		for _, e := range g.edges[cur.id] {
			nd := cur.dist + e.metric
			if existing, ok := dist[e.to]; !ok || nd < existing {
				dist[e.to] = nd
				prev[e.to] = cur.id
				heap.Push(pq, heapItem{id: e.to, dist: nd})
			}
		}
	}

	return dist, prev
}

// firstHop walks the prev chain from dst back to root and returns the node
// adjacent to root on the path (the first-hop router), and whether dst is
// itself directly reachable from root (chain length 1).
func firstHop(prev map[ospf2.ID]ospf2.ID, root, dst ospf2.ID) (hop ospf2.ID, direct bool) {
	cur := dst
	for {
		p, ok := prev[cur]
		if !ok {
			return cur, cur == dst && prev[dst] == root
		}
		if p == root {
			return cur, cur == dst
		}
		cur = p
	}
}

// Compute runs SPF rooted at self over lsas and returns the resulting
// routing table, resolving next hops and egress interfaces via resolver.
func Compute(self ospf2.ID, lsas []ospf2.LSA, resolver NeighborResolver) []fib.Entry {
	g := buildGraph(lsas)
	g.addRouterNode(self)

	dist, prev := dijkstra(g, self)

	var entries []fib.Entry
	for id, info := range g.nodes {
		if info.kind != networkNode {
			continue
		}
		d, ok := dist[id]
		if !ok {
			continue
		}

		hop, direct := firstHop(prev, self, id)

		prefix, ok := toPrefix(id, info.mask)
		if !ok {
			continue
		}

		if direct {
			network := ospf2.IDFromUint32(id.Uint32() & info.mask)
			ifaceName, ifIndex, ok := resolver.DirectInterface(network, ospf2.IDFromUint32(info.mask))
			if !ok {
				continue
			}
			entries = append(entries, fib.Entry{
				Dest:    prefix,
				Iface:   ifaceName,
				IfIndex: ifIndex,
				Metric:  d,
				Direct:  true,
			})
			continue
		}

		nextHopIP, ifaceName, ifIndex, ok := resolver.ResolveNextHop(hop)
		if !ok {
			continue
		}
		nhAddr, ok := netip.AddrFromSlice(nextHopIP.IP())
		if !ok {
			continue
		}

		entries = append(entries, fib.Entry{
			Dest:    prefix,
			NextHop: nhAddr.Unmap(),
			Iface:   ifaceName,
			IfIndex: ifIndex,
			Metric:  d,
		})
	}

	return entries
}

func toPrefix(network ospf2.ID, mask uint32) (netip.Prefix, bool) {
	addr, ok := netip.AddrFromSlice(network.IP())
	if !ok {
		return netip.Prefix{}, false
	}
	addr = addr.Unmap()

	bits := maskBits(mask)
	return netip.PrefixFrom(addr, bits).Masked(), true
}

func maskBits(mask uint32) int {
	n := 0
	for i := 31; i >= 0; i-- {
		if mask&(1<<uint(i)) == 0 {
			break
		}
		n++
	}
	return n
}
