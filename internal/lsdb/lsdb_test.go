package lsdb

import (
	"testing"
	"time"

	"github.com/ospfd/ospfd"
)

func routerLSA(adv ospf2.ID, seq uint32, checksum uint16, age time.Duration) ospf2.LSA {
	return ospf2.LSA{
		Header: ospf2.LSAHeader{
			Age:            age,
			Key:            ospf2.Key{Type: ospf2.RouterLSAType, LinkStateID: adv, AdvertisingRouter: adv},
			SequenceNumber: seq,
			Checksum:       checksum,
		},
		Body: &ospf2.RouterLSABody{},
	}
}

func TestInsertKeepsFreshest(t *testing.T) {
	d := New(nil)
	id := ospf2.ID{10, 0, 0, 1}

	if !d.Insert(routerLSA(id, 1, 100, 0)) {
		t.Fatal("first insert should report refreshed")
	}
	if d.Insert(routerLSA(id, 1, 50, 0)) {
		t.Fatal("insert of a lower-checksum, same-sequence LSA should not refresh")
	}
	if !d.Insert(routerLSA(id, 2, 1, 0)) {
		t.Fatal("insert of a higher-sequence LSA should refresh")
	}

	got, ok := d.Get(ospf2.Key{Type: ospf2.RouterLSAType, LinkStateID: id, AdvertisingRouter: id})
	if !ok {
		t.Fatal("expected an entry")
	}
	if got.Header.SequenceNumber != 2 {
		t.Fatalf("SequenceNumber = %d, want 2", got.Header.SequenceNumber)
	}
}

func TestUniqueKeyPerPartition(t *testing.T) {
	d := New(nil)
	id := ospf2.ID{10, 0, 0, 1}

	d.Insert(routerLSA(id, 1, 100, 0))
	d.Insert(ospf2.LSA{
		Header: ospf2.LSAHeader{
			Key:            ospf2.Key{Type: ospf2.NetworkLSAType, LinkStateID: id, AdvertisingRouter: id},
			SequenceNumber: 1,
		},
		Body: &ospf2.NetworkLSABody{},
	})

	if len(d.Snapshot()) != 2 {
		t.Fatalf("expected 2 distinct entries, got %d", len(d.Snapshot()))
	}
}

func TestRemove(t *testing.T) {
	d := New(nil)
	id := ospf2.ID{10, 0, 0, 1}
	k := ospf2.Key{Type: ospf2.RouterLSAType, LinkStateID: id, AdvertisingRouter: id}

	d.Insert(routerLSA(id, 1, 100, 0))
	d.Remove(k)

	if _, ok := d.Get(k); ok {
		t.Fatal("expected entry to be removed")
	}
}

func TestSubscribeNotifiesOnChange(t *testing.T) {
	d := New(nil)
	c := d.Subscribe()

	d.Insert(routerLSA(ospf2.ID{10, 0, 0, 1}, 1, 100, 0))

	select {
	case <-c:
	case <-time.After(time.Second):
		t.Fatal("expected a change notification")
	}
}

func TestSubscribeCoalescesBursts(t *testing.T) {
	d := New(nil)
	c := d.Subscribe()

	id := ospf2.ID{10, 0, 0, 1}
	d.Insert(routerLSA(id, 1, 1, 0))
	d.Insert(routerLSA(id, 2, 1, 0))
	d.Insert(routerLSA(id, 3, 1, 0))

	select {
	case <-c:
	case <-time.After(time.Second):
		t.Fatal("expected at least one change notification")
	}

	select {
	case <-c:
		t.Fatal("expected the buffered channel to have coalesced the burst")
	default:
	}
}

func TestOriginateRouterLSA(t *testing.T) {
	d := New(nil)
	self := ospf2.ID{10, 0, 0, 1}

	lsa := d.OriginateRouterLSA(self, false, false, []RouterLinkInput{
		{Transit: true, DRAddress: ospf2.ID{10, 0, 0, 2}, InterfaceAddress: self, Cost: 1},
		{Network: ospf2.ID{192, 168, 1, 0}, Mask: ospf2.ID{255, 255, 255, 0}, Cost: 10},
	})

	if lsa.Header.SequenceNumber != ospf2.InitialSequenceNumber {
		t.Fatalf("SequenceNumber = %#x, want %#x", lsa.Header.SequenceNumber, ospf2.InitialSequenceNumber)
	}

	body, ok := lsa.Body.(*ospf2.RouterLSABody)
	if !ok {
		t.Fatalf("Body type = %T, want *ospf2.RouterLSABody", lsa.Body)
	}
	if len(body.Links) != 2 {
		t.Fatalf("len(Links) = %d, want 2", len(body.Links))
	}
	if body.Links[0].Type != ospf2.TransitLink {
		t.Fatalf("Links[0].Type = %s, want Transit", body.Links[0].Type)
	}
	if body.Links[1].Type != ospf2.StubLink {
		t.Fatalf("Links[1].Type = %s, want Stub", body.Links[1].Type)
	}

	// Re-originating must bump the sequence number, per the shared
	// monotonic counter.
	lsa2 := d.OriginateRouterLSA(self, false, false, nil)
	if lsa2.Header.SequenceNumber <= lsa.Header.SequenceNumber {
		t.Fatalf("re-originated SequenceNumber %#x did not increase past %#x", lsa2.Header.SequenceNumber, lsa.Header.SequenceNumber)
	}
}

func TestOriginateNetworkLSAOnlyByDR(t *testing.T) {
	d := New(nil)
	self := ospf2.ID{10, 0, 0, 1}
	peer := ospf2.ID{10, 0, 0, 2}

	lsa := d.OriginateNetworkLSA(self, self, 0xffffff00, []ospf2.ID{self, peer})

	body, ok := lsa.Body.(*ospf2.NetworkLSABody)
	if !ok {
		t.Fatalf("Body type = %T, want *ospf2.NetworkLSABody", lsa.Body)
	}
	if len(body.AttachedRouters) != 2 {
		t.Fatalf("len(AttachedRouters) = %d, want 2", len(body.AttachedRouters))
	}
	if lsa.Header.Key.LinkStateID != self {
		t.Fatalf("LinkStateID = %s, want %s (the DR's interface address)", lsa.Header.Key.LinkStateID, self)
	}
}

type recordingFlooder struct {
	floods []ospf2.LSA
}

func (r *recordingFlooder) FloodLSA(lsa ospf2.LSA, origin string) {
	r.floods = append(r.floods, lsa)
}

func TestFloodUsesInstalledFlooder(t *testing.T) {
	d := New(nil)
	f := &recordingFlooder{}
	d.SetFlooder(f)

	lsa := routerLSA(ospf2.ID{10, 0, 0, 1}, 1, 100, 0)
	d.Flood(lsa, "eth0")

	if len(f.floods) != 1 {
		t.Fatalf("expected 1 flood, got %d", len(f.floods))
	}
}
