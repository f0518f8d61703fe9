package fib

import (
	"net/netip"
	"testing"
)

func mustPrefix(s string) netip.Prefix {
	p, err := netip.ParsePrefix(s)
	if err != nil {
		panic(err)
	}
	return p
}

func TestDiffAdditionsAndRemovals(t *testing.T) {
	old := New()
	old.Replace([]Entry{
		{Dest: mustPrefix("10.0.1.0/24"), Metric: 1},
		{Dest: mustPrefix("10.0.2.0/24"), Metric: 1},
		{Dest: mustPrefix("10.0.3.0/24"), Metric: 1, Direct: true},
	})

	next := New()
	next.Replace([]Entry{
		{Dest: mustPrefix("10.0.1.0/24"), Metric: 1},
		{Dest: mustPrefix("10.0.4.0/24"), Metric: 2},
		{Dest: mustPrefix("10.0.3.0/24"), Metric: 1, Direct: true},
	})

	additions, removals := old.Diff(next)

	if len(additions) != 1 || additions[0].Dest != mustPrefix("10.0.4.0/24") {
		t.Fatalf("unexpected additions: %+v", additions)
	}
	if len(removals) != 1 || removals[0].Dest != mustPrefix("10.0.2.0/24") {
		t.Fatalf("unexpected removals: %+v", removals)
	}
}

func TestDiffIsEmptyForUnchangedTable(t *testing.T) {
	entries := []Entry{
		{Dest: mustPrefix("10.0.1.0/24"), Metric: 1},
		{Dest: mustPrefix("10.0.2.0/24"), Metric: 2},
	}

	a := New()
	a.Replace(entries)
	b := New()
	b.Replace(entries)

	additions, removals := a.Diff(b)
	if len(additions) != 0 || len(removals) != 0 {
		t.Fatalf("expected empty diff for unchanged table, got +%v -%v", additions, removals)
	}
}

func TestDiffNeverRemovesDirectEntries(t *testing.T) {
	old := New()
	old.Replace([]Entry{{Dest: mustPrefix("10.0.1.0/24"), Direct: true}})

	next := New()

	_, removals := old.Diff(next)
	if len(removals) != 0 {
		t.Fatalf("expected direct entry to never be in removals, got %+v", removals)
	}
}
