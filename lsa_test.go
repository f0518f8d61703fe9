package ospf2

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLSARoundTrip(t *testing.T) {
	tests := []struct {
		name string
		lsa  LSA
	}{
		{
			name: "Router",
			lsa: LSA{
				Header: LSAHeader{
					Age:            5 * time.Second,
					Options:        EOpt,
					Key:            Key{Type: RouterLSAType, LinkStateID: ID{10, 0, 0, 1}, AdvertisingRouter: ID{10, 0, 0, 1}},
					SequenceNumber: InitialSequenceNumber,
					Checksum:       0xe7b8,
				},
				Body: &RouterLSABody{
					Flags: BBit,
					Links: []RouterLink{
						{LinkID: ID{10, 0, 0, 2}, LinkData: ID{10, 0, 0, 1}, Type: TransitLink, Metric: 1},
						{LinkID: ID{192, 168, 1, 0}, LinkData: ID{255, 255, 255, 0}, Type: StubLink, Metric: 10},
					},
				},
			},
		},
		{
			name: "Network",
			lsa: LSA{
				Header: LSAHeader{
					Key:            Key{Type: NetworkLSAType, LinkStateID: ID{10, 0, 0, 1}, AdvertisingRouter: ID{10, 0, 0, 1}},
					SequenceNumber: InitialSequenceNumber,
					Checksum:       0x8da1,
				},
				Body: &NetworkLSABody{
					NetworkMask:     0xffffff00,
					AttachedRouters: []ID{{10, 0, 0, 1}, {10, 0, 0, 2}},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Encode(tt.lsa)
			if err != nil {
				t.Fatalf("failed to encode: %v", err)
			}

			got, err := Decode(b)
			if err != nil {
				t.Fatalf("failed to decode: %v", err)
			}

			want := tt.lsa
			want.Header.Length = uint16(len(b))

			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("unexpected LSA (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLSAChecksumDetectsCorruption(t *testing.T) {
	b, err := Encode(LSA{
		Header: LSAHeader{
			Key:            Key{Type: RouterLSAType, LinkStateID: ID{10, 0, 0, 1}, AdvertisingRouter: ID{10, 0, 0, 1}},
			SequenceNumber: InitialSequenceNumber,
		},
		Body: &RouterLSABody{
			Links: []RouterLink{{LinkID: ID{10, 0, 0, 2}, LinkData: ID{10, 0, 0, 1}, Type: PointToPointLink, Metric: 1}},
		},
	})
	if err != nil {
		t.Fatalf("failed to encode: %v", err)
	}

	want := parseLSAHeader(b).Checksum

	// Corrupt a body byte and confirm a recomputed Fletcher checksum
	// disagrees.
	corrupt := append([]byte(nil), b...)
	corrupt[len(corrupt)-1] ^= 0xff
	corrupt[16], corrupt[17] = 0, 0
	got := fletcher16(corrupt[2:], 14)

	if got == want {
		t.Fatal("expected checksum mismatch after corrupting LSA body")
	}
}

func TestLSAHeaderFresher(t *testing.T) {
	base := LSAHeader{SequenceNumber: 5, Checksum: 100, Age: 10 * time.Second}

	tests := []struct {
		name string
		a, b LSAHeader
		want bool
	}{
		{
			name: "higher sequence wins",
			a:    LSAHeader{SequenceNumber: 6, Checksum: 1, Age: 0},
			b:    base,
			want: true,
		},
		{
			name: "lower sequence loses",
			a:    LSAHeader{SequenceNumber: 4, Checksum: 1000, Age: 0},
			b:    base,
			want: false,
		},
		{
			name: "equal sequence, higher checksum wins",
			a:    LSAHeader{SequenceNumber: 5, Checksum: 101, Age: 10 * time.Second},
			b:    base,
			want: true,
		},
		{
			name: "equal sequence and checksum, MaxAge wins",
			a:    LSAHeader{SequenceNumber: 5, Checksum: 100, Age: MaxAge},
			b:    base,
			want: true,
		},
		{
			name: "equal sequence and checksum, smaller age wins beyond MaxAgeDiff",
			a:    LSAHeader{SequenceNumber: 5, Checksum: 100, Age: 10 * time.Second},
			b:    LSAHeader{SequenceNumber: 5, Checksum: 100, Age: 2000 * time.Second},
			want: true,
		},
		{
			name: "equal sequence and checksum, within MaxAgeDiff is not fresher",
			a:    LSAHeader{SequenceNumber: 5, Checksum: 100, Age: 10 * time.Second},
			b:    LSAHeader{SequenceNumber: 5, Checksum: 100, Age: 100 * time.Second},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Fresher(tt.b); got != tt.want {
				t.Fatalf("Fresher() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIDUint32RoundTrip(t *testing.T) {
	id := ID{192, 0, 2, 1}
	if got := IDFromUint32(id.Uint32()); got != id {
		t.Fatalf("IDFromUint32(Uint32()) = %v, want %v", got, id)
	}
}
