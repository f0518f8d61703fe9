package ospf2

import (
	"fmt"

	"github.com/google/go-cmp/cmp"
)

// fuzz is a shared helper for tests that verify the codec round-trips:
// parse, marshal, parse again, and check both the decoded Messages and the
// re-marshaled bytes for equality.
func fuzz(b1 []byte) int {
	m1, err := ParseMessage(b1)
	if err != nil {
		return 0
	}

	b2, err := MarshalMessage(m1)
	if err != nil {
		panicf("failed to marshal: %v", err)
	}

	m2, err := ParseMessage(b2)
	if err != nil {
		panicf("failed to parse: %v", err)
	}

	if diff := cmp.Diff(m1, m2); diff != "" {
		panicf("unexpected Message (-want +got):\n%s", diff)
	}

	b3, err := MarshalMessage(m2)
	if err != nil {
		panicf("failed to marshal again: %v", err)
	}

	if diff := cmp.Diff(b2, b3); diff != "" {
		panicf("unexpected bytes (-want +got):\n%s", diff)
	}

	return 1
}

func panicf(format string, a ...interface{}) {
	panic(fmt.Sprintf(format, a...))
}
