package ospf2

import "fmt"

// flagsString generates a pretty-printed flags bitmask using the input
// value and sequence of bit names (names[i] corresponds to bit 1<<i).
func flagsString(f uint, names []string) string {
	var s string
	left := f
	for i, name := range names {
		if f&(1<<uint(i)) != 0 {
			if s != "" {
				s += "|"
			}
			s += name
			left ^= 1 << uint(i)
		}
	}

	if s == "" && left == 0 {
		return "0"
	}
	if left > 0 {
		if s != "" {
			s += "|"
		}
		s += fmt.Sprintf("%#x", left)
	}

	return s
}

// String returns the string representation of an Options bitmask.
func (o Options) String() string {
	return flagsString(uint(o), []string{"", "E-bit", "MC-bit", "NP-bit", "", "DC-bit"})
}

// String returns the string representation of a DDFlags bitmask.
func (f DDFlags) String() string {
	return flagsString(uint(f), []string{"MS-bit", "M-bit", "I-bit"})
}

// String returns the string representation of a RouterLSAFlags bitmask.
func (f RouterLSAFlags) String() string {
	return flagsString(uint(f), []string{"B-bit", "E-bit", "V-bit"})
}

func (t RouterLinkType) String() string {
	switch t {
	case PointToPointLink:
		return "PointToPoint"
	case TransitLink:
		return "Transit"
	case StubLink:
		return "Stub"
	case VirtualLink:
		return "Virtual"
	default:
		return fmt.Sprintf("RouterLinkType(%d)", uint8(t))
	}
}
