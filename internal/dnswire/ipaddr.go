package dnswire

import (
	"fmt"
	"net/netip"
)

// ParseIPv4 parses a dotted-quad presentation-form address into its 4-byte
// wire form, for use as A-record RDATA.
func ParseIPv4(s string) ([]byte, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is4() {
		return nil, fmt.Errorf("%w: %q is not a valid IPv4 address", ErrWireFormat, s)
	}
	b := addr.As4()
	return b[:], nil
}

// ParseIPv6 parses a presentation-form IPv6 address into its 16-byte wire
// form, for use as AAAA-record RDATA.
func ParseIPv6(s string) ([]byte, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is6() || addr.Is4In6() {
		return nil, fmt.Errorf("%w: %q is not a valid IPv6 address", ErrWireFormat, s)
	}
	b := addr.As16()
	return b[:], nil
}
