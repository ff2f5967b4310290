package network

import (
	"net/netip"
	"strings"
)

// IsValidIPv4 reports whether s is a plain dotted quad, the only answer we accept from detection services
func IsValidIPv4(s string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	return err == nil && addr.Is4()
}

// IsPublicIPv4 reports whether s could be reached from the internet
func IsPublicIPv4(s string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil || !addr.Is4() {
		return false
	}
	return addr.IsGlobalUnicast() && !addr.IsPrivate() && !addr.IsLoopback()
}
