package geo

import (
	"net/netip"
	"strings"
)

// NormalizeIP trims whitespace, zone and brackets and unwraps IPv4-mapped
// IPv6 addresses ("::ffff:1.2.3.4" becomes "1.2.3.4"). It returns the
// canonical text form and false if raw is not an IP address.
func NormalizeIP(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return "", false
	}

	addr, err := netip.ParseAddr(s)
	if err != nil {
		return "", false
	}
	return addr.Unmap().WithZone("").String(), true
}

// IsPrivateOrLoopback reports whether ip can never be located by a public
// provider: loopback, RFC 1918 / unique-local, link-local and unspecified
// addresses. Unparseable input is treated as non-routable.
func IsPrivateOrLoopback(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return true
	}
	addr = addr.Unmap()
	return addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsUnspecified()
}
