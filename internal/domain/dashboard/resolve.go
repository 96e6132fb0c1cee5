package dashboard

import (
	"net/netip"
	"strings"
)

// resolveClientIP applies the header precedence: first X-Forwarded-For
// entry, then X-Real-IP, then the configured fallback constant.
func resolveClientIP(hints ClientHints, fallback string) string {
	if first := firstForwardedEntry(hints.ForwardedFor); first != "" {
		return first
	}
	if real := strings.TrimSpace(hints.RealIP); real != "" {
		return real
	}
	return fallback
}

func firstForwardedEntry(header string) string {
	entry, _, _ := strings.Cut(header, ",")
	return strings.TrimSpace(entry)
}

// needsPublicLookup reports whether the resolved address cannot be
// geolocated directly. Unparseable values count too: the geolocation
// upstream would reject them anyway.
func needsPublicLookup(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return true
	}
	return addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast()
}
