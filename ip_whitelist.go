package main

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// readerAllowlist restricts which hosts may post taps. Entries are single
// addresses or CIDR prefixes. An empty list allows everyone.
type readerAllowlist struct {
	prefixes []netip.Prefix
}

func newReaderAllowlist(entries []string) (*readerAllowlist, error) {
	list := &readerAllowlist{}
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("reader allowlist entry %q: %w", entry, err)
			}
			list.prefixes = append(list.prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("reader allowlist entry %q: %w", entry, err)
		}
		list.prefixes = append(list.prefixes, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
	}
	return list, nil
}

func (a *readerAllowlist) Allows(ip string) bool {
	if a == nil || len(a.prefixes) == 0 {
		return true
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range a.prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// clientIP returns the request's remote host. RealIP middleware has already
// rewritten RemoteAddr from proxy headers when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
