package tenant

import (
	"net"
	"strings"
)

// NormalizeHost turns a Host header into the form stored in tenant_domains: no port,
// lower-case, no trailing dot.
func NormalizeHost(host string) string {
	host = strings.TrimSpace(host)

	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	} else {
		host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	}

	return strings.TrimSuffix(strings.ToLower(host), ".")
}
