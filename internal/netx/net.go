// Package netx holds HTTP request helpers.
package netx

import (
	"net"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/docusigner/internal/common"
)

// OriginAddress returns the caller address recorded in audit entries: the
// first X-Forwarded-For hop when present, otherwise the remote host.
func OriginAddress(r *http.Request) string {
	if fwd := r.Header.Get(common.ForwardedForHeaderName); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return first
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
