// Package safehttp provides the HTTP client used for outbound webhook
// requests. Webhook URLs come from operator configuration and may embed
// caller-supplied template values, so the dialer refuses private, loopback,
// and link-local destinations to reduce SSRF risk.
package safehttp

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

// SafeTransport rejects connections to private or loopback IP ranges.
var SafeTransport = &http.Transport{
	DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
		dialer := &net.Dialer{Timeout: 5 * time.Second}
		conn, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
		ip := net.ParseIP(host)
		if ip == nil {
			conn.Close()
			return nil, fmt.Errorf("failed to parse remote IP for %q", addr)
		}

		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() {
			conn.Close()
			return nil, fmt.Errorf("access to private IP %s is denied", ip)
		}

		return conn, nil
	},
}

// Client returns an HTTP client for webhook calls. The timeout is a
// per-request ceiling independent of the call's context deadline.
func Client(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: SafeTransport,
		Timeout:   timeout,
	}
}
