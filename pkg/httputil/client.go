// Package httputil provides the shared HTTP client every external
// collaborator adapter (scrape actor, record-store) builds requests with.
package httputil

import (
	"net"
	"net/http"
	"time"
)

// NewClient returns an *http.Client tuned for outbound calls to external
// services: bounded connect/response timeouts and a modest idle
// connection pool, shared by every adapter instead of each constructing
// its own http.Client with ad-hoc settings.
func NewClient() *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}
