// Package httputil builds the outbound HTTP clients used for webhook
// deliveries.
package httputil

import (
	"net/http"
	"time"
)

// NewClient returns a client with a pooled transport sized for repeated
// deliveries to a small set of hosts. The timeout covers the whole exchange
// including body read, so a slow receiver cannot stall a caller's loop.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: time.Second,
		},
	}
}
