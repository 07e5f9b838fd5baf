// Package fetch downloads release tarballs into a cache and unpacks them.
package fetch

import (
	"net/http"
	"time"
)

// DefaultTimeout bounds a whole download, including reading the body.
const DefaultTimeout = 30 * time.Minute

// NewClient returns an HTTP client suitable for large archive downloads.
// A zero timeout selects DefaultTimeout.
func NewClient(timeout time.Duration) *http.Client {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
