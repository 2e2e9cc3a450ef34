// Package httpserver constructs the process HTTP server with hardened
// timeouts so main stays small.
package httpserver

import (
	"net/http"
	"time"
)

// New returns an http.Server for the given address and handler.
// WriteTimeout must exceed the router's per-request timeout so handlers,
// not the server, produce timeout responses.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
