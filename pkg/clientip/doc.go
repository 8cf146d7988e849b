// Package clientip resolves the originating client address of a request from
// common proxy headers, falling back to RemoteAddr. Webhook triggers record it
// as their remote IP.
//
// Only deploy behind proxies that overwrite these headers; otherwise clients
// can spoof them.
package clientip
