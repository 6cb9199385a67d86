// Package auth guards the graphcachectl HTTP endpoints.
//
// Requests are authenticated by API key or by an HMAC-signed JWT bearer
// token, and the resulting Identity must carry the role a route requires.
// Liveness and readiness probes are normally left open.
package auth
