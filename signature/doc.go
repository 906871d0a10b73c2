// Package signature authenticates raw webhook payloads against the
// provider's `t=<unix>,v1=<hex-hmac>` signature header.
//
// Digest matching and timestamp freshness are orthogonal failure modes: a
// captured payload replayed after interception carries a valid digest, so
// staleness rejects on its own even when a digest matches.
package signature
