// Package token derives digests of bearer tokens.
//
// Bearer tokens are the secret itself, so they must never appear in logs.
// Fingerprint gives log lines and audit events a short label that still lets
// operators correlate requests made with the same token.
//
// Environment:
//   - KWLNK_TOKEN_FINGERPRINT_KEY: when set, fingerprints are HMAC-SHA256 keyed.
package token
