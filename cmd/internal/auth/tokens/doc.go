// Package tokens manages opaque bearer tokens for KwLnk accounts.
//
// A token id is the bearer secret itself: random bytes, hex encoded, stored
// as the primary key. Tokens are never deleted. Revocation moves expires_at
// to a fixed instant in the past (RevokedAt) so every later check sees the
// token as expired.
package tokens
