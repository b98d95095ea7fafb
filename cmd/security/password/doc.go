// Package password hashes and verifies account passwords.
//
// New hashes are Argon2id in the PHC string format
// ($argon2id$v=19$m=..,t=..,p=..$salt$key). Verification also accepts bcrypt
// hashes ($2a$, $2b$, $2y$) carried over from older deployments.
//
// Stored hashes are untrusted input: Verify never panics or errors on a
// malformed value, it simply reports a mismatch, and refuses Argon2id
// parameters far above the configured cost.
package password
