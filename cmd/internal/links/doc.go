// Package links owns short links: key generation under a bounded retry
// budget, validation, persistence, the redirect resolution path with its
// optional cache, and lifecycle events.
package links
