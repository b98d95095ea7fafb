// Package security holds the per-request SecurityContext: who is acting,
// established by password or bearer token, and the gate every mutating
// operation checks.
//
// A Context starts unauthenticated. Auth, AuthAccount, AuthWithToken and
// AuthWithTokenValue move it to authenticated; Deauth revokes the account's
// active tokens and moves it back. Failed attempts leave the state as it was.
// Contexts are created by a Factory, one per request, and travel in the
// request's context.Context.
package security
