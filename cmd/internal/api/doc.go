// Package api is the KwLnk HTTP surface: the JSON administration API under
// the API root and the public redirect route under the links root.
//
// Every API route except login requires a bearer token. Responses use a
// single envelope with data, meta, message and error members.
package api
