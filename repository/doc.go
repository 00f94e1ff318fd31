// Package repository holds the repository resource model and its JSON codec.
//
// The codec is the only place that knows the wire field names. Reads accept
// the full server document; writes emit only the client-owned fields of a
// Prototype, never the server-assigned id or url.
package repository
