// Package errors provides the application error type used by repokit for
// failures that originate on the client side: invalid input, misconfiguration
// and operations that are declared but not implemented.
//
// Transport, HTTP-status and decode failures are reported by the httpclient
// package instead; see httpclient.Error.
package errors
