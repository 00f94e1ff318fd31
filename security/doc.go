// Package security holds the TLS settings used when talking to a
// self-hosted repository service, typically a GitHub Enterprise host behind
// a private CA or one that requires client certificates.
//
//	tlsCfg := &security.TLSConfig{CAFile: "/etc/repokit/ca.pem"}
//	conf, err := tlsCfg.Build() // nil, nil when nothing is set
package security
