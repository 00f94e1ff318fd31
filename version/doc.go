// Package version reports the build of the repokit binary.
//
// Version and commit are injected at link time:
//
//	go build -ldflags "-X github.com/kbukum/repokit/version.Version=1.2.0" ./cmd/repokit
//
// When they are not, the values recorded by the Go toolchain in the binary's
// build info are used instead.
package version
