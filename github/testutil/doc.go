// Package testutil runs an in-memory repository host for tests.
//
// The host speaks the subset of the GitHub REST API used by repokit:
//
//	GET    /
//	GET    /user
//	GET    /user/repos
//	POST   /user/repos
//	DELETE /repos/:owner/:name
//
// Requests are authenticated against one basic pair and/or one bearer
// token. Rejections carry a "WWW-Authenticate: Basic" challenge unless the
// host was built WithoutChallenge.
//
//	host := testutil.NewHost(testutil.WithBasic("octo", "pw"))
//	if err := host.Start(ctx); err != nil { ... }
//	defer host.Stop(ctx)
//	svc, _ := github.NewService(github.Config{BaseURL: host.URL(), ...})
package testutil
