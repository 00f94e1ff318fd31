// Package github is the repository service facade for GitHub and GitHub
// Enterprise hosts.
//
//	svc, err := github.NewService(github.Config{
//	    Token: os.Getenv("GITHUB_TOKEN"),
//	})
//	repos, err := svc.List(ctx)
//	created, err := svc.Create(ctx, repository.NewPrototype("demo", "scratch"))
//	err = svc.Delete(ctx, created)
//
// Each operation is one declarative httpclient.Configuration executed on a
// shared adapter. Delete targets the repository's owner, then the configured
// owner, then the authenticated account.
package github
