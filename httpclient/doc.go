// Package httpclient is the transport layer of repokit.
//
// An Adapter owns one shared HTTP session bound to a base URL and an
// Authorization (BasicAuth or TokenAuth). Endpoints are declared as
// Configuration values and run by the execution engine:
//
//	a, err := httpclient.New(httpclient.Config{
//	    BaseURL: "https://api.github.com",
//	    Auth:    httpclient.Token(os.Getenv("GITHUB_TOKEN")),
//	})
//
//	list := httpclient.Configuration[[]Repo]{
//	    Name:   "repos.list",
//	    Path:   "/user/repos",
//	    Decode: httpclient.DecodeJSON[[]Repo](),
//	}
//	repos, err := httpclient.Execute(ctx, a, list)
//
// Go and Perform run the same configuration asynchronously, delivering
// exactly one outcome.
//
// Under BasicAuth the session also answers "WWW-Authenticate: Basic"
// challenges by re-issuing the request once with the same credentials.
// TokenAuth never answers challenges.
//
// Every failure is an *Error whose Kind tells where the call broke:
// building the request, reaching the host, the host's status, or decoding
// the body. Nothing is retried.
package httpclient
