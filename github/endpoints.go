package github

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/kbukum/repokit/httpclient"
	"github.com/kbukum/repokit/repository"
)

// User is the authenticated account.
type User struct {
	Login string `json:"login"`
	ID    int64  `json:"id"`
}

// Root is the API root document: a map of named URL templates.
type Root map[string]string

// listPageSize is the largest page the host serves. Only the first page is
// read.
const listPageSize = "100"

var listRepositories = httpclient.Configuration[[]repository.Repository]{
	Name:   "repos.list",
	Path:   "/user/repos",
	Query:  map[string]string{"per_page": listPageSize},
	Decode: repository.DecodeList,
}

var currentUser = httpclient.Configuration[User]{
	Name:   "user.get",
	Path:   "/user",
	Decode: httpclient.DecodeJSON[User](),
}

var apiRoot = httpclient.Configuration[Root]{
	Name:   "root.get",
	Path:   "/",
	Decode: httpclient.DecodeJSON[Root](),
}

func createRepository(body []byte) httpclient.Configuration[repository.Repository] {
	return httpclient.Configuration[repository.Repository]{
		Name:    "repos.create",
		Method:  http.MethodPost,
		Path:    "/user/repos",
		Content: httpclient.JSONContent(json.RawMessage(body)),
		Decode:  repository.Decode,
	}
}

func deleteRepository(owner, name string) httpclient.Configuration[struct{}] {
	return httpclient.Configuration[struct{}]{
		Name:   "repos.delete",
		Method: http.MethodDelete,
		Path:   "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(name),
	}
}
