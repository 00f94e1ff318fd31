package repository

import (
	"net/url"
	"strings"

	"github.com/kbukum/repokit/util"
	"github.com/kbukum/repokit/validation"
)

// DefaultHomepage is sent as the homepage of every created repository.
const DefaultHomepage = "https://github.com"

// Repository is a remote repository as reported by the server.
type Repository struct {
	// ID is assigned by the server.
	ID int64
	// Name is unique per owner.
	Name string
	// URL is the API address of the repository, assigned by the server.
	URL *url.URL
	// Description is nil when the server reports none.
	Description *string
	// Owner is the login of the owning account, empty when not reported.
	Owner string
}

// Prototype returns the client-owned subset of r.
func (r Repository) Prototype() Prototype {
	p := Prototype{Name: r.Name}
	if r.Description != nil {
		p.Description = util.Ptr(*r.Description)
	}
	return p
}

// DescriptionOrEmpty returns the description, or "" when there is none.
func (r Repository) DescriptionOrEmpty() string {
	return util.Deref(r.Description)
}

// Prototype is the minimum information needed to create a repository.
type Prototype struct {
	Name        string  `json:"name" validate:"required,max=100,excludes=/"`
	Description *string `json:"description" validate:"omitempty,max=350"`
}

// NewPrototype builds a prototype; an empty description is sent as null.
func NewPrototype(name, description string) Prototype {
	p := Prototype{Name: name}
	if description != "" {
		p.Description = util.Ptr(description)
	}
	return p
}

// Validate checks the prototype before it is sent.
func (p Prototype) Validate() error {
	return validation.Validate(p)
}

// Filter returns the repositories whose name contains substr, in their
// original order.
func Filter(repos []Repository, substr string) []Repository {
	out := make([]Repository, 0, len(repos))
	for _, r := range repos {
		if strings.Contains(r.Name, substr) {
			out = append(out, r)
		}
	}
	return out
}
