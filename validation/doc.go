// Package validation provides input validation for repokit values.
//
// Struct tag validation (go-playground/validator) is used for write-side
// request values such as repository prototypes; the programmatic Validator
// collects field errors for configuration checks.
//
//	type Prototype struct {
//	    Name string `json:"name" validate:"required,max=100"`
//	}
//	err := validation.Validate(p)
//
//	v := validation.New()
//	v.Required("github.base_url", cfg.BaseURL)
//	err := v.Error()
package validation
