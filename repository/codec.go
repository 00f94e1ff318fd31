package repository

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/kbukum/repokit/httpclient"
)

var (
	// ErrMissingField is wrapped by decode errors for an absent required field.
	ErrMissingField = errors.New("missing required field")
	// ErrWrongType is wrapped by decode errors for a field of the wrong JSON type.
	ErrWrongType = errors.New("wrong type")
)

// wire field names
const (
	fieldID          = "id"
	fieldName        = "name"
	fieldURL         = "url"
	fieldDescription = "description"
	fieldOwner       = "owner"
	fieldHomepage    = "homepage"
)

// Decode reads a single repository document.
func Decode(data []byte) (Repository, error) {
	return decodeObject(data, "")
}

// DecodeList reads an array of repository documents. One malformed element
// fails the whole list.
func DecodeList(data []byte) ([]Repository, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, httpclient.NewDecodeError("", fmt.Errorf("%w: expected array: %v", ErrWrongType, err))
	}
	// null unmarshals into a nil slice without error; a list must be an array.
	if raw == nil {
		return nil, httpclient.NewDecodeError("", fmt.Errorf("%w: expected array, got null", ErrWrongType))
	}
	repos := make([]Repository, 0, len(raw))
	for i, elem := range raw {
		r, err := decodeObject(elem, "["+strconv.Itoa(i)+"].")
		if err != nil {
			return nil, err
		}
		repos = append(repos, r)
	}
	return repos, nil
}

// EncodePrototype produces the create-request body: name, description and
// the fixed homepage.
func EncodePrototype(p Prototype) ([]byte, error) {
	return json.Marshal(createBody{
		Name:        p.Name,
		Description: p.Description,
		Homepage:    DefaultHomepage,
	})
}

// Encode produces the write-side document of r. Server-assigned fields are
// never included.
func Encode(r Repository) ([]byte, error) {
	return EncodePrototype(r.Prototype())
}

type createBody struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Homepage    string  `json:"homepage"`
}

func decodeObject(data []byte, prefix string) (Repository, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil || doc == nil {
		field := ""
		if prefix != "" {
			field = prefix[:len(prefix)-1]
		}
		return Repository{}, httpclient.NewDecodeError(field, fmt.Errorf("%w: expected object", ErrWrongType))
	}
	fail := func(field string, err error) (Repository, error) {
		return Repository{}, httpclient.NewDecodeError(prefix+field, err)
	}

	var r Repository

	raw, err := required(doc, fieldID)
	if err != nil {
		return fail(fieldID, err)
	}
	if r.ID, err = integer(raw); err != nil {
		return fail(fieldID, err)
	}

	if raw, err = required(doc, fieldName); err != nil {
		return fail(fieldName, err)
	}
	if r.Name, err = str(raw); err != nil {
		return fail(fieldName, err)
	}

	if raw, err = required(doc, fieldURL); err != nil {
		return fail(fieldURL, err)
	}
	rawURL, err := str(raw)
	if err != nil {
		return fail(fieldURL, err)
	}
	if r.URL, err = absoluteURL(rawURL); err != nil {
		return fail(fieldURL, err)
	}

	if raw, ok := optional(doc, fieldDescription); ok {
		d, err := str(raw)
		if err != nil {
			return fail(fieldDescription, err)
		}
		r.Description = &d
	}

	if raw, ok := optional(doc, fieldOwner); ok {
		var owner struct {
			Login string `json:"login"`
		}
		if err := json.Unmarshal(raw, &owner); err != nil {
			return fail(fieldOwner, fmt.Errorf("%w: expected object", ErrWrongType))
		}
		r.Owner = owner.Login
	}

	return r, nil
}

// required returns the raw value of a field that must be present and non-null.
func required(doc map[string]json.RawMessage, field string) (json.RawMessage, error) {
	raw, ok := optional(doc, field)
	if !ok {
		return nil, ErrMissingField
	}
	return raw, nil
}

// optional returns the raw value of a field, treating null as absent.
func optional(doc map[string]json.RawMessage, field string) (json.RawMessage, bool) {
	raw, ok := doc[field]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, false
	}
	return raw, true
}

func integer(raw json.RawMessage) (int64, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrWrongType, err)
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("%w: expected integer, got %s", ErrWrongType, jsonKind(v))
	}
	i, err := n.Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: expected integer, got %s", ErrWrongType, n)
	}
	return i, nil
}

func str(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var v any
		_ = json.Unmarshal(raw, &v)
		return "", fmt.Errorf("%w: expected string, got %s", ErrWrongType, jsonKind(v))
	}
	return s, nil
}

func absoluteURL(s string) (*url.URL, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWrongType, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%w: expected absolute URL, got %q", ErrWrongType, s)
	}
	return u, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, json.Number:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "null"
	}
}
