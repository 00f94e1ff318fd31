package httpclient

import (
	"bytes"
	"encoding/json"
	"io"
)

// Content is the body of a request: either nothing or a JSON document.
type Content struct {
	value any
	json  bool
}

// NoContent is the empty body.
func NoContent() Content {
	return Content{}
}

// JSONContent wraps v to be sent as a JSON document. A json.RawMessage is
// sent as-is; any other value is marshaled with encoding/json.
func JSONContent(v any) Content {
	return Content{value: v, json: true}
}

// IsEmpty reports whether the content carries no body.
func (c Content) IsEmpty() bool {
	return !c.json
}

// encode returns the body reader and content type, or nil for no body.
func (c Content) encode() (io.Reader, string, error) {
	if !c.json {
		return nil, "", nil
	}
	var data []byte
	switch v := c.value.(type) {
	case json.RawMessage:
		data = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		data = b
	}
	return bytes.NewReader(data), "application/json", nil
}

// Request describes an outbound HTTP request.
type Request struct {
	// Method is the HTTP method (GET, POST, PUT, PATCH, DELETE, etc).
	Method string
	// Path is joined to the adapter's BaseURL. A full URL is used verbatim.
	Path string
	// Headers are request-specific headers (merged with adapter defaults).
	Headers map[string]string
	// Query are URL query parameters.
	Query map[string]string
	// Content is the request body.
	Content Content
}

// Response is the result of an HTTP request.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Headers are the response headers.
	Headers map[string]string
	// Body is the raw response body.
	Body []byte
}
