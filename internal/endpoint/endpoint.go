package endpoint

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownEndpoint = errors.New("unknown endpoint")

// Endpoint is one of the logical sub-paths exposed by the script web app.
type Endpoint string

const (
	Root   Endpoint = ""
	API    Endpoint = "/api"
	Health Endpoint = "/health"
	Stats  Endpoint = "/stats"
	Test   Endpoint = "/test"
)

const rootName = "root"

func All() []Endpoint {
	return []Endpoint{Root, API, Health, Stats, Test}
}

func (e Endpoint) Path() string {
	return string(e)
}

// Name is the value sent in the injected "endpoint" field.
func (e Endpoint) Name() string {
	if e == Root {
		return rootName
	}

	return string(e)
}

// Label is the human readable form used when printing results.
func (e Endpoint) Label() string {
	if e == Root {
		return "Root (/)"
	}

	return string(e)
}

func (e Endpoint) Valid() bool {
	switch e {
	case Root, API, Health, Stats, Test:
		return true
	}

	return false
}

// Parse accepts "/api", "api", "root", "/" or "" and returns the matching endpoint.
func Parse(s string) (Endpoint, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	switch s {
	case "", "/", rootName:
		return Root, nil
	}

	if !strings.HasPrefix(s, "/") {
		s = "/" + s
	}

	ep := Endpoint(s)
	if !ep.Valid() {
		return Root, fmt.Errorf("%w: %q", ErrUnknownEndpoint, s)
	}

	return ep, nil
}

func (e *Endpoint) UnmarshalText(text []byte) error {
	ep, err := Parse(string(text))
	if err != nil {
		return err
	}

	*e = ep
	return nil
}

func (e Endpoint) MarshalText() ([]byte, error) {
	return []byte(e.Name()), nil
}

// BuildURL joins baseURL and the endpoint path, removing at most one slash on
// each side of the join.
func BuildURL(baseURL string, e Endpoint) string {
	base := strings.TrimSuffix(baseURL, "/")
	path := strings.TrimPrefix(e.Path(), "/")

	if path == "" {
		return base
	}

	return base + "/" + path
}
