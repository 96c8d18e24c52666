package store

import (
	"context"
	"sync"

	"github.com/kx0101/scripttester/internal/endpoint"
)

const (
	DefaultPostData  = `{"message": "Hello from webapp!", "timestamp": "2024-01-01", "source": "react-interface"}`
	DefaultGetParams = "action=test&source=webapp"

	configKey   = "gscriptTesterConfig"
	endpointKey = "gscriptTesterEndpoint"
)

// Saved is the form state remembered between runs.
type Saved struct {
	ScriptURL string            `json:"scriptUrl" yaml:"script_url"`
	PostData  string            `json:"postData" yaml:"post_data"`
	GetParams string            `json:"getParams" yaml:"get_params"`
	Endpoint  endpoint.Endpoint `json:"-" yaml:"-"`
}

type Store interface {
	Load(ctx context.Context) (*Saved, error)
	Save(ctx context.Context, s *Saved) error
}

func Defaults() *Saved {
	return &Saved{
		PostData:  DefaultPostData,
		GetParams: DefaultGetParams,
		Endpoint:  endpoint.Root,
	}
}

// Merge lays the non-empty fields of over on top of the defaults.
func Merge(over *Saved) *Saved {
	out := Defaults()
	if over == nil {
		return out
	}

	if over.ScriptURL != "" {
		out.ScriptURL = over.ScriptURL
	}

	if over.PostData != "" {
		out.PostData = over.PostData
	}

	if over.GetParams != "" {
		out.GetParams = over.GetParams
	}

	if over.Endpoint.Valid() {
		out.Endpoint = over.Endpoint
	}

	return out
}

func parseEndpoint(name string) endpoint.Endpoint {
	ep, err := endpoint.Parse(name)
	if err != nil {
		return endpoint.Root
	}

	return ep
}

type MemoryStore struct {
	mu    sync.Mutex
	saved *Saved
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context) (*Saved, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Merge(m.saved), nil
}

func (m *MemoryStore) Save(_ context.Context, s *Saved) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *s
	m.saved = &cp
	return nil
}
