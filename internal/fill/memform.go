package fill

import (
	"encoding/json"
	"fmt"
	"sync"
)

// MemEngine is the development fill engine. It reads the template as a JSON
// field manifest ({"fields": ["applicant_name", ...]}) and produces a JSON
// document of filled values. The production engine wraps the PDF form
// library behind the same Engine interface; rendering is out of scope here.
type MemEngine struct{}

// NewMemEngine returns the development engine.
func NewMemEngine() *MemEngine { return &MemEngine{} }

type memManifest struct {
	Fields []string `json:"fields"`
}

// Open parses the manifest and returns an in-memory form.
func (e *MemEngine) Open(template []byte) (Form, error) {
	var m memManifest
	if err := json.Unmarshal(template, &m); err != nil {
		return nil, fmt.Errorf("parse template manifest: %w", err)
	}
	known := make(map[string]struct{}, len(m.Fields))
	for _, f := range m.Fields {
		known[f] = struct{}{}
	}
	return &memForm{known: known, values: map[string]string{}}, nil
}

type memForm struct {
	mu     sync.Mutex
	known  map[string]struct{}
	values map[string]string
}

func (f *memForm) SetField(name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.known[name]; !ok {
		return fmt.Errorf("field %q not present in template", name)
	}
	f.values[name] = value
	return nil
}

func (f *memForm) Bytes() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return json.Marshal(f.values)
}
