package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Parse decodes a YAML rule document. Unknown fields are rejected so typos in
// rule files fail loudly instead of silently disabling a discount.
func Parse(data []byte) (Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Document{}, errors.New("rules document is empty")
		}
		return Document{}, fmt.Errorf("decode rules: %w", err)
	}
	return doc, nil
}

// LoadFile reads and decodes a YAML rule document from path.
func LoadFile(path string) (Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read rules %s: %w", path, err)
	}
	return Parse(b)
}

// Load reads path and builds a validated Repository from it.
func Load(path string) (*Repository, error) {
	doc, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return NewRepository(doc)
}

// Marshal encodes doc back to YAML, used by tools that export rule sets.
func Marshal(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode rules: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
