package submission

import (
	"encoding/json"
	"fmt"
)

// bookkeepingKeys are added by the form renderer and carry no user input
var bookkeepingKeys = map[string]bool{
	"data":    true,
	"submit":  true,
	"form_id": true,
	"state":   true,
}

// Source tells where an extracted value came from
type Source string

const (
	SourceRoot    Source = "root"
	SourceNested  Source = "nested"
	SourceDefault Source = "default"
)

// Payload is a decoded form submission: root-level keys plus the nested data object
type Payload struct {
	Root   map[string]interface{}
	Nested map[string]interface{}
}

// NewPayload wraps an already decoded submission object
func NewPayload(root map[string]interface{}) *Payload {
	if root == nil {
		root = map[string]interface{}{}
	}
	nested, _ := root["data"].(map[string]interface{})
	if nested == nil {
		nested = map[string]interface{}{}
	}
	return &Payload{Root: root, Nested: nested}
}

// Decode parses raw submission JSON; the top level must be an object
func Decode(raw []byte) (*Payload, error) {
	var root map[string]interface{}
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("failed to decode submission JSON: %w", err)
	}
	if root == nil {
		return nil, fmt.Errorf("submission is not a JSON object")
	}
	return NewPayload(root), nil
}

// IsPlaceholder reports whether the root holds nothing but bookkeeping keys,
// as happens when an empty form record is created
func (p *Payload) IsPlaceholder() bool {
	for key := range p.Root {
		if !bookkeepingKeys[key] {
			return false
		}
	}
	return true
}

// Has reports whether the key exists at the root or in the nested object
func (p *Payload) Has(key string) bool {
	if _, ok := p.Root[key]; ok {
		return true
	}
	_, ok := p.Nested[key]
	return ok
}

// lookup returns the first non-empty value among the root candidates, then
// among the nested candidates
func (p *Payload) lookup(rootKeys, nestedKeys []string) (interface{}, Source, bool) {
	for _, key := range rootKeys {
		if v, ok := p.Root[key]; ok && !isEmpty(v) {
			return v, SourceRoot, true
		}
	}
	for _, key := range nestedKeys {
		if v, ok := p.Nested[key]; ok && !isEmpty(v) {
			return v, SourceNested, true
		}
	}
	return nil, SourceDefault, false
}

// object returns the first map-valued candidate, root before nested
func (p *Payload) object(key string) (map[string]interface{}, bool) {
	if m, ok := p.Root[key].(map[string]interface{}); ok {
		return m, true
	}
	m, ok := p.Nested[key].(map[string]interface{})
	return m, ok
}

// list returns the first list-valued candidate, root before nested for each key
func (p *Payload) list(keys ...string) ([]interface{}, Source, bool) {
	for _, key := range keys {
		if l, ok := p.Root[key].([]interface{}); ok {
			return l, SourceRoot, true
		}
		if l, ok := p.Nested[key].([]interface{}); ok {
			return l, SourceNested, true
		}
	}
	return nil, SourceDefault, false
}

func isEmpty(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}
