package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-dynforms/pkg/model"
)

// Result is the outcome of decoding one catalog document.
type Result struct {
	Forms   []model.Form
	Skipped []*ParseError
}

type envelope struct {
	Value []entry `json:"value"`
}

type entry struct {
	Schema json.RawMessage `json:"schema"`
}

// Decode parses doc according to its origin. URL documents are catalog
// envelopes; file documents may also be a bare form, a list of forms, or
// YAML. Malformed entries are reported in Result.Skipped; only a document
// that cannot be read at all returns an error.
func Decode(doc Document) (Result, error) {
	raw := doc.Raw()
	if doc.Source() != nil && doc.Source().Kind() != SourceKindURL {
		switch strings.ToLower(filepath.Ext(doc.Location())) {
		case ".yaml", ".yml":
			return DecodeYAML(raw)
		}
		return DecodeJSON(raw)
	}
	return DecodeEnvelope(raw)
}

// DecodeEnvelope parses `{ "value": [ { "schema": ... } ] }`.
func DecodeEnvelope(raw []byte) (Result, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Result{}, fmt.Errorf("catalog: decode envelope: %w", err)
	}
	result := Result{Forms: []model.Form{}}
	for idx, item := range env.Value {
		forms, skipped := decodeEntry(idx, item.Schema)
		result.Forms = append(result.Forms, forms...)
		result.Skipped = append(result.Skipped, skipped...)
	}
	return result, nil
}

// DecodeJSON accepts an envelope, a single form object, or an array of forms.
func DecodeJSON(raw []byte) (Result, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Result{}, errors.New("catalog: empty document")
	}
	if trimmed[0] == '{' {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &probe); err != nil {
			return Result{}, fmt.Errorf("catalog: decode document: %w", err)
		}
		if _, ok := probe["value"]; ok {
			return DecodeEnvelope(trimmed)
		}
	}
	items, err := splitValue(trimmed)
	if err != nil {
		return Result{}, fmt.Errorf("catalog: decode document: %w", err)
	}
	result := Result{Forms: make([]model.Form, 0, len(items))}
	for idx, item := range items {
		form, err := decodeForm(item)
		if err != nil {
			result.Skipped = append(result.Skipped, &ParseError{Index: idx, Item: -1, Err: err})
			continue
		}
		result.Forms = append(result.Forms, form)
	}
	return result, nil
}

// DecodeYAML accepts a single form or a sequence of forms.
func DecodeYAML(raw []byte) (Result, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return Result{}, fmt.Errorf("catalog: decode yaml: %w", err)
	}
	if len(root.Content) == 0 {
		return Result{}, errors.New("catalog: empty document")
	}
	node := root.Content[0]
	items := []*yaml.Node{node}
	if node.Kind == yaml.SequenceNode {
		items = node.Content
	}
	result := Result{Forms: make([]model.Form, 0, len(items))}
	for idx, item := range items {
		var form model.Form
		err := item.Decode(&form)
		if err == nil {
			form, err = finish(form)
		}
		if err != nil {
			result.Skipped = append(result.Skipped, &ParseError{Index: idx, Item: -1, Err: err})
			continue
		}
		result.Forms = append(result.Forms, form)
	}
	return result, nil
}

// UnwrapSchema removes the outer quote pair some backends add around the
// schema string and collapses doubled quotes.
func UnwrapSchema(raw string) string {
	s := strings.TrimSpace(raw)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = strings.ReplaceAll(s[1:len(s)-1], `""`, `"`)
	}
	return s
}

func decodeEntry(idx int, schema json.RawMessage) ([]model.Form, []*ParseError) {
	schema = bytes.TrimSpace(schema)
	if len(schema) == 0 || bytes.Equal(schema, []byte("null")) {
		return nil, []*ParseError{{Index: idx, Item: -1, Err: errors.New("schema is missing")}}
	}

	var items []json.RawMessage
	var err error
	if schema[0] == '"' {
		var text string
		if err := json.Unmarshal(schema, &text); err != nil {
			return nil, []*ParseError{{Index: idx, Item: -1, Err: err}}
		}
		items, err = decodeSchemaString(text)
	} else {
		items, err = splitValue(schema)
	}
	if err != nil {
		return nil, []*ParseError{{Index: idx, Item: -1, Err: err}}
	}

	forms := make([]model.Form, 0, len(items))
	var skipped []*ParseError
	for item, raw := range items {
		form, err := decodeForm(raw)
		if err != nil {
			pos := item
			if len(items) == 1 {
				pos = -1
			}
			skipped = append(skipped, &ParseError{Index: idx, Item: pos, Err: err})
			continue
		}
		forms = append(forms, form)
	}
	return forms, skipped
}

// decodeSchemaString unwraps and splits a schema string. When the quote
// unwrapping does not yield JSON, the text is retried as an escaped JSON
// string literal.
func decodeSchemaString(text string) ([]json.RawMessage, error) {
	items, err := splitValue([]byte(UnwrapSchema(text)))
	if err == nil {
		return items, nil
	}
	trimmed := strings.TrimSpace(text)
	var literal string
	if json.Unmarshal([]byte(trimmed), &literal) == nil {
		if retried, retryErr := splitValue([]byte(literal)); retryErr == nil {
			return retried, nil
		}
	}
	return nil, err
}

// splitValue returns the elements of a JSON array, or the value itself when
// it is an object.
func splitValue(raw []byte) ([]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, errors.New("schema is empty")
	}
	switch raw[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		return items, nil
	case '{':
		if !json.Valid(raw) {
			return nil, errors.New("schema is not valid JSON")
		}
		return []json.RawMessage{raw}, nil
	default:
		return nil, fmt.Errorf("schema must be an object or array, got %.20q", raw)
	}
}

func decodeForm(raw json.RawMessage) (model.Form, error) {
	var form model.Form
	if err := json.Unmarshal(raw, &form); err != nil {
		return model.Form{}, err
	}
	return finish(form)
}

func finish(form model.Form) (model.Form, error) {
	form = model.Normalize(form)
	if err := model.CheckIdentity(form); err != nil {
		return model.Form{}, err
	}
	return form, nil
}
