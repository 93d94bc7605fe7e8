package fetch

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"mime"
	"os"
	"path/filepath"
	"reflect"
	"slices"
)

// Field is one value of a write payload: a Value, a File, or Files.
type Field interface {
	isField()
}

// Payload is the keyed write payload. It is sent as JSON unless a File or
// Files field is present, in which case it is sent as multipart/form-data.
type Payload map[string]Field

type valueField struct {
	v any
}

func (valueField) isField() {}

// Value wraps a plain value: string, number, bool, nil, slice, map or struct.
func Value(v any) Field {
	return valueField{v: v}
}

// File is a single file handle.
type File struct {
	// FileName is the file name sent to the server.
	FileName string
	// ContentType is the MIME type. If empty, application/octet-stream is used.
	ContentType string
	// Data is the file content. Used if Reader is nil.
	Data []byte
	// Reader is an alternative to Data for streaming large files.
	Reader io.Reader
}

func (File) isField() {}

// Files is a file list. Each element is sent under "key[]".
type Files []File

func (Files) isField() {}

// OpenFile reads a file from disk into a File, guessing its content type
// from the extension.
func OpenFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("fetch: open file: %w", err)
	}
	return File{
		FileName:    filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Data:        data,
	}, nil
}

// HasFiles reports whether the payload must be sent as multipart.
func (p Payload) HasFiles() bool {
	for _, f := range p {
		switch f.(type) {
		case File, *File, Files:
			return true
		}
	}
	return false
}

// Encode selects and builds the request body. A nil payload yields a nil body.
func (p Payload) Encode() (Body, error) {
	if p == nil {
		return nil, nil
	}
	if p.HasFiles() {
		return p.multipart()
	}
	return p.json()
}

func (p Payload) json() (JSONBody, error) {
	m := make(map[string]any, len(p))
	for k, f := range p {
		v, ok := f.(valueField)
		if !ok {
			return nil, fmt.Errorf("fetch: field %q: unsupported field type %T", k, f)
		}
		m[k] = v.v
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("fetch: encode payload: %w", err)
	}
	return JSONBody(data), nil
}

// multipart builds the form in key order so bodies are reproducible.
func (p Payload) multipart() (*MultipartBody, error) {
	body := &MultipartBody{}
	for _, key := range slices.Sorted(maps.Keys(p)) {
		switch f := p[key].(type) {
		case File:
			body.Parts = append(body.Parts, Part{Name: key, File: &f})
		case *File:
			if f != nil {
				body.Parts = append(body.Parts, Part{Name: key, File: f})
			}
		case Files:
			for i := range f {
				body.Parts = append(body.Parts, Part{Name: key + "[]", File: &f[i]})
			}
		case valueField:
			parts, err := valueParts(key, f.v)
			if err != nil {
				return nil, err
			}
			body.Parts = append(body.Parts, parts...)
		default:
			return nil, fmt.Errorf("fetch: field %q: unsupported field type %T", key, f)
		}
	}
	return body, nil
}

// valueParts expands slices and arrays into one "key[]" part per element.
func valueParts(key string, v any) ([]Part, error) {
	rv := reflect.ValueOf(v)
	if v != nil && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8 {
		parts := make([]Part, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			s, err := formText(key, rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			parts = append(parts, Part{Name: key + "[]", Value: s})
		}
		return parts, nil
	}
	s, err := formText(key, v)
	if err != nil {
		return nil, err
	}
	return []Part{{Name: key, Value: s}}, nil
}

// formText renders a value as form text: strings as-is, everything else as JSON.
func formText(key string, v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	case fmt.Stringer:
		return t.String(), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("fetch: field %q: %w", key, err)
	}
	return string(data), nil
}
