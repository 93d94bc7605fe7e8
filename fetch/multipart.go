package fetch

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/textproto"
)

// MultipartBody is a multipart/form-data request body. The helper never
// sets its Content-Type: the Fetcher picks the boundary when it encodes it.
type MultipartBody struct {
	Parts []Part
}

func (*MultipartBody) isBody() {}

// Part is one form entry: a text value, or a file when File is set.
type Part struct {
	Name  string
	Value string
	File  *File
}

// Encode writes the form and returns the reader and the Content-Type header
// value carrying the boundary.
func (m *MultipartBody) Encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, p := range m.Parts {
		if p.File == nil {
			if err := w.WriteField(p.Name, p.Value); err != nil {
				return nil, "", err
			}
			continue
		}
		if err := writeFilePart(w, p.Name, p.File); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func writeFilePart(w *multipart.Writer, name string, f *File) error {
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		`form-data; name="`+escapeQuotes(name)+`"; filename="`+escapeQuotes(f.FileName)+`"`)
	header.Set("Content-Type", contentType)

	part, err := w.CreatePart(header)
	if err != nil {
		return err
	}
	if f.Reader != nil {
		_, err = io.Copy(part, f.Reader)
		return err
	}
	_, err = part.Write(f.Data)
	return err
}

// escapeQuotes replaces special characters in header values.
func escapeQuotes(s string) string {
	var buf bytes.Buffer
	for _, b := range []byte(s) {
		if b == '"' || b == '\\' {
			buf.WriteByte('\\')
		}
		buf.WriteByte(b)
	}
	return buf.String()
}
