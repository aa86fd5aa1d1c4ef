// Package segment reads already-paged documents from the two wire shapes
// the service accepts: JSON arrays of pages, and plain text with form
// feed page breaks.
package segment

import (
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/dgallion1/hfepa/internal/hfepa"
)

// Reader converts an input stream into a Document.
type Reader interface {
	Read(r io.Reader) (hfepa.Document, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".json": true,
	".txt":  true,
	".text": true,
}

// ForFile returns the appropriate reader for a filename.
func ForFile(filename string) (Reader, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".json":
		return &JSONReader{}, nil
	case ".txt", ".text", "":
		return &TextReader{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// ForContentType returns the reader for an HTTP Content-Type header.
// An empty header means JSON.
func ForContentType(contentType string) (Reader, error) {
	if contentType == "" {
		return &JSONReader{}, nil
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("invalid content type %q: %w", contentType, err)
	}
	switch mediaType {
	case "application/json":
		return &JSONReader{}, nil
	case "text/plain":
		return &TextReader{}, nil
	default:
		return nil, fmt.Errorf("unsupported content type: %s", mediaType)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// Read decodes r with the reader chosen by name's extension.
func Read(r io.Reader, name string) (hfepa.Document, error) {
	reader, err := ForFile(name)
	if err != nil {
		return nil, err
	}
	return reader.Read(r)
}

// DecodeJSON reads a JSON page array or {"pages": ...} envelope.
func DecodeJSON(r io.Reader) (hfepa.Document, error) {
	return (&JSONReader{}).Read(r)
}

// SplitText reads form feed separated plain text.
func SplitText(r io.Reader) (hfepa.Document, error) {
	return (&TextReader{}).Read(r)
}
