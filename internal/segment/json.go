package segment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dgallion1/hfepa/internal/hfepa"
)

// JSONReader accepts either {"pages": [[...], ...]} or a bare [[...], ...].
type JSONReader struct{}

func (p *JSONReader) Read(r io.Reader) (hfepa.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var envelope struct {
			Pages json.RawMessage `json:"pages"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		data = envelope.Pages
	}
	return DecodePages(data)
}

// DecodePages decodes a JSON array of pages, each an array of strings.
// A page or line of any other shape fails with an *hfepa.InputError
// naming its position, so nothing is scored from a malformed document.
func DecodePages(raw json.RawMessage) (hfepa.Document, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, &hfepa.InputError{Page: -1, Line: -1, Message: "pages are required"}
	}

	var pages []json.RawMessage
	if err := json.Unmarshal(raw, &pages); err != nil {
		return nil, &hfepa.InputError{Page: -1, Line: -1, Message: "pages must be an array of pages"}
	}

	doc := make(hfepa.Document, len(pages))
	for p, rawPage := range pages {
		var lines []json.RawMessage
		if err := json.Unmarshal(rawPage, &lines); err != nil || bytes.Equal(bytes.TrimSpace(rawPage), []byte("null")) {
			return nil, &hfepa.InputError{Page: p, Line: -1, Message: "page must be an array of strings"}
		}
		page := make(hfepa.Page, len(lines))
		for l, rawLine := range lines {
			if err := json.Unmarshal(rawLine, &page[l]); err != nil || bytes.Equal(bytes.TrimSpace(rawLine), []byte("null")) {
				return nil, &hfepa.InputError{Page: p, Line: l, Message: "line must be a string"}
			}
		}
		doc[p] = page
	}
	return doc, nil
}
