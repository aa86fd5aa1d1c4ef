package segment

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/hfepa/internal/hfepa"
)

const formFeed = '\f'

// TextReader handles plain text where pages are separated by form feeds,
// the convention of pdftotext and most print spoolers.
type TextReader struct{}

func (p *TextReader) Read(r io.Reader) (hfepa.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	scanner.Split(scanPages)

	var doc hfepa.Document
	for scanner.Scan() {
		doc = append(doc, splitLines(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	return doc, nil
}

// scanPages is a bufio.SplitFunc yielding the text between form feeds.
// A trailing form feed closes the last page rather than opening a new one.
func scanPages(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, formFeed); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// splitLines breaks a page into lines. The newline that ends the page's
// last line does not produce an extra empty line.
func splitLines(page string) hfepa.Page {
	page = strings.TrimSuffix(page, "\n")
	page = strings.TrimSuffix(page, "\r")
	if page == "" {
		return hfepa.Page{}
	}
	lines := strings.Split(page, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
