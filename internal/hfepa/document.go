// Package hfepa classifies the lines of a paged document as header,
// footer or body by comparing the lines nearest each page edge against
// the same positions on neighboring pages (Header and Footer Extraction
// by Page-Association).
package hfepa

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Page is an ordered list of raw lines.
type Page []string

// Document is an ordered list of pages. The page index drives the window.
type Document []Page

// LineType is the classification assigned to a line.
type LineType string

const (
	LineHeader LineType = "header"
	LineFooter LineType = "footer"
	LineBody   LineType = "body"
)

// LineRecord is the annotation produced for every input line.
type LineRecord struct {
	Text            string   `json:"text"`
	LineType        LineType `json:"line_type"`
	HeaderScore     float64  `json:"header_score"`
	FooterScore     float64  `json:"footer_score"`
	HeaderCandidate bool     `json:"header_candidate"`
	FooterCandidate bool     `json:"footer_candidate"`
	Line            int      `json:"line_idx"`
	Normalized      string   `json:"cleaned_text"`
}

// AnnotatedDocument mirrors the page/line structure of its input.
type AnnotatedDocument [][]LineRecord

// ErrInvalidInput is matched by every *InputError.
var ErrInvalidInput = errors.New("invalid input document")

// InputError reports a malformed document before any scoring runs.
type InputError struct {
	Page    int // -1 when the document as a whole is at fault
	Line    int // -1 when the whole page is at fault
	Message string
}

func (e *InputError) Error() string {
	if e.Page < 0 {
		return e.Message
	}
	if e.Line < 0 {
		return fmt.Sprintf("page %d: %s", e.Page, e.Message)
	}
	return fmt.Sprintf("page %d line %d: %s", e.Page, e.Line, e.Message)
}

func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

// ValidateDocument checks that every line is valid UTF-8 text.
func ValidateDocument(doc Document) error {
	for p, page := range doc {
		for l, line := range page {
			if !utf8.ValidString(line) {
				return &InputError{Page: p, Line: l, Message: "line is not valid UTF-8"}
			}
		}
	}
	return nil
}

// StripAnnotated drops header and footer lines, keeping body lines in order.
// The result always has one (possibly empty) page per annotated page.
func StripAnnotated(doc AnnotatedDocument) Document {
	out := make(Document, len(doc))
	for p, page := range doc {
		kept := make(Page, 0, len(page))
		for _, rec := range page {
			if rec.LineType == LineBody {
				kept = append(kept, rec.Text)
			}
		}
		out[p] = kept
	}
	return out
}
