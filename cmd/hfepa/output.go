package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/dgallion1/hfepa/internal/hfepa"
)

// writeJSON wraps pages in the same {"pages": ...} envelope the readers accept.
func writeJSON(w io.Writer, pages any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{"pages": pages})
}

// writeStrippedText writes one line per body line and ends every page
// with a form feed, so pages left empty by stripping survive a round trip
// through the text reader.
func writeStrippedText(w io.Writer, doc hfepa.Document) error {
	for _, page := range doc {
		for _, line := range page {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "\f"); err != nil {
			return err
		}
	}
	return nil
}

var (
	headerColor = color.New(color.FgCyan)
	footerColor = color.New(color.FgYellow)
	pageColor   = color.New(color.Faint)
)

// writeAnnotatedText prints each line with its type and both scores.
// Non-candidate roles show "-" instead of a score.
func writeAnnotatedText(w io.Writer, doc hfepa.AnnotatedDocument) error {
	for p, page := range doc {
		if _, err := pageColor.Fprintf(w, "--- page %d ---\n", p+1); err != nil {
			return err
		}
		for _, rec := range page {
			line := fmt.Sprintf("%-6s %6s %6s  %s",
				rec.LineType,
				score(rec.HeaderCandidate, rec.HeaderScore),
				score(rec.FooterCandidate, rec.FooterScore),
				rec.Text,
			)
			var err error
			switch rec.LineType {
			case hfepa.LineHeader:
				_, err = headerColor.Fprintln(w, line)
			case hfepa.LineFooter:
				_, err = footerColor.Fprintln(w, line)
			default:
				_, err = fmt.Fprintln(w, line)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func score(candidate bool, v float64) string {
	if !candidate {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}
