package hfepa

// Role says which page edge a candidate was taken from.
type Role int

const (
	Header Role = iota
	Footer
)

func (r Role) String() string {
	if r == Header {
		return "header"
	}
	return "footer"
}

// Candidate is a line eligible for header or footer scoring.
type Candidate struct {
	Slot int    // rank among non-empty lines, counted from the page edge
	Line int    // index of the line within its page
	Role Role
	Text string // raw line
	Key  string // Normalize(Text)
}

// ExtractCandidates selects up to count non-empty lines from one edge of
// a page. Header slots run top-down from the first line, footer slots run
// bottom-up from the last line. Short pages yield fewer candidates.
func ExtractCandidates(page Page, count int, role Role) []Candidate {
	if count <= 0 || len(page) == 0 {
		return nil
	}

	cands := make([]Candidate, 0, min(count, len(page)))
	add := func(idx int) bool {
		text := page[idx]
		if isBlank(text) {
			return true
		}
		cands = append(cands, Candidate{
			Slot: len(cands),
			Line: idx,
			Role: role,
			Text: text,
			Key:  Normalize(text),
		})
		return len(cands) < count
	}

	if role == Header {
		for i := 0; i < len(page); i++ {
			if !add(i) {
				break
			}
		}
	} else {
		for i := len(page) - 1; i >= 0; i-- {
			if !add(i) {
				break
			}
		}
	}
	return cands
}
