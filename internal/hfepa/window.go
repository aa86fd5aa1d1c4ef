package hfepa

// selfBonus is added to every scored candidate for matching itself. It
// keeps the score of an isolated or edge page above zero.
const selfBonus = 1.0

// WindowRange returns the inclusive page range [lo, hi] compared against
// page p in a document of n pages. The range is clamped to the document;
// it never wraps. It returns hi < lo when n is zero.
func WindowRange(p, n, window int) (lo, hi int) {
	lo = max(0, p-window)
	hi = min(n-1, p+window)
	return lo, hi
}

// ScoreSlot scores the candidate at slot on page p against the same slot
// on every other page inside the window:
//
//	1 + Σ weight × Similarity(key[p][slot], key[q][slot])
//
// A neighbor without that slot adds nothing. It returns 0 when page p
// itself has no candidate at slot.
func ScoreSlot(cands [][]Candidate, p, slot, window int, weight float64) float64 {
	if p < 0 || p >= len(cands) || slot < 0 || slot >= len(cands[p]) {
		return 0
	}
	target := cands[p][slot].Key

	score := selfBonus
	lo, hi := WindowRange(p, len(cands), window)
	for q := lo; q <= hi; q++ {
		if q == p || slot >= len(cands[q]) {
			continue
		}
		score += weight * Similarity(target, cands[q][slot].Key)
	}
	return score
}

// scorePage returns one score per candidate on page p. Slot i uses
// weights[i] for either role since footer slots are numbered from the
// bottom edge.
func scorePage(cands [][]Candidate, p, window int, weights []float64) []float64 {
	scores := make([]float64, len(cands[p]))
	for slot := range cands[p] {
		scores[slot] = ScoreSlot(cands, p, slot, window, weights[slot])
	}
	return scores
}
