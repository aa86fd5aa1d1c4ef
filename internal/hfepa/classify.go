package hfepa

import "math"

// Classify assigns a line type from its two scores. The header check
// runs first, so a line meeting both thresholds is a header.
func Classify(headerScore, footerScore, headerThreshold, footerThreshold float64) LineType {
	if headerScore >= headerThreshold {
		return LineHeader
	}
	if footerScore >= footerThreshold {
		return LineFooter
	}
	return LineBody
}

// classifyRecord applies Classify to an annotated line. A role the line
// was not a candidate for can never match, even with a zero threshold.
func classifyRecord(rec LineRecord, headerThreshold, footerThreshold float64) LineType {
	hs, fs := rec.HeaderScore, rec.FooterScore
	if !rec.HeaderCandidate {
		hs = math.Inf(-1)
	}
	if !rec.FooterCandidate {
		fs = math.Inf(-1)
	}
	return Classify(hs, fs, headerThreshold, footerThreshold)
}
