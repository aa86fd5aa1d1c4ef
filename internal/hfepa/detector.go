package hfepa

import (
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"
)

// Detector scores and classifies document lines. It is safe for
// concurrent use; its options are copied at construction.
type Detector struct {
	opts            Options
	footerThreshold float64
	parallelism     int
}

// New validates opts and returns a Detector. Invalid options never
// produce a Detector.
func New(opts Options) (*Detector, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts.Weights = slices.Clone(opts.Weights)
	if opts.FooterThreshold != nil {
		ft := *opts.FooterThreshold
		opts.FooterThreshold = &ft
	}

	parallelism := opts.Parallelism
	if parallelism == 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	return &Detector{
		opts:            opts,
		footerThreshold: opts.EffectiveFooterThreshold(),
		parallelism:     parallelism,
	}, nil
}

// Options returns a copy of the detector's configuration.
func (d *Detector) Options() Options {
	o := d.opts
	o.Weights = slices.Clone(d.opts.Weights)
	if d.opts.FooterThreshold != nil {
		ft := *d.opts.FooterThreshold
		o.FooterThreshold = &ft
	}
	return o
}

// Strip returns the document with every header and footer line removed.
// Page count and body line order are preserved.
func (d *Detector) Strip(doc Document) (Document, error) {
	ann, err := d.Annotate(doc)
	if err != nil {
		return nil, err
	}
	return StripAnnotated(ann), nil
}

// Annotate returns a record for every line of every page.
func (d *Detector) Annotate(doc Document) (AnnotatedDocument, error) {
	if err := ValidateDocument(doc); err != nil {
		return nil, err
	}

	k := len(d.opts.Weights)
	headers := make([][]Candidate, len(doc))
	footers := make([][]Candidate, len(doc))
	for p, page := range doc {
		headers[p] = ExtractCandidates(page, k, Header)
		footers[p] = ExtractCandidates(page, k, Footer)
	}

	out := make(AnnotatedDocument, len(doc))
	var g errgroup.Group
	g.SetLimit(d.parallelism)
	for p := range doc {
		g.Go(func() error {
			out[p] = d.annotatePage(doc[p], headers, footers, p)
			return nil
		})
	}
	_ = g.Wait() // page workers never fail

	return out, nil
}

// annotatePage reads the shared candidate tables and writes only its own
// page's records.
func (d *Detector) annotatePage(page Page, headers, footers [][]Candidate, p int) []LineRecord {
	recs := make([]LineRecord, len(page))
	for i, text := range page {
		recs[i] = LineRecord{Text: text, LineType: LineBody, Line: i}
	}

	headerScores := scorePage(headers, p, d.opts.WindowSize, d.opts.Weights)
	for slot, c := range headers[p] {
		recs[c.Line].HeaderCandidate = true
		recs[c.Line].HeaderScore = headerScores[slot]
		recs[c.Line].Normalized = c.Key
	}
	footerScores := scorePage(footers, p, d.opts.WindowSize, d.opts.Weights)
	for slot, c := range footers[p] {
		recs[c.Line].FooterCandidate = true
		recs[c.Line].FooterScore = footerScores[slot]
		recs[c.Line].Normalized = c.Key
	}

	for i := range recs {
		recs[i].LineType = classifyRecord(recs[i], d.opts.HeaderThreshold, d.footerThreshold)
	}
	return recs
}
