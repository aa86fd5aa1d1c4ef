package hfepa

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Options configures a Detector. It is validated once by New and never
// changes afterwards.
type Options struct {
	// WindowSize is the number of pages compared on each side of a page.
	WindowSize int `json:"window_size" yaml:"window_size"`

	// HeaderThreshold is the minimum header score for a header line.
	HeaderThreshold float64 `json:"header_threshold" yaml:"header_threshold"`

	// FooterThreshold is the minimum footer score for a footer line.
	// Nil means HeaderThreshold.
	FooterThreshold *float64 `json:"footer_threshold,omitempty" yaml:"footer_threshold,omitempty"`

	// Weights holds one weight per candidate slot. Its length is the
	// number of candidates taken from each page edge.
	Weights []float64 `json:"weights" yaml:"weights"`

	// Parallelism bounds the pages scored at once. Zero means GOMAXPROCS.
	Parallelism int `json:"-" yaml:"parallelism"`
}

// DefaultWeights are the per-slot weights used when none are configured.
var DefaultWeights = []float64{1.0, 0.75, 0.5, 0.5, 0.5}

// DefaultOptions returns the reference configuration.
func DefaultOptions() Options {
	return Options{
		WindowSize:      8,
		HeaderThreshold: 8.0,
		Weights:         slices.Clone(DefaultWeights),
	}
}

// EffectiveFooterThreshold resolves the footer threshold default.
func (o Options) EffectiveFooterThreshold() float64 {
	if o.FooterThreshold != nil {
		return *o.FooterThreshold
	}
	return o.HeaderThreshold
}

// ErrInvalidConfig is matched by every *ConfigError.
var ErrInvalidConfig = errors.New("invalid detector configuration")

// ConfigError names the option that failed validation.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ConfigError) Is(target error) bool { return target == ErrInvalidConfig }

// Validate reports every invalid option at once.
func (o Options) Validate() error {
	var errs []error

	if o.WindowSize <= 0 {
		errs = append(errs, &ConfigError{Field: "window_size", Message: "must be a positive integer"})
	}
	if !nonNegative(o.HeaderThreshold) {
		errs = append(errs, &ConfigError{Field: "header_threshold", Message: "must be a finite number >= 0"})
	}
	if o.FooterThreshold != nil && !nonNegative(*o.FooterThreshold) {
		errs = append(errs, &ConfigError{Field: "footer_threshold", Message: "must be a finite number >= 0"})
	}
	if len(o.Weights) == 0 {
		errs = append(errs, &ConfigError{Field: "weights", Message: "must not be empty"})
	}
	for i, w := range o.Weights {
		if !nonNegative(w) {
			errs = append(errs, &ConfigError{
				Field:   fmt.Sprintf("weights[%d]", i),
				Message: "must be a finite number >= 0",
			})
		}
	}
	if o.Parallelism < 0 {
		errs = append(errs, &ConfigError{Field: "parallelism", Message: "must be >= 0"})
	}

	return errors.Join(errs...)
}

func nonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 1)
}

// MaxScore is the best score a page with a full window on both sides can
// reach: 2 × window × max(weight) + 1.
func (o Options) MaxScore() float64 {
	if len(o.Weights) == 0 {
		return selfBonus
	}
	return 2*float64(o.WindowSize)*slices.Max(o.Weights) + selfBonus
}

// ThresholdWarnings lists thresholds that no line can ever reach. Such a
// configuration is legal but classifies nothing for that role.
func (o Options) ThresholdWarnings() []string {
	maxScore := o.MaxScore()
	var warnings []string
	if o.HeaderThreshold > maxScore {
		warnings = append(warnings, fmt.Sprintf("header threshold (%g) exceeds maximum possible score (%g)", o.HeaderThreshold, maxScore))
	}
	if ft := o.EffectiveFooterThreshold(); ft > maxScore {
		warnings = append(warnings, fmt.Sprintf("footer threshold (%g) exceeds maximum possible score (%g)", ft, maxScore))
	}
	return warnings
}

// Fingerprint is a stable key for the options that affect results.
// Parallelism is excluded since it never changes the output.
func (o Options) Fingerprint() string {
	var b strings.Builder
	b.WriteString("w=")
	b.WriteString(strconv.Itoa(o.WindowSize))
	b.WriteString(";h=")
	b.WriteString(strconv.FormatFloat(o.HeaderThreshold, 'g', -1, 64))
	b.WriteString(";f=")
	b.WriteString(strconv.FormatFloat(o.EffectiveFooterThreshold(), 'g', -1, 64))
	b.WriteString(";k=")
	for i, w := range o.Weights {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(w, 'g', -1, 64))
	}
	return b.String()
}

// ParseWeights reads a comma separated weight list such as "1,0.75,0.5".
func ParseWeights(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, &ConfigError{Field: "weights", Message: "must not be empty"}
	}
	parts := strings.Split(s, ",")
	weights := make([]float64, 0, len(parts))
	for i, part := range parts {
		w, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, &ConfigError{Field: fmt.Sprintf("weights[%d]", i), Message: fmt.Sprintf("not a number: %q", part)}
		}
		weights = append(weights, w)
	}
	return weights, nil
}
