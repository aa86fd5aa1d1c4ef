package hfepa

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()
	assert.Equal(t, 8, o.WindowSize)
	assert.Equal(t, 8.0, o.HeaderThreshold)
	assert.Nil(t, o.FooterThreshold)
	assert.Equal(t, 8.0, o.EffectiveFooterThreshold())
	assert.Equal(t, []float64{1.0, 0.75, 0.5, 0.5, 0.5}, o.Weights)
	assert.NoError(t, o.Validate())

	o.Weights[0] = 42
	assert.Equal(t, 1.0, DefaultWeights[0], "defaults must not share the weight slice")
}

func TestOptions_FooterThresholdOverride(t *testing.T) {
	o := DefaultOptions()
	o.FooterThreshold = ptr(7)
	assert.Equal(t, 7.0, o.EffectiveFooterThreshold())
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		fields []string
	}{
		{"zero window", func(o *Options) { o.WindowSize = 0 }, []string{"window_size"}},
		{"negative window", func(o *Options) { o.WindowSize = -3 }, []string{"window_size"}},
		{"negative header threshold", func(o *Options) { o.HeaderThreshold = -1 }, []string{"header_threshold"}},
		{"NaN header threshold", func(o *Options) { o.HeaderThreshold = math.NaN() }, []string{"header_threshold"}},
		{"negative footer threshold", func(o *Options) { o.FooterThreshold = ptr(-0.5) }, []string{"footer_threshold"}},
		{"empty weights", func(o *Options) { o.Weights = nil }, []string{"weights"}},
		{"negative weight", func(o *Options) { o.Weights = []float64{1, -0.1} }, []string{"weights[1]"}},
		{"infinite weight", func(o *Options) { o.Weights = []float64{math.Inf(1)} }, []string{"weights[0]"}},
		{"negative parallelism", func(o *Options) { o.Parallelism = -1 }, []string{"parallelism"}},
		{"several at once", func(o *Options) {
			o.WindowSize = 0
			o.Weights = nil
		}, []string{"window_size", "weights"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := DefaultOptions()
			tt.mutate(&o)
			err := o.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
			for _, field := range tt.fields {
				assert.Contains(t, err.Error(), field)
			}
			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.fields[0], cfgErr.Field)
		})
	}
}

func TestOptions_ZeroValuesAreValid(t *testing.T) {
	o := Options{WindowSize: 1, HeaderThreshold: 0, FooterThreshold: ptr(0), Weights: []float64{0}}
	assert.NoError(t, o.Validate())
}

func TestOptions_MaxScore(t *testing.T) {
	assert.Equal(t, 17.0, DefaultOptions().MaxScore())

	o := Options{WindowSize: 5, Weights: []float64{0.5, 2}}
	assert.Equal(t, 21.0, o.MaxScore())
}

func TestOptions_ThresholdWarnings(t *testing.T) {
	o := DefaultOptions()
	o.WindowSize = 2
	o.HeaderThreshold = 100
	o.FooterThreshold = ptr(1)
	warnings := o.ThresholdWarnings()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "header threshold")
	assert.Contains(t, warnings[0], "exceeds maximum possible score")

	o.HeaderThreshold = 1
	o.FooterThreshold = ptr(100)
	warnings = o.ThresholdWarnings()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "footer threshold")

	o.HeaderThreshold = 100
	assert.Len(t, o.ThresholdWarnings(), 2)

	assert.Empty(t, DefaultOptions().ThresholdWarnings())
}

func TestOptions_Fingerprint(t *testing.T) {
	a := DefaultOptions()
	b := DefaultOptions()
	b.Parallelism = 16
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	b.FooterThreshold = ptr(8)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint(), "explicit default footer threshold is the same configuration")

	b.WindowSize = 3
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())

	c := DefaultOptions()
	c.Weights = []float64{1, 0.75}
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestParseWeights(t *testing.T) {
	w, err := ParseWeights(" 1, 0.75 ,0.5")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0.75, 0.5}, w)

	_, err = ParseWeights("")
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = ParseWeights("1,abc")
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "weights[1]")
}
