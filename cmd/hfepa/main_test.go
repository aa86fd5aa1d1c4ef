package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/hfepa/internal/hfepa"
	"github.com/dgallion1/hfepa/internal/pipeline"
	"github.com/dgallion1/hfepa/internal/segment"
)

const reportText = "Company Report\nBody A\nPage 1\n\fCompany Report\nBody B\nPage 2\n\fCompany Report\nBody C\nPage 3\n"

func TestParseFlags(t *testing.T) {
	cfg, err := parseFlags([]string{"-window", "2", "-weights", "1,0.5", "annotate", "doc.txt"})
	require.NoError(t, err)
	assert.Equal(t, pipeline.ModeAnnotate, cfg.Mode)
	assert.Equal(t, []string{"doc.txt"}, cfg.Files)
	assert.True(t, cfg.set["window"])
	assert.True(t, cfg.set["weights"])
	assert.False(t, cfg.set["header-threshold"])
}

func TestParseFlags_Errors(t *testing.T) {
	_, err := parseFlags([]string{"strip"})
	assert.Error(t, err)

	_, err = parseFlags([]string{"explode", "a.txt"})
	assert.Error(t, err)

	_, err = parseFlags([]string{"strip", "a.txt", "b.txt"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-out")
}

func TestDetectorOptions_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hfepa.yaml")
	require.NoError(t, os.WriteFile(path, []byte("detector:\n  window_size: 3\n  header_threshold: 4\n  weights: [1]\n"), 0o600))

	cfg, err := parseFlags([]string{"-config", path, "-header-threshold", "2.5", "-footer-threshold", "1", "strip", "x.txt"})
	require.NoError(t, err)
	opts, err := detectorOptions(cfg)
	require.NoError(t, err)

	assert.Equal(t, 3, opts.WindowSize)
	assert.Equal(t, 2.5, opts.HeaderThreshold)
	require.NotNil(t, opts.FooterThreshold)
	assert.Equal(t, 1.0, *opts.FooterThreshold)
	assert.Equal(t, []float64{1}, opts.Weights)
}

func TestDetectorOptions_BadWeights(t *testing.T) {
	cfg, err := parseFlags([]string{"-weights", "1,x", "strip", "x.txt"})
	require.NoError(t, err)
	_, err = detectorOptions(cfg)
	assert.ErrorIs(t, err, hfepa.ErrInvalidConfig)
}

func writeInput(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func testDetector(t *testing.T) *hfepa.Detector {
	t.Helper()
	det, err := hfepa.New(hfepa.Options{WindowSize: 2, HeaderThreshold: 3, Weights: []float64{1}})
	require.NoError(t, err)
	return det
}

func TestProcessFile_StripText(t *testing.T) {
	path := writeInput(t, "report.txt", reportText)
	var out bytes.Buffer
	require.NoError(t, processFile(testDetector(t), Config{Mode: pipeline.ModeStrip}, path, &out))
	assert.Equal(t, "Body A\n\fBody B\n\fBody C\n\f", out.String())
}

func TestWriteStrippedText_KeepsEmptyPages(t *testing.T) {
	for _, doc := range []hfepa.Document{
		{{"a"}, {}},
		{{}, {"b"}, {}},
		{{}},
	} {
		var out bytes.Buffer
		require.NoError(t, writeStrippedText(&out, doc))

		got, err := segment.SplitText(&out)
		require.NoError(t, err)
		assert.Equal(t, doc, got)
	}
}

func TestProcessFile_StripJSON(t *testing.T) {
	path := writeInput(t, "report.txt", reportText)
	var out bytes.Buffer
	require.NoError(t, processFile(testDetector(t), Config{Mode: pipeline.ModeStrip, JSON: true}, path, &out))

	var got struct {
		Pages [][]string `json:"pages"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, [][]string{{"Body A"}, {"Body B"}, {"Body C"}}, got.Pages)
}

func TestProcessFile_AnnotateText(t *testing.T) {
	color.NoColor = true
	path := writeInput(t, "report.json", `[["Company Report","Body A","Page 1"],["Company Report","Body B","Page 2"]]`)
	det, err := hfepa.New(hfepa.Options{WindowSize: 2, HeaderThreshold: 2, Weights: []float64{1}})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, processFile(det, Config{Mode: pipeline.ModeAnnotate}, path, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 8)
	assert.Equal(t, "--- page 1 ---", lines[0])
	assert.Equal(t, "header   2.00      -  Company Report", lines[1])
	assert.Equal(t, "body        -      -  Body A", lines[2])
	assert.Equal(t, "footer      -   2.00  Page 1", lines[3])
}

func TestProcessFile_MissingFile(t *testing.T) {
	err := processFile(testDetector(t), Config{Mode: pipeline.ModeStrip}, filepath.Join(t.TempDir(), "nope.txt"), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRun_OutDir(t *testing.T) {
	color.NoColor = true
	a := writeInput(t, "a.txt", reportText)
	b := writeInput(t, "b.json", `{"pages": [["x"], ["y"]]}`)
	out := filepath.Join(t.TempDir(), "out")

	cfg, err := parseFlags([]string{"-window", "2", "-header-threshold", "3", "-weights", "1", "-out", out, "-no-color", "strip", a, b})
	require.NoError(t, err)
	require.NoError(t, run(cfg))

	data, err := os.ReadFile(filepath.Join(out, "a.strip.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Body A\n\fBody B\n\fBody C\n\f", string(data))

	data, err = os.ReadFile(filepath.Join(out, "b.strip.txt"))
	require.NoError(t, err)
	assert.Equal(t, "x\n\fy\n\f", string(data))
}

func TestRun_ReportsFailedFiles(t *testing.T) {
	color.NoColor = true
	good := writeInput(t, "good.txt", "x")
	bad := writeInput(t, "bad.json", `{"pages": [1]}`)

	cfg, err := parseFlags([]string{"-out", t.TempDir(), "strip", good, bad})
	require.NoError(t, err)
	err = run(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 files failed")
}
