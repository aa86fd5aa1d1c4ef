package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/dgallion1/hfepa/internal/config"
	"github.com/dgallion1/hfepa/internal/hfepa"
	"github.com/dgallion1/hfepa/internal/pipeline"
	"github.com/dgallion1/hfepa/internal/segment"
)

type Config struct {
	Mode            pipeline.Mode
	Files           []string
	ConfigPath      string
	Window          int
	HeaderThreshold float64
	FooterThreshold float64
	Weights         string
	OutDir          string
	JSON            bool
	NoColor         bool

	// set records which detector flags were given explicitly.
	set map[string]bool
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}

func parseFlags(args []string) (Config, error) {
	var cfg Config
	fs := flag.NewFlagSet("hfepa", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: hfepa [flags] strip|annotate FILE...")
		fs.PrintDefaults()
	}

	defaults := hfepa.DefaultOptions()
	fs.StringVar(&cfg.ConfigPath, "config", "", "Path to YAML config file")
	fs.IntVar(&cfg.Window, "window", defaults.WindowSize, "Pages compared on each side")
	fs.Float64Var(&cfg.HeaderThreshold, "header-threshold", defaults.HeaderThreshold, "Minimum header score")
	fs.Float64Var(&cfg.FooterThreshold, "footer-threshold", defaults.HeaderThreshold, "Minimum footer score (default: header threshold)")
	fs.StringVar(&cfg.Weights, "weights", "", "Comma separated per-slot weights")
	fs.StringVar(&cfg.OutDir, "out", "", "Output directory (required for several files)")
	fs.BoolVar(&cfg.JSON, "json", false, "Write JSON instead of text")
	fs.BoolVar(&cfg.NoColor, "no-color", false, "Disable colored output")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	cfg.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { cfg.set[f.Name] = true })

	rest := fs.Args()
	if len(rest) < 2 {
		fs.Usage()
		return cfg, fmt.Errorf("a mode and at least one file are required")
	}
	mode, ok := pipeline.ParseMode(rest[0])
	if !ok || rest[0] == "" {
		return cfg, fmt.Errorf("unknown mode %q: want strip or annotate", rest[0])
	}
	cfg.Mode = mode
	cfg.Files = rest[1:]
	if len(cfg.Files) > 1 && cfg.OutDir == "" {
		return cfg, fmt.Errorf("-out is required when processing %d files", len(cfg.Files))
	}
	return cfg, nil
}

// detectorOptions layers the config file, then explicit flags, over the
// defaults.
func detectorOptions(cfg Config) (hfepa.Options, error) {
	opts := hfepa.DefaultOptions()
	if cfg.ConfigPath != "" {
		fileCfg, err := config.LoadFile(cfg.ConfigPath)
		if err != nil {
			return opts, err
		}
		opts = fileCfg.DetectorOptions()
	}
	if cfg.set["window"] {
		opts.WindowSize = cfg.Window
	}
	if cfg.set["header-threshold"] {
		opts.HeaderThreshold = cfg.HeaderThreshold
	}
	if cfg.set["footer-threshold"] {
		ft := cfg.FooterThreshold
		opts.FooterThreshold = &ft
	}
	if cfg.set["weights"] {
		w, err := hfepa.ParseWeights(cfg.Weights)
		if err != nil {
			return opts, err
		}
		opts.Weights = w
	}
	return opts, nil
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionSetWriter(os.Stderr),
	)
}

func run(cfg Config) error {
	if cfg.NoColor {
		color.NoColor = true
	}

	opts, err := detectorOptions(cfg)
	if err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	det, err := hfepa.New(opts)
	if err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	for _, w := range opts.ThresholdWarnings() {
		fmt.Fprintln(os.Stderr, color.YellowString("warning: %s", w))
	}

	if cfg.OutDir == "" {
		return processFile(det, cfg, cfg.Files[0], os.Stdout)
	}

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	bar := getProgressBar(len(cfg.Files), string(cfg.Mode))
	var failed []string
	for _, path := range cfg.Files {
		if err := processToDir(det, cfg, path); err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", path, err))
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)

	if len(failed) > 0 {
		for _, f := range failed {
			fmt.Fprintln(os.Stderr, color.RedString(f))
		}
		return fmt.Errorf("%d of %d files failed", len(failed), len(cfg.Files))
	}
	fmt.Fprintln(os.Stderr, color.GreenString("wrote %d files to %s", len(cfg.Files), cfg.OutDir))
	return nil
}

func processToDir(det *hfepa.Detector, cfg Config, path string) error {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	ext := ".txt"
	if cfg.JSON {
		ext = ".json"
	}
	out, err := os.Create(filepath.Join(cfg.OutDir, name+"."+string(cfg.Mode)+ext))
	if err != nil {
		return err
	}
	if err := processFile(det, cfg, path, out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// processFile reads path ("-" for stdin, read as text) and writes the
// result for cfg.Mode to w.
func processFile(det *hfepa.Detector, cfg Config, path string, w io.Writer) error {
	var (
		doc hfepa.Document
		err error
	)
	if path == "-" {
		doc, err = segment.SplitText(os.Stdin)
	} else {
		var f *os.File
		f, err = os.Open(path)
		if err != nil {
			return err
		}
		doc, err = segment.Read(f, path)
		f.Close()
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	ann, err := det.Annotate(doc)
	if err != nil {
		return fmt.Errorf("score %s: %w", path, err)
	}

	bw := bufio.NewWriter(w)
	switch {
	case cfg.Mode == pipeline.ModeAnnotate && cfg.JSON:
		err = writeJSON(bw, ann)
	case cfg.Mode == pipeline.ModeAnnotate:
		err = writeAnnotatedText(bw, ann)
	case cfg.JSON:
		err = writeJSON(bw, hfepa.StripAnnotated(ann))
	default:
		err = writeStrippedText(bw, hfepa.StripAnnotated(ann))
	}
	if err != nil {
		return err
	}
	return bw.Flush()
}
