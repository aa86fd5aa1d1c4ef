package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/dgallion1/hfepa/internal/hfepa"
	"github.com/dgallion1/hfepa/internal/pipeline"
	"github.com/dgallion1/hfepa/internal/segment"
)

// errBadRequest marks request-shape failures that are not detector errors.
var errBadRequest = errors.New("bad request")

// optionsOverride holds per-request detector options. Unset fields keep
// the server defaults.
type optionsOverride struct {
	WindowSize      *int      `json:"window_size"`
	HeaderThreshold *float64  `json:"header_threshold"`
	FooterThreshold *float64  `json:"footer_threshold"`
	Weights         []float64 `json:"weights"`
}

func (o optionsOverride) apply(base hfepa.Options) hfepa.Options {
	if o.WindowSize != nil {
		base.WindowSize = *o.WindowSize
	}
	if o.HeaderThreshold != nil {
		base.HeaderThreshold = *o.HeaderThreshold
	}
	if o.FooterThreshold != nil {
		ft := *o.FooterThreshold
		base.FooterThreshold = &ft
	}
	if o.Weights != nil {
		base.Weights = o.Weights
	}
	return base
}

// overrideFromValues reads options from query or form fields.
func overrideFromValues(get func(string) string) (optionsOverride, error) {
	var o optionsOverride
	if v := get("window_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return o, &hfepa.ConfigError{Field: "window_size", Message: fmt.Sprintf("not an integer: %q", v)}
		}
		o.WindowSize = &n
	}
	for _, f := range []struct {
		name string
		dst  **float64
	}{
		{"header_threshold", &o.HeaderThreshold},
		{"footer_threshold", &o.FooterThreshold},
	} {
		v := get(f.name)
		if v == "" {
			continue
		}
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return o, &hfepa.ConfigError{Field: f.name, Message: fmt.Sprintf("not a number: %q", v)}
		}
		*f.dst = &x
	}
	if v := get("weights"); v != "" {
		w, err := hfepa.ParseWeights(v)
		if err != nil {
			return o, err
		}
		o.Weights = w
	}
	return o, nil
}

// scoreRequest is a decoded strip, annotate or job submission.
type scoreRequest struct {
	doc         hfepa.Document
	opts        hfepa.Options
	mode        string
	callbackURL string
}

// decodeScoreRequest accepts either a JSON body
// {"pages": [...], "options": {...}, "mode": ..., "callback_url": ...}
// or text/plain with form feed page breaks and options in the query string.
func (s *Server) decodeScoreRequest(w http.ResponseWriter, r *http.Request) (scoreRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	base := s.cfg.DetectorOptions()

	mediaType := "application/json"
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return scoreRequest{}, fmt.Errorf("%w: invalid content type", errBadRequest)
		}
		mediaType = mt
	}

	switch mediaType {
	case "text/plain":
		q := r.URL.Query()
		override, err := overrideFromValues(q.Get)
		if err != nil {
			return scoreRequest{}, err
		}
		doc, err := segment.SplitText(r.Body)
		if err != nil {
			return scoreRequest{}, err
		}
		return scoreRequest{
			doc:         doc,
			opts:        override.apply(base),
			mode:        q.Get("mode"),
			callbackURL: q.Get("callback_url"),
		}, nil

	case "application/json":
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return scoreRequest{}, fmt.Errorf("read body: %w", err)
		}
		var body struct {
			Pages       json.RawMessage `json:"pages"`
			Options     optionsOverride `json:"options"`
			Mode        string          `json:"mode"`
			CallbackURL string          `json:"callback_url"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return scoreRequest{}, fmt.Errorf("%w: invalid json: %s", errBadRequest, err)
		}
		doc, err := segment.DecodePages(body.Pages)
		if err != nil {
			return scoreRequest{}, err
		}
		return scoreRequest{
			doc:         doc,
			opts:        body.Options.apply(base),
			mode:        body.Mode,
			callbackURL: body.CallbackURL,
		}, nil

	default:
		return scoreRequest{}, fmt.Errorf("%w: unsupported content type %s", errBadRequest, mediaType)
	}
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errBadRequest),
		errors.Is(err, hfepa.ErrInvalidConfig),
		errors.Is(err, hfepa.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrQueueFull), errors.Is(err, pipeline.ErrStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type scoreResponse struct {
	Pages       any      `json:"pages"`
	Cached      bool     `json:"cached"`
	ContentHash string   `json:"content_hash"`
	Warnings    []string `json:"warnings,omitempty"`
}

func (s *Server) handleStrip(w http.ResponseWriter, r *http.Request) {
	s.handleScore(w, r, pipeline.ModeStrip)
}

func (s *Server) handleAnnotate(w http.ResponseWriter, r *http.Request) {
	s.handleScore(w, r, pipeline.ModeAnnotate)
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request, mode pipeline.Mode) {
	req, err := s.decodeScoreRequest(w, r)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	det, err := hfepa.New(req.opts)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}

	scored, err := s.orchestrator.Scorer().Annotate(r.Context(), det, req.doc)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			s.log.Error("scoring failed", "error", err)
		}
		jsonError(w, err.Error(), status)
		return
	}

	resp := scoreResponse{
		Cached:      scored.Cached,
		ContentHash: scored.ContentHash,
		Warnings:    det.Options().ThresholdWarnings(),
	}
	if mode == pipeline.ModeAnnotate {
		resp.Pages = scored.Result
	} else {
		resp.Pages = hfepa.StripAnnotated(scored.Result)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
