package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/dgallion1/hfepa/internal/hfepa"
	"github.com/dgallion1/hfepa/internal/pipeline"
	"github.com/dgallion1/hfepa/internal/segment"
	"github.com/go-chi/chi/v5"
)

// newJob validates a decoded request and builds the job for it. Anything
// that would only fail later inside a worker is rejected here instead.
func newJob(req scoreRequest) (*pipeline.Job, error) {
	mode, ok := pipeline.ParseMode(req.mode)
	if !ok {
		return nil, fmt.Errorf("%w: mode must be strip or annotate", errBadRequest)
	}
	if req.callbackURL != "" {
		u, err := url.Parse(req.callbackURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("%w: callback_url must be an absolute http(s) URL", errBadRequest)
		}
	}
	if err := req.opts.Validate(); err != nil {
		return nil, err
	}
	if err := hfepa.ValidateDocument(req.doc); err != nil {
		return nil, err
	}
	return pipeline.NewJob(mode, req.doc, req.opts, req.callbackURL), nil
}

func jobLinks(id string) map[string]string {
	return map[string]string{
		"poll_url":   fmt.Sprintf("/api/jobs/%s/status", id),
		"result_url": fmt.Sprintf("/api/jobs/%s/result", id),
	}
}

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeScoreRequest(w, r)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	job, err := newJob(req)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}

	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}

	links := jobLinks(job.ID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"job_id":     job.ID,
		"status":     pipeline.StatusQueued,
		"poll_url":   links["poll_url"],
		"result_url": links["result_url"],
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(job.Snapshot())
}

func (s *Server) handleJobResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	res, ok := job.Result()
	if !ok {
		snap := job.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":  "result not available",
			"status": snap.Status,
			"errors": snap.Progress.Errors,
		})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(res)
}

// handleBatchJobs queues one job per uploaded file. Options, mode and
// callback_url come from form fields and apply to every file.
func (s *Server) handleBatchJobs(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	override, err := overrideFromValues(r.FormValue)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	opts := override.apply(s.cfg.DetectorOptions())
	if err := opts.Validate(); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	var results []map[string]any
	for _, fh := range files {
		filename := sanitizeFilename(fh.Filename)
		if !segment.IsSupportedExtension(filename) {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)),
			})
			continue
		}

		f, err := fh.Open()
		if err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    "failed to open file",
			})
			continue
		}

		data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
		f.Close()
		if err != nil || int64(len(data)) > s.cfg.MaxUploadBytes {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    "file too large or read error",
			})
			continue
		}

		doc, err := segment.Read(bytes.NewReader(data), filename)
		if err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    err.Error(),
			})
			continue
		}

		job, err := newJob(scoreRequest{
			doc:         doc,
			opts:        opts,
			mode:        r.FormValue("mode"),
			callbackURL: r.FormValue("callback_url"),
		})
		if err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    err.Error(),
			})
			continue
		}
		job.Filename = filename

		if err := s.orchestrator.Submit(job); err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    err.Error(),
			})
			continue
		}

		results = append(results, map[string]any{
			"filename": filename,
			"job_id":   job.ID,
			"status":   pipeline.StatusQueued,
			"poll_url": jobLinks(job.ID)["poll_url"],
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]any{"jobs": results})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
