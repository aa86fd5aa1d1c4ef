package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/hfepa/internal/hfepa"
)

// Deliverer posts a finished job's result to its callback URL.
type Deliverer interface {
	Deliver(ctx context.Context, url string, payload any) error
}

// Worker processes a single scoring job.
type Worker struct {
	scorer  *Scorer
	webhook Deliverer
	log     *slog.Logger
	backoff func(err error, attempt int) time.Duration
}

func NewWorker(scorer *Scorer, webhook Deliverer, log *slog.Logger) *Worker {
	return &Worker{
		scorer:  scorer,
		webhook: webhook,
		log:     log,
		backoff: Backoff,
	}
}

// Process scores the job's document and, when the job names a callback,
// delivers the result there.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "mode", job.Mode)

	// Phase 1: Score
	job.SetStatus(StatusScoring, "scoring")
	det, err := hfepa.New(job.Options())
	if err != nil {
		log.Error("invalid options", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "scoring")
		return
	}

	scored, err := w.scorer.Annotate(ctx, det, job.Document())
	if err != nil {
		log.Error("scoring failed", "error", err)
		job.AddError(fmt.Sprintf("score: %s", err))
		job.SetStatus(StatusFailed, "scoring")
		return
	}
	job.SetResult(scored.Result, scored.ContentHash, scored.Cached, det.Options().ThresholdWarnings())
	snap := job.Snapshot()
	log.Info("scored document",
		"pages", snap.Progress.Pages,
		"header_lines", snap.Progress.HeaderLines,
		"footer_lines", snap.Progress.FooterLines,
		"cached", scored.Cached,
	)

	if job.CallbackURL == "" || w.webhook == nil {
		job.SetStatus(StatusCompleted, "done")
		return
	}

	// Phase 2: Deliver
	job.SetStatus(StatusDelivering, "delivering")
	payload, _ := job.Result()
	var lastErr error
	for attempt := range MaxRetries {
		job.IncrDeliveryAttempts()
		lastErr = w.webhook.Deliver(ctx, job.CallbackURL, payload)
		if lastErr == nil || !IsRetryable(lastErr) {
			break
		}
		log.Warn("retryable delivery error", "attempt", attempt, "error", lastErr)
		if attempt == MaxRetries-1 {
			break
		}
		select {
		case <-time.After(w.backoff(lastErr, attempt)):
		case <-ctx.Done():
			lastErr = ctx.Err()
		}
		if ctx.Err() != nil {
			break
		}
	}

	if lastErr != nil {
		log.Error("delivery failed", "callback_url", job.CallbackURL, "error", lastErr)
		job.AddError(fmt.Sprintf("deliver: %s", lastErr))
		job.SetStatus(StatusFailed, "delivering")
		return
	}
	log.Info("delivered result", "callback_url", job.CallbackURL)
	job.SetStatus(StatusCompleted, "done")
}
