package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/devmemory/navigator/internal/initiative"
	"github.com/devmemory/navigator/internal/llm"
	"github.com/devmemory/navigator/internal/memory"
)

// maxSummarizeChars bounds how much transcript text reaches the LLM (spec
// §4.8 step 4: "truncate text"). Generous enough to cover a long session's
// message text while staying well under typical context limits.
const maxSummarizeChars = 40_000

// DefaultSyncTimeout and its clamp bounds (spec §6 `autocapture.sync_timeout`).
const DefaultSyncTimeout = 60 * time.Second

var (
	minSyncTimeout = 10 * time.Second
	maxSyncTimeout = 300 * time.Second
)

// ClampSyncTimeout clamps d to the configured [10s, 300s] range.
func ClampSyncTimeout(d time.Duration) time.Duration {
	if d < minSyncTimeout {
		return minSyncTimeout
	}
	if d > maxSyncTimeout {
		return maxSyncTimeout
	}
	return d
}

// Worker is the single cooperative worker that drains Queue (spec §4.8
// step 4). It holds no state shared with producers beyond the Queue
// itself.
type Worker struct {
	Queue       *Queue
	LLM         llm.Provider
	Memory      *memory.Service
	Initiatives *initiative.Service
	Logger      *zap.Logger
}

// NewWorker builds a Worker.
func NewWorker(q *Queue, provider llm.Provider, mem *memory.Service, init *initiative.Service, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{Queue: q, LLM: provider, Memory: mem, Initiatives: init, Logger: logger}
}

// Run drains the queue until ctx is cancelled, sleeping pollInterval between
// empty dequeues. This is the `async` mode's daemon loop (spec §4.8 step 5):
// the caller that enqueued has already returned.
func (w *Worker) Run(ctx context.Context, pollInterval time.Duration) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				processed, err := w.processNext(ctx)
				if err != nil {
					w.Logger.Error("capture worker: process failed", zap.Error(err))
				}
				if !processed {
					break
				}
				if ctx.Err() != nil {
					return
				}
			}
		}
	}
}

// ProcessSync runs exactly the job just enqueued through the full pipeline,
// blocking until it completes or timeout elapses (spec §4.8 step 5: `sync`
// mode). The job must already be the head of the queue (ProcessSync does
// not search for it); a mismatch is not an error, it simply processes
// whatever Dequeue returns next, preserving FIFO order.
func (w *Worker) ProcessSync(ctx context.Context, timeout time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, ClampSyncTimeout(timeout))
	defer cancel()
	return w.processNext(ctx)
}

// processNext dequeues and processes one job, marking it done (success or
// failure) so it is never redelivered (spec §4.8 step 4, no retry).
func (w *Worker) processNext(ctx context.Context) (bool, error) {
	job, ok, err := w.Queue.Dequeue()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	if err := w.process(ctx, job); err != nil {
		w.Logger.Warn("capture job dropped after failure",
			zap.String("session_id", job.SessionID), zap.Error(err))
	}
	if markErr := w.Queue.MarkDone(job.Fingerprint); markErr != nil {
		return true, markErr
	}
	return true, nil
}

func (w *Worker) process(ctx context.Context, job Job) error {
	transcript, err := ParseTranscript(job.TranscriptPath)
	if err != nil {
		return fmt.Errorf("parsing transcript: %w", err)
	}
	transcript.SessionID = job.SessionID

	text := transcript.MessagesText
	if len(text) > maxSummarizeChars {
		text = text[len(text)-maxSummarizeChars:] // keep the most recent context
	}
	if text == "" {
		return fmt.Errorf("empty transcript, nothing to summarize")
	}

	summary, err := w.LLM.Summarize(ctx, text)
	if errors.Is(err, llm.ErrProviderDisabled) {
		// llm_provider = "none": capture stays wired (jobs still drain) but
		// nothing gets summarized. Not a failure.
		w.Logger.Debug("capture worker: llm provider disabled, dropping job", zap.String("session_id", job.SessionID))
		return nil
	}
	if err != nil {
		// Memory documents require real summaries; no placeholder is
		// written on LLM failure (spec §7).
		return fmt.Errorf("summarizing: %w", err)
	}

	var initiativeID string
	if w.Initiatives != nil && job.Repository != "" {
		if focused, ferr := w.Initiatives.Focused(ctx, job.Repository); ferr == nil && focused != nil {
			initiativeID = focused.ID
		}
	}

	_, err = w.Memory.SaveSessionSummary(ctx, memory.SaveSessionSummaryInput{
		Repository: job.Repository,
		Content:    summary,
		Files:      transcript.EditedFiles,
		SessionID:  job.SessionID,
		Initiative: initiativeID,
	})
	return err
}
