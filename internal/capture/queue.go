package capture

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Job is one durable queue record (spec §4.8 step 2).
type Job struct {
	SessionID      string    `json:"session_id"`
	TranscriptPath string    `json:"transcript_path"`
	Repository     string    `json:"repository"`
	Fingerprint    string    `json:"fingerprint"`
	EnqueuedAt     time.Time `json:"enqueued_at"`
	Done           bool      `json:"done"`
}

// Fingerprint hashes a session ID into the dedup key (spec §4.8 step 2).
func Fingerprint(sessionID string) string {
	sum := sha256.Sum256([]byte(sessionID))
	return hex.EncodeToString(sum[:])[:16]
}

// queueFile is the on-disk shape: an ordered job list. The whole file is
// rewritten on every mutation via write-temp + rename (same pattern as
// internal/migrate.Runner.persist and the teacher's internal/registry),
// which is simple and sufficiently durable for the expected queue depth
// (agent sessions enqueue at most a few jobs per hour).
type queueFile struct {
	Jobs []Job `json:"jobs"`
}

// Queue is a persistent, at-most-once-per-fingerprint FIFO job list.
// Producers append under Queue.mu; the worker drains it from the front.
// Nothing beyond this struct is shared between producers and the worker
// (spec §9: "do not share mutable in-memory state between producers and the
// worker beyond the queue itself").
type Queue struct {
	mu   sync.Mutex
	path string
}

// NewQueue opens (or creates) a durable queue backed by a JSON file at
// filepath.Join(dataDir, "capture_queue.json").
func NewQueue(dataDir string) *Queue {
	return &Queue{path: filepath.Join(dataDir, "capture_queue.json")}
}

// Enqueue appends a job for sessionID/transcriptPath/repo, unless a job
// with the same fingerprint has already been persisted (spec §4.8 step 3:
// "jobs with an already-persisted session_id are dropped"). Returns
// (job, true) if enqueued, (zero, false) if it was a duplicate.
func (q *Queue) Enqueue(sessionID, transcriptPath, repository string) (Job, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	qf, err := q.load()
	if err != nil {
		return Job{}, false, err
	}
	fp := Fingerprint(sessionID)
	for _, j := range qf.Jobs {
		if j.Fingerprint == fp {
			return Job{}, false, nil
		}
	}
	job := Job{
		SessionID:      sessionID,
		TranscriptPath: transcriptPath,
		Repository:     repository,
		Fingerprint:    fp,
		EnqueuedAt:      time.Now(),
	}
	qf.Jobs = append(qf.Jobs, job)
	if err := q.save(qf); err != nil {
		return Job{}, false, err
	}
	return job, true, nil
}

// Dequeue returns the oldest not-yet-done job, or (zero, false) if the
// queue is empty (spec §4.8 step 5: "FIFO best-effort, single worker").
func (q *Queue) Dequeue() (Job, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	qf, err := q.load()
	if err != nil {
		return Job{}, false, err
	}
	for _, j := range qf.Jobs {
		if !j.Done {
			return j, true, nil
		}
	}
	return Job{}, false, nil
}

// MarkDone flags a job complete by fingerprint so it is never redelivered.
// Failed jobs are also marked done (spec §4.8 step 4: "on failure: log and
// drop, no retry by default").
func (q *Queue) MarkDone(fingerprint string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	qf, err := q.load()
	if err != nil {
		return err
	}
	for i := range qf.Jobs {
		if qf.Jobs[i].Fingerprint == fingerprint {
			qf.Jobs[i].Done = true
		}
	}
	return q.save(qf)
}

func (q *Queue) load() (queueFile, error) {
	data, err := os.ReadFile(q.path)
	if os.IsNotExist(err) {
		return queueFile{}, nil
	}
	if err != nil {
		return queueFile{}, fmt.Errorf("reading capture queue: %w", err)
	}
	var qf queueFile
	if err := json.Unmarshal(data, &qf); err != nil {
		return queueFile{}, fmt.Errorf("parsing capture queue: %w", err)
	}
	return qf, nil
}

func (q *Queue) save(qf queueFile) error {
	data, err := json.MarshalIndent(qf, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(q.path), 0o755); err != nil {
		return err
	}
	tmp := q.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, q.path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
