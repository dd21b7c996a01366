// Package job is a sqlite-persisted work queue with one worker. Jobs
// survive restarts: anything left running is re-marked pending and
// picked up again when the server comes back.
package job

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Queue persists jobs and dispatches them to registered handlers.
type Queue struct {
	db       *sql.DB
	mu       sync.RWMutex
	pending  chan string
	cancels  map[string]context.CancelFunc
	handlers map[Type]Handler
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewQueue creates and starts a queue: pending jobs from a previous
// process are resumed, then a single worker drains the channel.
func NewQueue(db *sql.DB) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		db:       db,
		pending:  make(chan string, 100),
		cancels:  make(map[string]context.CancelFunc),
		handlers: make(map[Type]Handler),
		ctx:      ctx,
		cancel:   cancel,
	}

	q.resumeJobs()

	q.wg.Add(1)
	go q.worker()

	return q
}

// RegisterHandler binds a handler to a job type.
func (q *Queue) RegisterHandler(t Type, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[t] = h
}

// Enqueue persists a new pending job and hands it to the worker.
func (q *Queue) Enqueue(t Type, filePath string, params any) (*Job, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}

	j := &Job{
		ID:        uuid.New().String(),
		Type:      t,
		Status:    StatusPending,
		FilePath:  filePath,
		Params:    paramsJSON,
		CreatedAt: time.Now(),
	}

	_, err = q.db.Exec(`
		INSERT INTO jobs (id, type, status, file_path, params, progress, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.Type, j.Status, j.FilePath, string(j.Params), j.Progress, j.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	select {
	case q.pending <- j.ID:
	default:
		log.Printf("[job] queue full, job %s waits for the next resume", j.ID)
	}

	return j, nil
}

// Get retrieves a job by ID.
func (q *Queue) Get(id string) (*Job, error) {
	row := q.db.QueryRow(`
		SELECT id, type, status, file_path, params, progress, stage, message, result, error, created_at, started_at, completed_at
		FROM jobs WHERE id = ?`, id)
	return scanJob(row)
}

// List returns all jobs, newest first.
func (q *Queue) List() ([]*Job, error) {
	rows, err := q.db.Query(`
		SELECT id, type, status, file_path, params, progress, stage, message, result, error, created_at, started_at, completed_at
		FROM jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	j := &Job{}
	var params, result, errMsg, stage, message sql.NullString
	var startedAt, completedAt sql.NullTime

	err := row.Scan(&j.ID, &j.Type, &j.Status, &j.FilePath, &params, &j.Progress,
		&stage, &message, &result, &errMsg, &j.CreatedAt, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	if params.Valid {
		j.Params = json.RawMessage(params.String)
	}
	if result.Valid {
		j.Result = json.RawMessage(result.String)
	}
	j.Stage = stage.String
	j.Message = message.String
	j.Error = errMsg.String
	if startedAt.Valid {
		j.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		j.CompletedAt = &completedAt.Time
	}
	return j, nil
}

// Cancel stops a pending or running job. A running job's context is
// cancelled; the handler decides how fast it can wind down.
func (q *Queue) Cancel(id string) error {
	q.mu.Lock()
	if cancelFn, ok := q.cancels[id]; ok {
		cancelFn()
	}
	q.mu.Unlock()

	_, err := q.db.Exec(`
		UPDATE jobs SET status = ?, completed_at = ?
		WHERE id = ? AND status IN (?, ?)`,
		StatusCancelled, time.Now(), id, StatusPending, StatusRunning,
	)
	return err
}

// Retry re-queues a failed or cancelled job.
func (q *Queue) Retry(id string) (*Job, error) {
	res, err := q.db.Exec(`
		UPDATE jobs SET status = ?, progress = 0, stage = '', message = '', error = '', started_at = NULL, completed_at = NULL
		WHERE id = ? AND status IN (?, ?)`,
		StatusPending, id, StatusFailed, StatusCancelled,
	)
	if err != nil {
		return nil, err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return nil, fmt.Errorf("job %s is not retryable", id)
	}

	select {
	case q.pending <- id:
	default:
	}
	return q.Get(id)
}

// UpdateProgress persists a progress report for a running job.
func (q *Queue) UpdateProgress(id string, p Progress) {
	q.db.Exec("UPDATE jobs SET progress = ?, stage = ?, message = ? WHERE id = ?",
		p.Percent, p.Stage, p.Message, id)
}

// Stop shuts the queue down and waits for the worker to exit. The
// in-flight job, if any, sees its context cancelled.
func (q *Queue) Stop() {
	q.cancel()
	q.wg.Wait()
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case jobID := <-q.pending:
			q.processJob(jobID)
		}
	}
}

func (q *Queue) processJob(jobID string) {
	j, err := q.Get(jobID)
	if err != nil {
		log.Printf("[job] load %s: %v", jobID, err)
		return
	}
	if j.Status != StatusPending {
		return
	}

	q.mu.RLock()
	handler, ok := q.handlers[j.Type]
	q.mu.RUnlock()
	if !ok {
		q.failJob(j, fmt.Sprintf("no handler for job type %s", j.Type))
		return
	}

	now := time.Now()
	j.StartedAt = &now
	j.Status = StatusRunning
	q.db.Exec("UPDATE jobs SET status = ?, started_at = ? WHERE id = ?",
		StatusRunning, now, j.ID)

	ctx, cancelFn := context.WithCancel(q.ctx)
	q.mu.Lock()
	q.cancels[j.ID] = cancelFn
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		delete(q.cancels, j.ID)
		q.mu.Unlock()
		cancelFn()
	}()

	report := func(p Progress) {
		q.UpdateProgress(j.ID, p)
	}

	result, err := handler(ctx, j, report)
	switch {
	case err == nil:
		q.completeJob(j, result)
	case errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled):
		q.cancelledJob(j)
	default:
		q.failJob(j, err.Error())
	}
}

func (q *Queue) completeJob(j *Job, result any) {
	var resultJSON []byte
	if result != nil {
		resultJSON, _ = json.Marshal(result)
	}
	q.db.Exec("UPDATE jobs SET status = ?, progress = 100, result = ?, completed_at = ? WHERE id = ?",
		StatusCompleted, string(resultJSON), time.Now(), j.ID)
	log.Printf("[job] job %s completed", j.ID)
}

func (q *Queue) cancelledJob(j *Job) {
	q.db.Exec("UPDATE jobs SET status = ?, completed_at = ? WHERE id = ? AND status != ?",
		StatusCancelled, time.Now(), j.ID, StatusCompleted)
	log.Printf("[job] job %s cancelled", j.ID)
}

func (q *Queue) failJob(j *Job, errMsg string) {
	q.db.Exec("UPDATE jobs SET status = ?, error = ?, completed_at = ? WHERE id = ?",
		StatusFailed, errMsg, time.Now(), j.ID)
	log.Printf("[job] job %s failed: %s", j.ID, errMsg)
}

// resumeJobs re-queues jobs a previous process left behind. Anything
// still marked running was interrupted by a restart.
func (q *Queue) resumeJobs() {
	q.db.Exec("UPDATE jobs SET status = ? WHERE status = ?", StatusPending, StatusRunning)

	rows, err := q.db.Query("SELECT id FROM jobs WHERE status = ? ORDER BY created_at ASC", StatusPending)
	if err != nil {
		log.Printf("[job] resume query: %v", err)
		return
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		select {
		case q.pending <- id:
			count++
		default:
		}
	}
	if count > 0 {
		log.Printf("[job] resumed %d pending jobs", count)
	}
}
