// Package jobqueue provides a River-based job queue for diagram PNG
// rendering. Rendering is advisory, so jobs run with a small worker pool and
// a capped retry count; a failed render leaves the diagram without an
// artifact and nothing else.
package jobqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/rs/zerolog/log"

	"github.com/archflow/internal/diagram"
	"github.com/archflow/internal/service"
	"github.com/archflow/internal/store"
	"github.com/archflow/pkg/models"
)

const (
	maxRenderWorkers = 4
	maxRenderRetries = 3
	renderJobTimeout = 45 * time.Second
)

// RenderJobArgs identifies one diagram version to render.
type RenderJobArgs struct {
	DiagramID int64                `json:"diagram_id"`
	Format    models.DiagramFormat `json:"format"`
}

// Kind returns the job kind for River.
func (RenderJobArgs) Kind() string {
	return "diagram_render"
}

// RenderWorker renders queued diagram versions to PNG.
type RenderWorker struct {
	river.WorkerDefaults[RenderJobArgs]
	diagrams    *store.DiagramStore
	renderer    *diagram.Renderer
	storagePath string
}

// Timeout bounds one render job run.
func (w *RenderWorker) Timeout(*river.Job[RenderJobArgs]) time.Duration {
	return renderJobTimeout
}

// Work renders the job's diagram version. Render failure is not a job
// failure: the render path is best-effort and already logs its outcome.
func (w *RenderWorker) Work(ctx context.Context, job *river.Job[RenderJobArgs]) error {
	service.RenderDiagram(ctx, w.diagrams, w.renderer, w.storagePath, job.Args.DiagramID, job.Args.Format)
	return nil
}

// JobQueue owns the River client and its pgx pool.
type JobQueue struct {
	client *river.Client[pgx.Tx]
	pool   *pgxpool.Pool
}

// NewJobQueue creates the queue against the given database and registers the
// render worker.
func NewJobQueue(ctx context.Context, databaseURL string, diagrams *store.DiagramStore, renderer *diagram.Renderer, storagePath string) (*JobQueue, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &RenderWorker{
		diagrams:    diagrams,
		renderer:    renderer,
		storagePath: storagePath,
	})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: maxRenderWorkers},
		},
		Workers:     workers,
		MaxAttempts: maxRenderRetries,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("create river client: %w", err)
	}

	return &JobQueue{client: client, pool: pool}, nil
}

// Start launches the queue workers.
func (q *JobQueue) Start(ctx context.Context) error {
	return q.client.Start(ctx)
}

// Stop drains the workers and closes the pool.
func (q *JobQueue) Stop(ctx context.Context) error {
	err := q.client.Stop(ctx)
	q.pool.Close()
	return err
}

// Dispatch enqueues a render job. Implements service.RenderDispatcher;
// enqueue failures are logged and swallowed since rendering is advisory.
func (q *JobQueue) Dispatch(ctx context.Context, diagramID int64, format models.DiagramFormat) {
	if _, err := q.client.Insert(ctx, RenderJobArgs{DiagramID: diagramID, Format: format}, nil); err != nil {
		log.Warn().Err(err).Int64("diagram_id", diagramID).Msg("failed to enqueue render job")
	}
}
