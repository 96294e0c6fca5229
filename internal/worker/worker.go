package worker

import (
	"context"
	"sync"
	"time"

	"orderflow/internal/domain/entities"
	"orderflow/internal/usecase"
	"orderflow/internal/usecase/interfaces"

	"github.com/rs/zerolog/log"
)

const (
	defaultErrorPause  = time.Second
	defaultResumeBatch = 500
)

// Engine is the part of the workflow engine the worker drives.
type Engine interface {
	Bind(ctx context.Context)
	Dispatch(e entities.Execution)
	Wait()
}

type Options struct {
	BatchSize         int
	VisibilityTimeout time.Duration
	// IdlePoll is the pause after an empty receive. Long-polling queues can set it to zero.
	IdlePoll       time.Duration
	ResumeInterval time.Duration
	ResumeBatch    int
}

// Worker polls the ingestion queue, hands each batch to the trigger and keeps
// in-flight executions moving after restarts.
type Worker struct {
	queue      interfaces.IOrderQueue
	trigger    *usecase.WorkflowTrigger
	engine     Engine
	executions interfaces.IExecutionRepository
	opts       Options

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(queue interfaces.IOrderQueue, trigger *usecase.WorkflowTrigger, engine Engine, executions interfaces.IExecutionRepository, opts Options) *Worker {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.VisibilityTimeout <= 0 {
		opts.VisibilityTimeout = 300 * time.Second
	}
	if opts.IdlePoll < 0 {
		opts.IdlePoll = 0
	}
	if opts.ResumeBatch <= 0 {
		opts.ResumeBatch = defaultResumeBatch
	}
	return &Worker{queue: queue, trigger: trigger, engine: engine, executions: executions, opts: opts}
}

// Start resumes unfinished executions, then polls until Stop or ctx ends.
func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.engine.Bind(ctx)

	w.Resume(ctx)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.poll(ctx)
	}()

	if w.opts.ResumeInterval > 0 {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			t := time.NewTicker(w.opts.ResumeInterval)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					w.Resume(ctx)
				}
			}
		}()
	}
	log.Info().Int("batch_size", w.opts.BatchSize).Dur("visibility_timeout", w.opts.VisibilityTimeout).
		Msg("[worker] started")
}

// Stop cancels polling and waits for running executions to reach a suspension point.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.engine.Wait()
	log.Info().Msg("[worker] stopped")
}

// Resume re-dispatches every non-terminal execution in the registry. Executions
// already running here or leased by another worker are skipped by the engine.
func (w *Worker) Resume(ctx context.Context) int {
	if w.executions == nil {
		return 0
	}
	active, err := w.executions.ListActive(ctx, w.opts.ResumeBatch)
	if err != nil {
		if ctx.Err() == nil {
			log.Error().Err(err).Msg("[worker] listing active executions failed")
		}
		return 0
	}
	for _, e := range active {
		w.engine.Dispatch(e)
	}
	if len(active) > 0 {
		log.Info().Int("count", len(active)).Msg("[worker] resumed active executions")
	}
	return len(active)
}

func (w *Worker) poll(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		msgs, err := w.queue.Receive(ctx, w.opts.BatchSize, w.opts.VisibilityTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Msg("[worker] receive failed; retrying")
			sleep(ctx, defaultErrorPause)
			continue
		}
		if len(msgs) == 0 {
			sleep(ctx, w.opts.IdlePoll)
			continue
		}

		results, err := w.trigger.HandleBatch(ctx, msgs)
		if err != nil {
			rejected := 0
			for _, r := range results {
				if r.Err != nil {
					rejected++
				}
			}
			log.Debug().Err(err).Int("rejected", rejected).Int("batch", len(msgs)).
				Msg("[worker] messages left for redelivery")
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
