package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueCategorias = "jobs:categorias"

	JobEventoCategoria = "evento_categoria"
)

// Lifecycle event types pushed by the category service.
const (
	EventoCreada      = "creada"
	EventoActualizada = "actualizada"
	EventoEstado      = "estado"
	EventoEliminada   = "eliminada"
	EventoRestaurada  = "restaurada"
	EventoPurgada     = "purgada"
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// EventoCategoria records a committed lifecycle change on one or more categories.
type EventoCategoria struct {
	Tipo      string      `json:"tipo"`
	IDs       []uuid.UUID `json:"ids"`
	Actor     string      `json:"actor,omitempty"`
	Ocurrido  time.Time   `json:"ocurrido"`
	Detalle   string      `json:"detalle,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueEvento pushes a lifecycle event to Redis.
func (d *Dispatcher) EnqueueEvento(ctx context.Context, ev EventoCategoria) error {
	return d.enqueue(ctx, QueueCategorias, JobEventoCategoria, ev)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job := Job{Type: jobType, Payload: data}
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// WorkerHandlers groups the processors wired at the composition root.
type WorkerHandlers struct {
	Auditoria *AuditoriaWorker
}

// StartWorkerPool launches numWorkers goroutines consuming the category queue.
// Each goroutine blocks on BRPOP while idle. Cancelling ctx stops the pool;
// a job already popped is still processed. Wait on the returned group before
// closing rdb.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, numWorkers int) *sync.WaitGroup {
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runWorker(ctx, rdb, handlers, id)
		}(i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
	return &wg
}

func runWorker(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop: waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, QueueCategorias).Result()
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			if err != nil {
				log.Warn().Err(err).Int("worker", id).Msg("brpop failed")
				select {
				case <-ctx.Done():
				case <-time.After(time.Second):
				}
				continue
			}
			if len(result) < 2 {
				continue
			}
			// the popped job is no longer in Redis: finish it even during shutdown
			jobCtx := context.WithoutCancel(ctx)
			if err := processJob(jobCtx, handlers, result[0], result[1]); err != nil {
				SendToDLQ(jobCtx, rdb, result[0], result[1], err.Error())
			}
		}
	}
}

// processJob decodes the envelope and routes it to its handler. A returned
// error means the job cannot be processed and belongs in the DLQ.
func processJob(ctx context.Context, handlers *WorkerHandlers, queue, raw string) error {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return err
	}
	switch job.Type {
	case JobEventoCategoria:
		if handlers == nil || handlers.Auditoria == nil {
			return errSinHandler
		}
		return handlers.Auditoria.Process(ctx, job.Payload)
	default:
		log.Warn().Str("type", job.Type).Str("queue", queue).Msg("unknown job type")
		return errTipoDesconocido
	}
}
