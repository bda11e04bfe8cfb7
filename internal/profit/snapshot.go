package profit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/tripod-pricing/internal/lock"
	"github.com/noah-isme/tripod-pricing/internal/obs"
)

// TypeSnapshot is the asynq task type for report snapshots.
const TypeSnapshot = "profit:snapshot"

// ErrSnapshotPending means an identical snapshot is already queued.
var ErrSnapshotPending = errors.New("profit snapshot already pending")

// SnapshotPayload is the task body.
type SnapshotPayload struct {
	Filters     Filters `json:"filters"`
	RequestedBy string  `json:"requested_by,omitempty"`
}

// SnapshotJob describes an enqueued snapshot.
type SnapshotJob struct {
	TaskID   string `json:"task_id"`
	Queue    string `json:"queue"`
	CacheKey string `json:"cache_key"`
}

// Enqueuer is the subset of *asynq.Client the scheduler needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Scheduler enqueues snapshot tasks.
type Scheduler struct {
	Client   Enqueuer
	Queue    string
	Unique   time.Duration
	MaxRetry int
}

// NewSnapshotTask builds the asynq task for payload.
func NewSnapshotTask(payload SnapshotPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSnapshot, data), nil
}

// Enqueue schedules a snapshot of the report for filters. Identical filter
// sets are deduplicated for the scheduler's Unique window.
func (s Scheduler) Enqueue(ctx context.Context, filters Filters, requestedBy string) (SnapshotJob, error) {
	if s.Client == nil {
		return SnapshotJob{}, errors.New("snapshot scheduler not configured")
	}
	task, err := NewSnapshotTask(SnapshotPayload{Filters: filters, RequestedBy: requestedBy})
	if err != nil {
		return SnapshotJob{}, err
	}
	queue := s.Queue
	if queue == "" {
		queue = "reports"
	}
	opts := []asynq.Option{asynq.Queue(queue)}
	if s.Unique > 0 {
		opts = append(opts, asynq.Unique(s.Unique))
	}
	if s.MaxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(s.MaxRetry))
	}
	info, err := s.Client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			return SnapshotJob{}, ErrSnapshotPending
		}
		return SnapshotJob{}, fmt.Errorf("enqueue snapshot: %w", err)
	}
	return SnapshotJob{TaskID: info.ID, Queue: info.Queue, CacheKey: filters.CacheKey()}, nil
}

// SnapshotProcessor rebuilds reports in the worker and stores them in the
// report cache.
type SnapshotProcessor struct {
	Svc     *Service
	Locker  lock.Locker
	LockTTL time.Duration
	Log     zerolog.Logger
}

// ProcessTask implements asynq.Handler. A snapshot already running for the
// same filters makes this one a no-op.
func (p *SnapshotProcessor) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload SnapshotPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		obs.ObserveSnapshot("invalid")
		return fmt.Errorf("decode snapshot payload: %v: %w", err, asynq.SkipRetry)
	}
	hash := payload.Filters.CacheKey()
	ttl := p.LockTTL
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}

	var rows int
	ran, err := p.Locker.TryWithLock(ctx, "lock:profit:snapshot:"+hash, ttl, func(ctx context.Context) error {
		report, err := p.Svc.Refresh(ctx, payload.Filters)
		if err != nil {
			return err
		}
		rows = len(report.Rows)
		return nil
	})
	switch {
	case err != nil:
		obs.ObserveSnapshot("error")
		p.Log.Error().Err(err).Str("filters", hash).Msg("profit snapshot failed")
		return err
	case !ran:
		obs.ObserveSnapshot("skipped")
		p.Log.Info().Str("filters", hash).Msg("profit snapshot already running")
		return nil
	}
	obs.ObserveSnapshot("ok")
	p.Log.Info().
		Str("filters", hash).
		Str("requested_by", payload.RequestedBy).
		Int("rows", rows).
		Msg("profit snapshot stored")
	return nil
}
