package worker

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/motionlab/capserver/internal/config"
	"github.com/motionlab/capserver/internal/logger"
	"github.com/motionlab/capserver/internal/model"
	"github.com/motionlab/capserver/internal/repository"
	"github.com/motionlab/capserver/internal/service"
)

// ArchiveWorker consumes the archive queue, builds a ZIP of a resource's
// result media, uploads it, and records a signed link under the task key.
type ArchiveWorker struct {
	results *repository.ResultRepository
	media   *service.MediaService
	tasks   *service.ArchiveService
	rdb     *redis.Client
	log     zerolog.Logger
}

// NewArchiveWorker creates a new ArchiveWorker.
func NewArchiveWorker(
	results *repository.ResultRepository,
	media *service.MediaService,
	tasks *service.ArchiveService,
	rdb *redis.Client,
	log zerolog.Logger,
) *ArchiveWorker {
	return &ArchiveWorker{
		results: results,
		media:   media,
		tasks:   tasks,
		rdb:     rdb,
		log:     logger.Component(log, "archive_worker"),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *ArchiveWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining jobs before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *ArchiveWorker) processNext(ctx context.Context) {
	// BLPop blocks until a job is available or timeout (1 second).
	result, err := w.rdb.BLPop(ctx, time.Second, config.ArchiveQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}
	w.handleRaw(ctx, result[1])
}

func (w *ArchiveWorker) handleRaw(ctx context.Context, raw string) {
	var job model.ArchiveJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	jobLog := w.log.With().
		Str("task_id", job.TaskID.String()).
		Str("kind", job.Kind).
		Str("resource_id", job.ResourceID.String()).
		Logger()

	if err := w.tasks.UpdateTask(ctx, &model.ArchiveTask{
		TaskID:      job.TaskID,
		RequestedBy: job.RequestedBy,
		State:       model.ArchiveStateRunning,
	}); err != nil {
		jobLog.Error().Err(err).Msg("Mark running failed")
	}

	url, err := w.buildArchive(ctx, &job)
	if err != nil {
		jobLog.Error().Err(err).Msg("Archive build failed")
		w.storeTerminal(ctx, &model.ArchiveTask{
			TaskID:      job.TaskID,
			RequestedBy: job.RequestedBy,
			State:       model.ArchiveStateError,
			Message:     err.Error(),
		})
		return
	}

	jobLog.Info().Msg("Archive ready")
	w.storeTerminal(ctx, &model.ArchiveTask{
		TaskID:      job.TaskID,
		RequestedBy: job.RequestedBy,
		State:       model.ArchiveStateDone,
		URL:         url,
	})
}

func (w *ArchiveWorker) storeTerminal(ctx context.Context, task *model.ArchiveTask) {
	if err := w.tasks.UpdateTask(ctx, task); err != nil {
		w.log.Error().Err(err).Str("task_id", task.TaskID.String()).Msg("Store task state failed")
	}
}

// buildArchive zips every result media object of the job's resource, uploads
// the archive, and returns a signed download link.
func (w *ArchiveWorker) buildArchive(ctx context.Context, job *model.ArchiveJob) (string, error) {
	var (
		results []model.Result
		err     error
	)
	switch job.Kind {
	case model.ArchiveKindSession:
		results, err = w.results.ListBySession(ctx, job.ResourceID)
	case model.ArchiveKindSubject:
		results, err = w.results.ListBySubject(ctx, job.ResourceID)
	default:
		return "", fmt.Errorf("unknown archive kind %q", job.Kind)
	}
	if err != nil {
		return "", fmt.Errorf("list results: %w", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i := range results {
		if results[i].MediaKey == "" {
			continue
		}
		if err := w.addEntry(ctx, zw, &results[i]); err != nil {
			zw.Close()
			return "", err
		}
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("finalize zip: %w", err)
	}

	key := service.ArchiveKey(job.TaskID.String())
	if err := w.media.Upload(ctx, key, "application/zip", &buf); err != nil {
		return "", err
	}
	return w.media.PresignGet(ctx, key)
}

func (w *ArchiveWorker) addEntry(ctx context.Context, zw *zip.Writer, res *model.Result) error {
	body, err := w.media.Download(ctx, res.MediaKey)
	if err != nil {
		return err
	}
	defer body.Close()

	name := fmt.Sprintf("%s/%s_%s", res.TrialID, res.Tag, res.DeviceID)
	entry, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("zip entry %q: %w", name, err)
	}
	if _, err := io.Copy(entry, body); err != nil {
		return fmt.Errorf("zip entry %q: %w", name, err)
	}
	return nil
}

// drain processes all remaining jobs in the queue before shutdown.
func (w *ArchiveWorker) drain(ctx context.Context) {
	drained := 0
	for {
		raw, err := w.rdb.LPop(ctx, config.ArchiveQueue).Result()
		if err != nil {
			break
		}
		w.handleRaw(ctx, raw)
		drained++
	}
	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining archive jobs")
	}
}
