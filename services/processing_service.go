package services

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"go_ingest_backend/models"
	"go_ingest_backend/parsers"
	"go_ingest_backend/pkg/apperr"
	"go_ingest_backend/pkg/logging"
	"go_ingest_backend/platform/events"
	"go_ingest_backend/platform/metrics"
	"go_ingest_backend/repository"
)

const (
	outcomeCompleted = "completed"
	outcomeError     = "error"
	outcomeAborted   = "aborted"
)

// ProcessingService consumes FILE_UPLOADED and drives a record through
// PROCESSING to COMPLETED or ERROR.
type ProcessingService struct {
	repo    repository.FileRepository
	bus     events.Bus
	parsers *parsers.Registry
	metrics *metrics.Metrics

	group  errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc

	mu  sync.Mutex
	sub events.Subscription
}

func NewProcessingService(repo repository.FileRepository, bus events.Bus, registry *parsers.Registry, concurrency int, m *metrics.Metrics) *ProcessingService {
	if concurrency <= 0 {
		concurrency = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &ProcessingService{
		repo:    repo,
		bus:     bus,
		parsers: registry,
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
	}
	s.group.SetLimit(concurrency)
	return s
}

// Start subscribes to FILE_UPLOADED. Events are handed to the worker pool in
// arrival order; when every worker is busy the subscription waits for a free one.
func (s *ProcessingService) Start(ctx context.Context) error {
	sub, err := s.bus.Subscribe(ctx, []string{string(models.EventFileUploaded)}, s.handleUploaded)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()
	logging.Logger.Info("processing worker subscribed", "channel", models.EventFileUploaded)
	return nil
}

// Stop closes the subscription and waits for in-flight files to finish.
func (s *ProcessingService) Stop() error {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	var err error
	if sub != nil {
		err = sub.Close()
	}
	_ = s.group.Wait()
	s.cancel()
	return err
}

func (s *ProcessingService) handleUploaded(_ context.Context, msg events.Message) {
	ev, err := events.Decode(msg.Channel, msg.Payload)
	if err != nil {
		logging.Logger.Warn("dropping malformed upload event", "error", err)
		return
	}
	uploaded, ok := ev.(models.FileUploadedEvent)
	if !ok {
		return
	}
	s.group.Go(func() error {
		s.Process(s.ctx, uploaded)
		return nil
	})
}

// Process runs the pipeline for one uploaded file. Every outcome is reported
// through the record status and an event; nothing is returned.
func (s *ProcessingService) Process(ctx context.Context, ev models.FileUploadedEvent) {
	started := time.Now()
	fileID := ev.FileID

	rec, err := s.repo.GetByID(ctx, fileID)
	if err != nil {
		if apperr.IsNotFound(err) {
			logging.Logger.Warn("record for uploaded file not found, skipping", "fileID", fileID)
			s.metrics.ObserveProcessing(outcomeAborted, started)
			return
		}
		s.fail(ctx, fileID, err.Error(), started)
		return
	}

	processing := models.StatusProcessing
	if _, err := s.repo.Update(ctx, fileID, models.FileUpdate{Status: &processing}); err != nil {
		s.fail(ctx, fileID, err.Error(), started)
		return
	}
	if err := events.PublishEvent(ctx, s.bus, models.FileProcessingEvent{
		FileID:   fileID,
		Status:   "STARTED",
		Progress: 0,
	}); err != nil {
		logging.Logger.Warn("fail publishing processing event", "fileID", fileID, "error", err)
	}

	parser, err := s.parsers.For(rec.MimeType)
	if err != nil {
		s.fail(ctx, fileID, err.Error(), started)
		return
	}

	path := ev.Path
	if path == "" {
		path = rec.Path
	}
	result := parser.Parse(ctx, path)
	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = "processing failed"
		}
		s.fail(ctx, fileID, msg, started)
		return
	}

	completed := models.StatusCompleted
	if _, err := s.repo.Update(ctx, fileID, models.FileUpdate{
		Status:        &completed,
		ProcessedData: result.ProcessedData(),
	}); err != nil {
		s.fail(ctx, fileID, err.Error(), started)
		return
	}

	if err := events.PublishEvent(ctx, s.bus, models.FileProcessedEvent{
		FileID: fileID,
		Result: result.Stripped(),
	}); err != nil {
		logging.Logger.Warn("fail publishing processed event", "fileID", fileID, "error", err)
	}
	s.metrics.ObserveProcessing(outcomeCompleted, started)
	logging.Logger.Info("file processed", "fileID", fileID, "rows", len(result.Data), "elapsed", time.Since(started))
}

// fail records the ERROR status and publishes FILE_ERROR. Both steps are best
// effort; their failures are only logged.
func (s *ProcessingService) fail(ctx context.Context, fileID, reason string, started time.Time) {
	logging.Logger.Error("file processing failed", "fileID", fileID, "error", reason)

	status := models.StatusError
	if _, err := s.repo.Update(ctx, fileID, models.FileUpdate{Status: &status, ProcessingError: &reason}); err != nil {
		logging.Logger.Error("fail recording processing error", "fileID", fileID, "error", err)
	}
	if err := events.PublishEvent(ctx, s.bus, models.FileErrorEvent{FileID: fileID, Error: reason}); err != nil {
		logging.Logger.Error("fail publishing error event", "fileID", fileID, "error", err)
	}
	s.metrics.ObserveProcessing(outcomeError, started)
}

// Retry re-publishes FILE_UPLOADED for a stored record so any worker picks it up.
func (s *ProcessingService) Retry(ctx context.Context, fileID string) error {
	rec, err := s.repo.GetByID(ctx, fileID)
	if err != nil {
		return err
	}
	if rec.Path == "" {
		return apperr.Validation("path", "file has no stored object to process")
	}
	if err := events.PublishEvent(ctx, s.bus, models.FileUploadedEvent{
		FileID:   rec.ID,
		Path:     rec.Path,
		Metadata: rec.Metadata(),
	}); err != nil {
		return err
	}
	logging.Logger.Info("retry requested", "fileID", fileID)
	return nil
}
