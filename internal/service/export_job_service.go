package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-cockpit-api/internal/dto"
	"github.com/noah-isme/tutor-cockpit-api/internal/models"
	"github.com/noah-isme/tutor-cockpit-api/internal/repository"
	appErrors "github.com/noah-isme/tutor-cockpit-api/pkg/errors"
	"github.com/noah-isme/tutor-cockpit-api/pkg/jobs"
	"github.com/noah-isme/tutor-cockpit-api/pkg/storage"
)

const (
	recoverBatchSize = 50
	cleanupBatchSize = 100
)

type exportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, id string) (*models.ExportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error
	ListPending(ctx context.Context, limit int) ([]models.ExportJob, error)
	ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error)
	Delete(ctx context.Context, id string) error
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type exportGenerator interface {
	Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error)
}

type exportFiles interface {
	Open(relPath string) (*os.File, error)
	Delete(relPath string) error
	Cleanup(ttl time.Duration) ([]string, error)
}

type downloadSigner interface {
	Generate(jobID, path string) (string, time.Time, error)
	Verify(token string) (*storage.DownloadClaims, error)
}

var allowedExportFormats = map[models.ExportType][]models.ExportFormat{
	models.ExportTypeBackup:    {models.ExportFormatJSON},
	models.ExportTypeFinance:   {models.ExportFormatCSV, models.ExportFormatPDF},
	models.ExportTypeMaterials: {models.ExportFormatTXT, models.ExportFormatPDF},
	models.ExportTypeVariant:   {models.ExportFormatTXT, models.ExportFormatPDF},
}

// ExportJobServiceConfig governs download links, recovery and cleanup.
type ExportJobServiceConfig struct {
	APIPrefix       string
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// ExportDownload aggregates resolved download data.
type ExportDownload struct {
	File        *os.File
	Filename    string
	ContentType string
	ExpiresAt   time.Time
}

// ExportJobService orchestrates export job lifecycle management.
type ExportJobService struct {
	repo     exportJobStore
	queue    jobDispatcher
	files    exportFiles
	signer   downloadSigner
	validate *validator.Validate
	logger   *zap.Logger
	cfg      ExportJobServiceConfig
	now      func() time.Time
}

// NewExportJobService constructs the export job service.
func NewExportJobService(repo exportJobStore, queue jobDispatcher, files exportFiles, signer downloadSigner, validate *validator.Validate, logger *zap.Logger, cfg ExportJobServiceConfig) *ExportJobService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportJobService{
		repo:     repo,
		queue:    queue,
		files:    files,
		signer:   signer,
		validate: validate,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Request validates the payload, persists a job and enqueues processing.
func (s *ExportJobService) Request(ctx context.Context, req dto.ExportRequest) (*dto.ExportJobResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid export payload")
	}
	if err := validateExportRequest(req); err != nil {
		return nil, err
	}

	job := &models.ExportJob{
		Type:   req.Type,
		Format: req.Format,
		Params: models.ExportParams{
			FromMonth:        req.FromMonth,
			ToMonth:          req.ToMonth,
			Subject:          req.Subject,
			CategoryID:       req.CategoryID,
			VariantID:        req.VariantID,
			IncludeAnswers:   req.IncludeAnswers,
			IncludeSolutions: req.IncludeSolutions,
		},
		Status: models.ExportStatusQueued,
	}
	if job.Type == models.ExportTypeFinance && job.Params.ToMonth == "" {
		job.Params.ToMonth = job.Params.FromMonth
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Internal(err, "failed to create export job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Kind: string(job.Type)}); err != nil {
		s.markFailed(ctx, job.ID, "failed to enqueue job")
		return nil, appErrors.Internal(err, "failed to enqueue export job")
	}
	return &dto.ExportJobResponse{ID: job.ID, Status: job.Status, Progress: job.Progress}, nil
}

// Status exposes job metadata, including a fresh signed link once the file is ready.
func (s *ExportJobService) Status(ctx context.Context, id string) (*dto.ExportStatusResponse, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "export job")
	}
	resp := &dto.ExportStatusResponse{
		ID:         job.ID,
		Type:       job.Type,
		Format:     job.Format,
		Status:     job.Status,
		Progress:   job.Progress,
		CreatedAt:  job.CreatedAt,
		FinishedAt: job.FinishedAt,
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	if job.Status == models.ExportStatusFinished && job.ResultPath != nil {
		token, expiresAt, err := s.signer.Generate(job.ID, *job.ResultPath)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to sign download link")
		}
		url := s.cfg.APIPrefix + "/exports/download?token=" + token
		resp.DownloadURL = &url
		resp.ExpiresAt = &expiresAt
	}
	return resp, nil
}

// ResolveDownload validates the token and opens the stored export file.
func (s *ExportJobService) ResolveDownload(ctx context.Context, token string) (*ExportDownload, error) {
	claims, err := s.signer.Verify(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download token")
	}
	job, err := s.repo.GetByID(ctx, claims.JobID)
	if err != nil {
		return nil, lookupError(err, "export job")
	}
	if job.Status != models.ExportStatusFinished || job.ResultPath == nil {
		return nil, appErrors.Clone(appErrors.ErrNotReady, "export not ready")
	}
	if *job.ResultPath != claims.Path {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token does not match export")
	}
	file, err := s.files.Open(claims.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export file no longer available")
		}
		return nil, appErrors.Internal(err, "failed to open export file")
	}
	return &ExportDownload{
		File:        file,
		Filename:    filepath.Base(claims.Path),
		ContentType: job.Format.ContentType(),
		ExpiresAt:   claims.ExpiresAt,
	}, nil
}

// RecoverPendingJobs replays unfinished jobs after a process restart. Jobs left
// PROCESSING by a crashed worker are put back to QUEUED first.
func (s *ExportJobService) RecoverPendingJobs(ctx context.Context) {
	pending, err := s.repo.ListPending(ctx, recoverBatchSize)
	if err != nil {
		s.logger.Sugar().Warnw("failed to recover pending export jobs", "error", err)
		return
	}
	queued := models.ExportStatusQueued
	reset := 0
	for _, job := range pending {
		if job.Status == models.ExportStatusProcessing {
			if err := s.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
				Status:   &queued,
				Progress: &reset,
			}); err != nil {
				s.logger.Sugar().Warnw("failed to reset interrupted job", "job_id", job.ID, "error", err)
				continue
			}
		}
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Kind: string(job.Type)}); err != nil {
			s.logger.Sugar().Warnw("failed to requeue pending job", "job_id", job.ID, "error", err)
		}
	}
	if len(pending) > 0 {
		s.logger.Info("recovered pending export jobs", zap.Int("count", len(pending)))
	}
}

// StartCleanup boots a goroutine that purges expired exports periodically.
func (s *ExportJobService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.CleanupExpired(ctx)
			}
		}
	}()
}

// CleanupExpired deletes finished or failed jobs older than the result TTL and their files.
func (s *ExportJobService) CleanupExpired(ctx context.Context) int {
	cutoff := s.now().Add(-s.cfg.ResultTTL)
	removed := 0
	for {
		expired, err := s.repo.ListExpired(ctx, cutoff, cleanupBatchSize)
		if err != nil {
			s.logger.Sugar().Warnw("cleanup list failed", "error", err)
			break
		}
		progressed := false
		for _, job := range expired {
			if job.ResultPath != nil {
				if err := s.files.Delete(*job.ResultPath); err != nil && !errors.Is(err, os.ErrNotExist) {
					s.logger.Sugar().Warnw("cleanup delete failed", "job_id", job.ID, "error", err)
				}
			}
			if err := s.repo.Delete(ctx, job.ID); err != nil {
				s.logger.Sugar().Warnw("cleanup job delete failed", "job_id", job.ID, "error", err)
				continue
			}
			removed++
			progressed = true
		}
		if len(expired) < cleanupBatchSize || !progressed {
			break
		}
	}
	if _, err := s.files.Cleanup(s.cfg.ResultTTL); err != nil {
		s.logger.Sugar().Warnw("filesystem cleanup failed", "error", err)
	}
	if removed > 0 {
		s.logger.Info("expired export jobs removed", zap.Int("count", removed))
	}
	return removed
}

func (s *ExportJobService) markFailed(ctx context.Context, id, msg string) {
	status := models.ExportStatusFailed
	progress := 100
	now := s.now().UTC()
	if err := s.repo.Update(ctx, id, repository.UpdateExportJobParams{
		Status:       &status,
		Progress:     &progress,
		ErrorMessage: &msg,
		FinishedAt:   &now,
	}); err != nil {
		s.logger.Sugar().Warnw("failed to mark job failed", "job_id", id, "error", err)
	}
}

func validateExportRequest(req dto.ExportRequest) error {
	formats, ok := allowedExportFormats[req.Type]
	if !ok {
		return appErrors.Clone(appErrors.ErrValidation, "unsupported export type")
	}
	allowed := false
	for _, f := range formats {
		if f == req.Format {
			allowed = true
			break
		}
	}
	if !allowed {
		return appErrors.Clone(appErrors.ErrValidation, "format "+string(req.Format)+" is not available for "+string(req.Type)+" exports")
	}

	switch req.Type {
	case models.ExportTypeFinance:
		if req.FromMonth == "" {
			return appErrors.Clone(appErrors.ErrValidation, "from_month is required")
		}
		if req.ToMonth != "" && req.ToMonth < req.FromMonth {
			return appErrors.Clone(appErrors.ErrValidation, "to_month must not be before from_month")
		}
	case models.ExportTypeMaterials:
		if req.Subject == "" && req.CategoryID == "" {
			return appErrors.Clone(appErrors.ErrValidation, "subject or category_id is required")
		}
	case models.ExportTypeVariant:
		if req.VariantID == "" {
			return appErrors.Clone(appErrors.ErrValidation, "variant_id is required")
		}
	}
	return nil
}

// ExportWorker bridges queue jobs to ExportService.
type ExportWorker struct {
	repo     exportJobStore
	exporter exportGenerator
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportWorker constructs a worker.
func NewExportWorker(repo exportJobStore, exporter exportGenerator, metrics *MetricsService, logger *zap.Logger) *ExportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportWorker{repo: repo, exporter: exporter, metrics: metrics, logger: logger, now: time.Now}
}

// Handle processes a queue job. Returned errors are retried by the queue.
func (w *ExportWorker) Handle(ctx context.Context, job jobs.Job) error {
	started := w.now()
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		if isNotFound(err) {
			w.logger.Warn("export job vanished before processing", zap.String("job_id", job.ID))
			return nil
		}
		return err
	}
	if record.Status == models.ExportStatusFinished || record.Status == models.ExportStatusFailed {
		return nil
	}

	processing := models.ExportStatusProcessing
	progress := 10
	if err := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
		Status:   &processing,
		Progress: &progress,
	}); err != nil {
		return err
	}

	result, err := w.exporter.Generate(ctx, record)
	if err != nil {
		queued := models.ExportStatusQueued
		reset := 0
		msg := err.Error()
		if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
			Status:       &queued,
			Progress:     &reset,
			ErrorMessage: &msg,
		}); updateErr != nil {
			w.logger.Sugar().Warnw("failed to mark job queued", "job_id", job.ID, "error", updateErr)
		}
		return err
	}

	finished := models.ExportStatusFinished
	progress = 100
	now := w.now().UTC()
	path := result.RelativePath
	clear := ""
	if err := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
		Status:       &finished,
		Progress:     &progress,
		ResultPath:   &path,
		ErrorMessage: &clear,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Sugar().Warnw("failed to mark job finished", "job_id", job.ID, "error", err)
		return err
	}
	w.metrics.RecordExportJob(string(record.Type), string(record.Format), string(finished), w.now().Sub(started))
	w.logger.Info("export job finished", zap.String("job_id", job.ID), zap.String("type", string(record.Type)), zap.Int("bytes", result.Size))
	return nil
}

// GiveUp marks a job failed once the queue has exhausted its retries.
func (w *ExportWorker) GiveUp(ctx context.Context, job jobs.Job, cause error) {
	failed := models.ExportStatusFailed
	progress := 100
	now := w.now().UTC()
	msg := "export failed"
	if cause != nil {
		msg = cause.Error()
	}
	if err := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
		Status:       &failed,
		Progress:     &progress,
		ErrorMessage: &msg,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Sugar().Warnw("failed to mark job failed", "job_id", job.ID, "error", err)
	}
	w.metrics.RecordExportJob(job.Kind, "", string(failed), 0)
	w.logger.Warn("export job failed", zap.String("job_id", job.ID), zap.Int("attempts", job.Attempt), zap.Error(cause))
}
