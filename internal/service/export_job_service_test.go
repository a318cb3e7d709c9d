package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-cockpit-api/internal/dto"
	"github.com/noah-isme/tutor-cockpit-api/internal/models"
	"github.com/noah-isme/tutor-cockpit-api/internal/repository"
	appErrors "github.com/noah-isme/tutor-cockpit-api/pkg/errors"
	"github.com/noah-isme/tutor-cockpit-api/pkg/jobs"
	"github.com/noah-isme/tutor-cockpit-api/pkg/storage"
)

type memoryExportJobStore struct {
	mu      sync.Mutex
	jobs    map[string]*models.ExportJob
	deleted []string
	seq     int
}

func newMemoryExportJobStore() *memoryExportJobStore {
	return &memoryExportJobStore{jobs: map[string]*models.ExportJob{}}
}

func (m *memoryExportJobStore) Create(_ context.Context, job *models.ExportJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job.ID == "" {
		m.seq++
		job.ID = "job-" + string(rune('0'+m.seq))
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	clone := *job
	m.jobs[job.ID] = &clone
	return nil
}

func (m *memoryExportJobStore) GetByID(_ context.Context, id string) (*models.ExportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *job
	return &clone, nil
}

func (m *memoryExportJobStore) Update(_ context.Context, id string, params repository.UpdateExportJobParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultPath != nil {
		path := *params.ResultPath
		job.ResultPath = &path
	}
	if params.ErrorMessage != nil {
		msg := *params.ErrorMessage
		job.ErrorMessage = &msg
	}
	if params.FinishedAt != nil {
		at := *params.FinishedAt
		job.FinishedAt = &at
	}
	return nil
}

func (m *memoryExportJobStore) ListPending(_ context.Context, limit int) ([]models.ExportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ExportJob
	for _, job := range m.jobs {
		pending := job.Status == models.ExportStatusQueued || job.Status == models.ExportStatusProcessing
		if pending && len(out) < limit {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (m *memoryExportJobStore) ListExpired(_ context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ExportJob
	for _, job := range m.jobs {
		terminal := job.Status == models.ExportStatusFinished || job.Status == models.ExportStatusFailed
		if terminal && job.CreatedAt.Before(cutoff) && len(out) < limit {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (m *memoryExportJobStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type recordingDispatcher struct {
	jobs []jobs.Job
	err  error
}

func (d *recordingDispatcher) Enqueue(job jobs.Job) error {
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

type failingGenerator struct{ err error }

func (f failingGenerator) Generate(context.Context, *models.ExportJob) (*ExportResult, error) {
	return nil, f.err
}

type exportJobFixture struct {
	store    *memoryExportJobStore
	queue    *recordingDispatcher
	exporter *ExportService
	signer   *storage.SignedURLSigner
	svc      *ExportJobService
}

func newExportJobFixture(t *testing.T) *exportJobFixture {
	t.Helper()
	backup := &models.Backup{Version: models.BackupVersion}
	exporter := newExportServiceForTest(t, ExportSources{Backup: backupExporterStub{backup: backup}})
	store := newMemoryExportJobStore()
	queue := &recordingDispatcher{}
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	svc := NewExportJobService(store, queue, exporter, signer, nil, zap.NewNop(), ExportJobServiceConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour})
	return &exportJobFixture{store: store, queue: queue, exporter: exporter, signer: signer, svc: svc}
}

func TestExportJobRequestValidation(t *testing.T) {
	f := newExportJobFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  dto.ExportRequest
	}{
		{"unknown type", dto.ExportRequest{Type: "grades", Format: models.ExportFormatCSV}},
		{"backup as pdf", dto.ExportRequest{Type: models.ExportTypeBackup, Format: models.ExportFormatPDF}},
		{"finance as txt", dto.ExportRequest{Type: models.ExportTypeFinance, Format: models.ExportFormatTXT, FromMonth: "2024-01"}},
		{"finance without month", dto.ExportRequest{Type: models.ExportTypeFinance, Format: models.ExportFormatCSV}},
		{"finance reversed range", dto.ExportRequest{Type: models.ExportTypeFinance, Format: models.ExportFormatCSV, FromMonth: "2024-05", ToMonth: "2024-01"}},
		{"materials without scope", dto.ExportRequest{Type: models.ExportTypeMaterials, Format: models.ExportFormatTXT}},
		{"variant without id", dto.ExportRequest{Type: models.ExportTypeVariant, Format: models.ExportFormatPDF}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Request(ctx, tc.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, appErrors.ErrValidation)
		})
	}
	assert.Empty(t, f.queue.jobs)
}

func TestExportJobRequestEnqueues(t *testing.T) {
	f := newExportJobFixture(t)
	resp, err := f.svc.Request(context.Background(), dto.ExportRequest{Type: models.ExportTypeFinance, Format: models.ExportFormatCSV, FromMonth: "2024-03"})
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, resp.Status)

	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, resp.ID, f.queue.jobs[0].ID)
	assert.Equal(t, "finance", f.queue.jobs[0].Kind)

	stored, err := f.store.GetByID(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-03", stored.Params.ToMonth)
}

func TestExportJobRequestEnqueueFailureMarksFailed(t *testing.T) {
	f := newExportJobFixture(t)
	f.queue.err = jobs.ErrQueueClosed

	_, err := f.svc.Request(context.Background(), dto.ExportRequest{Type: models.ExportTypeBackup, Format: models.ExportFormatJSON})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrInternal)

	for _, job := range f.store.jobs {
		assert.Equal(t, models.ExportStatusFailed, job.Status)
		require.NotNil(t, job.FinishedAt)
	}
}

func TestExportJobLifecycleDownload(t *testing.T) {
	f := newExportJobFixture(t)
	ctx := context.Background()
	metrics := NewMetricsService()
	worker := NewExportWorker(f.store, f.exporter, metrics, zap.NewNop())

	resp, err := f.svc.Request(ctx, dto.ExportRequest{Type: models.ExportTypeBackup, Format: models.ExportFormatJSON})
	require.NoError(t, err)

	status, err := f.svc.Status(ctx, resp.ID)
	require.NoError(t, err)
	assert.Nil(t, status.DownloadURL)

	require.NoError(t, worker.Handle(ctx, f.queue.jobs[0]))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.exportJobs.WithLabelValues("backup", "FINISHED")))

	status, err = f.svc.Status(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFinished, status.Status)
	assert.Equal(t, 100, status.Progress)
	require.NotNil(t, status.DownloadURL)
	assert.True(t, strings.HasPrefix(*status.DownloadURL, "/api/v1/exports/download?token="))

	token := strings.TrimPrefix(*status.DownloadURL, "/api/v1/exports/download?token=")
	download, err := f.svc.ResolveDownload(ctx, token)
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, "application/json", download.ContentType)
	assert.Equal(t, resp.ID+".json", download.Filename)

	body, err := io.ReadAll(download.File)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"version": 1`)

	// a second delivery of the same job is a no-op
	require.NoError(t, worker.Handle(ctx, f.queue.jobs[0]))
}

func TestExportJobResolveDownloadRejects(t *testing.T) {
	f := newExportJobFixture(t)
	ctx := context.Background()

	_, err := f.svc.ResolveDownload(ctx, "garbage")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	job := &models.ExportJob{ID: "pending", Type: models.ExportTypeBackup, Format: models.ExportFormatJSON, Status: models.ExportStatusProcessing}
	require.NoError(t, f.store.Create(ctx, job))
	token, _, err := f.signer.Generate("pending", "backup/pending.json")
	require.NoError(t, err)
	_, err = f.svc.ResolveDownload(ctx, token)
	assert.ErrorIs(t, err, appErrors.ErrNotReady)

	path := "backup/other.json"
	done := &models.ExportJob{ID: "done", Type: models.ExportTypeBackup, Format: models.ExportFormatJSON, Status: models.ExportStatusFinished, ResultPath: &path}
	require.NoError(t, f.store.Create(ctx, done))
	token, _, err = f.signer.Generate("done", "backup/secret.json")
	require.NoError(t, err)
	_, err = f.svc.ResolveDownload(ctx, token)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestExportWorkerFailureRequeuesThenGivesUp(t *testing.T) {
	store := newMemoryExportJobStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &models.ExportJob{ID: "job-x", Type: models.ExportTypeVariant, Format: models.ExportFormatPDF, Status: models.ExportStatusQueued}))
	metrics := NewMetricsService()
	worker := NewExportWorker(store, failingGenerator{err: errors.New("variant missing")}, metrics, zap.NewNop())

	err := worker.Handle(ctx, jobs.Job{ID: "job-x", Kind: "variant"})
	require.Error(t, err)
	job, _ := store.GetByID(ctx, "job-x")
	assert.Equal(t, models.ExportStatusQueued, job.Status)
	require.NotNil(t, job.ErrorMessage)
	assert.Equal(t, "variant missing", *job.ErrorMessage)

	worker.GiveUp(ctx, jobs.Job{ID: "job-x", Kind: "variant", Attempt: 4}, err)
	job, _ = store.GetByID(ctx, "job-x")
	assert.Equal(t, models.ExportStatusFailed, job.Status)
	assert.Equal(t, 100, job.Progress)
	assert.NotNil(t, job.FinishedAt)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.exportJobs.WithLabelValues("variant", "FAILED")))
}

func TestExportJobRecoverPending(t *testing.T) {
	f := newExportJobFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Create(ctx, &models.ExportJob{ID: "q1", Type: models.ExportTypeBackup, Status: models.ExportStatusQueued}))
	require.NoError(t, f.store.Create(ctx, &models.ExportJob{ID: "f1", Type: models.ExportTypeBackup, Status: models.ExportStatusFinished}))

	f.svc.RecoverPendingJobs(ctx)
	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, "q1", f.queue.jobs[0].ID)
}

func TestExportJobRecoverInterrupted(t *testing.T) {
	f := newExportJobFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Create(ctx, &models.ExportJob{ID: "q1", Type: models.ExportTypeBackup, Status: models.ExportStatusQueued}))
	require.NoError(t, f.store.Create(ctx, &models.ExportJob{ID: "p1", Type: models.ExportTypeFinance, Status: models.ExportStatusProcessing, Progress: 40}))

	f.svc.RecoverPendingJobs(ctx)
	require.Len(t, f.queue.jobs, 2)
	ids := []string{f.queue.jobs[0].ID, f.queue.jobs[1].ID}
	assert.ElementsMatch(t, []string{"q1", "p1"}, ids)

	job, err := f.store.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, job.Status)
	assert.Equal(t, 0, job.Progress)
}

func TestExportJobCleanupExpired(t *testing.T) {
	f := newExportJobFixture(t)
	ctx := context.Background()

	result, err := f.exporter.Generate(ctx, &models.ExportJob{ID: "old", Type: models.ExportTypeBackup, Format: models.ExportFormatJSON})
	require.NoError(t, err)
	old := time.Now().Add(-3 * time.Hour)
	require.NoError(t, f.store.Create(ctx, &models.ExportJob{ID: "old", Type: models.ExportTypeBackup, Status: models.ExportStatusFinished, ResultPath: &result.RelativePath, CreatedAt: old}))
	require.NoError(t, f.store.Create(ctx, &models.ExportJob{ID: "fresh", Type: models.ExportTypeBackup, Status: models.ExportStatusFinished}))
	require.NoError(t, f.store.Create(ctx, &models.ExportJob{ID: "running", Type: models.ExportTypeBackup, Status: models.ExportStatusProcessing, CreatedAt: old}))

	removed := f.svc.CleanupExpired(ctx)
	assert.Equal(t, 1, removed)
	assert.Equal(t, []string{"old"}, f.store.deleted)

	_, err = f.exporter.Open(result.RelativePath)
	assert.Error(t, err)
}
