package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffly-dev/hr-attendance-api/internal/models"
	"github.com/staffly-dev/hr-attendance-api/internal/repository"
	appErrors "github.com/staffly-dev/hr-attendance-api/pkg/errors"
	"github.com/staffly-dev/hr-attendance-api/pkg/jobs"
)

type mockReportStore struct {
	jobsByID map[string]*models.ReportJob
	updates  []repository.UpdateReportJobParams
	queued   []models.ReportJob
}

func (m *mockReportStore) Create(ctx context.Context, job *models.ReportJob) error {
	if m.jobsByID == nil {
		m.jobsByID = make(map[string]*models.ReportJob)
	}
	if job.ID == "" {
		job.ID = "job-1"
	}
	cp := *job
	m.jobsByID[job.ID] = &cp
	return nil
}

func (m *mockReportStore) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	if job, ok := m.jobsByID[id]; ok {
		cp := *job
		return &cp, nil
	}
	return nil, errors.New("get report job: sql: no rows in result set")
}

func (m *mockReportStore) Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error {
	m.updates = append(m.updates, params)
	if job, ok := m.jobsByID[id]; ok {
		if params.Status != nil {
			job.Status = *params.Status
		}
		if params.Progress != nil {
			job.Progress = *params.Progress
		}
		if params.ResultURL != nil {
			job.ResultURL = params.ResultURL
		}
		if params.ErrorMessage != nil {
			job.ErrorMessage = params.ErrorMessage
		}
		if params.FinishedAt != nil {
			job.FinishedAt = params.FinishedAt
		}
	}
	return nil
}

func (m *mockReportStore) ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error) {
	return m.queued, nil
}

func (m *mockReportStore) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	return nil, nil
}

type mockDispatcher struct {
	enqueued []jobs.Job
	err      error
}

func (m *mockDispatcher) Enqueue(job jobs.Job) error {
	if m.err != nil {
		return m.err
	}
	m.enqueued = append(m.enqueued, job)
	return nil
}

type mockGenerator struct {
	result   *ExportResult
	err      error
	failures int
	calls    int
}

func (m *mockGenerator) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	m.calls++
	if m.failures > 0 {
		m.failures--
		return nil, errors.New("render failed")
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func validReportRequest() ReportRequest {
	emp := "emp-1"
	return ReportRequest{
		Type:       models.ReportTypeAttendance,
		EmployeeID: &emp,
		DateFrom:   "2025-06-01",
		DateTo:     "2025-06-30",
		Format:     models.ReportFormatCSV,
	}
}

func TestCreateJobQueuesWork(t *testing.T) {
	store := &mockReportStore{}
	dispatcher := &mockDispatcher{}
	svc := NewReportService(store, dispatcher, nil, nil, ReportServiceConfig{})

	status, err := svc.CreateJob(context.Background(), validReportRequest(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, models.ReportStatusQueued, status.Status)
	require.Len(t, dispatcher.enqueued, 1)
	assert.Equal(t, status.ID, dispatcher.enqueued[0].ID)
	assert.Equal(t, "user-1", store.jobsByID[status.ID].CreatedBy)
}

func TestCreateJobEnqueueFailureMarksFailed(t *testing.T) {
	store := &mockReportStore{}
	dispatcher := &mockDispatcher{err: errors.New("queue full")}
	svc := NewReportService(store, dispatcher, nil, nil, ReportServiceConfig{})

	_, err := svc.CreateJob(context.Background(), validReportRequest(), "user-1")
	require.Error(t, err)

	require.Len(t, store.updates, 1)
	require.NotNil(t, store.updates[0].Status)
	assert.Equal(t, models.ReportStatusFailed, *store.updates[0].Status)
}

func TestCreateJobValidation(t *testing.T) {
	svc := NewReportService(&mockReportStore{}, &mockDispatcher{}, nil, nil, ReportServiceConfig{})

	req := validReportRequest()
	req.EmployeeID = nil
	_, err := svc.CreateJob(context.Background(), req, "user-1")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	req = validReportRequest()
	req.Type = "payroll"
	_, err = svc.CreateJob(context.Background(), req, "user-1")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	req = validReportRequest()
	req.Format = "xlsx"
	_, err = svc.CreateJob(context.Background(), req, "user-1")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	req = validReportRequest()
	req.DateFrom, req.DateTo = req.DateTo, req.DateFrom
	_, err = svc.CreateJob(context.Background(), req, "user-1")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestCreateJobLeaveNeedsNoEmployee(t *testing.T) {
	svc := NewReportService(&mockReportStore{}, &mockDispatcher{}, nil, nil, ReportServiceConfig{})

	req := validReportRequest()
	req.Type = models.ReportTypeLeave
	req.EmployeeID = nil
	_, err := svc.CreateJob(context.Background(), req, "user-1")
	assert.NoError(t, err)
}

func TestGetStatusEnforcesOwnership(t *testing.T) {
	store := &mockReportStore{jobsByID: map[string]*models.ReportJob{
		"job-1": {ID: "job-1", Status: models.ReportStatusProcessing, Progress: 10, CreatedBy: "user-1"},
	}}
	svc := NewReportService(store, &mockDispatcher{}, nil, nil, ReportServiceConfig{})

	status, err := svc.GetStatus(context.Background(), "job-1", "user-1", models.RoleEmployee)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusProcessing, status.Status)

	_, err = svc.GetStatus(context.Background(), "job-1", "user-2", models.RoleEmployee)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.GetStatus(context.Background(), "job-1", "user-2", models.RoleAdmin)
	assert.NoError(t, err)
}

func TestRecoverPendingJobsRequeues(t *testing.T) {
	store := &mockReportStore{queued: []models.ReportJob{
		{ID: "job-1", Type: models.ReportTypeLeave},
		{ID: "job-2", Type: models.ReportTypeAttendance},
	}}
	dispatcher := &mockDispatcher{}
	svc := NewReportService(store, dispatcher, nil, nil, ReportServiceConfig{})

	svc.RecoverPendingJobs(context.Background())
	assert.Len(t, dispatcher.enqueued, 2)
}

func TestWorkerHandleSuccess(t *testing.T) {
	store := &mockReportStore{jobsByID: map[string]*models.ReportJob{
		"job-1": {ID: "job-1", Type: models.ReportTypeLeave, Status: models.ReportStatusQueued},
	}}
	generator := &mockGenerator{result: &ExportResult{URL: "/api/v1/reports/download/tok"}}
	worker := NewReportWorker(store, generator, 3, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 0})
	require.NoError(t, err)

	job := store.jobsByID["job-1"]
	assert.Equal(t, models.ReportStatusFinished, job.Status)
	assert.Equal(t, 100, job.Progress)
	require.NotNil(t, job.ResultURL)
	assert.Equal(t, "/api/v1/reports/download/tok", *job.ResultURL)
	require.NotNil(t, job.FinishedAt)
}

func TestWorkerHandleRequeuesOnFailure(t *testing.T) {
	store := &mockReportStore{jobsByID: map[string]*models.ReportJob{
		"job-1": {ID: "job-1", Type: models.ReportTypeLeave, Status: models.ReportStatusQueued},
	}}
	generator := &mockGenerator{failures: 1}
	worker := NewReportWorker(store, generator, 3, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 0})
	require.Error(t, err)

	job := store.jobsByID["job-1"]
	assert.Equal(t, models.ReportStatusQueued, job.Status)
	assert.Equal(t, 0, job.Progress)
	require.NotNil(t, job.ErrorMessage)
}

func TestWorkerHandleExhaustedRetriesMarksFailed(t *testing.T) {
	store := &mockReportStore{jobsByID: map[string]*models.ReportJob{
		"job-1": {ID: "job-1", Type: models.ReportTypeLeave, Status: models.ReportStatusQueued},
	}}
	generator := &mockGenerator{failures: 10}
	worker := NewReportWorker(store, generator, 3, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 3})
	require.Error(t, err)

	job := store.jobsByID["job-1"]
	assert.Equal(t, models.ReportStatusFailed, job.Status)
	assert.Equal(t, 100, job.Progress)
	require.NotNil(t, job.FinishedAt)
}
