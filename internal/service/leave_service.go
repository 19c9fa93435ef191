package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/staffly-dev/hr-attendance-api/internal/models"
	appErrors "github.com/staffly-dev/hr-attendance-api/pkg/errors"
)

type leaveStore interface {
	Create(ctx context.Context, req *models.LeaveRequest) error
	GetByID(ctx context.Context, id string) (*models.LeaveRequest, error)
	List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, int, error)
	CountOverlapping(ctx context.Context, employeeID string, start, end time.Time) (int, error)
	ApproveWithOverlay(ctx context.Context, req *models.LeaveRequest, decidedBy string) error
	Reject(ctx context.Context, id, decidedBy, reason string) error
	CancelWithRevert(ctx context.Context, req *models.LeaveRequest) error
}

type leaveNotifier interface {
	Create(ctx context.Context, n *models.Notification) error
}

type leaveMetrics interface {
	IncLeaveTransition(action string)
}

// LeaveService drives the leave request lifecycle and the ledger overlay
// that approval and cancellation perform.
type LeaveService struct {
	repo      leaveStore
	notifier  leaveNotifier
	metrics   leaveMetrics
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLeaveService constructs the service.
func NewLeaveService(repo leaveStore, notifier leaveNotifier, metrics leaveMetrics, validate *validator.Validate, logger *zap.Logger) *LeaveService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	_ = validate.RegisterValidation("leave_type", func(fl validator.FieldLevel) bool {
		return models.LeaveType(fl.Field().String()).Valid()
	})
	return &LeaveService{repo: repo, notifier: notifier, metrics: metrics, validator: validate, logger: logger}
}

// SubmitLeaveRequest is the submission payload. AutoApprove is honoured
// only for administrators.
type SubmitLeaveRequest struct {
	EmployeeID  string `json:"employee_id" validate:"required"`
	Type        string `json:"leave_type" validate:"required,leave_type"`
	StartDate   string `json:"start_date" validate:"required"`
	EndDate     string `json:"end_date" validate:"required"`
	Reason      string `json:"reason" validate:"required"`
	AutoApprove bool   `json:"auto_approve"`
}

// Submit files a new request. Overlap with an existing pending or approved
// request for the same employee is rejected. Admin auto-approve runs the
// overlay immediately; otherwise the admin audience is notified.
func (s *LeaveService) Submit(ctx context.Context, req SubmitLeaveRequest, actor *models.JWTClaims) (*models.LeaveRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid leave payload")
	}
	start, err := time.Parse(models.DateLayout, req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start_date, expected YYYY-MM-DD")
	}
	end, err := time.Parse(models.DateLayout, req.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end_date, expected YYYY-MM-DD")
	}
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date precedes start_date")
	}

	overlapping, err := s.repo.CountOverlapping(ctx, req.EmployeeID, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check overlapping leave")
	}
	if overlapping > 0 {
		return nil, appErrors.Clone(appErrors.ErrOverlappingLeave, "")
	}

	request := &models.LeaveRequest{
		EmployeeID: req.EmployeeID,
		Type:       models.LeaveType(req.Type),
		StartDate:  start,
		EndDate:    end,
		Reason:     req.Reason,
		Status:     models.LeaveStatusPending,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create leave request")
	}
	if s.metrics != nil {
		s.metrics.IncLeaveTransition("submit")
	}

	if req.AutoApprove && actor != nil && actor.Role == models.RoleAdmin {
		if err := s.approve(ctx, request, actor.UserID); err != nil {
			return nil, err
		}
		return request, nil
	}

	s.notify(ctx, &models.Notification{
		Audience:       models.AudienceAdmin,
		Type:           models.NotificationLeaveSubmitted,
		Message:        fmt.Sprintf("Leave request %s–%s awaits review", req.StartDate, req.EndDate),
		LeaveRequestID: request.ID,
	})
	return request, nil
}

// Approve transitions a pending request to approved and overlays the range.
func (s *LeaveService) Approve(ctx context.Context, id, actorID string) (*models.LeaveRequest, error) {
	request, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !request.Status.CanTransitionTo(models.LeaveStatusApproved) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot approve a %s request", request.Status))
	}
	if err := s.approve(ctx, request, actorID); err != nil {
		return nil, err
	}
	return request, nil
}

func (s *LeaveService) approve(ctx context.Context, request *models.LeaveRequest, actorID string) error {
	if err := s.repo.ApproveWithOverlay(ctx, request, actorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrInvalidTransition, "request was already decided")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve leave request")
	}
	if s.metrics != nil {
		s.metrics.IncLeaveTransition("approve")
	}
	s.notify(ctx, &models.Notification{
		Audience:       models.AudienceEmployee,
		EmployeeID:     &request.EmployeeID,
		Type:           models.NotificationLeaveApproved,
		Message:        fmt.Sprintf("Your %s leave %s–%s was approved", request.Type, request.StartDate.Format(models.DateLayout), request.EndDate.Format(models.DateLayout)),
		LeaveRequestID: request.ID,
	})
	return nil
}

// Reject transitions a pending request to rejected; the ledger stays
// untouched and the reviewer's reason is appended to the stored one.
func (s *LeaveService) Reject(ctx context.Context, id, actorID, reason string) (*models.LeaveRequest, error) {
	request, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !request.Status.CanTransitionTo(models.LeaveStatusRejected) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot reject a %s request", request.Status))
	}
	if err := s.repo.Reject(ctx, id, actorID, reason); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "request was already decided")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject leave request")
	}
	if s.metrics != nil {
		s.metrics.IncLeaveTransition("reject")
	}
	s.notify(ctx, &models.Notification{
		Audience:       models.AudienceEmployee,
		EmployeeID:     &request.EmployeeID,
		Type:           models.NotificationLeaveRejected,
		Message:        fmt.Sprintf("Your %s leave %s–%s was rejected", request.Type, request.StartDate.Format(models.DateLayout), request.EndDate.Format(models.DateLayout)),
		LeaveRequestID: request.ID,
	})
	now := time.Now().UTC()
	request.Status = models.LeaveStatusRejected
	request.DecidedBy = &actorID
	request.DecidedAt = &now
	return request, nil
}

// Cancel deletes the request and its notifications. For approved requests
// the overlaid dates still marked on_leave revert to absent; dates since
// overwritten by other writers are left alone.
func (s *LeaveService) Cancel(ctx context.Context, id string, actor *models.JWTClaims) error {
	request, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if actor != nil && actor.Role != models.RoleAdmin {
		if actor.EmployeeID == nil || *actor.EmployeeID != request.EmployeeID {
			return appErrors.Clone(appErrors.ErrForbidden, "only the requester or an administrator may cancel")
		}
	}
	if !request.Status.CanTransitionTo(models.LeaveStatusCancelled) {
		return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot cancel a %s request", request.Status))
	}
	if err := s.repo.CancelWithRevert(ctx, request); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrInvalidTransition, "request was already decided")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel leave request")
	}
	if s.metrics != nil {
		s.metrics.IncLeaveTransition("cancel")
	}
	return nil
}

// Get returns one request.
func (s *LeaveService) Get(ctx context.Context, id string) (*models.LeaveRequest, error) {
	return s.load(ctx, id)
}

// LeaveListRequest filters request listings.
type LeaveListRequest struct {
	EmployeeID string
	Status     *string
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
}

// List returns paginated requests.
func (s *LeaveService) List(ctx context.Context, req LeaveListRequest) ([]models.LeaveRequest, *models.Pagination, error) {
	var status *models.LeaveStatus
	if req.Status != nil {
		st := models.LeaveStatus(*req.Status)
		if !st.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown leave status")
		}
		status = &st
	}
	page := req.Page
	if page < 1 {
		page = 1
	}
	size := req.PageSize
	if size <= 0 {
		size = 50
	}
	filter := models.LeaveFilter{
		EmployeeID: req.EmployeeID,
		Status:     status,
		DateFrom:   req.DateFrom,
		DateTo:     req.DateTo,
		Page:       page,
		PageSize:   size,
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list leave requests")
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return rows, pagination, nil
}

func (s *LeaveService) load(ctx context.Context, id string) (*models.LeaveRequest, error) {
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leave request")
	}
	if request == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "leave request not found")
	}
	return request, nil
}

func (s *LeaveService) notify(ctx context.Context, n *models.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Create(ctx, n); err != nil {
		s.logger.Warn("failed to create notification",
			zap.String("leave_request_id", n.LeaveRequestID), zap.Error(err))
	}
}
