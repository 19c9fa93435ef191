package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/staffly-dev/hr-attendance-api/internal/models"
	appErrors "github.com/staffly-dev/hr-attendance-api/pkg/errors"
)

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListForAdmin(ctx context.Context, limit int) ([]models.Notification, error)
	ListForEmployee(ctx context.Context, employeeID string, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id string) error
}

// NotificationService exposes the leave notification feed.
type NotificationService struct {
	repo   notificationStore
	logger *zap.Logger
}

func NewNotificationService(repo notificationStore, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, logger: logger}
}

const defaultNotificationLimit = 50

// ListFor returns the feed visible to the caller. Admins see the admin
// audience; employees see rows addressed to them.
func (s *NotificationService) ListFor(ctx context.Context, claims *models.JWTClaims, limit int) ([]models.Notification, error) {
	if claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "")
	}
	if limit <= 0 || limit > 200 {
		limit = defaultNotificationLimit
	}
	var (
		rows []models.Notification
		err  error
	)
	if claims.Role == models.RoleAdmin {
		rows, err = s.repo.ListForAdmin(ctx, limit)
	} else {
		if claims.EmployeeID == nil {
			return []models.Notification{}, nil
		}
		rows, err = s.repo.ListForEmployee(ctx, *claims.EmployeeID, limit)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return rows, nil
}

// MarkRead flags a single notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, id string) error {
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}
