// File: internal/notification/service.go
package notification

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quickfix_backend/internal/common"
	"quickfix_backend/internal/user"
)

// Notifier records a notification for a principal identified by auth UID.
// Implementations must be best-effort: callers treat failures as non-fatal.
type Notifier interface {
	Notify(ctx context.Context, recipientUID, eventType, bookingID, message string)
}

// Service defines notification business logic.
type Service interface {
	Notifier
	ListForUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]NotificationResponse, *common.Pagination, error)
	MarkRead(ctx context.Context, userID uuid.UUID, notificationID uuid.UUID) error
}

// ServiceImplementation implements the notification Service interface.
type ServiceImplementation struct {
	repo        Repository
	userService user.Service
	logger      *zap.Logger
}

// NewService creates a new notification service.
func NewService(repo Repository, userService user.Service, logger *zap.Logger) Service {
	return &ServiceImplementation{repo: repo, userService: userService, logger: logger.Named("NotificationService")}
}

// Notify persists a notification for the mirrored user behind recipientUID.
// Errors are logged and swallowed so that a notification failure never fails
// the booking operation that triggered it.
func (s *ServiceImplementation) Notify(ctx context.Context, recipientUID, eventType, bookingID, message string) {
	mirrored, err := s.userService.GetByFirebaseUID(ctx, recipientUID)
	if err != nil {
		s.logger.Warn("Skipping notification for unmirrored recipient",
			zap.String("recipientUID", recipientUID),
			zap.String("type", eventType),
			zap.Error(err),
		)
		return
	}

	n := &Notification{
		UserID:    mirrored.ID,
		Type:      eventType,
		Message:   message,
		BookingID: bookingID,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Warn("Failed to persist notification",
			zap.String("recipientUID", recipientUID),
			zap.String("type", eventType),
			zap.String("bookingID", bookingID),
			zap.Error(err),
		)
		return
	}
	s.logger.Debug("Notification recorded",
		zap.String("type", eventType),
		zap.String("bookingID", bookingID),
	)
}

func (s *ServiceImplementation) ListForUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]NotificationResponse, *common.Pagination, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	notifications, total, err := s.repo.ListByUserID(ctx, userID, page, pageSize)
	if err != nil {
		return nil, nil, err
	}

	responses := make([]NotificationResponse, 0, len(notifications))
	for i := range notifications {
		responses = append(responses, ToNotificationResponse(&notifications[i]))
	}
	return responses, common.NewPagination(total, page, pageSize), nil
}

func (s *ServiceImplementation) MarkRead(ctx context.Context, userID uuid.UUID, notificationID uuid.UUID) error {
	n, err := s.repo.FindByID(ctx, notificationID)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return common.ErrForbidden.WithDetails("You can only mark your own notifications as read.")
	}
	return s.repo.MarkRead(ctx, notificationID)
}
