package notification

import (
	"context"

	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk-api/internal/model"
	"github.com/orderdesk/orderdesk-api/internal/repository"
	apperrors "github.com/orderdesk/orderdesk-api/pkg/errors"
)

// Service exposes a user's notification feed. Writes are owner-scoped: a
// user can only read or delete rows addressed to them.
type Service struct {
	repo repository.NotificationRepository
}

func NewService(repo repository.NotificationRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, filter *model.NotificationFilter) ([]*model.Notification, error) {
	return s.repo.ListForUser(ctx, userID, filter)
}

func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead stops reminder tracking for the notification: the unread sweep
// only considers unread rows.
func (s *Service) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return apperrors.NotFound("notification", err)
	}
	if n.UserID != userID {
		return apperrors.Forbidden("notification belongs to another user", nil)
	}
	return s.repo.MarkRead(ctx, id, userID)
}

func (s *Service) Delete(ctx context.Context, id, userID uuid.UUID) error {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return apperrors.NotFound("notification", err)
	}
	if n.UserID != userID {
		return apperrors.Forbidden("notification belongs to another user", nil)
	}
	return s.repo.Delete(ctx, id, userID)
}
