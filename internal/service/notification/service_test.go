package notification_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderdesk/orderdesk-api/internal/model"
	"github.com/orderdesk/orderdesk-api/internal/repository/repotest"
	"github.com/orderdesk/orderdesk-api/internal/service/notification"
	apperrors "github.com/orderdesk/orderdesk-api/pkg/errors"
)

func seedFeed(repo *repotest.NotificationRepo, userID uuid.UUID) (*model.Notification, *model.Notification) {
	unread := repo.Seed(&model.Notification{
		UserID:   userID,
		Severity: model.SeverityWarning,
		Title:    "Quotation ready",
	})
	read := repo.Seed(&model.Notification{
		UserID:   userID,
		Severity: model.SeverityInfo,
		Title:    "Order delivered",
		IsRead:   true,
	})
	return unread, read
}

func TestListUnreadOnly(t *testing.T) {
	repo := repotest.NewNotificationRepo()
	service := notification.NewService(repo)
	userID := uuid.New()
	unread, _ := seedFeed(repo, userID)

	rows, err := service.List(context.Background(), userID, &model.NotificationFilter{UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, unread.ID, rows[0].ID)

	all, err := service.List(context.Background(), userID, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUnreadCount(t *testing.T) {
	repo := repotest.NewNotificationRepo()
	service := notification.NewService(repo)
	userID := uuid.New()
	seedFeed(repo, userID)

	count, err := service.UnreadCount(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMarkRead(t *testing.T) {
	repo := repotest.NewNotificationRepo()
	service := notification.NewService(repo)
	userID := uuid.New()
	unread, _ := seedFeed(repo, userID)

	require.NoError(t, service.MarkRead(context.Background(), unread.ID, userID))

	stored, err := repo.Get(context.Background(), unread.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsRead)
	assert.NotNil(t, stored.ReadAt)

	count, err := service.UnreadCount(context.Background(), userID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMarkReadIsOwnerScoped(t *testing.T) {
	repo := repotest.NewNotificationRepo()
	service := notification.NewService(repo)
	userID := uuid.New()
	unread, _ := seedFeed(repo, userID)

	err := service.MarkRead(context.Background(), unread.ID, uuid.New())
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrForbidden, appErr.Code)

	stored, err := repo.Get(context.Background(), unread.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsRead)
}

func TestDelete(t *testing.T) {
	repo := repotest.NewNotificationRepo()
	service := notification.NewService(repo)
	userID := uuid.New()
	unread, _ := seedFeed(repo, userID)

	t.Run("owner deletes", func(t *testing.T) {
		require.NoError(t, service.Delete(context.Background(), unread.ID, userID))
		_, err := repo.Get(context.Background(), unread.ID)
		assert.Error(t, err)
	})

	t.Run("missing row is not found", func(t *testing.T) {
		err := service.Delete(context.Background(), uuid.New(), userID)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrNotFound, appErr.Code)
	})

	t.Run("foreign row is forbidden", func(t *testing.T) {
		other := repo.Seed(&model.Notification{UserID: uuid.New(), Severity: model.SeverityInfo, Title: "x"})
		err := service.Delete(context.Background(), other.ID, userID)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrForbidden, appErr.Code)
	})
}
