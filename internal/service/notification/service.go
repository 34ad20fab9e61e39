package notification

import (
	"context"

	"souq-orders/internal/domain"
	notificationrepo "souq-orders/internal/repository/notification"
)

const defaultLimit = 50

type Service struct {
	repo notificationrepo.Repository
}

func New(repo notificationrepo.Repository) *Service {
	return &Service{repo: repo}
}

// List returns the newest admin notifications, at most limit (default 50).
func (s *Service) List(ctx context.Context, unreadOnly bool, limit int) ([]domain.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = defaultLimit
	}
	return s.repo.List(ctx, unreadOnly, limit)
}

func (s *Service) MarkRead(ctx context.Context, id int64) error {
	if id <= 0 {
		return domain.NewValidationError("id", "must be a positive integer")
	}
	return s.repo.MarkRead(ctx, id)
}
