package notification

import (
	"context"
	"io"
	"log"

	"souq-orders/internal/db"
	"souq-orders/internal/domain"
)

type postgresRepo struct {
	q      db.Querier
	logger *log.Logger
}

func NewPostgres(q db.Querier, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{q: q, logger: logger}
}

func (r *postgresRepo) Insert(ctx context.Context, orderID int64, message string) (*domain.Notification, error) {
	const q = `
INSERT INTO admin_notifications (order_id, message)
VALUES ($1, $2)
RETURNING id, order_id, message, is_read, created_at
`
	var n domain.Notification
	if err := r.q.QueryRow(ctx, q, orderID, message).Scan(&n.ID, &n.OrderID, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
		r.logger.Printf("notification repo: insert order_id=%d error=%v", orderID, err)
		return nil, db.Classify("insert notification", err)
	}
	return &n, nil
}

func (r *postgresRepo) List(ctx context.Context, unreadOnly bool, limit int) ([]domain.Notification, error) {
	const q = `
SELECT id, order_id, message, is_read, created_at
FROM admin_notifications
WHERE NOT $1 OR NOT is_read
ORDER BY created_at DESC, id DESC
LIMIT $2
`
	rows, err := r.q.Query(ctx, q, unreadOnly, limit)
	if err != nil {
		r.logger.Printf("notification repo: list unread=%t error=%v", unreadOnly, err)
		return nil, db.Classify("list notifications", err)
	}
	defer rows.Close()

	result := make([]domain.Notification, 0)
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.OrderID, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, db.Classify("scan notification", err)
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify("list notifications", err)
	}
	return result, nil
}

func (r *postgresRepo) MarkRead(ctx context.Context, id int64) error {
	cmd, err := r.q.Exec(ctx, `UPDATE admin_notifications SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		r.logger.Printf("notification repo: mark read id=%d error=%v", id, err)
		return db.Classify("mark notification read", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
