package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/zbuppan/internal/models"
	"github.com/mmynk/zbuppan/internal/storage"
)

// CreatePurchase persists a new purchase.
func (s *SQLiteStore) CreatePurchase(ctx context.Context, purchase *models.Purchase) error {
	if purchase.ID == "" {
		purchase.ID = uuid.New().String()
	}
	if purchase.CreatedAt == 0 {
		purchase.CreatedAt = time.Now().UnixMilli()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO purchases (id, user_id, item_id, created_at, deleted_at) VALUES (?, ?, ?, ?, ?)",
		purchase.ID, purchase.UserID, purchase.ItemID, purchase.CreatedAt, purchase.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert purchase: %w", err)
	}
	return nil
}

// ListPurchaseDetails returns purchases joined with item and buyer, oldest first.
func (s *SQLiteStore) ListPurchaseDetails(ctx context.Context, q storage.PurchaseQuery) ([]*models.PurchaseDetail, error) {
	var where []string
	var args []any

	where = append(where, "p.deleted_at IS NULL")
	if q.UserID != "" {
		where = append(where, "p.user_id = ?")
		args = append(args, q.UserID)
	}
	if q.From != 0 {
		where = append(where, "p.created_at >= ?")
		args = append(args, q.From)
	}
	if q.To != 0 {
		where = append(where, "p.created_at < ?")
		args = append(args, q.To)
	}

	query := `
		SELECT p.id, p.created_at,
		       i.id, i.name, i.price, i.owner_id, i.created_at, i.deleted_at,
		       u.id, u.name
		FROM purchases p
		JOIN items i ON i.id = p.item_id
		JOIN users u ON u.id = p.user_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY p.created_at, p.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	defer rows.Close()

	var details []*models.PurchaseDetail
	for rows.Next() {
		d := &models.PurchaseDetail{}
		var owner sql.NullString
		var deletedAt sql.NullInt64
		if err := rows.Scan(
			&d.ID, &d.CreatedAt,
			&d.Item.ID, &d.Item.Name, &d.Item.Price, &owner, &d.Item.CreatedAt, &deletedAt,
			&d.UserID, &d.UserName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		d.Item.OwnerID = owner.String
		d.Item.DeletedAt = nullableInt(deletedAt)
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate purchases: %w", err)
	}
	return details, nil
}
