package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/zbuppan/internal/models"
	"github.com/mmynk/zbuppan/internal/storage"
)

func scanItem(row rowScanner) (*models.Item, error) {
	item := &models.Item{}
	var owner sql.NullString
	var deletedAt sql.NullInt64
	if err := row.Scan(&item.ID, &item.Name, &item.Price, &owner, &item.CreatedAt, &deletedAt); err != nil {
		return nil, err
	}
	item.OwnerID = owner.String
	item.DeletedAt = nullableInt(deletedAt)
	return item, nil
}

// CreateItem persists a new catalog item.
func (s *SQLiteStore) CreateItem(ctx context.Context, item *models.Item) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.CreatedAt == 0 {
		item.CreatedAt = time.Now().UnixMilli()
	}

	var owner any
	if item.OwnerID != "" {
		owner = item.OwnerID
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO items (id, name, price, owner_id, created_at, deleted_at) VALUES (?, ?, ?, ?, ?, ?)",
		item.ID, item.Name, item.Price, owner, item.CreatedAt, item.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

// GetItem retrieves an item by ID, including soft-deleted items.
func (s *SQLiteStore) GetItem(ctx context.Context, id string) (*models.Item, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, price, owner_id, created_at, deleted_at FROM items WHERE id = ?", id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// ListItems returns items in creation order.
func (s *SQLiteStore) ListItems(ctx context.Context, includeDeleted bool) ([]*models.Item, error) {
	query := "SELECT id, name, price, owner_id, created_at, deleted_at FROM items"
	if !includeDeleted {
		query += " WHERE deleted_at IS NULL"
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return items, nil
}

// ListItemSummaries returns active items with their owner's name and the
// number of non-deleted purchases.
func (s *SQLiteStore) ListItemSummaries(ctx context.Context) ([]*models.ItemSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.name, i.price, i.owner_id, i.created_at, i.deleted_at,
		       COALESCE(u.name, ''),
		       (SELECT COUNT(*) FROM purchases p WHERE p.item_id = i.id AND p.deleted_at IS NULL)
		FROM items i
		LEFT JOIN users u ON u.id = i.owner_id
		WHERE i.deleted_at IS NULL
		ORDER BY i.created_at, i.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list item summaries: %w", err)
	}
	defer rows.Close()

	var summaries []*models.ItemSummary
	for rows.Next() {
		sum := &models.ItemSummary{}
		var owner sql.NullString
		var deletedAt sql.NullInt64
		if err := rows.Scan(
			&sum.ID, &sum.Name, &sum.Price, &owner, &sum.CreatedAt, &deletedAt,
			&sum.OwnerName, &sum.Sales,
		); err != nil {
			return nil, fmt.Errorf("failed to scan item summary: %w", err)
		}
		sum.OwnerID = owner.String
		sum.DeletedAt = nullableInt(deletedAt)
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate item summaries: %w", err)
	}
	return summaries, nil
}

// SoftDeleteItem marks an active item as deleted.
func (s *SQLiteStore) SoftDeleteItem(ctx context.Context, id string, at int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE items SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL", at, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
