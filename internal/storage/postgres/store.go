package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mmynk/zbuppan/internal/models"
	"github.com/mmynk/zbuppan/internal/storage"
)

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.ErrNotFound
	}
	return err
}

// CreateUser inserts a new user.
func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	row := &userRow{
		ID:           user.ID,
		Email:        user.Email,
		Name:         user.Name,
		PasswordHash: user.PasswordHash,
		Admin:        user.Admin,
		CreatedAt:    user.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.CreatedAt = row.CreatedAt
	return nil
}

// GetUserByEmail retrieves a user by their email address.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&row).Error; err != nil {
		if err = notFound(err); errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return row.toModel(), nil
}

// GetUserByID retrieves a user by their ID.
func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if err = notFound(err); errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return row.toModel(), nil
}

// UpdateUserName sets the user's nickname.
func (s *PostgresStore) UpdateUserName(ctx context.Context, id, name string) error {
	res := s.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", id).Update("name", name)
	if res.Error != nil {
		return fmt.Errorf("failed to update user name: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListUsers returns all users in registration order.
func (s *PostgresStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	var rows []userRow
	if err := s.db.WithContext(ctx).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	users := make([]*models.User, len(rows))
	for i := range rows {
		users[i] = rows[i].toModel()
	}
	return users, nil
}

// CreateItem persists a new catalog item.
func (s *PostgresStore) CreateItem(ctx context.Context, item *models.Item) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	row := &itemRow{
		ID:        item.ID,
		Name:      item.Name,
		Price:     item.Price,
		OwnerID:   optionalString(item.OwnerID),
		CreatedAt: item.CreatedAt,
		DeletedAt: toDeletedAt(item.DeletedAt),
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	item.CreatedAt = row.CreatedAt
	return nil
}

// GetItem retrieves an item by ID, including soft-deleted items.
func (s *PostgresStore) GetItem(ctx context.Context, id string) (*models.Item, error) {
	var row itemRow
	if err := s.db.WithContext(ctx).Unscoped().Where("id = ?", id).First(&row).Error; err != nil {
		if err = notFound(err); errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return row.toModel(), nil
}

// ListItems returns items in creation order.
func (s *PostgresStore) ListItems(ctx context.Context, includeDeleted bool) ([]*models.Item, error) {
	q := s.db.WithContext(ctx)
	if includeDeleted {
		q = q.Unscoped()
	}

	var rows []itemRow
	if err := q.Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	items := make([]*models.Item, len(rows))
	for i := range rows {
		items[i] = rows[i].toModel()
	}
	return items, nil
}

// ListItemSummaries returns active items with their owner's name and the
// number of non-deleted purchases.
func (s *PostgresStore) ListItemSummaries(ctx context.Context) ([]*models.ItemSummary, error) {
	var rows []summaryRow
	err := s.db.WithContext(ctx).Raw(`
		SELECT i.id, i.name, i.price, i.owner_id, i.created_at,
		       COALESCE(u.name, '') AS owner_name,
		       (SELECT COUNT(*) FROM purchases p WHERE p.item_id = i.id AND p.deleted_at IS NULL) AS sales
		FROM items i
		LEFT JOIN users u ON u.id = i.owner_id
		WHERE i.deleted_at IS NULL
		ORDER BY i.created_at, i.id
	`).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list item summaries: %w", err)
	}

	summaries := make([]*models.ItemSummary, len(rows))
	for i, r := range rows {
		sum := &models.ItemSummary{
			Item: models.Item{
				ID:        r.ID,
				Name:      r.Name,
				Price:     r.Price,
				CreatedAt: r.CreatedAt,
			},
			OwnerName: r.OwnerName,
			Sales:     r.Sales,
		}
		if r.OwnerID != nil {
			sum.OwnerID = *r.OwnerID
		}
		summaries[i] = sum
	}
	return summaries, nil
}

// SoftDeleteItem marks an active item as deleted at the given time.
func (s *PostgresStore) SoftDeleteItem(ctx context.Context, id string, at int64) error {
	// Model on a soft-delete row scopes the update to active items.
	res := s.db.WithContext(ctx).Model(&itemRow{}).Where("id = ?", id).Update("deleted_at", time.UnixMilli(at))
	if res.Error != nil {
		return fmt.Errorf("failed to delete item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// CreatePurchase persists a new purchase.
func (s *PostgresStore) CreatePurchase(ctx context.Context, purchase *models.Purchase) error {
	if purchase.ID == "" {
		purchase.ID = uuid.New().String()
	}
	row := &purchaseRow{
		ID:        purchase.ID,
		UserID:    purchase.UserID,
		ItemID:    purchase.ItemID,
		CreatedAt: purchase.CreatedAt,
		DeletedAt: toDeletedAt(purchase.DeletedAt),
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to insert purchase: %w", err)
	}
	purchase.CreatedAt = row.CreatedAt
	return nil
}

// ListPurchaseDetails returns purchases joined with item and buyer, oldest first.
func (s *PostgresStore) ListPurchaseDetails(ctx context.Context, q storage.PurchaseQuery) ([]*models.PurchaseDetail, error) {
	tx := s.db.WithContext(ctx).
		Table("purchases AS p").
		Select(`p.id, p.created_at,
			i.id AS item_id, i.name AS item_name, i.price AS item_price, i.owner_id AS item_owner_id,
			i.created_at AS item_created_at, i.deleted_at AS item_deleted_at,
			u.id AS user_id, u.name AS user_name`).
		Joins("JOIN items i ON i.id = p.item_id").
		Joins("JOIN users u ON u.id = p.user_id").
		Where("p.deleted_at IS NULL")

	if q.UserID != "" {
		tx = tx.Where("p.user_id = ?", q.UserID)
	}
	if q.From != 0 {
		tx = tx.Where("p.created_at >= ?", q.From)
	}
	if q.To != 0 {
		tx = tx.Where("p.created_at < ?", q.To)
	}

	var rows []detailRow
	if err := tx.Order("p.created_at, p.id").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}

	details := make([]*models.PurchaseDetail, len(rows))
	for i := range rows {
		details[i] = rows[i].toModel()
	}
	return details, nil
}
