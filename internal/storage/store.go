// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/zbuppan/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// PurchaseQuery narrows ListPurchaseDetails. Zero values mean no restriction.
type PurchaseQuery struct {
	UserID string

	// From and To bound the creation time in Unix milliseconds as [From, To).
	From int64
	To   int64
}

// Store defines the interface for shop storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	// CreateUser persists a new user. The ID and CreatedAt must already be set.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail returns ErrNotFound if no user has that email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID returns ErrNotFound if the user does not exist.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// UpdateUserName sets the user's nickname.
	UpdateUserName(ctx context.Context, id, name string) error

	// ListUsers returns every user in registration order.
	ListUsers(ctx context.Context) ([]*models.User, error)

	// CreateItem persists a new catalog item, assigning ID and CreatedAt if unset.
	CreateItem(ctx context.Context, item *models.Item) error

	// GetItem returns the item including soft-deleted ones.
	GetItem(ctx context.Context, id string) (*models.Item, error)

	// ListItems returns items ordered by creation time.
	ListItems(ctx context.Context, includeDeleted bool) ([]*models.Item, error)

	// ListItemSummaries returns active items with owner names and sale counts.
	ListItemSummaries(ctx context.Context) ([]*models.ItemSummary, error)

	// SoftDeleteItem marks an active item as deleted at the given time.
	// Returns ErrNotFound if no active item has that ID.
	SoftDeleteItem(ctx context.Context, id string, at int64) error

	// CreatePurchase persists a new purchase, assigning ID and CreatedAt if unset.
	CreatePurchase(ctx context.Context, purchase *models.Purchase) error

	// ListPurchaseDetails returns non-deleted purchases joined with their item
	// and buyer, oldest first.
	ListPurchaseDetails(ctx context.Context, q PurchaseQuery) ([]*models.PurchaseDetail, error)

	// Close releases any resources held by the store.
	Close() error
}
