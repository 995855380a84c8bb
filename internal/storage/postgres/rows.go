package postgres

import (
	"time"

	"gorm.io/gorm"

	"github.com/mmynk/zbuppan/internal/models"
)

type userRow struct {
	ID           string `gorm:"primaryKey;type:text"`
	Email        string `gorm:"type:text;not null;uniqueIndex"`
	Name         string `gorm:"type:text;not null;default:''"`
	PasswordHash string `gorm:"type:text;not null"`
	Admin        bool   `gorm:"not null;default:false"`
	CreatedAt    int64  `gorm:"autoCreateTime:milli;not null;index"`
}

func (userRow) TableName() string { return "users" }

func (r *userRow) toModel() *models.User {
	return &models.User{
		ID:           r.ID,
		Email:        r.Email,
		Name:         r.Name,
		PasswordHash: r.PasswordHash,
		Admin:        r.Admin,
		CreatedAt:    r.CreatedAt,
	}
}

type itemRow struct {
	ID        string         `gorm:"primaryKey;type:text"`
	Name      string         `gorm:"type:text;not null"`
	Price     int64          `gorm:"not null;check:price >= 0"`
	OwnerID   *string        `gorm:"type:text;index"`
	CreatedAt int64          `gorm:"autoCreateTime:milli;not null;index"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (itemRow) TableName() string { return "items" }

func (r *itemRow) toModel() *models.Item {
	item := &models.Item{
		ID:        r.ID,
		Name:      r.Name,
		Price:     r.Price,
		CreatedAt: r.CreatedAt,
		DeletedAt: fromDeletedAt(r.DeletedAt),
	}
	if r.OwnerID != nil {
		item.OwnerID = *r.OwnerID
	}
	return item
}

type purchaseRow struct {
	ID        string         `gorm:"primaryKey;type:text"`
	UserID    string         `gorm:"type:text;not null;index"`
	ItemID    string         `gorm:"type:text;not null;index"`
	CreatedAt int64          `gorm:"autoCreateTime:milli;not null;index"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (purchaseRow) TableName() string { return "purchases" }

// detailRow is the scan target of the purchase join.
type detailRow struct {
	ID            string
	CreatedAt     int64
	ItemID        string
	ItemName      string
	ItemPrice     int64
	ItemOwnerID   *string
	ItemCreatedAt int64
	ItemDeletedAt *time.Time
	UserID        string
	UserName      string
}

func (r *detailRow) toModel() *models.PurchaseDetail {
	d := &models.PurchaseDetail{
		ID:        r.ID,
		CreatedAt: r.CreatedAt,
		Item: models.Item{
			ID:        r.ItemID,
			Name:      r.ItemName,
			Price:     r.ItemPrice,
			CreatedAt: r.ItemCreatedAt,
		},
		UserID:   r.UserID,
		UserName: r.UserName,
	}
	if r.ItemOwnerID != nil {
		d.Item.OwnerID = *r.ItemOwnerID
	}
	if r.ItemDeletedAt != nil {
		ms := r.ItemDeletedAt.UnixMilli()
		d.Item.DeletedAt = &ms
	}
	return d
}

// summaryRow is the scan target of the catalog summary query.
type summaryRow struct {
	ID        string
	Name      string
	Price     int64
	OwnerID   *string
	CreatedAt int64
	OwnerName string
	Sales     int
}

func toDeletedAt(ms *int64) gorm.DeletedAt {
	if ms == nil {
		return gorm.DeletedAt{}
	}
	return gorm.DeletedAt{Time: time.UnixMilli(*ms), Valid: true}
}

func fromDeletedAt(d gorm.DeletedAt) *int64 {
	if !d.Valid {
		return nil
	}
	ms := d.Time.UnixMilli()
	return &ms
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
