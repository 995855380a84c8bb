package timeline

import (
	"time"

	"github.com/mmynk/zbuppan/internal/models"
)

// ItemInfo is the canonical item shape used by the timeline.
type ItemInfo struct {
	ID        string
	Name      string
	Price     int64
	CreatedAt time.Time
	// DeletedAt is nil while the item is active, including when the source
	// query did not load lifecycle timestamps at all.
	DeletedAt *time.Time
}

// UserInfo identifies the buyer of a purchase. Admin views carry both fields;
// public views carry only the display name.
type UserInfo struct {
	ID   string
	Name string
}

// Record is a purchase normalized for filtering and aggregation.
type Record struct {
	ID        string
	CreatedAt time.Time
	Item      ItemInfo
	User      UserInfo
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}

func optionalMillis(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := fromMillis(*ms)
	return &t
}

// NormalizeItem converts a stored item.
func NormalizeItem(item models.Item) ItemInfo {
	info := ItemInfo{
		ID:        item.ID,
		Name:      item.Name,
		Price:     item.Price,
		DeletedAt: optionalMillis(item.DeletedAt),
	}
	if item.CreatedAt != 0 {
		info.CreatedAt = fromMillis(item.CreatedAt)
	}
	return info
}

// Normalize converts one joined purchase row.
func Normalize(d *models.PurchaseDetail) Record {
	return Record{
		ID:        d.ID,
		CreatedAt: fromMillis(d.CreatedAt),
		Item:      NormalizeItem(d.Item),
		User: UserInfo{
			ID:   d.UserID,
			Name: d.UserName,
		},
	}
}

// NormalizeAll converts rows in order.
func NormalizeAll(details []*models.PurchaseDetail) []Record {
	records := make([]Record, 0, len(details))
	for _, d := range details {
		records = append(records, Normalize(d))
	}
	return records
}

// WithDisplayNames returns a copy of records projected for public views: the
// buyer is replaced by the assigned anonymous name and the ID is dropped.
// Buyers missing from names are left with an empty name.
func WithDisplayNames(records []Record, names Names) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		r.User = UserInfo{Name: names[r.User.ID]}
		out[i] = r
	}
	return out
}
