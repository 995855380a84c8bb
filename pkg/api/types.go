package api

import "time"

// User is an account as seen by its owner or an admin.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Admin     bool      `json:"admin"`
	CreatedAt time.Time `json:"createdAt"`
}

// Item is a catalog entry.
type Item struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Price     int64      `json:"price"`
	CreatedAt time.Time  `json:"createdAt,omitzero"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// ItemSummary is an item in the admin catalog.
type ItemSummary struct {
	Item      Item   `json:"item"`
	OwnerName string `json:"ownerName"`
	Sales     int    `json:"sales"`
}

// Purchase is a purchase in a user's own history.
type Purchase struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Item      Item      `json:"item"`
}

// Buyer identifies who bought something. Public views leave ID empty.
type Buyer struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// MonthRef names a calendar month.
type MonthRef struct {
	Year  int32 `json:"year"`
	Month int32 `json:"month"`
}

// Row kinds in a timeline.
const (
	RowKindPurchase = "purchase"
	RowKindCreate   = "create"
	RowKindDelete   = "delete"
)

// TimelineRow is one entry of a timeline, newest first.
type TimelineRow struct {
	Kind string `json:"kind"`

	// Number counts purchases from the oldest (1). Zero on lifecycle rows.
	Number int `json:"number,omitempty"`

	// Marker is what the row shows in its first column: the number for
	// purchases, a glyph for lifecycle rows.
	Marker string `json:"marker"`

	At    time.Time `json:"at"`
	Item  Item      `json:"item"`
	Buyer *Buyer    `json:"buyer,omitempty"`
}
