package models

// Item is a catalog entry that can be purchased.
type Item struct {
	// ID is the unique identifier for the item (UUID format).
	ID string

	// Name is the display name (e.g., "コーヒー").
	Name string

	// Price is the price in yen. Never negative.
	Price int64

	// OwnerID is the admin who added the item. Empty for items whose owner
	// is unknown.
	OwnerID string

	// CreatedAt is when the item was added, in Unix milliseconds.
	CreatedAt int64

	// DeletedAt is when the item was soft-deleted, nil while active.
	DeletedAt *int64
}

// Active reports whether the item is still on sale.
func (i *Item) Active() bool {
	return i.DeletedAt == nil
}

// ItemSummary is an item as listed in the admin catalog.
type ItemSummary struct {
	Item

	// OwnerName is the nickname of the owner, empty if unknown.
	OwnerName string

	// Sales is the number of non-deleted purchases of the item.
	Sales int
}
