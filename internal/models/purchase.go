package models

// Purchase records one user buying one item.
type Purchase struct {
	// ID is the unique identifier for the purchase (UUID format).
	ID string

	// UserID is the buyer.
	UserID string

	// ItemID references the purchased item. The item may be soft-deleted later.
	ItemID string

	// CreatedAt is the purchase time in Unix milliseconds.
	CreatedAt int64

	// DeletedAt is set when the purchase is voided. Voided purchases are
	// excluded from every view.
	DeletedAt *int64
}

// PurchaseDetail is a purchase joined with the item and the buyer.
//
// Depending on the query some parts are left empty: public views never load
// the buyer's name, and some item projections omit lifecycle timestamps
// (Item.CreatedAt zero, Item.DeletedAt nil).
type PurchaseDetail struct {
	ID        string
	CreatedAt int64
	Item      Item
	UserID    string
	UserName  string
}
