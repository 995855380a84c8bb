package api

type ListItemsRequest struct{}

type ListItemsResponse struct {
	Items []Item `json:"items"`
}

// PurchaseRequest buys one item. Send an Idempotency-Key header to make
// retries safe.
type PurchaseRequest struct {
	ItemID string `json:"itemId"`
}

type PurchaseResponse struct {
	Purchase *Purchase `json:"purchase"`

	// Replayed is set when the response was served from an earlier request
	// with the same idempotency key.
	Replayed bool `json:"replayed,omitempty"`
}

type GetHomeRequest struct{}

// GetHomeResponse is the signed-in landing view.
type GetHomeResponse struct {
	AnonName  string     `json:"anonName"`
	Month     MonthRef   `json:"month"`
	Total     int64      `json:"total"`
	Purchases []Purchase `json:"purchases"`
	Items     []Item     `json:"items"`
}

type GetHistoryRequest struct {
	Year  int32 `json:"year"`
	Month int32 `json:"month"`
}

type GetHistoryResponse struct {
	Month     MonthRef   `json:"month"`
	Total     int64      `json:"total"`
	Purchases []Purchase `json:"purchases"`
	Prev      MonthRef   `json:"prev"`
	Next      MonthRef   `json:"next"`
}
