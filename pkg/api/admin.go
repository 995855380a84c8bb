package api

type AdminListItemsRequest struct{}

type AdminListItemsResponse struct {
	Items []ItemSummary `json:"items"`
}

type CreateItemRequest struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

type CreateItemResponse struct {
	Item *Item `json:"item"`
}

type DeleteItemRequest struct {
	ItemID string `json:"itemId"`
}

type DeleteItemResponse struct{}

type NotifyRequest struct {
	Text string `json:"text"`
}

type NotifyResponse struct{}

type ListUsersRequest struct{}

// UserSummary is a user in the admin list together with this month's
// anonymous name.
type UserSummary struct {
	User     User   `json:"user"`
	AnonName string `json:"anonName"`
}

type ListUsersResponse struct {
	Users []UserSummary `json:"users"`
}

// GetUserHistoryRequest selects a user's month. Zero Year and Month pick the
// default: last month before the 15th, this month from the 15th on.
type GetUserHistoryRequest struct {
	UserID string `json:"userId"`
	Year   int32  `json:"year"`
	Month  int32  `json:"month"`
}

type GetUserHistoryResponse struct {
	User      *User      `json:"user"`
	Month     MonthRef   `json:"month"`
	Total     int64      `json:"total"`
	Purchases []Purchase `json:"purchases"`
}

// GetSettlementRequest selects the month to bill. Zero Year and Month pick
// the same default as GetUserHistoryRequest.
type GetSettlementRequest struct {
	Year  int32 `json:"year"`
	Month int32 `json:"month"`
}

// SettlementLine is one item on a statement.
type SettlementLine struct {
	Item     Item  `json:"item"`
	Quantity int   `json:"quantity"`
	Subtotal int64 `json:"subtotal"`
}

// Statement is what one user owes for the month.
type Statement struct {
	User      Buyer            `json:"user"`
	Lines     []SettlementLine `json:"lines"`
	Purchases int              `json:"purchases"`
	Total     int64            `json:"total"`
}

type GetSettlementResponse struct {
	Month      MonthRef    `json:"month"`
	Statements []Statement `json:"statements"`
	Total      int64       `json:"total"`
}
