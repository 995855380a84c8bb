package api

// GetPublicTimelineRequest selects rows of the anonymized timeline. Empty
// fields and "all" select everything; Date is a "YYYY-MM" month, User an
// anonymous name of the current month, Item an item ID.
type GetPublicTimelineRequest struct {
	Date string `json:"date,omitempty"`
	User string `json:"user,omitempty"`
	Item string `json:"item,omitempty"`
}

type GetPublicTimelineResponse struct {
	Rows      []TimelineRow `json:"rows"`
	Purchases int           `json:"purchases"`
	Options   FilterOptions `json:"options"`
}

// GetAdminTimelineRequest selects rows. Empty fields and "all" select
// everything; Date is a "YYYY-MM" month, User a user ID, Item an item ID.
type GetAdminTimelineRequest struct {
	Date string `json:"date,omitempty"`
	User string `json:"user,omitempty"`
	Item string `json:"item,omitempty"`
}

// FilterOptions lists the values a timeline can be filtered by, computed over
// all purchases rather than the filtered ones.
type FilterOptions struct {
	Months []string `json:"months"`
	Users  []Buyer  `json:"users"`
	Items  []Item   `json:"items"`
}

type GetAdminTimelineResponse struct {
	Rows      []TimelineRow `json:"rows"`
	Purchases int           `json:"purchases"`
	Sales     int64         `json:"sales"`
	Options   FilterOptions `json:"options"`
}
