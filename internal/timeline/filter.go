package timeline

import (
	"slices"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// All is the filter value meaning "do not filter on this dimension".
const All = "all"

// MonthLayout is the layout of month filter tokens ("2024-03").
const MonthLayout = "2006-01"

// UserKey selects which buyer field the user filter compares against.
type UserKey int

const (
	// ByID matches on user ID. Admin views use it.
	ByID UserKey = iota
	// ByName matches on display name. Public views use it since they expose
	// no IDs.
	ByName
)

func (k UserKey) of(u UserInfo) string {
	if k == ByName {
		return u.Name
	}
	return u.ID
}

// Filter is a selection over the purchase stream. Each field is either All or
// a value to match; the three predicates are combined with AND.
type Filter struct {
	Date string
	User string
	Item string

	UserKey UserKey
}

// NoFilter selects everything.
func NoFilter(key UserKey) Filter {
	return Filter{Date: All, User: All, Item: All, UserKey: key}
}

// MonthRange returns [start, next) for a month token in loc. ok is false when
// the token does not parse.
func MonthRange(token string, loc *time.Location) (start, next time.Time, ok bool) {
	t, err := time.ParseInLocation(MonthLayout, token, loc)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0), true
}

// Apply returns the records passing every predicate, preserving order. An
// unrecognized value matches nothing. Empty filter values are treated as All.
func (f Filter) Apply(records []Record, loc *time.Location) []Record {
	matchDate := func(Record) bool { return true }
	if f.Date != All && f.Date != "" {
		start, next, ok := MonthRange(f.Date, loc)
		matchDate = func(r Record) bool {
			return ok && !r.CreatedAt.Before(start) && r.CreatedAt.Before(next)
		}
	}

	out := make([]Record, 0, len(records))
	for _, r := range records {
		if !matchDate(r) {
			continue
		}
		if f.User != All && f.User != "" && f.UserKey.of(r.User) != f.User {
			continue
		}
		if f.Item != All && f.Item != "" && r.Item.ID != f.Item {
			continue
		}
		out = append(out, r)
	}
	return out
}

// DistinctUsers lists buyers in order of first appearance, deduplicated by
// the same key the user filter matches on.
func DistinctUsers(records []Record, key UserKey) []UserInfo {
	seen := make(map[string]bool)
	var users []UserInfo
	for _, r := range records {
		k := key.of(r.User)
		if seen[k] {
			continue
		}
		seen[k] = true
		users = append(users, r.User)
	}
	return users
}

// DistinctItems lists purchased items deduplicated by ID, keeping the first
// occurrence, sorted by name in root collation order. Kana sort by reading
// regardless of script and the long vowel mark sorts as an ordinary letter.
// The Japanese tailoring is avoided because it moves names containing ー
// ahead of everything else.
func DistinctItems(records []Record) []ItemInfo {
	seen := make(map[string]bool)
	var items []ItemInfo
	for _, r := range records {
		if seen[r.Item.ID] {
			continue
		}
		seen[r.Item.ID] = true
		items = append(items, r.Item)
	}

	c := collate.New(language.Und)
	slices.SortStableFunc(items, func(a, b ItemInfo) int {
		return c.CompareString(a.Name, b.Name)
	})
	return items
}

// Months lists the start of every month from oldest's month through newest's
// month, in loc.
func Months(oldest, newest time.Time, loc *time.Location) []time.Time {
	o := oldest.In(loc)
	n := newest.In(loc)
	current := time.Date(o.Year(), o.Month(), 1, 0, 0, 0, 0, loc)
	end := time.Date(n.Year(), n.Month(), 1, 0, 0, 0, 0, loc).AddDate(0, 1, 0)

	var months []time.Time
	for current.Before(end) {
		months = append(months, current)
		current = current.AddDate(0, 1, 0)
	}
	return months
}

// MonthToken renders the filter token for the month containing t.
func MonthToken(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(MonthLayout)
}

// PurchaseSpan returns the oldest and newest purchase times. ok is false for
// an empty list.
func PurchaseSpan(records []Record) (oldest, newest time.Time, ok bool) {
	if len(records) == 0 {
		return time.Time{}, time.Time{}, false
	}
	oldest, newest = records[0].CreatedAt, records[0].CreatedAt
	for _, r := range records[1:] {
		if r.CreatedAt.Before(oldest) {
			oldest = r.CreatedAt
		}
		if r.CreatedAt.After(newest) {
			newest = r.CreatedAt
		}
	}
	return oldest, newest, true
}
