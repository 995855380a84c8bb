package timeline

import (
	"slices"
	"time"
)

// LifecycleKind distinguishes item lifecycle markers.
type LifecycleKind string

const (
	LifecycleCreate LifecycleKind = "create"
	LifecycleDelete LifecycleKind = "delete"
)

// Glyph is the marker shown in place of a row number.
func (k LifecycleKind) Glyph() string {
	if k == LifecycleDelete {
		return "💀"
	}
	return "🐣"
}

// RowKind tags the variant held by a Row.
type RowKind int

const (
	RowPurchase RowKind = iota
	RowLifecycle
)

// PurchaseRow is a purchase in the feed.
type PurchaseRow struct {
	// Number counts purchases from the bottom of the feed: the newest of P
	// purchases is P, the oldest is 1. Lifecycle rows do not shift it.
	Number int
	Record Record
}

// LifecycleRow marks an item being added to or removed from the catalog.
type LifecycleRow struct {
	Kind LifecycleKind
	At   time.Time
	Item ItemInfo
}

// Row is one entry in the feed. Exactly one of Purchase and Lifecycle is set,
// as indicated by Kind.
type Row struct {
	Kind      RowKind
	Purchase  *PurchaseRow
	Lifecycle *LifecycleRow
}

// At is the row's timestamp.
func (r Row) At() time.Time {
	if r.Kind == RowLifecycle {
		return r.Lifecycle.At
	}
	return r.Purchase.Record.CreatedAt
}

// Feed is a merged timeline, newest first.
type Feed struct {
	Rows []Row

	// Purchases is the number of purchase rows.
	Purchases int
}

// Sales sums the price of every purchase in the feed.
func (f Feed) Sales() int64 {
	var total int64
	for _, r := range f.Rows {
		if r.Kind == RowPurchase {
			total += r.Purchase.Record.Item.Price
		}
	}
	return total
}

// LifecycleEvents derives create/delete markers for the item selected by
// itemFilter. Lifecycle markers only make sense with one item in focus, so
// All (or an unknown ID) yields none.
func LifecycleEvents(items []ItemInfo, itemFilter string) []LifecycleRow {
	var events []LifecycleRow
	for _, item := range items {
		if item.ID != itemFilter {
			continue
		}
		events = append(events, LifecycleRow{Kind: LifecycleCreate, At: item.CreatedAt, Item: item})
		if item.DeletedAt != nil {
			events = append(events, LifecycleRow{Kind: LifecycleDelete, At: *item.DeletedAt, Item: item})
		}
	}
	return events
}

// Build merges already-filtered purchases with the lifecycle markers of the
// selected item and numbers the purchase rows. Rows with equal timestamps keep
// their input order, purchases before lifecycle markers.
func Build(purchases []Record, items []ItemInfo, itemFilter string) Feed {
	events := LifecycleEvents(items, itemFilter)

	rows := make([]Row, 0, len(purchases)+len(events))
	for _, p := range purchases {
		rows = append(rows, Row{Kind: RowPurchase, Purchase: &PurchaseRow{Record: p}})
	}
	for i := range events {
		rows = append(rows, Row{Kind: RowLifecycle, Lifecycle: &events[i]})
	}

	slices.SortStableFunc(rows, func(a, b Row) int {
		return b.At().Compare(a.At())
	})

	total := len(purchases)
	lifecycleBefore := 0
	for i, r := range rows {
		if r.Kind == RowLifecycle {
			lifecycleBefore++
			continue
		}
		r.Purchase.Number = total - i + lifecycleBefore
	}

	return Feed{Rows: rows, Purchases: total}
}
