package service

import (
	"errors"
	"slices"
	"strconv"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/zbuppan/internal/models"
	"github.com/mmynk/zbuppan/internal/storage"
	"github.com/mmynk/zbuppan/internal/timeline"
	"github.com/mmynk/zbuppan/pkg/api"
)

// Settings is the part of the configuration services read per request.
// *config.Config satisfies it; reloads take effect on the next call.
type Settings interface {
	NewAssigner() *timeline.Assigner
	GetLocation() *time.Location
}

func toAPIUser(u *models.User) *api.User {
	return &api.User{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Admin:     u.Admin,
		CreatedAt: time.UnixMilli(u.CreatedAt),
	}
}

func toAPIItem(item models.Item) api.Item {
	return fromItemInfo(timeline.NormalizeItem(item))
}

func fromItemInfo(info timeline.ItemInfo) api.Item {
	return api.Item{
		ID:        info.ID,
		Name:      info.Name,
		Price:     info.Price,
		CreatedAt: info.CreatedAt,
		DeletedAt: info.DeletedAt,
	}
}

func toAPIItems(items []*models.Item) []api.Item {
	out := make([]api.Item, 0, len(items))
	for _, item := range items {
		out = append(out, toAPIItem(*item))
	}
	return out
}

// toAPIPurchases converts a user's purchases, newest first, and sums them.
func toAPIPurchases(details []*models.PurchaseDetail) ([]api.Purchase, int64) {
	out := make([]api.Purchase, 0, len(details))
	var total int64
	for _, d := range slices.Backward(details) {
		out = append(out, api.Purchase{
			ID:        d.ID,
			CreatedAt: time.UnixMilli(d.CreatedAt),
			Item:      toAPIItem(d.Item),
		})
		total += d.Item.Price
	}
	return out, total
}

// toAPIRows renders a feed. Buyer IDs are included only when withIDs is set.
func toAPIRows(feed timeline.Feed, withIDs bool) []api.TimelineRow {
	rows := make([]api.TimelineRow, 0, len(feed.Rows))
	for _, r := range feed.Rows {
		switch r.Kind {
		case timeline.RowLifecycle:
			kind := api.RowKindCreate
			if r.Lifecycle.Kind == timeline.LifecycleDelete {
				kind = api.RowKindDelete
			}
			rows = append(rows, api.TimelineRow{
				Kind:   kind,
				Marker: r.Lifecycle.Kind.Glyph(),
				At:     r.Lifecycle.At,
				Item:   fromItemInfo(r.Lifecycle.Item),
			})
		default:
			buyer := &api.Buyer{Name: r.Purchase.Record.User.Name}
			if withIDs {
				buyer.ID = r.Purchase.Record.User.ID
			}
			rows = append(rows, api.TimelineRow{
				Kind:   api.RowKindPurchase,
				Number: r.Purchase.Number,
				Marker: strconv.Itoa(r.Purchase.Number),
				At:     r.Purchase.Record.CreatedAt,
				Item:   fromItemInfo(r.Purchase.Record.Item),
				Buyer:  buyer,
			})
		}
	}
	return rows
}

// filterOptions lists what a timeline can be narrowed to, over all records.
func filterOptions(records []timeline.Record, key timeline.UserKey, loc *time.Location) api.FilterOptions {
	opts := api.FilterOptions{
		Months: []string{},
		Users:  []api.Buyer{},
		Items:  []api.Item{},
	}
	if oldest, newest, ok := timeline.PurchaseSpan(records); ok {
		months := timeline.Months(oldest, newest, loc)
		for _, m := range slices.Backward(months) {
			opts.Months = append(opts.Months, timeline.MonthToken(m, loc))
		}
	}
	for _, u := range timeline.DistinctUsers(records, key) {
		b := api.Buyer{Name: u.Name}
		if key == timeline.ByID {
			b.ID = u.ID
		}
		opts.Users = append(opts.Users, b)
	}
	for _, item := range timeline.DistinctItems(records) {
		opts.Items = append(opts.Items, fromItemInfo(item))
	}
	return opts
}

func monthRef(t time.Time) api.MonthRef {
	return api.MonthRef{Year: int32(t.Year()), Month: int32(t.Month())}
}

func monthStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
}

// monthQuery returns the purchase query for userID over [start, start+1 month).
func monthQuery(userID string, start time.Time) storage.PurchaseQuery {
	return storage.PurchaseQuery{
		UserID: userID,
		From:   start.UnixMilli(),
		To:     start.AddDate(0, 1, 0).UnixMilli(),
	}
}

var errInvalidMonth = errors.New("month must be between 1 and 12")

// requestedMonth resolves a year/month pair. Both zero selects fallback.
func requestedMonth(year, month int32, fallback time.Time, loc *time.Location) (time.Time, error) {
	if year == 0 && month == 0 {
		return monthStart(fallback, loc), nil
	}
	if month < 1 || month > 12 {
		return time.Time{}, connect.NewError(connect.CodeInvalidArgument, errInvalidMonth)
	}
	if year < 1 {
		return time.Time{}, connect.NewError(connect.CodeInvalidArgument, errors.New("year must be positive"))
	}
	return time.Date(int(year), time.Month(month), 1, 0, 0, 0, 0, loc), nil
}

// storageError maps storage failures to connect errors.
func storageError(err error, op string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return connect.NewError(connect.CodeNotFound, err)
	}
	return connect.NewError(connect.CodeInternal, errors.New("failed to "+op))
}
