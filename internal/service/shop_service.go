package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/zbuppan/internal/auth"
	"github.com/mmynk/zbuppan/internal/idempotency"
	"github.com/mmynk/zbuppan/internal/metrics"
	"github.com/mmynk/zbuppan/internal/middleware"
	"github.com/mmynk/zbuppan/internal/models"
	"github.com/mmynk/zbuppan/internal/notify"
	"github.com/mmynk/zbuppan/internal/storage"
	"github.com/mmynk/zbuppan/pkg/api"
	"github.com/mmynk/zbuppan/pkg/api/apiconnect"
)

var (
	errItemDeleted      = errors.New("item is no longer sold")
	errPurchaseInFlight = errors.New("a purchase with this idempotency key is in progress")
)

// ShopService implements the signed-in shopping views.
type ShopService struct {
	store    storage.Store
	keys     *idempotency.Store
	notifier notify.Notifier
	settings Settings
	metrics  *metrics.Metrics
	logger   *slog.Logger

	now func() time.Time
}

// NewShopService creates a shop service. keys may be nil, in which case
// Idempotency-Key headers are ignored.
func NewShopService(store storage.Store, keys *idempotency.Store, notifier notify.Notifier, settings Settings, m *metrics.Metrics, logger *slog.Logger) *ShopService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &ShopService{
		store:    store,
		keys:     keys,
		notifier: notifier,
		settings: settings,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// ListItems returns the active catalog.
func (s *ShopService) ListItems(ctx context.Context, req *connect.Request[api.ListItemsRequest]) (*connect.Response[api.ListItemsResponse], error) {
	items, err := s.store.ListItems(ctx, false)
	if err != nil {
		s.logger.Error("Failed to list items", "error", err)
		return nil, storageError(err, "list items")
	}
	return connect.NewResponse(&api.ListItemsResponse{Items: toAPIItems(items)}), nil
}

// Purchase buys one active item for the signed-in user. With an
// Idempotency-Key header a retried request returns the first response
// instead of buying again.
func (s *ShopService) Purchase(ctx context.Context, req *connect.Request[api.PurchaseRequest]) (*connect.Response[api.PurchaseResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	if req.Msg.ItemID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("item_id is required"))
	}

	key := req.Header().Get(apiconnect.IdempotencyKeyHeader)
	if key == "" || s.keys == nil {
		resp, err := s.purchase(ctx, userID, req.Msg.ItemID)
		if err != nil {
			return nil, err
		}
		return connect.NewResponse(resp), nil
	}

	// A retry of a finished purchase is answered from a read transaction.
	done, err := s.keys.Get(userID, key)
	switch {
	case err == nil && done.State == idempotency.StateDone:
		s.metrics.ObserveReplay()
		return connect.NewResponse(replay(done)), nil
	case err != nil && !errors.Is(err, idempotency.ErrNotFound):
		s.logger.Error("Failed to look up idempotency key", "user_id", userID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	entry, claimed, err := s.keys.Begin(userID, key)
	if err != nil {
		s.logger.Error("Failed to claim idempotency key", "user_id", userID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if !claimed {
		if entry.State != idempotency.StateDone {
			return nil, connect.NewError(connect.CodeAborted, errPurchaseInFlight)
		}
		s.metrics.ObserveReplay()
		return connect.NewResponse(replay(entry)), nil
	}

	resp, err := s.purchase(ctx, userID, req.Msg.ItemID)
	if err != nil {
		if rerr := s.keys.Release(userID, key); rerr != nil {
			s.logger.Error("Failed to release idempotency key", "user_id", userID, "error", rerr)
		}
		return nil, err
	}

	data, err := json.Marshal(resp)
	if err == nil {
		err = s.keys.Complete(userID, key, resp.Purchase.ID, data)
	}
	if err != nil {
		// The purchase exists; a retry will see the pending claim until it expires.
		s.logger.Error("Failed to record idempotency key", "user_id", userID, "purchase_id", resp.Purchase.ID, "error", err)
	}
	return connect.NewResponse(resp), nil
}

func replay(entry *idempotency.Entry) *api.PurchaseResponse {
	resp := &api.PurchaseResponse{}
	if len(entry.Response) == 0 || json.Unmarshal(entry.Response, resp) != nil || resp.Purchase == nil {
		resp = &api.PurchaseResponse{Purchase: &api.Purchase{ID: entry.PurchaseID}}
	}
	resp.Replayed = true
	return resp
}

func (s *ShopService) purchase(ctx context.Context, userID, itemID string) (*api.PurchaseResponse, error) {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error("Failed to load item", "item_id", itemID, "error", err)
		}
		return nil, storageError(err, "load item")
	}
	if !item.Active() {
		return nil, connect.NewError(connect.CodeFailedPrecondition, errItemDeleted)
	}

	now := s.now()
	purchase := &models.Purchase{
		UserID:    userID,
		ItemID:    item.ID,
		CreatedAt: now.UnixMilli(),
	}
	if err := s.store.CreatePurchase(ctx, purchase); err != nil {
		s.logger.Error("Failed to create purchase", "user_id", userID, "item_id", itemID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	s.metrics.ObservePurchase(item.Price)
	s.logger.Info("Purchase created", "purchase_id", purchase.ID, "user_id", userID, "item_id", item.ID)

	s.announcePurchase(ctx, userID, item, now)

	return &api.PurchaseResponse{
		Purchase: &api.Purchase{
			ID:        purchase.ID,
			CreatedAt: time.UnixMilli(purchase.CreatedAt),
			Item:      toAPIItem(*item),
		},
	}, nil
}

// announcePurchase notifies under the buyer's anonymous name. Failures are
// logged and never undo the purchase.
func (s *ShopService) announcePurchase(ctx context.Context, userID string, item *models.Item, now time.Time) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		s.logger.Warn("Skipping purchase notification", "error", err)
		return
	}
	anon := s.settings.NewAssigner().Assign(users, now)[userID]

	msg := notify.PurchaseMessage(anon, item.Name, item.Price)
	msg.At = now
	if err := s.notifier.Notify(ctx, msg); err != nil {
		s.logger.Warn("Purchase notification failed", "item_id", item.ID, "error", err)
	}
}

// GetHome returns the landing view: the caller's anonymous name, this month's
// purchases and total, and the active catalog.
func (s *ShopService) GetHome(ctx context.Context, req *connect.Request[api.GetHomeRequest]) (*connect.Response[api.GetHomeResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}

	now := s.now()
	start := monthStart(now, s.settings.GetLocation())

	var (
		items     []*models.Item
		purchases []*models.PurchaseDetail
		users     []*models.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		items, err = s.store.ListItems(gctx, false)
		return err
	})
	g.Go(func() (err error) {
		purchases, err = s.store.ListPurchaseDetails(gctx, monthQuery(userID, start))
		return err
	})
	g.Go(func() (err error) {
		users, err = s.store.ListUsers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("Failed to load home", "user_id", userID, "error", err)
		return nil, storageError(err, "load home")
	}

	list, total := toAPIPurchases(purchases)
	return connect.NewResponse(&api.GetHomeResponse{
		AnonName:  s.settings.NewAssigner().Assign(users, now)[userID],
		Month:     monthRef(start),
		Total:     total,
		Purchases: list,
		Items:     toAPIItems(items),
	}), nil
}

// GetHistory returns the caller's purchases for one month. Zero year and
// month select the current month.
func (s *ShopService) GetHistory(ctx context.Context, req *connect.Request[api.GetHistoryRequest]) (*connect.Response[api.GetHistoryResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}

	start, err := requestedMonth(req.Msg.Year, req.Msg.Month, s.now(), s.settings.GetLocation())
	if err != nil {
		return nil, err
	}

	details, err := s.store.ListPurchaseDetails(ctx, monthQuery(userID, start))
	if err != nil {
		s.logger.Error("Failed to load history", "user_id", userID, "error", err)
		return nil, storageError(err, "load history")
	}

	list, total := toAPIPurchases(details)
	return connect.NewResponse(&api.GetHistoryResponse{
		Month:     monthRef(start),
		Total:     total,
		Purchases: list,
		Prev:      monthRef(start.AddDate(0, -1, 0)),
		Next:      monthRef(start.AddDate(0, 1, 0)),
	}), nil
}
