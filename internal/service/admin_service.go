package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/zbuppan/internal/auth"
	"github.com/mmynk/zbuppan/internal/calculator"
	"github.com/mmynk/zbuppan/internal/middleware"
	"github.com/mmynk/zbuppan/internal/models"
	"github.com/mmynk/zbuppan/internal/notify"
	"github.com/mmynk/zbuppan/internal/storage"
	"github.com/mmynk/zbuppan/pkg/api"
)

// historyCutoffDay is the first day of the month on which the admin user
// history opens on the current month instead of the previous one.
const historyCutoffDay = 15

var (
	errEmptyItemName = errors.New("item name is required")
	errNegativePrice = errors.New("price must not be negative")
	errEmptyText     = errors.New("text is required")
)

// AdminService implements catalog management and user oversight.
type AdminService struct {
	store    storage.Store
	notifier notify.Notifier
	settings Settings
	logger   *slog.Logger

	now func() time.Time
}

// NewAdminService creates an admin service.
func NewAdminService(store storage.Store, notifier notify.Notifier, settings Settings, logger *slog.Logger) *AdminService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &AdminService{
		store:    store,
		notifier: notifier,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

func requireAdmin(ctx context.Context) error {
	if middleware.GetUserID(ctx) == "" {
		return connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	if !middleware.IsAdmin(ctx) {
		return connect.NewError(connect.CodePermissionDenied, auth.ErrAdminRequired)
	}
	return nil
}

// ListItems returns the active catalog with owners and sale counts.
func (s *AdminService) ListItems(ctx context.Context, req *connect.Request[api.AdminListItemsRequest]) (*connect.Response[api.AdminListItemsResponse], error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	summaries, err := s.store.ListItemSummaries(ctx)
	if err != nil {
		s.logger.Error("Failed to list item summaries", "error", err)
		return nil, storageError(err, "list items")
	}

	items := make([]api.ItemSummary, 0, len(summaries))
	for _, sum := range summaries {
		items = append(items, api.ItemSummary{
			Item:      toAPIItem(sum.Item),
			OwnerName: sum.OwnerName,
			Sales:     sum.Sales,
		})
	}
	return connect.NewResponse(&api.AdminListItemsResponse{Items: items}), nil
}

// CreateItem adds an item to the catalog and announces it.
func (s *AdminService) CreateItem(ctx context.Context, req *connect.Request[api.CreateItemRequest]) (*connect.Response[api.CreateItemResponse], error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Msg.Name)
	if name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errEmptyItemName)
	}
	if req.Msg.Price < 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errNegativePrice)
	}

	adminID := middleware.GetUserID(ctx)
	admin, err := s.store.GetUserByID(ctx, adminID)
	if err != nil {
		s.logger.Error("Failed to load admin", "user_id", adminID, "error", err)
		return nil, storageError(err, "load admin")
	}

	item := &models.Item{
		Name:      name,
		Price:     req.Msg.Price,
		OwnerID:   admin.ID,
		CreatedAt: s.now().UnixMilli(),
	}
	if err := s.store.CreateItem(ctx, item); err != nil {
		s.logger.Error("Failed to create item", "name", name, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	s.logger.Info("Item created", "item_id", item.ID, "name", item.Name, "price", item.Price, "by", admin.ID)

	msg := notify.ItemCreatedMessage(item.Name, item.Price, admin.Name)
	if err := s.notifier.Notify(ctx, msg); err != nil {
		s.logger.Warn("Item notification failed", "item_id", item.ID, "error", err)
	}

	created := toAPIItem(*item)
	return connect.NewResponse(&api.CreateItemResponse{Item: &created}), nil
}

// DeleteItem soft-deletes an item. Its purchases stay in every history.
func (s *AdminService) DeleteItem(ctx context.Context, req *connect.Request[api.DeleteItemRequest]) (*connect.Response[api.DeleteItemResponse], error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if req.Msg.ItemID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("item_id is required"))
	}

	if err := s.store.SoftDeleteItem(ctx, req.Msg.ItemID, s.now().UnixMilli()); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error("Failed to delete item", "item_id", req.Msg.ItemID, "error", err)
		}
		return nil, storageError(err, "delete item")
	}

	s.logger.Info("Item deleted", "item_id", req.Msg.ItemID, "by", middleware.GetUserID(ctx))
	return connect.NewResponse(&api.DeleteItemResponse{}), nil
}

// Notify sends a free-text announcement. Unlike purchase notifications a
// delivery failure is reported to the caller.
func (s *AdminService) Notify(ctx context.Context, req *connect.Request[api.NotifyRequest]) (*connect.Response[api.NotifyResponse], error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(req.Msg.Text)
	if text == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errEmptyText)
	}

	if err := s.notifier.Notify(ctx, notify.AnnouncementMessage(text)); err != nil {
		s.logger.Error("Announcement failed", "error", err)
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}
	return connect.NewResponse(&api.NotifyResponse{}), nil
}

// ListUsers returns every user in registration order with this month's
// anonymous name.
func (s *AdminService) ListUsers(ctx context.Context, req *connect.Request[api.ListUsersRequest]) (*connect.Response[api.ListUsersResponse], error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		s.logger.Error("Failed to list users", "error", err)
		return nil, storageError(err, "list users")
	}

	names := s.settings.NewAssigner().Assign(users, s.now())
	out := make([]api.UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, api.UserSummary{
			User:     *toAPIUser(u),
			AnonName: names[u.ID],
		})
	}
	return connect.NewResponse(&api.ListUsersResponse{Users: out}), nil
}

// defaultHistoryMonth is the month the admin user history opens on: the
// previous month until the cutoff day, the current month after.
func defaultHistoryMonth(now time.Time, loc *time.Location) time.Time {
	start := monthStart(now, loc)
	if now.In(loc).Day() < historyCutoffDay {
		return start.AddDate(0, -1, 0)
	}
	return start
}

// GetUserHistory returns one user's purchases for a month.
func (s *AdminService) GetUserHistory(ctx context.Context, req *connect.Request[api.GetUserHistoryRequest]) (*connect.Response[api.GetUserHistoryResponse], error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if req.Msg.UserID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("user_id is required"))
	}

	loc := s.settings.GetLocation()
	start, err := requestedMonth(req.Msg.Year, req.Msg.Month, defaultHistoryMonth(s.now(), loc), loc)
	if err != nil {
		return nil, err
	}

	var (
		user    *models.User
		details []*models.PurchaseDetail
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		user, err = s.store.GetUserByID(gctx, req.Msg.UserID)
		return err
	})
	g.Go(func() (err error) {
		details, err = s.store.ListPurchaseDetails(gctx, monthQuery(req.Msg.UserID, start))
		return err
	})
	if err := g.Wait(); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error("Failed to load user history", "user_id", req.Msg.UserID, "error", err)
		}
		return nil, storageError(err, "load user history")
	}

	list, total := toAPIPurchases(details)
	return connect.NewResponse(&api.GetUserHistoryResponse{
		User:      toAPIUser(user),
		Month:     monthRef(start),
		Total:     total,
		Purchases: list,
	}), nil
}

// GetSettlement bills every buyer for a month. It opens on the same default
// month as GetUserHistory.
func (s *AdminService) GetSettlement(ctx context.Context, req *connect.Request[api.GetSettlementRequest]) (*connect.Response[api.GetSettlementResponse], error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	loc := s.settings.GetLocation()
	start, err := requestedMonth(req.Msg.Year, req.Msg.Month, defaultHistoryMonth(s.now(), loc), loc)
	if err != nil {
		return nil, err
	}

	details, err := s.store.ListPurchaseDetails(ctx, monthQuery("", start))
	if err != nil {
		s.logger.Error("Failed to load settlement", "month", start.Format("2006-01"), "error", err)
		return nil, storageError(err, "load settlement")
	}

	statements := calculator.Settle(details)
	out := make([]api.Statement, 0, len(statements))
	for _, st := range statements {
		lines := make([]api.SettlementLine, 0, len(st.Lines))
		for _, line := range st.Lines {
			lines = append(lines, api.SettlementLine{
				Item:     api.Item{ID: line.ItemID, Name: line.ItemName, Price: line.Price},
				Quantity: line.Quantity,
				Subtotal: line.Subtotal,
			})
		}
		out = append(out, api.Statement{
			User:      api.Buyer{ID: st.UserID, Name: st.UserName},
			Lines:     lines,
			Purchases: st.Count,
			Total:     st.Total,
		})
	}

	return connect.NewResponse(&api.GetSettlementResponse{
		Month:      monthRef(start),
		Statements: out,
		Total:      calculator.GrandTotal(statements),
	}), nil
}
