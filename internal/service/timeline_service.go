package service

import (
	"context"
	"log/slog"
	"time"

	"connectrpc.com/connect"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/zbuppan/internal/auth"
	"github.com/mmynk/zbuppan/internal/middleware"
	"github.com/mmynk/zbuppan/internal/models"
	"github.com/mmynk/zbuppan/internal/storage"
	"github.com/mmynk/zbuppan/internal/timeline"
	"github.com/mmynk/zbuppan/internal/tracing"
	"github.com/mmynk/zbuppan/pkg/api"
)

var tracer = tracing.Tracer("github.com/mmynk/zbuppan/internal/service")

// TimelineService serves the merged purchase feeds.
type TimelineService struct {
	store    storage.Store
	settings Settings
	logger   *slog.Logger

	now func() time.Time
}

// NewTimelineService creates a timeline service.
func NewTimelineService(store storage.Store, settings Settings, logger *slog.Logger) *TimelineService {
	return &TimelineService{
		store:    store,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

// snapshot is everything a feed is computed from, read in one go.
type snapshot struct {
	purchases []*models.PurchaseDetail
	items     []*models.Item
	users     []*models.User
}

// load reads purchases, items and users concurrently. Users are only read
// when needed for anonymous names.
func (s *TimelineService) load(ctx context.Context, includeDeleted, withUsers bool) (*snapshot, error) {
	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.purchases, err = s.store.ListPurchaseDetails(gctx, storage.PurchaseQuery{})
		return err
	})
	g.Go(func() (err error) {
		snap.items, err = s.store.ListItems(gctx, includeDeleted)
		return err
	})
	if withUsers {
		g.Go(func() (err error) {
			snap.users, err = s.store.ListUsers(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &snap, nil
}

func itemInfos(items []*models.Item) []timeline.ItemInfo {
	infos := make([]timeline.ItemInfo, 0, len(items))
	for _, item := range items {
		infos = append(infos, timeline.NormalizeItem(*item))
	}
	return infos
}

// build filters records and merges them with the selected item's lifecycle.
func build(ctx context.Context, records []timeline.Record, items []timeline.ItemInfo, f timeline.Filter, loc *time.Location) timeline.Feed {
	_, span := tracer.Start(ctx, "timeline.Build")
	defer span.End()

	filtered := f.Apply(records, loc)
	feed := timeline.Build(filtered, items, f.Item)

	span.SetAttributes(
		attribute.Int("timeline.records", len(records)),
		attribute.Int("timeline.purchases", feed.Purchases),
		attribute.Int("timeline.rows", len(feed.Rows)),
	)
	return feed
}

// GetPublicTimeline returns every purchase with buyers shown under this
// month's anonymous names. Only active items contribute lifecycle rows.
func (s *TimelineService) GetPublicTimeline(ctx context.Context, req *connect.Request[api.GetPublicTimelineRequest]) (*connect.Response[api.GetPublicTimelineResponse], error) {
	ctx, span := tracer.Start(ctx, "GetPublicTimeline")
	defer span.End()

	snap, err := s.load(ctx, false, true)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("Failed to load public timeline", "error", err)
		return nil, storageError(err, "load timeline")
	}

	loc := s.settings.GetLocation()
	names := s.settings.NewAssigner().Assign(snap.users, s.now())
	records := timeline.WithDisplayNames(timeline.NormalizeAll(snap.purchases), names)

	f := timeline.Filter{
		Date:    req.Msg.Date,
		User:    req.Msg.User,
		Item:    req.Msg.Item,
		UserKey: timeline.ByName,
	}
	feed := build(ctx, records, itemInfos(snap.items), f, loc)

	return connect.NewResponse(&api.GetPublicTimelineResponse{
		Rows:      toAPIRows(feed, false),
		Purchases: feed.Purchases,
		Options:   filterOptions(records, timeline.ByName, loc),
	}), nil
}

// GetAdminTimeline returns the filtered feed with real buyer names, the
// selected item's lifecycle rows and the sales total of the selection.
func (s *TimelineService) GetAdminTimeline(ctx context.Context, req *connect.Request[api.GetAdminTimelineRequest]) (*connect.Response[api.GetAdminTimelineResponse], error) {
	if !middleware.IsAdmin(ctx) {
		return nil, connect.NewError(connect.CodePermissionDenied, auth.ErrAdminRequired)
	}

	ctx, span := tracer.Start(ctx, "GetAdminTimeline")
	defer span.End()

	snap, err := s.load(ctx, true, false)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("Failed to load admin timeline", "error", err)
		return nil, storageError(err, "load timeline")
	}

	loc := s.settings.GetLocation()
	records := timeline.NormalizeAll(snap.purchases)

	f := timeline.Filter{
		Date:    req.Msg.Date,
		User:    req.Msg.User,
		Item:    req.Msg.Item,
		UserKey: timeline.ByID,
	}
	feed := build(ctx, records, itemInfos(snap.items), f, loc)

	return connect.NewResponse(&api.GetAdminTimelineResponse{
		Rows:      toAPIRows(feed, true),
		Purchases: feed.Purchases,
		Sales:     feed.Sales(),
		Options:   filterOptions(records, timeline.ByID, loc),
	}), nil
}
