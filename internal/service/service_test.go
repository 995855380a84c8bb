package service

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/zbuppan/internal/auth"
	"github.com/mmynk/zbuppan/internal/config"
	"github.com/mmynk/zbuppan/internal/idempotency"
	"github.com/mmynk/zbuppan/internal/metrics"
	"github.com/mmynk/zbuppan/internal/middleware"
	"github.com/mmynk/zbuppan/internal/notify"
	"github.com/mmynk/zbuppan/internal/storage/sqlite"
	"github.com/mmynk/zbuppan/pkg/api"
	"github.com/mmynk/zbuppan/pkg/api/apiconnect"
)

var jst = time.FixedZone("JST", 9*60*60)

// recordingSink keeps every message it is sent.
type recordingSink struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (r *recordingSink) Name() string { return "recording" }

func (r *recordingSink) Notify(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recordingSink) messages() []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Message(nil), r.msgs...)
}

type testEnv struct {
	auth     *apiconnect.AuthServiceClient
	shop     *apiconnect.ShopServiceClient
	timeline *apiconnect.TimelineServiceClient
	admin    *apiconnect.AdminServiceClient

	store *sqlite.SQLiteStore
	keys  *idempotency.Store
	cfg   *config.Config
	sink  *recordingSink
	now   time.Time
}

// setupTestServer serves every service over a temporary database with the
// clock fixed at now. Emails under admin.example register as admins.
func setupTestServer(t *testing.T, now time.Time) *testEnv {
	t.Helper()

	dir := t.TempDir()
	store, err := sqlite.New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	keys, err := idempotency.New(filepath.Join(dir, "keys.db"), time.Hour)
	if err != nil {
		t.Fatalf("failed to create idempotency store: %v", err)
	}
	t.Cleanup(func() { keys.Close() })

	cfg := config.DefaultConfig()
	cfg.Timeline.Timezone = "Asia/Tokyo"
	cfg.Auth.AdminEmails = []string{"*@admin.example"}

	logger := slog.New(slog.DiscardHandler)
	sink := &recordingSink{}
	m := metrics.New()
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store, cfg.GetAdminEmails)
	clock := func() time.Time { return now }

	shopSvc := NewShopService(store, keys, sink, cfg, m, logger)
	shopSvc.now = clock
	timelineSvc := NewTimelineService(store, cfg, logger)
	timelineSvc.now = clock
	adminSvc := NewAdminService(store, sink, cfg, logger)
	adminSvc.now = clock

	optional := connect.WithInterceptors(middleware.OptionalAuth(jwtManager))
	required := connect.WithInterceptors(middleware.RequireAuth(jwtManager))
	adminOnly := connect.WithInterceptors(middleware.RequireAuth(jwtManager), middleware.RequireAdmin())

	mux := http.NewServeMux()
	mux.Handle(apiconnect.NewAuthServiceHandler(NewAuthService(authenticator, jwtManager, store, logger), optional))
	mux.Handle(apiconnect.NewShopServiceHandler(shopSvc, required))
	mux.Handle(apiconnect.NewTimelineServiceHandler(timelineSvc, optional))
	mux.Handle(apiconnect.NewAdminServiceHandler(adminSvc, adminOnly))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testEnv{
		auth:     apiconnect.NewAuthServiceClient(http.DefaultClient, server.URL),
		shop:     apiconnect.NewShopServiceClient(http.DefaultClient, server.URL),
		timeline: apiconnect.NewTimelineServiceClient(http.DefaultClient, server.URL),
		admin:    apiconnect.NewAdminServiceClient(http.DefaultClient, server.URL),
		store:    store,
		keys:     keys,
		cfg:      cfg,
		sink:     sink,
		now:      now,
	}
}

func withToken[T any](msg *T, token string) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set("Authorization", "Bearer "+token)
	return req
}

func (e *testEnv) register(t *testing.T, email, name string) (*api.User, string) {
	t.Helper()

	resp, err := e.auth.Register(context.Background(), connect.NewRequest(&api.RegisterRequest{
		Email:    email,
		Name:     name,
		Password: "password123",
	}))
	if err != nil {
		t.Fatalf("Register(%s) failed: %v", email, err)
	}
	return resp.Msg.User, resp.Msg.Token
}

func (e *testEnv) createItem(t *testing.T, token, name string, price int64) *api.Item {
	t.Helper()

	resp, err := e.admin.CreateItem(context.Background(), withToken(&api.CreateItemRequest{Name: name, Price: price}, token))
	if err != nil {
		t.Fatalf("CreateItem(%s) failed: %v", name, err)
	}
	return resp.Msg.Item
}

func assertCode(t *testing.T, err error, want connect.Code) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	if got := connect.CodeOf(err); got != want {
		t.Fatalf("expected code %v, got %v (%v)", want, got, err)
	}
}

func TestAuthFlow(t *testing.T) {
	env := setupTestServer(t, time.Date(2024, 3, 20, 12, 0, 0, 0, jst))
	ctx := context.Background()

	user, token := env.register(t, "Alice@Example.com", "Alice")
	if user.Email != "alice@example.com" {
		t.Errorf("expected normalized email, got %q", user.Email)
	}
	if user.Admin {
		t.Error("expected regular user")
	}

	admin, _ := env.register(t, "boss@admin.example", "Boss")
	if !admin.Admin {
		t.Error("expected admin flag from matching pattern")
	}

	_, err := env.auth.Register(ctx, connect.NewRequest(&api.RegisterRequest{
		Email: "alice@example.com", Name: "Again", Password: "password123",
	}))
	assertCode(t, err, connect.CodeAlreadyExists)

	_, err = env.auth.Register(ctx, connect.NewRequest(&api.RegisterRequest{
		Email: "carol@example.com", Name: "Carol", Password: "short",
	}))
	assertCode(t, err, connect.CodeInvalidArgument)

	login, err := env.auth.Login(ctx, connect.NewRequest(&api.LoginRequest{
		Email: "alice@example.com", Password: "password123",
	}))
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if login.Msg.User.ID != user.ID {
		t.Errorf("Login returned user %s, want %s", login.Msg.User.ID, user.ID)
	}

	_, err = env.auth.Login(ctx, connect.NewRequest(&api.LoginRequest{
		Email: "alice@example.com", Password: "wrong-password",
	}))
	assertCode(t, err, connect.CodeUnauthenticated)

	updated, err := env.auth.UpdateProfile(ctx, withToken(&api.UpdateProfileRequest{Name: "  Ally "}, token))
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if updated.Msg.User.Name != "Ally" {
		t.Errorf("expected trimmed name Ally, got %q", updated.Msg.User.Name)
	}

	current, err := env.auth.GetCurrentUser(ctx, withToken(&api.GetCurrentUserRequest{}, token))
	if err != nil {
		t.Fatalf("GetCurrentUser failed: %v", err)
	}
	if current.Msg.User.Name != "Ally" {
		t.Errorf("GetCurrentUser name = %q, want Ally", current.Msg.User.Name)
	}

	_, err = env.auth.GetCurrentUser(ctx, connect.NewRequest(&api.GetCurrentUserRequest{}))
	assertCode(t, err, connect.CodeUnauthenticated)

	_, err = env.auth.UpdateProfile(ctx, withToken(&api.UpdateProfileRequest{Name: " "}, token))
	assertCode(t, err, connect.CodeInvalidArgument)
}

func TestPurchaseNotifiesWithAnonymousName(t *testing.T) {
	env := setupTestServer(t, time.Date(2024, 3, 20, 12, 0, 0, 0, jst))
	ctx := context.Background()

	_, adminToken := env.register(t, "boss@admin.example", "Boss")
	_, token := env.register(t, "alice@example.com", "Alice")

	coffee := env.createItem(t, adminToken, "コーヒー", 1200)

	resp, err := env.shop.Purchase(ctx, withToken(&api.PurchaseRequest{ItemID: coffee.ID}, token))
	if err != nil {
		t.Fatalf("Purchase failed: %v", err)
	}
	if resp.Msg.Purchase.Item.ID != coffee.ID || resp.Msg.Replayed {
		t.Errorf("unexpected purchase response: %+v", resp.Msg)
	}
	if !resp.Msg.Purchase.CreatedAt.Equal(env.now) {
		t.Errorf("purchase time = %v, want %v", resp.Msg.Purchase.CreatedAt, env.now)
	}

	home, err := env.shop.GetHome(ctx, withToken(&api.GetHomeRequest{}, token))
	if err != nil {
		t.Fatalf("GetHome failed: %v", err)
	}
	if home.Msg.AnonName == "" {
		t.Fatal("expected an anonymous name")
	}
	if home.Msg.Total != 1200 || len(home.Msg.Purchases) != 1 {
		t.Errorf("home total=%d purchases=%d, want 1200 and 1", home.Msg.Total, len(home.Msg.Purchases))
	}
	if home.Msg.Month != (api.MonthRef{Year: 2024, Month: 3}) {
		t.Errorf("home month = %+v", home.Msg.Month)
	}
	if len(home.Msg.Items) != 1 {
		t.Errorf("expected 1 catalog item, got %d", len(home.Msg.Items))
	}

	msgs := env.sink.messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(msgs))
	}
	if msgs[0].Kind != notify.KindItemCreated || msgs[0].Text != "コーヒー（¥1,200）が追加されました！ by Boss" {
		t.Errorf("unexpected item notification: %+v", msgs[0])
	}
	want := home.Msg.AnonName + "がコーヒー（¥1,200）を購入しました！"
	if msgs[1].Kind != notify.KindPurchase || msgs[1].Text != want {
		t.Errorf("purchase notification = %q, want %q", msgs[1].Text, want)
	}
	if strings.Contains(msgs[1].Text, "Alice") {
		t.Error("purchase notification leaked the real name")
	}
}

func TestPurchaseIdempotencyKey(t *testing.T) {
	env := setupTestServer(t, time.Date(2024, 3, 20, 12, 0, 0, 0, jst))
	ctx := context.Background()

	_, adminToken := env.register(t, "boss@admin.example", "Boss")
	_, token := env.register(t, "alice@example.com", "Alice")
	tea := env.createItem(t, adminToken, "お茶", 150)

	purchase := func() *api.PurchaseResponse {
		req := withToken(&api.PurchaseRequest{ItemID: tea.ID}, token)
		req.Header().Set(apiconnect.IdempotencyKeyHeader, "retry-1")
		resp, err := env.shop.Purchase(ctx, req)
		if err != nil {
			t.Fatalf("Purchase failed: %v", err)
		}
		return resp.Msg
	}

	first := purchase()
	second := purchase()
	if first.Replayed || !second.Replayed {
		t.Errorf("Replayed = %v, %v; want false, true", first.Replayed, second.Replayed)
	}
	if first.Purchase.ID != second.Purchase.ID {
		t.Errorf("replay returned purchase %s, want %s", second.Purchase.ID, first.Purchase.ID)
	}
	if second.Purchase.Item.Name != "お茶" {
		t.Errorf("replay lost the item: %+v", second.Purchase)
	}

	history, err := env.shop.GetHistory(ctx, withToken(&api.GetHistoryRequest{}, token))
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if len(history.Msg.Purchases) != 1 {
		t.Errorf("expected 1 stored purchase, got %d", len(history.Msg.Purchases))
	}
	if got := len(env.sink.messages()); got != 2 {
		t.Errorf("expected item and one purchase notification, got %d", got)
	}
}

func TestPurchaseReplayAfterItemDeleted(t *testing.T) {
	env := setupTestServer(t, time.Date(2024, 3, 20, 12, 0, 0, 0, jst))
	ctx := context.Background()

	_, adminToken := env.register(t, "boss@admin.example", "Boss")
	_, token := env.register(t, "alice@example.com", "Alice")
	ice := env.createItem(t, adminToken, "アイス", 200)

	purchase := func() (*connect.Response[api.PurchaseResponse], error) {
		req := withToken(&api.PurchaseRequest{ItemID: ice.ID}, token)
		req.Header().Set(apiconnect.IdempotencyKeyHeader, "retry-2")
		return env.shop.Purchase(ctx, req)
	}

	first, err := purchase()
	if err != nil {
		t.Fatalf("Purchase failed: %v", err)
	}
	if _, err := env.admin.DeleteItem(ctx, withToken(&api.DeleteItemRequest{ItemID: ice.ID}, adminToken)); err != nil {
		t.Fatalf("DeleteItem failed: %v", err)
	}

	// The finished key answers without touching the item again.
	second, err := purchase()
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if !second.Msg.Replayed || second.Msg.Purchase.ID != first.Msg.Purchase.ID {
		t.Errorf("retry = %+v, want replay of %s", second.Msg, first.Msg.Purchase.ID)
	}
}

func TestPurchasePendingKeyAborts(t *testing.T) {
	env := setupTestServer(t, time.Date(2024, 3, 20, 12, 0, 0, 0, jst))
	ctx := context.Background()

	_, adminToken := env.register(t, "boss@admin.example", "Boss")
	alice, token := env.register(t, "alice@example.com", "Alice")
	tea := env.createItem(t, adminToken, "お茶", 150)

	if _, claimed, err := env.keys.Begin(alice.ID, "in-flight"); err != nil || !claimed {
		t.Fatalf("Begin = %v, %v", claimed, err)
	}

	req := withToken(&api.PurchaseRequest{ItemID: tea.ID}, token)
	req.Header().Set(apiconnect.IdempotencyKeyHeader, "in-flight")
	_, err := env.shop.Purchase(ctx, req)
	assertCode(t, err, connect.CodeAborted)

	history, err := env.shop.GetHistory(ctx, withToken(&api.GetHistoryRequest{}, token))
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if len(history.Msg.Purchases) != 0 {
		t.Errorf("expected no purchase while the key is pending, got %d", len(history.Msg.Purchases))
	}
}

func TestPurchaseRejected(t *testing.T) {
	env := setupTestServer(t, time.Date(2024, 3, 20, 12, 0, 0, 0, jst))
	ctx := context.Background()

	_, adminToken := env.register(t, "boss@admin.example", "Boss")
	_, token := env.register(t, "alice@example.com", "Alice")
	item := env.createItem(t, adminToken, "アイス", 200)

	if _, err := env.admin.DeleteItem(ctx, withToken(&api.DeleteItemRequest{ItemID: item.ID}, adminToken)); err != nil {
		t.Fatalf("DeleteItem failed: %v", err)
	}

	_, err := env.shop.Purchase(ctx, withToken(&api.PurchaseRequest{ItemID: item.ID}, token))
	assertCode(t, err, connect.CodeFailedPrecondition)

	_, err = env.shop.Purchase(ctx, withToken(&api.PurchaseRequest{ItemID: "missing"}, token))
	assertCode(t, err, connect.CodeNotFound)

	_, err = env.shop.Purchase(ctx, connect.NewRequest(&api.PurchaseRequest{ItemID: item.ID}))
	assertCode(t, err, connect.CodeUnauthenticated)

	_, err = env.admin.DeleteItem(ctx, withToken(&api.DeleteItemRequest{ItemID: item.ID}, adminToken))
	assertCode(t, err, connect.CodeNotFound)

	items, err := env.shop.ListItems(ctx, withToken(&api.ListItemsRequest{}, token))
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if len(items.Msg.Items) != 0 {
		t.Errorf("deleted item still listed: %+v", items.Msg.Items)
	}
}

func TestGetHistory(t *testing.T) {
	env := setupTestServer(t, time.Date(2024, 1, 10, 9, 0, 0, 0, jst))
	ctx := context.Background()

	_, token := env.register(t, "alice@example.com", "Alice")

	tests := []struct {
		name      string
		year      int32
		month     int32
		wantCode  connect.Code
		wantMonth api.MonthRef
		wantPrev  api.MonthRef
		wantNext  api.MonthRef
	}{
		{
			name:      "default is current month",
			wantMonth: api.MonthRef{Year: 2024, Month: 1},
			wantPrev:  api.MonthRef{Year: 2023, Month: 12},
			wantNext:  api.MonthRef{Year: 2024, Month: 2},
		},
		{
			name:      "december",
			year:      2023,
			month:     12,
			wantMonth: api.MonthRef{Year: 2023, Month: 12},
			wantPrev:  api.MonthRef{Year: 2023, Month: 11},
			wantNext:  api.MonthRef{Year: 2024, Month: 1},
		},
		{name: "month 13", year: 2024, month: 13, wantCode: connect.CodeInvalidArgument},
		{name: "month 0", year: 2024, month: 0, wantCode: connect.CodeInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := env.shop.GetHistory(ctx, withToken(&api.GetHistoryRequest{Year: tt.year, Month: tt.month}, token))
			if tt.wantCode != 0 {
				assertCode(t, err, tt.wantCode)
				return
			}
			if err != nil {
				t.Fatalf("GetHistory failed: %v", err)
			}
			if resp.Msg.Month != tt.wantMonth || resp.Msg.Prev != tt.wantPrev || resp.Msg.Next != tt.wantNext {
				t.Errorf("got month=%+v prev=%+v next=%+v", resp.Msg.Month, resp.Msg.Prev, resp.Msg.Next)
			}
		})
	}
}

func TestAdminRequired(t *testing.T) {
	env := setupTestServer(t, time.Date(2024, 3, 20, 12, 0, 0, 0, jst))
	ctx := context.Background()

	_, token := env.register(t, "alice@example.com", "Alice")

	_, err := env.admin.ListItems(ctx, withToken(&api.AdminListItemsRequest{}, token))
	assertCode(t, err, connect.CodePermissionDenied)

	_, err = env.admin.CreateItem(ctx, connect.NewRequest(&api.CreateItemRequest{Name: "x", Price: 1}))
	assertCode(t, err, connect.CodeUnauthenticated)

	_, err = env.timeline.GetAdminTimeline(ctx, withToken(&api.GetAdminTimelineRequest{}, token))
	assertCode(t, err, connect.CodePermissionDenied)

	_, err = env.timeline.GetAdminTimeline(ctx, connect.NewRequest(&api.GetAdminTimelineRequest{}))
	assertCode(t, err, connect.CodePermissionDenied)
}

func TestCreateItemValidation(t *testing.T) {
	env := setupTestServer(t, time.Date(2024, 3, 20, 12, 0, 0, 0, jst))
	ctx := context.Background()

	_, adminToken := env.register(t, "boss@admin.example", "Boss")

	tests := []struct {
		name  string
		req   *api.CreateItemRequest
		valid bool
	}{
		{name: "free item", req: &api.CreateItemRequest{Name: "水", Price: 0}, valid: true},
		{name: "empty name", req: &api.CreateItemRequest{Name: "  ", Price: 100}},
		{name: "negative price", req: &api.CreateItemRequest{Name: "返金", Price: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.admin.CreateItem(ctx, withToken(tt.req, adminToken))
			if tt.valid {
				if err != nil {
					t.Fatalf("CreateItem failed: %v", err)
				}
				return
			}
			assertCode(t, err, connect.CodeInvalidArgument)
		})
	}

	_, err := env.admin.Notify(ctx, withToken(&api.NotifyRequest{Text: ""}, adminToken))
	assertCode(t, err, connect.CodeInvalidArgument)

	if _, err := env.admin.Notify(ctx, withToken(&api.NotifyRequest{Text: "棚卸しします"}, adminToken)); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	msgs := env.sink.messages()
	last := msgs[len(msgs)-1]
	if last.Kind != notify.KindAnnouncement || last.Title != "お知らせ" || last.Text != "棚卸しします" {
		t.Errorf("unexpected announcement: %+v", last)
	}
}

func TestListUsersAndHistory(t *testing.T) {
	env := setupTestServer(t, time.Date(2024, 3, 10, 12, 0, 0, 0, jst))
	ctx := context.Background()

	_, adminToken := env.register(t, "boss@admin.example", "Boss")
	alice, _ := env.register(t, "alice@example.com", "Alice")

	item := env.createItem(t, adminToken, "お茶", 150)
	feb := time.Date(2024, 2, 14, 10, 0, 0, 0, jst).UnixMilli()
	mar := time.Date(2024, 3, 1, 10, 0, 0, 0, jst).UnixMilli()
	seedPurchase(t, env, alice.ID, item.ID, feb)
	seedPurchase(t, env, alice.ID, item.ID, mar)

	users, err := env.admin.ListUsers(ctx, withToken(&api.ListUsersRequest{}, adminToken))
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users.Msg.Users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users.Msg.Users))
	}
	seen := make(map[string]bool)
	for _, u := range users.Msg.Users {
		if u.AnonName == "" || seen[u.AnonName] {
			t.Errorf("anonymous names must be unique and set: %+v", users.Msg.Users)
		}
		seen[u.AnonName] = true
	}

	// The 10th is before the cutoff, so the default is February.
	history, err := env.admin.GetUserHistory(ctx, withToken(&api.GetUserHistoryRequest{UserID: alice.ID}, adminToken))
	if err != nil {
		t.Fatalf("GetUserHistory failed: %v", err)
	}
	if history.Msg.Month != (api.MonthRef{Year: 2024, Month: 2}) {
		t.Errorf("default month = %+v, want 2024-02", history.Msg.Month)
	}
	if history.Msg.Total != 150 || len(history.Msg.Purchases) != 1 {
		t.Errorf("total=%d purchases=%d, want 150 and 1", history.Msg.Total, len(history.Msg.Purchases))
	}
	if history.Msg.User.Name != "Alice" {
		t.Errorf("user name = %q", history.Msg.User.Name)
	}

	_, err = env.admin.GetUserHistory(ctx, withToken(&api.GetUserHistoryRequest{UserID: "missing", Year: 2024, Month: 2}, adminToken))
	assertCode(t, err, connect.CodeNotFound)

	summaries, err := env.admin.ListItems(ctx, withToken(&api.AdminListItemsRequest{}, adminToken))
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if len(summaries.Msg.Items) != 1 || summaries.Msg.Items[0].Sales != 2 || summaries.Msg.Items[0].OwnerName != "Boss" {
		t.Errorf("unexpected summaries: %+v", summaries.Msg.Items)
	}
}

func TestGetSettlement(t *testing.T) {
	env := setupTestServer(t, time.Date(2024, 3, 20, 12, 0, 0, 0, jst))
	ctx := context.Background()

	_, adminToken := env.register(t, "boss@admin.example", "Boss")
	alice, _ := env.register(t, "alice@example.com", "Alice")
	bob, _ := env.register(t, "bob@example.com", "Bob")

	coffee := env.createItem(t, adminToken, "コーヒー", 300)
	tea := env.createItem(t, adminToken, "お茶", 150)

	at := func(month time.Month, day int) int64 {
		return time.Date(2024, month, day, 12, 0, 0, 0, jst).UnixMilli()
	}
	seedPurchase(t, env, alice.ID, coffee.ID, at(3, 1))
	seedPurchase(t, env, alice.ID, coffee.ID, at(3, 2))
	seedPurchase(t, env, bob.ID, tea.ID, at(3, 3))
	seedPurchase(t, env, bob.ID, tea.ID, at(2, 28))

	resp, err := env.admin.GetSettlement(ctx, withToken(&api.GetSettlementRequest{}, adminToken))
	if err != nil {
		t.Fatalf("GetSettlement failed: %v", err)
	}
	if resp.Msg.Month != (api.MonthRef{Year: 2024, Month: 3}) {
		t.Errorf("month = %+v, want 2024-03", resp.Msg.Month)
	}
	if resp.Msg.Total != 750 {
		t.Errorf("total = %d, want 750", resp.Msg.Total)
	}
	if len(resp.Msg.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(resp.Msg.Statements))
	}
	first := resp.Msg.Statements[0]
	if first.User.ID != alice.ID || first.Total != 600 || first.Purchases != 2 {
		t.Errorf("first statement = %+v, want Alice owing 600", first)
	}
	if len(first.Lines) != 1 || first.Lines[0].Quantity != 2 {
		t.Errorf("Alice lines = %+v", first.Lines)
	}

	feb, err := env.admin.GetSettlement(ctx, withToken(&api.GetSettlementRequest{Year: 2024, Month: 2}, adminToken))
	if err != nil {
		t.Fatalf("GetSettlement failed: %v", err)
	}
	if feb.Msg.Total != 150 || len(feb.Msg.Statements) != 1 {
		t.Errorf("february total=%d statements=%d", feb.Msg.Total, len(feb.Msg.Statements))
	}
}

func TestDefaultHistoryMonth(t *testing.T) {
	tests := []struct {
		now  time.Time
		want time.Time
	}{
		{time.Date(2024, 3, 14, 23, 59, 0, 0, jst), time.Date(2024, 2, 1, 0, 0, 0, 0, jst)},
		{time.Date(2024, 3, 15, 0, 0, 0, 0, jst), time.Date(2024, 3, 1, 0, 0, 0, 0, jst)},
		{time.Date(2024, 1, 1, 0, 0, 0, 0, jst), time.Date(2023, 12, 1, 0, 0, 0, 0, jst)},
		// 2024-03-14T16:00Z is already the 15th in Tokyo.
		{time.Date(2024, 3, 14, 16, 0, 0, 0, time.UTC), time.Date(2024, 3, 1, 0, 0, 0, 0, jst)},
	}

	for _, tt := range tests {
		if got := defaultHistoryMonth(tt.now, jst); !got.Equal(tt.want) {
			t.Errorf("defaultHistoryMonth(%v) = %v, want %v", tt.now, got, tt.want)
		}
	}
}
