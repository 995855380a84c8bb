package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/mmynk/zbuppan/internal/models"
	"github.com/mmynk/zbuppan/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func createUser(t *testing.T, store *SQLiteStore, email, name string, createdAt int64) *models.User {
	t.Helper()

	user := models.NewUser(email, name, "hash")
	user.CreatedAt = createdAt
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return user
}

func TestSQLiteStore_Users(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	bob := createUser(t, store, "bob@example.com", "Bob", 2000)
	alice := createUser(t, store, "alice@example.com", "Alice", 1000)

	t.Run("GetUserByEmail", func(t *testing.T) {
		got, err := store.GetUserByEmail(ctx, "alice@example.com")
		if err != nil {
			t.Fatalf("GetUserByEmail failed: %v", err)
		}
		if got.ID != alice.ID || got.Name != "Alice" || got.CreatedAt != 1000 {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("missing user returns ErrNotFound", func(t *testing.T) {
		if _, err := store.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetUserByEmail err = %v, want ErrNotFound", err)
		}
		if _, err := store.GetUserByID(ctx, "nonexistent-id"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetUserByID err = %v, want ErrNotFound", err)
		}
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		dup := models.NewUser("bob@example.com", "Bob2", "hash")
		if err := store.CreateUser(ctx, dup); err == nil {
			t.Error("Expected error for duplicate email")
		}
	})

	t.Run("ListUsers in registration order", func(t *testing.T) {
		users, err := store.ListUsers(ctx)
		if err != nil {
			t.Fatalf("ListUsers failed: %v", err)
		}
		if len(users) != 2 || users[0].ID != alice.ID || users[1].ID != bob.ID {
			t.Errorf("ListUsers order wrong: %v", users)
		}
	})

	t.Run("UpdateUserName", func(t *testing.T) {
		if err := store.UpdateUserName(ctx, bob.ID, "ボブ"); err != nil {
			t.Fatalf("UpdateUserName failed: %v", err)
		}
		got, err := store.GetUserByID(ctx, bob.ID)
		if err != nil {
			t.Fatalf("GetUserByID failed: %v", err)
		}
		if got.Name != "ボブ" {
			t.Errorf("Name = %s", got.Name)
		}
		if err := store.UpdateUserName(ctx, "nonexistent-id", "x"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("admin flag round trips", func(t *testing.T) {
		admin := models.NewUser("admin@example.com", "Admin", "hash")
		admin.Admin = true
		if err := store.CreateUser(ctx, admin); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		got, err := store.GetUserByID(ctx, admin.ID)
		if err != nil {
			t.Fatalf("GetUserByID failed: %v", err)
		}
		if !got.Admin {
			t.Error("Expected admin flag to be stored")
		}
	})
}

func TestSQLiteStore_Items(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	owner := createUser(t, store, "owner@example.com", "Owner", 1)

	coffee := &models.Item{Name: "コーヒー", Price: 120, OwnerID: owner.ID}
	if err := store.CreateItem(ctx, coffee); err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}
	if coffee.ID == "" || coffee.CreatedAt == 0 {
		t.Fatal("Expected ID and CreatedAt to be generated")
	}

	tea := &models.Item{Name: "お茶", Price: 100, CreatedAt: coffee.CreatedAt + 1}
	if err := store.CreateItem(ctx, tea); err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}

	buyer := createUser(t, store, "buyer@example.com", "Buyer", 2)
	for range 3 {
		if err := store.CreatePurchase(ctx, &models.Purchase{UserID: buyer.ID, ItemID: coffee.ID}); err != nil {
			t.Fatalf("CreatePurchase failed: %v", err)
		}
	}

	t.Run("ListItemSummaries", func(t *testing.T) {
		sums, err := store.ListItemSummaries(ctx)
		if err != nil {
			t.Fatalf("ListItemSummaries failed: %v", err)
		}
		if len(sums) != 2 {
			t.Fatalf("got %d summaries, want 2", len(sums))
		}
		if sums[0].ID != coffee.ID || sums[0].OwnerName != "Owner" || sums[0].Sales != 3 {
			t.Errorf("coffee summary = %+v", sums[0])
		}
		if sums[1].OwnerName != "" || sums[1].Sales != 0 {
			t.Errorf("tea summary = %+v", sums[1])
		}
	})

	t.Run("SoftDeleteItem", func(t *testing.T) {
		if err := store.SoftDeleteItem(ctx, tea.ID, 5000); err != nil {
			t.Fatalf("SoftDeleteItem failed: %v", err)
		}
		if err := store.SoftDeleteItem(ctx, tea.ID, 6000); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("second delete err = %v, want ErrNotFound", err)
		}

		active, err := store.ListItems(ctx, false)
		if err != nil {
			t.Fatalf("ListItems failed: %v", err)
		}
		if len(active) != 1 || active[0].ID != coffee.ID {
			t.Errorf("active items = %v", active)
		}

		all, err := store.ListItems(ctx, true)
		if err != nil {
			t.Fatalf("ListItems failed: %v", err)
		}
		if len(all) != 2 {
			t.Fatalf("got %d items, want 2", len(all))
		}

		got, err := store.GetItem(ctx, tea.ID)
		if err != nil {
			t.Fatalf("GetItem failed: %v", err)
		}
		if got.DeletedAt == nil || *got.DeletedAt != 5000 || got.Active() {
			t.Errorf("DeletedAt = %v", got.DeletedAt)
		}
	})

	t.Run("GetItem returns ErrNotFound", func(t *testing.T) {
		if _, err := store.GetItem(ctx, "nonexistent-id"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestSQLiteStore_PurchaseDetails(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, store, "alice@example.com", "Alice", 1)
	bob := createUser(t, store, "bob@example.com", "Bob", 2)

	item := &models.Item{Name: "Coffee", Price: 120, CreatedAt: 10}
	if err := store.CreateItem(ctx, item); err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}

	voided := int64(999)
	purchases := []*models.Purchase{
		{UserID: bob.ID, ItemID: item.ID, CreatedAt: 300},
		{UserID: alice.ID, ItemID: item.ID, CreatedAt: 100},
		{UserID: alice.ID, ItemID: item.ID, CreatedAt: 200},
		{UserID: alice.ID, ItemID: item.ID, CreatedAt: 250, DeletedAt: &voided},
	}
	for _, p := range purchases {
		if err := store.CreatePurchase(ctx, p); err != nil {
			t.Fatalf("CreatePurchase failed: %v", err)
		}
	}
	if err := store.SoftDeleteItem(ctx, item.ID, 400); err != nil {
		t.Fatalf("SoftDeleteItem failed: %v", err)
	}

	tests := []struct {
		name  string
		query storage.PurchaseQuery
		want  []int64
	}{
		{"all, oldest first, voided excluded", storage.PurchaseQuery{}, []int64{100, 200, 300}},
		{"by user", storage.PurchaseQuery{UserID: alice.ID}, []int64{100, 200}},
		{"half-open range", storage.PurchaseQuery{From: 200, To: 300}, []int64{200}},
		{"user and range", storage.PurchaseQuery{UserID: bob.ID, From: 0, To: 300}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			details, err := store.ListPurchaseDetails(ctx, tt.query)
			if err != nil {
				t.Fatalf("ListPurchaseDetails failed: %v", err)
			}
			if len(details) != len(tt.want) {
				t.Fatalf("got %d purchases, want %d", len(details), len(tt.want))
			}
			for i, d := range details {
				if d.CreatedAt != tt.want[i] {
					t.Errorf("purchase %d at %d, want %d", i, d.CreatedAt, tt.want[i])
				}
			}
		})
	}

	t.Run("joins item lifecycle and buyer", func(t *testing.T) {
		details, err := store.ListPurchaseDetails(ctx, storage.PurchaseQuery{UserID: bob.ID})
		if err != nil {
			t.Fatalf("ListPurchaseDetails failed: %v", err)
		}
		d := details[0]
		if d.UserName != "Bob" || d.UserID != bob.ID {
			t.Errorf("buyer = %s/%s", d.UserID, d.UserName)
		}
		if d.Item.Name != "Coffee" || d.Item.Price != 120 || d.Item.CreatedAt != 10 {
			t.Errorf("item = %+v", d.Item)
		}
		if d.Item.DeletedAt == nil || *d.Item.DeletedAt != 400 {
			t.Errorf("item DeletedAt = %v", d.Item.DeletedAt)
		}
	})
}
