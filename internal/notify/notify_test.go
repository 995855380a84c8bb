package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"
)

func TestMessages(t *testing.T) {
	tests := []struct {
		name      string
		msg       Message
		wantTitle string
		wantText  string
	}{
		{
			name:      "purchase",
			msg:       PurchaseMessage("ゴン", "コーヒー", 1200),
			wantTitle: "購入通知",
			wantText:  "ゴンがコーヒー（¥1,200）を購入しました！",
		},
		{
			name:      "item created",
			msg:       ItemCreatedMessage("お茶", 100, "店長"),
			wantTitle: "新商品追加！",
			wantText:  "お茶（¥100）が追加されました！ by 店長",
		},
		{
			name:      "announcement",
			msg:       AnnouncementMessage("棚卸しします"),
			wantTitle: "お知らせ",
			wantText:  "棚卸しします",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.msg.Title != tt.wantTitle || tt.msg.Text != tt.wantText {
				t.Errorf("got %q / %q, want %q / %q", tt.msg.Title, tt.msg.Text, tt.wantTitle, tt.wantText)
			}
		})
	}
}

func TestCardPayload(t *testing.T) {
	data, err := CardPayload("summary", "タイトル", "本文")
	if err != nil {
		t.Fatalf("CardPayload failed: %v", err)
	}

	var payload struct {
		Type        string `json:"type"`
		Summary     string `json:"summary"`
		Attachments []struct {
			ContentType string  `json:"contentType"`
			ContentURL  *string `json:"contentUrl"`
			Content     struct {
				Type    string `json:"type"`
				Version string `json:"version"`
				Body    []struct {
					Type   string `json:"type"`
					Text   string `json:"text"`
					Size   string `json:"size"`
					Weight string `json:"weight"`
					Wrap   bool   `json:"wrap"`
				} `json:"body"`
			} `json:"content"`
		} `json:"attachments"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}

	if payload.Type != "message" || payload.Summary != "summary" || len(payload.Attachments) != 1 {
		t.Fatalf("envelope = %+v", payload)
	}
	att := payload.Attachments[0]
	if att.ContentType != "application/vnd.microsoft.card.adaptive" || att.ContentURL != nil {
		t.Errorf("attachment = %+v", att)
	}
	if att.Content.Type != "AdaptiveCard" || att.Content.Version != "1.5" || len(att.Content.Body) != 2 {
		t.Fatalf("card = %+v", att.Content)
	}
	if b := att.Content.Body[0]; b.Text != "タイトル" || b.Size != "Large" || b.Weight != "Bolder" {
		t.Errorf("title block = %+v", b)
	}
	if b := att.Content.Body[1]; b.Text != "本文" || !b.Wrap {
		t.Errorf("text block = %+v", b)
	}
}

func TestTeamsNotify(t *testing.T) {
	var mu sync.Mutex
	var bodies [][]byte
	status := http.StatusOK

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, body)
		code := status
		mu.Unlock()
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %s", r.Header.Get("Content-Type"))
		}
		w.WriteHeader(code)
	}))
	defer server.Close()

	url := server.URL
	teams := NewTeams(func() string { return url })
	ctx := context.Background()

	if err := teams.Notify(ctx, AnnouncementMessage("hello")); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	mu.Lock()
	status = http.StatusBadRequest
	mu.Unlock()
	if err := teams.Notify(ctx, AnnouncementMessage("hello")); err == nil {
		t.Error("expected error for 400 response")
	}

	url = ""
	if err := teams.Notify(ctx, AnnouncementMessage("dropped")); err != nil {
		t.Errorf("disabled webhook err = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 2 {
		t.Errorf("webhook hit %d times, want 2", len(bodies))
	}
}

type fakeSink struct {
	name string
	err  error

	mu   sync.Mutex
	msgs []Message
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) Notify(_ context.Context, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return f.err
}

func TestMulti(t *testing.T) {
	ok := &fakeSink{name: "ok"}
	broken := &fakeSink{name: "broken", err: errors.New("down")}

	var mu sync.Mutex
	results := map[string]error{}
	observe := func(sink string, err error) {
		mu.Lock()
		defer mu.Unlock()
		results[sink] = err
	}

	n := NewMulti(observe, ok, broken)
	err := n.Notify(context.Background(), AnnouncementMessage("x"))
	if err == nil {
		t.Fatal("expected joined error")
	}
	if len(ok.msgs) != 1 || len(broken.msgs) != 1 {
		t.Errorf("deliveries ok=%d broken=%d", len(ok.msgs), len(broken.msgs))
	}
	if results["ok"] != nil || results["broken"] == nil {
		t.Errorf("observed = %v", results)
	}

	if _, isNop := NewMulti(nil).(Nop); !isNop {
		t.Error("expected Nop without sinks")
	}
}

func TestRedisRoundTrip(t *testing.T) {
	addr := os.Getenv("ZB_REDIS_ADDR")
	if addr == "" {
		t.Skip("set ZB_REDIS_ADDR to run Redis notifier tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r, err := NewRedis(ctx, addr, "zbuppan.test")
	if err != nil {
		t.Fatalf("NewRedis failed: %v", err)
	}
	defer r.Close()

	got := make(chan Message, 1)
	if err := r.Subscribe(ctx, func(m Message) { got <- m }); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := r.Notify(ctx, PurchaseMessage("ゴン", "コーヒー", 120)); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	select {
	case m := <-got:
		if m.Kind != KindPurchase || m.Text != "ゴンがコーヒー（¥120）を購入しました！" {
			t.Errorf("received %+v", m)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}
