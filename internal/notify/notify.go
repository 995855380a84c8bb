// Package notify delivers shop events to chat and message-bus sinks.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
)

// Kind classifies a message.
type Kind string

const (
	KindPurchase     Kind = "purchase"
	KindItemCreated  Kind = "item_created"
	KindAnnouncement Kind = "announcement"
)

// Message is one notification.
type Message struct {
	Kind  Kind      `json:"kind"`
	Title string    `json:"title"`
	Text  string    `json:"text"`
	At    time.Time `json:"at"`
}

// Notifier delivers messages to one sink.
type Notifier interface {
	// Name identifies the sink in logs and metrics.
	Name() string
	Notify(ctx context.Context, msg Message) error
}

// Yen renders a price the way notifications show it, e.g. "¥1,200".
func Yen(price int64) string {
	return "¥" + humanize.Comma(price)
}

// PurchaseMessage announces a purchase under the buyer's anonymous name.
func PurchaseMessage(anonName, itemName string, price int64) Message {
	return Message{
		Kind:  KindPurchase,
		Title: "購入通知",
		Text:  fmt.Sprintf("%sが%s（%s）を購入しました！", anonName, itemName, Yen(price)),
		At:    time.Now(),
	}
}

// ItemCreatedMessage announces a new catalog item.
func ItemCreatedMessage(itemName string, price int64, by string) Message {
	return Message{
		Kind:  KindItemCreated,
		Title: "新商品追加！",
		Text:  fmt.Sprintf("%s（%s）が追加されました！ by %s", itemName, Yen(price), by),
		At:    time.Now(),
	}
}

// AnnouncementMessage wraps free text written by an admin.
func AnnouncementMessage(text string) Message {
	return Message{
		Kind:  KindAnnouncement,
		Title: "お知らせ",
		Text:  text,
		At:    time.Now(),
	}
}

// Nop drops every message.
type Nop struct{}

func (Nop) Name() string { return "nop" }

func (Nop) Notify(context.Context, Message) error { return nil }

// Multi fans a message out to every sink concurrently. A failing sink does not
// stop the others; all failures are joined into the returned error.
type Multi struct {
	Sinks []Notifier

	// Observe, if set, is called once per sink with its result.
	Observe func(sink string, err error)
}

// NewMulti returns a fan-out over sinks, or Nop when there are none.
func NewMulti(observe func(string, error), sinks ...Notifier) Notifier {
	if len(sinks) == 0 {
		return Nop{}
	}
	return &Multi{Sinks: sinks, Observe: observe}
}

func (m *Multi) Name() string { return "multi" }

func (m *Multi) Notify(ctx context.Context, msg Message) error {
	errs := make([]error, len(m.Sinks))

	var g errgroup.Group
	for i, sink := range m.Sinks {
		g.Go(func() error {
			err := sink.Notify(ctx, msg)
			if m.Observe != nil {
				m.Observe(sink.Name(), err)
			}
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", sink.Name(), err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}
