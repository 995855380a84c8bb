package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Teams posts adaptive cards to an incoming webhook.
type Teams struct {
	// URL returns the current webhook URL. An empty URL disables delivery.
	URL    func() string
	Client *http.Client
}

// NewTeams creates a Teams sink. url is read on every send so a reloaded
// config takes effect without restarting.
func NewTeams(url func() string) *Teams {
	return &Teams{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *Teams) Name() string { return "teams" }

// Notify posts the message. Non-2xx responses are errors.
func (t *Teams) Notify(ctx context.Context, msg Message) error {
	url := t.URL()
	if url == "" {
		return nil
	}

	body, err := CardPayload(msg.Text, msg.Title, msg.Text)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook responded %s", resp.Status)
	}
	return nil
}

// CardPayload renders the webhook message: an adaptive card with a large
// title and a wrapped body, wrapped in a message envelope.
func CardPayload(summary, title, text string) ([]byte, error) {
	payload, err := structpb.NewStruct(map[string]any{
		"type":    "message",
		"summary": summary,
		"attachments": []any{
			map[string]any{
				"contentType": "application/vnd.microsoft.card.adaptive",
				"contentUrl":  nil,
				"content": map[string]any{
					"type": "AdaptiveCard",
					"body": []any{
						map[string]any{
							"type":   "TextBlock",
							"size":   "Large",
							"weight": "Bolder",
							"text":   title,
						},
						map[string]any{
							"type": "TextBlock",
							"text": text,
							"wrap": true,
						},
					},
					"$schema": "http://adaptivecards.io/schemas/adaptive-card.json",
					"version": "1.5",
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build card: %w", err)
	}

	data, err := protojson.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode card: %w", err)
	}
	return data, nil
}
