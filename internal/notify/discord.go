package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Discord webhook limits and flags.
const (
	discordMaxDescription = 4096
	discordMaxFieldValue  = 1024
	discordSuppressNotify = 1 << 12
)

// Embed colours per notification event.
var discordColors = map[string]int{
	EventTransactionCompleted: 0x2ECC71,
	EventTierUpgraded:         0x3498DB,
	EventSessionCreated:       0x95A5A6,
}

// DiscordSender posts alerts as embeds to a channel webhook.
type DiscordSender struct {
	webhookURL string
	storefront string
	client     *http.Client
}

type discordWebhook struct {
	Username string         `json:"username"`
	Embeds   []discordEmbed `json:"embeds"`
	Flags    int            `json:"flags,omitempty"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Color       int            `json:"color,omitempty"`
	Fields      []discordField `json:"fields,omitempty"`
	Footer      discordFooter  `json:"footer"`
	Timestamp   string         `json:"timestamp,omitempty"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordFooter struct {
	Text string `json:"text"`
}

// NewDiscordSender creates a DiscordSender posting to webhookURL under the
// storefront name.
func NewDiscordSender(webhookURL, storefront string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		storefront: storefront,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts n as a single embed. Quiet notifications suppress pings.
func (d *DiscordSender) Send(ctx context.Context, n Notification) error {
	body, err := json.Marshal(d.webhook(n))
	if err != nil {
		return fmt.Errorf("discord: marshal webhook: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord: send %s: %w", n.Event, err)
	}
	defer resp.Body.Close()

	// 204 No Content on success.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("discord: send %s: status %d: %s", n.Event, resp.StatusCode, respBody)
	}
	return nil
}

func (d *DiscordSender) webhook(n Notification) discordWebhook {
	embed := discordEmbed{
		Title:       n.Title,
		Description: truncate(n.Body, discordMaxDescription),
		Color:       discordColors[n.Event],
		Footer:      discordFooter{Text: d.storefront},
	}
	if !n.At.IsZero() {
		embed.Timestamp = n.At.UTC().Format(time.RFC3339)
	}
	for _, f := range n.Fields {
		embed.Fields = append(embed.Fields, discordField{
			Name:   f.Name,
			Value:  truncate(f.Value, discordMaxFieldValue),
			Inline: len(f.Value) <= 24,
		})
	}

	w := discordWebhook{Username: d.storefront, Embeds: []discordEmbed{embed}}
	if n.Quiet {
		w.Flags = discordSuppressNotify
	}
	return w
}

func truncate(s string, limit int) string {
	if r := []rune(s); len(r) > limit {
		return string(r[:limit-1]) + "…"
	}
	return s
}

// Name returns the sender identifier.
func (d *DiscordSender) Name() string {
	return "discord"
}
