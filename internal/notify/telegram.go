package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"
)

const (
	telegramAPI = "https://api.telegram.org"
	// telegramMaxBody keeps rendered text under the 4096 character
	// sendMessage limit once the title and fields are added.
	telegramMaxBody = 3500
)

// TelegramSender posts alerts to an operator chat through a bot. Messages use
// HTML formatting so listing titles never need Markdown escaping.
type TelegramSender struct {
	baseURL    string
	token      string
	chatID     string
	storefront string
	client     *http.Client
}

type telegramMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableNotification   bool   `json:"disable_notification,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// telegramResult is the envelope every Bot API call returns.
type telegramResult struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// NewTelegramSender creates a TelegramSender for the bot token and chat ID.
// storefront heads every message.
func NewTelegramSender(token, chatID, storefront string) *TelegramSender {
	return &TelegramSender{
		baseURL:    telegramAPI,
		token:      token,
		chatID:     chatID,
		storefront: storefront,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Send calls sendMessage. Quiet notifications arrive without a sound.
func (t *TelegramSender) Send(ctx context.Context, n Notification) error {
	body, err := json.Marshal(telegramMessage{
		ChatID:                t.chatID,
		Text:                  t.render(n),
		ParseMode:             "HTML",
		DisableNotification:   n.Quiet,
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("telegram: marshal message: %w", err)
	}

	url := t.baseURL + "/bot" + t.token + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send %s: %w", n.Event, err)
	}
	defer resp.Body.Close()

	var res telegramResult
	_ = json.NewDecoder(resp.Body).Decode(&res)
	if resp.StatusCode != http.StatusOK || !res.OK {
		return fmt.Errorf("telegram: send %s: status %d: %s", n.Event, resp.StatusCode, res.Description)
	}
	return nil
}

// render formats n as Telegram HTML: a bold storefront and title line, the
// body, then one line per field.
func (t *TelegramSender) render(n Notification) string {
	body := truncate(n.Body, telegramMaxBody)

	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b> | %s\n%s",
		html.EscapeString(t.storefront), html.EscapeString(n.Title), html.EscapeString(body))
	for _, f := range n.Fields {
		fmt.Fprintf(&b, "\n<b>%s:</b> <code>%s</code>", html.EscapeString(f.Name), html.EscapeString(f.Value))
	}
	return b.String()
}

// Name returns the sender identifier.
func (t *TelegramSender) Name() string {
	return "telegram"
}
