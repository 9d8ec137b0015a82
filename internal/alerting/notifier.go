package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"windwatch/internal/units"
)

// Notification carries the context of a storm alert.
type Notification struct {
	ID          string
	Label       units.Label
	StationName string
	WindKt      float64
	// DirectionDeg is nil when the station did not report a direction.
	DirectionDeg *float64
	ObservedAt   string
}

// Notifier delivers alerts.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// NopNotifier drops notifications. Used when alert delivery is not configured.
type NopNotifier struct {
	Logger zerolog.Logger
}

// Notify logs and discards the notification.
func (n NopNotifier) Notify(_ context.Context, note Notification) error {
	n.Logger.Debug().Str("alert_id", note.ID).Str("label", string(note.Label)).Msg("alert delivery disabled; notification dropped")
	return nil
}

// TelegramNotifier pushes messages through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify calls sendMessage with an HTML-formatted alert.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]any{
		"chat_id":                  n.chatID,
		"text":                     RenderMessage(note),
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false: %s", result.Description)
		}
	}

	n.logger.Info().Str("alert_id", note.ID).
		Str("label", string(note.Label)).
		Float64("wind_kt", note.WindKt).
		Msg("alert sent (Telegram)")
	return nil
}

// RenderMessage formats the alert text in Telegram HTML.
func RenderMessage(note Notification) string {
	direction := "-"
	if note.DirectionDeg != nil {
		direction = decimal.NewFromFloat(*note.DirectionDeg).String()
	}

	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("⚠️ <b>%s</b>\n", html.EscapeString(string(note.Label))))
	builder.WriteString(fmt.Sprintf("<b>%s</b>\n", html.EscapeString(note.StationName)))
	builder.WriteString(fmt.Sprintf("Wind: <b>%s kt</b>\n", decimal.NewFromFloat(note.WindKt).StringFixed(1)))
	builder.WriteString(fmt.Sprintf("Direction: %s°\n", direction))
	builder.WriteString(fmt.Sprintf("Time: %s", html.EscapeString(note.ObservedAt)))
	return builder.String()
}

var (
	_ Notifier = (*TelegramNotifier)(nil)
	_ Notifier = NopNotifier{}
)
