package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"papertrade/internal/domain"
	"papertrade/internal/utils"
)

// DefaultAPIBase is the Telegram Bot API endpoint
const DefaultAPIBase = "https://api.telegram.org"

// NotificationService posts committed ledger events to a Telegram chat
type NotificationService struct {
	botToken   string
	chatID     string
	enabled    bool
	apiBase    string
	location   *time.Location
	httpClient *http.Client
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// NewNotificationService creates a notifier. It is a no-op unless both botToken and chatID are set.
func NewNotificationService(botToken, chatID string) *NotificationService {
	return &NotificationService{
		botToken: botToken,
		chatID:   chatID,
		enabled:  botToken != "" && chatID != "",
		apiBase:  DefaultAPIBase,
		location: utils.GetLocation(),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// WithAPIBase points the notifier at another Bot API host
func (s *NotificationService) WithAPIBase(base string) *NotificationService {
	s.apiBase = strings.TrimRight(base, "/")
	return s
}

// Enabled reports whether messages are actually sent
func (s *NotificationService) Enabled() bool {
	return s.enabled
}

// Publish sends a message describing event
func (s *NotificationService) Publish(ctx context.Context, event domain.TradeEvent) error {
	if !s.enabled {
		return nil // Silently skip if Telegram is not configured
	}
	return s.sendMessage(ctx, FormatEvent(event, s.location))
}

// FormatEvent renders event as a Markdown message
func FormatEvent(event domain.TradeEvent, loc *time.Location) string {
	when := event.OccurredAt.In(loc).Format("2006-01-02 15:04:05")

	switch event.Type {
	case domain.EventTradeBuy, domain.EventTradeSell:
		verb := "BOUGHT"
		if event.Type == domain.EventTradeSell {
			verb = "SOLD"
		}
		price := "-"
		if event.Price != nil {
			price = event.Price.Format()
		}
		return fmt.Sprintf(
			"*%s %d %s*\n"+
				"Price: `%s`\n"+
				"Total: `%s`\n"+
				"Cash: `%s`\n"+
				"Time: `%s`",
			verb, event.Shares, event.Symbol,
			price,
			event.Amount.Format(),
			event.Balance.Format(),
			when,
		)
	default:
		return fmt.Sprintf(
			"*CASH DEPOSIT*\n"+
				"Amount: `%s`\n"+
				"Cash: `%s`\n"+
				"Time: `%s`",
			event.Amount.Format(),
			event.Balance.Format(),
			when,
		)
	}
}

// sendMessage sends a message to Telegram using the Bot API
func (s *NotificationService) sendMessage(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, s.botToken)

	payload := telegramMessage{
		ChatID:    s.chatID,
		Text:      text,
		ParseMode: "Markdown",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal telegram message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API error (status %d): %s", resp.StatusCode, string(body))
	}

	return nil
}

var _ domain.EventPublisher = (*NotificationService)(nil)
