package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/quantpro/internal/domain"
)

const (
	defaultTelegramBase = "https://api.telegram.org"

	// Telegram permite ~1 msg/s por chat.
	telegramRatePerSec = 1

	telegramMaxRetries = 3
	telegramRetryWait  = 500 * time.Millisecond

	separator = "───────────────────"
)

// Telegram envía el reporte a un chat vía Bot API. Implementa ports.Notifier.
type Telegram struct {
	http         *http.Client
	base         string
	token        string
	chatID       string
	dashboardURL string
	limiter      *rate.Limiter
}

// NewTelegram crea un notificador contra la API de producción.
func NewTelegram(token, chatID, dashboardURL string) *Telegram {
	return NewTelegramWithBase(defaultTelegramBase, token, chatID, dashboardURL)
}

// NewTelegramWithBase permite apuntar a otro host (tests).
func NewTelegramWithBase(base, token, chatID, dashboardURL string) *Telegram {
	return &Telegram{
		http:         &http.Client{Timeout: 10 * time.Second},
		base:         strings.TrimRight(base, "/"),
		token:        token,
		chatID:       chatID,
		dashboardURL: dashboardURL,
		limiter:      rate.NewLimiter(telegramRatePerSec, 1),
	}
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Notify formatea y envía el reporte.
func (t *Telegram) Notify(ctx context.Context, r domain.Report) error {
	text := FormatTelegram(r, t.dashboardURL)
	if err := t.send(ctx, text); err != nil {
		return fmt.Errorf("notify.Telegram.Notify: %w", err)
	}
	slog.Info("telegram report sent", "chat_id", t.chatID, "instruments", len(r.Instruments))
	return nil
}

func (t *Telegram) send(ctx context.Context, text string) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:    t.chatID,
		Text:      text,
		ParseMode: "Markdown",
	})
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.base, t.token)

	for attempt := 0; attempt <= telegramMaxRetries; attempt++ {
		if err := t.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := t.http.Do(req)
		if err != nil {
			if attempt == telegramMaxRetries {
				return fmt.Errorf("request failed after %d retries: %w", telegramMaxRetries, err)
			}
			t.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			slog.Warn("telegram retry", "status", resp.StatusCode, "attempt", attempt+1)
			if attempt == telegramMaxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, telegramMaxRetries)
			}
			t.sleep(ctx, attempt)
			continue
		}

		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()

		var out sendMessageResponse
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("status %d: decode response: %w", resp.StatusCode, err)
		}
		if resp.StatusCode >= 400 || !out.OK {
			return fmt.Errorf("telegram rejected message (%d): %s", resp.StatusCode, out.Description)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", telegramMaxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (t *Telegram) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * telegramRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}

// FormatTelegram arma el mensaje Markdown del reporte.
func FormatTelegram(r domain.Report, dashboardURL string) string {
	var sb strings.Builder
	if dashboardURL != "" {
		fmt.Fprintf(&sb, "🌐 *DASHBOARD LIVE:* [OPEN](%s)\n", dashboardURL)
	}
	sb.WriteString("🏛 *QUANT-PRO STRATEGY REPORT*\n")
	fmt.Fprintf(&sb, "📊 Average momentum: *%.2f%%*\n", r.LiveMomentum)
	sb.WriteString(separator + "\n")

	for _, ir := range r.Instruments {
		fmt.Fprintf(&sb, "*%s*\n", escapeMarkdown(ir.Name))
		fmt.Fprintf(&sb, "🎯 Signal: %s %s\n", ir.Signal, ir.Signal.Icon())
		fmt.Fprintf(&sb, "📍 Entry: *%s*\n\n", money(ir.Entry, 1))

		if len(ir.Recent) > 0 {
			sb.WriteString("📊 *Last trades:*\n")
			for _, t := range ir.Recent {
				fmt.Fprintf(&sb, "• %s (%s): *%s€*\n", t.Date.Format("2006-01-02"), t.Direction, money(t.PnL, 0))
			}
			sb.WriteString("\n")
		}
		if len(ir.Yearly) > 0 {
			sb.WriteString("📅 *Yearly:*\n")
			for _, y := range ir.Yearly {
				fmt.Fprintf(&sb, "• %d: %s€ | PF %.2f | %d trades\n", y.Year, signedMoney(y.TotalPnL, 0), y.ProfitFactor, y.Trades())
			}
			sb.WriteString("\n")
		}
	}

	for _, f := range r.Skipped {
		fmt.Fprintf(&sb, "⚠️ %s not available (%s)\n", escapeMarkdown(f.Key), f.Code)
	}
	sb.WriteString(separator + "\n")
	return sb.String()
}

var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
