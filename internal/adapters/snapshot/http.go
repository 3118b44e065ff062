package snapshot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/quantpro/internal/domain"
)

const (
	// El dashboard es un sitio estático: 1 req/s es de sobra.
	fetchRatePerSec = 1

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
	maxBodyBytes  = 64 << 20
)

// HTTPSource descarga el snapshot publicado (JSON o dashboard HTML)
// con rate limiting y retries.
type HTTPSource struct {
	http    *http.Client
	url     string
	limiter *rate.Limiter
}

// NewHTTPSource crea un HTTPSource contra url.
func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{
		http:    &http.Client{Timeout: 15 * time.Second},
		url:     url,
		limiter: rate.NewLimiter(fetchRatePerSec, 2),
	}
}

// Load implementa ports.SnapshotProvider.
func (h *HTTPSource) Load(ctx context.Context) (domain.Snapshot, error) {
	data, err := h.fetch(ctx)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("snapshot.HTTPSource.Load: %w", err)
	}
	snap, err := decodeAny(data)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("snapshot.HTTPSource.Load: %w", err)
	}
	slog.Debug("snapshot fetched", "url", h.url, "instruments", len(snap.Indices))
	return snap, nil
}

// fetch hace el GET con backoff exponencial ante errores de red, 429 y 5xx.
func (h *HTTPSource) fetch(ctx context.Context) ([]byte, error) {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := h.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := h.http.Do(req)
		if err != nil {
			if attempt == maxRetries {
				return nil, fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			h.sleep(ctx, attempt)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			resp.Body.Close()
			return nil, domain.MissingInput("", "snapshot not published at %s", h.url)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			resp.Body.Close()
			slog.Warn("snapshot fetch retry", "status", resp.StatusCode, "attempt", attempt+1)
			if attempt == maxRetries {
				return nil, fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			h.sleep(ctx, attempt)
			continue
		case resp.StatusCode >= 400:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return nil, fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return body, nil
	}
	return nil, fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (h *HTTPSource) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
