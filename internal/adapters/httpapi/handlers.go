package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"github.com/alejandrodnm/quantpro/internal/application/replay"
	"github.com/alejandrodnm/quantpro/internal/domain"
	"github.com/alejandrodnm/quantpro/internal/ports"
)

// Handler sirve el replay sobre la sesión actual. Reload la sustituye de
// forma atómica; las peticiones en curso terminan con la sesión anterior.
type Handler struct {
	session atomic.Pointer[replay.Session]
	source  ports.SnapshotProvider
	params  domain.Params
}

// NewHandler crea el handler con una sesión ya cargada. source puede ser nil
// (sin reload).
func NewHandler(sess *replay.Session, source ports.SnapshotProvider, params domain.Params) *Handler {
	h := &Handler{source: source, params: params}
	h.session.Store(sess)
	return h
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListInstruments handles GET /api/v1/instruments
func (h *Handler) ListInstruments(c *gin.Context) {
	c.JSON(http.StatusOK, toInstrumentsResponse(h.session.Load()))
}

// Replay handles POST /api/v1/replay
func (h *Handler) Replay(c *gin.Context) {
	var req ReplayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}

	view, err := h.session.Load().Replay(c.Request.Context(), replay.Request{
		Instrument: req.Instrument,
		Threshold:  req.Threshold,
		Window:     req.Window,
	})
	if err != nil {
		status, code := classify(err)
		writeError(c, status, code, err)
		return
	}
	c.JSON(http.StatusOK, toReplayResponse(view))
}

// Reload handles POST /api/v1/reload
func (h *Handler) Reload(c *gin.Context) {
	if h.source == nil {
		writeError(c, http.StatusNotImplemented, "RELOAD_DISABLED", errors.New("no snapshot source configured"))
		return
	}

	snap, err := h.source.Load(c.Request.Context())
	if err != nil {
		status, code := classify(err)
		writeError(c, status, code, err)
		return
	}
	sess, err := replay.NewSession(snap, h.params)
	if err != nil {
		status, code := classify(err)
		writeError(c, status, code, err)
		return
	}
	h.session.Store(sess)

	slog.Info("replay session reloaded", "instruments", len(snap.Indices))
	c.JSON(http.StatusOK, ReloadResponse{
		Status:      "reloaded",
		Instruments: len(sess.Instruments()),
		LoadedAt:    sess.LoadedAt(),
	})
}

// classify mapea los errores del replay a status HTTP + código estable.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, replay.ErrInvalidRequest):
		return http.StatusBadRequest, "INVALID_REQUEST"
	case errors.Is(err, domain.ErrMissingInput):
		return http.StatusNotFound, domain.ErrorCode(err)
	case errors.Is(err, domain.ErrMalformedInput):
		return http.StatusUnprocessableEntity, domain.ErrorCode(err)
	default:
		return http.StatusInternalServerError, domain.ErrorCode(err)
	}
}

func writeError(c *gin.Context, status int, code string, err error) {
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "path", c.Request.URL.Path, "err", err)
	}
	c.JSON(status, ErrorResponse{
		Error: ErrorDetail{Code: code, Message: err.Error()},
	})
}
