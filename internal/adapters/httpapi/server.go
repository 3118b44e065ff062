package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 5 * time.Second

// Config del servidor de replay.
type Config struct {
	Addr           string
	AllowedOrigins []string
	Release        bool // gin.ReleaseMode
}

// NewRouter monta las rutas del replay sobre un engine de gin.
func NewRouter(h *Handler, cfg Config) *gin.Engine {
	router := gin.New()
	router.Use(ErrorHandler())
	router.Use(CORS(cfg.AllowedOrigins))
	router.Use(Logger())

	router.GET("/health", h.Health)

	api := router.Group("/api/v1")
	{
		api.GET("/instruments", h.ListInstruments)
		api.POST("/replay", h.Replay)
		api.POST("/reload", h.Reload)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: ErrorDetail{Code: "NOT_FOUND", Message: "Not found"},
		})
	})
	return router
}

// Serve arranca el servidor y bloquea hasta que ctx se cancela; entonces
// hace un shutdown ordenado.
func Serve(ctx context.Context, h *Handler, cfg Config) error {
	if cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(h, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("replay server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("httpapi.Serve: listen %s: %w", cfg.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	slog.Info("replay server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("httpapi.Serve: shutdown: %w", err)
	}
	return nil
}
