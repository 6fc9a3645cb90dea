package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/voxa/internal/middleware"
)

const healthCheckTimeout = 2 * time.Second

// HealthChecker はデータベースの疎通確認を行う。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// PageHandler は静的な画面とヘルスチェックのHTTPハンドラー。
type PageHandler struct {
	renderer *Renderer
	health   HealthChecker
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler(renderer *Renderer, health HealthChecker) *PageHandler {
	return &PageHandler{renderer: renderer, health: health}
}

// Start はトップページを表示する。ログイン済みなら /home へ送る。
// GET /
func (h *PageHandler) Start(w http.ResponseWriter, r *http.Request) {
	if middleware.AccountFromContext(r.Context()) != nil {
		http.Redirect(w, r, "/home", http.StatusSeeOther)
		return
	}
	h.renderer.Render(w, http.StatusOK, pageStart, newPageData(r, "voxa", nil))
}

// Home はログイン後のホーム画面を表示する。
// GET /home
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, http.StatusOK, pageHome, newPageData(r, "Home", nil))
}

// Health はDBへの疎通を確認する。
// GET /health
func (h *PageHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if err := h.health.PingContext(ctx); err != nil {
		slog.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
