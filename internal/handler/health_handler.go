package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// healthTimeout はヘルスチェックでストアに問い合わせる際の上限時間。
const healthTimeout = 3 * time.Second

// Pinger はストアの疎通確認インターフェース。
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler はヘルスチェックのHTTPハンドラー。
type HealthHandler struct {
	pinger Pinger
}

// NewHealthHandler はHealthHandlerを生成する。
func NewHealthHandler(pinger Pinger) *HealthHandler {
	return &HealthHandler{pinger: pinger}
}

// Health はストアに到達できれば200、できなければ503を返す。
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := h.pinger.Ping(ctx); err != nil {
		slog.Warn("health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
