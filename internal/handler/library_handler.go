package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/hitoshi/podsearch/internal/model"
)

// LibraryServiceInterface は保存済みデータの読み出しに使うサービスインターフェース。
// limitが0以下の場合はサービス側の既定値を使う。
type LibraryServiceInterface interface {
	GetSearchHistory(ctx context.Context, limit int) ([]model.SearchHistory, error)
	GetSavedPodcasts(ctx context.Context, limit int) ([]model.Podcast, error)
	GetSavedEpisodes(ctx context.Context, limit int) ([]model.Episode, error)
}

// LibraryHandler は保存済みの検索履歴、ポッドキャスト、エピソードを返すHTTPハンドラー。
type LibraryHandler struct {
	service LibraryServiceInterface
}

// NewLibraryHandler はLibraryHandlerを生成する。
func NewLibraryHandler(service LibraryServiceInterface) *LibraryHandler {
	return &LibraryHandler{service: service}
}

// History は検索履歴を新しい順に返す。
// GET /api/library/history?limit=
func (h *LibraryHandler) History(w http.ResponseWriter, r *http.Request) {
	history, err := h.service.GetSearchHistory(r.Context(), limitParam(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if history == nil {
		history = []model.SearchHistory{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "history": history})
}

// Podcasts は保存済みのポッドキャストを新しい順に返す。
// GET /api/library/podcasts?limit=
func (h *LibraryHandler) Podcasts(w http.ResponseWriter, r *http.Request) {
	podcasts, err := h.service.GetSavedPodcasts(r.Context(), limitParam(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if podcasts == nil {
		podcasts = []model.Podcast{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "podcasts": podcasts})
}

// Episodes は保存済みのエピソードを新しい順に返す。
// GET /api/library/episodes?limit=
func (h *LibraryHandler) Episodes(w http.ResponseWriter, r *http.Request) {
	episodes, err := h.service.GetSavedEpisodes(r.Context(), limitParam(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if episodes == nil {
		episodes = []model.Episode{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "episodes": episodes})
}

// limitParam はlimitクエリを読む。不正値や上限超過は0（既定値）として扱う。
func limitParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 || n > maxPageSize {
		return 0
	}
	return n
}
