package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/podsearch/internal/search"
)

// SearchServiceInterface は検索ハンドラーが必要とするサービスインターフェース。
type SearchServiceInterface interface {
	// Search はトレンド取得または検索語検索を行い、そのままJSONにできる応答を返す。
	Search(ctx context.Context, q search.Query) any
}

// SearchHandler はポッドキャスト検索のHTTPハンドラー。
type SearchHandler struct {
	service SearchServiceInterface
}

// NewSearchHandler はSearchHandlerを生成する。
func NewSearchHandler(service SearchServiceInterface) *SearchHandler {
	return &SearchHandler{service: service}
}

// Search はポッドキャストとエピソードを検索する。
// 該当なしも200で{success:false}の応答を返す。
// GET /api/podcasts/search?term=&country=&raw=
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	resp := h.service.Search(r.Context(), search.Query{
		Term:    query.Get("term"),
		Country: query.Get("country"),
		Raw:     query.Get("raw") == "true",
	})
	writeJSON(w, http.StatusOK, resp)
}
