package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/podsearch/internal/model"
	"github.com/hitoshi/podsearch/internal/search"
)

const msgInvalidCollectionID = "Invalid collection ID"

// PodcastServiceInterface は個別ポッドキャストハンドラーが必要とするサービスインターフェース。
type PodcastServiceInterface interface {
	Podcast(ctx context.Context, collectionID int64) (*model.Podcast, error)
	Episodes(ctx context.Context, collectionID int64) (*search.PodcastEpisodes, error)
}

// PodcastHandler は個別ポッドキャストのHTTPハンドラー。
type PodcastHandler struct {
	service PodcastServiceInterface
}

// NewPodcastHandler はPodcastHandlerを生成する。
func NewPodcastHandler(service PodcastServiceInterface) *PodcastHandler {
	return &PodcastHandler{service: service}
}

type podcastResponse struct {
	Success bool           `json:"success"`
	Podcast *model.Podcast `json:"podcast"`
}

type podcastEpisodesResponse struct {
	Success bool `json:"success"`
	*search.PodcastEpisodes
}

// GetPodcast はcollectionIdのポッドキャストを返す。
// GET /api/podcasts/{collectionId}
func (h *PodcastHandler) GetPodcast(w http.ResponseWriter, r *http.Request) {
	id, ok := collectionIDParam(w, r)
	if !ok {
		return
	}

	p, err := h.service.Podcast(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, podcastResponse{Success: true, Podcast: p})
}

// GetEpisodes はポッドキャストのRSSフィードから読み込んだエピソードを返す。
// GET /api/podcasts/{collectionId}/episodes
func (h *PodcastHandler) GetEpisodes(w http.ResponseWriter, r *http.Request) {
	id, ok := collectionIDParam(w, r)
	if !ok {
		return
	}

	res, err := h.service.Episodes(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if res.Episodes == nil {
		res.Episodes = []model.Episode{}
	}
	writeJSON(w, http.StatusOK, podcastEpisodesResponse{Success: true, PodcastEpisodes: res})
}

func collectionIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "collectionId"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, msgInvalidCollectionID)
		return 0, false
	}
	return id, true
}
