package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hitoshi/podsearch/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	Search   SearchServiceInterface
	Podcasts PodcastServiceInterface
	Library  LibraryServiceInterface
	Tables   TableBrowser
	Pinger   Pinger

	// Metrics は/metricsで公開するハンドラー。nilの場合はルートを登録しない。
	Metrics http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RealIP → Recovery → Logging → SecurityHeaders → CORS → RateLimit
//
// /healthと/metricsはレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", NewHealthHandler(deps.Pinger).Health)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	searchHandler := NewSearchHandler(deps.Search)
	podcastHandler := NewPodcastHandler(deps.Podcasts)
	libraryHandler := NewLibraryHandler(deps.Library)
	adminHandler := NewAdminHandler(deps.Tables)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware())
		}

		r.Route("/podcasts", func(r chi.Router) {
			r.Get("/search", searchHandler.Search)
			r.Route("/{collectionId}", func(r chi.Router) {
				r.Get("/", podcastHandler.GetPodcast)
				r.Get("/episodes", podcastHandler.GetEpisodes)
			})
		})

		r.Route("/library", func(r chi.Router) {
			r.Get("/history", libraryHandler.History)
			r.Get("/podcasts", libraryHandler.Podcasts)
			r.Get("/episodes", libraryHandler.Episodes)
		})

		r.Route("/admin/database", func(r chi.Router) {
			r.Get("/tables", adminHandler.ListTables)
			r.Get("/table/{tableName}", adminHandler.GetTable)
		})
	})

	return r
}
