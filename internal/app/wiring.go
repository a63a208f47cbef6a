package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/podsearch/internal/config"
	"github.com/hitoshi/podsearch/internal/database"
	"github.com/hitoshi/podsearch/internal/feed"
	"github.com/hitoshi/podsearch/internal/handler"
	"github.com/hitoshi/podsearch/internal/itunes"
	"github.com/hitoshi/podsearch/internal/metrics"
	"github.com/hitoshi/podsearch/internal/middleware"
	"github.com/hitoshi/podsearch/internal/persistence"
	"github.com/hitoshi/podsearch/internal/repository"
	"github.com/hitoshi/podsearch/internal/retry"
	"github.com/hitoshi/podsearch/internal/search"
	"github.com/hitoshi/podsearch/internal/security"
	"github.com/hitoshi/podsearch/internal/worker/persist"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/supabase-community/supabase-go"
)

// store はバックエンドごとのリポジトリ実装をまとめる。
type store struct {
	histories repository.SearchHistoryRepository
	podcasts  repository.PodcastRepository
	episodes  repository.EpisodeRepository
	tables    repository.TableBrowser
	pinger    repository.Pinger
	close     func() error
}

// openStore は設定されたバックエンドのストアを開き、疎通を確認する。
func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	switch cfg.StoreBackend {
	case config.BackendSupabase:
		client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseKey, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create supabase client: %w", err)
		}
		st := newSupabaseStore(client)
		if err := st.pinger.Ping(ctx); err != nil {
			return nil, fmt.Errorf("failed to reach supabase: %w", err)
		}
		return st, nil
	default:
		db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return newPostgresStore(db), nil
	}
}

func newPostgresStore(db *sql.DB) *store {
	return &store{
		histories: repository.NewPostgresSearchHistoryRepo(db),
		podcasts:  repository.NewPostgresPodcastRepo(db),
		episodes:  repository.NewPostgresEpisodeRepo(db),
		tables:    repository.NewPostgresTableBrowser(db),
		pinger:    repository.NewPostgresPinger(db),
		close:     db.Close,
	}
}

func newSupabaseStore(client repository.PostgrestClient) *store {
	return &store{
		histories: repository.NewSupabaseSearchHistoryRepo(client),
		podcasts:  repository.NewSupabasePodcastRepo(client),
		episodes:  repository.NewSupabaseEpisodeRepo(client),
		tables:    repository.NewSupabaseTableBrowser(client),
		pinger:    repository.NewSupabasePinger(client),
		close:     func() error { return nil },
	}
}

// outbound は外部への通信に使うHTTPクライアント。
// 本番ではSSRFGuardのクライアントを使い、テストではhttptestに向けたクライアントに差し替える。
type outbound struct {
	itunes    *http.Client
	feed      *http.Client
	validator security.URLValidator
}

func safeOutbound(cfg *config.Config) outbound {
	guard := security.NewSSRFGuard()
	return outbound{
		itunes:    guard.NewSafeClient(cfg.ITunesTimeout),
		feed:      guard.NewSafeClient(cfg.FeedTimeout),
		validator: guard,
	}
}

// application はHTTPハンドラーとそのライフサイクルを持つコンポーネントをまとめる。
type application struct {
	handler    http.Handler
	dispatcher *persist.Dispatcher
	limiter    *middleware.RateLimiter
}

// newApplication は全依存関係をワイヤリングする。ディスパッチャーは起動しない。
func newApplication(cfg *config.Config, st *store, out outbound, logger *slog.Logger) *application {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	httpClient := out.itunes
	opts := itunes.Options{
		BaseURL:   cfg.ITunesBaseURL,
		Country:   cfg.ITunesCountry,
		UserAgent: cfg.ITunesUserAgent,
		Limit:     cfg.ITunesSearchLimit,
		Retry: retry.Policy{
			MaxAttempts: cfg.ITunesMaxRetries,
			BaseDelay:   cfg.ITunesRetryDelay,
		},
		Limiter: itunes.NewLimiter(cfg.ITunesRateLimit),
		Metrics: collector,
		Logger:  logger,
	}
	if cfg.ITunesHTTPCache {
		httpClient, opts.Cache = itunes.NewCachingHTTPClient(httpClient)
	}
	upstream := itunes.NewClient(httpClient, opts)

	dispatcher := persist.NewDispatcher(persist.Options{
		QueueSize:  cfg.PersistQueueSize,
		Workers:    cfg.PersistWorkers,
		JobTimeout: cfg.PersistJobTimeout,
		Logger:     logger,
		Metrics:    collector,
	})

	saver := persistence.NewService(st.histories, st.podcasts, st.episodes, persistence.Options{
		DedupStrategy: cfg.DedupStrategy,
		Sanitizer:     security.NewContentSanitizer(),
		Metrics:       collector,
	})

	loader := feed.NewEpisodeLoader(out.feed, out.validator, cfg.FeedMaxSize)

	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral))

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            logger,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       limiter,
		Search:            search.NewService(upstream, saver, dispatcher, cfg.ITunesCountry),
		Podcasts:          search.NewPodcastService(upstream, loader, saver, dispatcher),
		Library:           saver,
		Tables:            st.tables,
		Pinger:            st.pinger,
		Metrics:           metrics.Handler(registry),
	})

	return &application{
		handler:    router,
		dispatcher: dispatcher,
		limiter:    limiter,
	}
}

// shutdown は保存ジョブを期限内に処理し切ってからバックグラウンド処理を止める。
// HTTPサーバーの停止後に呼ぶこと。
func (a *application) shutdown(ctx context.Context) error {
	defer a.limiter.Stop()

	start := time.Now()
	if err := a.dispatcher.Shutdown(ctx); err != nil {
		return fmt.Errorf("persist dispatcher shutdown: %w", err)
	}
	slog.Info("persist dispatcher drained", slog.Duration("elapsed", time.Since(start)))
	return nil
}
