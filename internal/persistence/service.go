// Package persistence は検索結果を検索履歴・ポッドキャスト・エピソードとして保存する。
// 行単位の失敗はログに記録して読み飛ばし、バッチ全体は中断しない。
package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/podsearch/internal/metrics"
	"github.com/hitoshi/podsearch/internal/model"
	"github.com/hitoshi/podsearch/internal/repository"
	"github.com/hitoshi/podsearch/internal/security"
)

// 重複排除戦略。
const (
	// DedupAlwaysInsert は保存のたびに新しいIDで行を作成する。
	DedupAlwaysInsert = "always_insert"
	// DedupCollectionID は同じcollectionIdの既存行があればそのIDを再利用して上書きする。
	DedupCollectionID = "collection_id"
)

// 読み取り操作のデフォルト件数。
const (
	DefaultHistoryLimit = 10
	DefaultPodcastLimit = 50
	DefaultEpisodeLimit = 50
)

// スタブ行のデフォルト値。
const (
	stubCollectionName = "Unknown Podcast"
	stubArtistName     = "Unknown Artist"
)

// SaveResult はSaveTopPodcasts/SaveSearchResultsの結果。
// SavedPodcastsには実際に保存できたポッドキャストのみが含まれる。
type SaveResult struct {
	SearchHistory model.SearchHistory
	SavedPodcasts []model.Podcast
}

// Options はServiceの任意設定。
type Options struct {
	DedupStrategy string
	Sanitizer     security.ContentSanitizer
	Metrics       metrics.MetricsCollector
}

// Service は永続化サービス。行の書き込みは逐次に行う。
type Service struct {
	histories repository.SearchHistoryRepository
	podcasts  repository.PodcastRepository
	episodes  repository.EpisodeRepository

	dedup     string
	sanitizer security.ContentSanitizer
	metrics   metrics.MetricsCollector

	newID func() string
	now   func() time.Time
}

// NewService はServiceを生成する。未指定のオプションにはデフォルトを使う。
func NewService(
	histories repository.SearchHistoryRepository,
	podcasts repository.PodcastRepository,
	episodes repository.EpisodeRepository,
	opts Options,
) *Service {
	s := &Service{
		histories: histories,
		podcasts:  podcasts,
		episodes:  episodes,
		dedup:     opts.DedupStrategy,
		sanitizer: opts.Sanitizer,
		metrics:   opts.Metrics,
		newID:     uuid.NewString,
		now:       time.Now,
	}
	if s.dedup == "" {
		s.dedup = DedupAlwaysInsert
	}
	if s.sanitizer == nil {
		s.sanitizer = security.NewContentSanitizer()
	}
	if s.metrics == nil {
		s.metrics = metrics.Nop{}
	}
	return s
}

// IsValidDedupStrategy は重複排除戦略名が有効かを判定する。
func IsValidDedupStrategy(s string) bool {
	return s == DedupAlwaysInsert || s == DedupCollectionID
}

// SaveTopPodcasts はトレンド取得結果をキャッシュキーの検索履歴とともに保存する。
func (s *Service) SaveTopPodcasts(ctx context.Context, cacheKey string, podcasts []model.Podcast) (*SaveResult, error) {
	return s.saveWithHistory(ctx, cacheKey, podcasts)
}

// SaveSearchResults は検索語の検索結果を検索履歴とともに保存する。
func (s *Service) SaveSearchResults(ctx context.Context, term string, podcasts []model.Podcast) (*SaveResult, error) {
	return s.saveWithHistory(ctx, term, podcasts)
}

// saveWithHistory は検索履歴を1行保存し、続けて各ポッドキャストを保存する。
// 検索履歴の保存失敗はDATABASE_ERRORとして返し、ポッドキャストは保存しない。
func (s *Service) saveWithHistory(ctx context.Context, term string, podcasts []model.Podcast) (*SaveResult, error) {
	now := s.now()
	history := model.SearchHistory{
		ID:          s.newID(),
		Term:        term,
		ResultCount: len(podcasts),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.histories.Upsert(ctx, &history); err != nil {
		s.metrics.RecordRowFailed(model.TableSearchHistory)
		slog.Error("検索履歴の保存に失敗しました",
			slog.String("term", term),
			slog.String("error", err.Error()),
		)
		return nil, model.NewDatabaseError(fmt.Errorf("failed to save search history: %w", err))
	}
	s.metrics.RecordRowSaved(model.TableSearchHistory)

	saved := make([]model.Podcast, 0, len(podcasts))
	for _, p := range podcasts {
		stored, err := s.savePodcast(ctx, p, history.ID, now)
		if err != nil {
			s.metrics.RecordRowFailed(model.TablePodcasts)
			slog.Error("ポッドキャストの保存に失敗しました",
				slog.String("table", model.TablePodcasts),
				slog.String("collection_name", p.CollectionName),
				slog.Int64("collection_id", p.CollectionID),
				slog.String("error", err.Error()),
			)
			continue
		}
		s.metrics.RecordRowSaved(model.TablePodcasts)
		saved = append(saved, stored)
	}

	return &SaveResult{SearchHistory: history, SavedPodcasts: saved}, nil
}

func (s *Service) savePodcast(ctx context.Context, p model.Podcast, searchHistoryID string, now time.Time) (model.Podcast, error) {
	id, err := s.podcastID(ctx, p.CollectionID)
	if err != nil {
		return model.Podcast{}, err
	}

	p.ID = id
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.GenreIDs == nil {
		p.GenreIDs = []string{}
	}
	if p.Genres == nil {
		p.Genres = []string{}
	}
	p.Episodes = []model.Episode{}

	if err := s.podcasts.Upsert(ctx, &p, searchHistoryID); err != nil {
		return model.Podcast{}, err
	}
	return p, nil
}

// podcastID は保存に使う内部IDを決める。
func (s *Service) podcastID(ctx context.Context, collectionID int64) (string, error) {
	if s.dedup != DedupCollectionID {
		return s.newID(), nil
	}
	existing, err := s.podcasts.FindIDByCollectionID(ctx, collectionID)
	if err != nil {
		return "", err
	}
	if existing != "" {
		return existing, nil
	}
	return s.newID(), nil
}

// SaveEpisodes は各エピソードの所属ポッドキャストを解決してから保存する。
// 所属ポッドキャストが存在しない場合は最小限のスタブ行を作成する。
func (s *Service) SaveEpisodes(ctx context.Context, episodes []model.Episode) ([]model.Episode, error) {
	now := s.now()
	saved := make([]model.Episode, 0, len(episodes))

	for _, e := range episodes {
		stored, err := s.saveEpisode(ctx, e, now)
		if err != nil {
			s.metrics.RecordRowFailed(model.TableEpisodes)
			slog.Error("エピソードの保存に失敗しました",
				slog.String("table", model.TableEpisodes),
				slog.String("title", e.Title),
				slog.String("podcast_id", e.PodcastID),
				slog.String("error", err.Error()),
			)
			continue
		}
		s.metrics.RecordRowSaved(model.TableEpisodes)
		saved = append(saved, stored)
	}

	return saved, nil
}

func (s *Service) saveEpisode(ctx context.Context, e model.Episode, now time.Time) (model.Episode, error) {
	collectionID, err := strconv.ParseInt(strings.TrimSpace(e.PodcastID), 10, 64)
	if err != nil {
		return model.Episode{}, fmt.Errorf("invalid collection id %q: %w", e.PodcastID, err)
	}

	podcastID, err := s.podcasts.FindIDByCollectionID(ctx, collectionID)
	if err != nil {
		return model.Episode{}, err
	}
	if podcastID == "" {
		podcastID, err = s.createStub(ctx, e, collectionID, now)
		if err != nil {
			return model.Episode{}, err
		}
	}

	e.ID = s.newID()
	e.PodcastID = podcastID
	e.CreatedAt = now
	e.UpdatedAt = now
	if e.Description != nil {
		e.Description = model.StringPtr(s.sanitizer.Sanitize(*e.Description))
	}

	if err := s.episodes.Upsert(ctx, &e); err != nil {
		return model.Episode{}, err
	}
	return e, nil
}

func (s *Service) createStub(ctx context.Context, e model.Episode, collectionID int64, now time.Time) (string, error) {
	slog.Info("所属ポッドキャストが存在しないためスタブを作成します",
		slog.Int64("collection_id", collectionID),
		slog.String("title", e.Title),
	)

	stub := &repository.PodcastStub{
		ID:             s.newID(),
		CollectionID:   collectionID,
		CollectionName: orDefault(e.PodcastName, stubCollectionName),
		ArtistName:     orDefault(e.PodcastArtist, stubArtistName),
		TrackName:      e.Title,
		TrackViewURL:   e.TrackViewURL,
		ArtworkURL600:  e.PodcastArtwork,
		CreatedAt:      now,
	}
	if err := s.podcasts.InsertStub(ctx, stub); err != nil {
		s.metrics.RecordRowFailed(model.TablePodcasts)
		return "", fmt.Errorf("failed to create podcast stub: %w", err)
	}
	s.metrics.RecordRowSaved(model.TablePodcasts)
	return stub.ID, nil
}

// GetSearchHistory は最近の検索履歴を返す。limitが0以下の場合は10件。
func (s *Service) GetSearchHistory(ctx context.Context, limit int) ([]model.SearchHistory, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := s.histories.ListRecent(ctx, limit)
	if err != nil {
		return nil, model.NewDatabaseError(fmt.Errorf("failed to fetch search history: %w", err))
	}
	return rows, nil
}

// GetSavedPodcasts は最近保存されたポッドキャストを返す。limitが0以下の場合は50件。
func (s *Service) GetSavedPodcasts(ctx context.Context, limit int) ([]model.Podcast, error) {
	if limit <= 0 {
		limit = DefaultPodcastLimit
	}
	rows, err := s.podcasts.ListRecent(ctx, limit)
	if err != nil {
		return nil, model.NewDatabaseError(fmt.Errorf("failed to fetch saved podcasts: %w", err))
	}
	return rows, nil
}

// GetSavedEpisodes は最近保存されたエピソードを返す。limitが0以下の場合は50件。
func (s *Service) GetSavedEpisodes(ctx context.Context, limit int) ([]model.Episode, error) {
	if limit <= 0 {
		limit = DefaultEpisodeLimit
	}
	rows, err := s.episodes.ListRecent(ctx, limit)
	if err != nil {
		return nil, model.NewDatabaseError(fmt.Errorf("failed to fetch saved episodes: %w", err))
	}
	return rows, nil
}

func orDefault(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}
	return *s
}
