// Package search はトレンド取得と検索語検索を束ね、応答の組み立てと保存ジョブの投入を行う。
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/podsearch/internal/itunes"
	"github.com/hitoshi/podsearch/internal/model"
	"github.com/hitoshi/podsearch/internal/normalize"
	"github.com/hitoshi/podsearch/internal/persistence"
	"github.com/hitoshi/podsearch/internal/worker/persist"
)

// 応答メッセージと固定値。
const (
	Source              = "itunes"
	TrendingSearchTerm  = "trending"
	MsgPodcastsLoaded   = "Podcasts loaded successfully"
	trendingKeyPrefix   = "trending_podcasts_"
	rawTrendingMessage  = "Raw iTunes API response for trending content"
	rawTermMessageFmt   = "Raw iTunes API response for %q"
	notFoundTermMessage = "No podcasts or episodes found for %q"
)

// Upstream は検索に使う上流クライアント。*itunes.Clientが満たす。
type Upstream interface {
	SearchPodcastsAndEpisodes(ctx context.Context, term string) model.Result[itunes.CombinedResponse]
	GetPodcastsWithFallback(ctx context.Context) model.Result[itunes.PodcastResponse]
	GetTopEpisodes(ctx context.Context) model.Result[itunes.EpisodeResponse]
}

// Saver は検索結果の保存先。*persistence.Serviceが満たす。
type Saver interface {
	SaveTopPodcasts(ctx context.Context, cacheKey string, podcasts []model.Podcast) (*persistence.SaveResult, error)
	SaveSearchResults(ctx context.Context, term string, podcasts []model.Podcast) (*persistence.SaveResult, error)
	SaveEpisodes(ctx context.Context, episodes []model.Episode) ([]model.Episode, error)
}

// Submitter は保存ジョブをリクエストから切り離して実行する。*persist.Dispatcherが満たす。
type Submitter interface {
	Submit(name string, fn persist.JobFunc) error
}

// Query は検索リクエスト。Termが空白のみの場合はトレンド取得になる。
type Query struct {
	Term    string
	Country string
	Raw     bool
}

// Response は検索応答の共通形式。見つからない場合もHTTP 200で返す。
type Response struct {
	Success     bool            `json:"success"`
	Error       string          `json:"error,omitempty"`
	Message     string          `json:"message"`
	Source      string          `json:"source"`
	Country     string          `json:"country"`
	SearchTerm  string          `json:"searchTerm"`
	Podcasts    []model.Podcast `json:"podcasts"`
	ResultCount int             `json:"resultCount"`
	SavedCount  int             `json:"savedCount"`
	Timestamp   time.Time       `json:"timestamp"`
	TopEpisodes []model.Episode `json:"topEpisodes"`
}

// rawHeader はraw=trueの応答に共通する項目。
type rawHeader struct {
	Success     bool      `json:"success"`
	Message     string    `json:"message"`
	Source      string    `json:"source"`
	Country     string    `json:"country"`
	SearchTerm  string    `json:"searchTerm"`
	ResultCount int       `json:"resultCount"`
	Timestamp   time.Time `json:"timestamp"`
}

// RawTrendingResponse はトレンド取得のraw=true応答。上流の結果オブジェクトをそのまま返す。
type RawTrendingResponse struct {
	rawHeader
	Results []json.RawMessage `json:"results"`
}

// RawSearchResponse は検索語検索のraw=true応答。kindで振り分けた上流の結果オブジェクトを返す。
type RawSearchResponse struct {
	rawHeader
	Podcasts []json.RawMessage `json:"podcasts"`
	Episodes []json.RawMessage `json:"episodes"`
}

// Service は検索のオーケストレーター。
type Service struct {
	upstream       Upstream
	saver          Saver
	submitter      Submitter
	defaultCountry string
	now            func() time.Time
}

// NewService はServiceを生成する。defaultCountryはcountry未指定時の応答と保存キーに使う。
func NewService(upstream Upstream, saver Saver, submitter Submitter, defaultCountry string) *Service {
	return &Service{
		upstream:       upstream,
		saver:          saver,
		submitter:      submitter,
		defaultCountry: defaultCountry,
		now:            time.Now,
	}
}

// Search は検索語の有無でトレンド取得か検索語検索に振り分ける。
// 戻り値は*Response、*RawTrendingResponse、*RawSearchResponseのいずれかで、そのままJSONとして返す。
func (s *Service) Search(ctx context.Context, q Query) any {
	country := strings.TrimSpace(q.Country)
	if country == "" {
		country = s.defaultCountry
	}

	term := strings.TrimSpace(q.Term)
	if term == "" {
		return s.trending(ctx, country, q.Raw)
	}
	return s.byTerm(ctx, q.Term, country, q.Raw)
}

func (s *Service) trending(ctx context.Context, country string, raw bool) any {
	res := s.upstream.GetPodcastsWithFallback(ctx)
	if !res.Success || res.Data.ResultCount == 0 {
		return s.notFound(model.MsgNotFound, TrendingSearchTerm, country)
	}

	if raw {
		return &RawTrendingResponse{
			rawHeader: s.rawHeader(rawTrendingMessage, TrendingSearchTerm, country, res.Data.ResultCount),
			Results:   nonNilRaw(res.Data.Raw),
		}
	}

	podcasts := normalize.ToPodcasts(res.Data.Results)
	cacheKey := trendingKeyPrefix + country
	s.submit("save_top_podcasts", func(ctx context.Context) error {
		_, err := s.saver.SaveTopPodcasts(ctx, cacheKey, podcasts)
		return err
	})

	topEpisodes := []model.Episode{}
	if ep := s.upstream.GetTopEpisodes(ctx); ep.Success && ep.Data.ResultCount > 0 {
		topEpisodes = normalize.ToEpisodes(ep.Data.Results)
		episodes := topEpisodes
		s.submit("save_top_episodes", func(ctx context.Context) error {
			_, err := s.saver.SaveEpisodes(ctx, episodes)
			return err
		})
	}

	return s.success(TrendingSearchTerm, country, podcasts, topEpisodes, res.Data.ResultCount)
}

func (s *Service) byTerm(ctx context.Context, term, country string, raw bool) any {
	res := s.upstream.SearchPodcastsAndEpisodes(ctx, term)

	var data itunes.CombinedResponse
	if res.Success {
		data = res.Data
	}
	if len(data.Podcasts.Results) == 0 && len(data.Episodes.Results) == 0 {
		return s.notFound(fmt.Sprintf(notFoundTermMessage, term), term, country)
	}

	if raw {
		count := len(data.Podcasts.Results) + len(data.Episodes.Results)
		return &RawSearchResponse{
			rawHeader: s.rawHeader(fmt.Sprintf(rawTermMessageFmt, term), term, country, count),
			Podcasts:  nonNilRaw(data.Podcasts.Raw),
			Episodes:  nonNilRaw(data.Episodes.Raw),
		}
	}

	podcasts := normalize.ToPodcasts(data.Podcasts.Results)
	episodes := normalize.ToEpisodes(data.Episodes.Results)

	if len(podcasts) > 0 {
		s.submit("save_search_results", func(ctx context.Context) error {
			_, err := s.saver.SaveSearchResults(ctx, term, podcasts)
			return err
		})
	}
	if len(episodes) > 0 {
		s.submit("save_search_episodes", func(ctx context.Context) error {
			_, err := s.saver.SaveEpisodes(ctx, episodes)
			return err
		})
	}

	return s.success(term, country, podcasts, episodes, len(podcasts)+len(episodes))
}

// submit は保存ジョブを投入する。投入の失敗はディスパッチャー側でログ済みのため応答には影響させない。
func (s *Service) submit(name string, fn persist.JobFunc) {
	if err := s.submitter.Submit(name, fn); err != nil {
		slog.Debug("保存ジョブを投入できませんでした",
			slog.String("job", name),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) success(term, country string, podcasts []model.Podcast, episodes []model.Episode, resultCount int) *Response {
	return &Response{
		Success:     true,
		Message:     MsgPodcastsLoaded,
		Source:      Source,
		Country:     country,
		SearchTerm:  term,
		Podcasts:    podcasts,
		ResultCount: resultCount,
		SavedCount:  len(podcasts),
		Timestamp:   s.now(),
		TopEpisodes: episodes,
	}
}

func (s *Service) notFound(message, term, country string) *Response {
	return &Response{
		Success:     false,
		Error:       message,
		Message:     message,
		Source:      Source,
		Country:     country,
		SearchTerm:  term,
		Podcasts:    []model.Podcast{},
		Timestamp:   s.now(),
		TopEpisodes: []model.Episode{},
	}
}

func (s *Service) rawHeader(message, term, country string, resultCount int) rawHeader {
	return rawHeader{
		Success:     true,
		Message:     message,
		Source:      Source,
		Country:     country,
		SearchTerm:  term,
		ResultCount: resultCount,
		Timestamp:   s.now(),
	}
}

func nonNilRaw(raw []json.RawMessage) []json.RawMessage {
	if raw == nil {
		return []json.RawMessage{}
	}
	return raw
}
