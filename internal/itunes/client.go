// Package itunes はiTunes Search API（/search, /lookup）のクライアントを提供する。
// すべての操作は失敗時もerrorではなくmodel.Resultを返す。
package itunes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gregjones/httpcache"
	"golang.org/x/time/rate"

	"github.com/hitoshi/podsearch/internal/metrics"
	"github.com/hitoshi/podsearch/internal/model"
	"github.com/hitoshi/podsearch/internal/retry"
)

const (
	DefaultBaseURL   = "https://itunes.apple.com"
	DefaultCountry   = "SA"
	DefaultUserAgent = "Mozilla/5.0 (compatible; PodcastBot/1.0)"
	DefaultTimeout   = 10 * time.Second
	DefaultLimit     = 50

	searchEndpoint = "/search"
	lookupEndpoint = "/lookup"

	// maxResponseSize はレスポンスボディの読み取り上限。limit=50の結果でも数百KB程度。
	maxResponseSize = 8 << 20
)

// FallbackTerms はSearchWithFallbackが主検索語の後に順に試す検索語。
var FallbackTerms = []string{"podcast", "news", "technology", "business", "entertainment"}

// 上流操作名。メトリクスのoperationラベルとログに使う。
const (
	opSearchPodcasts   = "search_podcasts"
	opSearchEpisodes   = "search_episodes"
	opSearchCombined   = "search_combined"
	opTopPodcasts      = "top_podcasts"
	opTrendingPodcasts = "trending_podcasts"
	opLookup           = "lookup"
	opPodcastFallback  = "podcasts_fallback"
	opTopEpisodes      = "top_episodes"
)

// Options はClientの設定。ゼロ値のフィールドはデフォルト値で補完される。
type Options struct {
	BaseURL   string
	Country   string
	UserAgent string
	Limit     int
	Retry     retry.Policy

	// Limiter は各試行の前に待機するレートリミッター。nilの場合は制限しない。
	Limiter *rate.Limiter
	// Cache はHTTPレスポンスキャッシュ。設定されている場合、キャッシュ済みのリクエストはLimiterを待たない。
	Cache httpcache.Cache

	Metrics metrics.MetricsCollector
	Logger  *slog.Logger
}

// Client はiTunes Search APIのクライアント。
type Client struct {
	httpClient *http.Client
	baseURL    string
	country    string
	userAgent  string
	limit      int
	policy     retry.Policy
	limiter    *rate.Limiter
	cache      httpcache.Cache
	metrics    metrics.MetricsCollector
	logger     *slog.Logger
}

// NewClient はClientを生成する。httpClientには通常SSRF防止付きのクライアントを渡す。
func NewClient(httpClient *http.Client, opts Options) *Client {
	c := &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		country:    opts.Country,
		userAgent:  opts.UserAgent,
		limit:      opts.Limit,
		policy:     opts.Retry,
		limiter:    opts.Limiter,
		cache:      opts.Cache,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.country == "" {
		c.country = DefaultCountry
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if c.limit <= 0 {
		c.limit = DefaultLimit
	}
	if c.metrics == nil {
		c.metrics = metrics.Nop{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// NewLimiter は1分あたりperMinute回のリクエストを許可するリミッターを返す。
// perMinuteが0以下の場合はnil（無制限）を返す。
func NewLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
}

// NewCachingHTTPClient はbaseのTransportをインメモリのHTTPキャッシュでラップしたクライアントを返す。
// 返されたCacheはOptions.Cacheに渡す。
func NewCachingHTTPClient(base *http.Client) (*http.Client, httpcache.Cache) {
	cache := httpcache.NewMemoryCache()
	transport := httpcache.NewTransport(cache)
	transport.Transport = base.Transport

	client := transport.Client()
	client.Timeout = base.Timeout
	client.CheckRedirect = base.CheckRedirect
	return client, cache
}

// Country は上流リクエストに使う国コードを返す。
func (c *Client) Country() string {
	return c.country
}

// SearchPodcasts は検索語でポッドキャストを検索する。
// 検索語が不正な場合はネットワークアクセスせずVALIDATION_ERRORを返す。
func (c *Client) SearchPodcasts(ctx context.Context, term string) model.Result[PodcastResponse] {
	if !IsValidTerm(term) {
		return model.Fail[PodcastResponse](model.NewValidationError("Invalid search term"))
	}
	return c.podcasts(ctx, opSearchPodcasts, searchEndpoint, c.searchParams(SanitizeTerm(term), "podcast"))
}

// SearchEpisodes は検索語でエピソードを検索する。
func (c *Client) SearchEpisodes(ctx context.Context, term string) model.Result[EpisodeResponse] {
	if !IsValidTerm(term) {
		return model.Fail[EpisodeResponse](model.NewValidationError("Invalid search term"))
	}
	return c.episodes(ctx, opSearchEpisodes, c.searchParams(SanitizeTerm(term), "podcastEpisode"))
}

// SearchPodcastsAndEpisodes はポッドキャストとエピソードを1回のリクエストで検索し、kindで振り分ける。
// kindがpodcastでもpodcast-episodeでもない結果はどちらにも含めない。
func (c *Client) SearchPodcastsAndEpisodes(ctx context.Context, term string) model.Result[CombinedResponse] {
	if !IsValidTerm(term) {
		return model.Fail[CombinedResponse](model.NewValidationError("Invalid search term"))
	}

	params := c.searchParams(SanitizeTerm(term), "podcast,podcastEpisode")
	resp, err := fetch(ctx, c, opSearchCombined, searchEndpoint, params, partition)
	if err != nil {
		return model.Fail[CombinedResponse](model.NewAPIError(err))
	}
	return model.Ok(resp)
}

// GetTopPodcasts は検索語なしでポッドキャスト一覧を取得する。
func (c *Client) GetTopPodcasts(ctx context.Context) model.Result[PodcastResponse] {
	return c.podcasts(ctx, opTopPodcasts, searchEndpoint, c.searchParams("", "podcast"))
}

// GetTrendingPodcasts は評価順（attribute=ratingIndex）でポッドキャスト一覧を取得する。
func (c *Client) GetTrendingPodcasts(ctx context.Context) model.Result[PodcastResponse] {
	params := c.searchParams("", "podcast")
	params.Set("attribute", "ratingIndex")
	return c.podcasts(ctx, opTrendingPodcasts, searchEndpoint, params)
}

// GetPodcastByID はcollectionIdでポッドキャストを参照する。
func (c *Client) GetPodcastByID(ctx context.Context, collectionID int64) model.Result[PodcastResponse] {
	if collectionID <= 0 {
		return model.Fail[PodcastResponse](model.NewValidationError("Invalid collection ID"))
	}

	params := url.Values{}
	params.Set("id", strconv.FormatInt(collectionID, 10))
	params.Set("entity", "podcast")
	params.Set("country", c.country)
	return c.podcasts(ctx, opLookup, lookupEndpoint, params)
}

// SearchWithFallback は主検索語、FallbackTermsの順に検索し、最初に1件以上得られた結果を返す。
// すべて0件または失敗の場合はGetTrendingPodcastsの結果を返す。
func (c *Client) SearchWithFallback(ctx context.Context, primaryTerm string) model.Result[PodcastResponse] {
	terms := append([]string{primaryTerm}, FallbackTerms...)
	for _, term := range terms {
		res := c.SearchPodcasts(ctx, term)
		if res.Success && res.Data.ResultCount > 0 {
			return res
		}
	}
	return c.GetTrendingPodcasts(ctx)
}

// GetPodcastsWithFallback は固定の検索語"podcast"でポッドキャストを取得する。
// 結果が0件の場合はNO_RESULTSを返す。
func (c *Client) GetPodcastsWithFallback(ctx context.Context) model.Result[PodcastResponse] {
	res := c.podcasts(ctx, opPodcastFallback, searchEndpoint, c.searchParams("podcast", "podcast"))
	if !res.Success {
		return res
	}
	if res.Data.ResultCount <= 0 {
		return model.Fail[PodcastResponse](model.NewNoResultsError("No trending podcasts found"))
	}
	return res
}

// GetTopEpisodes は固定の検索語"news"でエピソードを取得する。
func (c *Client) GetTopEpisodes(ctx context.Context) model.Result[EpisodeResponse] {
	return c.episodes(ctx, opTopEpisodes, c.searchParams("news", "podcastEpisode"))
}

func (c *Client) searchParams(term, entity string) url.Values {
	params := url.Values{}
	if term != "" {
		params.Set("term", term)
	}
	params.Set("media", "podcast")
	params.Set("entity", entity)
	params.Set("country", c.country)
	params.Set("limit", strconv.Itoa(c.limit))
	return params
}

func (c *Client) podcasts(ctx context.Context, op, endpoint string, params url.Values) model.Result[PodcastResponse] {
	resp, err := fetch(ctx, c, op, endpoint, params, decodePodcasts)
	if err != nil {
		return model.Fail[PodcastResponse](model.NewAPIError(err))
	}
	return model.Ok(resp)
}

func (c *Client) episodes(ctx context.Context, op string, params url.Values) model.Result[EpisodeResponse] {
	resp, err := fetch(ctx, c, op, searchEndpoint, params, decodeEpisodes)
	if err != nil {
		return model.Fail[EpisodeResponse](model.NewAPIError(err))
	}
	return model.Ok(resp)
}

// fetch はリトライポリシーに従って上流を呼び出し、decodeで型付きの結果に変換する。
// 非2xxステータスとデコード失敗はいずれも1回の試行の失敗として扱う。
func fetch[T any](ctx context.Context, c *Client, op, endpoint string, params url.Values, decode func(envelope) (T, error)) (T, error) {
	start := time.Now()

	v, err := retry.Do(ctx, c.policy, func(ctx context.Context) (T, error) {
		var zero T
		env, err := c.do(ctx, endpoint, params)
		if err != nil {
			return zero, err
		}
		return decode(env)
	})

	elapsed := time.Since(start)
	if err != nil {
		c.metrics.RecordUpstreamRequest(op, metrics.OutcomeFailure, elapsed)
		c.logger.Warn("iTunes APIの呼び出しに失敗しました",
			slog.String("operation", op),
			slog.String("error", err.Error()),
			slog.Int64("duration_ms", elapsed.Milliseconds()),
		)
		return v, err
	}
	c.metrics.RecordUpstreamRequest(op, metrics.OutcomeSuccess, elapsed)
	return v, nil
}

// do は1回分のHTTPリクエストを実行し、レスポンスのエンベロープを返す。
func (c *Client) do(ctx context.Context, endpoint string, params url.Values) (envelope, error) {
	var env envelope

	reqURL := c.baseURL + endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return env, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	if c.limiter != nil && !c.isCached(req) {
		if err := c.limiter.Wait(ctx); err != nil {
			return env, fmt.Errorf("レート制限の待機に失敗しました: %w", err)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return env, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return env, fmt.Errorf("iTunes APIがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return env, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return env, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	return env, nil
}

// isCached はリクエストに対応するレスポンスがキャッシュ済みかを確認する。
func (c *Client) isCached(req *http.Request) bool {
	if c.cache == nil {
		return false
	}
	resp, err := httpcache.CachedResponse(c.cache, req)
	if err != nil || resp == nil {
		return false
	}
	resp.Body.Close()
	return true
}

func decodePodcasts(env envelope) (PodcastResponse, error) {
	out := PodcastResponse{
		ResultCount: env.ResultCount,
		Results:     make([]PodcastResult, 0, len(env.Results)),
		Raw:         env.Results,
	}
	for i, raw := range env.Results {
		var p PodcastResult
		if err := json.Unmarshal(raw, &p); err != nil {
			return PodcastResponse{}, fmt.Errorf("results[%d] のデコードに失敗しました: %w", i, err)
		}
		out.Results = append(out.Results, p)
	}
	if out.Raw == nil {
		out.Raw = []json.RawMessage{}
	}
	return out, nil
}

func decodeEpisodes(env envelope) (EpisodeResponse, error) {
	out := EpisodeResponse{
		ResultCount: env.ResultCount,
		Results:     make([]EpisodeResult, 0, len(env.Results)),
		Raw:         env.Results,
	}
	for i, raw := range env.Results {
		var e EpisodeResult
		if err := json.Unmarshal(raw, &e); err != nil {
			return EpisodeResponse{}, fmt.Errorf("results[%d] のデコードに失敗しました: %w", i, err)
		}
		out.Results = append(out.Results, e)
	}
	if out.Raw == nil {
		out.Raw = []json.RawMessage{}
	}
	return out, nil
}

// partition は結果をkindでポッドキャストとエピソードに振り分ける。
// 各ResultCountは振り分け後の件数。
func partition(env envelope) (CombinedResponse, error) {
	out := CombinedResponse{
		Podcasts: PodcastResponse{Results: []PodcastResult{}, Raw: []json.RawMessage{}},
		Episodes: EpisodeResponse{Results: []EpisodeResult{}, Raw: []json.RawMessage{}},
	}

	for i, raw := range env.Results {
		var probe kindProbe
		if err := json.Unmarshal(raw, &probe); err != nil {
			return CombinedResponse{}, fmt.Errorf("results[%d] のデコードに失敗しました: %w", i, err)
		}

		switch probe.Kind {
		case KindPodcast:
			var p PodcastResult
			if err := json.Unmarshal(raw, &p); err != nil {
				return CombinedResponse{}, fmt.Errorf("results[%d] のデコードに失敗しました: %w", i, err)
			}
			out.Podcasts.Results = append(out.Podcasts.Results, p)
			out.Podcasts.Raw = append(out.Podcasts.Raw, raw)
		case KindPodcastEpisode:
			var e EpisodeResult
			if err := json.Unmarshal(raw, &e); err != nil {
				return CombinedResponse{}, fmt.Errorf("results[%d] のデコードに失敗しました: %w", i, err)
			}
			out.Episodes.Results = append(out.Episodes.Results, e)
			out.Episodes.Raw = append(out.Episodes.Raw, raw)
		}
	}

	out.Podcasts.ResultCount = len(out.Podcasts.Results)
	out.Episodes.ResultCount = len(out.Episodes.Results)
	return out, nil
}
