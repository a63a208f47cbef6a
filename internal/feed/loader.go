// Package feed はポッドキャストのRSSフィードを取得し、エピソードに変換する。
package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/hitoshi/podsearch/internal/model"
	"github.com/hitoshi/podsearch/internal/security"
)

// デフォルト設定値。
const (
	DefaultTimeout   = 10 * time.Second
	DefaultMaxSize   = 10 << 20
	DefaultUserAgent = "Mozilla/5.0 (compatible; PodcastBot/1.0)"
)

var (
	// ErrNoFeedURL はポッドキャストにfeedUrlがない場合のエラー。
	ErrNoFeedURL = errors.New("podcast has no feed url")
	// ErrFeedTooLarge はフィードが最大サイズを超えた場合のエラー。
	ErrFeedTooLarge = errors.New("feed exceeds maximum size")
)

// EpisodeLoader はfeedUrlのRSSを取得してエピソードを返す。
type EpisodeLoader struct {
	client    *http.Client
	validator security.URLValidator
	maxSize   int64
	userAgent string
	logger    *slog.Logger
}

// NewEpisodeLoader はEpisodeLoaderを生成する。
// clientにはSSRFGuard.NewSafeClientで生成したクライアントを渡すこと。maxSizeが0以下の場合は10MiB。
func NewEpisodeLoader(client *http.Client, validator security.URLValidator, maxSize int64) *EpisodeLoader {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &EpisodeLoader{
		client:    client,
		validator: validator,
		maxSize:   maxSize,
		userAgent: DefaultUserAgent,
		logger:    slog.Default(),
	}
}

// Load はポッドキャストのフィードを取得し、各itemをエピソードに変換する。
// エピソードのPodcastIDには上流のcollectionIdが入り、保存時に内部IDへ解決される。
func (l *EpisodeLoader) Load(ctx context.Context, p *model.Podcast) ([]model.Episode, error) {
	if strings.TrimSpace(p.FeedURL) == "" {
		return nil, ErrNoFeedURL
	}
	if err := l.validator.ValidateURL(p.FeedURL); err != nil {
		return nil, fmt.Errorf("SSRF検証に失敗: %w", err)
	}

	start := time.Now()
	body, err := l.fetch(ctx, p.FeedURL)
	if err != nil {
		return nil, err
	}

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("フィードのパースに失敗: %w", err)
	}

	episodes := ToEpisodes(parsed.Items, p, time.Now())
	l.logger.Info("フィードを取得しました",
		slog.Int64("collection_id", p.CollectionID),
		slog.String("feed_url", p.FeedURL),
		slog.Int("episodes", len(episodes)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return episodes, nil
}

func (l *EpisodeLoader) fetch(ctx context.Context, feedURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエスト失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected feed status %d", resp.StatusCode)
	}

	// 上限+1バイトまで読み、超過を検出する
	body, err := io.ReadAll(io.LimitReader(resp.Body, l.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("レスポンス読み取り失敗: %w", err)
	}
	if int64(len(body)) > l.maxSize {
		return nil, ErrFeedTooLarge
	}
	return body, nil
}

// ToEpisodes はgofeedのitemをエピソードに変換する。タイトルのないitemは読み飛ばす。
func ToEpisodes(items []*gofeed.Item, p *model.Podcast, now time.Time) []model.Episode {
	episodes := make([]model.Episode, 0, len(items))
	for _, item := range items {
		if item == nil || strings.TrimSpace(item.Title) == "" {
			continue
		}
		episodes = append(episodes, toEpisode(item, p, now))
	}
	return episodes
}

func toEpisode(item *gofeed.Item, p *model.Podcast, now time.Time) model.Episode {
	e := model.Episode{
		ID:             item.GUID,
		Title:          strings.TrimSpace(item.Title),
		GUID:           model.StringPtr(item.GUID),
		PodcastID:      strconv.FormatInt(p.CollectionID, 10),
		PodcastName:    model.StringPtr(p.CollectionName),
		PodcastArtist:  model.StringPtr(p.ArtistName),
		PodcastArtwork: model.StringPtr(p.ArtworkURL600),
		TrackViewURL:   model.StringPtr(item.Link),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if e.ID == "" {
		e.ID = item.Link
	}

	switch {
	case item.Description != "":
		e.Description = model.StringPtr(item.Description)
	case item.Content != "":
		e.Description = model.StringPtr(item.Content)
	}

	if item.PublishedParsed != nil {
		t := item.PublishedParsed.UTC()
		e.PubDate = &t
	} else if item.UpdatedParsed != nil {
		t := item.UpdatedParsed.UTC()
		e.PubDate = &t
	}

	if len(item.Enclosures) > 0 && item.Enclosures[0] != nil {
		enc := item.Enclosures[0]
		e.EnclosureURL = model.StringPtr(enc.URL)
		e.EnclosureType = model.StringPtr(enc.Type)
		if n, err := strconv.ParseInt(strings.TrimSpace(enc.Length), 10, 64); err == nil && n > 0 {
			e.EnclosureLength = &n
		}
	}

	if item.Image != nil {
		e.ITunesImage = model.StringPtr(item.Image.URL)
	}
	applyITunes(&e, item.ITunesExt)
	return e
}

// applyITunes はitunes:*拡張要素をエピソードに反映する。
func applyITunes(e *model.Episode, it *ext.ITunesItemExtension) {
	if it == nil {
		return
	}
	e.ITunesDuration = model.StringPtr(it.Duration)
	e.Duration = ParseDuration(it.Duration)
	e.ITunesExplicit = parseExplicit(it.Explicit)
	if it.Image != "" {
		e.ITunesImage = model.StringPtr(it.Image)
	}
	if n, err := strconv.Atoi(strings.TrimSpace(it.Order)); err == nil {
		e.ITunesOrder = &n
	}
	e.ITunesSubtitle = model.StringPtr(it.Subtitle)
	e.ITunesSummary = model.StringPtr(it.Summary)
	e.ITunesKeywords = model.StringPtr(it.Keywords)
	e.ITunesAuthor = model.StringPtr(it.Author)
	if e.Description == nil && it.Summary != "" {
		e.Description = model.StringPtr(it.Summary)
	}
}

// ParseDuration はitunes:durationを秒数に変換する。
// "SS"、"MM:SS"、"HH:MM:SS" を受け付け、解釈できない場合や0の場合はnilを返す。
func ParseDuration(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return nil
	}

	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil
		}
		total = total*60 + n
	}
	if total == 0 {
		return nil
	}
	return &total
}

func parseExplicit(s string) *bool {
	var v bool
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "explicit":
		v = true
	case "no", "false", "clean":
		v = false
	default:
		return nil
	}
	return &v
}
