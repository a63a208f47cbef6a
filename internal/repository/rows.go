package repository

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/podsearch/internal/model"
)

// 行構造体はPostgreSQLのScan先とPostgRESTのJSONの両方に使う。
// NULL許容カラムはポインタで表す。

type searchHistoryRow struct {
	ID          string    `json:"id"`
	Term        string    `json:"term"`
	ResultCount int       `json:"result_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

var searchHistoryColumns = []string{"id", "term", "result_count", "created_at", "updated_at"}

func (r *searchHistoryRow) values() []any {
	return []any{r.ID, r.Term, r.ResultCount, r.CreatedAt, r.UpdatedAt}
}

func (r *searchHistoryRow) dest() []any {
	return []any{&r.ID, &r.Term, &r.ResultCount, &r.CreatedAt, &r.UpdatedAt}
}

func searchHistoryToRow(h *model.SearchHistory) searchHistoryRow {
	return searchHistoryRow{
		ID:          h.ID,
		Term:        h.Term,
		ResultCount: h.ResultCount,
		CreatedAt:   h.CreatedAt,
		UpdatedAt:   h.UpdatedAt,
	}
}

func (r *searchHistoryRow) toModel() model.SearchHistory {
	return model.SearchHistory{
		ID:          r.ID,
		Term:        r.Term,
		ResultCount: r.ResultCount,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type podcastRow struct {
	ID                     string    `json:"id"`
	WrapperType            *string   `json:"wrapper_type"`
	Kind                   *string   `json:"kind"`
	ArtistID               *int64    `json:"artist_id"`
	CollectionID           int64     `json:"collection_id"`
	TrackID                *int64    `json:"track_id"`
	ArtistName             *string   `json:"artist_name"`
	CollectionName         string    `json:"collection_name"`
	TrackName              *string   `json:"track_name"`
	CollectionCensoredName *string   `json:"collection_censored_name"`
	TrackCensoredName      *string   `json:"track_censored_name"`
	ArtistViewURL          *string   `json:"artist_view_url"`
	CollectionViewURL      *string   `json:"collection_view_url"`
	FeedURL                *string   `json:"feed_url"`
	TrackViewURL           *string   `json:"track_view_url"`
	ArtworkURL30           *string   `json:"artwork_url30"`
	ArtworkURL60           *string   `json:"artwork_url60"`
	ArtworkURL100          *string   `json:"artwork_url100"`
	ArtworkURL600          *string   `json:"artwork_url600"`
	CollectionPrice        *float64  `json:"collection_price"`
	TrackPrice             *float64  `json:"track_price"`
	CollectionHDPrice      *float64  `json:"collection_hd_price"`
	ReleaseDate            *string   `json:"release_date"`
	CollectionExplicitness *string   `json:"collection_explicitness"`
	TrackExplicitness      *string   `json:"track_explicitness"`
	TrackCount             *int      `json:"track_count"`
	TrackTimeMillis        *int64    `json:"track_time_millis"`
	Country                *string   `json:"country"`
	Currency               *string   `json:"currency"`
	PrimaryGenreName       *string   `json:"primary_genre_name"`
	ContentAdvisoryRating  *string   `json:"content_advisory_rating"`
	GenreIDs               *string   `json:"genre_ids"`
	Genres                 *string   `json:"genres"`
	SearchHistoryID        *string   `json:"search_history_id"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// podcastColumns はvalues()/dest()と同じ順序で並べる。
var podcastColumns = []string{
	"id", "wrapper_type", "kind", "artist_id", "collection_id", "track_id",
	"artist_name", "collection_name", "track_name",
	"collection_censored_name", "track_censored_name",
	"artist_view_url", "collection_view_url", "feed_url", "track_view_url",
	"artwork_url30", "artwork_url60", "artwork_url100", "artwork_url600",
	"collection_price", "track_price", "collection_hd_price",
	"release_date", "collection_explicitness", "track_explicitness",
	"track_count", "track_time_millis", "country", "currency",
	"primary_genre_name", "content_advisory_rating", "genre_ids", "genres",
	"search_history_id", "created_at", "updated_at",
}

func (r *podcastRow) values() []any {
	return []any{
		r.ID, r.WrapperType, r.Kind, r.ArtistID, r.CollectionID, r.TrackID,
		r.ArtistName, r.CollectionName, r.TrackName,
		r.CollectionCensoredName, r.TrackCensoredName,
		r.ArtistViewURL, r.CollectionViewURL, r.FeedURL, r.TrackViewURL,
		r.ArtworkURL30, r.ArtworkURL60, r.ArtworkURL100, r.ArtworkURL600,
		r.CollectionPrice, r.TrackPrice, r.CollectionHDPrice,
		r.ReleaseDate, r.CollectionExplicitness, r.TrackExplicitness,
		r.TrackCount, r.TrackTimeMillis, r.Country, r.Currency,
		r.PrimaryGenreName, r.ContentAdvisoryRating, r.GenreIDs, r.Genres,
		r.SearchHistoryID, r.CreatedAt, r.UpdatedAt,
	}
}

func (r *podcastRow) dest() []any {
	return []any{
		&r.ID, &r.WrapperType, &r.Kind, &r.ArtistID, &r.CollectionID, &r.TrackID,
		&r.ArtistName, &r.CollectionName, &r.TrackName,
		&r.CollectionCensoredName, &r.TrackCensoredName,
		&r.ArtistViewURL, &r.CollectionViewURL, &r.FeedURL, &r.TrackViewURL,
		&r.ArtworkURL30, &r.ArtworkURL60, &r.ArtworkURL100, &r.ArtworkURL600,
		&r.CollectionPrice, &r.TrackPrice, &r.CollectionHDPrice,
		&r.ReleaseDate, &r.CollectionExplicitness, &r.TrackExplicitness,
		&r.TrackCount, &r.TrackTimeMillis, &r.Country, &r.Currency,
		&r.PrimaryGenreName, &r.ContentAdvisoryRating, &r.GenreIDs, &r.Genres,
		&r.SearchHistoryID, &r.CreatedAt, &r.UpdatedAt,
	}
}

// podcastToRow はmodel.Podcastを行に変換する。ジャンルはJSON文字列として保存する。
func podcastToRow(p *model.Podcast, searchHistoryID string) (podcastRow, error) {
	genreIDs, err := encodeStrings(p.GenreIDs)
	if err != nil {
		return podcastRow{}, fmt.Errorf("genre_idsのエンコードに失敗しました: %w", err)
	}
	genres, err := encodeStrings(p.Genres)
	if err != nil {
		return podcastRow{}, fmt.Errorf("genresのエンコードに失敗しました: %w", err)
	}

	return podcastRow{
		ID:                     p.ID,
		WrapperType:            &p.WrapperType,
		Kind:                   &p.Kind,
		ArtistID:               &p.ArtistID,
		CollectionID:           p.CollectionID,
		TrackID:                &p.TrackID,
		ArtistName:             &p.ArtistName,
		CollectionName:         p.CollectionName,
		TrackName:              &p.TrackName,
		CollectionCensoredName: &p.CollectionCensoredName,
		TrackCensoredName:      &p.TrackCensoredName,
		ArtistViewURL:          &p.ArtistViewURL,
		CollectionViewURL:      &p.CollectionViewURL,
		FeedURL:                &p.FeedURL,
		TrackViewURL:           &p.TrackViewURL,
		ArtworkURL30:           &p.ArtworkURL30,
		ArtworkURL60:           &p.ArtworkURL60,
		ArtworkURL100:          &p.ArtworkURL100,
		ArtworkURL600:          &p.ArtworkURL600,
		CollectionPrice:        &p.CollectionPrice,
		TrackPrice:             &p.TrackPrice,
		CollectionHDPrice:      &p.CollectionHDPrice,
		ReleaseDate:            &p.ReleaseDate,
		CollectionExplicitness: &p.CollectionExplicitness,
		TrackExplicitness:      &p.TrackExplicitness,
		TrackCount:             &p.TrackCount,
		TrackTimeMillis:        &p.TrackTimeMillis,
		Country:                &p.Country,
		Currency:               &p.Currency,
		PrimaryGenreName:       &p.PrimaryGenreName,
		ContentAdvisoryRating:  &p.ContentAdvisoryRating,
		GenreIDs:               &genreIDs,
		Genres:                 &genres,
		SearchHistoryID:        model.StringPtr(searchHistoryID),
		CreatedAt:              p.CreatedAt,
		UpdatedAt:              p.UpdatedAt,
	}, nil
}

// toModel は行をmodel.Podcastに変換する。NULLはゼロ値、ジャンルは空スライスになる。
func (r *podcastRow) toModel() model.Podcast {
	return model.Podcast{
		ID:                     r.ID,
		WrapperType:            deref(r.WrapperType),
		Kind:                   deref(r.Kind),
		ArtistID:               deref(r.ArtistID),
		CollectionID:           r.CollectionID,
		TrackID:                deref(r.TrackID),
		ArtistName:             deref(r.ArtistName),
		CollectionName:         r.CollectionName,
		TrackName:              deref(r.TrackName),
		CollectionCensoredName: deref(r.CollectionCensoredName),
		TrackCensoredName:      deref(r.TrackCensoredName),
		ArtistViewURL:          deref(r.ArtistViewURL),
		CollectionViewURL:      deref(r.CollectionViewURL),
		FeedURL:                deref(r.FeedURL),
		TrackViewURL:           deref(r.TrackViewURL),
		ArtworkURL30:           deref(r.ArtworkURL30),
		ArtworkURL60:           deref(r.ArtworkURL60),
		ArtworkURL100:          deref(r.ArtworkURL100),
		ArtworkURL600:          deref(r.ArtworkURL600),
		CollectionPrice:        deref(r.CollectionPrice),
		TrackPrice:             deref(r.TrackPrice),
		CollectionHDPrice:      deref(r.CollectionHDPrice),
		ReleaseDate:            deref(r.ReleaseDate),
		CollectionExplicitness: deref(r.CollectionExplicitness),
		TrackExplicitness:      deref(r.TrackExplicitness),
		TrackCount:             deref(r.TrackCount),
		TrackTimeMillis:        deref(r.TrackTimeMillis),
		Country:                deref(r.Country),
		Currency:               deref(r.Currency),
		PrimaryGenreName:       deref(r.PrimaryGenreName),
		ContentAdvisoryRating:  deref(r.ContentAdvisoryRating),
		GenreIDs:               decodeStrings(r.GenreIDs),
		Genres:                 decodeStrings(r.Genres),
		Episodes:               []model.Episode{},
		CreatedAt:              r.CreatedAt,
		UpdatedAt:              r.UpdatedAt,
	}
}

// podcastStubRow はスタブ挿入用の行。指定しないカラムはNULLのまま残る。
type podcastStubRow struct {
	ID             string    `json:"id"`
	CollectionID   int64     `json:"collection_id"`
	CollectionName string    `json:"collection_name"`
	ArtistName     string    `json:"artist_name"`
	TrackName      string    `json:"track_name"`
	TrackViewURL   *string   `json:"track_view_url"`
	ArtworkURL600  *string   `json:"artwork_url600"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

var podcastStubColumns = []string{
	"id", "collection_id", "collection_name", "artist_name", "track_name",
	"track_view_url", "artwork_url600", "created_at", "updated_at",
}

func stubToRow(s *PodcastStub) podcastStubRow {
	return podcastStubRow{
		ID:             s.ID,
		CollectionID:   s.CollectionID,
		CollectionName: s.CollectionName,
		ArtistName:     s.ArtistName,
		TrackName:      s.TrackName,
		TrackViewURL:   s.TrackViewURL,
		ArtworkURL600:  s.ArtworkURL600,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.CreatedAt,
	}
}

func (r *podcastStubRow) values() []any {
	return []any{
		r.ID, r.CollectionID, r.CollectionName, r.ArtistName, r.TrackName,
		r.TrackViewURL, r.ArtworkURL600, r.CreatedAt, r.UpdatedAt,
	}
}

type episodeRow struct {
	ID              string     `json:"id"`
	PodcastID       string     `json:"podcast_id"`
	Title           string     `json:"title"`
	Description     *string    `json:"description"`
	Duration        *int       `json:"duration"`
	PubDate         *time.Time `json:"pub_date"`
	GUID            *string    `json:"guid"`
	EnclosureURL    *string    `json:"enclosure_url"`
	EnclosureType   *string    `json:"enclosure_type"`
	EnclosureLength *int64     `json:"enclosure_length"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

var episodeColumns = []string{
	"id", "podcast_id", "title", "description", "duration", "pub_date", "guid",
	"enclosure_url", "enclosure_type", "enclosure_length", "created_at", "updated_at",
}

func (r *episodeRow) values() []any {
	return []any{
		r.ID, r.PodcastID, r.Title, r.Description, r.Duration, r.PubDate, r.GUID,
		r.EnclosureURL, r.EnclosureType, r.EnclosureLength, r.CreatedAt, r.UpdatedAt,
	}
}

func (r *episodeRow) dest() []any {
	return []any{
		&r.ID, &r.PodcastID, &r.Title, &r.Description, &r.Duration, &r.PubDate, &r.GUID,
		&r.EnclosureURL, &r.EnclosureType, &r.EnclosureLength, &r.CreatedAt, &r.UpdatedAt,
	}
}

func episodeToRow(e *model.Episode) episodeRow {
	return episodeRow{
		ID:              e.ID,
		PodcastID:       e.PodcastID,
		Title:           e.Title,
		Description:     e.Description,
		Duration:        e.Duration,
		PubDate:         e.PubDate,
		GUID:            e.GUID,
		EnclosureURL:    e.EnclosureURL,
		EnclosureType:   e.EnclosureType,
		EnclosureLength: e.EnclosureLength,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

// toModel は行をmodel.Episodeに変換する。テーブルに存在しないiTunes拡張項目はnil。
func (r *episodeRow) toModel() model.Episode {
	return model.Episode{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		Duration:        r.Duration,
		PubDate:         r.PubDate,
		GUID:            r.GUID,
		EnclosureURL:    r.EnclosureURL,
		EnclosureType:   r.EnclosureType,
		EnclosureLength: r.EnclosureLength,
		PodcastID:       r.PodcastID,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func encodeStrings(s []string) (string, error) {
	if s == nil {
		s = []string{}
	}
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeStrings はJSON文字列配列をデコードする。NULLや不正なJSONは空スライスになる。
func decodeStrings(s *string) []string {
	out := []string{}
	if s == nil || strings.TrimSpace(*s) == "" {
		return out
	}
	if err := json.Unmarshal([]byte(*s), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
