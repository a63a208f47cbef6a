// Package normalize は上流の結果オブジェクトを正規化済みのPodcast/Episodeに変換する。
// すべての関数は純粋関数で、入力に対して失敗しない。
package normalize

import (
	"strconv"
	"time"

	"github.com/hitoshi/podsearch/internal/itunes"
	"github.com/hitoshi/podsearch/internal/model"
)

// now はタイムスタンプの取得元。テストで差し替える。
var now = time.Now

// ToPodcast はiTunesのポッドキャスト結果をmodel.Podcastに変換する。
// IDには上流のcollectionIdを文字列化したものを入れる。内部IDは永続化時に採番する。
func ToPodcast(r itunes.PodcastResult) model.Podcast {
	ts := now()
	return model.Podcast{
		ID:                     strconv.FormatInt(r.CollectionID, 10),
		WrapperType:            r.WrapperType,
		Kind:                   r.Kind,
		ArtistID:               r.ArtistID,
		CollectionID:           r.CollectionID,
		TrackID:                r.TrackID,
		ArtistName:             r.ArtistName,
		CollectionName:         r.CollectionName,
		TrackName:              r.TrackName,
		CollectionCensoredName: r.CollectionCensoredName,
		TrackCensoredName:      r.TrackCensoredName,
		ArtistViewURL:          r.ArtistViewURL,
		CollectionViewURL:      r.CollectionViewURL,
		FeedURL:                r.FeedURL,
		TrackViewURL:           r.TrackViewURL,
		ArtworkURL30:           r.ArtworkURL30,
		ArtworkURL60:           r.ArtworkURL60,
		ArtworkURL100:          r.ArtworkURL100,
		ArtworkURL600:          r.ArtworkURL600,
		CollectionPrice:        r.CollectionPrice,
		TrackPrice:             r.TrackPrice,
		CollectionHDPrice:      r.CollectionHDPrice,
		ReleaseDate:            r.ReleaseDate,
		CollectionExplicitness: r.CollectionExplicitness,
		TrackExplicitness:      r.TrackExplicitness,
		TrackCount:             r.TrackCount,
		TrackTimeMillis:        r.TrackTimeMillis,
		Country:                r.Country,
		Currency:               r.Currency,
		PrimaryGenreName:       r.PrimaryGenreName,
		ContentAdvisoryRating:  r.ContentAdvisoryRating,
		GenreIDs:               nonNil(r.GenreIDs),
		Genres:                 nonNil(r.Genres),
		Episodes:               []model.Episode{},
		CreatedAt:              ts,
		UpdatedAt:              ts,
	}
}

// ToEpisode はiTunesのエピソード結果をmodel.Episodeに変換する。
//   - durationはミリ秒を秒に切り捨てる。0または欠落はnil
//   - descriptionが空ならshortDescriptionを使う
//   - guidが空ならtrackIdを文字列化して使う
//   - releaseDateがRFC 3339として解釈できない場合pubDateはnil
func ToEpisode(r itunes.EpisodeResult) model.Episode {
	ts := now()

	description := r.Description
	if description == "" {
		description = r.ShortDescription
	}

	guid := r.EpisodeGUID
	if guid == "" {
		guid = strconv.FormatInt(r.TrackID, 10)
	}

	return model.Episode{
		ID:             strconv.FormatInt(r.TrackID, 10),
		Title:          r.TrackName,
		Description:    model.StringPtr(description),
		Duration:       durationSeconds(r.TrackTimeMillis),
		PubDate:        parseReleaseDate(r.ReleaseDate),
		GUID:           model.StringPtr(guid),
		EnclosureURL:   model.StringPtr(r.EpisodeURL),
		EnclosureType:  model.StringPtr(r.EpisodeContentType),
		ITunesImage:    model.StringPtr(r.ArtworkURL160),
		ITunesSummary:  model.StringPtr(r.ShortDescription),
		PodcastID:      strconv.FormatInt(r.CollectionID, 10),
		PodcastName:    model.StringPtr(r.CollectionName),
		PodcastArtwork: model.StringPtr(r.ArtworkURL160),
		TrackViewURL:   model.StringPtr(r.TrackViewURL),
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}
}

// ToPodcasts はToPodcastをスライスに適用する。
func ToPodcasts(results []itunes.PodcastResult) []model.Podcast {
	out := make([]model.Podcast, 0, len(results))
	for _, r := range results {
		out = append(out, ToPodcast(r))
	}
	return out
}

// ToEpisodes はToEpisodeをスライスに適用する。
func ToEpisodes(results []itunes.EpisodeResult) []model.Episode {
	out := make([]model.Episode, 0, len(results))
	for _, r := range results {
		out = append(out, ToEpisode(r))
	}
	return out
}

func durationSeconds(millis int64) *int {
	if millis <= 0 {
		return nil
	}
	sec := int(millis / 1000)
	return &sec
}

func parseReleaseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
