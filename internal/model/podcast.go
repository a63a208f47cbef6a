package model

import "time"

// Podcast は正規化済みのポッドキャストを表す。
// IDは永続化前は上流のcollectionId、永続化後は内部で採番したUUID。
type Podcast struct {
	ID                     string    `json:"id"`
	WrapperType            string    `json:"wrapperType"`
	Kind                   string    `json:"kind"`
	ArtistID               int64     `json:"artistId"`
	CollectionID           int64     `json:"collectionId"`
	TrackID                int64     `json:"trackId"`
	ArtistName             string    `json:"artistName"`
	CollectionName         string    `json:"collectionName"`
	TrackName              string    `json:"trackName"`
	CollectionCensoredName string    `json:"collectionCensoredName"`
	TrackCensoredName      string    `json:"trackCensoredName"`
	ArtistViewURL          string    `json:"artistViewUrl"`
	CollectionViewURL      string    `json:"collectionViewUrl"`
	FeedURL                string    `json:"feedUrl"`
	TrackViewURL           string    `json:"trackViewUrl"`
	ArtworkURL30           string    `json:"artworkUrl30"`
	ArtworkURL60           string    `json:"artworkUrl60"`
	ArtworkURL100          string    `json:"artworkUrl100"`
	ArtworkURL600          string    `json:"artworkUrl600"`
	CollectionPrice        float64   `json:"collectionPrice"`
	TrackPrice             float64   `json:"trackPrice"`
	CollectionHDPrice      float64   `json:"collectionHdPrice"`
	ReleaseDate            string    `json:"releaseDate"`
	CollectionExplicitness string    `json:"collectionExplicitness"`
	TrackExplicitness      string    `json:"trackExplicitness"`
	TrackCount             int       `json:"trackCount"`
	TrackTimeMillis        int64     `json:"trackTimeMillis"`
	Country                string    `json:"country"`
	Currency               string    `json:"currency"`
	PrimaryGenreName       string    `json:"primaryGenreName"`
	ContentAdvisoryRating  string    `json:"contentAdvisoryRating"`
	GenreIDs               []string  `json:"genreIds"`
	Genres                 []string  `json:"genres"`
	Episodes               []Episode `json:"episodes"`
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

// Episode は正規化済みのエピソードを表す。
// PodcastIDは永続化前は上流のcollectionId（文字列）、永続化後は所属するpodcasts行の内部ID。
type Episode struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     *string    `json:"description"`
	Duration        *int       `json:"duration"`
	PubDate         *time.Time `json:"pubDate"`
	GUID            *string    `json:"guid"`
	EnclosureURL    *string    `json:"enclosureUrl"`
	EnclosureType   *string    `json:"enclosureType"`
	EnclosureLength *int64     `json:"enclosureLength"`
	ITunesDuration  *string    `json:"itunesDuration"`
	ITunesExplicit  *bool      `json:"itunesExplicit"`
	ITunesImage     *string    `json:"itunesImage"`
	ITunesOrder     *int       `json:"itunesOrder"`
	ITunesSubtitle  *string    `json:"itunesSubtitle"`
	ITunesSummary   *string    `json:"itunesSummary"`
	ITunesKeywords  *string    `json:"itunesKeywords"`
	ITunesAuthor    *string    `json:"itunesAuthor"`
	PodcastID       string     `json:"podcastId"`
	PodcastName     *string    `json:"podcastName"`
	PodcastArtist   *string    `json:"podcastArtist"`
	PodcastArtwork  *string    `json:"podcastArtwork"`
	TrackViewURL    *string    `json:"trackViewUrl"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// SearchHistory は1回の検索（またはトレンド取得）の記録を表す。
// Termには検索語、トレンド取得時は合成キャッシュキーが入る。
type SearchHistory struct {
	ID          string    `json:"id"`
	Term        string    `json:"term"`
	ResultCount int       `json:"resultCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// StringPtr は文字列のポインタを返す。空文字列の場合はnilを返す。
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StringValue はポインタの指す文字列を返す。nilの場合は空文字列。
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
