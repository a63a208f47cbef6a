package itunes

import "encoding/json"

// 上流レスポンスのkind値。
const (
	KindPodcast        = "podcast"
	KindPodcastEpisode = "podcast-episode"
)

// PodcastResult はiTunes Search APIのポッドキャスト結果オブジェクト。
type PodcastResult struct {
	WrapperType            string   `json:"wrapperType"`
	Kind                   string   `json:"kind"`
	ArtistID               int64    `json:"artistId"`
	CollectionID           int64    `json:"collectionId"`
	TrackID                int64    `json:"trackId"`
	ArtistName             string   `json:"artistName"`
	CollectionName         string   `json:"collectionName"`
	TrackName              string   `json:"trackName"`
	CollectionCensoredName string   `json:"collectionCensoredName"`
	TrackCensoredName      string   `json:"trackCensoredName"`
	ArtistViewURL          string   `json:"artistViewUrl"`
	CollectionViewURL      string   `json:"collectionViewUrl"`
	FeedURL                string   `json:"feedUrl"`
	TrackViewURL           string   `json:"trackViewUrl"`
	ArtworkURL30           string   `json:"artworkUrl30"`
	ArtworkURL60           string   `json:"artworkUrl60"`
	ArtworkURL100          string   `json:"artworkUrl100"`
	ArtworkURL600          string   `json:"artworkUrl600"`
	CollectionPrice        float64  `json:"collectionPrice"`
	TrackPrice             float64  `json:"trackPrice"`
	CollectionHDPrice      float64  `json:"collectionHdPrice"`
	ReleaseDate            string   `json:"releaseDate"`
	CollectionExplicitness string   `json:"collectionExplicitness"`
	TrackExplicitness      string   `json:"trackExplicitness"`
	TrackCount             int      `json:"trackCount"`
	TrackTimeMillis        int64    `json:"trackTimeMillis"`
	Country                string   `json:"country"`
	Currency               string   `json:"currency"`
	PrimaryGenreName       string   `json:"primaryGenreName"`
	ContentAdvisoryRating  string   `json:"contentAdvisoryRating"`
	GenreIDs               []string `json:"genreIds"`
	Genres                 []string `json:"genres"`
}

// EpisodeGenre はエピソード結果に含まれるジャンル。
// ポッドキャスト結果と異なり、エピソードのgenresはオブジェクト配列で返る。
type EpisodeGenre struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// EpisodeResult はiTunes Search APIのエピソード結果オブジェクト。
type EpisodeResult struct {
	WrapperType           string         `json:"wrapperType"`
	Kind                  string         `json:"kind"`
	CollectionID          int64          `json:"collectionId"`
	TrackID               int64          `json:"trackId"`
	CollectionName        string         `json:"collectionName"`
	TrackName             string         `json:"trackName"`
	CollectionViewURL     string         `json:"collectionViewUrl"`
	TrackViewURL          string         `json:"trackViewUrl"`
	FeedURL               string         `json:"feedUrl"`
	ArtworkURL60          string         `json:"artworkUrl60"`
	ArtworkURL160         string         `json:"artworkUrl160"`
	ArtworkURL600         string         `json:"artworkUrl600"`
	TrackTimeMillis       int64          `json:"trackTimeMillis"`
	ReleaseDate           string         `json:"releaseDate"`
	Country               string         `json:"country"`
	ContentAdvisoryRating string         `json:"contentAdvisoryRating"`
	Genres                []EpisodeGenre `json:"genres"`
	EpisodeGUID           string         `json:"episodeGuid"`
	EpisodeURL            string         `json:"episodeUrl"`
	EpisodeFileExtension  string         `json:"episodeFileExtension"`
	EpisodeContentType    string         `json:"episodeContentType"`
	ArtistIDs             []int64        `json:"artistIds"`
	PreviewURL            string         `json:"previewUrl"`
	ClosedCaptioning      string         `json:"closedCaptioning"`
	ShortDescription      string         `json:"shortDescription"`
	Description           string         `json:"description"`
}

// PodcastResponse はポッドキャスト検索の結果。
// Rawは上流の結果オブジェクトそのもので、raw=trueの応答にそのまま使う。
type PodcastResponse struct {
	ResultCount int               `json:"resultCount"`
	Results     []PodcastResult   `json:"results"`
	Raw         []json.RawMessage `json:"-"`
}

// EpisodeResponse はエピソード検索の結果。
type EpisodeResponse struct {
	ResultCount int               `json:"resultCount"`
	Results     []EpisodeResult   `json:"results"`
	Raw         []json.RawMessage `json:"-"`
}

// CombinedResponse はポッドキャストとエピソードの同時検索をkindで振り分けた結果。
type CombinedResponse struct {
	Podcasts PodcastResponse
	Episodes EpisodeResponse
}

// envelope は上流レスポンスのトップレベル構造。
// 結果オブジェクトはkindを見てから型付きデコードするため一旦RawMessageで受ける。
type envelope struct {
	ResultCount int               `json:"resultCount"`
	Results     []json.RawMessage `json:"results"`
}

// kindProbe は結果オブジェクトのkindだけを取り出す。
type kindProbe struct {
	Kind string `json:"kind"`
}
