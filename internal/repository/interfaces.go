// Package repository はデータ永続化のインターフェースと実装を提供する。
// PostgreSQL（database/sql）とSupabase（PostgREST）の2つのバックエンドを持つ。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/podsearch/internal/model"
)

// SearchHistoryRepository は検索履歴の永続化インターフェース。
type SearchHistoryRepository interface {
	// Upsert は検索履歴をIDをキーにUPSERTする。
	Upsert(ctx context.Context, h *model.SearchHistory) error

	// ListRecent はupdated_at降順で最大limit件を返す。
	ListRecent(ctx context.Context, limit int) ([]model.SearchHistory, error)
}

// PodcastRepository はポッドキャストの永続化インターフェース。
type PodcastRepository interface {
	// Upsert はポッドキャストをp.IDをキーにUPSERTする。
	// searchHistoryIDが空の場合はsearch_history_idをNULLにする。
	Upsert(ctx context.Context, p *model.Podcast, searchHistoryID string) error

	// InsertStub はエピソードの親として最小限の列だけを持つポッドキャスト行を挿入する。
	InsertStub(ctx context.Context, stub *PodcastStub) error

	// FindIDByCollectionID は上流のcollectionIdが一致する行のうち最も新しく更新された行のIDを返す。
	// 見つからない場合は空文字列を返す。
	FindIDByCollectionID(ctx context.Context, collectionID int64) (string, error)

	// ListRecent はupdated_at降順で最大limit件を返す。genre_ids/genresはJSONからデコードする。
	ListRecent(ctx context.Context, limit int) ([]model.Podcast, error)
}

// EpisodeRepository はエピソードの永続化インターフェース。
type EpisodeRepository interface {
	// Upsert はエピソードをe.IDをキーにUPSERTする。e.PodcastIDは内部のポッドキャストIDであること。
	Upsert(ctx context.Context, e *model.Episode) error

	// ListRecent はupdated_at降順で最大limit件を返す。
	ListRecent(ctx context.Context, limit int) ([]model.Episode, error)
}

// TableBrowser は管理用のテーブル閲覧インターフェース。
// tableは呼び出し側でmodel.IsBrowsableTableにより検証済みであること（実装側でも再検証する）。
type TableBrowser interface {
	// CountRows はテーブルの総行数を返す。
	CountRows(ctx context.Context, table string) (int, error)

	// ListRows はoffsetからlimit件の行を返す。
	ListRows(ctx context.Context, table string, offset, limit int) (*model.TablePage, error)
}

// Pinger はストアの疎通確認インターフェース。
type Pinger interface {
	Ping(ctx context.Context) error
}

// PodcastStub はエピソード保存時に親ポッドキャストが存在しない場合に作成する行。
type PodcastStub struct {
	ID             string
	CollectionID   int64
	CollectionName string
	ArtistName     string
	TrackName      string
	TrackViewURL   *string
	ArtworkURL600  *string
	CreatedAt      time.Time
}
