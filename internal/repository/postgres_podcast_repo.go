package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/podsearch/internal/model"
)

var (
	upsertPodcastSQL     = upsertSQL(model.TablePodcasts, podcastColumns)
	insertPodcastStubSQL = insertSQL(model.TablePodcasts, podcastStubColumns)
	listPodcastsSQL      = selectSQL(model.TablePodcasts, podcastColumns) + " ORDER BY updated_at DESC LIMIT $1"
)

const findPodcastIDByCollectionSQL = `SELECT id FROM podcasts WHERE collection_id = $1 ORDER BY updated_at DESC LIMIT 1`

// PostgresPodcastRepo はPostgreSQLを使用したポッドキャストリポジトリ。
type PostgresPodcastRepo struct {
	db *sql.DB
}

// NewPostgresPodcastRepo はPostgresPodcastRepoを生成する。
func NewPostgresPodcastRepo(db *sql.DB) *PostgresPodcastRepo {
	return &PostgresPodcastRepo{db: db}
}

func (r *PostgresPodcastRepo) Upsert(ctx context.Context, p *model.Podcast, searchHistoryID string) error {
	row, err := podcastToRow(p, searchHistoryID)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, upsertPodcastSQL, row.values()...); err != nil {
		return fmt.Errorf("ポッドキャストの保存に失敗しました: %w", err)
	}
	return nil
}

func (r *PostgresPodcastRepo) InsertStub(ctx context.Context, stub *PodcastStub) error {
	row := stubToRow(stub)
	if _, err := r.db.ExecContext(ctx, insertPodcastStubSQL, row.values()...); err != nil {
		return fmt.Errorf("ポッドキャストスタブの作成に失敗しました: %w", err)
	}
	return nil
}

func (r *PostgresPodcastRepo) FindIDByCollectionID(ctx context.Context, collectionID int64) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, findPodcastIDByCollectionSQL, collectionID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("ポッドキャストの検索に失敗しました: %w", err)
	}
	return id, nil
}

func (r *PostgresPodcastRepo) ListRecent(ctx context.Context, limit int) ([]model.Podcast, error) {
	rows, err := r.db.QueryContext(ctx, listPodcastsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("ポッドキャスト一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	out := []model.Podcast{}
	for rows.Next() {
		var row podcastRow
		if err := rows.Scan(row.dest()...); err != nil {
			return nil, fmt.Errorf("ポッドキャストのスキャンに失敗しました: %w", err)
		}
		out = append(out, row.toModel())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ポッドキャスト一覧の取得に失敗しました: %w", err)
	}
	return out, nil
}
