package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/podsearch/internal/model"
)

var (
	upsertEpisodeSQL = upsertSQL(model.TableEpisodes, episodeColumns)
	listEpisodesSQL  = selectSQL(model.TableEpisodes, episodeColumns) + " ORDER BY updated_at DESC LIMIT $1"
)

// PostgresEpisodeRepo はPostgreSQLを使用したエピソードリポジトリ。
type PostgresEpisodeRepo struct {
	db *sql.DB
}

// NewPostgresEpisodeRepo はPostgresEpisodeRepoを生成する。
func NewPostgresEpisodeRepo(db *sql.DB) *PostgresEpisodeRepo {
	return &PostgresEpisodeRepo{db: db}
}

func (r *PostgresEpisodeRepo) Upsert(ctx context.Context, e *model.Episode) error {
	row := episodeToRow(e)
	if _, err := r.db.ExecContext(ctx, upsertEpisodeSQL, row.values()...); err != nil {
		return fmt.Errorf("エピソードの保存に失敗しました: %w", err)
	}
	return nil
}

func (r *PostgresEpisodeRepo) ListRecent(ctx context.Context, limit int) ([]model.Episode, error) {
	rows, err := r.db.QueryContext(ctx, listEpisodesSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("エピソード一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	out := []model.Episode{}
	for rows.Next() {
		var row episodeRow
		if err := rows.Scan(row.dest()...); err != nil {
			return nil, fmt.Errorf("エピソードのスキャンに失敗しました: %w", err)
		}
		out = append(out, row.toModel())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("エピソード一覧の取得に失敗しました: %w", err)
	}
	return out, nil
}
