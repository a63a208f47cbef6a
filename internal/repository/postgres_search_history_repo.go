package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/podsearch/internal/model"
)

var (
	upsertSearchHistorySQL = upsertSQL(model.TableSearchHistory, searchHistoryColumns)
	listSearchHistorySQL   = selectSQL(model.TableSearchHistory, searchHistoryColumns) + " ORDER BY updated_at DESC LIMIT $1"
)

// PostgresSearchHistoryRepo はPostgreSQLを使用した検索履歴リポジトリ。
type PostgresSearchHistoryRepo struct {
	db *sql.DB
}

// NewPostgresSearchHistoryRepo はPostgresSearchHistoryRepoを生成する。
func NewPostgresSearchHistoryRepo(db *sql.DB) *PostgresSearchHistoryRepo {
	return &PostgresSearchHistoryRepo{db: db}
}

func (r *PostgresSearchHistoryRepo) Upsert(ctx context.Context, h *model.SearchHistory) error {
	row := searchHistoryToRow(h)
	if _, err := r.db.ExecContext(ctx, upsertSearchHistorySQL, row.values()...); err != nil {
		return fmt.Errorf("検索履歴の保存に失敗しました: %w", err)
	}
	return nil
}

func (r *PostgresSearchHistoryRepo) ListRecent(ctx context.Context, limit int) ([]model.SearchHistory, error) {
	rows, err := r.db.QueryContext(ctx, listSearchHistorySQL, limit)
	if err != nil {
		return nil, fmt.Errorf("検索履歴の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	out := []model.SearchHistory{}
	for rows.Next() {
		var row searchHistoryRow
		if err := rows.Scan(row.dest()...); err != nil {
			return nil, fmt.Errorf("検索履歴のスキャンに失敗しました: %w", err)
		}
		out = append(out, row.toModel())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("検索履歴の取得に失敗しました: %w", err)
	}
	return out, nil
}
