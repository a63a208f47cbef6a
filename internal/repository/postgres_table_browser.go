package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hitoshi/podsearch/internal/model"
)

// PostgresTableBrowser はPostgreSQLのテーブルをそのまま閲覧する。
type PostgresTableBrowser struct {
	db *sql.DB
}

// NewPostgresTableBrowser はPostgresTableBrowserを生成する。
func NewPostgresTableBrowser(db *sql.DB) *PostgresTableBrowser {
	return &PostgresTableBrowser{db: db}
}

func (b *PostgresTableBrowser) CountRows(ctx context.Context, table string) (int, error) {
	if !model.IsBrowsableTable(table) {
		return 0, fmt.Errorf("table %q is not browsable", table)
	}

	var n int
	query := "SELECT count(*) FROM " + pq.QuoteIdentifier(table)
	if err := b.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s の行数取得に失敗しました: %w", table, err)
	}
	return n, nil
}

// ListRows はcreated_at, idの昇順でページ分の行を返す。
// カラム名は行が1件以上ある場合のみ設定される。
func (b *PostgresTableBrowser) ListRows(ctx context.Context, table string, offset, limit int) (*model.TablePage, error) {
	if !model.IsBrowsableTable(table) {
		return nil, fmt.Errorf("table %q is not browsable", table)
	}

	query := "SELECT * FROM " + pq.QuoteIdentifier(table) + " ORDER BY created_at, id LIMIT $1 OFFSET $2"
	rows, err := b.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s の行取得に失敗しました: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%s のカラム取得に失敗しました: %w", table, err)
	}

	page := &model.TablePage{Columns: []string{}, Rows: []map[string]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%s の行スキャンに失敗しました: %w", table, err)
		}

		record := make(map[string]any, len(columns))
		for i, col := range columns {
			record[col] = normalizeValue(values[i])
		}
		page.Rows = append(page.Rows, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s の行取得に失敗しました: %w", table, err)
	}

	if len(page.Rows) > 0 {
		page.Columns = columns
	}
	return page, nil
}

// normalizeValue はJSONに出力できるようドライバ固有の値を変換する。
// lib/pqはuuidを[]byteで、pgxは[16]byteで返すことがある。
func normalizeValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case [16]byte:
		return uuid.UUID(x).String()
	default:
		return v
	}
}

// PostgresPinger はdatabase/sqlの接続を確認する。
type PostgresPinger struct {
	db *sql.DB
}

// NewPostgresPinger はPostgresPingerを生成する。
func NewPostgresPinger(db *sql.DB) *PostgresPinger {
	return &PostgresPinger{db: db}
}

func (p *PostgresPinger) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
