package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/supabase-community/postgrest-go"

	"github.com/hitoshi/podsearch/internal/model"
)

// PostgrestClient はテーブル単位のクエリビルダーを返すクライアント。
// *supabase.Client と *postgrest.Client のどちらも満たす。
type PostgrestClient interface {
	From(table string) *postgrest.QueryBuilder
}

var newestFirst = &postgrest.OrderOpts{Ascending: false}

// SupabaseSearchHistoryRepo はSupabase（PostgREST）を使用した検索履歴リポジトリ。
// PostgRESTのクエリビルダーはcontextを受け取らないため、ctxはリクエスト前のキャンセル確認にのみ使う。
type SupabaseSearchHistoryRepo struct {
	client PostgrestClient
}

func NewSupabaseSearchHistoryRepo(client PostgrestClient) *SupabaseSearchHistoryRepo {
	return &SupabaseSearchHistoryRepo{client: client}
}

func (r *SupabaseSearchHistoryRepo) Upsert(ctx context.Context, h *model.SearchHistory) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	row := searchHistoryToRow(h)
	if _, _, err := r.client.From(model.TableSearchHistory).Upsert(row, "id", "minimal", "").Execute(); err != nil {
		return fmt.Errorf("検索履歴の保存に失敗しました: %w", err)
	}
	return nil
}

func (r *SupabaseSearchHistoryRepo) ListRecent(ctx context.Context, limit int) ([]model.SearchHistory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, _, err := r.client.From(model.TableSearchHistory).
		Select("*", "", false).
		Order("updated_at", newestFirst).
		Limit(limit, "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("検索履歴の取得に失敗しました: %w", err)
	}

	var rows []searchHistoryRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("検索履歴のデコードに失敗しました: %w", err)
	}
	out := make([]model.SearchHistory, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toModel())
	}
	return out, nil
}

// SupabasePodcastRepo はSupabase（PostgREST）を使用したポッドキャストリポジトリ。
type SupabasePodcastRepo struct {
	client PostgrestClient
}

func NewSupabasePodcastRepo(client PostgrestClient) *SupabasePodcastRepo {
	return &SupabasePodcastRepo{client: client}
}

func (r *SupabasePodcastRepo) Upsert(ctx context.Context, p *model.Podcast, searchHistoryID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	row, err := podcastToRow(p, searchHistoryID)
	if err != nil {
		return err
	}
	if _, _, err := r.client.From(model.TablePodcasts).Upsert(row, "id", "minimal", "").Execute(); err != nil {
		return fmt.Errorf("ポッドキャストの保存に失敗しました: %w", err)
	}
	return nil
}

func (r *SupabasePodcastRepo) InsertStub(ctx context.Context, stub *PodcastStub) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	row := stubToRow(stub)
	if _, _, err := r.client.From(model.TablePodcasts).Insert(row, false, "", "minimal", "").Execute(); err != nil {
		return fmt.Errorf("ポッドキャストスタブの作成に失敗しました: %w", err)
	}
	return nil
}

func (r *SupabasePodcastRepo) FindIDByCollectionID(ctx context.Context, collectionID int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	body, _, err := r.client.From(model.TablePodcasts).
		Select("id", "", false).
		Eq("collection_id", strconv.FormatInt(collectionID, 10)).
		Order("updated_at", newestFirst).
		Limit(1, "").
		Execute()
	if err != nil {
		return "", fmt.Errorf("ポッドキャストの検索に失敗しました: %w", err)
	}

	var rows []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return "", fmt.Errorf("ポッドキャストのデコードに失敗しました: %w", err)
	}
	if len(rows) == 0 {
		return "", nil
	}
	return rows[0].ID, nil
}

func (r *SupabasePodcastRepo) ListRecent(ctx context.Context, limit int) ([]model.Podcast, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, _, err := r.client.From(model.TablePodcasts).
		Select("*", "", false).
		Order("updated_at", newestFirst).
		Limit(limit, "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("ポッドキャスト一覧の取得に失敗しました: %w", err)
	}

	var rows []podcastRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("ポッドキャスト一覧のデコードに失敗しました: %w", err)
	}
	out := make([]model.Podcast, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toModel())
	}
	return out, nil
}

// SupabaseEpisodeRepo はSupabase（PostgREST）を使用したエピソードリポジトリ。
type SupabaseEpisodeRepo struct {
	client PostgrestClient
}

func NewSupabaseEpisodeRepo(client PostgrestClient) *SupabaseEpisodeRepo {
	return &SupabaseEpisodeRepo{client: client}
}

func (r *SupabaseEpisodeRepo) Upsert(ctx context.Context, e *model.Episode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	row := episodeToRow(e)
	if _, _, err := r.client.From(model.TableEpisodes).Upsert(row, "id", "minimal", "").Execute(); err != nil {
		return fmt.Errorf("エピソードの保存に失敗しました: %w", err)
	}
	return nil
}

func (r *SupabaseEpisodeRepo) ListRecent(ctx context.Context, limit int) ([]model.Episode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, _, err := r.client.From(model.TableEpisodes).
		Select("*", "", false).
		Order("updated_at", newestFirst).
		Limit(limit, "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("エピソード一覧の取得に失敗しました: %w", err)
	}

	var rows []episodeRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("エピソード一覧のデコードに失敗しました: %w", err)
	}
	out := make([]model.Episode, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toModel())
	}
	return out, nil
}

// SupabaseTableBrowser はPostgREST経由でテーブルを閲覧する。
type SupabaseTableBrowser struct {
	client PostgrestClient
}

func NewSupabaseTableBrowser(client PostgrestClient) *SupabaseTableBrowser {
	return &SupabaseTableBrowser{client: client}
}

// CountRows はcount=exactのHEADリクエストで総行数を取得する。
func (b *SupabaseTableBrowser) CountRows(ctx context.Context, table string) (int, error) {
	if !model.IsBrowsableTable(table) {
		return 0, fmt.Errorf("table %q is not browsable", table)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	_, count, err := b.client.From(table).Select("*", "exact", true).Execute()
	if err != nil {
		return 0, fmt.Errorf("%s の行数取得に失敗しました: %w", table, err)
	}
	return int(count), nil
}

// ListRows はRangeでページ分の行を取得する。カラム名は先頭行のキー順を保持する。
func (b *SupabaseTableBrowser) ListRows(ctx context.Context, table string, offset, limit int) (*model.TablePage, error) {
	if !model.IsBrowsableTable(table) {
		return nil, fmt.Errorf("table %q is not browsable", table)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, _, err := b.client.From(table).
		Select("*", "", false).
		Order("created_at", &postgrest.OrderOpts{Ascending: true}).
		Range(offset, offset+limit-1, "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("%s の行取得に失敗しました: %w", table, err)
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, fmt.Errorf("%s のデコードに失敗しました: %w", table, err)
	}

	page := &model.TablePage{Columns: []string{}, Rows: make([]map[string]any, 0, len(raws))}
	for i, raw := range raws {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var record map[string]any
		if err := dec.Decode(&record); err != nil {
			return nil, fmt.Errorf("%s の行 %d のデコードに失敗しました: %w", table, i, err)
		}
		page.Rows = append(page.Rows, record)
	}
	if len(raws) > 0 {
		cols, err := objectKeys(raws[0])
		if err != nil {
			return nil, fmt.Errorf("%s のカラム取得に失敗しました: %w", table, err)
		}
		page.Columns = cols
	}
	return page, nil
}

// objectKeys はJSONオブジェクトのトップレベルのキーを出現順に返す。
func objectKeys(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected JSON object")
	}

	keys := []string{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		keys = append(keys, key)

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// SupabasePinger はsearch_historyへのHEADリクエストで疎通を確認する。
type SupabasePinger struct {
	client PostgrestClient
}

func NewSupabasePinger(client PostgrestClient) *SupabasePinger {
	return &SupabasePinger{client: client}
}

func (p *SupabasePinger) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, _, err := p.client.From(model.TableSearchHistory).Select("id", "", true).Limit(1, "").Execute(); err != nil {
		return fmt.Errorf("supabase ping failed: %w", err)
	}
	return nil
}
