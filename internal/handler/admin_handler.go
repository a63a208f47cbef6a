package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/podsearch/internal/model"
)

// ページングの既定値と上限。
const (
	defaultPage     = 1
	defaultPageSize = 20
	maxPageSize     = 100
)

// 管理APIのエラーメッセージ。
const (
	msgInvalidTable = "Invalid table name"
	msgCountFailed  = "Failed to get row count"
	msgFetchFailed  = "Failed to fetch table data"
)

// TableBrowser は管理ハンドラーが必要とするテーブル閲覧インターフェース。
type TableBrowser interface {
	CountRows(ctx context.Context, table string) (int, error)
	ListRows(ctx context.Context, table string, offset, limit int) (*model.TablePage, error)
}

// AdminHandler はデータベース閲覧用の管理HTTPハンドラー。
type AdminHandler struct {
	browser TableBrowser
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(browser TableBrowser) *AdminHandler {
	return &AdminHandler{browser: browser}
}

type tablesResponse struct {
	Success bool     `json:"success"`
	Tables  []string `json:"tables"`
}

// Pagination はテーブルページのページング情報。
type Pagination struct {
	Page            int  `json:"page"`
	PageSize        int  `json:"pageSize"`
	TotalRows       int  `json:"totalRows"`
	TotalPages      int  `json:"totalPages"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
	StartRow        int  `json:"startRow"`
	EndRow          int  `json:"endRow"`
}

type tableDataResponse struct {
	Success    bool             `json:"success"`
	TableName  string           `json:"tableName"`
	Columns    []string         `json:"columns"`
	Rows       []map[string]any `json:"rows"`
	Pagination Pagination       `json:"pagination"`
}

// ListTables は閲覧可能なテーブル名の一覧を返す。
// GET /api/admin/database/tables
func (h *AdminHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	tables := make([]string, len(model.BrowsableTables))
	copy(tables, model.BrowsableTables)
	writeJSON(w, http.StatusOK, tablesResponse{Success: true, Tables: tables})
}

// GetTable はテーブルの1ページ分の行とページング情報を返す。
// GET /api/admin/database/table/{tableName}?page=&pageSize=
func (h *AdminHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "tableName")
	if !model.IsBrowsableTable(table) {
		writeError(w, http.StatusBadRequest, msgInvalidTable)
		return
	}

	query := r.URL.Query()
	page := positiveInt(query.Get("page"), defaultPage)
	pageSize := positiveInt(query.Get("pageSize"), defaultPageSize)
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	from := (page - 1) * pageSize

	total, err := h.browser.CountRows(r.Context(), table)
	if err != nil {
		logAdminError(r, table, fmt.Errorf("count rows: %w", err))
		writeError(w, http.StatusInternalServerError, msgCountFailed)
		return
	}

	data, err := h.browser.ListRows(r.Context(), table, from, pageSize)
	if err != nil {
		logAdminError(r, table, fmt.Errorf("list rows: %w", err))
		writeError(w, http.StatusInternalServerError, msgFetchFailed)
		return
	}

	columns, rows := []string{}, []map[string]any{}
	if data != nil {
		if data.Columns != nil {
			columns = data.Columns
		}
		if data.Rows != nil {
			rows = data.Rows
		}
	}

	writeJSON(w, http.StatusOK, tableDataResponse{
		Success:    true,
		TableName:  table,
		Columns:    columns,
		Rows:       rows,
		Pagination: paginate(page, pageSize, total),
	})
}

// paginate はページ番号、ページサイズ、総行数からページング情報を計算する。
func paginate(page, pageSize, totalRows int) Pagination {
	from := (page - 1) * pageSize
	totalPages := (totalRows + pageSize - 1) / pageSize
	return Pagination{
		Page:            page,
		PageSize:        pageSize,
		TotalRows:       totalRows,
		TotalPages:      totalPages,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1,
		StartRow:        from + 1,
		EndRow:          min(from+pageSize, totalRows),
	}
}

func logAdminError(r *http.Request, table string, err error) {
	slog.Error("admin table browse failed",
		slog.String("path", r.URL.Path),
		slog.String("table", table),
		slog.String("error", err.Error()),
	)
}

// positiveInt は正の整数として解釈できない値を既定値に置き換える。
func positiveInt(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
