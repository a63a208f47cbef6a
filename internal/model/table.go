package model

// 管理用テーブルブラウザで閲覧可能なテーブル名。
const (
	TableSearchHistory = "search_history"
	TablePodcasts      = "podcasts"
	TableEpisodes      = "episodes"
)

// BrowsableTables は閲覧を許可するテーブルの許可リスト。
// SQLに埋め込むテーブル名はこのリストに含まれるもののみ。
var BrowsableTables = []string{TableSearchHistory, TablePodcasts, TableEpisodes}

// IsBrowsableTable はテーブル名が許可リストに含まれるかを判定する。
func IsBrowsableTable(name string) bool {
	for _, t := range BrowsableTables {
		if t == name {
			return true
		}
	}
	return false
}

// TablePage はテーブルの1ページ分の行を表す。
// Columnsは先頭行から推定したカラム名の並び。
type TablePage struct {
	Columns []string
	Rows    []map[string]any
}
