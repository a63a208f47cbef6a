package repository

import (
	"fmt"
	"strings"
)

// insertSQL はcolumnsを$1..$nで受け取るINSERT文を組み立てる。
func insertSQL(table string, columns []string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
}

// upsertSQL はidの衝突時にid/created_at以外を上書きするUPSERT文を組み立てる。
func upsertSQL(table string, columns []string) string {
	var sets []string
	for _, c := range columns {
		if c == "id" || c == "created_at" {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
	}
	return insertSQL(table, columns) + " ON CONFLICT (id) DO UPDATE SET " + strings.Join(sets, ", ")
}

func selectSQL(table string, columns []string) string {
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(columns, ", "), table)
}
