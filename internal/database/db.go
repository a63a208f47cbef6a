package database

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
)

// サポートするdatabase/sqlドライバ名。
const (
	DriverPostgres = "postgres" // lib/pq
	DriverPgx      = "pgx"      // pgx/v5 stdlib
)

// Open はPostgreSQLデータベース接続を開く。
// driverにはDriverPostgresまたはDriverPgxを指定する。空文字列はDriverPostgresとして扱う。
// sql.Openは接続を試行しないため、実際の接続確認にはdb.PingContext()を使用すること。
func Open(driver, databaseURL string) (*sql.DB, error) {
	if driver == "" {
		driver = DriverPostgres
	}
	if driver != DriverPostgres && driver != DriverPgx {
		return nil, fmt.Errorf("unsupported database driver: %q", driver)
	}

	db, err := sql.Open(driver, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return db, nil
}
