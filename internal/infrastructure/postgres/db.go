package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/config"
)

// 使用できる database/sql ドライバー名
const (
	DriverPQ  = "postgres"
	DriverPgx = "pgx"
)

// NewConnection はPostgreSQLへの接続を作成する
// cfg.Driver で lib/pq と pgx のどちらを使うか選択する
func NewConnection(cfg *config.DatabaseConfig) (*sqlx.DB, error) {
	driver := cfg.Driver
	switch driver {
	case "":
		driver = DriverPQ
	case DriverPQ, DriverPgx:
	default:
		return nil, fmt.Errorf("未対応のデータベースドライバーです: %s", driver)
	}

	db, err := sqlx.Connect(driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗しました: %w", err)
	}

	// 接続プール設定
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

// Ping はデータベース接続を確認する
func Ping(ctx context.Context, db *sqlx.DB) error {
	return db.PingContext(ctx)
}

// PostgreSQL のエラーコード
const (
	codeUniqueViolation = "23505"
	codeInvalidText     = "22P02"
)

// errorCode はドライバーに依存せず SQLSTATE を取り出す
func errorCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return errorCode(err) == codeUniqueViolation
}

func isInvalidText(err error) bool {
	return errorCode(err) == codeInvalidText
}
