package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect определяет SQL-диалект и одновременно имя драйвера database/sql.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// ErrNotFound возвращается, когда пост, пользователь или событие голоса не найдены.
// Вызывающая сторона отвечает 404 и не повторяет запрос.
var ErrNotFound = errors.New("not found")

// ErrConflict — нарушение уникальности при создании записи.
var ErrConflict = errors.New("already exists")

// Querier — общее подмножество *sql.DB и *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries выполняет запросы либо напрямую к пулу, либо внутри транзакции.
type Queries struct {
	q Querier
}

// NewQueries оборачивает пул или транзакцию.
func NewQueries(q Querier) *Queries {
	return &Queries{q: q}
}

type DB struct {
	*Queries
	Conn    *sql.DB
	Dialect Dialect
}

func NewDB(conn *sql.DB, dialect Dialect) *DB {
	return &DB{Queries: NewQueries(conn), Conn: conn, Dialect: dialect}
}

// Open открывает пул соединений и проверяет его пингом.
func Open(ctx context.Context, dialect Dialect, dsn string) (*DB, error) {
	if dialect != DialectPostgres && dialect != DialectSQLite {
		return nil, fmt.Errorf("unsupported db driver %q", dialect)
	}
	conn, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dialect == DialectSQLite {
		// SQLite сериализует запись; одно соединение исключает SQLITE_BUSY
		// и делает :memory: базу общей для всех запросов.
		conn.SetMaxOpenConns(1)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return NewDB(conn, dialect), nil
}

func (db *DB) Close() error {
	if db.Conn != nil {
		return db.Conn.Close()
	}
	return nil
}

// WithTx выполняет fn в транзакции: коммит при nil, откат при любой ошибке или панике.
func (db *DB) WithTx(ctx context.Context, fn func(q *Queries) error) error {
	return db.withTx(ctx, nil, fn)
}

// WithSnapshot выполняет чтение в одной read-only транзакции, чтобы посты, lineage,
// Score, Effect и история голосов были прочитаны в одной согласованной точке.
func (db *DB) WithSnapshot(ctx context.Context, fn func(q *Queries) error) error {
	var opts *sql.TxOptions
	if db.Dialect == DialectPostgres {
		opts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return db.withTx(ctx, opts, fn)
}

func (db *DB) withTx(ctx context.Context, opts *sql.TxOptions, fn func(q *Queries) error) (err error) {
	tx, err := db.Conn.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				slog.Warn("[DB WARN] rollback failed", "err", rbErr)
			}
		}
	}()

	if err = fn(NewQueries(tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// isUniqueViolation распознаёт нарушение уникальности для обоих драйверов.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// notFound переводит sql.ErrNoRows в доменную ErrNotFound, не раскрывая детали хранилища.
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}
