package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Store bundles the connection pool with a statement builder that emits
// the placeholder style of the underlying driver.
type Store struct {
	DB      *sqlx.DB
	Driver  string
	Builder sq.StatementBuilderType
}

// Open opens the pool, configures it and pings the database.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	var builder sq.StatementBuilderType
	switch driver {
	case DriverPostgres:
		builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	case DriverSQLite:
		builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)
		dsn = sqliteDSN(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if driver == DriverSQLite {
		// a single writer avoids SQLITE_BUSY between pooled connections
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{DB: db, Driver: driver, Builder: builder}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

// WithTx runs fn inside a transaction, rolling back when fn fails.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func sqliteDSN(dsn string) string {
	if dsn == "" {
		dsn = "file:crm.db"
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}

// mapError translates driver errors into entity sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return entity.ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return entity.ErrDuplicate
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return entity.ErrDuplicate
		}
	}
	return err
}

// rowsAffected returns ErrNotFound when an update touched nothing.
func rowsAffected(res sql.Result, err error) error {
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func pageQuery(q sq.SelectBuilder, page entity.Page) sq.SelectBuilder {
	if page.Limit > 0 {
		q = q.Limit(uint64(page.Limit))
	}
	if page.Offset > 0 {
		q = q.Offset(uint64(page.Offset))
	}
	return q
}

// likePattern builds a case-insensitive contains pattern.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + strings.ToLower(r.Replace(strings.TrimSpace(s))) + "%"
}

func (s *Store) count(ctx context.Context, q sq.SelectBuilder) (int, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.DB.GetContext(ctx, &n, query, args...); err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

func (s *Store) selectInto(ctx context.Context, dest any, q sq.SelectBuilder) error {
	query, args, err := q.ToSql()
	if err != nil {
		return err
	}
	return mapError(s.DB.SelectContext(ctx, dest, query, args...))
}

func (s *Store) getInto(ctx context.Context, dest any, q sq.Sqlizer) error {
	query, args, err := q.ToSql()
	if err != nil {
		return err
	}
	return mapError(s.DB.GetContext(ctx, dest, query, args...))
}

func (s *Store) exec(ctx context.Context, q sq.Sqlizer) (sql.Result, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	res, err := s.DB.ExecContext(ctx, query, args...)
	return res, mapError(err)
}

func affected(res sql.Result, err error) (int, error) {
	if err != nil {
		return 0, mapError(err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}
