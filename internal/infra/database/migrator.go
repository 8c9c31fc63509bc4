package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationsTable = "schema_migrations"

type Migrator struct {
	store  *Store
	log    *zap.Logger
	source fs.FS
}

func NewMigrator(store *Store, log *zap.Logger) *Migrator {
	sub, _ := fs.Sub(migrationFiles, "migrations")
	return &Migrator{store: store, log: log, source: sub}
}

// Up applies every migration newer than the recorded version, in file-name
// order, each inside its own transaction.
func (m *Migrator) Up(ctx context.Context) error {
	if _, err := m.store.DB.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP NOT NULL
	)`, migrationsTable)); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	list, err := fs.ReadDir(m.source, ".")
	if err != nil {
		return err
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name() < list[j].Name()
	})

	current, err := m.Version(ctx)
	if err != nil {
		return err
	}

	pending := 0
	for _, f := range list {
		v, err := scriptVersion(f.Name())
		if err != nil {
			return err
		}
		if v > current {
			pending++
		}
	}
	if pending > 0 {
		m.log.Info("Applying schema migrations", zap.Int("migration_count", pending), zap.Int("current_version", current))
	}

	for _, f := range list {
		name := f.Name()
		v, _ := scriptVersion(name)
		if v <= current {
			continue
		}

		body, err := fs.ReadFile(m.source, name)
		if err != nil {
			return err
		}

		m.log.Debug("Executing schema migration", zap.String("migration_name", name))
		err = m.store.WithTx(ctx, func(tx *sqlx.Tx) error {
			for _, stmt := range splitStatements(string(body)) {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
			}
			insert := m.store.Builder.Insert(migrationsTable).
				Columns("version", "name", "applied_at").
				Values(v, name, entity.Now())
			query, args, err := insert.ToSql()
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx, query, args...)
			return err
		})
		if err != nil {
			return err
		}
		current = v
	}
	return nil
}

// Version returns the highest applied migration, or 0.
func (m *Migrator) Version(ctx context.Context) (int, error) {
	var v int
	err := m.store.DB.GetContext(ctx, &v, fmt.Sprintf(`SELECT COALESCE(MAX(version), 0) FROM %s`, migrationsTable))
	return v, err
}

// extract the version number from a file named like "0002_leads.sql"
func scriptVersion(filename string) (int, error) {
	v, err := strconv.Atoi(strings.Split(filename, "_")[0])
	if err != nil {
		return 0, fmt.Errorf("migration %q: bad version prefix", filename)
	}
	return v, nil
}

func splitStatements(script string) []string {
	var out []string
	for _, stmt := range strings.Split(script, ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			out = append(out, s)
		}
	}
	return out
}
