package sqlite

import (
	"database/sql"
	"embed"
	"fmt"
	stdfs "io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens (or creates) a SQLite database and applies pending migrations.
// Migrations live under migrations/ as 0001_name.up.sql.
//
// The dsn should carry _txlock=immediate so that Mutate takes the write lock
// when its transaction begins; Open adds it when missing.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		dsn = "foodatrack.db"
	}
	dsn = withImmediateTxLock(dsn)
	d, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// a single connection serialises writers and keeps shared in-memory
	// databases free of table-lock errors
	d.SetMaxOpenConns(1)
	if err := d.Ping(); err != nil {
		_ = d.Close()
		return nil, err
	}
	// journal_mode may not be supported in some contexts (e.g., in-memory). Ignore errors.
	_, _ = d.Exec(`PRAGMA journal_mode=WAL`)
	if _, err := d.Exec(`PRAGMA busy_timeout=5000`); err != nil {
		_ = d.Close()
		return nil, err
	}
	if err := applyMigrations(d); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

func withImmediateTxLock(dsn string) string {
	if strings.Contains(dsn, "_txlock=") {
		return dsn
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_txlock=immediate"
	}
	return dsn + "?_txlock=immediate"
}

//go:embed migrations/*.up.sql
var migrationsFS embed.FS

type migration struct {
	version int
	file    string
}

var migFileRe = regexp.MustCompile(`^([0-9]{4})_.+\.up\.sql$`)

// loadMigrations returns the embedded migrations in version order.
func loadMigrations() ([]migration, error) {
	list, err := stdfs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}
	var migs []migration
	for _, de := range list {
		m := migFileRe.FindStringSubmatch(de.Name())
		if de.IsDir() || m == nil {
			continue
		}
		version, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("bad migration name %q: %w", de.Name(), err)
		}
		migs = append(migs, migration{version: version, file: "migrations/" + de.Name()})
	}
	sort.Slice(migs, func(i, j int) bool { return migs[i].version < migs[j].version })
	return migs, nil
}

func appliedVersions(d *sql.DB) (map[int]bool, error) {
	if _, err := d.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP)
	)`); err != nil {
		return nil, err
	}
	rows, err := d.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	got := map[int]bool{}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		got[v] = true
	}
	return got, rows.Err()
}

// applyMigrations runs every migration not yet recorded, each in its own
// transaction together with its schema_migrations row.
func applyMigrations(d *sql.DB) error {
	migs, err := loadMigrations()
	if err != nil {
		return err
	}
	applied, err := appliedVersions(d)
	if err != nil {
		return err
	}
	for _, m := range migs {
		if applied[m.version] {
			continue
		}
		if err := applyMigration(d, m); err != nil {
			return fmt.Errorf("migration %04d failed: %w", m.version, err)
		}
	}
	return nil
}

func applyMigration(d *sql.DB, m migration) error {
	sqlText, err := migrationsFS.ReadFile(m.file)
	if err != nil {
		return err
	}
	tx, err := d.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.Exec(string(sqlText)); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations(version) VALUES(?)`, m.version); err != nil {
		return err
	}
	return tx.Commit()
}
