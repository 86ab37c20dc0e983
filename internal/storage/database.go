package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"  // Registers the postgres driver
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// Errors returned by the storage layer. Match with errors.Is.
var (
	ErrNotFound  = errors.New("storage: not found")
	ErrConflict  = errors.New("storage: version conflict")
	ErrDuplicate = errors.New("storage: already exists")
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn   *sql.DB
	driver string
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(driver, dsn string) (*DB, error) {
	var stmts []string
	switch driver {
	case DriverSQLite, "":
		driver = DriverSQLite
		dsn = sqliteDSN(dsn)
		stmts = sqliteSchema
	case DriverPostgres:
		stmts = postgresSchema
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// One writer at a time; transactions hold the only connection.
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{conn: conn, driver: driver}
	for _, stmt := range stmts {
		if _, err := conn.Exec(stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	if _, err := conn.Exec(`INSERT INTO study_stats (id) VALUES (1) ON CONFLICT (id) DO NOTHING`); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialise stats: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Driver returns the name of the driver in use.
func (db *DB) Driver() string {
	return db.driver
}

// sqliteDSN enables foreign keys and a busy timeout on every pooled connection.
func sqliteDSN(dsn string) string {
	if dsn == "" {
		dsn = "studybuddy.db"
	}
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// rebind rewrites ? placeholders to $n for postgres.
func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// inTx runs fn in a transaction, committing when fn returns nil.
func (db *DB) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
