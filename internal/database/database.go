package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

type SQLRepository struct {
	conn   *sqlx.DB
	driver string
}

// NewSQLRepository opens and pings a connection pool for the given driver,
// then applies any pending migrations.
func NewSQLRepository(driver, dsn string) (*SQLRepository, error) {
	switch driver {
	case DriverPostgres:
	case DriverSQLite:
		dsn = sqliteDSN(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	if err := Migrate(driver, dsn); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if driver == DriverSQLite {
		// sqlite allows a single writer
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLRepository{conn: db, driver: driver}, nil
}

// sqliteDSN turns a path into a URI with foreign key enforcement, which
// sqlite leaves off by default for every new connection.
func sqliteDSN(dsn string) string {
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}

	if !strings.Contains(dsn, "foreign_keys") {
		dsn += sep + "_pragma=foreign_keys(1)"
		sep = "&"
	}
	if !strings.Contains(dsn, "busy_timeout") {
		dsn += sep + "_pragma=busy_timeout(5000)"
	}

	return dsn
}

func (db *SQLRepository) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *SQLRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
