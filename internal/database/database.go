// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/tomtom215/machinelog/internal/config"
	"github.com/tomtom215/machinelog/internal/logging"
	"github.com/tomtom215/machinelog/internal/metrics"
)

// DB wraps the SQL connection pool and provides data access methods
type DB struct {
	conn    *sql.DB
	cfg     *config.DatabaseConfig
	dialect dialect
	now     func() time.Time
}

// dialect captures the few places where the supported drivers disagree.
type dialect struct {
	name          string
	timestampType string
	insertIgnore  string
	// ifNotExistsIndex is false for MySQL, which has no CREATE INDEX IF NOT EXISTS.
	ifNotExistsIndex bool
}

var dialects = map[string]dialect{
	"duckdb": {name: "duckdb", timestampType: "TIMESTAMP", insertIgnore: "INSERT OR IGNORE INTO", ifNotExistsIndex: true},
	"sqlite": {name: "sqlite", timestampType: "TIMESTAMP", insertIgnore: "INSERT OR IGNORE INTO", ifNotExistsIndex: true},
	"mysql":  {name: "mysql", timestampType: "DATETIME(6)", insertIgnore: "INSERT IGNORE INTO"},
}

// New opens the configured database and creates the schema.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	d, ok := dialects[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	conn, err := open(cfg)
	if err != nil {
		return nil, err
	}

	db := &DB{
		conn:    conn,
		cfg:     cfg,
		dialect: d,
		now:     func() time.Time { return time.Now().UTC() },
	}

	db.configureConnectionPool()

	ctx, cancel := context.WithTimeout(context.Background(), db.pingTimeout())
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to connect to %s database: %w", cfg.Driver, err)
	}

	if err := db.initialize(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logging.Info().Str("driver", cfg.Driver).Str("path", displayPath(cfg)).Msg("Database ready")
	return db, nil
}

// open builds the driver-specific DSN and opens the pool.
func open(cfg *config.DatabaseConfig) (*sql.DB, error) {
	switch cfg.Driver {
	case "mysql":
		mc, err := mysql.ParseDSN(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("invalid mysql DSN: %w", err)
		}
		mc.ParseTime = true
		mc.Loc = time.UTC
		// RowsAffected must count matched rows, not changed rows, for not-found detection.
		mc.ClientFoundRows = true
		connector, err := mysql.NewConnector(mc)
		if err != nil {
			return nil, fmt.Errorf("failed to create mysql connector: %w", err)
		}
		return sql.OpenDB(connector), nil

	case "sqlite":
		if err := ensureDir(cfg.Path); err != nil {
			return nil, err
		}
		dsn := cfg.Path + "?_pragma=busy_timeout(5000)&_time_format=sqlite"
		conn, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return conn, nil

	default:
		if err := ensureDir(cfg.Path); err != nil {
			return nil, err
		}
		dsn := fmt.Sprintf("%s?access_mode=read_write&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
			cfg.Path, cfg.MaxMemory)
		conn, err := sql.Open("duckdb", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return conn, nil
	}
}

// ensureDir creates the parent directory of an embedded database file.
func ensureDir(path string) error {
	if path == "" || path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create database directory %s: %w", dir, err)
	}
	return nil
}

// displayPath hides mysql credentials in logs.
func displayPath(cfg *config.DatabaseConfig) string {
	if cfg.Driver != "mysql" {
		return cfg.Path
	}
	mc, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return "(invalid dsn)"
	}
	return mc.Addr + "/" + mc.DBName
}

func (db *DB) initialize() error {
	if err := db.createTables(); err != nil {
		return err
	}
	return db.createIndexes()
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the database is reachable and refreshes pool metrics.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, db.pingTimeout())
	defer cancel()

	err := db.conn.PingContext(ctx)
	metrics.DBOpenConnections.Set(float64(db.conn.Stats().OpenConnections))
	if isConnectionError(err) {
		logging.Warn().Err(err).Str("driver", db.dialect.name).Msg("Database connection lost")
	}
	return err
}

// Driver returns the configured driver name.
func (db *DB) Driver() string {
	return db.dialect.name
}

// Conn returns the underlying connection pool.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) pingTimeout() time.Duration {
	if db.cfg.PingTimeout > 0 {
		return db.cfg.PingTimeout
	}
	return 5 * time.Second
}

// observe records query metrics; call with defer and a pointer to the
// operation's named error.
func (db *DB) observe(operation, table string, start time.Time, errp *error) {
	var err error
	if errp != nil && !isNotFound(*errp) {
		err = *errp
	}
	metrics.RecordDBQuery(operation, table, time.Since(start), err)
}
