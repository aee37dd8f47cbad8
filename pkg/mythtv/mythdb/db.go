// Package mythdb reads and writes MythTV database rows as version-aware
// records. Column lists follow the field catalog at the database's schema
// version (settings.DBSchemaVer), so one binary serves every MythTV release
// the catalog declares.
package mythdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/jmylchreest/gomyth/internal/config"
	"github.com/jmylchreest/gomyth/internal/observability"
	"github.com/jmylchreest/gomyth/pkg/mythtv/codec"
	"github.com/jmylchreest/gomyth/pkg/mythtv/models"
	"github.com/jmylchreest/gomyth/pkg/mythtv/record"
	"github.com/jmylchreest/gomyth/pkg/mythtv/versioning"
)

// SchemaSetting is the settings row holding the database schema version.
const SchemaSetting = "DBSchemaVer"

const defaultConnectTimeout = 10 * time.Second

// DB wraps a GORM connection to a MythTV database.
type DB struct {
	*gorm.DB
	sqlDB  *sql.DB
	cfg    config.DatabaseConfig
	logger *slog.Logger
	reg    *record.Registry

	schemaMu sync.Mutex
	schema   versioning.Version
}

// Options contains optional configuration for database connections.
type Options struct {
	// Registry decodes rows. Defaults to the full MythTV registry with the
	// configured time zone.
	Registry *record.Registry

	// PrepareStmt enables prepared statement caching.
	PrepareStmt bool
}

// Open connects to the database described by cfg. Pass nil opts for
// defaults.
func Open(cfg config.DatabaseConfig, log *slog.Logger, opts *Options) (*DB, error) {
	if opts == nil {
		opts = &Options{PrepareStmt: true}
	}
	if log == nil {
		log = slog.Default()
	}
	log = observability.WithComponent(log, "mythdb")

	reg := opts.Registry
	if reg == nil {
		loc, err := cfg.Location()
		if err != nil {
			return nil, fmt.Errorf("resolving time zone: %w", err)
		}
		reg = models.NewRegistry(
			codec.New(models.NewCatalog(), codec.WithLocation(loc)),
			record.WithLogger(log),
		)
	}

	dialector, err := getDialector(cfg)
	if err != nil {
		return nil, fmt.Errorf("getting dialector: %w", err)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 newQueryLogger(cfg.LogLevel, log),
		SkipDefaultTransaction: true,
		PrepareStmt:            opts.PrepareStmt,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	maxOpen, maxIdle := cfg.MaxOpenConns, cfg.MaxIdleConns
	if cfg.Driver == "sqlite" {
		// In-memory databases are per connection.
		maxOpen, maxIdle = 1, 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	log.Debug("database connection pool configured",
		slog.String("driver", cfg.Driver),
		slog.Int("max_open_conns", maxOpen),
		slog.Int("max_idle_conns", maxIdle),
	)

	return &DB{
		DB:     db,
		sqlDB:  sqlDB,
		cfg:    cfg,
		logger: log,
		reg:    reg,
		schema: versioning.Version(cfg.SchemaVersion),
	}, nil
}

// getDialector returns the GORM dialector for the configured driver.
func getDialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "mysql":
		dsn, err := MySQLDSN(cfg)
		if err != nil {
			return nil, err
		}
		return mysql.Open(dsn), nil
	case "sqlite":
		dsn := cfg.DSN
		if strings.Contains(dsn, "?") {
			dsn += "&"
		} else {
			dsn += "?"
		}
		return sqlite.Open(dsn + "_pragma=busy_timeout(5000)"), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

// MySQLDSN builds the driver DSN from cfg, or normalizes cfg.DSN when set.
// Times are left as text so the codec applies MythTV's UTC rules.
func MySQLDSN(cfg config.DatabaseConfig) (string, error) {
	var mc *mysqldriver.Config
	if cfg.DSN != "" {
		parsed, err := mysqldriver.ParseDSN(cfg.DSN)
		if err != nil {
			return "", fmt.Errorf("parsing database dsn: %w", err)
		}
		mc = parsed
	} else {
		mc = mysqldriver.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = cfg.Address()
		mc.DBName = cfg.Name
	}
	mc.ParseTime = false
	if mc.Timeout == 0 {
		mc.Timeout = defaultConnectTimeout
	}
	return mc.FormatDSN(), nil
}

// Registry returns the registry rows are decoded with.
func (db *DB) Registry() *record.Registry {
	return db.reg
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	return db.sqlDB.Close()
}

// Ping verifies the connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.sqlDB.PingContext(ctx)
}

// QueryRows runs a query and returns every row as nullable strings. Nil
// entries are SQL NULL.
func (db *DB) QueryRows(ctx context.Context, query string, args ...any) ([][]*string, error) {
	rows, err := db.WithContext(ctx).Raw(query, args...).Rows()
	if err != nil {
		return nil, fmt.Errorf("querying: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	var out [][]*string
	for rows.Next() {
		scanned := make([]sql.NullString, len(cols))
		dest := make([]any, len(cols))
		for i := range scanned {
			dest[i] = &scanned[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		row := make([]*string, len(cols))
		for i, ns := range scanned {
			if ns.Valid {
				s := ns.String
				row[i] = &s
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return out, nil
}

// Exec runs a statement and returns the number of affected rows.
func (db *DB) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	result := db.WithContext(ctx).Exec(query, args...)
	if result.Error != nil {
		return 0, fmt.Errorf("executing: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// execResult runs a statement on the pool and returns the driver result.
// gorm's Exec keeps only the affected row count, so the statement is traced
// through the gorm logger here.
func (db *DB) execResult(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	result, err := db.sqlDB.ExecContext(ctx, query, args...)
	rows := int64(-1)
	if err == nil {
		rows, _ = result.RowsAffected()
	}
	db.DB.Logger.Trace(ctx, start, func() (string, int64) { return query, rows }, err)
	return result, err
}

// SchemaVersion returns the database schema version. A configured version
// wins; otherwise settings.DBSchemaVer is read once and cached.
func (db *DB) SchemaVersion(ctx context.Context) (versioning.Version, error) {
	db.schemaMu.Lock()
	defer db.schemaMu.Unlock()

	if db.schema > 0 {
		return db.schema, nil
	}

	rows, err := db.QueryRows(ctx,
		"SELECT data FROM settings WHERE value = ? AND (hostname IS NULL OR hostname = '')", SchemaSetting)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", SchemaSetting, err)
	}
	if len(rows) == 0 || rows[0][0] == nil {
		return 0, ErrSchemaUnknown
	}
	n, err := strconv.Atoi(strings.TrimSpace(*rows[0][0]))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrSchemaUnknown, *rows[0][0])
	}

	db.schema = versioning.Version(n)
	db.logger.Debug("database schema detected", slog.Int("schema", n))
	return db.schema, nil
}

// quote escapes an identifier for MySQL and SQLite.
func quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}
