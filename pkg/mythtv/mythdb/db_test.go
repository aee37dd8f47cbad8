package mythdb

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/gomyth/internal/config"
	"github.com/jmylchreest/gomyth/pkg/mythtv/models"
	"github.com/jmylchreest/gomyth/pkg/mythtv/versioning"
)

const testSchema = models.Schema029

func sqliteConfig() config.DatabaseConfig {
	return config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      ":memory:",
		LogLevel: "silent",
		TimeZone: "UTC",
	}
}

// openTestDB opens an in-memory database holding the tables of keys as
// declared at testSchema, plus a settings table carrying DBSchemaVer.
func openTestDB(t *testing.T, keys ...string) *DB {
	t.Helper()

	db, err := Open(sqliteConfig(), nil, &Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	createTable(t, db, models.KeySetting)
	_, err = db.Exec(ctx, "INSERT INTO settings (value, data, hostname) VALUES (?, ?, NULL)",
		SchemaSetting, fmt.Sprint(int(testSchema)))
	require.NoError(t, err)

	for _, key := range keys {
		createTable(t, db, key)
	}
	return db
}

func createTable(t *testing.T, db *DB, key string) {
	t.Helper()

	cat := db.Registry().Catalog()
	set, ok := cat.FieldSet(key)
	require.True(t, ok, key)
	auto, _ := models.AutoIncrement(key)

	var cols []string
	for _, f := range cat.ValidFields(key, testSchema) {
		if f.Name == auto {
			cols = append(cols, quote(f.ColumnName())+" INTEGER PRIMARY KEY AUTOINCREMENT")
			continue
		}
		cols = append(cols, quote(f.ColumnName())+" TEXT")
	}
	_, err := db.Exec(context.Background(),
		fmt.Sprintf("CREATE TABLE %s (%s)", quote(set.Table), strings.Join(cols, ", ")))
	require.NoError(t, err)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "postgres"}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestOpen_BadTimeZone(t *testing.T) {
	cfg := sqliteConfig()
	cfg.TimeZone = "Mars/Olympus"
	_, err := Open(cfg, nil, nil)
	assert.Error(t, err)
}

func TestMySQLDSN_FromFields(t *testing.T) {
	dsn, err := MySQLDSN(config.DatabaseConfig{
		Host:     "mythbackend",
		Port:     3306,
		User:     "mythtv",
		Password: "mythtv",
		Name:     "mythconverg",
	})
	require.NoError(t, err)

	mc, err := mysqldriver.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "mythtv", mc.User)
	assert.Equal(t, "mythtv", mc.Passwd)
	assert.Equal(t, "tcp", mc.Net)
	assert.Equal(t, "mythbackend:3306", mc.Addr)
	assert.Equal(t, "mythconverg", mc.DBName)
	assert.False(t, mc.ParseTime)
	assert.Equal(t, defaultConnectTimeout, mc.Timeout)
}

func TestMySQLDSN_NormalizesDSN(t *testing.T) {
	dsn, err := MySQLDSN(config.DatabaseConfig{
		DSN: "mythtv:secret@tcp(db:3307)/mythconverg?parseTime=true&timeout=3s",
	})
	require.NoError(t, err)

	mc, err := mysqldriver.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "db:3307", mc.Addr)
	assert.False(t, mc.ParseTime)
	assert.Equal(t, 3*time.Second, mc.Timeout)

	_, err = MySQLDSN(config.DatabaseConfig{DSN: "not a dsn"})
	assert.Error(t, err)
}

func TestSchemaVersion_ReadsSettings(t *testing.T) {
	db := openTestDB(t)

	v, err := db.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testSchema, v)

	// Cached: later edits are not observed.
	_, err = db.Exec(context.Background(), "UPDATE settings SET data = '1299' WHERE value = ?", SchemaSetting)
	require.NoError(t, err)
	v, err = db.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testSchema, v)
}

func TestSchemaVersion_Configured(t *testing.T) {
	cfg := sqliteConfig()
	cfg.SchemaVersion = 1307
	db, err := Open(cfg, nil, &Options{})
	require.NoError(t, err)
	defer db.Close()

	v, err := db.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, versioning.Version(1307), v)
}

func TestSchemaVersion_Missing(t *testing.T) {
	db, err := Open(sqliteConfig(), nil, &Options{})
	require.NoError(t, err)
	defer db.Close()
	createTable(t, db, models.KeySetting)

	_, err = db.SchemaVersion(context.Background())
	assert.ErrorIs(t, err, ErrSchemaUnknown)

	_, err = db.Exec(context.Background(), "INSERT INTO settings (value, data) VALUES (?, 'abc')", SchemaSetting)
	require.NoError(t, err)
	_, err = db.SchemaVersion(context.Background())
	assert.ErrorIs(t, err, ErrSchemaUnknown)
}

func TestQueryRows_Nulls(t *testing.T) {
	db := openTestDB(t)

	rows, err := db.QueryRows(context.Background(),
		"SELECT value, data, hostname FROM settings WHERE value = ?", SchemaSetting)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Len(t, rows[0], 3)
	assert.Equal(t, SchemaSetting, *rows[0][0])
	assert.Nil(t, rows[0][2])

	rows, err = db.QueryRows(context.Background(), "SELECT value FROM settings WHERE value = 'nope'")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestExec(t *testing.T) {
	db := openTestDB(t)

	n, err := db.Exec(context.Background(), "DELETE FROM settings WHERE value = ?", SchemaSetting)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = db.Exec(context.Background(), "DELETE FROM missing_table")
	assert.Error(t, err)
}

func TestPing(t *testing.T) {
	db := openTestDB(t)
	assert.NoError(t, db.Ping(context.Background()))
}
