package source

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectPlaceholders(t *testing.T) {
	assert.Equal(t, "?", MySQL.Placeholder(3))
	assert.Equal(t, "$3", Postgres.Placeholder(3))
	assert.Equal(t, "?, ?, ?", SQLite.Placeholders(1, 3))
	assert.Equal(t, "$2, $3", Postgres.Placeholders(2, 2))
}

func TestDialectConcat(t *testing.T) {
	assert.Equal(t, "CONCAT(q.id, '-', s.student_id)", MySQL.Concat("q.id", "'-'", "s.student_id"))
	assert.Equal(t, "(CAST(q.id AS TEXT) || '-' || CAST(s.student_id AS TEXT))", Postgres.Concat("q.id", "'-'", "s.student_id"))
}

func TestDialectFor(t *testing.T) {
	d, err := DialectFor("pgx")
	require.NoError(t, err)
	assert.Equal(t, Postgres, d)

	_, err = DialectFor("oracle")
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestMySQLConfigFromFields(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	mc, err := mysqlConfig(Config{
		Driver:   DriverMySQL,
		Host:     "db.internal",
		User:     "report",
		Password: "secret",
		Name:     "teater",
		Location: loc,
	})
	require.NoError(t, err)
	assert.Equal(t, "db.internal:3306", mc.Addr)
	assert.Equal(t, "tcp", mc.Net)
	assert.Equal(t, "teater", mc.DBName)
	assert.True(t, mc.ParseTime)
	assert.Equal(t, loc, mc.Loc)
}

func TestMySQLConfigFromDSN(t *testing.T) {
	mc, err := mysqlConfig(Config{Driver: DriverMySQL, DSN: "report:secret@tcp(replica:3307)/teater?parseTime=true", Host: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, "replica:3307", mc.Addr)
	assert.Equal(t, "teater", mc.DBName)
}

func TestMalformedMySQLDSNIsRejected(t *testing.T) {
	_, err := mysqlConfig(Config{Driver: DriverMySQL, DSN: "report:secret@tcp(replica:3307", Host: "db.internal"})
	assert.ErrorContains(t, err, "parse mysql DSN")

	_, err = Open(context.Background(), Config{Driver: DriverMySQL, DSN: "report:secret@tcp(replica:3307", Host: "db.internal"})
	assert.ErrorContains(t, err, "parse mysql DSN")
}

func TestDefaultPortPerDriver(t *testing.T) {
	mc, err := mysqlConfig(Config{Driver: DriverMySQL, Host: "db.internal"})
	require.NoError(t, err)
	assert.Equal(t, "db.internal:3306", mc.Addr)

	dsn, err := dataSourceName(Config{Driver: DriverPostgres, Host: "db.internal", Name: "teater"})
	require.NoError(t, err)
	assert.Equal(t, "host=db.internal port=5432 dbname=teater", dsn)
}

func TestPostgresDataSourceName(t *testing.T) {
	dsn, err := dataSourceName(Config{Driver: DriverPostgres, User: "report", Password: "it's", Name: "teater", Port: 6543})
	require.NoError(t, err)
	assert.Equal(t, `host=localhost port=6543 dbname=teater user=report password='it\'s'`, dsn)

	_, err = dataSourceName(Config{Driver: DriverSQLite})
	assert.Error(t, err)
}

func TestOpenSQLite(t *testing.T) {
	db, err := Open(context.Background(), Config{
		Driver: DriverSQLite,
		Name:   filepath.Join(t.TempDir(), "teater.db"),
	})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, SQLite, db.Dialect)
	var one int
	require.NoError(t, db.QueryRowContext(context.Background(), "SELECT 1").Scan(&one))
	assert.Equal(t, 1, one)
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "oracle"})
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}
