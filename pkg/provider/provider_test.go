package provider

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/go-go-golems/sqlunit/pkg/units"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	// sqlite
	_ "github.com/mattn/go-sqlite3"
)

func sqliteUnits(t *testing.T) units.Units {
	return units.Units{
		"SqliteUnit": {
			Name:     "SqliteUnit",
			Driver:   "sqlite3",
			Database: filepath.Join(t.TempDir(), "test.db"),
		},
	}
}

func TestOpenSqliteUnit(t *testing.T) {
	p := NewSQLProvider(WithUnits(sqliteUnits(t)))

	f, err := p.Open("SqliteUnit", map[string]string{"maxOpenConns": "3"})
	require.NoError(t, err)
	defer func() {
		_ = f.Close()
	}()

	assert.Equal(t, "sqlite3", f.ProviderID())
	assert.Equal(t, "3", f.Unit().Properties[units.PropertyMaxOpenConns])
	assert.Equal(t, 3, f.DB().Stats().MaxOpenConnections)

	_, err = f.DB().Exec("CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)")
	require.NoError(t, err)
}

func TestCreateFactoryUnknownUnit(t *testing.T) {
	p := NewSQLProvider(WithUnits(sqliteUnits(t)))

	f, err := p.CreateFactory("HibernateUnit", nil)
	require.Error(t, err)
	assert.Nil(t, f)
	assert.Contains(t, err.Error(), "HibernateUnit")
}

func TestCreateFactoryInvalidProperty(t *testing.T) {
	p := NewSQLProvider(WithUnits(sqliteUnits(t)))

	_, err := p.CreateFactory("SqliteUnit", map[string]string{"max-open-conns": "many"})
	require.Error(t, err)
}

func TestCreateFactoryMissingUnitsFile(t *testing.T) {
	p := NewSQLProvider(WithUnitsFile(filepath.Join(t.TempDir(), "units.yaml")))

	_, err := p.CreateFactory("SqliteUnit", nil)
	require.Error(t, err)
}

func TestCreateHandle(t *testing.T) {
	p := NewSQLProvider(WithUnits(sqliteUnits(t)))
	f, err := p.CreateFactory("SqliteUnit", nil)
	require.NoError(t, err)
	defer func() {
		_ = f.Close()
	}()

	ctx := context.Background()
	h1, err := f.CreateHandle(ctx, map[string]string{
		"initSql": "CREATE TABLE IF NOT EXISTS test (id INTEGER PRIMARY KEY)",
	})
	require.NoError(t, err)
	defer func() {
		_ = h1.Close()
	}()

	assert.Equal(t, "sqlite3", h1.ProviderID)
	assert.Contains(t, h1.Properties, units.PropertyInitSQL)

	_, err = h1.Conn.ExecContext(ctx, "INSERT INTO test (id) VALUES (1)")
	require.NoError(t, err)

	h2, err := f.CreateHandle(ctx, nil)
	require.NoError(t, err)
	defer func() {
		_ = h2.Close()
	}()
	assert.NotEqual(t, h1.ID, h2.ID)

	var count int
	require.NoError(t, h2.Conn.GetContext(ctx, &count, "SELECT COUNT(*) FROM test"))
	assert.Equal(t, 1, count)
}

func TestCreateHandleFailingInitSQL(t *testing.T) {
	p := NewSQLProvider(WithUnits(sqliteUnits(t)))
	f, err := p.CreateFactory("SqliteUnit", nil)
	require.NoError(t, err)
	defer func() {
		_ = f.Close()
	}()

	_, err = f.CreateHandle(context.Background(), map[string]string{"init-sql": "NOT SQL"})
	require.Error(t, err)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	p := NewSQLProvider(WithUnits(sqliteUnits(t)), WithMetrics(m))

	f, err := p.CreateFactory("SqliteUnit", nil)
	require.NoError(t, err)
	defer func() {
		_ = f.Close()
	}()

	_, err = p.CreateFactory("EclipseLinkUnit", nil)
	require.Error(t, err)

	h, err := f.CreateHandle(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, h.Close())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.factoriesOpened.WithLabelValues("sqlite3")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.openFailures.WithLabelValues("EclipseLinkUnit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.handlesCreated.WithLabelValues("sqlite3")))
}

func TestNilMetricsAndHandle(t *testing.T) {
	var m *Metrics
	m.factoryOpened("x")
	m.openFailed("x")
	m.handleCreated("x")

	h := &Handle{}
	assert.NoError(t, h.Close())
}
