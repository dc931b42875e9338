package damper

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"    // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration
	"github.com/go-go-golems/sqlunit/pkg/provider"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Damper smooths over the differences between providers: placeholder
// style, identifier quoting, per-connection session setup and catalog
// queries.
type Damper interface {
	Name() string
	BindType() int
	Rebind(query string) string
	Flavor() sqlbuilder.Flavor
	Dialect() goqu.DialectWrapper
	// Prepare runs the provider's session statements on a fresh handle.
	Prepare(ctx context.Context, h *provider.Handle) error
	// ListTablesQuery returns a query with a single "name" column listing
	// the tables of the current database.
	ListTablesQuery() (string, []interface{}, error)
	CountQuery(table string) (string, []interface{})
}

type dialectDamper struct {
	name        string
	bindType    int
	flavor      sqlbuilder.Flavor
	dialect     string
	session     []string
	tablesQuery func(d goqu.DialectWrapper) *goqu.SelectDataset
}

var _ Damper = (*dialectDamper)(nil)

func (d *dialectDamper) Name() string {
	return d.name
}

func (d *dialectDamper) BindType() int {
	return d.bindType
}

func (d *dialectDamper) Rebind(query string) string {
	return sqlx.Rebind(d.bindType, query)
}

func (d *dialectDamper) Flavor() sqlbuilder.Flavor {
	return d.flavor
}

func (d *dialectDamper) Dialect() goqu.DialectWrapper {
	return goqu.Dialect(d.dialect)
}

func (d *dialectDamper) Prepare(ctx context.Context, h *provider.Handle) error {
	if h == nil || h.Conn == nil {
		return errors.New("handle has no connection")
	}
	for _, stmt := range d.session {
		if _, err := h.Conn.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "could not run session statement %q", stmt)
		}
	}
	return nil
}

func (d *dialectDamper) ListTablesQuery() (string, []interface{}, error) {
	return d.tablesQuery(d.Dialect()).ToSQL()
}

func (d *dialectDamper) CountQuery(table string) (string, []interface{}) {
	sb := d.flavor.NewSelectBuilder()
	sb.Select("COUNT(*)").From(d.flavor.Quote(table))
	return sb.Build()
}

// NewMySQLDamper is used for the mysql driver.
func NewMySQLDamper() Damper {
	return &dialectDamper{
		name:     "mysql",
		bindType: sqlx.QUESTION,
		flavor:   sqlbuilder.MySQL,
		dialect:  "mysql",
		session:  []string{"SET NAMES utf8mb4"},
		tablesQuery: func(d goqu.DialectWrapper) *goqu.SelectDataset {
			return d.From(goqu.S("information_schema").Table("tables")).
				Select(goqu.C("table_name").As("name")).
				Where(goqu.C("table_schema").Eq(goqu.L("DATABASE()"))).
				Order(goqu.C("table_name").Asc())
		},
	}
}

// NewPostgresDamper is used for the pgx and lib/pq drivers.
func NewPostgresDamper() Damper {
	return &dialectDamper{
		name:     "postgres",
		bindType: sqlx.DOLLAR,
		flavor:   sqlbuilder.PostgreSQL,
		dialect:  "postgres",
		session:  []string{"SET application_name = 'sqlunit'"},
		tablesQuery: func(d goqu.DialectWrapper) *goqu.SelectDataset {
			return d.From(goqu.S("information_schema").Table("tables")).
				Select(goqu.C("table_name").As("name")).
				Where(goqu.C("table_schema").Eq(goqu.L("current_schema()"))).
				Order(goqu.C("table_name").Asc())
		},
	}
}

// NewSQLiteDamper is used for the sqlite3 and modernc sqlite drivers.
func NewSQLiteDamper() Damper {
	return &dialectDamper{
		name:     "sqlite",
		bindType: sqlx.QUESTION,
		flavor:   sqlbuilder.SQLite,
		dialect:  "sqlite3",
		session:  []string{"PRAGMA foreign_keys = ON"},
		tablesQuery: func(d goqu.DialectWrapper) *goqu.SelectDataset {
			return d.From("sqlite_master").
				Select("name").
				Where(
					goqu.C("type").Eq("table"),
					goqu.C("name").NotLike("sqlite_%"),
				).
				Order(goqu.C("name").Asc())
		},
	}
}

// NewGenericDamper is the fallback for providers without a dedicated damper.
// It assumes ANSI information_schema and does not touch the session.
func NewGenericDamper() Damper {
	return &dialectDamper{
		name:     "generic",
		bindType: sqlx.QUESTION,
		flavor:   sqlbuilder.MySQL,
		dialect:  "default",
		tablesQuery: func(d goqu.DialectWrapper) *goqu.SelectDataset {
			return d.From(goqu.S("information_schema").Table("tables")).
				Select(goqu.C("table_name").As("name")).
				Order(goqu.C("table_name").Asc())
		},
	}
}
