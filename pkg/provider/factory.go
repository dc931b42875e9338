package provider

import (
	"context"

	"github.com/go-go-golems/sqlunit/pkg/units"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// SQLFactory is a Factory backed by a sqlx connection pool.
type SQLFactory struct {
	db      *sqlx.DB
	unit    *units.Unit
	metrics *Metrics
	logger  zerolog.Logger
}

var _ Factory = (*SQLFactory)(nil)

// NewSQLFactory wraps an already opened pool. driverName is used as the
// provider id.
func NewSQLFactory(db *sqlx.DB, driverName string) *SQLFactory {
	return &SQLFactory{
		db:     db,
		unit:   &units.Unit{Driver: driverName},
		logger: zerolog.Nop(),
	}
}

func (f *SQLFactory) DB() *sqlx.DB {
	return f.db
}

// Unit is the unit definition the factory was opened with, overrides applied.
func (f *SQLFactory) Unit() *units.Unit {
	return f.unit
}

func (f *SQLFactory) ProviderID() string {
	return f.unit.Driver
}

// CreateHandle checks out a dedicated connection. If props contains
// init-sql, it is executed on the connection before it is returned.
func (f *SQLFactory) CreateHandle(ctx context.Context, props map[string]string) (*Handle, error) {
	conn, err := f.db.Connx(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "could not get connection for unit %s", f.unit.Name)
	}

	props = units.NormalizeProperties(props)
	if initSQL := props[units.PropertyInitSQL]; initSQL != "" {
		if _, err := conn.ExecContext(ctx, initSQL); err != nil {
			_ = conn.Close()
			return nil, errors.Wrapf(err, "could not run init-sql for unit %s", f.unit.Name)
		}
	}

	h := &Handle{
		ID:         uuid.New(),
		ProviderID: f.ProviderID(),
		Conn:       conn,
		Properties: props,
	}
	f.metrics.handleCreated(h.ProviderID)
	f.logger.Trace().
		Str("unit", f.unit.Name).
		Str("handle", h.ID.String()).
		Msg("created handle")

	return h, nil
}

func (f *SQLFactory) Close() error {
	return f.db.Close()
}
