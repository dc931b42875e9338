package provider

import (
	"context"
	"sync"

	"github.com/go-go-golems/sqlunit/pkg/units"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Factory is an opened persistence unit, from which handles are created.
type Factory interface {
	// CreateHandle returns a new handle on every call. props may be nil.
	CreateHandle(ctx context.Context, props map[string]string) (*Handle, error)
	// ProviderID identifies the implementation behind the factory, for
	// example the sql driver name.
	ProviderID() string
	Close() error
}

// Provider opens a Factory for a named persistence unit.
type Provider interface {
	CreateFactory(unitName string, props map[string]string) (Factory, error)
}

// Handle is a single connection checked out of a Factory.
type Handle struct {
	ID         uuid.UUID
	ProviderID string
	Conn       *sqlx.Conn
	Properties map[string]string
}

// Close returns the connection to the pool it came from.
func (h *Handle) Close() error {
	if h.Conn == nil {
		return nil
	}
	return h.Conn.Close()
}

// SQLProvider opens sqlx pools for units declared in a units file.
type SQLProvider struct {
	unitsFile string
	metrics   *Metrics
	logger    zerolog.Logger

	mu    sync.Mutex
	units units.Units
}

var _ Provider = (*SQLProvider)(nil)

type Option func(*SQLProvider)

// WithUnitsFile sets the file units are loaded from on first use.
func WithUnitsFile(path string) Option {
	return func(p *SQLProvider) {
		p.unitsFile = path
	}
}

// WithUnits uses already parsed units instead of reading a file.
func WithUnits(us units.Units) Option {
	return func(p *SQLProvider) {
		p.units = us
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *SQLProvider) {
		p.metrics = m
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(p *SQLProvider) {
		p.logger = logger
	}
}

func NewSQLProvider(options ...Option) *SQLProvider {
	p := &SQLProvider{
		logger: zerolog.Nop(),
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// Units returns the known units, loading the units file if needed.
func (p *SQLProvider) Units() (units.Units, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.units != nil {
		return p.units, nil
	}

	us, err := units.ParseUnitsFile(p.unitsFile)
	if err != nil {
		return nil, err
	}
	p.units = us
	return us, nil
}

// CreateFactory implements Provider.
func (p *SQLProvider) CreateFactory(unitName string, props map[string]string) (Factory, error) {
	f, err := p.Open(unitName, props)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Open looks up unitName, applies props on top of the unit definition and
// opens a connection pool for it.
func (p *SQLProvider) Open(unitName string, props map[string]string) (*SQLFactory, error) {
	f, err := p.open(unitName, props)
	if err != nil {
		p.metrics.openFailed(unitName)
		return nil, err
	}
	p.metrics.factoryOpened(f.ProviderID())
	return f, nil
}

func (p *SQLProvider) open(unitName string, props map[string]string) (*SQLFactory, error) {
	us, err := p.Units()
	if err != nil {
		return nil, err
	}

	base, ok := us.Get(unitName)
	if !ok {
		return nil, errors.Errorf("persistence unit %s is not defined", unitName)
	}

	unit, err := base.WithOverrides(units.NormalizeProperties(props))
	if err != nil {
		return nil, err
	}

	p.logger.Debug().
		Str("unit", unit.Name).
		Str("driver", unit.Driver).
		Msg("opening persistence unit")

	db, err := sqlx.Open(unit.Driver, unit.ToConnectionString())
	if err != nil {
		return nil, errors.Wrapf(err, "could not open persistence unit %s", unit.Name)
	}

	if err := configurePool(db, unit.Properties); err != nil {
		_ = db.Close()
		return nil, err
	}

	skipPing, err := units.BoolProperty(unit.Properties, units.PropertySkipPing, false)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if !skipPing {
		if err := db.Ping(); err != nil {
			_ = db.Close()
			return nil, errors.Wrapf(err, "could not ping persistence unit %s", unit.Name)
		}
	}

	return &SQLFactory{
		db:      db,
		unit:    unit,
		metrics: p.metrics,
		logger:  p.logger,
	}, nil
}

func configurePool(db *sqlx.DB, props map[string]string) error {
	maxOpen, err := units.IntProperty(props, units.PropertyMaxOpenConns, 0)
	if err != nil {
		return err
	}
	maxIdle, err := units.IntProperty(props, units.PropertyMaxIdleConns, 2)
	if err != nil {
		return err
	}
	lifetime, err := units.DurationProperty(props, units.PropertyConnMaxLifetime, 0)
	if err != nil {
		return err
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)
	return nil
}
