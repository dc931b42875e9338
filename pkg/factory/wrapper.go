package factory

import (
	"context"
	"reflect"

	"github.com/go-go-golems/sqlunit/pkg/damper"
	"github.com/go-go-golems/sqlunit/pkg/provider"
	"github.com/rs/zerolog"
)

// Wrapper owns an opened provider factory together with the damper selected
// for it. Close closes the factory.
type Wrapper struct {
	factory provider.Factory
	damper  damper.Damper
}

type options struct {
	logger   zerolog.Logger
	provider provider.Provider
	resolver *Resolver
	dampers  *damper.Registry
}

type Option func(*options)

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithProvider sets the provider used to open factories. The default is a
// provider.SQLProvider reading the default units file.
func WithProvider(p provider.Provider) Option {
	return func(o *options) {
		o.provider = p
	}
}

func WithResolver(r *Resolver) Option {
	return func(o *options) {
		o.resolver = r
	}
}

func WithDampers(r *damper.Registry) Option {
	return func(o *options) {
		o.dampers = r
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.provider == nil {
		o.provider = provider.NewSQLProvider(provider.WithLogger(o.logger))
	}
	if o.resolver == nil {
		o.resolver = NewResolver()
	}
	if o.dampers == nil {
		o.dampers = damper.DefaultRegistry()
	}
	return o
}

// NewDefault opens the unit picked by the resolver, without properties.
func NewDefault(opts ...Option) (*Wrapper, error) {
	return New("", nil, opts...)
}

func NewWithUnitName(unitName string, opts ...Option) (*Wrapper, error) {
	return New(unitName, nil, opts...)
}

func NewWithProperties(props map[string]string, opts ...Option) (*Wrapper, error) {
	return New("", props, opts...)
}

// NewFromFactory wraps an already opened factory. The provider is not used.
func NewFromFactory(f provider.Factory, opts ...Option) (*Wrapper, error) {
	if isNilFactory(f) {
		return nil, cannotBeMissing("factory")
	}
	o := newOptions(opts)

	return &Wrapper{
		factory: f,
		damper:  o.dampers.Create(f),
	}, nil
}

// NewFromConfig reads the unit name from sqlunit.unit-name and the
// properties from below sqlunit.unit-properties.
func NewFromConfig(src ConfigSource, opts ...Option) (*Wrapper, error) {
	o := newOptions(opts)

	props := ExtractProperties(src, UnitPropertiesConfigKey)
	for k := range props {
		o.logger.Debug().Str("key", k).Msg("unit property from config")
	}

	return newWrapper(o, src.GetString(UnitNameConfigKey), props)
}

// New resolves the unit name and opens it with props through the provider.
// An error returned by the provider is logged and returned as is.
func New(unitName string, props map[string]string, opts ...Option) (*Wrapper, error) {
	return newWrapper(newOptions(opts), unitName, props)
}

func newWrapper(o *options, unitName string, props map[string]string) (*Wrapper, error) {
	name, err := o.resolver.Resolve(unitName)
	if err != nil {
		return nil, err
	}

	o.logger.Debug().Str("unit", name).Msg("resolved persistence unit")

	f, err := o.provider.CreateFactory(name, props)
	if err != nil {
		o.logger.Error().Err(err).Str("unit", name).Msg("could not create factory")
		return nil, err
	}
	if isNilFactory(f) {
		return nil, cannotBeMissing("factory")
	}

	o.logger.Debug().
		Str("unit", name).
		Str("provider", f.ProviderID()).
		Msg("created factory")

	return &Wrapper{
		factory: f,
		damper:  o.dampers.Create(f),
	}, nil
}

// isNilFactory also catches a nil pointer stored in the interface.
func isNilFactory(f provider.Factory) bool {
	if f == nil {
		return true
	}
	v := reflect.ValueOf(f)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}

// CreateHandle returns a new handle from the factory on every call.
func (w *Wrapper) CreateHandle(ctx context.Context, props map[string]string) (*provider.Handle, error) {
	return w.factory.CreateHandle(ctx, props)
}

func (w *Wrapper) CreateDefaultHandle(ctx context.Context) (*provider.Handle, error) {
	return w.CreateHandle(ctx, nil)
}

func (w *Wrapper) Factory() provider.Factory {
	return w.factory
}

func (w *Wrapper) Damper() damper.Damper {
	return w.damper
}

// Close closes the factory. Using the wrapper afterwards is up to the
// provider's behavior for closed factories.
func (w *Wrapper) Close() error {
	return w.factory.Close()
}
