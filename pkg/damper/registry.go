package damper

import (
	"sort"

	"github.com/go-go-golems/sqlunit/pkg/provider"
)

// Constructor builds the damper for an opened factory.
type Constructor func(f provider.Factory) Damper

// Registry maps provider ids to damper constructors.
type Registry struct {
	constructors map[string]Constructor
	fallback     Constructor
}

// NewRegistry creates an empty registry. fallback is used for unknown
// provider ids; a nil fallback means NewGenericDamper.
func NewRegistry(fallback Constructor) *Registry {
	if fallback == nil {
		fallback = func(provider.Factory) Damper {
			return NewGenericDamper()
		}
	}
	return &Registry{
		constructors: map[string]Constructor{},
		fallback:     fallback,
	}
}

// DefaultRegistry returns a new registry with the built-in dampers for the
// mysql, pgx, postgres, sqlite3 and sqlite drivers.
func DefaultRegistry() *Registry {
	r := NewRegistry(nil)
	r.Register("mysql", func(provider.Factory) Damper { return NewMySQLDamper() })
	r.Register("pgx", func(provider.Factory) Damper { return NewPostgresDamper() })
	r.Register("postgres", func(provider.Factory) Damper { return NewPostgresDamper() })
	r.Register("sqlite3", func(provider.Factory) Damper { return NewSQLiteDamper() })
	r.Register("sqlite", func(provider.Factory) Damper { return NewSQLiteDamper() })
	return r
}

// Register sets the constructor for a provider id, replacing any earlier one.
func (r *Registry) Register(providerID string, c Constructor) {
	r.constructors[providerID] = c
}

// Create returns the damper for f. It never returns nil.
func (r *Registry) Create(f provider.Factory) Damper {
	if c, ok := r.constructors[f.ProviderID()]; ok {
		if d := c(f); d != nil {
			return d
		}
	}
	if d := r.fallback(f); d != nil {
		return d
	}
	return NewGenericDamper()
}

// ProviderIDs lists the registered provider ids in sorted order.
func (r *Registry) ProviderIDs() []string {
	ret := make([]string, 0, len(r.constructors))
	for id := range r.constructors {
		ret = append(ret, id)
	}
	sort.Strings(ret)
	return ret
}
