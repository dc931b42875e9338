package factory

import (
	"database/sql"
	"strings"

	"github.com/spf13/viper"
)

// UnitNameKey is the key looked up through Resolver.Override. With the
// default override it is read from the SQLUNIT_UNIT_NAME environment variable.
const UnitNameKey = "unit-name"

// Unit names picked when the corresponding driver is linked into the binary.
const (
	MysqlUnit    = "MysqlUnit"
	PostgresUnit = "PostgresUnit"
	SqliteUnit   = "SqliteUnit"
)

// Probe maps the availability of a provider to the unit name to use for it.
type Probe struct {
	Available func() bool
	UnitName  string
}

// OverrideFunc looks up a process-wide setting. ok is false if it is not set.
type OverrideFunc func(key string) (value string, ok bool)

// Resolver decides which persistence unit to open.
type Resolver struct {
	Override OverrideFunc
	Probes   []Probe
}

// NewResolver returns a resolver using the environment override and the
// driver probes from DefaultProbes.
func NewResolver() *Resolver {
	return &Resolver{
		Override: EnvOverride(),
		Probes:   DefaultProbes(),
	}
}

// DefaultProbes checks for the mysql, pgx and sqlite3 drivers, in that order.
func DefaultProbes() []Probe {
	return []Probe{
		{Available: DriverRegistered("mysql"), UnitName: MysqlUnit},
		{Available: DriverRegistered("pgx"), UnitName: PostgresUnit},
		{Available: DriverRegistered("sqlite3"), UnitName: SqliteUnit},
	}
}

// DriverRegistered reports whether a database/sql driver of that name has
// been registered, usually by a blank import.
func DriverRegistered(name string) func() bool {
	return func() bool {
		for _, d := range sql.Drivers() {
			if d == name {
				return true
			}
		}
		return false
	}
}

// EnvOverride reads overrides from SQLUNIT_* environment variables, with
// dashes in the key replaced by underscores. A variable set to the empty
// string counts as set.
func EnvOverride() OverrideFunc {
	v := viper.New()
	v.SetEnvPrefix("sqlunit")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	return func(key string) (string, bool) {
		if !v.IsSet(key) {
			return "", false
		}
		return v.GetString(key), true
	}
}

// Resolve returns explicit if it is not empty. Otherwise the override is
// consulted, then the probes in order. A probe result is never empty, so
// emptiness is only checked for the first two sources.
func (r *Resolver) Resolve(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	if r.Override != nil {
		if v, ok := r.Override(UnitNameKey); ok {
			if v == "" {
				return "", cannotBeEmpty("unitName")
			}
			return v, nil
		}
	}

	for _, p := range r.Probes {
		if p.Available != nil && p.Available() {
			return p.UnitName, nil
		}
	}

	return "", cannotBeMissing("unitName")
}
