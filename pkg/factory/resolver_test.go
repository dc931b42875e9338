package factory

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	// registers the sqlite3 driver for DriverRegistered
	_ "github.com/mattn/go-sqlite3"
)

func always(b bool) func() bool {
	return func() bool { return b }
}

func staticOverride(v string, ok bool) OverrideFunc {
	return func(key string) (string, bool) {
		if key != UnitNameKey {
			return "", false
		}
		return v, ok
	}
}

func allProbes() []Probe {
	return []Probe{
		{Available: always(true), UnitName: MysqlUnit},
		{Available: always(true), UnitName: PostgresUnit},
		{Available: always(true), UnitName: SqliteUnit},
	}
}

func TestResolveExplicitWins(t *testing.T) {
	r := &Resolver{
		Override: staticOverride("OverrideUnit", true),
		Probes:   allProbes(),
	}

	for _, name := range []string{"a", "MyUnit", "  ", "SqliteUnit"} {
		got, err := r.Resolve(name)
		require.NoError(t, err)
		assert.Equal(t, name, got)
	}
}

func TestResolveOverride(t *testing.T) {
	r := &Resolver{
		Override: staticOverride("OverrideUnit", true),
		Probes:   allProbes(),
	}

	got, err := r.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "OverrideUnit", got)
}

func TestResolveEmptyOverride(t *testing.T) {
	r := &Resolver{
		Override: staticOverride("", true),
		Probes:   allProbes(),
	}

	_, err := r.Resolve("")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyRequiredValue))

	var rve *RequiredValueError
	require.True(t, errors.As(err, &rve))
	assert.Equal(t, "unitName", rve.Param)
}

func TestResolveProbesSingle(t *testing.T) {
	tests := []struct {
		available []bool
		expected  string
	}{
		{[]bool{true, false, false}, MysqlUnit},
		{[]bool{false, true, false}, PostgresUnit},
		{[]bool{false, false, true}, SqliteUnit},
	}

	for _, tt := range tests {
		r := &Resolver{
			Override: staticOverride("", false),
			Probes: []Probe{
				{Available: always(tt.available[0]), UnitName: MysqlUnit},
				{Available: always(tt.available[1]), UnitName: PostgresUnit},
				{Available: always(tt.available[2]), UnitName: SqliteUnit},
			},
		}
		got, err := r.Resolve("")
		require.NoError(t, err)
		assert.Equal(t, tt.expected, got)
	}
}

func TestResolveProbesPriority(t *testing.T) {
	r := &Resolver{Probes: allProbes()}
	got, err := r.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, MysqlUnit, got)

	r.Probes[0].Available = always(false)
	got, err = r.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, PostgresUnit, got)
}

func TestResolveProbesStopAtFirstMatch(t *testing.T) {
	called := false
	r := &Resolver{
		Probes: []Probe{
			{Available: always(true), UnitName: MysqlUnit},
			{Available: func() bool { called = true; return true }, UnitName: PostgresUnit},
		},
	}
	_, err := r.Resolve("")
	require.NoError(t, err)
	assert.False(t, called)
}

func TestResolveNothing(t *testing.T) {
	r := &Resolver{
		Override: staticOverride("", false),
		Probes: []Probe{
			{Available: always(false), UnitName: MysqlUnit},
			{UnitName: PostgresUnit},
		},
	}

	_, err := r.Resolve("")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingRequiredValue))
	assert.False(t, errors.Is(err, ErrEmptyRequiredValue))
	assert.Equal(t, "unitName cannot be missing", err.Error())
}

func TestEnvOverride(t *testing.T) {
	override := EnvOverride()

	t.Setenv("SQLUNIT_UNIT_NAME", "EnvUnit")
	v, ok := override(UnitNameKey)
	require.True(t, ok)
	assert.Equal(t, "EnvUnit", v)

	r := &Resolver{Override: override, Probes: allProbes()}
	got, err := r.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "EnvUnit", got)

	t.Setenv("SQLUNIT_UNIT_NAME", "")
	_, err = r.Resolve("")
	assert.True(t, errors.Is(err, ErrEmptyRequiredValue))
}

func TestEnvOverrideUnset(t *testing.T) {
	_, ok := EnvOverride()("some-key-that-is-not-set")
	assert.False(t, ok)
}

func TestDriverRegistered(t *testing.T) {
	assert.True(t, DriverRegistered("sqlite3")())
	assert.False(t, DriverRegistered("objectdb")())

	probes := DefaultProbes()
	require.Len(t, probes, 3)
	assert.Equal(t, []string{MysqlUnit, PostgresUnit, SqliteUnit},
		[]string{probes[0].UnitName, probes[1].UnitName, probes[2].UnitName})
	assert.True(t, probes[2].Available())
}
