package factory

import (
	"testing"

	"github.com/go-go-golems/sqlunit/pkg/units"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestExtractProperties(t *testing.T) {
	src := MapSource{
		"p.a.b":  "x",
		"p..c":   "y",
		"p.d..e": "z",
		"q.a":    "leak",
		"pp.a":   "leak",
		"p":      "leak",
	}

	assert.Equal(t, map[string]string{
		"a.b": "x",
		"c":   "y",
		"d.e": "z",
	}, ExtractProperties(src, "p"))
}

func TestExtractPropertiesMissingPrefix(t *testing.T) {
	props := ExtractProperties(MapSource{"other.a": "b"}, UnitPropertiesConfigKey)
	assert.NotNil(t, props)
	assert.Empty(t, props)
}

func TestExtractPropertiesCollisionLastWins(t *testing.T) {
	src := MapSource{
		"p.a.b":  "first",
		"p.a..b": "second",
	}
	// sorted order visits p.a..b before p.a.b
	assert.Equal(t, map[string]string{"a.b": "first"}, ExtractProperties(src, "p"))
}

func TestExtractPropertiesFromViper(t *testing.T) {
	v := viper.New()
	v.Set(UnitPropertiesConfigKey+".host", "db.local")
	v.Set(UnitPropertiesConfigKey+".port", 3307)
	v.Set(UnitNameConfigKey, "MysqlUnit")

	assert.Equal(t, map[string]string{
		"host": "db.local",
		"port": "3307",
	}, ExtractProperties(v, UnitPropertiesConfigKey))
}

func TestExtractedPropertiesSurviveNormalization(t *testing.T) {
	src := MapSource{
		UnitPropertiesConfigKey + ".pool..size":     "3",
		UnitPropertiesConfigKey + ".max-open-conns": "2",
	}

	props := units.NormalizeProperties(ExtractProperties(src, UnitPropertiesConfigKey))
	assert.Equal(t, map[string]string{
		"pool.size":                "3",
		units.PropertyMaxOpenConns: "2",
	}, props)
}
