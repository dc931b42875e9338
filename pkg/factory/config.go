package factory

import (
	"sort"
	"strings"
)

const (
	UnitNameConfigKey       = "sqlunit.unit-name"
	UnitPropertiesConfigKey = "sqlunit.unit-properties"
)

// ConfigSource is the part of *viper.Viper the wrapper needs.
type ConfigSource interface {
	GetString(key string) string
	AllKeys() []string
}

// MapSource is a ConfigSource over a flat map of dotted keys.
type MapSource map[string]string

func (m MapSource) GetString(key string) string {
	return m[key]
}

func (m MapSource) AllKeys() []string {
	ret := make([]string, 0, len(m))
	for k := range m {
		ret = append(ret, k)
	}
	return ret
}

// ExtractProperties collects every key below prefix. The prefix and its
// separator are stripped, and ".." in the rest of the key is collapsed to
// ".", so that a dotted property name can be written as
// sqlunit.unit-properties.pool..size. Keys are visited in sorted order,
// the last one wins if two keys collapse to the same name.
func ExtractProperties(src ConfigSource, prefix string) map[string]string {
	ret := map[string]string{}
	keyPrefix := prefix + "."

	keys := src.AllKeys()
	sort.Strings(keys)
	for _, key := range keys {
		if !strings.HasPrefix(key, keyPrefix) {
			continue
		}
		// collapse before stripping the separator, so prefix..name is name
		name := strings.ReplaceAll(key[len(prefix):], "..", ".")
		name = strings.TrimPrefix(name, ".")
		ret[name] = src.GetString(key)
	}

	return ret
}
