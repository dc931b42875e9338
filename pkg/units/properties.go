package units

import (
	"strconv"
	"strings"
	"time"

	"github.com/iancoleman/strcase"
	"github.com/pkg/errors"
)

// NormalizeProperties returns a copy of props with every key converted to
// kebab-case, so that maxOpenConns, max_open_conns and max-open-conns all
// end up as max-open-conns. Dots separate segments and are kept, pool.size
// stays pool.size.
//
// Keys read through viper are already lowercased, maxOpenConns arrives as
// maxopenconns. Config files have to spell properties in kebab-case.
func NormalizeProperties(props map[string]string) map[string]string {
	ret := make(map[string]string, len(props))
	for k, v := range props {
		ret[normalizeKey(k)] = v
	}
	return ret
}

func normalizeKey(key string) string {
	segments := strings.Split(key, ".")
	for i, s := range segments {
		segments[i] = strcase.ToKebab(s)
	}
	return strings.Join(segments, ".")
}

// IntProperty returns the integer value of key, or def if the key is not set.
func IntProperty(props map[string]string, key string, def int) (int, error) {
	v, ok := props[key]
	if !ok || v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "property %s is not an integer: %q", key, v)
	}
	return i, nil
}

// BoolProperty returns the boolean value of key, or def if the key is not set.
func BoolProperty(props map[string]string, key string, def bool) (bool, error) {
	v, ok := props[key]
	if !ok || v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.Wrapf(err, "property %s is not a boolean: %q", key, v)
	}
	return b, nil
}

// DurationProperty returns the duration value of key, or def if the key is
// not set.
func DurationProperty(props map[string]string, key string, def time.Duration) (time.Duration, error) {
	v, ok := props[key]
	if !ok || v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.Wrapf(err, "property %s is not a duration: %q", key, v)
	}
	return d, nil
}
