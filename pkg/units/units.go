package units

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultUnitsFile is used when no units file is configured.
const DefaultUnitsFile = "$HOME/.sqlunit/units.yaml"

// Property keys understood by units and the sql provider. Keys are compared
// in kebab-case, see NormalizeProperties.
const (
	PropertyDSN             = "dsn"
	PropertyHost            = "host"
	PropertyPort            = "port"
	PropertyUser            = "user"
	PropertyPassword        = "password"
	PropertyDatabase        = "database"
	PropertySchema          = "schema"
	PropertySSLMode         = "sslmode"
	PropertyMaxOpenConns    = "max-open-conns"
	PropertyMaxIdleConns    = "max-idle-conns"
	PropertyConnMaxLifetime = "conn-max-lifetime"
	PropertySkipPing        = "skip-ping"
	PropertyInitSQL         = "init-sql"
)

// Unit is a named persistence unit: a driver and the properties needed to
// open a connection pool with it.
type Unit struct {
	Name       string            `yaml:"-"`
	Driver     string            `yaml:"driver" validate:"required,oneof=mysql pgx postgres sqlite3 sqlite"`
	DSN        string            `yaml:"dsn,omitempty"`
	Host       string            `yaml:"host,omitempty"`
	Port       int               `yaml:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	User       string            `yaml:"user,omitempty"`
	Password   string            `yaml:"password,omitempty"`
	Database   string            `yaml:"database,omitempty"`
	Schema     string            `yaml:"schema,omitempty"`
	Properties map[string]string `yaml:"properties,omitempty"`
}

// Units maps unit names to their definitions.
type Units map[string]*Unit

var validate = validator.New()

// ParseUnitsFile reads a units file. An empty path means DefaultUnitsFile.
func ParseUnitsFile(path string) (Units, error) {
	if path == "" {
		path = DefaultUnitsFile
	}
	path = os.ExpandEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read units file %s", path)
	}

	ret, err := ParseUnits(data)
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse units file %s", path)
	}
	return ret, nil
}

// ParseUnits parses and validates a YAML document of the form
//
//	MysqlUnit:
//	  driver: mysql
//	  host: localhost
//	  properties:
//	    max-open-conns: "10"
func ParseUnits(data []byte) (Units, error) {
	var ret Units
	if err := yaml.Unmarshal(data, &ret); err != nil {
		return nil, err
	}
	if ret == nil {
		ret = Units{}
	}

	for name, u := range ret {
		if u == nil {
			return nil, errors.Errorf("unit %s has no definition", name)
		}
		u.Name = name
		if err := u.Validate(); err != nil {
			return nil, err
		}
	}

	return ret, nil
}

// Validate checks the struct tags of the unit.
func (u *Unit) Validate() error {
	if err := validate.Struct(u); err != nil {
		return errors.Wrapf(err, "invalid unit %s", u.Name)
	}
	return nil
}

// Names returns the unit names in sorted order.
func (us Units) Names() []string {
	ret := make([]string, 0, len(us))
	for name := range us {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

// Get looks up a unit by name.
func (us Units) Get(name string) (*Unit, bool) {
	u, ok := us[name]
	return u, ok
}

// WithOverrides returns a copy of the unit with the connection fields and
// properties replaced by the ones in props. props is expected to be
// normalized already.
func (u *Unit) WithOverrides(props map[string]string) (*Unit, error) {
	ret := *u
	ret.Properties = make(map[string]string, len(u.Properties)+len(props))
	for k, v := range NormalizeProperties(u.Properties) {
		ret.Properties[k] = v
	}

	for k, v := range props {
		switch k {
		case PropertyDSN:
			ret.DSN = v
		case PropertyHost:
			ret.Host = v
		case PropertyPort:
			port, err := strconv.Atoi(v)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid port %q for unit %s", v, u.Name)
			}
			ret.Port = port
		case PropertyUser:
			ret.User = v
		case PropertyPassword:
			ret.Password = v
		case PropertyDatabase:
			ret.Database = v
		case PropertySchema:
			ret.Schema = v
		default:
			ret.Properties[k] = v
		}
	}

	if err := ret.Validate(); err != nil {
		return nil, err
	}

	return &ret, nil
}

// ToConnectionString builds the data source name handed to sql.Open.
func (u *Unit) ToConnectionString() string {
	if u.DSN != "" {
		return u.DSN
	}

	switch u.Driver {
	case "mysql":
		cfg := mysql.NewConfig()
		cfg.User = u.User
		cfg.Passwd = u.Password
		cfg.Net = "tcp"
		cfg.Addr = fmt.Sprintf("%s:%d", orDefault(u.Host, "localhost"), portOrDefault(u.Port, 3306))
		cfg.DBName = u.Database
		cfg.ParseTime = true
		return cfg.FormatDSN()

	case "pgx", "postgres":
		parts := []string{
			"host=" + orDefault(u.Host, "localhost"),
			fmt.Sprintf("port=%d", portOrDefault(u.Port, 5432)),
		}
		if u.User != "" {
			parts = append(parts, "user="+u.User)
		}
		if u.Password != "" {
			parts = append(parts, "password="+u.Password)
		}
		if u.Database != "" {
			parts = append(parts, "dbname="+u.Database)
		}
		if u.Schema != "" {
			parts = append(parts, "search_path="+u.Schema)
		}
		parts = append(parts, "sslmode="+orDefault(u.Properties[PropertySSLMode], "disable"))
		return strings.Join(parts, " ")

	case "sqlite3", "sqlite":
		return orDefault(u.Database, ":memory:")
	}

	return ""
}

func (u *Unit) String() string {
	if u.DSN != "" {
		return fmt.Sprintf("%s (%s dsn)", u.Name, u.Driver)
	}
	switch u.Driver {
	case "sqlite3", "sqlite":
		return fmt.Sprintf("%s (%s %s)", u.Name, u.Driver, orDefault(u.Database, ":memory:"))
	}
	return fmt.Sprintf("%s (%s %s@%s:%d/%s)", u.Name, u.Driver, u.User, u.Host, u.Port, u.Database)
}

func orDefault(s string, def string) string {
	if s == "" {
		return def
	}
	return s
}

func portOrDefault(port int, def int) int {
	if port == 0 {
		return def
	}
	return port
}
