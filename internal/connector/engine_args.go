package connector

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidEngineArg is returned for malformed or unknown engine arguments
var ErrInvalidEngineArg = errors.New("invalid engine argument")

// EngineOptions holds the parsed --engine-arg values
type EngineOptions struct {
	Connect     *ConnectParams
	PoolSize    int
	PoolRecycle time.Duration
	Echo        bool
}

// ConnectParams holds driver connection parameters derived from connect_args
type ConnectParams struct {
	Pragmas      []string
	Timeout      time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Values       map[string]string
}

// connectArgs lists the connect_args keys each dialect understands
var connectArgs = map[string][]string{
	DialectSQLite:   {"check_same_thread", "foreign_keys", "timeout"},
	DialectMySQL:    {"charset", "collation", "connect_timeout", "read_timeout", "write_timeout"},
	DialectPostgres: {"application_name", "connect_timeout", "options", "sslmode"},
}

// ParseEngineArgs parses key=value engine arguments for the given dialect.
// Values are decoded as YAML so JSON literals are accepted.
func ParseEngineArgs(dialect string, args []string) (*EngineOptions, error) {
	opts := &EngineOptions{Connect: &ConnectParams{Values: map[string]string{}}}

	for _, arg := range args {
		key, raw, found := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, fmt.Errorf("%w: %q must be in the form key=value", ErrInvalidEngineArg, arg)
		}

		var value interface{}
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("%w: cannot parse value of %s: %v", ErrInvalidEngineArg, key, err)
		}

		switch key {
		case "connect_args":
			values, ok := value.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("%w: connect_args must be a mapping", ErrInvalidEngineArg)
			}
			if err := opts.Connect.apply(dialect, values); err != nil {
				return nil, err
			}
		case "pool_size":
			n, err := toInt(value)
			if err != nil {
				return nil, fmt.Errorf("%w: pool_size: %v", ErrInvalidEngineArg, err)
			}
			opts.PoolSize = n
		case "pool_recycle":
			d, err := toSeconds(value)
			if err != nil {
				return nil, fmt.Errorf("%w: pool_recycle: %v", ErrInvalidEngineArg, err)
			}
			opts.PoolRecycle = d
		case "echo":
			b, ok := value.(bool)
			if !ok {
				return nil, fmt.Errorf("%w: echo must be a boolean", ErrInvalidEngineArg)
			}
			opts.Echo = b
		default:
			return nil, fmt.Errorf("%w: '%s' is an invalid keyword argument for create_engine()", ErrInvalidEngineArg, key)
		}
	}

	return opts, nil
}

func (p *ConnectParams) apply(dialect string, values map[string]interface{}) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if !isKnownConnectArg(dialect, key) {
			return fmt.Errorf("%w: '%s' is an invalid keyword argument for connect()", ErrInvalidEngineArg, key)
		}
		value := values[key]

		switch dialect {
		case DialectSQLite:
			switch key {
			case "timeout":
				d, err := toSeconds(value)
				if err != nil {
					return fmt.Errorf("%w: timeout: %v", ErrInvalidEngineArg, err)
				}
				p.Pragmas = append(p.Pragmas, fmt.Sprintf("busy_timeout(%d)", d.Milliseconds()))
			case "foreign_keys":
				b, ok := value.(bool)
				if !ok {
					return fmt.Errorf("%w: foreign_keys must be a boolean", ErrInvalidEngineArg)
				}
				if b {
					p.Pragmas = append(p.Pragmas, "foreign_keys(1)")
				} else {
					p.Pragmas = append(p.Pragmas, "foreign_keys(0)")
				}
			}
		case DialectMySQL:
			switch key {
			case "connect_timeout", "read_timeout", "write_timeout":
				d, err := toSeconds(value)
				if err != nil {
					return fmt.Errorf("%w: %s: %v", ErrInvalidEngineArg, key, err)
				}
				switch key {
				case "connect_timeout":
					p.Timeout = d
				case "read_timeout":
					p.ReadTimeout = d
				default:
					p.WriteTimeout = d
				}
			default:
				p.Values[key] = fmt.Sprint(value)
			}
		case DialectPostgres:
			p.Values[key] = fmt.Sprint(value)
		}
	}
	return nil
}

func isKnownConnectArg(dialect, key string) bool {
	for _, known := range connectArgs[dialect] {
		if known == key {
			return true
		}
	}
	return false
}

func toInt(value interface{}) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case string:
		return strconv.Atoi(v)
	}
	return 0, fmt.Errorf("expected an integer, got %v", value)
}

func toSeconds(value interface{}) (time.Duration, error) {
	switch v := value.(type) {
	case int:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	}
	return 0, fmt.Errorf("expected a number of seconds, got %v", value)
}
