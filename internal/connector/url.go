package connector

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// Supported dialects
const (
	DialectSQLite   = "sqlite"
	DialectMySQL    = "mysql"
	DialectPostgres = "postgres"
)

// ErrUnsupportedDialect is returned for database URLs no driver can serve
var ErrUnsupportedDialect = errors.New("unsupported database dialect")

// DatabaseURL is a parsed SQLAlchemy-style database URL
type DatabaseURL struct {
	Dialect  string
	Driver   string
	User     string
	Password string
	Host     string
	Port     string
	Database string
	Query    url.Values
}

// ParseURL parses a URL of the form dialect[+driver]://user:pass@host:port/database
func ParseURL(raw string) (*DatabaseURL, error) {
	scheme, rest, found := strings.Cut(raw, "://")
	if !found || scheme == "" {
		return nil, fmt.Errorf("invalid database URL %q: missing scheme", raw)
	}

	name, driver, _ := strings.Cut(strings.ToLower(scheme), "+")
	dialect, err := normalizeDialect(name)
	if err != nil {
		return nil, err
	}

	dbURL := &DatabaseURL{Dialect: dialect, Driver: driver, Query: url.Values{}}

	// SQLite URLs carry a file path rather than a network location
	if dialect == DialectSQLite {
		path, query, _ := strings.Cut(rest, "?")
		path = strings.TrimPrefix(path, "/")
		if path == "" {
			path = ":memory:"
		}
		dbURL.Database = path
		if query != "" {
			values, err := url.ParseQuery(query)
			if err != nil {
				return nil, fmt.Errorf("invalid query in database URL: %w", err)
			}
			dbURL.Query = values
		}
		return dbURL, nil
	}

	u, err := url.Parse("generic://" + rest)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}
	if u.User != nil {
		dbURL.User = u.User.Username()
		dbURL.Password, _ = u.User.Password()
	}
	dbURL.Host = u.Hostname()
	dbURL.Port = u.Port()
	dbURL.Database = strings.TrimPrefix(u.Path, "/")
	dbURL.Query = u.Query()
	return dbURL, nil
}

func normalizeDialect(name string) (string, error) {
	switch name {
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "mysql", "mariadb":
		return DialectMySQL, nil
	case "postgresql", "postgres", "pgsql":
		return DialectPostgres, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedDialect, name)
}

// DriverName returns the database/sql driver registered for the dialect
func (u *DatabaseURL) DriverName() string {
	switch u.Dialect {
	case DialectSQLite:
		return "sqlite"
	case DialectMySQL:
		return "mysql"
	default:
		return "postgres"
	}
}

// DSN renders the driver specific data source name. params holds
// connection parameters already validated by the engine arguments.
func (u *DatabaseURL) DSN(params *ConnectParams) (string, error) {
	switch u.Dialect {
	case DialectSQLite:
		return u.sqliteDSN(params), nil
	case DialectMySQL:
		return u.mysqlDSN(params), nil
	default:
		return u.postgresDSN(params)
	}
}

func (u *DatabaseURL) sqliteDSN(params *ConnectParams) string {
	query := url.Values{}
	for key, values := range u.Query {
		query[key] = append([]string(nil), values...)
	}
	if params != nil {
		for _, pragma := range params.Pragmas {
			query.Add("_pragma", pragma)
		}
	}

	if len(query) == 0 {
		return u.Database
	}
	// ? and # in the path would otherwise start the query or fragment
	path := (&url.URL{Path: u.Database}).EscapedPath()
	return "file:" + path + "?" + query.Encode()
}

func (u *DatabaseURL) mysqlDSN(params *ConnectParams) string {
	cfg := mysql.NewConfig()
	cfg.User = u.User
	cfg.Passwd = u.Password
	cfg.Net = "tcp"
	host := u.Host
	if host == "" {
		host = "localhost"
	}
	port := u.Port
	if port == "" {
		port = "3306"
	}
	cfg.Addr = host + ":" + port
	cfg.DBName = u.Database
	cfg.ParseTime = true

	for key := range u.Query {
		if cfg.Params == nil {
			cfg.Params = map[string]string{}
		}
		cfg.Params[key] = u.Query.Get(key)
	}

	if params != nil {
		cfg.Timeout = params.Timeout
		cfg.ReadTimeout = params.ReadTimeout
		cfg.WriteTimeout = params.WriteTimeout
		for key, value := range params.Values {
			if key == "collation" {
				cfg.Collation = value
				continue
			}
			if cfg.Params == nil {
				cfg.Params = map[string]string{}
			}
			cfg.Params[key] = value
		}
	}
	return cfg.FormatDSN()
}

func (u *DatabaseURL) postgresDSN(params *ConnectParams) (string, error) {
	pgURL := &url.URL{
		Scheme: "postgres",
		Host:   u.Host,
		Path:   "/" + u.Database,
	}
	if u.Port != "" {
		pgURL.Host = u.Host + ":" + u.Port
	}
	if u.User != "" {
		if u.Password != "" {
			pgURL.User = url.UserPassword(u.User, u.Password)
		} else {
			pgURL.User = url.User(u.User)
		}
	}

	query := url.Values{}
	for key, values := range u.Query {
		query[key] = append([]string(nil), values...)
	}
	if params != nil {
		for key, value := range params.Values {
			query.Set(key, value)
		}
	}
	pgURL.RawQuery = query.Encode()

	dsn, err := pq.ParseURL(pgURL.String())
	if err != nil {
		return "", fmt.Errorf("invalid postgres URL: %w", err)
	}
	return dsn, nil
}

// Redacted returns the URL with the password masked, for logging
func (u *DatabaseURL) Redacted() string {
	if u.Dialect == DialectSQLite {
		return "sqlite:///" + u.Database
	}
	userInfo := ""
	if u.User != "" {
		userInfo = u.User
		if u.Password != "" {
			userInfo += ":********"
		}
		userInfo += "@"
	}
	hostPort := u.Host
	if u.Port != "" {
		hostPort += ":" + u.Port
	}
	return fmt.Sprintf("%s://%s%s/%s", u.Dialect, userInfo, hostPort, u.Database)
}
