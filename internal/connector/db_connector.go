package connector

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// DatabaseConnector handles database connection and catalog queries
type DatabaseConnector struct {
	URL     *DatabaseURL
	Dialect string
	Engine  *EngineOptions
	DB      *sql.DB
	Logger  *logrus.Logger
}

// NewDatabaseConnector creates a new database connector from a database URL
// and raw --engine-arg values
func NewDatabaseConnector(rawURL string, engineArgs []string, logger *logrus.Logger) (*DatabaseConnector, error) {
	dbURL, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}

	engine, err := ParseEngineArgs(dbURL.Dialect, engineArgs)
	if err != nil {
		return nil, err
	}

	return &DatabaseConnector{
		URL:     dbURL,
		Dialect: dbURL.Dialect,
		Engine:  engine,
		Logger:  logger,
	}, nil
}

// Connect establishes a connection to the database
func (dc *DatabaseConnector) Connect(ctx context.Context) error {
	dsn, err := dc.URL.DSN(dc.Engine.Connect)
	if err != nil {
		return err
	}

	db, err := sql.Open(dc.URL.DriverName(), dsn)
	if err != nil {
		dc.Logger.Errorf("Error opening %s database: %v", dc.Dialect, err)
		return err
	}

	switch {
	case dc.Dialect == DialectSQLite && dc.URL.Database == ":memory:":
		// Every connection to :memory: opens a separate database
		db.SetMaxOpenConns(1)
	case dc.Engine.PoolSize > 0:
		db.SetMaxOpenConns(dc.Engine.PoolSize)
	}
	if dc.Engine.PoolRecycle > 0 {
		db.SetConnMaxLifetime(dc.Engine.PoolRecycle)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("connecting to %s: %w", dc.URL.Redacted(), err)
	}

	dc.DB = db
	dc.Logger.Infof("Connected to %s database: %s", dc.Dialect, dc.URL.Redacted())
	return nil
}

// Disconnect closes the database connection
func (dc *DatabaseConnector) Disconnect() {
	if dc.DB != nil {
		err := dc.DB.Close()
		if err != nil {
			dc.Logger.Errorf("Error closing database connection: %v", err)
		} else {
			dc.Logger.Debug("Database connection closed")
		}
	}
}

// ExecuteQuery executes a SQL query and returns the results
func (dc *DatabaseConnector) ExecuteQuery(ctx context.Context, query string, params ...interface{}) ([]map[string]interface{}, error) {
	if dc.DB == nil {
		if err := dc.Connect(ctx); err != nil {
			return nil, err
		}
	}

	if dc.Engine != nil && dc.Engine.Echo {
		dc.Logger.Infof("Executing query: %s %v", query, params)
	}

	rows, err := dc.DB.QueryContext(ctx, query, params...)
	if err != nil {
		dc.Logger.Errorf("Error executing query: %v", err)
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		dc.Logger.Errorf("Error getting columns: %v", err)
		return nil, err
	}

	var results []map[string]interface{}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range columns {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			dc.Logger.Errorf("Error scanning row: %v", err)
			return nil, err
		}

		row := make(map[string]interface{})
		for i, col := range columns {
			// Convert []byte to string for text fields
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}

		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		dc.Logger.Errorf("Error iterating rows: %v", err)
		return nil, err
	}

	return results, nil
}

// DefaultSchema returns the schema the connection reflects when none is given
func (dc *DatabaseConnector) DefaultSchema(ctx context.Context) (string, error) {
	var query string
	switch dc.Dialect {
	case DialectSQLite:
		return "main", nil
	case DialectMySQL:
		query = "SELECT DATABASE() AS name"
	default:
		query = "SELECT current_schema() AS name"
	}

	result, err := dc.ExecuteQuery(ctx, query)
	if err != nil {
		return "", err
	}
	if len(result) == 0 || result[0]["name"] == nil {
		return "", fmt.Errorf("no default schema selected for %s", dc.URL.Redacted())
	}
	return fmt.Sprint(result[0]["name"]), nil
}
