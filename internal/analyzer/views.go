package analyzer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Henkhogan/sqlacodegen/internal/connector"
	"github.com/Henkhogan/sqlacodegen/pkg/models"
)

// reflectViews reads the views of one schema from the database catalog.
// schemaName is the real schema name, label the one recorded on the tables.
func (sa *SchemaAnalyzer) reflectViews(ctx context.Context, schemaName, label string) ([]*models.Table, error) {
	var namesQuery string
	var params []interface{}

	switch sa.DB.Dialect {
	case connector.DialectSQLite:
		namesQuery = fmt.Sprintf(`
			SELECT name AS table_name
			FROM %s.sqlite_master
			WHERE type = 'view'
			ORDER BY name
		`, quoteIdent(schemaName))
	case connector.DialectMySQL:
		namesQuery = `
			SELECT table_name AS table_name
			FROM information_schema.views
			WHERE table_schema = ?
			ORDER BY table_name
		`
		params = append(params, schemaName)
	default:
		namesQuery = `
			SELECT table_name AS table_name
			FROM information_schema.views
			WHERE table_schema = $1
			ORDER BY table_name
		`
		params = append(params, schemaName)
	}

	viewsResult, err := sa.DB.ExecuteQuery(ctx, namesQuery, params...)
	if err != nil {
		sa.Logger.Errorf("Error getting views: %v", err)
		return nil, err
	}

	var views []*models.Table
	for _, row := range viewsResult {
		name := fmt.Sprint(row["table_name"])
		if !sa.includeTable(name) {
			continue
		}

		columns, err := sa.reflectViewColumns(ctx, schemaName, name)
		if err != nil {
			sa.Logger.Warningf("Failed to retrieve columns for view %s: %v", name, err)
			continue
		}

		views = append(views, &models.Table{
			Name:    name,
			Schema:  label,
			IsView:  true,
			Columns: columns,
		})
	}

	return views, nil
}

func (sa *SchemaAnalyzer) reflectViewColumns(ctx context.Context, schemaName, view string) ([]*models.Column, error) {
	var query string
	var params []interface{}

	switch sa.DB.Dialect {
	case connector.DialectSQLite:
		query = `SELECT name AS column_name, type AS column_type, "notnull" AS not_null FROM pragma_table_info(?, ?)`
		params = []interface{}{view, schemaName}
	case connector.DialectMySQL:
		query = `
			SELECT
				column_name AS column_name,
				column_type AS column_type,
				is_nullable AS is_nullable,
				column_comment AS column_comment
			FROM information_schema.columns
			WHERE table_schema = ?
			AND table_name = ?
			ORDER BY ordinal_position
		`
		params = []interface{}{schemaName, view}
	default:
		query = `
			SELECT
				column_name,
				data_type,
				is_nullable,
				character_maximum_length,
				numeric_precision,
				numeric_scale
			FROM information_schema.columns
			WHERE table_schema = $1
			AND table_name = $2
			ORDER BY ordinal_position
		`
		params = []interface{}{schemaName, view}
	}

	result, err := sa.DB.ExecuteQuery(ctx, query, params...)
	if err != nil {
		return nil, err
	}

	var columns []*models.Column
	for _, row := range result {
		column := &models.Column{Name: fmt.Sprint(row["column_name"]), Nullable: true}

		switch sa.DB.Dialect {
		case connector.DialectSQLite:
			column.Type = parseRawType(stringValue(row["column_type"]))
			column.Nullable = intValue(row["not_null"]) == 0
		case connector.DialectMySQL:
			column.Type = parseRawType(stringValue(row["column_type"]))
			column.Nullable = stringValue(row["is_nullable"]) == "YES"
			column.Comment = stringValue(row["column_comment"])
		default:
			column.Type = parseRawType(postgresRawType(row))
			column.Nullable = stringValue(row["is_nullable"]) == "YES"
		}

		columns = append(columns, column)
	}
	return columns, nil
}

// postgresRawType rebuilds a DDL type string from information_schema.columns
func postgresRawType(row map[string]interface{}) string {
	dataType := stringValue(row["data_type"])
	if row["character_maximum_length"] != nil {
		return fmt.Sprintf("%s(%d)", dataType, intValue(row["character_maximum_length"]))
	}
	if strings.EqualFold(dataType, "numeric") && row["numeric_precision"] != nil {
		return fmt.Sprintf("%s(%d, %d)", dataType, intValue(row["numeric_precision"]), intValue(row["numeric_scale"]))
	}
	return dataType
}

func stringValue(v interface{}) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func intValue(v interface{}) int64 {
	if v == nil {
		return 0
	}
	n, _ := strconv.ParseInt(fmt.Sprint(v), 10, 64)
	return n
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
