package analyzer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	atlasmysql "ariga.io/atlas/sql/mysql"
	"ariga.io/atlas/sql/postgres"
	"ariga.io/atlas/sql/schema"
	"ariga.io/atlas/sql/sqlite"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Henkhogan/sqlacodegen/internal/connector"
	"github.com/Henkhogan/sqlacodegen/pkg/models"
)

// ignoredTables are migration bookkeeping tables that never get models
var ignoredTables = map[string]bool{
	"alembic_version": true,
	"migrate_version": true,
}

// Options selects what gets reflected
type Options struct {
	Schemas []string
	Tables  []string
	NoViews bool
}

// SchemaAnalyzer reflects the database schema into the shared models
type SchemaAnalyzer struct {
	DB      *connector.DatabaseConnector
	Options Options
	Logger  *logrus.Logger
}

// NewSchemaAnalyzer creates a new schema analyzer
func NewSchemaAnalyzer(db *connector.DatabaseConnector, opts Options, logger *logrus.Logger) *SchemaAnalyzer {
	return &SchemaAnalyzer{
		DB:      db,
		Options: opts,
		Logger:  logger,
	}
}

// AnalyzeSchema reflects tables and views, fixes column types implied by
// CHECK constraints and orders the result parents first
func (sa *SchemaAnalyzer) AnalyzeSchema(ctx context.Context) (*models.SchemaInfo, error) {
	inspector, err := sa.openInspector()
	if err != nil {
		return nil, err
	}

	targets, err := sa.targetSchemas(ctx)
	if err != nil {
		return nil, err
	}

	// Inspect every requested schema concurrently; results keep request order
	results := make([][]*models.Table, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			tables, err := sa.inspectSchema(gctx, inspector, target)
			if err != nil {
				return err
			}
			results[i] = tables
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var tables []*models.Table
	for _, r := range results {
		tables = append(tables, r...)
	}

	for _, table := range tables {
		fixColumnTypes(table)
	}

	ordered, circularTables := OrderTables(tables)
	if len(circularTables) > 0 {
		var names []string
		for _, table := range ordered {
			if circularTables[table.Key()] {
				names = append(names, table.Key())
			}
		}
		sa.Logger.Warningf("Cannot correctly sort tables; there are unresolvable cycles between tables %s", strings.Join(names, ", "))
	}

	info := &models.SchemaInfo{
		Dialect:           sa.DB.Dialect,
		Tables:            ordered,
		AssociationTables: DetectAssociationTables(ordered),
		CircularTables:    circularTables,
	}
	sa.Logger.Infof("Reflected %d tables and views", len(info.Tables))
	return info, nil
}

// schemaTarget pairs the schema name used for inspection with the label
// recorded on reflected tables (empty for the default schema)
type schemaTarget struct {
	name  string
	label string
}

func (sa *SchemaAnalyzer) targetSchemas(ctx context.Context) ([]schemaTarget, error) {
	if len(sa.Options.Schemas) > 0 {
		targets := make([]schemaTarget, 0, len(sa.Options.Schemas))
		for _, name := range sa.Options.Schemas {
			targets = append(targets, schemaTarget{name: name, label: name})
		}
		return targets, nil
	}

	name, err := sa.DB.DefaultSchema(ctx)
	if err != nil {
		return nil, fmt.Errorf("determining default schema: %w", err)
	}
	return []schemaTarget{{name: name}}, nil
}

func (sa *SchemaAnalyzer) openInspector() (schema.Inspector, error) {
	if sa.DB.DB == nil {
		return nil, fmt.Errorf("database is not connected")
	}

	switch sa.DB.Dialect {
	case connector.DialectSQLite:
		return sqlite.Open(sa.DB.DB)
	case connector.DialectMySQL:
		return atlasmysql.Open(sa.DB.DB)
	case connector.DialectPostgres:
		return postgres.Open(sa.DB.DB)
	}
	return nil, fmt.Errorf("%w: %s", connector.ErrUnsupportedDialect, sa.DB.Dialect)
}

func (sa *SchemaAnalyzer) inspectSchema(ctx context.Context, inspector schema.Inspector, target schemaTarget) ([]*models.Table, error) {
	sa.Logger.Debugf("Inspecting schema %s", target.name)

	inspected, err := inspector.InspectSchema(ctx, target.name, &schema.InspectOptions{
		Tables: sa.Options.Tables,
	})
	if err != nil {
		if schema.IsNotExistError(err) {
			return nil, fmt.Errorf("schema %q does not exist", target.name)
		}
		return nil, fmt.Errorf("inspecting schema %q: %w", target.name, err)
	}

	var tables []*models.Table
	for _, t := range inspected.Tables {
		if ignoredTables[t.Name] || !sa.includeTable(t.Name) {
			continue
		}
		tables = append(tables, convertTable(t, target.label, sa.DB.Dialect))
	}

	if !sa.Options.NoViews {
		views, err := sa.reflectViews(ctx, target.name, target.label)
		if err != nil {
			return nil, fmt.Errorf("reflecting views of %q: %w", target.name, err)
		}
		tables = append(tables, views...)
	}

	return tables, nil
}

func (sa *SchemaAnalyzer) includeTable(name string) bool {
	if len(sa.Options.Tables) == 0 {
		return true
	}
	for _, t := range sa.Options.Tables {
		if t == name {
			return true
		}
	}
	return false
}

// convertTable converts an inspected atlas table
func convertTable(t *schema.Table, label, dialect string) *models.Table {
	table := &models.Table{
		Name:    t.Name,
		Schema:  label,
		Comment: commentOf(t.Attrs),
	}

	for _, c := range t.Columns {
		table.Columns = append(table.Columns, convertColumn(c))
	}

	if t.PrimaryKey != nil && len(t.PrimaryKey.Parts) > 0 {
		pk := &models.PrimaryKey{}
		if !isGeneratedPrimaryKeyName(t.Name, t.PrimaryKey.Name) {
			pk.Name = t.PrimaryKey.Name
		}
		for _, part := range t.PrimaryKey.Parts {
			if part.C != nil {
				pk.Columns = append(pk.Columns, part.C.Name)
			}
		}
		table.PrimaryKey = pk

		// Primary key columns are never nullable
		for _, name := range pk.Columns {
			if col := table.Column(name); col != nil {
				col.Nullable = false
			}
		}
	}

	inspectedSchema := ""
	if t.Schema != nil {
		inspectedSchema = t.Schema.Name
	}

	for _, fk := range t.ForeignKeys {
		foreignKey := &models.ForeignKey{
			Table:            t.Name,
			ReferencedSchema: label,
			OnDelete:         referenceOption(dialect, string(fk.OnDelete)),
			OnUpdate:         referenceOption(dialect, string(fk.OnUpdate)),
		}
		for _, c := range fk.Columns {
			foreignKey.Columns = append(foreignKey.Columns, c.Name)
		}
		if fk.RefTable != nil {
			foreignKey.ReferencedTable = fk.RefTable.Name
			if fk.RefTable.Schema != nil && fk.RefTable.Schema.Name != "" && fk.RefTable.Schema.Name != inspectedSchema {
				foreignKey.ReferencedSchema = fk.RefTable.Schema.Name
			}
		}
		for _, c := range fk.RefColumns {
			foreignKey.ReferencedColumns = append(foreignKey.ReferencedColumns, c.Name)
		}
		if !isGeneratedForeignKeyName(dialect, t.Name, foreignKey.Columns, fk.Symbol) {
			foreignKey.Name = fk.Symbol
		}
		table.ForeignKeys = append(table.ForeignKeys, foreignKey)
	}

	for _, idx := range t.Indexes {
		if t.PrimaryKey != nil && idx == t.PrimaryKey {
			continue
		}
		index := &models.Index{Unique: idx.Unique}
		for _, part := range idx.Parts {
			switch {
			case part.C != nil:
				index.Columns = append(index.Columns, part.C.Name)
			case part.X != nil:
				index.Expressions = append(index.Expressions, exprString(part.X))
			}
		}
		if !isGeneratedIndexName(t.Name, index, idx.Name) {
			index.Name = idx.Name
		}
		table.Indexes = append(table.Indexes, index)
	}

	for _, attr := range t.Attrs {
		if check, ok := attr.(*schema.Check); ok {
			table.Checks = append(table.Checks, &models.CheckConstraint{
				Name:       check.Name,
				Expression: check.Expr,
			})
		}
	}

	return table
}

// convertColumn converts an inspected atlas column
func convertColumn(c *schema.Column) *models.Column {
	column := &models.Column{
		Name:     c.Name,
		Nullable: true,
		Comment:  commentOf(c.Attrs),
	}

	if c.Type != nil {
		column.Type = convertType(c.Type.Type, c.Type.Raw)
		column.Nullable = c.Type.Null
		if _, ok := c.Type.Type.(*postgres.SerialType); ok {
			column.AutoIncrement = true
		}
	}

	column.Default = exprString(c.Default)

	for _, attr := range c.Attrs {
		switch a := attr.(type) {
		case *atlasmysql.AutoIncrement:
			column.AutoIncrement = true
		case *sqlite.AutoIncrement:
			column.AutoIncrement = true
		case *postgres.Identity:
			column.Identity = &models.Identity{Always: strings.EqualFold(a.Generation, "ALWAYS")}
		case *schema.GeneratedExpr:
			column.Computed = &models.Computed{
				Expression: a.Expr,
				Persisted:  strings.EqualFold(a.Type, "STORED"),
			}
		}
	}

	// Sequence defaults are implied by autoincrement
	if column.AutoIncrement && strings.HasPrefix(strings.ToLower(column.Default), "nextval(") {
		column.Default = ""
	}

	return column
}

func exprString(x schema.Expr) string {
	switch e := x.(type) {
	case *schema.Literal:
		return e.V
	case *schema.RawExpr:
		return e.X
	}
	return ""
}

func commentOf(attrs []schema.Attr) string {
	for _, attr := range attrs {
		if c, ok := attr.(*schema.Comment); ok {
			return c.Text
		}
	}
	return ""
}

// referenceOption drops the referential actions databases report by default
func referenceOption(dialect, action string) string {
	action = strings.ToUpper(strings.TrimSpace(action))
	switch action {
	case "", "NO ACTION":
		return ""
	case "RESTRICT":
		if dialect == connector.DialectMySQL {
			return ""
		}
	}
	return action
}

var mysqlForeignKeyName = regexp.MustCompile(`_ibfk_\d+$`)

func isGeneratedPrimaryKeyName(table, name string) bool {
	return name == "" || name == "PRIMARY" || name == table+"_pkey"
}

func isGeneratedForeignKeyName(dialect, table string, columns []string, name string) bool {
	if name == "" || name == table+"_"+strings.Join(columns, "_")+"_fkey" {
		return true
	}
	// SQLite reports unnamed foreign keys by their pragma id
	if dialect == connector.DialectSQLite && isDigits(name) {
		return true
	}
	return strings.HasPrefix(name, table) && mysqlForeignKeyName.MatchString(name)
}

func isGeneratedIndexName(table string, index *models.Index, name string) bool {
	if name == "" {
		return true
	}
	if strings.HasPrefix(name, "sqlite_autoindex_") {
		return true
	}
	if len(index.Expressions) > 0 {
		return false
	}
	if index.Unique && name == table+"_"+strings.Join(index.Columns, "_")+"_key" {
		return true
	}
	if len(index.Columns) != 1 {
		return false
	}
	col := index.Columns[0]
	if index.Unique {
		return name == col || name == "ix_"+table+"_"+col
	}
	return name == "ix_"+table+"_"+col
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
