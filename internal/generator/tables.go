package generator

import (
	"sort"
	"strings"

	"github.com/Henkhogan/sqlacodegen/pkg/models"
)

func (r *renderer) metadataRef() string {
	switch r.style {
	case Tables:
		return "metadata"
	case SQLModels:
		return "SQLModel.metadata"
	}
	return "Base.metadata"
}

// renderTable renders a Table(...) call with one argument per line
func (r *renderer) renderTable(table *models.Table, imports *importCollector) string {
	imports.add("sqlalchemy", "Table")
	args := []string{pyRepr(table.Name) + ", " + r.metadataRef()}

	for _, col := range table.Columns {
		imports.add("sqlalchemy", "Column")
		args = append(args, r.renderColumn(table, col, "Column", true, true, imports))
	}
	args = append(args, r.renderConstraints(table, imports)...)
	args = append(args, r.renderIndexes(table, imports)...)

	var kwargs []kwarg
	if table.Schema != "" {
		kwargs = append(kwargs, kwarg{"schema", pyRepr(table.Schema)})
	}
	if table.Comment != "" {
		kwargs = append(kwargs, kwarg{"comment", pyRepr(table.Comment)})
	}
	return renderCallable("Table", args, kwargs, indentation)
}

// renderColumn renders a Column or mapped_column call. Table columns spell
// out nullable=False; mapped columns take it from the annotation.
func (r *renderer) renderColumn(table *models.Table, col *models.Column, callee string, showName, isTable bool, imports *importCollector) string {
	imports.add(calleePackage(callee), callee)

	var args []string
	var kwargs []kwarg
	if showName {
		args = append(args, pyRepr(col.Name))
	}

	// The type is taken from the referenced column
	inline := inlineForeignKeys(table, col)
	if len(inline) == 0 {
		args = append(args, renderColumnType(col.Type, imports))
	}
	for _, fk := range inline {
		imports.add("sqlalchemy", "ForeignKey")
		args = append(args, renderCallable("ForeignKey", []string{pyRepr(remoteColumns(fk)[0])}, foreignKeyOptions(fk), ""))
	}

	if col.Identity != nil {
		imports.add("sqlalchemy", "Identity")
		var identityArgs []kwarg
		if col.Identity.Always {
			identityArgs = append(identityArgs, kwarg{"always", "True"})
		}
		args = append(args, renderCallable("Identity", nil, identityArgs, ""))
	}
	if col.Computed != nil {
		imports.add("sqlalchemy", "Computed")
		args = append(args, renderCallable("Computed",
			[]string{pyRepr(col.Computed.Expression)},
			[]kwarg{{"persisted", pyBool(col.Computed.Persisted)}}, ""))
	}

	isPrimary := table.IsPrimaryKey(col.Name)
	if isPrimary {
		kwargs = append(kwargs, kwarg{"primary_key", "True"})
		if col.AutoIncrement && len(table.PrimaryKey.Columns) > 1 {
			kwargs = append(kwargs, kwarg{"autoincrement", "True"})
		}
	}
	if isTable && !col.Nullable && !isPrimary {
		kwargs = append(kwargs, kwarg{"nullable", "False"})
	}
	if isUniqueColumn(table, col) {
		kwargs = append(kwargs, kwarg{"unique", "True"})
	}
	if isIndexedColumn(table, col) {
		kwargs = append(kwargs, kwarg{"index", "True"})
	}
	if col.Default != "" && col.Computed == nil && col.Identity == nil {
		imports.add("sqlalchemy", "text")
		kwargs = append(kwargs, kwarg{"server_default", renderCallable("text", []string{pyRepr(col.Default)}, nil, "")})
	}
	if col.Comment != "" {
		kwargs = append(kwargs, kwarg{"comment", pyRepr(col.Comment)})
	}

	return renderCallable(callee, args, kwargs, "")
}

func calleePackage(callee string) string {
	if callee == "mapped_column" {
		return "sqlalchemy.orm"
	}
	return "sqlalchemy"
}

// inlineForeignKeys returns the unnamed single column foreign keys on col,
// which render as ForeignKey arguments of the column itself
func inlineForeignKeys(table *models.Table, col *models.Column) []*models.ForeignKey {
	var fks []*models.ForeignKey
	for _, fk := range table.ForeignKeys {
		if fk.Name == "" && len(fk.Columns) == 1 && fk.Columns[0] == col.Name {
			fks = append(fks, fk)
		}
	}
	return fks
}

func isUniqueColumn(table *models.Table, col *models.Column) bool {
	for _, idx := range table.Indexes {
		if idx.Unique && isColumnIndex(idx, col) {
			return true
		}
	}
	return false
}

func isIndexedColumn(table *models.Table, col *models.Column) bool {
	for _, idx := range table.Indexes {
		if !idx.Unique && isColumnIndex(idx, col) {
			return true
		}
	}
	return false
}

// isColumnIndex reports whether idx is an unnamed index on col alone
func isColumnIndex(idx *models.Index, col *models.Column) bool {
	return idx.Name == "" && len(idx.Expressions) == 0 && len(idx.Columns) == 1 && idx.Columns[0] == col.Name
}

// remoteColumns returns the referenced columns as "schema.table.column"
func remoteColumns(fk *models.ForeignKey) []string {
	prefix := referencedKey(fk) + "."
	refs := make([]string, len(fk.ReferencedColumns))
	for i, c := range fk.ReferencedColumns {
		refs[i] = prefix + c
	}
	return refs
}

func foreignKeyOptions(fk *models.ForeignKey) []kwarg {
	var kwargs []kwarg
	if fk.OnDelete != "" {
		kwargs = append(kwargs, kwarg{"ondelete", pyRepr(fk.OnDelete)})
	}
	if fk.OnUpdate != "" {
		kwargs = append(kwargs, kwarg{"onupdate", pyRepr(fk.OnUpdate)})
	}
	return kwargs
}

func nameKwarg(name string) []kwarg {
	if name == "" {
		return nil
	}
	return []kwarg{{"name", pyRepr(name)}}
}

// renderConstraints renders the constraints that cannot be expressed on a
// single column, ordered by constraint class and then by columns
func (r *renderer) renderConstraints(table *models.Table, imports *importCollector) []string {
	type constraint struct {
		key  string
		text string
	}
	var constraints []constraint

	for _, check := range table.Checks {
		imports.add("sqlalchemy", "CheckConstraint")
		constraints = append(constraints, constraint{
			"C" + check.Expression,
			renderCallable("CheckConstraint", []string{pyRepr(check.Expression)}, nameKwarg(check.Name), ""),
		})
	}

	for _, fk := range table.ForeignKeys {
		if fk.Name == "" && len(fk.Columns) == 1 {
			continue
		}
		imports.add("sqlalchemy", "ForeignKeyConstraint")
		kwargs := append(foreignKeyOptions(fk), nameKwarg(fk.Name)...)
		constraints = append(constraints, constraint{
			"F" + pyList(fk.Columns),
			renderCallable("ForeignKeyConstraint", []string{pyList(fk.Columns), pyList(remoteColumns(fk))}, kwargs, ""),
		})
	}

	if pk := table.PrimaryKey; pk != nil && pk.Name != "" {
		imports.add("sqlalchemy", "PrimaryKeyConstraint")
		constraints = append(constraints, constraint{
			"P" + pyList(pk.Columns),
			renderCallable("PrimaryKeyConstraint", quoteAll(pk.Columns), nameKwarg(pk.Name), ""),
		})
	}

	for _, idx := range table.Indexes {
		if !idx.Unique || len(idx.Expressions) > 0 || idx.Name == "" && len(idx.Columns) == 1 {
			continue
		}
		imports.add("sqlalchemy", "UniqueConstraint")
		constraints = append(constraints, constraint{
			"U" + pyList(idx.Columns),
			renderCallable("UniqueConstraint", quoteAll(idx.Columns), nameKwarg(idx.Name), ""),
		})
	}

	sort.SliceStable(constraints, func(i, j int) bool {
		return constraints[i].key < constraints[j].key
	})

	rendered := make([]string, len(constraints))
	for i, c := range constraints {
		rendered[i] = c.text
	}
	return rendered
}

// renderIndexes renders multi-column, named and expression indexes sorted
// by name. Unique column indexes are rendered as UniqueConstraint instead.
func (r *renderer) renderIndexes(table *models.Table, imports *importCollector) []string {
	var indexes []*models.Index
	for _, idx := range table.Indexes {
		if idx.Unique && len(idx.Expressions) == 0 {
			continue
		}
		if idx.Name == "" && len(idx.Columns)+len(idx.Expressions) <= 1 {
			continue
		}
		indexes = append(indexes, idx)
	}
	sort.SliceStable(indexes, func(i, j int) bool {
		return indexes[i].Name < indexes[j].Name
	})

	var rendered []string
	for _, idx := range indexes {
		imports.add("sqlalchemy", "Index")
		name := "None"
		if idx.Name != "" {
			name = pyRepr(idx.Name)
		}
		args := append([]string{name}, quoteAll(idx.Columns)...)
		for _, expr := range idx.Expressions {
			imports.add("sqlalchemy", "text")
			args = append(args, renderCallable("text", []string{pyRepr(expr)}, nil, ""))
		}
		var kwargs []kwarg
		if idx.Unique {
			kwargs = append(kwargs, kwarg{"unique", "True"})
		}
		rendered = append(rendered, renderCallable("Index", args, kwargs, ""))
	}
	return rendered
}

// renderTableArgs renders __table_args__ for a mapped class: a tuple of
// constraints and indexes ending in a dict of table keywords, or the bare
// dict when there are no constraints
func (r *renderer) renderTableArgs(table *models.Table, imports *importCollector) string {
	args := r.renderConstraints(table, imports)
	args = append(args, r.renderIndexes(table, imports)...)

	var options []string
	if table.Comment != "" {
		options = append(options, pyRepr("comment")+": "+pyRepr(table.Comment))
	}
	if table.Schema != "" {
		options = append(options, pyRepr("schema")+": "+pyRepr(table.Schema))
	}
	if len(options) > 0 {
		dict := "{" + strings.Join(options, ", ") + "}"
		if len(args) == 0 {
			return dict
		}
		args = append(args, dict)
	}

	if len(args) == 0 {
		return ""
	}
	rendered := strings.Join(args, ",\n"+indentation)
	if len(args) == 1 {
		rendered += ","
	}
	return "(\n" + indentation + rendered + "\n)"
}

func quoteAll(values []string) []string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = pyRepr(v)
	}
	return quoted
}
