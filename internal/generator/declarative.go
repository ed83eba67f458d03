package generator

import (
	"strings"

	"github.com/Henkhogan/sqlacodegen/pkg/models"
)

// collectImports renders everything once into the import collector. Names
// are not assigned yet, so the rendered text is thrown away.
func (r *renderer) collectImports() {
	r.renderModuleVariables(r.imports)
	for _, m := range r.models {
		r.renderModel(m, r.imports)
	}
}

// renderModuleVariables renders the declarations every model depends on
func (r *renderer) renderModuleVariables(imports *importCollector) string {
	switch r.style {
	case Tables:
		imports.add("sqlalchemy", "MetaData")
		return "metadata = MetaData()"
	case Declarative:
		imports.add("sqlalchemy.orm", "DeclarativeBase")
		return "class Base(DeclarativeBase):\n" + indentation + "pass"
	case Dataclasses:
		imports.add("sqlalchemy.orm", "DeclarativeBase")
		imports.add("sqlalchemy.orm", "MappedAsDataclass")
		return "class Base(MappedAsDataclass, DeclarativeBase):\n" + indentation + "pass"
	case SQLModels:
		imports.add("sqlmodel", "SQLModel")
	}
	return ""
}

func (r *renderer) renderModel(m *model, imports *importCollector) string {
	if m.isClass {
		return r.renderClass(m, imports)
	}
	return m.name + " = " + r.renderTable(m.table, imports)
}

// renderClass renders a mapped class: class variables, column attributes
// and relationships, each block separated by a blank line
func (r *renderer) renderClass(m *model, imports *importCollector) string {
	var sections []string
	if vars := r.renderClassVariables(m, imports); vars != "" {
		sections = append(sections, vars)
	}

	var columns []string
	for _, attr := range m.columns {
		if r.style == SQLModels {
			columns = append(columns, r.renderFieldAttribute(m, attr, imports))
		} else {
			columns = append(columns, r.renderColumnAttribute(m, attr, imports))
		}
	}
	if len(columns) > 0 {
		sections = append(sections, strings.Join(columns, "\n"))
	}

	var relationships []string
	for _, rel := range m.relationships {
		if r.style == SQLModels {
			relationships = append(relationships, r.renderSQLModelRelationship(rel, imports))
		} else {
			relationships = append(relationships, r.renderRelationship(rel, imports))
		}
	}
	if len(relationships) > 0 {
		sections = append(sections, strings.Join(relationships, "\n"))
	}

	for i, section := range sections {
		sections[i] = indent(section, indentation)
	}
	return r.renderClassDeclaration(m) + "\n" + strings.Join(sections, "\n\n")
}

func (r *renderer) renderClassDeclaration(m *model) string {
	base := "Base"
	if r.style == SQLModels {
		base = "SQLModel"
	}
	if m.parent != nil {
		base = m.parent.name
	}
	if r.style == SQLModels {
		return "class " + m.name + "(" + base + ", table=True):"
	}
	return "class " + m.name + "(" + base + "):"
}

func (r *renderer) renderClassVariables(m *model, imports *importCollector) string {
	var variables []string
	if r.style != SQLModels || m.table.Name != strings.ToLower(m.name) {
		variables = append(variables, "__tablename__ = "+pyRepr(m.table.Name))
	}
	if args := r.renderTableArgs(m.table, imports); args != "" {
		variables = append(variables, "__table_args__ = "+args)
	}
	return strings.Join(variables, "\n")
}

// renderColumnAttribute renders "name: Mapped[T] = mapped_column(...)"
func (r *renderer) renderColumnAttribute(m *model, attr *columnAttribute, imports *importCollector) string {
	col := attr.column
	imports.add("sqlalchemy.orm", "Mapped")

	annotation := pythonType(col.Type, imports)
	if col.Nullable {
		imports.add("typing", "Optional")
		annotation = "Optional[" + annotation + "]"
	}

	rendered := r.renderColumn(m.table, col, "mapped_column", attr.name != col.Name, false, imports)
	return attr.name + ": Mapped[" + annotation + "] = " + rendered
}

// renderRelationship renders "name: Mapped[...] = relationship(...)"
func (r *renderer) renderRelationship(rel *relationship, imports *importCollector) string {
	imports.add("sqlalchemy.orm", "relationship")
	imports.add("sqlalchemy.orm", "Mapped")

	target := pyRepr(rel.target.name)
	annotation := target
	switch {
	case rel.kind == oneToMany || rel.kind == manyToMany:
		imports.add("typing", "List")
		annotation = "List[" + target + "]"
	case r.isOptionalRelationship(rel):
		imports.add("typing", "Optional")
		annotation = "Optional[" + target + "]"
	}

	rendered := renderCallable("relationship", []string{target}, r.relationshipKwargs(rel), "")
	return rel.name + ": Mapped[" + annotation + "] = " + rendered
}

// isOptionalRelationship reports whether a scalar relationship may be None:
// a nullable foreign key, or the referenced side of a one-to-one
func (r *renderer) isOptionalRelationship(rel *relationship) bool {
	if rel.constraint == nil {
		return false
	}
	if !rel.forward {
		return true
	}
	for _, name := range rel.constraint.Columns {
		if col := rel.source.table.Column(name); col != nil && col.Nullable {
			return true
		}
	}
	return false
}

func (r *renderer) relationshipKwargs(rel *relationship) []kwarg {
	var kwargs []kwarg
	if rel.association != nil {
		kwargs = append(kwargs, kwarg{"secondary", pyRepr(rel.association.table.Key())})
	}
	if rel.kind == oneToOne && !rel.forward {
		kwargs = append(kwargs, kwarg{"uselist", "False"})
	}
	if len(rel.remoteSide) > 0 {
		kwargs = append(kwargs, kwarg{"remote_side", attributeList(rel.remoteSide)})
	}
	if len(rel.foreignKeys) > 0 {
		if rel.forward || rel.source == rel.target {
			kwargs = append(kwargs, kwarg{"foreign_keys", attributeList(rel.foreignKeys)})
		} else {
			// The class holding the foreign key is not defined yet
			kwargs = append(kwargs, kwarg{"foreign_keys", pyRepr(qualifiedAttributeList(rel.target, rel.foreignKeys))})
		}
	}
	if primary, secondary := r.selfJoins(rel); primary != "" {
		kwargs = append(kwargs, kwarg{"primaryjoin", pyRepr(primary)}, kwarg{"secondaryjoin", pyRepr(secondary)})
	}
	if rel.backref != nil {
		kwargs = append(kwargs, kwarg{"back_populates", pyRepr(rel.backref.name)})
	}
	return kwargs
}

// selfJoins builds the join conditions of a self referential many-to-many
// relationship, which SQLAlchemy cannot infer
func (r *renderer) selfJoins(rel *relationship) (string, string) {
	if rel.association == nil || rel.source != rel.target {
		return "", ""
	}
	fks := sortedForeignKeys(rel.association.table)
	return r.joinCondition(rel.source, rel.association, fks[0]), r.joinCondition(rel.target, rel.association, fks[1])
}

func (r *renderer) joinCondition(m, association *model, fk *models.ForeignKey) string {
	var conditions []string
	for i, col := range fk.Columns {
		if i >= len(fk.ReferencedColumns) {
			break
		}
		ref := fk.ReferencedColumns[i]
		if attr := m.attribute(ref); attr != nil {
			ref = attr.name
		}
		conditions = append(conditions, m.name+"."+ref+" == "+association.name+".c."+col)
	}
	if len(conditions) == 1 {
		return conditions[0]
	}
	return "and_(" + strings.Join(conditions, ", ") + ")"
}

func attributeList(attrs []*columnAttribute) string {
	names := make([]string, len(attrs))
	for i, attr := range attrs {
		names[i] = attr.name
	}
	return "[" + strings.Join(names, ", ") + "]"
}

func qualifiedAttributeList(owner *model, attrs []*columnAttribute) string {
	names := make([]string, len(attrs))
	for i, attr := range attrs {
		names[i] = owner.name + "." + attr.name
	}
	return "[" + strings.Join(names, ", ") + "]"
}
