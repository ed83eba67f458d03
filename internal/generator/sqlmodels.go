package generator

import (
	"strings"
)

// renderFieldAttribute renders "name: T = Field(sa_column=Column(...))"
func (r *renderer) renderFieldAttribute(m *model, attr *columnAttribute, imports *importCollector) string {
	col := attr.column
	imports.add("sqlmodel", "Field")

	annotation := pythonType(col.Type, imports)
	var kwargs []kwarg
	if col.Nullable {
		imports.add("typing", "Optional")
		annotation = "Optional[" + annotation + "]"
		kwargs = append(kwargs, kwarg{"default", "None"})
	}
	kwargs = append(kwargs, kwarg{"sa_column", r.renderColumn(m.table, col, "Column", true, false, imports)})

	return attr.name + ": " + annotation + " = " + renderCallable("Field", nil, kwargs, "")
}

// renderSQLModelRelationship renders a Relationship field. Everything but
// back_populates goes through sa_relationship_kwargs, with column
// references spelled as strings.
func (r *renderer) renderSQLModelRelationship(rel *relationship, imports *importCollector) string {
	imports.add("sqlmodel", "Relationship")

	target := pyRepr(rel.target.name)
	annotation := "Optional[" + target + "]"
	if rel.kind == oneToMany || rel.kind == manyToMany {
		imports.add("typing", "List")
		annotation = "List[" + target + "]"
	} else {
		imports.add("typing", "Optional")
	}

	var kwargs []kwarg
	if rel.backref != nil {
		kwargs = append(kwargs, kwarg{"back_populates", pyRepr(rel.backref.name)})
	}

	var options []string
	option := func(key, value string) {
		options = append(options, pyRepr(key)+": "+value)
	}
	if rel.association != nil {
		option("secondary", pyRepr(rel.association.table.Key()))
	}
	if rel.kind == oneToOne && !rel.forward {
		option("uselist", "False")
	}
	if len(rel.remoteSide) > 0 {
		option("remote_side", pyRepr(qualifiedAttributeList(rel.source, rel.remoteSide)))
	}
	if len(rel.foreignKeys) > 0 {
		owner := rel.target
		if rel.forward {
			owner = rel.source
		}
		option("foreign_keys", pyRepr(qualifiedAttributeList(owner, rel.foreignKeys)))
	}
	if primary, secondary := r.selfJoins(rel); primary != "" {
		option("primaryjoin", pyRepr(primary))
		option("secondaryjoin", pyRepr(secondary))
	}
	if len(options) > 0 {
		kwargs = append(kwargs, kwarg{"sa_relationship_kwargs", "{" + strings.Join(options, ", ") + "}"})
	}

	return rel.name + ": " + annotation + " = " + renderCallable("Relationship", nil, kwargs, "")
}
