package generator

import (
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Henkhogan/sqlacodegen/pkg/models"
)

type relationshipType int

const (
	oneToMany relationshipType = iota
	manyToOne
	oneToOne
	manyToMany
)

// model is one top level definition in the output: a Table assignment or
// a mapped class
type model struct {
	table         *models.Table
	isClass       bool
	name          string
	parent        *model
	columns       []*columnAttribute
	relationships []*relationship
}

// columnAttribute maps a column to a class attribute
type columnAttribute struct {
	column *models.Column
	name   string
}

func (m *model) attribute(column string) *columnAttribute {
	for _, attr := range m.columns {
		if attr.column.Name == column {
			return attr
		}
	}
	return nil
}

func (m *model) attributes(columns []string) []*columnAttribute {
	var attrs []*columnAttribute
	for _, c := range columns {
		if attr := m.attribute(c); attr != nil {
			attrs = append(attrs, attr)
		}
	}
	return attrs
}

// relationship is a relationship attribute on source pointing at target
type relationship struct {
	kind        relationshipType
	source      *model
	target      *model
	constraint  *models.ForeignKey
	forward     bool // source holds the foreign key
	association *model
	backref     *relationship
	remoteSide  []*columnAttribute
	foreignKeys []*columnAttribute
	name        string
}

// renderer holds the state of a single Generate call
type renderer struct {
	style        string
	opts         Options
	logger       *logrus.Logger
	imports      *importCollector
	tables       []*models.Table
	associations map[string]bool
	models       []*model
	byKey        map[string]*model
}

func (r *renderer) classes() bool {
	return r.style != Tables
}

// sortedForeignKeys orders foreign keys by their local columns
func sortedForeignKeys(table *models.Table) []*models.ForeignKey {
	fks := append([]*models.ForeignKey(nil), table.ForeignKeys...)
	sort.SliceStable(fks, func(i, j int) bool {
		return pyList(fks[i].Columns) < pyList(fks[j].Columns)
	})
	return fks
}

func referencedKey(fk *models.ForeignKey) string {
	return models.QualifiedName(fk.ReferencedSchema, fk.ReferencedTable)
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, c := range a {
		set[c] = true
	}
	for _, c := range b {
		if !set[c] {
			return false
		}
	}
	return true
}

// buildModels decides which tables become classes and infers relationships
// between the classes
func (r *renderer) buildModels() {
	r.byKey = make(map[string]*model, len(r.tables))
	var links []*model

	for _, table := range r.tables {
		m := &model{table: table}
		r.models = append(r.models, m)
		r.byKey[table.Key()] = m

		if !r.classes() {
			continue
		}
		if r.associations[table.Key()] {
			links = append(links, m)
			continue
		}
		if table.IsView || table.PrimaryKey == nil || len(table.PrimaryKey.Columns) == 0 {
			continue
		}
		m.isClass = true
		for _, c := range table.Columns {
			m.columns = append(m.columns, &columnAttribute{column: c})
		}
	}

	if !r.classes() {
		return
	}

	for _, m := range r.models {
		if !m.isClass {
			continue
		}
		for _, fk := range sortedForeignKeys(m.table) {
			target := r.byKey[referencedKey(fk)]
			if target == nil {
				r.logger.Debugf("Table %s references %s which was not reflected", m.table.Key(), referencedKey(fk))
				continue
			}
			if !target.isClass {
				continue
			}
			if !r.opts.NoJoined && r.isJoinedInheritance(m, target, fk) {
				m.parent = target
				r.logger.Debugf("Class for %s inherits from %s", m.table.Key(), target.table.Key())
				continue
			}
			r.addForeignKeyRelationships(m, target, fk)
		}
	}

	for _, link := range links {
		fks := sortedForeignKeys(link.table)
		source := r.byKey[referencedKey(fks[0])]
		target := r.byKey[referencedKey(fks[1])]
		if source == nil || target == nil || !source.isClass || !target.isClass {
			continue
		}

		rel := &relationship{kind: manyToMany, source: source, target: target, association: link}
		source.relationships = append(source.relationships, rel)
		// Self referential links only get one side
		if source != target {
			backref := &relationship{kind: manyToMany, source: target, target: source, association: link, backref: rel}
			rel.backref = backref
			target.relationships = append(target.relationships, backref)
		}
	}
}

// isJoinedInheritance reports whether the foreign key makes the class a
// subclass: its columns are the whole primary key on both ends
func (r *renderer) isJoinedInheritance(m, target *model, fk *models.ForeignKey) bool {
	if m == target || m.parent != nil {
		return false
	}
	return sameColumns(fk.Columns, m.table.PrimaryKey.Columns) &&
		sameColumns(fk.ReferencedColumns, target.table.PrimaryKey.Columns)
}

func (r *renderer) addForeignKeyRelationships(m, target *model, fk *models.ForeignKey) {
	kind := manyToOne
	if r.isOneToOne(m.table, fk) {
		kind = oneToOne
	}

	rel := &relationship{kind: kind, source: m, target: target, constraint: fk, forward: true}
	m.relationships = append(m.relationships, rel)

	if m == target {
		rel.remoteSide = m.attributes(m.table.PrimaryKey.Columns)
	}
	// SQLAlchemy cannot pick the join columns on its own when the tables
	// share several foreign keys
	if r.commonForeignKeys(m.table, target.table) > 1 {
		rel.foreignKeys = m.attributes(fk.Columns)
	}

	if r.opts.NoBidi {
		return
	}
	backKind := kind
	if kind == manyToOne {
		backKind = oneToMany
	}
	backref := &relationship{
		kind:        backKind,
		source:      target,
		target:      m,
		constraint:  fk,
		backref:     rel,
		foreignKeys: rel.foreignKeys,
	}
	rel.backref = backref
	target.relationships = append(target.relationships, backref)
	if m == target {
		backref.remoteSide = m.attributes(fk.Columns)
	}
}

// isOneToOne reports whether the foreign key columns are unique on their own
func (r *renderer) isOneToOne(table *models.Table, fk *models.ForeignKey) bool {
	if table.PrimaryKey != nil && sameColumns(fk.Columns, table.PrimaryKey.Columns) {
		return true
	}
	for _, idx := range table.Indexes {
		if idx.Unique && len(idx.Expressions) == 0 && sameColumns(fk.Columns, idx.Columns) {
			return true
		}
	}
	return false
}

func (r *renderer) commonForeignKeys(a, b *models.Table) int {
	count := 0
	for _, fk := range a.ForeignKeys {
		if referencedKey(fk) == b.Key() {
			count++
		}
	}
	if a != b {
		for _, fk := range b.ForeignKeys {
			if referencedKey(fk) == a.Key() {
				count++
			}
		}
	}
	return count
}

// nameModels assigns class, variable and attribute names. Imports are
// collected first so that no model shadows an imported name, and every
// module level name is taken before any attribute is named.
func (r *renderer) nameModels() {
	globalNames := r.imports.globalNames()
	for _, m := range r.models {
		if m.isClass {
			m.name = findFreeName(className(m.table.Name, r.opts.UseInflect), globalNames, nil)
		} else {
			m.name = findFreeName("t_"+m.table.Name, globalNames, nil)
		}
		globalNames[m.name] = true
	}

	for _, m := range r.models {
		if !m.isClass {
			continue
		}
		localNames := make(nameSet)
		for _, attr := range m.columns {
			attr.name = findFreeName(attr.column.Name, globalNames, localNames, "registry")
			localNames[attr.name] = true
		}
		for _, rel := range m.relationships {
			rel.name = findFreeName(r.relationshipName(rel), globalNames, localNames, "registry")
			localNames[rel.name] = true
		}
	}
}

func (r *renderer) relationshipName(rel *relationship) string {
	// Self referential reverse relationships
	if (rel.kind == oneToMany || rel.kind == oneToOne) && rel.source == rel.target &&
		rel.backref != nil && rel.backref.name != "" {
		return rel.backref.name + "_reverse"
	}

	name := rel.target.table.Name
	if rel.forward && len(rel.constraint.Columns) == 1 {
		column := rel.constraint.Columns[0]
		if strings.HasSuffix(column, "_id") && len(column) > len("_id") {
			name = strings.TrimSuffix(column, "_id")
		}
	}

	if r.opts.UseInflect {
		if rel.kind == oneToMany || rel.kind == manyToMany {
			name = pluralize(name)
		} else {
			name = singularize(name)
		}
	}
	return name
}
