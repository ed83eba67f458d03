package analyzer

import (
	"sort"

	"github.com/Henkhogan/sqlacodegen/pkg/models"
	"github.com/yourbasic/graph"
)

// OrderTables sorts tables so that every table comes after the tables its
// foreign keys reference. Names are the tie-break. Foreign keys inside a
// dependency cycle are ignored for ordering; the tables involved are
// returned as the circular set.
func OrderTables(tables []*models.Table) ([]*models.Table, map[string]bool) {
	sorted := make([]*models.Table, len(tables))
	copy(sorted, tables)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Key() < sorted[j].Key()
	})

	tableIndexMap := make(map[string]int, len(sorted))
	for i, table := range sorted {
		tableIndexMap[table.Key()] = i
	}

	// Edges point from the referenced table to the referencing one
	dependencyGraph := graph.New(len(sorted))
	for child, table := range sorted {
		for _, fk := range table.ForeignKeys {
			parent, ok := tableIndexMap[models.QualifiedName(fk.ReferencedSchema, fk.ReferencedTable)]
			if !ok || parent == child {
				continue
			}
			dependencyGraph.Add(parent, child)
		}
	}

	circularTables := make(map[string]bool)
	component := make([]int, len(sorted))
	for c, members := range graph.StrongComponents(dependencyGraph) {
		for _, v := range members {
			component[v] = c
			if len(members) > 1 {
				circularTables[sorted[v].Key()] = true
			}
		}
	}

	// Drop the edges that keep cycles alive
	acyclic := graph.New(len(sorted))
	for v := 0; v < len(sorted); v++ {
		dependencyGraph.Visit(v, func(w int, _ int64) bool {
			if component[v] != component[w] {
				acyclic.Add(v, w)
			}
			return false
		})
	}

	order, ok := graph.TopSort(graph.Sort(acyclic))
	if !ok {
		return sorted, circularTables
	}

	ordered := make([]*models.Table, 0, len(sorted))
	for _, v := range order {
		ordered = append(ordered, sorted[v])
	}
	return ordered, circularTables
}

// DetectAssociationTables finds tables that only link two other tables:
// exactly two foreign keys, and every column belongs to one of them
func DetectAssociationTables(tables []*models.Table) map[string]bool {
	associations := make(map[string]bool)

	for _, table := range tables {
		if table.IsView || len(table.ForeignKeys) != 2 || len(table.Columns) == 0 {
			continue
		}

		fkColumns := make(map[string]bool)
		for _, fk := range table.ForeignKeys {
			for _, col := range fk.Columns {
				fkColumns[col] = true
			}
		}

		isAssociation := true
		for _, col := range table.Columns {
			if !fkColumns[col.Name] {
				isAssociation = false
				break
			}
		}

		if isAssociation {
			associations[table.Key()] = true
		}
	}

	return associations
}
