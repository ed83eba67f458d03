package analyzer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Henkhogan/sqlacodegen/pkg/models"
)

func TestParseMembershipCheck(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		column  string
		values  []string
		numeric bool
	}{
		{"plain", "status IN ('active', 'disabled')", "status", []string{"active", "disabled"}, false},
		{"parenthesised", "(status in ('a','b'))", "status", []string{"a", "b"}, false},
		{"quoted column", `"kind" IN ('x')`, "kind", []string{"x"}, false},
		{"mysql introducer", "(`mood` in (_utf8mb4'happy',_utf8mb4'sad'))", "mood", []string{"happy", "sad"}, false},
		{"escaped quote", "name IN ('it''s')", "name", []string{"it's"}, false},
		{"boolean", "flag IN (0, 1)", "flag", []string{"0", "1"}, true},
		{
			"postgres any array",
			"((status)::text = ANY ((ARRAY['new'::character varying, 'done'::character varying])::text[]))",
			"status", []string{"new", "done"}, false,
		},
		{"postgres plain any", "status = ANY (ARRAY['a', 'b'])", "status", []string{"a", "b"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := parseMembershipCheck(tt.expr)
			require.True(t, ok)
			require.Equal(t, tt.column, m.Column)
			require.Equal(t, tt.values, m.Values)
			require.Equal(t, tt.numeric, m.Numeric)
		})
	}
}

func TestParseMembershipCheckRejects(t *testing.T) {
	for _, expr := range []string{
		"price > 0",
		"length(name) > 3",
		"status NOT IN ('a')",
		"flag IN (0, 'x')",
		"a IN ('x') AND b IN ('y')",
	} {
		_, ok := parseMembershipCheck(expr)
		require.False(t, ok, expr)
	}
}

func TestFixColumnTypes(t *testing.T) {
	table := &models.Table{
		Name: "tasks",
		Columns: []*models.Column{
			{Name: "done", Type: models.ColumnType{Kind: models.Integer, Raw: "INTEGER"}},
			{Name: "state", Type: models.ColumnType{Kind: models.String, Length: 10, Raw: "VARCHAR(10)"}},
			{Name: "priority", Type: models.ColumnType{Kind: models.Integer, Raw: "INTEGER"}},
			{Name: "flag", Type: models.ColumnType{Kind: models.Integer, Raw: "INTEGER"}},
		},
		Checks: []*models.CheckConstraint{
			{Expression: "done IN (0, 1)"},
			{Name: "state_check", Expression: "state IN ('open', 'closed')"},
			{Expression: "priority IN (1, 2, 3)"},
			{Expression: "priority > 0"},
			{Expression: "(flag IN (1, 0))"},
		},
	}

	fixColumnTypes(table)

	require.Equal(t, models.Boolean, table.Column("done").Type.Kind)
	require.Equal(t, models.Enum, table.Column("state").Type.Kind)
	require.Equal(t, []string{"open", "closed"}, table.Column("state").Type.Values)
	require.False(t, table.Column("state").Type.NativeEnum)
	require.Equal(t, models.Integer, table.Column("priority").Type.Kind)
	require.Equal(t, models.Boolean, table.Column("flag").Type.Kind)

	require.Len(t, table.Checks, 2)
	require.Equal(t, "priority IN (1, 2, 3)", table.Checks[0].Expression)
	require.Equal(t, "priority > 0", table.Checks[1].Expression)
}

func TestIsBooleanDomain(t *testing.T) {
	require.True(t, isBooleanDomain([]string{"0", "1"}))
	require.True(t, isBooleanDomain([]string{"1", "0"}))
	require.False(t, isBooleanDomain([]string{"1", "1"}))
	require.False(t, isBooleanDomain([]string{"0", "1", "2"}))
}

func TestStripOuterParens(t *testing.T) {
	require.Equal(t, "a IN ('x')", stripOuterParens("((a IN ('x')))"))
	require.Equal(t, "(a)::text = ANY (x)", stripOuterParens("(a)::text = ANY (x)"))
	require.Equal(t, "a IN (')')", stripOuterParens("(a IN (')'))"))
}
