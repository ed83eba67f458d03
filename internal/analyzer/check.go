package analyzer

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/Henkhogan/sqlacodegen/pkg/models"
)

// --- CHECK constraint grammar ---
// Only membership tests are understood:
//   col IN ('a', 'b')
//   (col)::text = ANY ((ARRAY['a'::character varying, 'b'::character varying])::text[])

// membershipCheck parses a single-column membership test
type membershipCheck struct {
	Column *checkColumn `parser:"@@"`
	In     *inList      `parser:"( @@"`
	Any    *anyArray    `parser:"| @@ )"`
}

// checkColumn parses a possibly parenthesised and cast column reference
type checkColumn struct {
	Name string `parser:"( '(' @(Ident | Quoted) ')' | @(Ident | Quoted) )"`
	Cast string `parser:"( '::' @Ident+ ( '[' ']' )? )?"`
}

// inList parses: IN (value, ...)
type inList struct {
	Values []*checkValue `parser:"'IN' '(' @@ ( ',' @@ )* ')'"`
}

// anyArray parses: = ANY (ARRAY[value, ...]) with an optional cast of the array
type anyArray struct {
	Nested *arrayLiteral `parser:"'=' 'ANY' '(' ( '(' @@ ')' ( '::' Ident+ ( '[' ']' )? )?"`
	Plain  *arrayLiteral `parser:"| @@ ) ')'"`
}

// arrayLiteral parses: ARRAY[value, ...]
type arrayLiteral struct {
	Values []*checkValue `parser:"'ARRAY' '[' @@ ( ',' @@ )* ']'"`
}

// checkValue parses a string or numeric literal with an optional charset
// introducer (MySQL) and an optional cast (PostgreSQL)
type checkValue struct {
	Charset string  `parser:"@Ident?"`
	String  *string `parser:"( @String"`
	Number  *string `parser:"| @Number )"`
	Cast    string  `parser:"( '::' @Ident+ )?"`
}

var checkLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "String", Pattern: `'(?:[^']|'')*'`},
	{Name: "Number", Pattern: `[-+]?\d+(?:\.\d+)?`},
	{Name: "Quoted", Pattern: "\"[^\"]+\"|`[^`]+`"},
	{Name: "Keyword", Pattern: `(?i)\b(?:IN|ANY|ARRAY)\b`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_$.]*`},
	{Name: "Cast", Pattern: `::`},
	{Name: "Punct", Pattern: `[(),\[\]=]`},
})

var checkParser = participle.MustBuild[membershipCheck](
	participle.Lexer(checkLexer),
	participle.Elide("Whitespace"),
	participle.CaseInsensitive("Keyword"),
	participle.UseLookahead(4),
)

// membership is the parsed form of a membership CHECK constraint
type membership struct {
	Column  string
	Values  []string
	Numeric bool
}

// parseMembershipCheck parses a CHECK expression of the form "col IN (...)".
// ok is false for any other expression.
func parseMembershipCheck(expr string) (membership, bool) {
	parsed, err := checkParser.ParseString("", stripOuterParens(expr))
	if err != nil {
		return membership{}, false
	}

	var values []*checkValue
	if parsed.In != nil {
		values = parsed.In.Values
	} else if parsed.Any != nil && parsed.Any.Nested != nil {
		values = parsed.Any.Nested.Values
	} else if parsed.Any != nil && parsed.Any.Plain != nil {
		values = parsed.Any.Plain.Values
	}

	result := membership{Column: unquoteIdent(parsed.Column.Name)}
	for i, v := range values {
		numeric := v.Number != nil
		if i == 0 {
			result.Numeric = numeric
		} else if numeric != result.Numeric {
			return membership{}, false
		}
		if numeric {
			result.Values = append(result.Values, *v.Number)
		} else {
			result.Values = append(result.Values, unquoteString(*v.String))
		}
	}
	return result, len(result.Values) > 0
}

// fixColumnTypes turns membership CHECK constraints into column types: an
// integer column restricted to (0, 1) becomes Boolean and a string column
// restricted to string literals becomes a non-native Enum. Consumed
// constraints are removed from the table.
func fixColumnTypes(table *models.Table) {
	var remaining []*models.CheckConstraint

	for _, check := range table.Checks {
		m, ok := parseMembershipCheck(check.Expression)
		if !ok {
			remaining = append(remaining, check)
			continue
		}

		col := table.Column(m.Column)
		if col == nil {
			remaining = append(remaining, check)
			continue
		}

		switch {
		case m.Numeric && col.Type.Kind.IsInteger() && isBooleanDomain(m.Values):
			col.Type = models.ColumnType{Kind: models.Boolean, Raw: col.Type.Raw}
		case !m.Numeric && (col.Type.Kind.IsString() || col.Type.Kind == models.Enum):
			if col.Type.Kind != models.Enum {
				col.Type = models.ColumnType{Kind: models.Enum, Raw: col.Type.Raw, Values: m.Values}
			}
		default:
			remaining = append(remaining, check)
		}
	}

	table.Checks = remaining
}

func isBooleanDomain(values []string) bool {
	if len(values) != 2 {
		return false
	}
	return (values[0] == "0" && values[1] == "1") || (values[0] == "1" && values[1] == "0")
}

// stripOuterParens removes parentheses wrapping the whole expression
func stripOuterParens(expr string) string {
	expr = strings.TrimSpace(expr)
	for len(expr) >= 2 && expr[0] == '(' && expr[len(expr)-1] == ')' && closingParen(expr) == len(expr)-1 {
		expr = strings.TrimSpace(expr[1 : len(expr)-1])
	}
	return expr
}

// closingParen returns the index of the parenthesis closing expr[0]
func closingParen(expr string) int {
	depth := 0
	inString := false
	for i := 0; i < len(expr); i++ {
		switch c := expr[i]; {
		case c == '\'':
			inString = !inString
		case inString:
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func unquoteIdent(name string) string {
	if len(name) >= 2 {
		if (name[0] == '"' && name[len(name)-1] == '"') || (name[0] == '`' && name[len(name)-1] == '`') {
			return name[1 : len(name)-1]
		}
	}
	// Drop a table qualifier
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

func unquoteString(s string) string {
	s = strings.TrimPrefix(strings.TrimSuffix(s, "'"), "'")
	return strings.ReplaceAll(s, "''", "'")
}
