package generator

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/unicode/norm"
)

var pythonKeywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true, "class": true,
	"continue": true, "def": true, "del": true, "elif": true, "else": true,
	"except": true, "finally": true, "for": true, "from": true, "global": true,
	"if": true, "import": true, "in": true, "is": true, "lambda": true,
	"nonlocal": true, "not": true, "or": true, "pass": true, "raise": true,
	"return": true, "try": true, "while": true, "with": true, "yield": true,
}

// sanitizeIdentifier NFKC-normalises a name and replaces every character
// that cannot appear in a Python identifier with an underscore
func sanitizeIdentifier(name string) string {
	name = norm.NFKC.String(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range name {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.In(r, unicode.Mn, unicode.Mc) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// nameSet tracks the identifiers already taken in a namespace
type nameSet map[string]bool

func (s nameSet) has(name string) bool {
	return s != nil && s[name]
}

// findFreeName picks an identifier based on name that is taken in neither
// namespace. reserved names get an underscore suffix like keywords do.
func findFreeName(name string, globalNames, localNames nameSet, reserved ...string) string {
	name = sanitizeIdentifier(name)
	if name == "" {
		name = "_"
	}

	first := []rune(name)[0]
	switch {
	case unicode.IsDigit(first):
		name = "_" + name
	case pythonKeywords[name] || name == "metadata":
		name += "_"
	default:
		for _, r := range reserved {
			if name == r {
				name += "_"
				break
			}
		}
	}

	original := name
	for i := 0; globalNames.has(name) || localNames.has(name); i++ {
		if i == 0 {
			name = original + "_"
		} else {
			name = original + strconv.Itoa(i)
		}
	}
	return name
}

// className turns a table name into a class name: "simple_items" becomes
// "SimpleItems", or "SimpleItem" when inflecting
func className(tableName string, useInflect bool) string {
	parts := strings.Split(sanitizeIdentifier(tableName), "_")
	var b strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		r := []rune(part)
		b.WriteString(strings.ToUpper(string(r[0])))
		b.WriteString(string(r[1:]))
	}
	name := b.String()
	if name == "" {
		name = "_"
	}
	if useInflect {
		if singular := inflect.Singularize(name); singular != "" {
			name = singular
		}
	}
	return name
}

func singularize(name string) string {
	if s := inflect.Singularize(name); s != "" {
		return s
	}
	return name
}

func pluralize(name string) string {
	if s := inflect.Pluralize(name); s != "" {
		return s
	}
	return name
}
