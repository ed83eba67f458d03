package generator

import (
	"fmt"
	"strings"
	"unicode"
)

// kwarg is a rendered keyword argument of a Python call
type kwarg struct {
	key   string
	value string
}

// pyRepr quotes a string the way Python's repr() does
func pyRepr(s string) string {
	quote := '\''
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}

	var b strings.Builder
	b.WriteRune(quote)
	for _, r := range s {
		switch {
		case r == quote || r == '\\':
			b.WriteRune('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		case r > 0x7f && !unicode.IsPrint(r):
			if r > 0xffff {
				fmt.Fprintf(&b, `\U%08x`, r)
			} else if r > 0xff {
				fmt.Fprintf(&b, `\u%04x`, r)
			} else {
				fmt.Fprintf(&b, `\x%02x`, r)
			}
		default:
			b.WriteRune(r)
		}
	}
	b.WriteRune(quote)
	return b.String()
}

// pyList renders a list of strings as a Python list literal
func pyList(values []string) string {
	return "[" + strings.Join(quoteAll(values), ", ") + "]"
}

func pyBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

// renderCallable renders a Python call. With an indentation every argument
// goes on its own line.
func renderCallable(name string, args []string, kwargs []kwarg, indentation string) string {
	elements := append([]string(nil), args...)
	for _, kw := range kwargs {
		elements = append(elements, kw.key+"="+kw.value)
	}
	if len(elements) == 0 {
		return name + "()"
	}
	if indentation != "" {
		return name + "(\n" + indentation + strings.Join(elements, ",\n"+indentation) + "\n)"
	}
	return name + "(" + strings.Join(elements, ", ") + ")"
}

// indent prefixes every non-empty line of text
func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}
