package analyzer

import (
	"strconv"
	"strings"

	atlasmysql "ariga.io/atlas/sql/mysql"
	"ariga.io/atlas/sql/postgres"
	"ariga.io/atlas/sql/schema"
	"github.com/Henkhogan/sqlacodegen/pkg/models"
)

// convertType maps an atlas column type onto the dialect-neutral type model.
// Types atlas could not classify fall back to the raw type string.
func convertType(typ schema.Type, raw string) models.ColumnType {
	var ct models.ColumnType

	switch t := typ.(type) {
	case *schema.BoolType:
		ct = models.ColumnType{Kind: models.Boolean}
	case *schema.IntegerType:
		ct = parseRawType(t.T)
		if !ct.Kind.IsInteger() && ct.Kind != models.Boolean {
			ct = models.ColumnType{Kind: models.Integer}
		}
	case *schema.StringType:
		ct = parseRawType(t.T)
		if !ct.Kind.IsString() {
			ct = models.ColumnType{Kind: models.String}
		}
		if ct.Kind != models.Text && t.Size > 0 {
			ct.Length = t.Size
		}
	case *schema.DecimalType:
		ct = models.ColumnType{Kind: models.Numeric, Precision: t.Precision, Scale: t.Scale}
	case *schema.FloatType:
		ct = parseRawType(t.T)
		if ct.Kind != models.Double {
			ct = models.ColumnType{Kind: models.Float}
		}
	case *schema.TimeType:
		ct = parseRawType(t.T)
		switch ct.Kind {
		case models.Date, models.DateTime, models.Time, models.Integer:
		default:
			ct = models.ColumnType{Kind: models.DateTime}
		}
	case *schema.BinaryType:
		ct = models.ColumnType{Kind: models.LargeBinary}
		if t.Size != nil {
			ct.Length = *t.Size
		}
	case *schema.JSONType:
		ct = models.ColumnType{Kind: models.JSON}
		if strings.EqualFold(t.T, "jsonb") {
			ct.Kind = models.JSONB
		}
	case *schema.EnumType:
		ct = models.ColumnType{Kind: models.Enum, Values: append([]string(nil), t.Values...), NativeEnum: true}
		if t.T != "" && !strings.EqualFold(t.T, "enum") {
			ct.EnumName = t.T
		}
	case *schema.UUIDType:
		ct = models.ColumnType{Kind: models.Uuid}
	case *postgres.SerialType:
		switch strings.ToLower(t.T) {
		case "bigserial", "serial8":
			ct = models.ColumnType{Kind: models.BigInteger}
		case "smallserial", "serial2":
			ct = models.ColumnType{Kind: models.SmallInteger}
		default:
			ct = models.ColumnType{Kind: models.Integer}
		}
	case *postgres.ArrayType:
		item := convertType(t.Type, strings.TrimSuffix(t.T, "[]"))
		ct = models.ColumnType{Kind: models.Array, Item: &item}
	case *postgres.IntervalType:
		ct = models.ColumnType{Kind: models.Interval}
	case *atlasmysql.SetType:
		ct = models.ColumnType{Kind: models.Set, Values: append([]string(nil), t.Values...)}
	default:
		ct = parseRawType(raw)
	}

	ct.Raw = raw
	return ct
}

// parseRawType classifies a type as written in DDL, e.g. "varchar(50)" or
// "timestamp with time zone". Unknown names follow SQLite affinity rules and
// end up as Null when nothing matches.
func parseRawType(raw string) models.ColumnType {
	s := strings.ToLower(strings.TrimSpace(raw))
	ct := models.ColumnType{Raw: raw}
	if s == "" {
		return ct
	}

	if strings.HasSuffix(s, "[]") {
		item := parseRawType(strings.TrimSuffix(s, "[]"))
		ct.Kind = models.Array
		ct.Item = &item
		return ct
	}

	for prefix, kind := range map[string]models.TypeKind{"enum(": models.Enum, "set(": models.Set} {
		if strings.HasPrefix(s, prefix) && strings.HasSuffix(s, ")") {
			body := strings.TrimSpace(raw)
			ct.Kind = kind
			ct.Values = quotedValues(body[len(prefix) : len(body)-1])
			ct.NativeEnum = kind == models.Enum
			return ct
		}
	}

	// Split "name(args) suffix" into its parts
	name := s
	var args []int
	if open := strings.Index(s, "("); open >= 0 {
		name = strings.TrimSpace(s[:open])
		rest := s[open+1:]
		if end := strings.Index(rest, ")"); end >= 0 {
			for _, arg := range strings.Split(rest[:end], ",") {
				if n, err := strconv.Atoi(strings.TrimSpace(arg)); err == nil {
					args = append(args, n)
				}
			}
			if suffix := strings.TrimSpace(rest[end+1:]); suffix != "" {
				name += " " + suffix
			}
		}
	}
	name = strings.TrimSpace(strings.TrimSuffix(name, " unsigned"))
	name = strings.TrimSuffix(name, " zerofill")

	switch name {
	case "int", "integer", "mediumint", "int4", "serial", "serial4", "year":
		ct.Kind = models.Integer
	case "bigint", "int8", "bigserial", "serial8":
		ct.Kind = models.BigInteger
	case "smallint", "int2", "smallserial", "serial2":
		ct.Kind = models.SmallInteger
	case "tinyint":
		ct.Kind = models.SmallInteger
		if len(args) == 1 && args[0] == 1 {
			ct.Kind = models.Boolean
		}
	case "bool", "boolean", "bit":
		ct.Kind = models.Boolean
	case "varchar", "character varying", "nvarchar", "varchar2", "nvarchar2", "string", "varying character":
		ct.Kind = models.String
	case "char", "character", "nchar", "bpchar", "native character":
		ct.Kind = models.Char
	case "text", "clob", "tinytext", "mediumtext", "longtext", "ntext", "citext":
		ct.Kind = models.Text
	case "numeric", "decimal", "dec", "fixed", "money":
		ct.Kind = models.Numeric
	case "real", "float", "float4":
		ct.Kind = models.Float
	case "double", "double precision", "float8":
		ct.Kind = models.Double
	case "date":
		ct.Kind = models.Date
	case "datetime", "timestamp", "timestamp without time zone", "smalldatetime", "datetime2":
		ct.Kind = models.DateTime
	case "timestamptz", "timestamp with time zone", "datetimeoffset":
		ct.Kind = models.DateTime
		ct.Timezone = true
	case "time", "time without time zone":
		ct.Kind = models.Time
	case "timetz", "time with time zone":
		ct.Kind = models.Time
		ct.Timezone = true
	case "interval":
		ct.Kind = models.Interval
	case "blob", "bytea", "binary", "varbinary", "tinyblob", "mediumblob", "longblob", "image":
		ct.Kind = models.LargeBinary
	case "json":
		ct.Kind = models.JSON
	case "jsonb":
		ct.Kind = models.JSONB
	case "uuid", "uniqueidentifier":
		ct.Kind = models.Uuid
	default:
		ct.Kind = affinity(name)
	}

	switch ct.Kind {
	case models.String, models.Char, models.LargeBinary:
		if len(args) > 0 {
			ct.Length = args[0]
		}
	case models.Numeric:
		if len(args) > 0 {
			ct.Precision = args[0]
		}
		if len(args) > 1 {
			ct.Scale = args[1]
		}
	}
	return ct
}

// affinity applies the SQLite column affinity rules to an unknown type name
func affinity(name string) models.TypeKind {
	switch {
	case strings.Contains(name, "int"):
		return models.Integer
	case strings.Contains(name, "char"), strings.Contains(name, "clob"), strings.Contains(name, "text"):
		return models.Text
	case strings.Contains(name, "blob"):
		return models.LargeBinary
	case strings.Contains(name, "real"), strings.Contains(name, "floa"), strings.Contains(name, "doub"):
		return models.Float
	}
	return models.Null
}

// quotedValues splits a list of single quoted SQL strings such as 'a','b'
func quotedValues(list string) []string {
	var values []string
	var current strings.Builder
	inString := false
	for i := 0; i < len(list); i++ {
		c := list[i]
		switch {
		case c == '\'' && inString && i+1 < len(list) && list[i+1] == '\'':
			current.WriteByte('\'')
			i++
		case c == '\'':
			if inString {
				values = append(values, current.String())
				current.Reset()
			}
			inString = !inString
		case inString:
			current.WriteByte(c)
		}
	}
	return values
}
