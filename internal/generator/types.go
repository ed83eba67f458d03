package generator

import (
	"strconv"
	"strings"

	"github.com/Henkhogan/sqlacodegen/pkg/models"
)

// sqlType describes how a column type kind is spelled in generated code
type sqlType struct {
	name   string // SQLAlchemy type class
	pkg    string // module the class is imported from
	python string // Python type of the column values
}

var sqlTypes = map[models.TypeKind]sqlType{
	models.Null:         {"NullType", "sqlalchemy.sql.sqltypes", "Any"},
	models.Integer:      {"Integer", "sqlalchemy", "int"},
	models.SmallInteger: {"SmallInteger", "sqlalchemy", "int"},
	models.BigInteger:   {"BigInteger", "sqlalchemy", "int"},
	models.Boolean:      {"Boolean", "sqlalchemy", "bool"},
	models.String:       {"String", "sqlalchemy", "str"},
	models.Char:         {"CHAR", "sqlalchemy", "str"},
	models.Text:         {"Text", "sqlalchemy", "str"},
	models.Numeric:      {"Numeric", "sqlalchemy", "decimal.Decimal"},
	models.Float:        {"Float", "sqlalchemy", "float"},
	models.Double:       {"Double", "sqlalchemy", "float"},
	models.Date:         {"Date", "sqlalchemy", "datetime.date"},
	models.DateTime:     {"DateTime", "sqlalchemy", "datetime.datetime"},
	models.Time:         {"Time", "sqlalchemy", "datetime.time"},
	models.Interval:     {"Interval", "sqlalchemy", "datetime.timedelta"},
	models.LargeBinary:  {"LargeBinary", "sqlalchemy", "bytes"},
	models.JSON:         {"JSON", "sqlalchemy", "dict"},
	models.JSONB:        {"JSONB", "sqlalchemy.dialects.postgresql", "dict"},
	models.Enum:         {"Enum", "sqlalchemy", "str"},
	models.Set:          {"SET", "sqlalchemy.dialects.mysql", "set"},
	models.Uuid:         {"Uuid", "sqlalchemy", "uuid.UUID"},
	models.Array:        {"ARRAY", "sqlalchemy", "list"},
}

func lookupType(kind models.TypeKind) sqlType {
	if t, ok := sqlTypes[kind]; ok {
		return t
	}
	return sqlTypes[models.Null]
}

// renderColumnType renders the SQLAlchemy type of a column, such as
// String(50) or Enum('a', 'b', name='choice'), recording its imports
func renderColumnType(ct models.ColumnType, imports *importCollector) string {
	t := lookupType(ct.Kind)
	imports.add(t.pkg, t.name)

	var args []string
	var kwargs []kwarg
	switch ct.Kind {
	case models.String, models.Char, models.LargeBinary:
		if ct.Length > 0 {
			args = append(args, strconv.Itoa(ct.Length))
		}
	case models.Numeric:
		if ct.Precision > 0 {
			args = append(args, strconv.Itoa(ct.Precision))
			if ct.Scale > 0 {
				args = append(args, strconv.Itoa(ct.Scale))
			}
		}
	case models.DateTime, models.Time:
		if ct.Timezone {
			args = append(args, "True")
		}
	case models.Enum:
		for _, v := range ct.Values {
			args = append(args, pyRepr(v))
		}
		if ct.EnumName != "" {
			kwargs = append(kwargs, kwarg{"name", pyRepr(ct.EnumName)})
		}
		if !ct.NativeEnum {
			kwargs = append(kwargs, kwarg{"native_enum", "False"})
		}
	case models.Set:
		for _, v := range ct.Values {
			args = append(args, pyRepr(v))
		}
	case models.Array:
		item := models.ColumnType{Kind: models.Null}
		if ct.Item != nil {
			item = *ct.Item
		}
		rendered := renderColumnType(item, imports)
		if !strings.Contains(rendered, "(") {
			rendered += "()"
		}
		args = append(args, rendered)
	}

	if len(args) == 0 && len(kwargs) == 0 {
		return t.name
	}
	return renderCallable(t.name, args, kwargs, "")
}

// pythonType returns the annotation for values of a column type, recording
// the module or typing import it needs
func pythonType(ct models.ColumnType, imports *importCollector) string {
	name := lookupType(ct.Kind).python
	switch {
	case name == "Any":
		imports.add("typing", "Any")
	case strings.Contains(name, "."):
		imports.addModule(name[:strings.Index(name, ".")])
	}
	return name
}
