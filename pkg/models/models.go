package models

// TypeKind is the dialect-neutral category of a column type
type TypeKind int

const (
	Null TypeKind = iota
	Integer
	SmallInteger
	BigInteger
	Boolean
	String
	Char
	Text
	Numeric
	Float
	Double
	Date
	DateTime
	Time
	Interval
	LargeBinary
	JSON
	JSONB
	Enum
	Set
	Uuid
	Array
)

var typeKindNames = [...]string{
	Null:         "null",
	Integer:      "integer",
	SmallInteger: "smallinteger",
	BigInteger:   "biginteger",
	Boolean:      "boolean",
	String:       "string",
	Char:         "char",
	Text:         "text",
	Numeric:      "numeric",
	Float:        "float",
	Double:       "double",
	Date:         "date",
	DateTime:     "datetime",
	Time:         "time",
	Interval:     "interval",
	LargeBinary:  "largebinary",
	JSON:         "json",
	JSONB:        "jsonb",
	Enum:         "enum",
	Set:          "set",
	Uuid:         "uuid",
	Array:        "array",
}

func (k TypeKind) String() string {
	if int(k) < len(typeKindNames) {
		return typeKindNames[k]
	}
	return "unknown"
}

// IsInteger reports whether the kind holds whole numbers
func (k TypeKind) IsInteger() bool {
	return k == Integer || k == SmallInteger || k == BigInteger
}

// IsString reports whether the kind holds character data
func (k TypeKind) IsString() bool {
	return k == String || k == Char || k == Text
}

// ColumnType represents a normalised column type
type ColumnType struct {
	Kind       TypeKind
	Raw        string
	Length     int
	Precision  int
	Scale      int
	Timezone   bool
	Values     []string
	EnumName   string
	NativeEnum bool
	Item       *ColumnType
}

// Identity represents an identity column specification
type Identity struct {
	Always bool
}

// Computed represents a generated column expression
type Computed struct {
	Expression string
	Persisted  bool
}

// Column represents a database column with its properties
type Column struct {
	Name          string
	Type          ColumnType
	Nullable      bool
	Default       string
	AutoIncrement bool
	Identity      *Identity
	Computed      *Computed
	Comment       string
}

// ForeignKey represents a foreign key constraint
type ForeignKey struct {
	Name              string
	Table             string
	Columns           []string
	ReferencedSchema  string
	ReferencedTable   string
	ReferencedColumns []string
	OnDelete          string
	OnUpdate          string
}

// Index represents an index or a unique constraint. Name is empty when the
// database generated it.
type Index struct {
	Name        string
	Columns     []string
	Expressions []string
	Unique      bool
}

// CheckConstraint represents a CHECK constraint
type CheckConstraint struct {
	Name       string
	Expression string
}

// PrimaryKey represents the primary key of a table
type PrimaryKey struct {
	Name    string
	Columns []string
}

// Table represents a reflected table or view
type Table struct {
	Name        string
	Schema      string
	Comment     string
	IsView      bool
	Columns     []*Column
	PrimaryKey  *PrimaryKey
	ForeignKeys []*ForeignKey
	Indexes     []*Index
	Checks      []*CheckConstraint
}

// Key returns the schema-qualified table name
func (t *Table) Key() string {
	return QualifiedName(t.Schema, t.Name)
}

// Column returns the column with the given name or nil
func (t *Table) Column(name string) *Column {
	for _, col := range t.Columns {
		if col.Name == name {
			return col
		}
	}
	return nil
}

// IsPrimaryKey reports whether the named column belongs to the primary key
func (t *Table) IsPrimaryKey(name string) bool {
	if t.PrimaryKey == nil {
		return false
	}
	for _, col := range t.PrimaryKey.Columns {
		if col == name {
			return true
		}
	}
	return false
}

// QualifiedName joins a schema and a table name
func QualifiedName(schema, name string) string {
	if schema == "" {
		return name
	}
	return schema + "." + name
}

// SchemaInfo represents the analyzed database schema
type SchemaInfo struct {
	Dialect           string
	Tables            []*Table
	AssociationTables map[string]bool
	CircularTables    map[string]bool
}

// Table returns the table with the given qualified key or nil
func (s *SchemaInfo) Table(key string) *Table {
	for _, t := range s.Tables {
		if t.Key() == key {
			return t
		}
	}
	return nil
}
