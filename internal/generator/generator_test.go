package generator

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/Henkhogan/sqlacodegen/internal/analyzer"
	"github.com/Henkhogan/sqlacodegen/pkg/models"
)

func createTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress log output during tests
	return logger
}

func column(name string, kind models.TypeKind, nullable bool) *models.Column {
	return &models.Column{Name: name, Type: models.ColumnType{Kind: kind}, Nullable: nullable}
}

func primaryKey(columns ...string) *models.PrimaryKey {
	return &models.PrimaryKey{Columns: columns}
}

func foreignKey(table string, columns []string, refTable string, refColumns ...string) *models.ForeignKey {
	return &models.ForeignKey{
		Table:             table,
		Columns:           columns,
		ReferencedTable:   refTable,
		ReferencedColumns: refColumns,
	}
}

func fooTable() *models.Table {
	return &models.Table{
		Name: "foo",
		Columns: []*models.Column{
			column("id", models.Integer, false),
			column("name", models.Text, false),
		},
		PrimaryKey: primaryKey("id"),
	}
}

func generate(t *testing.T, style string, opts Options, tables ...*models.Table) string {
	t.Helper()
	gen, err := New(style, opts, createTestLogger())
	require.NoError(t, err)

	info := &models.SchemaInfo{
		Dialect:           "sqlite",
		Tables:            tables,
		AssociationTables: analyzer.DetectAssociationTables(tables),
	}
	code, err := gen.Generate(info)
	require.NoError(t, err)
	return code
}

func TestParseOptions(t *testing.T) {
	opts, err := ParseOptions([]string{"noindexes", " use_inflect", "", "nobidi"})
	require.NoError(t, err)
	require.Equal(t, Options{NoIndexes: true, UseInflect: true, NoBidi: true}, opts)

	_, err = ParseOptions([]string{"nocomments", "bogus", "another"})
	require.True(t, errors.Is(err, ErrUnknownOption))
	require.EqualError(t, err, "unrecognized options: another, bogus")
}

func TestNew(t *testing.T) {
	for _, name := range Names {
		gen, err := New(name, Options{}, createTestLogger())
		require.NoError(t, err, name)
		require.Equal(t, name, gen.(*CodeGenerator).Style)
	}

	_, err := New("nosuchthing", Options{}, createTestLogger())
	require.True(t, errors.Is(err, ErrUnknownGenerator))

	_, err = New(Tables, Options{UseInflect: true, NoBidi: true}, createTestLogger())
	require.True(t, errors.Is(err, ErrUnknownOption))
	require.EqualError(t, err, "unrecognized options: nobidi, use_inflect")

	_, err = New(Tables, Options{NoIndexes: true, NoConstraints: true, NoComments: true}, createTestLogger())
	require.NoError(t, err)
}

func TestGenerateNilSchema(t *testing.T) {
	gen, err := New(Declarative, Options{}, createTestLogger())
	require.NoError(t, err)
	_, err = gen.Generate(nil)
	require.Error(t, err)
}

func TestGenerateTables(t *testing.T) {
	require.Equal(t, `from sqlalchemy import Column, Integer, MetaData, Table, Text

metadata = MetaData()


t_foo = Table(
    'foo', metadata,
    Column('id', Integer, primary_key=True),
    Column('name', Text, nullable=False)
)
`, generate(t, Tables, Options{}, fooTable()))
}

func TestGenerateDeclarative(t *testing.T) {
	require.Equal(t, `from sqlalchemy import Integer, Text
from sqlalchemy.orm import DeclarativeBase, Mapped, mapped_column

class Base(DeclarativeBase):
    pass


class Foo(Base):
    __tablename__ = 'foo'

    id: Mapped[int] = mapped_column(Integer, primary_key=True)
    name: Mapped[str] = mapped_column(Text)
`, generate(t, Declarative, Options{}, fooTable()))
}

func TestGenerateDataclasses(t *testing.T) {
	require.Equal(t, `from sqlalchemy import Integer, Text
from sqlalchemy.orm import DeclarativeBase, Mapped, MappedAsDataclass, mapped_column

class Base(MappedAsDataclass, DeclarativeBase):
    pass


class Foo(Base):
    __tablename__ = 'foo'

    id: Mapped[int] = mapped_column(Integer, primary_key=True)
    name: Mapped[str] = mapped_column(Text)
`, generate(t, Dataclasses, Options{}, fooTable()))
}

func TestGenerateSQLModels(t *testing.T) {
	require.Equal(t, `from sqlalchemy import Column, Integer, Text
from sqlmodel import Field, SQLModel

class Foo(SQLModel, table=True):
    id: int = Field(sa_column=Column('id', Integer, primary_key=True))
    name: str = Field(sa_column=Column('name', Text))
`, generate(t, SQLModels, Options{}, fooTable()))
}

func TestGenerateEmptySchema(t *testing.T) {
	require.Equal(t, "from sqlalchemy import MetaData\n\nmetadata = MetaData()\n", generate(t, Tables, Options{}))
}

func constrainedTables() []*models.Table {
	other := &models.Table{
		Name:       "other_items",
		Columns:    []*models.Column{column("id", models.Integer, false)},
		PrimaryKey: primaryKey("id"),
	}
	textColumn := column("text", models.String, true)
	textColumn.Type.Length = 20
	textColumn.Comment = "text column"
	fk := foreignKey("simple_items", []string{"other_id"}, "other_items", "id")
	fk.OnDelete = "CASCADE"
	simple := &models.Table{
		Name:    "simple_items",
		Comment: "simple items",
		Columns: []*models.Column{
			column("id", models.Integer, false),
			column("other_id", models.Integer, true),
			column("number", models.Integer, false),
			textColumn,
		},
		PrimaryKey:  primaryKey("id"),
		ForeignKeys: []*models.ForeignKey{fk},
		Indexes: []*models.Index{
			{Columns: []string{"text"}, Unique: true},
			{Name: "uq_number_text", Columns: []string{"number", "text"}, Unique: true},
			{Name: "ix_number", Columns: []string{"number"}},
		},
		Checks: []*models.CheckConstraint{{Name: "number_positive", Expression: "number > 0"}},
	}
	return []*models.Table{other, simple}
}

func TestGenerateTablesConstraints(t *testing.T) {
	require.Equal(t, `from sqlalchemy import CheckConstraint, Column, ForeignKey, Index, Integer, MetaData, String, Table, UniqueConstraint

metadata = MetaData()


t_other_items = Table(
    'other_items', metadata,
    Column('id', Integer, primary_key=True)
)


t_simple_items = Table(
    'simple_items', metadata,
    Column('id', Integer, primary_key=True),
    Column('other_id', ForeignKey('other_items.id', ondelete='CASCADE')),
    Column('number', Integer, nullable=False),
    Column('text', String(20), unique=True, comment='text column'),
    CheckConstraint('number > 0', name='number_positive'),
    UniqueConstraint('number', 'text', name='uq_number_text'),
    Index('ix_number', 'number'),
    comment='simple items'
)
`, generate(t, Tables, Options{}, constrainedTables()...))
}

func TestGenerateTablesWithoutConstraintsIndexesComments(t *testing.T) {
	code := generate(t, Tables, Options{NoConstraints: true, NoIndexes: true, NoComments: true}, constrainedTables()...)
	require.Contains(t, code, `t_simple_items = Table(
    'simple_items', metadata,
    Column('id', Integer, primary_key=True),
    Column('other_id', Integer),
    Column('number', Integer, nullable=False),
    Column('text', String(20))
)
`)
	require.NotContains(t, code, "Constraint")
	require.NotContains(t, code, "Index")
}

func TestGenerateTablesCompositeKeys(t *testing.T) {
	id := column("id", models.Integer, false)
	id.AutoIncrement = true
	version := column("version", models.Integer, false)
	fk := foreignKey("revisions", []string{"doc_id", "doc_version"}, "documents", "id", "version")
	fk.Name = "fk_revision_document"

	documents := &models.Table{
		Name:       "documents",
		Schema:     "archive",
		Columns:    []*models.Column{id, version},
		PrimaryKey: &models.PrimaryKey{Name: "pk_documents", Columns: []string{"id", "version"}},
	}
	revisions := &models.Table{
		Name: "revisions",
		Columns: []*models.Column{
			column("doc_id", models.Integer, false),
			column("doc_version", models.Integer, false),
		},
		ForeignKeys: []*models.ForeignKey{fk},
	}
	fk.ReferencedSchema = "archive"

	code := generate(t, Tables, Options{}, documents, revisions)
	require.Contains(t, code, `t_documents = Table(
    'documents', metadata,
    Column('id', Integer, primary_key=True, autoincrement=True),
    Column('version', Integer, primary_key=True),
    PrimaryKeyConstraint('id', 'version', name='pk_documents'),
    schema='archive'
)`)
	require.Contains(t, code, `t_revisions = Table(
    'revisions', metadata,
    Column('doc_id', Integer, nullable=False),
    Column('doc_version', Integer, nullable=False),
    ForeignKeyConstraint(['doc_id', 'doc_version'], ['archive.documents.id', 'archive.documents.version'], name='fk_revision_document')
)`)
}

func TestGenerateColumnDefaults(t *testing.T) {
	created := column("created", models.DateTime, true)
	created.Type.Timezone = true
	created.Default = "CURRENT_TIMESTAMP"
	status := column("status", models.String, true)
	status.Default = "'new'"
	total := column("total", models.Integer, true)
	total.Computed = &models.Computed{Expression: "price * qty", Persisted: true}
	id := column("id", models.BigInteger, false)
	id.Identity = &models.Identity{Always: true}

	table := &models.Table{
		Name:       "orders",
		Columns:    []*models.Column{id, created, status, total},
		PrimaryKey: primaryKey("id"),
	}

	code := generate(t, Declarative, Options{}, table)
	require.Contains(t, code, "import datetime\nfrom typing import Optional\n\nfrom sqlalchemy import BigInteger, Computed, DateTime, Identity, Integer, String, text\n")
	require.Contains(t, code, "    id: Mapped[int] = mapped_column(BigInteger, Identity(always=True), primary_key=True)\n")
	require.Contains(t, code, "    created: Mapped[Optional[datetime.datetime]] = mapped_column(DateTime(True), server_default=text('CURRENT_TIMESTAMP'))\n")
	require.Contains(t, code, "    status: Mapped[Optional[str]] = mapped_column(String, server_default=text(\"'new'\"))\n")
	require.Contains(t, code, "    total: Mapped[Optional[int]] = mapped_column(Integer, Computed('price * qty', persisted=True))\n")
}
