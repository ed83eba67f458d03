package main

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/Henkhogan/sqlacodegen/internal/connector"
	"github.com/Henkhogan/sqlacodegen/internal/generator"
	"github.com/Henkhogan/sqlacodegen/internal/utils"
)

const tablesOutput = `from sqlalchemy import Column, Integer, MetaData, Table, Text

metadata = MetaData()


t_foo = Table(
    'foo', metadata,
    Column('id', Integer, primary_key=True),
    Column('name', Text, nullable=False)
)
`

func createDatabase(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("CREATE TABLE foo (id INTEGER PRIMARY KEY NOT NULL, name TEXT NOT NULL)")
	require.NoError(t, err)
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(append(args, "--log-level", "fatal", "--env-file", ""))
	err := cmd.Execute()
	return stdout.String(), err
}

func generateFile(t *testing.T, args ...string) string {
	t.Helper()
	outfile := filepath.Join(t.TempDir(), "outfile")
	_, err := run(t, append(args, "--outfile", outfile)...)
	require.NoError(t, err)

	content, err := os.ReadFile(outfile)
	require.NoError(t, err)
	return string(content)
}

func TestCLITables(t *testing.T) {
	path := createDatabase(t)
	require.Equal(t, tablesOutput, generateFile(t, "sqlite:///"+path, "--generator", "tables"))
}

func TestCLIDeclarative(t *testing.T) {
	path := createDatabase(t)
	require.Equal(t, `from sqlalchemy import Integer, Text
from sqlalchemy.orm import DeclarativeBase, Mapped, mapped_column

class Base(DeclarativeBase):
    pass


class Foo(Base):
    __tablename__ = 'foo'

    id: Mapped[int] = mapped_column(Integer, primary_key=True)
    name: Mapped[str] = mapped_column(Text)
`, generateFile(t, "sqlite:///"+path, "--generator", "declarative"))
}

func TestCLIDataclasses(t *testing.T) {
	path := createDatabase(t)
	require.Equal(t, `from sqlalchemy import Integer, Text
from sqlalchemy.orm import DeclarativeBase, Mapped, MappedAsDataclass, mapped_column

class Base(MappedAsDataclass, DeclarativeBase):
    pass


class Foo(Base):
    __tablename__ = 'foo'

    id: Mapped[int] = mapped_column(Integer, primary_key=True)
    name: Mapped[str] = mapped_column(Text)
`, generateFile(t, "sqlite:///"+path, "--generator", "dataclasses"))
}

func TestCLISQLModels(t *testing.T) {
	path := createDatabase(t)
	require.Equal(t, `from sqlalchemy import Column, Integer, Text
from sqlmodel import Field, SQLModel

class Foo(SQLModel, table=True):
    id: int = Field(sa_column=Column('id', Integer, primary_key=True))
    name: str = Field(sa_column=Column('name', Text))
`, generateFile(t, "sqlite:///"+path, "--generator", "sqlmodels"))
}

func TestCLIInlineForeignKeys(t *testing.T) {
	path := createDatabase(t)
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE child (
		id INTEGER PRIMARY KEY NOT NULL,
		foo_id INTEGER NOT NULL REFERENCES foo (id) ON DELETE CASCADE,
		a INTEGER,
		b INTEGER,
		UNIQUE (a, b)
	)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	out, err := run(t, "sqlite:///"+path, "-g", "tables")
	require.NoError(t, err)
	require.Contains(t, out, "    Column('foo_id', ForeignKey('foo.id', ondelete='CASCADE'), nullable=False),\n")
	require.Contains(t, out, "    UniqueConstraint('a', 'b')\n")
	require.NotContains(t, out, "ForeignKeyConstraint")
	require.NotContains(t, out, "sqlite_autoindex")

	out, err = run(t, "sqlite:///"+path, "-g", "declarative")
	require.NoError(t, err)
	require.Contains(t, out, "    foo_id: Mapped[int] = mapped_column(ForeignKey('foo.id', ondelete='CASCADE'))\n")
}

func TestCLIStdout(t *testing.T) {
	path := createDatabase(t)
	out, err := run(t, "sqlite:///"+path, "-g", "tables")
	require.NoError(t, err)
	require.Equal(t, tablesOutput, out)
}

func TestCLIURLFromEnvironment(t *testing.T) {
	path := createDatabase(t)
	t.Setenv("DATABASE_URL", "sqlite:///"+path)
	out, err := run(t, "--generator", "tables")
	require.NoError(t, err)
	require.Equal(t, tablesOutput, out)

	t.Setenv("DATABASE_URL", "")
	_, err = run(t)
	require.ErrorIs(t, err, utils.ErrMissingURL)
}

func TestCLIEngineArg(t *testing.T) {
	path := createDatabase(t)
	require.Equal(t, tablesOutput, generateFile(t, "sqlite:///"+path, "--generator", "tables",
		"--engine-arg", `connect_args={"timeout": 10}`))
}

func TestCLIInvalidEngineArg(t *testing.T) {
	path := createDatabase(t)
	outfile := filepath.Join(t.TempDir(), "outfile")
	_, err := run(t, "sqlite:///"+path, "--generator", "tables",
		"--engine-arg", `connect_args={"this_arg_does_not_exist": 10}`, "--outfile", outfile)
	require.ErrorIs(t, err, connector.ErrInvalidEngineArg)
	require.Contains(t, err.Error(), "'this_arg_does_not_exist' is an invalid keyword argument")
	require.NoFileExists(t, outfile)
}

func TestCLIInvalidGenerator(t *testing.T) {
	path := createDatabase(t)
	_, err := run(t, "sqlite:///"+path, "--generator", "nosuchthing")
	require.ErrorIs(t, err, generator.ErrUnknownGenerator)

	_, err = run(t, "sqlite:///"+path, "--options", "noindexes,bogus")
	require.ErrorIs(t, err, generator.ErrUnknownOption)
}

func TestCLIVersion(t *testing.T) {
	out, err := run(t, "--version")
	require.NoError(t, err)
	require.Equal(t, utils.Version()+"\n", out)
}
