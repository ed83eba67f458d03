package generator

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Henkhogan/sqlacodegen/pkg/models"
)

// Generator styles
const (
	Tables       = "tables"
	Declarative  = "declarative"
	Dataclasses  = "dataclasses"
	SQLModels    = "sqlmodels"
	DefaultStyle = Declarative
)

// Names lists the available generators
var Names = []string{Dataclasses, Declarative, SQLModels, Tables}

var (
	ErrUnknownGenerator = errors.New("unknown generator")
	ErrUnknownOption    = errors.New("unrecognized options")
)

const indentation = "    "

// Options are the generator switches given with --options
type Options struct {
	NoIndexes     bool
	NoConstraints bool
	NoComments    bool
	UseInflect    bool
	NoJoined      bool
	NoBidi        bool
}

func (o *Options) flags() map[string]*bool {
	return map[string]*bool{
		"noindexes":     &o.NoIndexes,
		"noconstraints": &o.NoConstraints,
		"nocomments":    &o.NoComments,
		"use_inflect":   &o.UseInflect,
		"nojoined":      &o.NoJoined,
		"nobidi":        &o.NoBidi,
	}
}

// ParseOptions parses option names. Blank entries are ignored.
func ParseOptions(names []string) (Options, error) {
	var opts Options
	flags := opts.flags()
	var unknown []string
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		flag, ok := flags[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		*flag = true
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Options{}, fmt.Errorf("%w: %s", ErrUnknownOption, strings.Join(unknown, ", "))
	}
	return opts, nil
}

// Generator renders a reflected schema as Python source
type Generator interface {
	Generate(info *models.SchemaInfo) (string, error)
}

// CodeGenerator renders SQLAlchemy or SQLModel source in one style
type CodeGenerator struct {
	Style   string
	Options Options
	Logger  *logrus.Logger
}

// New creates the generator with the given name
func New(name string, opts Options, logger *logrus.Logger) (Generator, error) {
	switch name {
	case Declarative, Dataclasses, SQLModels:
	case Tables:
		var invalid []string
		if opts.UseInflect {
			invalid = append(invalid, "use_inflect")
		}
		if opts.NoJoined {
			invalid = append(invalid, "nojoined")
		}
		if opts.NoBidi {
			invalid = append(invalid, "nobidi")
		}
		if len(invalid) > 0 {
			sort.Strings(invalid)
			return nil, fmt.Errorf("%w: %s", ErrUnknownOption, strings.Join(invalid, ", "))
		}
	default:
		return nil, fmt.Errorf("%w: %q (choose from %s)", ErrUnknownGenerator, name, strings.Join(Names, ", "))
	}

	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CodeGenerator{Style: name, Options: opts, Logger: logger}, nil
}

// Generate renders the whole module
func (g *CodeGenerator) Generate(info *models.SchemaInfo) (string, error) {
	if info == nil {
		return "", errors.New("no schema to generate code for")
	}

	r := &renderer{
		style:   g.Style,
		opts:    g.Options,
		logger:  g.Logger,
		imports: newImportCollector(),
	}
	r.tables, r.associations = prepareTables(info, g.Options)
	r.buildModels()
	r.collectImports()
	r.nameModels()

	sections := []string{r.imports.render()}
	if vars := r.renderModuleVariables(nil); vars != "" {
		sections = append(sections, vars+"\n")
	}
	var rendered []string
	for _, m := range r.models {
		rendered = append(rendered, r.renderModel(m, nil))
	}
	if len(rendered) > 0 {
		sections = append(sections, strings.Join(rendered, "\n\n\n"))
	}

	var nonEmpty []string
	for _, s := range sections {
		if s != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	g.Logger.Infof("Generated %d models in %s style", len(r.models), g.Style)
	return strings.TrimRight(strings.Join(nonEmpty, "\n\n"), "\n") + "\n", nil
}

// prepareTables copies the tables with the options applied. Association
// tables need their foreign keys, so noconstraints clears them too.
func prepareTables(info *models.SchemaInfo, opts Options) ([]*models.Table, map[string]bool) {
	associations := make(map[string]bool)
	if !opts.NoConstraints {
		for key, ok := range info.AssociationTables {
			associations[key] = ok
		}
	}

	tables := make([]*models.Table, 0, len(info.Tables))
	for _, t := range info.Tables {
		table := *t
		table.Columns = nil
		for _, c := range t.Columns {
			column := *c
			if opts.NoComments {
				column.Comment = ""
			}
			table.Columns = append(table.Columns, &column)
		}
		if opts.NoComments {
			table.Comment = ""
		}

		table.Indexes = nil
		for _, idx := range t.Indexes {
			if idx.Unique && opts.NoConstraints || !idx.Unique && opts.NoIndexes {
				continue
			}
			table.Indexes = append(table.Indexes, idx)
		}
		if opts.NoConstraints {
			table.ForeignKeys = nil
			table.Checks = nil
		}
		tables = append(tables, &table)
	}
	return tables, associations
}
