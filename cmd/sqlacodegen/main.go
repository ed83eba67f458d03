package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Henkhogan/sqlacodegen/internal/analyzer"
	"github.com/Henkhogan/sqlacodegen/internal/connector"
	"github.com/Henkhogan/sqlacodegen/internal/generator"
	"github.com/Henkhogan/sqlacodegen/internal/utils"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var (
		generatorName string
		options       string
		schemas       string
		tables        string
		noViews       bool
		outfile       string
		engineArgs    []string
		envFile       string
		logLevel      string
	)

	rootCmd := &cobra.Command{
		Use:   "sqlacodegen [url]",
		Short: "Generates SQLAlchemy model code from an existing database",
		Long: `sqlacodegen

Reflects the schema of an existing database and writes Python source code
for SQLAlchemy tables, declarative classes, dataclasses or SQLModel models.`,
		Args:          cobra.MaximumNArgs(1),
		Version:       utils.Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := utils.SetupLogging(logLevel)
			utils.LoadEnvironmentVariables(envFile, logger)

			var urlArg string
			if len(args) > 0 {
				urlArg = args[0]
			}
			url, err := utils.ResolveURL(urlArg)
			if err != nil {
				return err
			}

			// Reject bad generator options before touching the database
			opts, err := generator.ParseOptions(utils.ParseList(options))
			if err != nil {
				return err
			}
			codeGenerator, err := generator.New(generatorName, opts, logger)
			if err != nil {
				return err
			}

			db, err := connector.NewDatabaseConnector(url, engineArgs, logger)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := db.Connect(ctx); err != nil {
				return err
			}
			defer db.Disconnect()

			schemaAnalyzer := analyzer.NewSchemaAnalyzer(db, analyzer.Options{
				Schemas: utils.ParseList(schemas),
				Tables:  utils.ParseList(tables),
				NoViews: noViews,
			}, logger)
			info, err := schemaAnalyzer.AnalyzeSchema(ctx)
			if err != nil {
				return fmt.Errorf("reflecting schema: %w", err)
			}
			utils.LogSchemaSummary(info, logger)

			code, err := codeGenerator.Generate(info)
			if err != nil {
				return err
			}
			return utils.WriteOutput(outfile, code, cmd.OutOrStdout())
		},
	}

	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	// Define flags
	rootCmd.Flags().StringVarP(&generatorName, "generator", "g", generator.DefaultStyle,
		"Code generator to use ("+strings.Join(generator.Names, ", ")+")")
	rootCmd.Flags().StringVar(&options, "options", "", "Comma separated generator options")
	rootCmd.Flags().StringVar(&schemas, "schemas", "", "Comma separated schemas to load")
	rootCmd.Flags().StringVar(&tables, "tables", "", "Comma separated tables to process")
	rootCmd.Flags().BoolVar(&noViews, "noviews", false, "Ignore views")
	rootCmd.Flags().StringVarP(&outfile, "outfile", "o", "", "File to write output to (default: stdout)")
	rootCmd.Flags().StringArrayVar(&engineArgs, "engine-arg", nil, "Engine argument as key=value, may be repeated")
	rootCmd.Flags().StringVarP(&envFile, "env-file", "e", ".env", "Path to .env file")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")

	return rootCmd
}
