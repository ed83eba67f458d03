package utils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Henkhogan/sqlacodegen/pkg/models"
)

// version is set at build time with -ldflags "-X .../internal/utils.version=..."
var version string

// ErrMissingURL is returned when no database URL was given
var ErrMissingURL = errors.New("a database URL is required")

// SetupLogging configures the logging system. Logs go to stderr because
// stdout may carry the generated code.
func SetupLogging(logLevel string) *logrus.Logger {
	logger := logrus.New()

	// Get log level from environment variable or parameter
	levelStr := logLevel
	if levelStr == "" {
		levelStr = os.Getenv("SQLACODEGEN_LOG_LEVEL")
		if levelStr == "" {
			levelStr = "warn"
		}
	}

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.WarnLevel
	}

	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetOutput(os.Stderr)

	logger.Debugf("Logging configured with level: %s", level)
	return logger
}

// LoadEnvironmentVariables loads environment variables from a .env file and
// reports whether DATABASE_URL is available afterwards
func LoadEnvironmentVariables(envFile string, logger *logrus.Logger) bool {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				logger.Warningf("Error loading %s file: %v", envFile, err)
			} else {
				logger.Infof("Loaded environment variables from %s", envFile)
			}
		} else {
			logger.Debugf("No %s file found, using existing environment variables", envFile)
		}
	}

	return os.Getenv("DATABASE_URL") != ""
}

// ResolveURL returns the URL given on the command line or DATABASE_URL
func ResolveURL(arg string) (string, error) {
	if url := strings.TrimSpace(arg); url != "" {
		return url, nil
	}
	if url := strings.TrimSpace(os.Getenv("DATABASE_URL")); url != "" {
		return url, nil
	}
	return "", fmt.Errorf("%w: pass it as an argument or set DATABASE_URL", ErrMissingURL)
}

// ParseList splits a comma separated flag value, dropping blank items
func ParseList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// WriteOutput writes the generated code to outfile, or to stdout when no
// file was given
func WriteOutput(outfile, content string, stdout io.Writer) error {
	if outfile == "" {
		_, err := io.WriteString(stdout, content)
		return err
	}
	if err := os.WriteFile(outfile, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outfile, err)
	}
	return nil
}

// Version returns the version stamped at build time, falling back to the
// module version recorded in the binary
func Version() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return strings.TrimPrefix(info.Main.Version, "v")
	}
	return "(devel)"
}

// LogSchemaSummary logs what was reflected from the database
func LogSchemaSummary(info *models.SchemaInfo, logger *logrus.Logger) {
	var tables, views, keyless, withForeignKeys int
	for _, table := range info.Tables {
		switch {
		case table.IsView:
			views++
		case table.PrimaryKey == nil || len(table.PrimaryKey.Columns) == 0:
			keyless++
			tables++
		default:
			tables++
		}
		if len(table.ForeignKeys) > 0 {
			withForeignKeys++
		}
	}

	logger.WithFields(logrus.Fields{
		"dialect":            info.Dialect,
		"tables":             tables,
		"views":              views,
		"keyless":            keyless,
		"with_foreign_keys":  withForeignKeys,
		"association_tables": len(info.AssociationTables),
		"circular_tables":    len(info.CircularTables),
	}).Info("Schema reflected")

	if len(info.AssociationTables) > 0 {
		logger.Debugf("Association tables: %s", strings.Join(sortedNames(info.AssociationTables), ", "))
	}
	if len(info.CircularTables) > 0 {
		logger.Debugf("Tables in circular dependencies: %s", strings.Join(sortedNames(info.CircularTables), ", "))
	}
	for i, table := range info.Tables {
		logger.Debugf("%3d. %s", i+1, table.Key())
	}
}

func sortedNames(set map[string]bool) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
