package migrations

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/store/sqlstore"
)

var identifierRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// validateIdentifier ensures an identifier contains only safe characters for SQL.
// Returns an error if the identifier contains characters that could be used for SQL injection.
func validateIdentifier(name, fieldName string) error {
	if name == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	if !identifierRegex.MatchString(name) {
		return fmt.Errorf("%s must start with a letter and contain only letters, numbers, and underscores (got: %s)", fieldName, name)
	}
	return nil
}

// validateConfig validates all configuration values to prevent SQL injection.
func validateConfig(config *Config) error {
	if err := validateIdentifier(config.TablePrefix, "TablePrefix"); err != nil {
		return err
	}
	if config.OutputFilename == "" {
		return fmt.Errorf("OutputFilename cannot be empty")
	}
	return nil
}

// Config configures migration generation for the allocation and grant ledger.
type Config struct {
	// OutputFolder is the directory where the migration files are written
	OutputFolder string

	// OutputFilename is the name of the up migration file
	OutputFilename string

	// DownFilename is the name of the down migration file.
	// No down migration is written when empty.
	DownFilename string

	// TablePrefix prefixes every ledger table, e.g. tge_grants and tge_sales
	TablePrefix string
}

// DefaultConfig returns the default configuration for ledger migrations.
func DefaultConfig() Config {
	timestamp := time.Now().Format("20060102150405")
	return Config{
		OutputFolder:   "migrations",
		OutputFilename: fmt.Sprintf("%s_init_tge_ledger.up.sql", timestamp),
		DownFilename:   fmt.Sprintf("%s_init_tge_ledger.down.sql", timestamp),
		TablePrefix:    "tge",
	}
}

// Generate writes the migration files for dialect.
func Generate(dialect sqlstore.Dialect, config *Config) error {
	if err := validateConfig(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := os.MkdirAll(config.OutputFolder, 0o755); err != nil {
		return fmt.Errorf("failed to create output folder: %w", err)
	}

	tables := sqlstore.PrefixedTableConfig(config.TablePrefix)

	up := header(dialect) + sqlstore.MigrationUp(dialect, tables)
	if err := write(config.OutputFolder, config.OutputFilename, up); err != nil {
		return err
	}

	if config.DownFilename != "" {
		down := header(dialect) + sqlstore.MigrationDown(tables)
		if err := write(config.OutputFolder, config.DownFilename, down); err != nil {
			return err
		}
	}

	return nil
}

// GeneratePostgres generates PostgreSQL migration files.
func GeneratePostgres(config *Config) error {
	return Generate(sqlstore.Postgres, config)
}

// GenerateMySQL generates MySQL/MariaDB migration files.
func GenerateMySQL(config *Config) error {
	return Generate(sqlstore.MySQL, config)
}

// GenerateSQLite generates SQLite migration files.
func GenerateSQLite(config *Config) error {
	return Generate(sqlstore.SQLite, config)
}

func header(dialect sqlstore.Dialect) string {
	return fmt.Sprintf("-- Generated: %s\n-- Dialect: %s\n\n", time.Now().Format(time.RFC3339), dialect)
}

func write(folder, name, content string) error {
	outputPath := filepath.Join(folder, name)
	if err := os.WriteFile(outputPath, []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write migration file: %w", err)
	}
	return nil
}
