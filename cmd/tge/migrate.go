package main

import (
	"context"
	"database/sql"
	"fmt"

	cli "gopkg.in/urfave/cli.v1"

	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/pkg/migrations"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/store/sqlstore"
)

var migrateCommand = cli.Command{
	Name:  "migrate",
	Usage: "Write ledger migration files, or apply them to the environment's database",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "dialect", Usage: "postgres, mysql, or sqlite3 (default: the environment's dialect)"},
		cli.StringFlag{Name: "output", Value: "migrations", Usage: "Output folder for migration files"},
		cli.StringFlag{Name: "filename", Usage: "Up migration filename (default: timestamp-based)"},
		cli.StringFlag{Name: "prefix", Usage: "Table prefix (default: the environment's prefix, or tge)"},
		cli.BoolFlag{Name: "apply", Usage: "Create the tables in the environment's database instead of writing files"},
	},
	Action: runMigrate,
}

func runMigrate(c *cli.Context) error {
	env, err := loadEnvironment(c)
	if err != nil {
		return err
	}
	logger, err := newLogger(c)
	if err != nil {
		return err
	}

	dialectName := c.String("dialect")
	if dialectName == "" {
		dialectName = env.Database.Dialect
	}
	if dialectName == "" {
		return fmt.Errorf("--dialect is required: environment %s has no database", env.Name)
	}
	dialect, err := sqlstore.ParseDialect(dialectName)
	if err != nil {
		return err
	}

	prefix := c.String("prefix")
	if prefix == "" {
		prefix = env.Database.TablePrefix
	}
	if prefix == "" {
		prefix = "tge"
	}

	ctx := context.Background()

	if c.Bool("apply") {
		if env.Database.DSN == "" {
			return fmt.Errorf("environment %s has no database dsn", env.Name)
		}
		db, err := sql.Open(dialect.DriverName(), env.Database.DSN)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		tables := sqlstore.PrefixedTableConfig(prefix)
		if err := sqlstore.Migrate(ctx, db, dialect, tables); err != nil {
			return err
		}
		logger.Info(ctx, "ledger tables created", "env", env.Name, "dialect", dialect, "tables", tables.Names())
		return nil
	}

	cfg := migrations.DefaultConfig()
	cfg.OutputFolder = c.String("output")
	cfg.TablePrefix = prefix
	if name := c.String("filename"); name != "" {
		cfg.OutputFilename = name
	}

	if err := migrations.Generate(dialect, &cfg); err != nil {
		return err
	}
	logger.Info(ctx, "migration written",
		"dialect", dialect,
		"folder", cfg.OutputFolder,
		"up", cfg.OutputFilename,
		"down", cfg.DownFilename)
	return nil
}
