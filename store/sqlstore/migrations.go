package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// TableConfig configures the table names used by the ledger.
type TableConfig struct {
	// GrantsTable is the name of the table storing vesting grants.
	GrantsTable string

	// SalesTable is the name of the table storing per-sale tokens sold.
	SalesTable string

	// BuyerLotsTable is the name of the table storing lots reserved per buyer.
	BuyerLotsTable string

	// PurchasesTable is the name of the table storing the purchase log.
	PurchasesTable string

	// UnpaidClaimsTable is the name of the table storing claims whose payout failed.
	UnpaidClaimsTable string
}

// DefaultTableConfig returns the default table configuration.
func DefaultTableConfig() TableConfig {
	return PrefixedTableConfig("tge")
}

// PrefixedTableConfig returns a table configuration whose names share prefix.
func PrefixedTableConfig(prefix string) TableConfig {
	return TableConfig{
		GrantsTable:       prefix + "_grants",
		SalesTable:        prefix + "_sales",
		BuyerLotsTable:    prefix + "_buyer_lots",
		PurchasesTable:    prefix + "_purchases",
		UnpaidClaimsTable: prefix + "_unpaid_claims",
	}
}

// Names returns the configured table names in creation order.
func (c TableConfig) Names() []string {
	return []string{c.GrantsTable, c.SalesTable, c.BuyerLotsTable, c.PurchasesTable, c.UnpaidClaimsTable}
}

// columnTypes holds the per-dialect column types used by the schema.
type columnTypes struct {
	id       string
	address  string
	amount   string
	integer  string
	boolean  string
	sequence string
}

func (d Dialect) columnTypes() columnTypes {
	switch d {
	case MySQL:
		return columnTypes{
			id:       "VARCHAR(128)",
			address:  "CHAR(42)",
			amount:   "VARCHAR(78)",
			integer:  "BIGINT",
			boolean:  "BOOLEAN",
			sequence: "BIGINT AUTO_INCREMENT PRIMARY KEY",
		}
	case SQLite:
		return columnTypes{
			id:       "TEXT",
			address:  "TEXT",
			amount:   "TEXT",
			integer:  "INTEGER",
			boolean:  "BOOLEAN",
			sequence: "INTEGER PRIMARY KEY AUTOINCREMENT",
		}
	default:
		return columnTypes{
			id:       "TEXT",
			address:  "TEXT",
			amount:   "TEXT",
			integer:  "BIGINT",
			boolean:  "BOOLEAN",
			sequence: "BIGSERIAL PRIMARY KEY",
		}
	}
}

// MigrationStatements returns the statements that create the ledger tables, one per element.
// Amounts are stored as base-10 strings because no portable column type holds 256-bit integers.
func MigrationStatements(d Dialect, config TableConfig) []string {
	ct := d.columnTypes()

	// MySQL has no CREATE INDEX IF NOT EXISTS, so the index lives in the table definition.
	index := "idx_" + config.PurchasesTable + "_sale"
	inlineIndex := ""
	if d == MySQL {
		inlineIndex = fmt.Sprintf(",\n    INDEX %s (sale_id, seq)", index)
	}

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    vesting_id %s NOT NULL,
    beneficiary %s NOT NULL,
    total_amount %s NOT NULL,
    claimed_amount %s NOT NULL,
    start_time %s NOT NULL,
    PRIMARY KEY (vesting_id, beneficiary)
)`, config.GrantsTable, ct.id, ct.address, ct.amount, ct.amount, ct.integer),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    sale_id %s NOT NULL PRIMARY KEY,
    tokens_sold %s NOT NULL,
    closed %s NOT NULL DEFAULT FALSE
)`, config.SalesTable, ct.id, ct.amount, ct.boolean),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    sale_id %s NOT NULL,
    buyer %s NOT NULL,
    lots %s NOT NULL,
    PRIMARY KEY (sale_id, buyer)
)`, config.BuyerLotsTable, ct.id, ct.address, ct.integer),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    seq %s,
    id %s NOT NULL UNIQUE,
    sale_id %s NOT NULL,
    buyer %s NOT NULL,
    payment_token %s NOT NULL,
    payment_amount %s NOT NULL,
    payment_collected %s NOT NULL,
    payment_refunded %s NOT NULL,
    lots %s NOT NULL,
    token_amount %s NOT NULL,
    vested %s NOT NULL,
    purchased_at %s NOT NULL%s
)`, config.PurchasesTable, ct.sequence, ct.id, ct.id, ct.address, ct.address,
			ct.amount, ct.amount, ct.amount, ct.integer, ct.amount, ct.boolean, ct.integer, inlineIndex),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    seq %s,
    id %s NOT NULL UNIQUE,
    vesting_id %s NOT NULL,
    beneficiary %s NOT NULL,
    amount %s NOT NULL,
    claimed_at %s NOT NULL,
    reason TEXT NOT NULL
)`, config.UnpaidClaimsTable, ct.sequence, ct.id, ct.id, ct.address, ct.amount, ct.integer),
	}

	if d != MySQL {
		stmts = append(stmts, fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (sale_id, seq)`, index, config.PurchasesTable))
	}

	return stmts
}

// MigrationUp returns the SQL to create the ledger tables as one script.
func MigrationUp(d Dialect, config TableConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "-- TGE ledger tables\n-- Database: %s\n\n", d)
	for _, stmt := range MigrationStatements(d, config) {
		b.WriteString(stmt)
		b.WriteString(";\n\n")
	}
	return b.String()
}

// MigrationDown returns the SQL to drop the ledger tables.
func MigrationDown(config TableConfig) string {
	return fmt.Sprintf(`DROP TABLE IF EXISTS %s;
DROP TABLE IF EXISTS %s;
DROP TABLE IF EXISTS %s;
DROP TABLE IF EXISTS %s;
DROP TABLE IF EXISTS %s;
`, config.UnpaidClaimsTable, config.PurchasesTable, config.BuyerLotsTable, config.SalesTable, config.GrantsTable)
}

// Migrate creates the ledger tables, executing one statement at a time so drivers
// without multi-statement support work unchanged.
func Migrate(ctx context.Context, db *sql.DB, d Dialect, config TableConfig) error {
	for _, stmt := range MigrationStatements(d, config) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply migration: %w", err)
		}
	}
	return nil
}
