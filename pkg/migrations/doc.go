// Package migrations writes SQL migration files for the grant and allocation ledger
// used by store/sqlstore, for PostgreSQL, MySQL/MariaDB, and SQLite.
//
// Services that apply migrations with their own tooling generate the files once and
// commit them; services that do not can call sqlstore.Migrate at startup instead.
package migrations
