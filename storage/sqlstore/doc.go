// Package sqlstore implements the kidsAuth account, profile and challenge
// stores over database/sql, with SQLite (modernc.org/sqlite) and
// MySQL/MariaDB (go-sql-driver/mysql) dialects and embedded migrations.
//
// All updates are field-level: each method writes only the columns it names,
// so a status or profile change never rewrites a stored hash.
package sqlstore
