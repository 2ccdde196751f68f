package backup

import (
	"database/sql"
	"fmt"
	"os"
	"sort"
)

// columnInfo is one row of PRAGMA table_info.
type columnInfo struct {
	Name         string
	Type         string
	NotNull      bool
	DefaultValue sql.NullString
	PrimaryKey   bool
}

// Inspect opens a backup file and reports which tables and columns it
// actually contains, keyed by table name. Internal sqlite_* tables are
// skipped.
func Inspect(path string) (map[string][]string, error) {
	db, err := openBackupFile(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	tables, err := listTables(db)
	if err != nil {
		return nil, NewBackupError(path, "", "inspect", err)
	}

	result := make(map[string][]string, len(tables))
	for _, table := range tables {
		columns, err := tableColumns(db, table)
		if err != nil {
			return nil, NewBackupError(path, table, "inspect", err)
		}

		names := make([]string, len(columns))
		for i, col := range columns {
			names[i] = col.Name
		}
		result[table] = names
	}

	return result, nil
}

// openBackupFile opens an existing backup database file.
func openBackupFile(path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, NewBackupError(path, "", "open", ErrBackupNotFound)
		}
		return nil, NewBackupError(path, "", "open", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, NewBackupError(path, "", "open", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewBackupError(path, "", "open", err)
	}

	return db, nil
}

// listTables returns the user tables of a database in name order.
func listTables(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tables: %w", err)
	}

	sort.Strings(tables)
	return tables, nil
}

// tableColumns returns the column metadata of a table via PRAGMA table_info.
func tableColumns(db *sql.DB, table string) ([]columnInfo, error) {
	rows, err := db.Query(fmt.Sprintf(`PRAGMA table_info(%q)`, table))
	if err != nil {
		return nil, fmt.Errorf("failed to read table_info for %s: %w", table, err)
	}
	defer rows.Close()

	var columns []columnInfo
	for rows.Next() {
		var (
			cid     int
			col     columnInfo
			notNull int
			pk      int
		)
		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &col.DefaultValue, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan table_info row: %w", err)
		}
		col.NotNull = notNull != 0
		col.PrimaryKey = pk != 0
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate table_info: %w", err)
	}

	return columns, nil
}
