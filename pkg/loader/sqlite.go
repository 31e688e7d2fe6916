package loader

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/catview/pkg/model"
)

// Expected schema:
//
//	CREATE TABLE catalogs (name TEXT, parent_name TEXT, kind TEXT, display_name TEXT, properties TEXT);
//	CREATE TABLE columns (id TEXT, label TEXT);
//
// Only catalogs.name is required. properties holds a JSON object. Rows are
// read in rowid order so the database preserves insertion order like the
// file formats do.
func loadSQLite(path string) (*Catalog, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	defer db.Close()

	records, err := readCatalogRows(db, path)
	if err != nil {
		return nil, err
	}

	columns, err := readColumnRows(db, path)
	if err != nil {
		return nil, err
	}

	return &Catalog{Records: records, Columns: columns}, nil
}

func tableColumns(db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     sql.NullString
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dfltValue, &pk); err != nil {
			return nil, err
		}
		cols[strings.ToLower(name)] = true
	}
	return cols, rows.Err()
}

func readCatalogRows(db *sql.DB, path string) ([]model.CatalogRecord, error) {
	have, err := tableColumns(db, "catalogs")
	if err != nil {
		return nil, fmt.Errorf("%s: failed to inspect catalogs table: %w", path, err)
	}
	if !have["name"] {
		return nil, fmt.Errorf("%s: catalogs table missing or has no name column", path)
	}

	// Absent optional columns are selected as NULL.
	optional := func(col string) string {
		if have[col] {
			return col
		}
		return "NULL"
	}
	query := fmt.Sprintf(
		"SELECT name, %s, %s, %s, %s FROM catalogs ORDER BY rowid",
		optional("parent_name"), optional("kind"), optional("display_name"), optional("properties"),
	)

	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to query catalogs: %w", path, err)
	}
	defer rows.Close()

	var records []model.CatalogRecord
	rowNum := 0
	for rows.Next() {
		rowNum++
		var name, parent, kind, display, props sql.NullString
		if err := rows.Scan(&name, &parent, &kind, &display, &props); err != nil {
			return nil, fmt.Errorf("%s: catalogs row %d: %w", path, rowNum, err)
		}

		raw := rawRecord{
			Name:        name.String,
			ParentName:  parent.String,
			Kind:        kind.String,
			DisplayName: display.String,
		}
		if props.Valid && strings.TrimSpace(props.String) != "" {
			if err := json.Unmarshal([]byte(props.String), &raw.Properties); err != nil {
				return nil, fmt.Errorf("%s: catalogs row %d: invalid properties JSON: %w", path, rowNum, err)
			}
		}

		rec := raw.toModel()
		if rec.Name == "" {
			return nil, fmt.Errorf("%s: catalogs row %d has no name", path, rowNum)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: failed to read catalogs: %w", path, err)
	}
	return records, nil
}

func readColumnRows(db *sql.DB, path string) ([]model.Column, error) {
	have, err := tableColumns(db, "columns")
	if err != nil {
		return nil, fmt.Errorf("%s: failed to inspect columns table: %w", path, err)
	}
	if !have["id"] {
		// The columns table is optional.
		return nil, nil
	}

	label := "NULL"
	if have["label"] {
		label = "label"
	}
	rows, err := db.Query(fmt.Sprintf("SELECT id, %s FROM columns ORDER BY rowid", label))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to query columns: %w", path, err)
	}
	defer rows.Close()

	var columns []model.Column
	for rows.Next() {
		var id, lbl sql.NullString
		if err := rows.Scan(&id, &lbl); err != nil {
			return nil, fmt.Errorf("%s: failed to scan column: %w", path, err)
		}
		col := model.Column{ID: id.String, Label: lbl.String}
		if err := col.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}
