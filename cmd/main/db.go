package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/CTAG07/sitekit/pkg/ledger"
)

// openDB opens the ledger database and makes sure its schema exists.
// SQLite only allows one writer, so the pool is limited to one connection.
func openDB(driver, dataSource string) (*sql.DB, error) {
	if file, _, _ := strings.Cut(dataSource, "?"); file != "" && !strings.HasPrefix(file, "file:") && file != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open(driver, dataSource)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err = ledger.SetupSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to setup ledger schema: %w", err)
	}
	return db, nil
}
