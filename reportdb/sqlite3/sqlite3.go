// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sqlite3 provides the sqlite3 driver for
// reportdb.OpenSQL. It must be imported to use OpenSQL with the
// sqlite3 driver.
package sqlite3

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/arena-bench/tscstat/reportdb"
)

func init() {
	reportdb.RegisterOpenHook("sqlite3", func(db *sql.DB) error {
		// Each connection to ":memory:" is a separate database.
		db.SetMaxOpenConns(1)
		_, err := db.Exec("PRAGMA foreign_keys = ON")
		return err
	})
}
