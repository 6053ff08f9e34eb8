// Copyright 2016 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package reportdb stores analysis reports in a SQL database.
package reportdb

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strings"
	"text/template"

	"github.com/arena-bench/tscstat/pipeline"
	"github.com/arena-bench/tscstat/tscmath"
)

// DB is a database of reports. It's safe for concurrent use by
// multiple goroutines.
type DB struct {
	sql *sql.DB // underlying database connection
	// prepared statements
	insertReport *sql.Stmt
	insertBucket *sql.Stmt
}

// OpenSQL creates a DB backed by a SQL database. The parameters are
// the same as the parameters for sql.Open. Only mysql and sqlite3 are
// explicitly supported; other database engines will receive MySQL
// query syntax which may or may not be compatible.
func OpenSQL(driverName, dataSourceName string) (*DB, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if hook := openHooks[driverName]; hook != nil {
		if err := hook(db); err != nil {
			db.Close()
			return nil, err
		}
	}
	d := &DB{sql: db}
	if err := d.createTables(driverName); err != nil {
		db.Close()
		return nil, err
	}
	if err := d.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

var openHooks = make(map[string]func(*sql.DB) error)

// RegisterOpenHook registers a hook to be called after opening a
// connection to driverName. It must be called from an init function.
func RegisterOpenHook(driverName string, hook func(*sql.DB) error) {
	openHooks[driverName] = hook
}

// createTmpl is evaluated with . as a map containing one entry whose
// key is the driver name.
var createTmpl = template.Must(template.New("create").Parse(`
CREATE TABLE IF NOT EXISTS Reports (
	ReportID {{if .sqlite3}}INTEGER PRIMARY KEY AUTOINCREMENT{{else}}SERIAL PRIMARY KEY AUTO_INCREMENT{{end}},
	Test VARCHAR(255) NOT NULL,
	Allocator VARCHAR(255) NOT NULL,
	Size BIGINT NOT NULL,
	Runs BIGINT NOT NULL,
	Samples BIGINT NOT NULL,
	UniqueValues BIGINT NOT NULL,
	Mean DOUBLE NOT NULL,
	Median DOUBLE NOT NULL,
	StdDev DOUBLE NOT NULL,
	MinNs DOUBLE NOT NULL,
	MaxNs DOUBLE NOT NULL,
	P95 DOUBLE NOT NULL,
	P99 DOUBLE NOT NULL,
	IterationMean DOUBLE NOT NULL,
	CyclesPerSecond DOUBLE NOT NULL,
	OutlierPercentile DOUBLE,
	Cutoff DOUBLE,
	Excluded BIGINT,
	FilteredMean DOUBLE
{{- if not .sqlite3}},
	Index (Test(100), Allocator(100), Size)
{{- end}}
);
CREATE TABLE IF NOT EXISTS Buckets (
	ReportID BIGINT UNSIGNED,
	Position BIGINT UNSIGNED,
	Value DOUBLE NOT NULL,
	Occurrences BIGINT NOT NULL,
	PRIMARY KEY (ReportID, Position),
	FOREIGN KEY (ReportID) REFERENCES Reports(ReportID) ON UPDATE CASCADE ON DELETE CASCADE
);
{{if .sqlite3}}
CREATE INDEX IF NOT EXISTS ReportsKey ON Reports(Test, Allocator, Size);
{{end}}
`))

// createTables creates any missing tables. driverName selects the
// syntax.
func (db *DB) createTables(driverName string) error {
	var buf bytes.Buffer
	if err := createTmpl.Execute(&buf, map[string]bool{driverName: true}); err != nil {
		return err
	}
	for _, q := range strings.Split(buf.String(), ";") {
		if strings.TrimSpace(q) == "" {
			continue
		}
		if _, err := db.sql.Exec(q); err != nil {
			return fmt.Errorf("create table: %v", err)
		}
	}
	return nil
}

const reportColumns = `Test, Allocator, Size, Runs, Samples, UniqueValues,
	Mean, Median, StdDev, MinNs, MaxNs, P95, P99, IterationMean, CyclesPerSecond,
	OutlierPercentile, Cutoff, Excluded, FilteredMean`

func (db *DB) prepareStatements() error {
	var err error
	db.insertReport, err = db.sql.Prepare("INSERT INTO Reports(" + reportColumns + ") VALUES (" +
		strings.TrimSuffix(strings.Repeat("?, ", strings.Count(reportColumns, ",")+1), ", ") + ")")
	if err != nil {
		return err
	}
	db.insertBucket, err = db.sql.Prepare("INSERT INTO Buckets(ReportID, Position, Value, Occurrences) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	return nil
}

// InsertReport stores r under key along with its buckets in a single
// transaction and returns the new report's ID.
func (db *DB) InsertReport(ctx context.Context, key pipeline.Key, r *tscmath.Report) (id int64, err error) {
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	var pct, cutoff, filteredMean sql.NullFloat64
	var excluded sql.NullInt64
	if o := r.Outliers; o != nil {
		pct = sql.NullFloat64{Float64: o.Percentile, Valid: true}
		cutoff = sql.NullFloat64{Float64: o.Cutoff, Valid: true}
		excluded = sql.NullInt64{Int64: int64(o.Excluded), Valid: true}
		if r.Filtered != nil {
			filteredMean = sql.NullFloat64{Float64: r.Filtered.Mean, Valid: true}
		}
	}
	s := r.Summary
	res, err := tx.StmtContext(ctx, db.insertReport).ExecContext(ctx,
		key.Test, key.Allocator, key.Size, r.Runs, s.N, r.Unique,
		s.Mean, s.Median, s.StdDev, s.Min, s.Max, s.P95, s.P99, r.IterationMean, r.CyclesPerSecond,
		pct, cutoff, excluded, filteredMean)
	if err != nil {
		return 0, err
	}
	if id, err = res.LastInsertId(); err != nil {
		return 0, err
	}
	stmt := tx.StmtContext(ctx, db.insertBucket)
	for i, b := range r.Buckets {
		if _, err = stmt.ExecContext(ctx, id, i, b.Value, b.Count); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// A Row is a stored report.
type Row struct {
	ID              int64
	Key             pipeline.Key
	Runs            int
	Summary         tscmath.Summary
	Unique          int
	IterationMean   float64
	CyclesPerSecond float64
	// Outliers is nil if the report was not filtered. FilteredMean
	// is meaningful only when Outliers is set.
	Outliers     *tscmath.Outliers
	FilteredMean float64
	Buckets      []tscmath.Bucket
}

// ListReports returns the stored reports of test in insertion order,
// or of every test if test is empty.
func (db *DB) ListReports(ctx context.Context, test string) ([]*Row, error) {
	where, args := "", []interface{}(nil)
	if test != "" {
		where, args = " WHERE Test = ?", []interface{}{test}
	}
	rows, err := db.sql.QueryContext(ctx, "SELECT ReportID, "+reportColumns+" FROM Reports"+where+" ORDER BY ReportID", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Row
	byID := make(map[int64]*Row)
	for rows.Next() {
		row := new(Row)
		var pct, cutoff, filteredMean sql.NullFloat64
		var excluded sql.NullInt64
		s := &row.Summary
		if err := rows.Scan(&row.ID, &row.Key.Test, &row.Key.Allocator, &row.Key.Size, &row.Runs, &s.N, &row.Unique,
			&s.Mean, &s.Median, &s.StdDev, &s.Min, &s.Max, &s.P95, &s.P99, &row.IterationMean, &row.CyclesPerSecond,
			&pct, &cutoff, &excluded, &filteredMean); err != nil {
			return nil, err
		}
		if pct.Valid {
			row.Outliers = &tscmath.Outliers{Percentile: pct.Float64, Cutoff: cutoff.Float64, Excluded: int(excluded.Int64)}
			row.FilteredMean = filteredMean.Float64
		}
		out = append(out, row)
		byID[row.ID] = row
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}

	brows, err := db.sql.QueryContext(ctx, "SELECT b.ReportID, b.Value, b.Occurrences FROM Buckets b JOIN Reports r ON b.ReportID = r.ReportID"+
		strings.Replace(where, "Test", "r.Test", 1)+" ORDER BY b.ReportID, b.Position", args...)
	if err != nil {
		return nil, err
	}
	defer brows.Close()
	for brows.Next() {
		var id int64
		var b tscmath.Bucket
		if err := brows.Scan(&id, &b.Value, &b.Count); err != nil {
			return nil, err
		}
		if row := byID[id]; row != nil {
			row.Buckets = append(row.Buckets, b)
		}
	}
	return out, brows.Err()
}

// CountReports returns the number of stored reports.
func (db *DB) CountReports(ctx context.Context) (int, error) {
	var n int
	err := db.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM Reports").Scan(&n)
	return n, err
}

// Close closes the database connections, releasing any open resources.
func (db *DB) Close() error {
	if err := db.insertReport.Close(); err != nil {
		return err
	}
	if err := db.insertBucket.Close(); err != nil {
		return err
	}
	return db.sql.Close()
}
