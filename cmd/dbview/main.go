// Command dbview prints the contents of the SQLite database: table names,
// users and learning paths (without their steps).
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	_ "modernc.org/sqlite"
)

func main() {
	dbPath := flag.String("db", "data/app.db", "path to the SQLite database file")
	flag.Parse()

	if _, err := os.Stat(*dbPath); err != nil {
		fmt.Fprintf(os.Stderr, "dbview: %v\n", err)
		os.Exit(1)
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dbview: open: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := dump(context.Background(), db, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "dbview: %v\n", err)
		os.Exit(1)
	}
}

func dump(ctx context.Context, db *sql.DB, out io.Writer) error {
	fmt.Fprintln(out, "=== Database Tables ===")
	tables, err := queryStrings(ctx, db, `SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`)
	if err != nil {
		return fmt.Errorf("tables: %w", err)
	}
	fmt.Fprintf(out, "Tables: %v\n", tables)

	fmt.Fprintln(out, "\n=== Users Table ===")
	if err := printRows(ctx, db, out, `SELECT id, username FROM users ORDER BY id`); err != nil {
		return fmt.Errorf("users: %w", err)
	}

	fmt.Fprintln(out, "\n=== Learning Paths Table ===")
	if err := printRows(ctx, db, out,
		`SELECT id, userId, title, description, createdAt FROM learning_paths ORDER BY id`); err != nil {
		return fmt.Errorf("learning paths: %w", err)
	}
	return nil
}

func queryStrings(ctx context.Context, db *sql.DB, query string) ([]string, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// printRows writes the result of query as a tab-aligned table.
func printRows(ctx context.Context, db *sql.DB, out io.Writer, query string) error {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for i, c := range cols {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, c)
	}
	fmt.Fprintln(tw)

	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	n := 0
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		for i, v := range vals {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			fmt.Fprint(tw, v)
		}
		fmt.Fprintln(tw)
		n++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "(%d rows)\n", n)
	return nil
}
