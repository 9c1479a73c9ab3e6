// Package upsert implements the Smart Upsert operation: a single atomic
// INSERT ... ON DUPLICATE KEY UPDATE per batch, with inserted/updated/
// unchanged counts recovered from MySQL's documented "+1/+2/+0"
// affected-rows convention for that statement.
package upsert

import (
	"context"
	"fmt"
	"strings"

	"github.com/semitexa/semitexa/internal/errs"
	"github.com/semitexa/semitexa/internal/mysqladapter"
	"github.com/semitexa/semitexa/internal/orm/hydrate"
	"github.com/semitexa/semitexa/internal/resource"
	"github.com/semitexa/semitexa/internal/schema/collector"
)

// Result reports how a batch split across insert/update/no-op, recovered
// from the single affected-rows count MySQL returns for the whole
// statement.
type Result struct {
	Inserted  int
	Updated   int
	Unchanged int
}

// Upsert writes every row in items (each a pointer to the same registered
// resource type) in one INSERT ... ON DUPLICATE KEY UPDATE statement.
func Upsert(ctx context.Context, adapter *mysqladapter.Adapter, items []any) (*Result, error) {
	if len(items) == 0 {
		return &Result{}, nil
	}

	meta, err := collector.MetadataFor(items[0])
	if err != nil {
		return nil, err
	}

	cols := meta.Columns
	colNames := make([]string, 0, len(cols))
	for name := range cols {
		colNames = append(colNames, name)
	}

	rows := make([]map[string]any, 0, len(items))
	for _, item := range items {
		row, err := hydrate.Dehydrate(item)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	var placeholderGroups []string
	var args []any
	for _, row := range rows {
		ph := make([]string, len(colNames))
		for i, c := range colNames {
			ph[i] = "?"
			args = append(args, row[c])
		}
		placeholderGroups = append(placeholderGroups, "("+strings.Join(ph, ", ")+")")
	}

	updateClauses := make([]string, 0, len(colNames))
	for _, c := range colNames {
		if c == meta.PkColumn {
			continue
		}
		updateClauses = append(updateClauses, fmt.Sprintf("%s = VALUES(%s)", quoteIdent(c), quoteIdent(c)))
	}
	if len(updateClauses) == 0 {
		return nil, errs.New(errs.Validation, "upsert: no non-key columns to update")
	}

	quotedCols := make([]string, len(colNames))
	for i, c := range colNames {
		quotedCols[i] = quoteIdent(c)
	}

	q := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES %s ON DUPLICATE KEY UPDATE %s",
		quoteIdent(meta.TableName),
		strings.Join(quotedCols, ", "),
		strings.Join(placeholderGroups, ", "),
		strings.Join(updateClauses, ", "),
	)

	affected, err := adapter.Execute(ctx, q, args...)
	if err != nil {
		return nil, err
	}

	return splitAffected(affected, int64(len(items))), nil
}

// splitAffected recovers inserted/updated/unchanged from MySQL's
// documented per-row contribution: +1 inserted, +2 updated (value
// actually changed), +0 matched but unchanged.
func splitAffected(affected, n int64) *Result {
	updated := affected - n
	if updated < 0 {
		updated = 0
	}
	inserted := affected - 2*updated
	if inserted < 0 {
		inserted = 0
	}
	unchanged := n - inserted - updated
	if unchanged < 0 {
		unchanged = 0
	}
	return &Result{Inserted: int(inserted), Updated: int(updated), Unchanged: int(unchanged)}
}

// Seed upserts the Defaults() rows of every registered resource type that
// implements resource.Defaulter. This backs the `seed` CLI command.
func Seed(ctx context.Context, adapter *mysqladapter.Adapter, types []any) (map[string]*Result, error) {
	out := map[string]*Result{}
	for _, zero := range types {
		defaulter, ok := zero.(resource.Defaulter)
		if !ok {
			continue
		}
		meta, err := collector.MetadataFor(zero)
		if err != nil {
			return nil, err
		}
		items := defaulter.Defaults()
		if len(items) == 0 {
			continue
		}
		res, err := Upsert(ctx, adapter, items)
		if err != nil {
			return nil, err
		}
		out[meta.TableName] = res
	}
	return out, nil
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
