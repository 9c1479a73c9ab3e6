// Package query implements the explicit Filter/FilterRelation query
// builder — no implicit lazy relation traversal, every query is built up
// front and run once.
package query

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/semitexa/semitexa/internal/errs"
	"github.com/semitexa/semitexa/internal/mysqladapter"
	"github.com/semitexa/semitexa/internal/orm/hydrate"
	"github.com/semitexa/semitexa/internal/resource"
	"github.com/semitexa/semitexa/internal/schema"
	"github.com/semitexa/semitexa/internal/schema/collector"
)

// condition is one WHERE fragment plus its bound arguments.
type condition struct {
	sql  string
	args []any
}

// Builder accumulates Filter/FilterRelation calls for one resource type,
// then materializes them into a single SELECT.
type Builder struct {
	zero       any
	tableName  string
	conditions []condition
	joins      []string
	err        error
}

// For starts a query against the table declared by the given resource
// zero value (e.g. query.For(resource.User{})).
func For(zero any) *Builder {
	meta, err := collector.MetadataFor(zero)
	if err != nil {
		return &Builder{err: err}
	}
	return &Builder{zero: zero, tableName: meta.TableName}
}

// Filter adds `property = value` (or IN / IS NULL as appropriate) on the
// builder's own table. property must be declared filterable:"true" or be
// the primary key.
func (b *Builder) Filter(property string, value any) *Builder {
	if b.err != nil {
		return b
	}
	meta, err := collector.MetadataFor(b.zero)
	if err != nil {
		b.err = err
		return b
	}
	col, ok := meta.FilterableProps[property]
	if !ok && property != meta.PkProperty {
		b.err = errs.New(errs.NotFilterable, fmt.Sprintf("%s.%s is not filterable", meta.TableName, property))
		return b
	}
	if !ok {
		col = meta.PkColumn
	}
	b.conditions = append(b.conditions, buildCondition(meta.TableName, col, value))
	return b
}

// FilterRelation adds a condition on a related table, joined in via the
// declared relation. There is no implicit relation traversal: every join
// used by a query must come from an explicit FilterRelation call.
func (b *Builder) FilterRelation(relationProp, column string, value any) *Builder {
	if b.err != nil {
		return b
	}
	meta, err := collector.MetadataFor(b.zero)
	if err != nil {
		b.err = err
		return b
	}
	rel, ok := meta.Relations[relationProp]
	if !ok {
		b.err = errs.New(errs.UnknownRel, fmt.Sprintf("relation %q is not declared on %s", relationProp, meta.TableName))
		return b
	}

	targetZero, ok := resource.Lookup(rel.TargetClass)
	if !ok {
		b.err = errs.New(errs.UnknownRel, fmt.Sprintf("relation target %q is not a registered resource", rel.TargetClass))
		return b
	}
	targetMeta, err := collector.MetadataFor(targetZero)
	if err != nil {
		b.err = err
		return b
	}

	switch rel.Kind {
	case schema.BelongsTo:
		b.joins = append(b.joins, fmt.Sprintf("JOIN %s ON %s.%s = %s.%s",
			quoteIdent(targetMeta.TableName), quoteIdent(targetMeta.TableName), quoteIdent(targetMeta.PkColumn),
			quoteIdent(meta.TableName), quoteIdent(rel.ForeignKey)))
	default:
		b.joins = append(b.joins, fmt.Sprintf("JOIN %s ON %s.%s = %s.%s",
			quoteIdent(targetMeta.TableName), quoteIdent(targetMeta.TableName), quoteIdent(rel.ForeignKey),
			quoteIdent(meta.TableName), quoteIdent(meta.PkColumn)))
	}
	b.conditions = append(b.conditions, buildCondition(targetMeta.TableName, column, value))
	return b
}

func buildCondition(table, column string, value any) condition {
	if value == nil {
		return condition{sql: fmt.Sprintf("%s.%s IS NULL", quoteIdent(table), quoteIdent(column))}
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		n := rv.Len()
		placeholders := make([]string, n)
		args := make([]any, n)
		for i := 0; i < n; i++ {
			placeholders[i] = "?"
			args[i] = rv.Index(i).Interface()
		}
		return condition{
			sql:  fmt.Sprintf("%s.%s IN (%s)", quoteIdent(table), quoteIdent(column), strings.Join(placeholders, ", ")),
			args: args,
		}
	}
	return condition{sql: fmt.Sprintf("%s.%s = ?", quoteIdent(table), quoteIdent(column)), args: []any{value}}
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (b *Builder) render(extra string) (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(quoteIdent(b.tableName))
	sb.WriteString(".* FROM ")
	sb.WriteString(quoteIdent(b.tableName))
	for _, j := range b.joins {
		sb.WriteString(" ")
		sb.WriteString(j)
	}

	var args []any
	if len(b.conditions) > 0 {
		sb.WriteString(" WHERE ")
		clauses := make([]string, len(b.conditions))
		for i, c := range b.conditions {
			clauses[i] = c.sql
			args = append(args, c.args...)
		}
		sb.WriteString(strings.Join(clauses, " AND "))
	}
	if extra != "" {
		sb.WriteString(" ")
		sb.WriteString(extra)
	}
	return sb.String(), args
}

// List runs the built query with LIMIT/OFFSET pagination (page is 1-based)
// and hydrates every row into a fresh instance of the builder's resource
// type, returned as []any.
func (b *Builder) List(ctx context.Context, adapter *mysqladapter.Adapter, page, perPage int) ([]any, error) {
	if b.err != nil {
		return nil, b.err
	}
	if page < 1 {
		return nil, errs.New(errs.BadQuery, fmt.Sprintf("page must be >= 1, got %d", page))
	}
	if perPage < 1 {
		return nil, errs.New(errs.BadQuery, fmt.Sprintf("perPage must be >= 1, got %d", perPage))
	}
	offset := (page - 1) * perPage
	sqlText, args := b.render(fmt.Sprintf("LIMIT %d OFFSET %d", perPage, offset))

	res, err := adapter.Query(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}

	zeroType := reflect.TypeOf(b.zero)
	out := make([]any, 0, len(res.Rows))
	for _, row := range res.Rows {
		dst := reflect.New(zeroType).Interface()
		if err := hydrate.Hydrate(dst, row); err != nil {
			return nil, err
		}
		out = append(out, dst)
	}
	return out, nil
}

// First runs the built query with LIMIT 1 and returns nil if no row
// matched.
func (b *Builder) First(ctx context.Context, adapter *mysqladapter.Adapter) (any, error) {
	rows, err := b.List(ctx, adapter, 1, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// DeleteWhere deletes every row matching the built conditions. An empty
// WHERE clause is refused outright — callers that truly want to clear a
// table must do so outside this builder.
func (b *Builder) DeleteWhere(ctx context.Context, adapter *mysqladapter.Adapter) (int64, error) {
	if b.err != nil {
		return 0, b.err
	}
	if len(b.conditions) == 0 {
		return 0, errs.New(errs.BadQuery, "DeleteWhere refuses an unconditional delete; add at least one Filter")
	}

	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(quoteIdent(b.tableName))
	sb.WriteString(" WHERE ")
	clauses := make([]string, len(b.conditions))
	var args []any
	for i, c := range b.conditions {
		clauses[i] = c.sql
		args = append(args, c.args...)
	}
	sb.WriteString(strings.Join(clauses, " AND "))

	return adapter.Execute(ctx, sb.String(), args...)
}
