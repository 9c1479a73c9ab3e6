// Package relation batch-loads BelongsTo/HasMany/OneToOne/ManyToMany
// relations declared on resource types. Every relation kind issues exactly
// one query regardless of how many owner rows are being hydrated, fanned
// out concurrently with errgroup.
package relation

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/semitexa/semitexa/internal/errs"
	"github.com/semitexa/semitexa/internal/mysqladapter"
	"github.com/semitexa/semitexa/internal/orm/hydrate"
	"github.com/semitexa/semitexa/internal/resource"
	"github.com/semitexa/semitexa/internal/schema"
	"github.com/semitexa/semitexa/internal/schema/collector"
)

// Load batch-hydrates the named relation properties on every element of
// owners (a []*T slice, T a registered resource type). Passing no props
// loads every relation declared on T. Each requested relation is loaded with
// one query, run concurrently across relations via errgroup.
func Load(ctx context.Context, adapter *mysqladapter.Adapter, owners any, props ...string) error {
	ownersVal := reflect.ValueOf(owners)
	if ownersVal.Kind() != reflect.Slice {
		return errs.New(errs.Validation, "relation.Load: owners must be a slice")
	}
	if ownersVal.Len() == 0 {
		return nil
	}

	elemType := ownersVal.Index(0).Type()
	if elemType.Kind() != reflect.Ptr {
		return errs.New(errs.Validation, "relation.Load: owners must be a slice of pointers")
	}
	zero := reflect.New(elemType.Elem()).Elem().Interface()
	meta, err := collector.MetadataFor(zero)
	if err != nil {
		return err
	}

	if len(props) == 0 {
		for p := range meta.Relations {
			props = append(props, p)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range props {
		rel, ok := meta.Relations[p]
		if !ok {
			return errs.New(errs.UnknownRel, fmt.Sprintf("relation %q is not declared on %s", p, elemType.Elem().Name()))
		}
		g.Go(func() error {
			return loadOne(gctx, adapter, meta, ownersVal, rel)
		})
	}
	return g.Wait()
}

func loadOne(ctx context.Context, adapter *mysqladapter.Adapter, ownerMeta *schema.ResourceMetadata, owners reflect.Value, rel schema.RelationMeta) error {
	targetZero, ok := resource.Lookup(rel.TargetClass)
	if !ok {
		return errs.New(errs.UnknownRel, fmt.Sprintf("relation target %q is not a registered resource", rel.TargetClass))
	}
	targetMeta, err := collector.MetadataFor(targetZero)
	if err != nil {
		return err
	}

	switch rel.Kind {
	case schema.BelongsTo:
		return loadBelongsTo(ctx, adapter, ownerMeta, targetMeta, owners, rel)
	case schema.HasMany:
		return loadHasMany(ctx, adapter, ownerMeta, targetMeta, owners, rel, true)
	case schema.OneToOne:
		return loadHasMany(ctx, adapter, ownerMeta, targetMeta, owners, rel, false)
	case schema.ManyToMany:
		return loadManyToMany(ctx, adapter, ownerMeta, targetMeta, owners, rel)
	default:
		return errs.New(errs.UnknownRel, fmt.Sprintf("unknown relation kind %q", rel.Kind))
	}
}

func loadBelongsTo(ctx context.Context, adapter *mysqladapter.Adapter, ownerMeta, targetMeta *schema.ResourceMetadata, owners reflect.Value, rel schema.RelationMeta) error {
	ownerFKProp, ok := ownerMeta.ColumnToProp[rel.ForeignKey]
	if !ok {
		return errs.New(errs.UnknownRel, fmt.Sprintf("foreign key column %q not found on owner", rel.ForeignKey))
	}

	keys, keyOf := collectKeys(owners, ownerFKProp)
	if len(keys) == 0 {
		return nil
	}

	rows, err := queryIn(ctx, adapter, targetMeta.TableName, targetMeta.PkColumn, keys)
	if err != nil {
		return err
	}

	byPK := map[string]any{}
	for _, row := range rows {
		dst := reflect.New(targetMeta.Type).Interface()
		if err := hydrate.Hydrate(dst, row); err != nil {
			return err
		}
		byPK[fmt.Sprint(row[targetMeta.PkColumn])] = dst
	}

	for i := 0; i < owners.Len(); i++ {
		owner := owners.Index(i).Elem()
		k := keyOf(i)
		dst, found := byPK[k]
		target := owner.FieldByName(rel.Property)
		if !found {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		target.Set(reflect.ValueOf(dst))
	}
	return nil
}

func loadHasMany(ctx context.Context, adapter *mysqladapter.Adapter, ownerMeta, targetMeta *schema.ResourceMetadata, owners reflect.Value, rel schema.RelationMeta, many bool) error {
	keys, _ := collectKeys(owners, ownerMeta.PkProperty)
	if len(keys) == 0 {
		return nil
	}

	rows, err := queryIn(ctx, adapter, targetMeta.TableName, rel.ForeignKey, keys)
	if err != nil {
		return err
	}

	grouped := map[string][]any{}
	for _, row := range rows {
		dst := reflect.New(targetMeta.Type).Interface()
		if err := hydrate.Hydrate(dst, row); err != nil {
			return err
		}
		k := fmt.Sprint(row[rel.ForeignKey])
		grouped[k] = append(grouped[k], dst)
	}

	for i := 0; i < owners.Len(); i++ {
		owner := owners.Index(i).Elem()
		pk := fmt.Sprint(owner.FieldByName(ownerMeta.PkProperty).Interface())
		matches := grouped[pk]
		field := owner.FieldByName(rel.Property)
		if many {
			slice := reflect.MakeSlice(field.Type(), 0, len(matches))
			for _, m := range matches {
				slice = reflect.Append(slice, reflect.ValueOf(m).Elem())
			}
			field.Set(slice)
		} else {
			if len(matches) == 0 {
				field.Set(reflect.Zero(field.Type()))
			} else {
				field.Set(reflect.ValueOf(matches[0]))
			}
		}
	}
	return nil
}

const pivotOwnerKeyAlias = "__owner_key"

func loadManyToMany(ctx context.Context, adapter *mysqladapter.Adapter, ownerMeta, targetMeta *schema.ResourceMetadata, owners reflect.Value, rel schema.RelationMeta) error {
	keys, _ := collectKeys(owners, ownerMeta.PkProperty)
	if len(keys) == 0 {
		return nil
	}

	placeholders := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		placeholders[i] = "?"
		args[i] = k
	}

	targetCols := make([]string, 0, len(targetMeta.Columns))
	for col := range targetMeta.Columns {
		targetCols = append(targetCols, "t."+quoteIdent(col)+" AS "+quoteIdent(col))
	}

	q := fmt.Sprintf(
		"SELECT p.%s AS %s, %s FROM %s p JOIN %s t ON p.%s = t.%s WHERE p.%s IN (%s)",
		quoteIdent(rel.ForeignKey), pivotOwnerKeyAlias,
		strings.Join(targetCols, ", "),
		quoteIdent(rel.PivotTable),
		quoteIdent(targetMeta.TableName),
		quoteIdent(rel.RelatedKey), quoteIdent(targetMeta.PkColumn),
		quoteIdent(rel.ForeignKey), strings.Join(placeholders, ", "),
	)

	res, err := adapter.Query(ctx, q, args...)
	if err != nil {
		return err
	}

	grouped := map[string][]any{}
	for _, row := range res.Rows {
		ownerKey := fmt.Sprint(row[pivotOwnerKeyAlias])
		delete(row, pivotOwnerKeyAlias)
		dst := reflect.New(targetMeta.Type).Interface()
		if err := hydrate.Hydrate(dst, row); err != nil {
			return err
		}
		grouped[ownerKey] = append(grouped[ownerKey], dst)
	}

	for i := 0; i < owners.Len(); i++ {
		owner := owners.Index(i).Elem()
		pk := fmt.Sprint(owner.FieldByName(ownerMeta.PkProperty).Interface())
		matches := grouped[pk]
		field := owner.FieldByName(rel.Property)
		slice := reflect.MakeSlice(field.Type(), 0, len(matches))
		for _, m := range matches {
			slice = reflect.Append(slice, reflect.ValueOf(m).Elem())
		}
		field.Set(slice)
	}
	return nil
}

// collectKeys reads propName off every owner and returns the distinct,
// order-preserving key set plus a lookup from owner index back to its key.
func collectKeys(owners reflect.Value, propName string) ([]any, func(i int) string) {
	seen := map[string]bool{}
	var keys []any
	perIndex := make([]string, owners.Len())
	for i := 0; i < owners.Len(); i++ {
		owner := owners.Index(i).Elem()
		f := owner.FieldByName(propName)
		if f.Kind() == reflect.Ptr {
			if f.IsNil() {
				continue
			}
			f = f.Elem()
		}
		v := f.Interface()
		k := fmt.Sprint(v)
		perIndex[i] = k
		if !seen[k] {
			seen[k] = true
			keys = append(keys, v)
		}
	}
	return keys, func(i int) string { return perIndex[i] }
}

func queryIn(ctx context.Context, adapter *mysqladapter.Adapter, table, column string, keys []any) ([]map[string]any, error) {
	placeholders := make([]string, len(keys))
	for i := range keys {
		placeholders[i] = "?"
	}
	q := fmt.Sprintf("SELECT * FROM %s WHERE %s IN (%s)", quoteIdent(table), quoteIdent(column), strings.Join(placeholders, ", "))
	res, err := adapter.Query(ctx, q, keys...)
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
