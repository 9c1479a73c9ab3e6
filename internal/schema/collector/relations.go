package collector

import (
	"fmt"
	"reflect"

	"github.com/semitexa/semitexa/internal/resource"
	"github.com/semitexa/semitexa/internal/schema"
)

func buildRelationMeta(f reflect.StructField, relTag string) (schema.RelationMeta, schema.ForeignKeyAction, schema.ForeignKeyAction, error) {
	var kind schema.RelationKind
	switch relTag {
	case "belongsTo":
		kind = schema.BelongsTo
	case "hasMany":
		kind = schema.HasMany
	case "oneToOne":
		kind = schema.OneToOne
	case "manyToMany":
		kind = schema.ManyToMany
	default:
		return schema.RelationMeta{}, "", "", fmt.Errorf("unknown relation kind %q", relTag)
	}

	target, ok := f.Tag.Lookup("target")
	if !ok {
		return schema.RelationMeta{}, "", "", fmt.Errorf("relation %q missing target tag", f.Name)
	}
	fk := f.Tag.Get("fk")
	if fk == "" {
		return schema.RelationMeta{}, "", "", fmt.Errorf("relation %q missing fk tag", f.Name)
	}

	meta := schema.RelationMeta{
		Property:    f.Name,
		Kind:        kind,
		TargetClass: target,
		ForeignKey:  fk,
		PivotTable:  f.Tag.Get("pivot"),
		RelatedKey:  f.Tag.Get("relatedKey"),
	}
	if kind == schema.ManyToMany && (meta.PivotTable == "" || meta.RelatedKey == "") {
		return schema.RelationMeta{}, "", "", fmt.Errorf("manyToMany relation %q requires pivot and relatedKey tags", f.Name)
	}

	return meta, schema.ForeignKeyAction(f.Tag.Get("onDelete")), schema.ForeignKeyAction(f.Tag.Get("onUpdate")), nil
}

// resolveForeignKeys computes the owner side of each relation and emits a
// ForeignKeyDefinition on the owning table.
func resolveForeignKeys(res *Result, pending []pendingRelation) {
	for _, p := range pending {
		switch p.meta.Kind {
		case schema.BelongsTo:
			addFK(res, p.ownerTable, p.meta.ForeignKey, p.meta.TargetClass, p.onDelete, p.onUpdate)
		case schema.HasMany, schema.OneToOne:
			// FK lives on the target table, pointing back at this table's PK.
			addFK(res, p.meta.TargetClass, p.meta.ForeignKey, p.ownerTable, p.onDelete, p.onUpdate)
		case schema.ManyToMany:
			// handled by synthesizePivots once the pivot table exists.
		}
	}
}

// addFK resolves tableOrTargetClass to a declared table name (relation
// targets are registered resource type names, not table names, so this
// looks up the target's table via its own declared table, falling back to
// treating the argument as a literal table name for the owner side).
func addFK(res *Result, ownerTableOrTargetClass string, fkColumn string, targetTableOrClass string, onDelete, onUpdate schema.ForeignKeyAction) {
	ownerTable := resolveTableName(res, ownerTableOrTargetClass)
	targetTable := resolveTableName(res, targetTableOrClass)
	if ownerTable == "" || targetTable == "" {
		res.addErr("relation references unknown type %q or %q", ownerTableOrTargetClass, targetTableOrClass)
		return
	}
	owner, ok := res.Schema.Tables[ownerTable]
	if !ok {
		res.addErr("relation owner table %q not declared", ownerTable)
		return
	}
	target, ok := res.Schema.Tables[targetTable]
	if !ok {
		res.addErr("relation target table %q not declared", targetTable)
		return
	}
	targetPk := target.PrimaryKey()
	if targetPk == nil {
		res.addWarn("relation target %q has no primary key; skipping FK for %s.%s", targetTable, ownerTable, fkColumn)
		return
	}

	for _, existing := range owner.ForeignKeys {
		if existing.Column == fkColumn {
			return // both sides of a relation resolve to the same fk_{table}_{column}
		}
	}

	col, hasCol := owner.Columns[fkColumn]
	nullable := hasCol && col.Nullable

	del, upd := onDelete, onUpdate
	if del == "" {
		if nullable {
			del = schema.SetNull
		} else {
			del = schema.Restrict
		}
	}
	if upd == "" {
		if nullable {
			upd = schema.SetNull
		} else {
			upd = schema.Restrict
		}
	}

	owner.ForeignKeys = append(owner.ForeignKeys, schema.ForeignKeyDefinition{
		Table: ownerTable, Column: fkColumn,
		ReferencedTable: targetTable, ReferencedColumn: targetPk.Name,
		OnDelete: del, OnUpdate: upd,
	})
}

// resolveTableName accepts either a literal table name (already declared)
// or a registered resource type name and returns the declared table name.
func resolveTableName(res *Result, nameOrClass string) string {
	if _, ok := res.Schema.Tables[nameOrClass]; ok {
		return nameOrClass
	}
	// fall back: the class name registered in resource.Register maps to a
	// type whose table tag we can read directly.
	if inst, ok := resource.Lookup(nameOrClass); ok {
		if tn, _, found := findTableTag(reflect.TypeOf(inst)); found {
			return tn
		}
	}
	return ""
}

// synthesizePivots synthesizes, for every ManyToMany relation, the pivot
// table if it isn't already declared.
func synthesizePivots(res *Result, pending []pendingRelation) {
	seen := map[string]bool{}
	for _, p := range pending {
		if p.meta.Kind != schema.ManyToMany {
			continue
		}
		pivotName := p.meta.PivotTable
		if seen[pivotName] {
			continue
		}
		if _, exists := res.Schema.Tables[pivotName]; exists {
			continue
		}
		seen[pivotName] = true

		ownerTable := resolveTableName(res, p.ownerTable)
		targetTable := resolveTableName(res, p.meta.TargetClass)
		if ownerTable == "" || targetTable == "" {
			res.addErr("manyToMany pivot %q references unresolved tables", pivotName)
			continue
		}

		pivot := schema.NewTableDefinition(pivotName)
		pivot.AddColumn(&schema.ColumnDefinition{
			Name: "id", PropertyName: "id", Type: schema.Int, SourceType: "int64",
			IsPrimaryKey: true, PkStrategy: schema.PkAuto,
		})
		fkCol := p.meta.ForeignKey
		relatedCol := p.meta.RelatedKey
		pivot.AddColumn(&schema.ColumnDefinition{Name: fkCol, PropertyName: fkCol, Type: schema.Int, SourceType: "int64"})
		pivot.AddColumn(&schema.ColumnDefinition{Name: relatedCol, PropertyName: relatedCol, Type: schema.Int, SourceType: "int64"})

		pivot.Indexes = append(pivot.Indexes, schema.IndexDefinition{
			Columns: []string{fkCol, relatedCol}, Unique: true,
			Name: fmt.Sprintf("uniq_%s_%s_%s", pivotName, fkCol, relatedCol),
		})

		ownerPk := res.Schema.Tables[ownerTable].PrimaryKey()
		targetPk := res.Schema.Tables[targetTable].PrimaryKey()
		if ownerPk != nil {
			pivot.ForeignKeys = append(pivot.ForeignKeys, schema.ForeignKeyDefinition{
				Table: pivotName, Column: fkCol,
				ReferencedTable: ownerTable, ReferencedColumn: ownerPk.Name,
				OnDelete: schema.Cascade, OnUpdate: schema.Cascade,
			})
		}
		if targetPk != nil {
			pivot.ForeignKeys = append(pivot.ForeignKeys, schema.ForeignKeyDefinition{
				Table: pivotName, Column: relatedCol,
				ReferencedTable: targetTable, ReferencedColumn: targetPk.Name,
				OnDelete: schema.Cascade, OnUpdate: schema.Cascade,
			})
		}

		res.Schema.AddTable(pivot)
	}
}

// validateTables checks every collected table for duplicate columns and a
// single primary key.
func validateTables(res *Result) {
	for name, t := range res.Schema.Tables {
		seen := map[string]bool{}
		pkCount := 0
		for _, col := range t.Columns {
			if seen[col.Name] {
				res.addErr("table %q has duplicate column %q", name, col.Name)
			}
			seen[col.Name] = true
			if col.IsPrimaryKey {
				pkCount++
			}
		}
		if pkCount == 0 {
			res.addWarn("table %q has no primary key", name)
		} else if pkCount > 1 {
			res.addErr("table %q has %d primary key columns, expected exactly one", name, pkCount)
		}
		for _, idx := range t.Indexes {
			for _, c := range idx.Columns {
				if _, ok := t.Columns[c]; !ok {
					res.addErr("table %q index %q references unknown column %q", name, idx.Name, c)
				}
			}
		}
		for _, fk := range t.ForeignKeys {
			if _, ok := t.Columns[fk.Column]; !ok {
				res.addErr("table %q foreign key references unknown column %q", name, fk.Column)
			}
		}
	}
}
