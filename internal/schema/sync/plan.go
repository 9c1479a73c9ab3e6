package sync

import (
	"github.com/semitexa/semitexa/internal/schema"
	"github.com/semitexa/semitexa/internal/schema/compare"
)

// BuildPlan renders a schema.SchemaDiff into an ordered schema.ExecutionPlan
// following a fixed phase order, so no FK reference is live before its
// target: cyclic ownership is resolved by emitting CREATE TABLE without
// FKs, then ADD FOREIGN KEY once every table exists.
func BuildPlan(diff *schema.SchemaDiff) *schema.ExecutionPlan {
	plan := &schema.ExecutionPlan{}

	for _, t := range topoSortForCreate(diff.TablesToCreate) {
		plan.Add(schema.DdlOperation{
			SQL: renderCreateTable(t), Kind: schema.KindCreateTable, Table: t.Name,
			Destructive: false, Description: "create table " + t.Name,
		})
	}

	for _, c := range diff.ColumnsToAdd {
		plan.Add(schema.DdlOperation{
			SQL: renderAddColumn(c.Table, c.Declared), Kind: schema.KindAddColumn, Table: c.Table,
			Destructive: false, Description: "add column " + c.Table + "." + c.Declared.Name,
		})
	}

	for _, c := range diff.ColumnsToAlter {
		destructive := compare.IsAlterDestructive(c.Reasons, c.Declared, c.Live)
		plan.Add(schema.DdlOperation{
			SQL: renderModifyColumn(c.Table, c.Declared), Kind: schema.KindAlterColumn, Table: c.Table,
			Destructive: destructive, Description: "alter column " + c.Table + "." + c.Declared.Name + ": " + joinReasons(c.Reasons),
		})
	}

	for _, fk := range diff.ForeignKeysToAdd {
		plan.Add(schema.DdlOperation{
			SQL: renderAddFK(fk.Declared), Kind: schema.KindAddFK, Table: fk.Table,
			Destructive: false, Description: "add foreign key " + fk.Declared.Name(),
		})
	}

	for _, idx := range diff.IndexesToAdd {
		plan.Add(schema.DdlOperation{
			SQL: renderAddIndex(idx.Table, *idx.Declared), Kind: schema.KindAddIndex, Table: idx.Table,
			Destructive: false, Description: "add index " + idx.Declared.Name,
		})
	}

	for _, idx := range diff.IndexesToDrop {
		plan.Add(schema.DdlOperation{
			SQL: renderDropIndex(idx.Table, idx.Live.Name), Kind: schema.KindDropIndex, Table: idx.Table,
			Destructive: true, Description: "drop index " + idx.Live.Name,
		})
	}

	for _, c := range diff.ColumnsToDrop {
		if !c.Live.IsDeprecatedColumn() {
			plan.Add(schema.DdlOperation{
				SQL: renderDeprecateComment(c.Table, c.Live), Kind: schema.KindDropColumn, Table: c.Table,
				Destructive: false, Description: "deprecate column " + c.Table + "." + c.Live.Name,
			})
		} else {
			plan.Add(schema.DdlOperation{
				SQL: "ALTER TABLE " + quoteIdent(c.Table) + " DROP COLUMN " + quoteIdent(c.Live.Name),
				Kind: schema.KindDropColumn, Table: c.Table,
				Destructive: true, Description: "drop column " + c.Table + "." + c.Live.Name,
			})
		}
	}

	for _, fk := range diff.ForeignKeysToDrop {
		name := "fk_" + fk.Live.Table + "_" + fk.Live.Column
		plan.Add(schema.DdlOperation{
			SQL: renderDropFK(fk.Table, name), Kind: schema.KindDropFK, Table: fk.Table,
			Destructive: true, Description: "drop foreign key " + name,
		})
	}

	for _, t := range diff.TablesToDrop {
		if !t.IsDeprecated() {
			plan.Add(schema.DdlOperation{
				SQL: renderDeprecateTableComment(t.Name), Kind: schema.KindDropTable, Table: t.Name,
				Destructive: false, Description: "deprecate table " + t.Name,
			})
		} else {
			plan.Add(schema.DdlOperation{
				SQL: renderDropTable(t.Name), Kind: schema.KindDropTable, Table: t.Name,
				Destructive: true, Description: "drop table " + t.Name,
			})
		}
	}

	return plan
}

func joinReasons(reasons []string) string {
	out := ""
	for i, r := range reasons {
		if i > 0 {
			out += "; "
		}
		out += r
	}
	return out
}

// topoSortForCreate orders tables by BelongsTo dependency (FK references
// within the create set). Cycles are tolerated: a node visited-in-progress
// is passed over, since the FK itself is added later in step 4 once every
// table exists.
func topoSortForCreate(tables []*schema.TableDefinition) []*schema.TableDefinition {
	byName := map[string]*schema.TableDefinition{}
	for _, t := range tables {
		byName[t.Name] = t
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := map[string]int{}
	var order []*schema.TableDefinition

	var visit func(name string)
	visit = func(name string) {
		if state[name] == done || state[name] == visiting {
			return
		}
		t, ok := byName[name]
		if !ok {
			return
		}
		state[name] = visiting
		for _, fk := range t.ForeignKeys {
			if fk.ReferencedTable == name {
				continue
			}
			if _, inSet := byName[fk.ReferencedTable]; inSet {
				visit(fk.ReferencedTable)
			}
		}
		state[name] = done
		order = append(order, t)
	}

	for _, t := range tables {
		visit(t.Name)
	}
	return order
}
