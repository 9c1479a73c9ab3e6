package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semitexa/semitexa/internal/schema"
)

func TestTopoSortForCreate_OrdersReferencedTableFirst(t *testing.T) {
	users := schema.NewTableDefinition("users")
	orders := schema.NewTableDefinition("orders")
	orders.ForeignKeys = []schema.ForeignKeyDefinition{
		{Table: "orders", Column: "user_id", ReferencedTable: "users", ReferencedColumn: "id"},
	}

	ordered := topoSortForCreate([]*schema.TableDefinition{orders, users})
	require.Len(t, ordered, 2)
	assert.Equal(t, "users", ordered[0].Name)
	assert.Equal(t, "orders", ordered[1].Name)
}

func TestTopoSortForCreate_TolerantOfCycles(t *testing.T) {
	a := schema.NewTableDefinition("a")
	b := schema.NewTableDefinition("b")
	a.ForeignKeys = []schema.ForeignKeyDefinition{{Table: "a", Column: "b_id", ReferencedTable: "b", ReferencedColumn: "id"}}
	b.ForeignKeys = []schema.ForeignKeyDefinition{{Table: "b", Column: "a_id", ReferencedTable: "a", ReferencedColumn: "id"}}

	ordered := topoSortForCreate([]*schema.TableDefinition{a, b})
	assert.Len(t, ordered, 2)
}

func TestTopoSortForCreate_IgnoresForeignKeyOutsideCreateSet(t *testing.T) {
	orders := schema.NewTableDefinition("orders")
	orders.ForeignKeys = []schema.ForeignKeyDefinition{
		{Table: "orders", Column: "user_id", ReferencedTable: "users", ReferencedColumn: "id"},
	}
	ordered := topoSortForCreate([]*schema.TableDefinition{orders})
	require.Len(t, ordered, 1)
	assert.Equal(t, "orders", ordered[0].Name)
}

func TestBuildPlan_CreateTableComesBeforeAddFK(t *testing.T) {
	diff := schema.NewSchemaDiff()
	table := schema.NewTableDefinition("users")
	diff.TablesToCreate = append(diff.TablesToCreate, table)
	diff.ForeignKeysToAdd = append(diff.ForeignKeysToAdd, schema.FkChange{
		Table: "orders",
		Declared: &schema.ForeignKeyDefinition{
			Table: "orders", Column: "user_id", ReferencedTable: "users", ReferencedColumn: "id",
			OnDelete: schema.Cascade, OnUpdate: schema.Restrict,
		},
	})

	plan := BuildPlan(diff)
	require.Len(t, plan.Operations, 2)
	assert.Equal(t, schema.KindCreateTable, plan.Operations[0].Kind)
	assert.Equal(t, schema.KindAddFK, plan.Operations[1].Kind)
}

func TestBuildPlan_UndeprecatedColumnDropIsTwoPhaseAndNonDestructive(t *testing.T) {
	diff := schema.NewSchemaDiff()
	diff.ColumnsToDrop = append(diff.ColumnsToDrop, schema.ColumnChange{
		Table: "users",
		Live:  &schema.DbColumnState{Name: "legacy_flag", ColumnType: "tinyint(1)"},
	})

	plan := BuildPlan(diff)
	require.Len(t, plan.Operations, 1)
	assert.False(t, plan.Operations[0].Destructive)
	assert.Contains(t, plan.Operations[0].SQL, "SEMITEXA_DEPRECATED")
}

func TestBuildPlan_AlreadyDeprecatedColumnDropIsDestructive(t *testing.T) {
	diff := schema.NewSchemaDiff()
	diff.ColumnsToDrop = append(diff.ColumnsToDrop, schema.ColumnChange{
		Table: "users",
		Live:  &schema.DbColumnState{Name: "legacy_flag", ColumnType: "tinyint(1)", Comment: schema.DeprecatedSentinel},
	})

	plan := BuildPlan(diff)
	require.Len(t, plan.Operations, 1)
	assert.True(t, plan.Operations[0].Destructive)
	assert.Contains(t, plan.Operations[0].SQL, "DROP COLUMN")
}

func TestBuildPlan_IndexDropIsDestructive(t *testing.T) {
	diff := schema.NewSchemaDiff()
	diff.IndexesToDrop = append(diff.IndexesToDrop, schema.IndexChange{
		Table: "users", Live: &schema.DbIndexState{Name: "idx_old"},
	})

	plan := BuildPlan(diff)
	require.Len(t, plan.Operations, 1)
	assert.True(t, plan.Operations[0].Destructive)
}

func TestExecutionPlan_SafeAndDestructivePartition(t *testing.T) {
	plan := &schema.ExecutionPlan{}
	plan.Add(schema.DdlOperation{SQL: "A", Destructive: false})
	plan.Add(schema.DdlOperation{SQL: "B", Destructive: true})
	plan.Add(schema.DdlOperation{SQL: "C", Destructive: false})

	assert.Len(t, plan.Safe(), 2)
	assert.Len(t, plan.Destructive(), 1)
}
