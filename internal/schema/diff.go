package schema

// SchemaDiff accumulates every pending change between declared schema and
// live state. Populated only by the comparator.
type SchemaDiff struct {
	TablesToCreate []*TableDefinition
	TablesToDrop   []*DbTableState // carries live state so the comment/sentinel can be read

	ColumnsToAdd   []ColumnChange
	ColumnsToAlter []ColumnChange
	ColumnsToDrop  []ColumnChange // DropColumn carries the live DbColumnState

	IndexesToAdd  []IndexChange
	IndexesToDrop []IndexChange

	ForeignKeysToAdd  []FkChange
	ForeignKeysToDrop []FkChange
}

func NewSchemaDiff() *SchemaDiff { return &SchemaDiff{} }

// IsEmpty reports whether the diff has no pending operations at all.
func (d *SchemaDiff) IsEmpty() bool {
	return len(d.TablesToCreate) == 0 && len(d.TablesToDrop) == 0 &&
		len(d.ColumnsToAdd) == 0 && len(d.ColumnsToAlter) == 0 && len(d.ColumnsToDrop) == 0 &&
		len(d.IndexesToAdd) == 0 && len(d.IndexesToDrop) == 0 &&
		len(d.ForeignKeysToAdd) == 0 && len(d.ForeignKeysToDrop) == 0
}

type ColumnChange struct {
	Table    string
	Declared *ColumnDefinition // nil for a pure drop
	Live     *DbColumnState    // nil for a pure add
	Reasons  []string          // human-readable list of what differs, for ALTER
}

type IndexChange struct {
	Table    string
	Declared *IndexDefinition
	Live     *DbIndexState
}

type FkChange struct {
	Table    string
	Declared *ForeignKeyDefinition
	Live     *DbForeignKeyState
}

// DdlKind classifies one operation in an ExecutionPlan.
type DdlKind string

const (
	KindCreateTable DdlKind = "CREATE_TABLE"
	KindDropTable   DdlKind = "DROP_TABLE"
	KindAddColumn   DdlKind = "ADD_COLUMN"
	KindAlterColumn DdlKind = "ALTER_COLUMN"
	KindDropColumn  DdlKind = "DROP_COLUMN"
	KindAddIndex    DdlKind = "ADD_INDEX"
	KindDropIndex   DdlKind = "DROP_INDEX"
	KindAddFK       DdlKind = "ADD_FK"
	KindDropFK      DdlKind = "DROP_FK"
)

// DdlOperation is one statement in an ExecutionPlan.
type DdlOperation struct {
	SQL         string
	Kind        DdlKind
	Table       string
	Destructive bool
	Description string
}

// ExecutionPlan is the ordered sequence of DDL operations built by the sync engine.
type ExecutionPlan struct {
	Operations []DdlOperation
}

func (p *ExecutionPlan) Add(op DdlOperation) { p.Operations = append(p.Operations, op) }

// Safe returns the non-destructive subset, in order.
func (p *ExecutionPlan) Safe() []DdlOperation {
	var out []DdlOperation
	for _, op := range p.Operations {
		if !op.Destructive {
			out = append(out, op)
		}
	}
	return out
}

// Destructive returns the destructive subset, in order.
func (p *ExecutionPlan) Destructive() []DdlOperation {
	var out []DdlOperation
	for _, op := range p.Operations {
		if op.Destructive {
			out = append(out, op)
		}
	}
	return out
}
