package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/semitexa/semitexa/internal/schema"
)

func intPtr(n int) *int { return &n }

func TestQuoteIdent_EscapesBackticks(t *testing.T) {
	assert.Equal(t, "`users`", quoteIdent("users"))
	assert.Equal(t, "`weird``name`", quoteIdent("weird`name"))
}

func TestRenderColumnType_VarcharUsesLength(t *testing.T) {
	c := &schema.ColumnDefinition{Type: schema.Varchar, Length: intPtr(100)}
	assert.Equal(t, "varchar(100)", renderColumnType(c))
}

func TestRenderColumnType_DefaultsLengthTo255(t *testing.T) {
	c := &schema.ColumnDefinition{Type: schema.Varchar}
	assert.Equal(t, "varchar(255)", renderColumnType(c))
}

func TestRenderDefault_StringLiteralIsQuoted(t *testing.T) {
	c := &schema.ColumnDefinition{Default: "pending"}
	assert.Equal(t, "DEFAULT 'pending'", renderDefault(c))
}

func TestRenderDefault_BareLiteralIsNotQuoted(t *testing.T) {
	c := &schema.ColumnDefinition{Default: "CURRENT_TIMESTAMP"}
	assert.Equal(t, "DEFAULT CURRENT_TIMESTAMP", renderDefault(c))
}

func TestRenderDefault_NilNullableColumnGetsDefaultNull(t *testing.T) {
	c := &schema.ColumnDefinition{Default: nil, Nullable: true}
	assert.Equal(t, "DEFAULT NULL", renderDefault(c))
}

func TestRenderDefault_NilNonNullableColumnHasNoClause(t *testing.T) {
	c := &schema.ColumnDefinition{Default: nil, Nullable: false}
	assert.Equal(t, "", renderDefault(c))
}

func TestRenderDefault_BoolRendersAsZeroOrOne(t *testing.T) {
	assert.Equal(t, "DEFAULT 1", renderDefault(&schema.ColumnDefinition{Default: true}))
	assert.Equal(t, "DEFAULT 0", renderDefault(&schema.ColumnDefinition{Default: false}))
}

func TestRenderDefault_StringWithQuoteIsEscaped(t *testing.T) {
	c := &schema.ColumnDefinition{Default: "O'Brien"}
	assert.Equal(t, "DEFAULT 'O''Brien'", renderDefault(c))
}

func TestRenderDeclaredColumn_AutoIncrementOnPkAutoInteger(t *testing.T) {
	c := &schema.ColumnDefinition{Name: "id", Type: schema.BigInt, IsPrimaryKey: true, PkStrategy: schema.PkAuto}
	assert.Contains(t, renderDeclaredColumn(c), "AUTO_INCREMENT")
}

func TestRenderDeclaredColumn_NoAutoIncrementForUUIDPrimaryKey(t *testing.T) {
	c := &schema.ColumnDefinition{Name: "id", Type: schema.Char, Length: intPtr(36), IsPrimaryKey: true, PkStrategy: schema.PkUUID}
	assert.NotContains(t, renderDeclaredColumn(c), "AUTO_INCREMENT")
}

func TestRenderCreateTable_IncludesPrimaryKeyAndIndexes(t *testing.T) {
	table := schema.NewTableDefinition("users")
	table.AddColumn(&schema.ColumnDefinition{Name: "id", Type: schema.BigInt, IsPrimaryKey: true, PkStrategy: schema.PkAuto})
	table.AddColumn(&schema.ColumnDefinition{Name: "email", Type: schema.Varchar, Length: intPtr(255)})
	table.Indexes = []schema.IndexDefinition{{Name: "idx_users_email", Columns: []string{"email"}, Unique: true}}

	sql := renderCreateTable(table)
	assert.Contains(t, sql, "CREATE TABLE `users`")
	assert.Contains(t, sql, "PRIMARY KEY (`id`)")
	assert.Contains(t, sql, "UNIQUE KEY `idx_users_email` (`email`)")
	assert.Contains(t, sql, "ENGINE=InnoDB")
}

func TestRenderAddFK_IncludesReferentialActions(t *testing.T) {
	fk := &schema.ForeignKeyDefinition{
		Table: "orders", Column: "user_id", ReferencedTable: "users", ReferencedColumn: "id",
		OnDelete: schema.Cascade, OnUpdate: schema.Restrict,
	}
	sql := renderAddFK(fk)
	assert.Contains(t, sql, "ADD CONSTRAINT `fk_orders_user_id`")
	assert.Contains(t, sql, "REFERENCES `users` (`id`)")
	assert.Contains(t, sql, "ON DELETE CASCADE")
	assert.Contains(t, sql, "ON UPDATE RESTRICT")
}

func TestRenderDeprecateComment_AppendsSentinel(t *testing.T) {
	live := &schema.DbColumnState{Name: "old_flag", ColumnType: "tinyint(1)", Nullable: true}
	sql := renderDeprecateComment("users", live)
	assert.Contains(t, sql, "COMMENT 'SEMITEXA_DEPRECATED'")
	assert.Contains(t, sql, "MODIFY COLUMN `old_flag` tinyint(1)")
}

func TestRenderDeprecateTableComment(t *testing.T) {
	sql := renderDeprecateTableComment("legacy")
	assert.Equal(t, "ALTER TABLE `legacy` COMMENT = 'SEMITEXA_DEPRECATED'", sql)
}

func TestIsBareLiteral_RecognizesCurrentTimestampVariants(t *testing.T) {
	assert.True(t, isBareLiteral("CURRENT_TIMESTAMP"))
	assert.True(t, isBareLiteral("CURRENT_TIMESTAMP(3)"))
	assert.True(t, isBareLiteral("null"))
	assert.False(t, isBareLiteral("pending"))
}
