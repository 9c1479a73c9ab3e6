package relation

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/semitexa/semitexa/internal/resource"
)

func TestCollectKeys_DedupsPreservingOrder(t *testing.T) {
	owners := []*resource.Order{
		{ID: 1, UserID: 10},
		{ID: 2, UserID: 20},
		{ID: 3, UserID: 10},
	}
	keys, keyOf := collectKeys(reflect.ValueOf(owners), "UserID")

	assert.Equal(t, []any{int64(10), int64(20)}, keys)
	assert.Equal(t, "10", keyOf(0))
	assert.Equal(t, "20", keyOf(1))
	assert.Equal(t, "10", keyOf(2))
}

func TestCollectKeys_EmptySliceYieldsNoKeys(t *testing.T) {
	var owners []*resource.Order
	keys, _ := collectKeys(reflect.ValueOf(owners), "UserID")
	assert.Empty(t, keys)
}

func TestQuoteIdent_EscapesBackticks(t *testing.T) {
	assert.Equal(t, "`normal`", quoteIdent("normal"))
	assert.Equal(t, "`weird``name`", quoteIdent("weird`name"))
}
