package upsert

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitAffected_AllInserted(t *testing.T) {
	r := splitAffected(3, 3)
	assert.Equal(t, &Result{Inserted: 3, Updated: 0, Unchanged: 0}, r)
}

func TestSplitAffected_AllUpdated(t *testing.T) {
	r := splitAffected(6, 3)
	assert.Equal(t, &Result{Inserted: 0, Updated: 3, Unchanged: 0}, r)
}

func TestSplitAffected_AllUnchanged(t *testing.T) {
	r := splitAffected(0, 3)
	assert.Equal(t, &Result{Inserted: 0, Updated: 0, Unchanged: 3}, r)
}

func TestSplitAffected_MixedInsertedAndUpdated(t *testing.T) {
	// 2 inserted (+1 each) + 1 updated (+2) = affected 4, n = 3
	r := splitAffected(4, 3)
	assert.Equal(t, &Result{Inserted: 2, Updated: 1, Unchanged: 0}, r)
}

func TestSplitAffected_EmptyBatch(t *testing.T) {
	r := splitAffected(0, 0)
	assert.Equal(t, &Result{}, r)
}
