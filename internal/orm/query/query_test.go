package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semitexa/semitexa/internal/errs"
	"github.com/semitexa/semitexa/internal/resource"
)

func TestFilter_ScalarValueProducesEquality(t *testing.T) {
	b := For(resource.User{}).Filter("Email", "a@b.com")
	require.NoError(t, b.err)
	sqlText, args := b.render("")
	assert.Contains(t, sqlText, "WHERE")
	assert.Contains(t, sqlText, "`email` = ?")
	assert.Equal(t, []any{"a@b.com"}, args)
}

func TestFilter_SliceValueProducesIN(t *testing.T) {
	b := For(resource.User{}).Filter("Email", []string{"a@b.com", "c@d.com"})
	require.NoError(t, b.err)
	sqlText, args := b.render("")
	assert.Contains(t, sqlText, "IN (?, ?)")
	assert.Equal(t, []any{"a@b.com", "c@d.com"}, args)
}

func TestFilter_NilValueProducesIsNull(t *testing.T) {
	b := For(resource.User{}).Filter("Email", nil)
	require.NoError(t, b.err)
	sqlText, _ := b.render("")
	assert.Contains(t, sqlText, "IS NULL")
}

func TestFilter_RejectsNonFilterableProperty(t *testing.T) {
	b := For(resource.User{}).Filter("Name", "whoever")
	require.Error(t, b.err)
	assert.True(t, errs.Is(b.err, errs.NotFilterable))
}

func TestFilter_PrimaryKeyIsAlwaysFilterable(t *testing.T) {
	b := For(resource.User{}).Filter("ID", int64(1))
	assert.NoError(t, b.err)
}

func TestFilterRelation_JoinsBelongsTo(t *testing.T) {
	b := For(resource.Order{}).FilterRelation("User", "email", "a@b.com")
	require.NoError(t, b.err)
	sqlText, _ := b.render("")
	assert.Contains(t, sqlText, "JOIN `users`")
}

func TestDeleteWhere_RefusesUnconditionalDelete(t *testing.T) {
	b := For(resource.User{})
	_, err := b.DeleteWhere(nil, nil)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.BadQuery))
}

func TestList_RejectsPageBelowOne(t *testing.T) {
	b := For(resource.User{})
	_, err := b.List(nil, nil, 0, 20)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.BadQuery))
}

func TestList_RejectsPerPageBelowOne(t *testing.T) {
	b := For(resource.User{})
	_, err := b.List(nil, nil, 1, 0)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.BadQuery))
}
