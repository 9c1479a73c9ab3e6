package hydrate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semitexa/semitexa/internal/resource"
)

func TestHydrate_ScalarColumns(t *testing.T) {
	row := map[string]any{
		"id":         int64(7),
		"email":      []byte("a@b.com"),
		"name":       "Ann",
		"created_at": "2024-01-02 03:04:05",
	}
	var u resource.User
	require.NoError(t, Hydrate(&u, row))

	assert.Equal(t, int64(7), u.ID)
	assert.Equal(t, "a@b.com", u.Email)
	assert.Equal(t, "Ann", u.Name)
	assert.Equal(t, 2024, u.CreatedAt.Year())
}

func TestHydrate_IgnoresUnmappedColumnsAndNilValues(t *testing.T) {
	row := map[string]any{
		"id":             int64(1),
		"email":          "a@b.com",
		"name":           "Ann",
		"not_a_column":   "whatever",
		"created_at":     nil,
	}
	var u resource.User
	require.NoError(t, Hydrate(&u, row))
	assert.Equal(t, int64(1), u.ID)
	assert.True(t, u.CreatedAt.IsZero(), "nil values must leave the zero value in place")
}

func TestHydrate_DecimalColumn(t *testing.T) {
	row := map[string]any{
		"id":         int64(1),
		"user_id":    int64(2),
		"total":      []byte("19.99"),
		"created_at": "2024-01-01 00:00:00",
	}
	var o resource.Order
	require.NoError(t, Hydrate(&o, row))
	assert.Equal(t, 19.99, o.Total)
}

func TestDehydrate_RoundTripsScalarFields(t *testing.T) {
	u := resource.User{ID: 9, Email: "x@y.com", Name: "X", CreatedAt: time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)}
	row, err := Dehydrate(&u)
	require.NoError(t, err)

	assert.EqualValues(t, 9, row["id"])
	assert.Equal(t, "x@y.com", row["email"])
	assert.Equal(t, "2024-05-06 07:08:09", row["created_at"])
}

func TestDehydrate_ThenHydrate_RoundTrips(t *testing.T) {
	u := resource.User{ID: 3, Email: "round@trip.com", Name: "Round", CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	row, err := Dehydrate(&u)
	require.NoError(t, err)

	var back resource.User
	require.NoError(t, Hydrate(&back, row))
	assert.Equal(t, u.ID, back.ID)
	assert.Equal(t, u.Email, back.Email)
	assert.Equal(t, u.Name, back.Name)
	assert.True(t, u.CreatedAt.Equal(back.CreatedAt))
}

func TestCastDecimal_FromString(t *testing.T) {
	v, err := castDecimal("12.50")
	require.NoError(t, err)
	d := v.Interface().(decimal.Decimal)
	assert.True(t, d.Equal(decimal.NewFromFloat(12.50)))
}
