package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_ResolvesRegisteredSampleTypes(t *testing.T) {
	v, ok := Lookup("User")
	require.True(t, ok)
	_, isUser := v.(User)
	assert.True(t, isUser)
}

func TestLookup_UnknownNameIsNotFound(t *testing.T) {
	_, ok := Lookup("NoSuchResource")
	assert.False(t, ok)
}

func TestRegister_AddsNewNameToRegistry(t *testing.T) {
	Register("ResourceTestFixture", struct{ Base }{})
	v, ok := Lookup("ResourceTestFixture")
	require.True(t, ok)
	assert.IsType(t, struct{ Base }{}, v)
}

func TestAll_IncludesEveryRegisteredSampleType(t *testing.T) {
	names := map[string]bool{"User": false, "Order": false, "OrderItem": false, "Tag": false}
	for _, v := range All() {
		switch v.(type) {
		case User:
			names["User"] = true
		case Order:
			names["Order"] = true
		case OrderItem:
			names["OrderItem"] = true
		case Tag:
			names["Tag"] = true
		}
	}
	for name, found := range names {
		assert.True(t, found, "expected %s to be registered", name)
	}
}

func TestUser_DefaultsReturnsSeedRows(t *testing.T) {
	defaults := User{}.Defaults()
	require.Len(t, defaults, 2)
	first, ok := defaults[0].(*User)
	require.True(t, ok)
	assert.Equal(t, int64(1), first.ID)
}
