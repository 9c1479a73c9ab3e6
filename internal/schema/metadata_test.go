package schema

import (
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixtureA struct{}
type fixtureB struct{}

func TestGetOrBuild_BuildsOnceAndCaches(t *testing.T) {
	Reset()
	var calls int32
	t1 := reflect.TypeOf(fixtureA{})

	build := func(t reflect.Type) (*ResourceMetadata, error) {
		atomic.AddInt32(&calls, 1)
		return &ResourceMetadata{Type: t, TableName: "fixture_a"}, nil
	}

	m1, err := GetOrBuild(t1, build)
	require.NoError(t, err)
	m2, err := GetOrBuild(t1, build)
	require.NoError(t, err)

	assert.Same(t, m1, m2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetOrBuild_DistinctTypesBuildIndependently(t *testing.T) {
	Reset()
	a, err := GetOrBuild(reflect.TypeOf(fixtureA{}), func(t reflect.Type) (*ResourceMetadata, error) {
		return &ResourceMetadata{TableName: "fixture_a"}, nil
	})
	require.NoError(t, err)

	b, err := GetOrBuild(reflect.TypeOf(fixtureB{}), func(t reflect.Type) (*ResourceMetadata, error) {
		return &ResourceMetadata{TableName: "fixture_b"}, nil
	})
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Equal(t, "fixture_a", a.TableName)
	assert.Equal(t, "fixture_b", b.TableName)
}

func TestGetOrBuild_FailedBuildAllowsRetry(t *testing.T) {
	Reset()
	t1 := reflect.TypeOf(fixtureA{})
	var attempt int32

	build := func(t reflect.Type) (*ResourceMetadata, error) {
		n := atomic.AddInt32(&attempt, 1)
		if n == 1 {
			return nil, errors.New("boom")
		}
		return &ResourceMetadata{TableName: "fixture_a"}, nil
	}

	_, err := GetOrBuild(t1, build)
	require.Error(t, err)

	m, err := GetOrBuild(t1, build)
	require.NoError(t, err)
	assert.Equal(t, "fixture_a", m.TableName)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempt))
}

func TestGetOrBuild_ConcurrentCallersShareOneBuild(t *testing.T) {
	Reset()
	t1 := reflect.TypeOf(fixtureA{})
	var calls int32
	var wg sync.WaitGroup
	results := make([]*ResourceMetadata, 20)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			m, err := GetOrBuild(t1, func(t reflect.Type) (*ResourceMetadata, error) {
				atomic.AddInt32(&calls, 1)
				return &ResourceMetadata{TableName: "fixture_a"}, nil
			})
			assert.NoError(t, err)
			results[idx] = m
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, m := range results {
		assert.Same(t, results[0], m)
	}
}

func TestReset_ClearsCacheForFreshBuild(t *testing.T) {
	Reset()
	t1 := reflect.TypeOf(fixtureA{})
	_, err := GetOrBuild(t1, func(t reflect.Type) (*ResourceMetadata, error) {
		return &ResourceMetadata{TableName: "first"}, nil
	})
	require.NoError(t, err)

	Reset()
	m, err := GetOrBuild(t1, func(t reflect.Type) (*ResourceMetadata, error) {
		return &ResourceMetadata{TableName: "second"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "second", m.TableName)
}
