package schema

import (
	"fmt"
	"reflect"
	"sync"
)

// ResourceMetadata is the process-wide, lazily built, per-type cache built
// once per resource type and reused for the lifetime of the process.
type ResourceMetadata struct {
	Type            reflect.Type
	TableName       string
	PkColumn        string
	PkProperty      string
	PkStrategy      PkStrategy
	FilterableProps map[string]string // source property -> db column
	Relations       map[string]RelationMeta
	Columns         map[string]*ColumnDefinition // db column -> definition
	PropToColumn    map[string]string            // source property -> db column
	ColumnToProp    map[string]string            // db column -> source property
}

var (
	metaMu    sync.Mutex
	metaCache = map[reflect.Type]*ResourceMetadata{}
	metaOnce  = map[reflect.Type]*sync.Once{}
)

// BuildFunc produces metadata for a type the first time it's requested.
type BuildFunc func(t reflect.Type) (*ResourceMetadata, error)

// GetOrBuild returns the cached ResourceMetadata for t, building it exactly
// once even under concurrent callers (one-shot initializer per type).
func GetOrBuild(t reflect.Type, build BuildFunc) (*ResourceMetadata, error) {
	metaMu.Lock()
	once, ok := metaOnce[t]
	if !ok {
		once = &sync.Once{}
		metaOnce[t] = once
	}
	metaMu.Unlock()

	var buildErr error
	once.Do(func() {
		m, err := build(t)
		if err != nil {
			buildErr = err
			// allow a retry on genuine build failure: clear the once so a
			// future call can attempt construction again.
			metaMu.Lock()
			delete(metaOnce, t)
			metaMu.Unlock()
			return
		}
		metaMu.Lock()
		metaCache[t] = m
		metaMu.Unlock()
	})
	if buildErr != nil {
		return nil, buildErr
	}
	metaMu.Lock()
	m := metaCache[t]
	metaMu.Unlock()
	if m == nil {
		// concurrent build failed in another goroutine and this one lost the
		// once race without the cache being populated; surface as not-built.
		return nil, fmt.Errorf("resource metadata for %s was not built", t)
	}
	return m, nil
}

// Reset clears the cache. Test-only; production code never invalidates.
func Reset() {
	metaMu.Lock()
	defer metaMu.Unlock()
	metaCache = map[reflect.Type]*ResourceMetadata{}
	metaOnce = map[reflect.Type]*sync.Once{}
}
