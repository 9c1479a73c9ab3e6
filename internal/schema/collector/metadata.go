package collector

import (
	"reflect"

	"github.com/semitexa/semitexa/internal/resource"
	"github.com/semitexa/semitexa/internal/schema"
)

// MetadataFor returns the cached schema.ResourceMetadata for v's type,
// building it exactly once. v may be a struct value or pointer.
//
// The schema is collected across every resource.Register()'d type, not just
// v's type in isolation, because relation foreign keys need their target
// table's shape (at least its primary key) to exist in the same pass: the
// declared schema is one process-wide schema, not N independently built
// ones.
func MetadataFor(v any) (*schema.ResourceMetadata, error) {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return schema.GetOrBuild(t, func(t reflect.Type) (*schema.ResourceMetadata, error) {
		zero := reflect.New(t).Elem().Interface()
		tableName, _, hasTag := findTableTag(t)

		types := resource.All()
		if !hasTag {
			return nil, errNoTable(t)
		}
		if _, already := resource.Lookup(typeNameOf(t)); !already {
			types = append(types, zero)
		}

		res := Collect(types)
		table, ok := res.Schema.Tables[tableName]
		if !ok {
			if len(res.Errors) > 0 {
				return nil, res.Errors[0]
			}
			return nil, errNoTable(t)
		}

		m := &schema.ResourceMetadata{
			Type:            t,
			TableName:       table.Name,
			FilterableProps: map[string]string{},
			Relations:       table.Relations,
			Columns:         table.Columns,
			PropToColumn:    map[string]string{},
			ColumnToProp:    map[string]string{},
		}
		for _, col := range table.OrderedColumns() {
			m.PropToColumn[col.PropertyName] = col.Name
			m.ColumnToProp[col.Name] = col.PropertyName
			if col.IsPrimaryKey {
				m.PkColumn = col.Name
				m.PkProperty = col.PropertyName
				m.PkStrategy = col.PkStrategy
			}
			if col.Filterable {
				m.FilterableProps[col.PropertyName] = col.Name
			}
		}
		return m, nil
	})
}

// typeNameOf mirrors how an init() would have called resource.Register:
// the bare type name, e.g. "User" for resource.User.
func typeNameOf(t reflect.Type) string { return t.Name() }

type noTableError struct{ typeName string }

func (e *noTableError) Error() string { return "collect " + e.typeName + ": no table produced" }

func errNoTable(t reflect.Type) error { return &noTableError{typeName: t.Name()} }
