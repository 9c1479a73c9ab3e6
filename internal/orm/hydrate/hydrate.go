// Package hydrate converts between database rows (map[string]any, as
// materialized by mysqladapter.QueryResult) and resource struct values.
package hydrate

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/semitexa/semitexa/internal/schema"
	"github.com/semitexa/semitexa/internal/schema/collector"
)

const (
	dateTimeLayout = "2006-01-02 15:04:05"
	dateLayout     = "2006-01-02"
	timeLayout     = "15:04:05"
)

// Hydrate fills dst (a pointer to a resource struct) from one database row.
// Row keys absent from the type's column map are silently ignored.
func Hydrate(dst any, row map[string]any) error {
	meta, err := collector.MetadataFor(dst)
	if err != nil {
		return err
	}

	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr {
		return fmt.Errorf("hydrate: dst must be a pointer, got %T", dst)
	}
	elem := rv.Elem()

	for col, raw := range row {
		prop, ok := meta.ColumnToProp[col]
		if !ok {
			continue // silent projection
		}
		if raw == nil {
			continue // uninitialized fields are never written
		}
		def := meta.Columns[col]
		field := elem.FieldByName(prop)
		if !field.IsValid() || !field.CanSet() {
			continue
		}
		if err := setField(field, def, raw); err != nil {
			return fmt.Errorf("hydrate %s.%s: %w", meta.TableName, col, err)
		}
	}
	return nil
}

func setField(field reflect.Value, def *schema.ColumnDefinition, raw any) error {
	target := field.Type()
	isPtr := target.Kind() == reflect.Ptr
	if isPtr {
		target = target.Elem()
	}

	val, err := castValue(target, def, raw)
	if err != nil {
		return err
	}

	if isPtr {
		ptr := reflect.New(target)
		ptr.Elem().Set(val)
		field.Set(ptr)
		return nil
	}
	field.Set(val)
	return nil
}

func castValue(target reflect.Type, def *schema.ColumnDefinition, raw any) (reflect.Value, error) {
	switch {
	case target == reflect.TypeOf(time.Time{}):
		return castTime(def, raw)
	case target == reflect.TypeOf(decimal.Decimal{}):
		return castDecimal(raw)
	case target == reflect.TypeOf(uuid.UUID{}):
		return castUUID(raw)
	case target.Kind() == reflect.Slice && target.Elem().Kind() == reflect.Uint8:
		return castBytes(raw)
	case target.Kind() == reflect.Bool:
		return castBool(raw)
	case isIntKind(target.Kind()):
		return castInt(target, raw)
	case target.Kind() == reflect.Float32 || target.Kind() == reflect.Float64:
		return castFloat(target, raw)
	case target.Kind() == reflect.String:
		return castString(target, raw) // backed string enums unwrap via reflect.Kind
	case def != nil && def.Type == schema.JSON:
		return castJSON(target, raw)
	case target.Kind() == reflect.Slice || target.Kind() == reflect.Map || target.Kind() == reflect.Struct:
		return castJSON(target, raw)
	default:
		return reflect.Value{}, fmt.Errorf("unsupported target type %s", target)
	}
}

func isIntKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func castTime(def *schema.ColumnDefinition, raw any) (reflect.Value, error) {
	switch v := raw.(type) {
	case time.Time:
		return reflect.ValueOf(v), nil
	case []byte:
		return parseTimeString(def, string(v))
	case string:
		return parseTimeString(def, v)
	default:
		return reflect.Value{}, fmt.Errorf("cannot cast %T to time.Time", raw)
	}
}

func parseTimeString(def *schema.ColumnDefinition, s string) (reflect.Value, error) {
	layout := dateTimeLayout
	if def != nil {
		switch def.Type {
		case schema.Date:
			layout = dateLayout
		case schema.Time:
			layout = timeLayout
		}
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		// tolerate a full timestamp being handed to a Date/Time field
		if t2, err2 := time.Parse(dateTimeLayout, s); err2 == nil {
			return reflect.ValueOf(t2), nil
		}
		return reflect.Value{}, err
	}
	return reflect.ValueOf(t), nil
}

func castDecimal(raw any) (reflect.Value, error) {
	switch v := raw.(type) {
	case decimal.Decimal:
		return reflect.ValueOf(v), nil
	case []byte:
		d, err := decimal.NewFromString(string(v))
		return reflect.ValueOf(d), err
	case string:
		d, err := decimal.NewFromString(v)
		return reflect.ValueOf(d), err
	case float64:
		return reflect.ValueOf(decimal.NewFromFloat(v)), nil
	case int64:
		return reflect.ValueOf(decimal.NewFromInt(v)), nil
	default:
		return reflect.Value{}, fmt.Errorf("cannot cast %T to decimal.Decimal", raw)
	}
}

func castUUID(raw any) (reflect.Value, error) {
	switch v := raw.(type) {
	case uuid.UUID:
		return reflect.ValueOf(v), nil
	case []byte:
		u, err := uuid.FromBytes(v)
		if err != nil {
			if parsed, perr := uuid.Parse(string(v)); perr == nil {
				return reflect.ValueOf(parsed), nil
			}
			return reflect.Value{}, err
		}
		return reflect.ValueOf(u), nil
	case string:
		u, err := uuid.Parse(v)
		return reflect.ValueOf(u), err
	default:
		return reflect.Value{}, fmt.Errorf("cannot cast %T to uuid.UUID", raw)
	}
}

func castBytes(raw any) (reflect.Value, error) {
	switch v := raw.(type) {
	case []byte:
		return reflect.ValueOf(v), nil
	case string:
		return reflect.ValueOf([]byte(v)), nil
	default:
		return reflect.Value{}, fmt.Errorf("cannot cast %T to []byte", raw)
	}
}

func castBool(raw any) (reflect.Value, error) {
	switch v := raw.(type) {
	case bool:
		return reflect.ValueOf(v), nil
	case int64:
		return reflect.ValueOf(v != 0), nil
	case []byte:
		return reflect.ValueOf(len(v) == 1 && v[0] != 0), nil
	default:
		return reflect.Value{}, fmt.Errorf("cannot cast %T to bool", raw)
	}
}

func castInt(target reflect.Type, raw any) (reflect.Value, error) {
	var n int64
	switch v := raw.(type) {
	case int64:
		n = v
	case int:
		n = int64(v)
	case []byte:
		var err error
		n, err = parseIntBytes(v)
		if err != nil {
			return reflect.Value{}, err
		}
	case uint64:
		n = int64(v)
	default:
		return reflect.Value{}, fmt.Errorf("cannot cast %T to %s", raw, target)
	}
	out := reflect.New(target).Elem()
	if isUintKind(target.Kind()) {
		out.SetUint(uint64(n))
	} else {
		out.SetInt(n)
	}
	return out, nil
}

func parseIntBytes(b []byte) (int64, error) {
	var n int64
	var neg bool
	for i, c := range b {
		if i == 0 && c == '-' {
			neg = true
			continue
		}
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid integer literal %q", b)
		}
		n = n*10 + int64(c-'0')
	}
	if neg {
		n = -n
	}
	return n, nil
}

func castFloat(target reflect.Type, raw any) (reflect.Value, error) {
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case []byte:
		d, err := decimal.NewFromString(string(v))
		if err != nil {
			return reflect.Value{}, err
		}
		f, _ = d.Float64()
	default:
		return reflect.Value{}, fmt.Errorf("cannot cast %T to %s", raw, target)
	}
	out := reflect.New(target).Elem()
	out.SetFloat(f)
	return out, nil
}

func castString(target reflect.Type, raw any) (reflect.Value, error) {
	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return reflect.Value{}, fmt.Errorf("cannot cast %T to string", raw)
	}
	out := reflect.New(target).Elem()
	out.SetString(s)
	return out, nil
}

// Dehydrate converts a resource struct value into a row ready for an
// INSERT/UPDATE statement, inverse of Hydrate.
func Dehydrate(src any) (map[string]any, error) {
	meta, err := collector.MetadataFor(src)
	if err != nil {
		return nil, err
	}

	rv := reflect.ValueOf(src)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, fmt.Errorf("dehydrate: nil pointer")
		}
		rv = rv.Elem()
	}

	row := make(map[string]any, len(meta.PropToColumn))
	for prop, col := range meta.PropToColumn {
		field := rv.FieldByName(prop)
		if !field.IsValid() {
			continue
		}
		def := meta.Columns[col]
		v, err := dehydrateField(field, def)
		if err != nil {
			return nil, fmt.Errorf("dehydrate %s.%s: %w", meta.TableName, col, err)
		}
		row[col] = v
	}
	return row, nil
}

func dehydrateField(field reflect.Value, def *schema.ColumnDefinition) (any, error) {
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			return nil, nil
		}
		field = field.Elem()
	}

	switch {
	case field.Type() == reflect.TypeOf(time.Time{}):
		t := field.Interface().(time.Time)
		layout := dateTimeLayout
		if def != nil {
			switch def.Type {
			case schema.Date:
				layout = dateLayout
			case schema.Time:
				layout = timeLayout
			}
		}
		return t.Format(layout), nil
	case field.Type() == reflect.TypeOf(decimal.Decimal{}):
		return field.Interface().(decimal.Decimal).String(), nil
	case field.Type() == reflect.TypeOf(uuid.UUID{}):
		return field.Interface().(uuid.UUID).String(), nil
	case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.Uint8:
		return field.Interface(), nil
	case field.Kind() == reflect.Bool:
		if field.Bool() {
			return 1, nil
		}
		return 0, nil
	case isUintKind(field.Kind()):
		return field.Uint(), nil
	case isIntKind(field.Kind()):
		return field.Int(), nil
	case field.Kind() == reflect.Float32 || field.Kind() == reflect.Float64:
		return field.Float(), nil
	case field.Kind() == reflect.String:
		return field.String(), nil
	case field.Kind() == reflect.Slice || field.Kind() == reflect.Map || field.Kind() == reflect.Struct:
		b, err := json.Marshal(field.Interface())
		if err != nil {
			return nil, err
		}
		return string(b), nil
	default:
		return nil, fmt.Errorf("unsupported field type %s", field.Type())
	}
}

func isUintKind(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func castJSON(target reflect.Type, raw any) (reflect.Value, error) {
	var data []byte
	switch v := raw.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		// already-structured value: assign directly if assignable.
		rv := reflect.ValueOf(raw)
		if rv.Type().AssignableTo(target) {
			return rv, nil
		}
		return reflect.Value{}, fmt.Errorf("cannot cast %T to %s", raw, target)
	}
	out := reflect.New(target)
	if err := json.Unmarshal(data, out.Interface()); err != nil {
		return reflect.Value{}, err
	}
	return out.Elem(), nil
}
