package querybuilder

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// modelField is one db-tagged exported field of a model struct.
type modelField struct {
	column string
	index  int
}

var modelFields sync.Map // reflect.Type -> []modelField

// InsertModel builds an INSERT from the db-tagged fields of model.
func InsertModel(table string, model any, suffix string) (string, []any, error) {
	cols, vals, err := modelRow(model)
	if err != nil {
		return "", nil, err
	}
	return InsertInto(table).Columns(cols...).Values(vals...).Suffix(suffix).ToSQL()
}

// InsertModels builds one multi-row INSERT over models of one struct type.
func InsertModels[T any](table string, models []T, suffix string) (string, []any, error) {
	if len(models) == 0 {
		return "", nil, fmt.Errorf("insert models are required")
	}

	b := InsertInto(table).Suffix(suffix)
	for i := range models {
		cols, vals, err := modelRow(models[i])
		if err != nil {
			return "", nil, fmt.Errorf("model %d: %w", i, err)
		}
		if i == 0 {
			b.Columns(cols...)
		}
		b.Values(vals...)
	}
	return b.ToSQL()
}

// Columns lists the db tags of model in field order, for explicit SELECT
// lists. It returns nil for anything that is not a tagged struct.
func Columns(model any) []string {
	v, err := structValue(model)
	if err != nil {
		return nil
	}
	fields := fieldsOf(v.Type())
	if len(fields) == 0 {
		return nil
	}
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.column
	}
	return cols
}

func modelRow(model any) ([]string, []any, error) {
	v, err := structValue(model)
	if err != nil {
		return nil, nil, err
	}
	fields := fieldsOf(v.Type())
	if len(fields) == 0 {
		return nil, nil, fmt.Errorf("model %s has no db columns", v.Type())
	}
	cols := make([]string, len(fields))
	vals := make([]any, len(fields))
	for i, f := range fields {
		cols[i] = f.column
		vals[i] = v.Field(f.index).Interface()
	}
	return cols, vals, nil
}

func structValue(model any) (reflect.Value, error) {
	v := reflect.ValueOf(model)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("model cannot be nil")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("model must be a struct, got %s", v.Kind())
	}
	return v, nil
}

func fieldsOf(typ reflect.Type) []modelField {
	if cached, ok := modelFields.Load(typ); ok {
		return cached.([]modelField)
	}
	fields := make([]modelField, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}
		column, _, _ := strings.Cut(sf.Tag.Get("db"), ",")
		column = strings.TrimSpace(column)
		if column == "" || column == "-" {
			continue
		}
		fields = append(fields, modelField{column: column, index: i})
	}
	actual, _ := modelFields.LoadOrStore(typ, fields)
	return actual.([]modelField)
}
