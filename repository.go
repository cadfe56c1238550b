package transitgraph

import (
	"context"
	"fmt"
	"reflect"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/saulfrancisco-ruizacevedo/gocypher"
)

// Repository gives read access to one kind of transport node (Station, Route,
// Category). The graph is built by a separate ingestion step, so there is no
// save or delete here.
type Repository[T any] struct {
	runner DBRunner
	meta   *entityMetadata
}

// NewRepository creates a repository for T, whose struct tags must name a key.
func NewRepository[T any](runner DBRunner) (*Repository[T], error) {
	meta, err := parseEntityTags[T]()
	if err != nil {
		return nil, err
	}
	return &Repository[T]{
		runner: runner,
		meta:   meta,
	}, nil
}

// FindByName retrieves a single node by its key property.
//
// Returns:
//
//	A pointer to the found entity, ErrNotFound if no node matches, or another
//	error if the query or mapping fails.
func (r *Repository[T]) FindByName(ctx context.Context, name string) (*T, error) {
	props := map[string]interface{}{r.meta.KeyProp: name}
	query, params, err := gocypher.NewQueryBuilder().
		Match(gocypher.N("n", r.meta.Label).WithProperties(props)).
		Return("n").
		Build()
	if err != nil {
		return nil, fmt.Errorf("could not build query: %w", err)
	}

	eagerResult, err := r.runner.Run(withQueryName(ctx, "find_"+r.meta.Label), query, params)
	if err != nil {
		return nil, classify("find_"+r.meta.Label, err)
	}

	// Names are unique within a category only; an interchange served by two
	// modes can match twice, and the first match is used.
	if len(eagerResult.Records) == 0 {
		return nil, ErrNotFound
	}

	entity := new(T)
	if err := r.mapRecord(eagerResult.Records[0], entity); err != nil {
		return nil, err
	}
	return entity, nil
}

// FindAll returns every node with the repository's label.
func (r *Repository[T]) FindAll(ctx context.Context) ([]*T, error) {
	query, params, err := gocypher.NewQueryBuilder().
		Match(gocypher.N("n", r.meta.Label)).
		Return("n").
		Build()
	if err != nil {
		return nil, fmt.Errorf("could not build query: %w", err)
	}

	eagerResult, err := r.runner.Run(withQueryName(ctx, "find_all_"+r.meta.Label), query, params)
	if err != nil {
		return nil, classify("find_all_"+r.meta.Label, err)
	}

	entities := make([]*T, 0, len(eagerResult.Records))
	for _, record := range eagerResult.Records {
		entity := new(T)
		if err := r.mapRecord(record, entity); err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

func (r *Repository[T]) mapRecord(record *neo4j.Record, entity *T) error {
	nodeValue, ok := record.Get("n")
	if !ok {
		return fmt.Errorf("could not find return value 'n' in query result")
	}
	node, ok := nodeValue.(neo4j.Node)
	if !ok {
		return fmt.Errorf("return value 'n' is not a node")
	}
	return mapNodeToStruct(node, entity, r.meta)
}

// mapNodeToStruct populates a struct's fields from a neo4j.Node's properties,
// based on the parsed metadata.
func mapNodeToStruct(node neo4j.Node, entity any, meta *entityMetadata) error {
	return mapValues(node.Props, entity, meta)
}

// mapValues copies the mapped entries of values into the struct entity points to.
// Absent or null values leave the field at its zero value.
func mapValues(values map[string]any, entity any, meta *entityMetadata) error {
	val := reflect.ValueOf(entity).Elem()

	for fieldName, propName := range meta.Mappings {
		field := val.FieldByName(fieldName)
		if !field.IsValid() || !field.CanSet() {
			continue
		}

		propValue, ok := values[propName]
		if !ok {
			continue
		}

		if err := assignValue(field, propValue); err != nil {
			return fmt.Errorf("field %s (%s): %w", fieldName, propName, err)
		}
	}
	return nil
}

// assignValue sets field from a value decoded by the driver. Bolt integers
// arrive as int64 and lists as []any, so both are converted to the field type.
func assignValue(field reflect.Value, v any) error {
	if v == nil {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("cannot use %T as string", v)
		}
		field.SetString(s)

	case reflect.Float32, reflect.Float64:
		switch n := v.(type) {
		case float64:
			field.SetFloat(n)
		case int64:
			field.SetFloat(float64(n))
		case int:
			field.SetFloat(float64(n))
		default:
			return fmt.Errorf("cannot use %T as float", v)
		}

	case reflect.Int, reflect.Int32, reflect.Int64:
		switch n := v.(type) {
		case int64:
			field.SetInt(n)
		case int:
			field.SetInt(int64(n))
		case float64:
			field.SetInt(int64(n))
		default:
			return fmt.Errorf("cannot use %T as integer", v)
		}

	case reflect.Bool:
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("cannot use %T as bool", v)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return assignDirect(field, v)
		}
		switch items := v.(type) {
		case []string:
			field.Set(reflect.ValueOf(append([]string(nil), items...)))
		case []any:
			out := make([]string, 0, len(items))
			for _, item := range items {
				s, ok := item.(string)
				if !ok {
					return fmt.Errorf("cannot use list element %T as string", item)
				}
				out = append(out, s)
			}
			field.Set(reflect.ValueOf(out))
		default:
			return fmt.Errorf("cannot use %T as string list", v)
		}

	default:
		return assignDirect(field, v)
	}
	return nil
}

func assignDirect(field reflect.Value, v any) error {
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(field.Type()) {
		return fmt.Errorf("cannot use %T as %s", v, field.Type())
	}
	field.Set(rv)
	return nil
}
