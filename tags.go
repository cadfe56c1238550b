package transitgraph

import (
	"fmt"
	"reflect"
	"strings"
)

// entityMetadata holds the parsed `graph` tag information for a struct type.
// The Adapter caches it so reflection runs once per type.
type entityMetadata struct {
	// Label is the graph node label, defaulting to the struct's name.
	Label string
	// KeyField is the struct field marked as the lookup key; empty for row types.
	KeyField string
	// KeyProp is the property name of the key in the database.
	KeyProp string
	// Mappings maps struct field names to node property or record field names.
	Mappings map[string]string
}

// parseTagsFromType inspects a reflect.Type and extracts the mapping from
// `graph` struct tags. Tag syntax: `graph:"[key,]property:<name>"`.
func parseTagsFromType(typ reflect.Type) (*entityMetadata, error) {
	if typ == nil {
		return nil, fmt.Errorf("cannot parse tags of a nil type")
	}
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("type %s is not a struct", typ.Name())
	}

	meta := &entityMetadata{
		Label:    typ.Name(),
		Mappings: make(map[string]string),
	}

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		tag := field.Tag.Get("graph")
		if tag == "" || tag == "-" {
			continue
		}

		isKey := false
		propName := ""
		for _, part := range strings.Split(tag, ",") {
			part = strings.TrimSpace(part)
			switch {
			case part == "key":
				isKey = true
			case strings.HasPrefix(part, "property:"):
				propName = strings.TrimPrefix(part, "property:")
			}
		}

		if propName == "" {
			return nil, fmt.Errorf("field %s is missing 'property' tag component", field.Name)
		}
		if isKey {
			if meta.KeyField != "" {
				return nil, fmt.Errorf("struct %s has more than one 'key' field", typ.Name())
			}
			meta.KeyField = field.Name
			meta.KeyProp = propName
		}
		meta.Mappings[field.Name] = propName
	}

	if len(meta.Mappings) == 0 {
		return nil, fmt.Errorf("struct %s has no graph-tagged fields", typ.Name())
	}
	return meta, nil
}

// parseTags is the generic convenience wrapper around parseTagsFromType.
func parseTags[T any]() (*entityMetadata, error) {
	return parseTagsFromType(reflect.TypeOf((*T)(nil)).Elem())
}

// parseEntityTags additionally requires a key field, which node lookups need.
func parseEntityTags[T any]() (*entityMetadata, error) {
	meta, err := parseTags[T]()
	if err != nil {
		return nil, err
	}
	if meta.KeyField == "" {
		return nil, fmt.Errorf("no key ('key') tag defined for struct %s", meta.Label)
	}
	return meta, nil
}
