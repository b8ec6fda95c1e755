package action

import (
	"fmt"
	"strconv"
)

// Params wraps the raw key/value block of an action or precondition spec
// with typed accessors. YAML decoding produces map[string]interface{}
// values; these helpers normalize them.
type Params map[string]interface{}

// String returns a required string parameter.
func (p Params) String(name string) (string, error) {
	raw, ok := p[name]
	if !ok {
		return "", errMissingParam(name)
	}
	value, ok := raw.(string)
	if !ok || value == "" {
		return "", fmt.Errorf("parameter %q must be a non-empty string", name)
	}
	return value, nil
}

// StringOr returns an optional string parameter with a default.
func (p Params) StringOr(name, fallback string) (string, error) {
	raw, ok := p[name]
	if !ok {
		return fallback, nil
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("parameter %q must be a string", name)
	}
	return value, nil
}

// Bool returns an optional boolean parameter, defaulting to false.
// YAML decodes bare true/false to bool; quoted forms arrive as strings.
func (p Params) Bool(name string) (bool, error) {
	raw, ok := p[name]
	if !ok {
		return false, nil
	}
	switch value := raw.(type) {
	case bool:
		return value, nil
	case string:
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("parameter %q must be a boolean", name)
		}
		return parsed, nil
	default:
		return false, fmt.Errorf("parameter %q must be a boolean", name)
	}
}

// StringSlice returns an optional list-of-strings parameter.
func (p Params) StringSlice(name string) ([]string, error) {
	raw, ok := p[name]
	if !ok {
		return nil, nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("parameter %q must be a list of strings", name)
	}
	values := make([]string, 0, len(list))
	for _, item := range list {
		value, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("parameter %q must be a list of strings", name)
		}
		values = append(values, value)
	}
	return values, nil
}

// StringMap returns an optional map-of-strings parameter.
func (p Params) StringMap(name string) (map[string]string, error) {
	raw, ok := p[name]
	if !ok {
		return nil, nil
	}
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("parameter %q must be a map of strings", name)
	}
	values := make(map[string]string, len(m))
	for key, item := range m {
		value, ok := item.(string)
		if !ok {
			value = fmt.Sprintf("%v", item)
		}
		values[key] = value
	}
	return values, nil
}

// Map returns a required nested map parameter.
func (p Params) Map(name string) (map[string]interface{}, error) {
	raw, ok := p[name]
	if !ok {
		return nil, errMissingParam(name)
	}
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("parameter %q must be a map", name)
	}
	return m, nil
}
