package param

import (
	"fmt"
	"math"

	"github.com/go-viper/mapstructure/v2"
)

// GetString returns the value converted to text.
func (r *Registry) GetString(nameOrBind string) (string, error) {
	val, err := r.Get(nameOrBind)
	if err != nil {
		return "", err
	}
	if val == nil {
		return "", nil
	}
	s, ok := coerceText(val)
	if !ok {
		return "", fmt.Errorf("parameter %q: value %v is not text-convertible", nameOrBind, val)
	}
	return s, nil
}

// GetNumber returns the value as a float64.
func (r *Registry) GetNumber(nameOrBind string) (float64, error) {
	val, err := r.Get(nameOrBind)
	if err != nil {
		return 0, err
	}
	if val == nil {
		return 0, nil
	}
	f, ok := toFloat(val)
	if !ok {
		return 0, fmt.Errorf("parameter %q: value %v is not numeric", nameOrBind, val)
	}
	return f, nil
}

// GetInt returns the value as an int64 when the conversion is lossless.
func (r *Registry) GetInt(nameOrBind string) (int64, error) {
	val, err := r.Get(nameOrBind)
	if err != nil {
		return 0, err
	}
	switch n := val.(type) {
	case nil:
		return 0, nil
	case int64:
		return n, nil
	case float64:
		if n == math.Trunc(n) {
			return int64(n), nil
		}
	}
	return 0, fmt.Errorf("parameter %q: value %v is not an integer", nameOrBind, val)
}

// GetBool returns the value as a bool.
func (r *Registry) GetBool(nameOrBind string) (bool, error) {
	val, err := r.Get(nameOrBind)
	if err != nil {
		return false, err
	}
	switch b := val.(type) {
	case nil:
		return false, nil
	case bool:
		return b, nil
	}
	return false, fmt.Errorf("parameter %q: value %v is not a toggle", nameOrBind, val)
}

// GetSlice returns the value as a string sequence.
func (r *Registry) GetSlice(nameOrBind string) ([]string, error) {
	val, err := r.Get(nameOrBind)
	if err != nil {
		return nil, err
	}
	switch s := val.(type) {
	case nil:
		return nil, nil
	case []string:
		return s, nil
	}
	return nil, fmt.Errorf("parameter %q: value %v is not a sequence", nameOrBind, val)
}

// GetMap returns the value as a mapping.
func (r *Registry) GetMap(nameOrBind string) (map[string]any, error) {
	val, err := r.Get(nameOrBind)
	if err != nil {
		return nil, err
	}
	switch m := val.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return m, nil
	}
	return nil, fmt.Errorf("parameter %q: value %v is not a mapping", nameOrBind, val)
}

// Snapshot returns the current values keyed by bind name, defaults
// included. Composite values are deep copies.
func (r *Registry) Snapshot() map[string]any {
	data := make(map[string]any, len(r.values))
	for _, name := range r.order {
		def := r.defs[name]
		if val, ok := r.values[def.bindName()]; ok {
			data[def.bindName()] = copyOut(def, val.data)
		}
	}
	return data
}

// Decode unmarshals the current values into a caller struct using
// `param` tags matched against bind names. Input is weakly typed, so
// an int64-backed number decodes into an int field.
func (r *Registry) Decode(target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "param",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to build decoder: %w", err)
	}
	if err := decoder.Decode(r.Snapshot()); err != nil {
		return fmt.Errorf("failed to decode parameters: %w", err)
	}
	return nil
}
