package param

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// validateFunc coerces a raw value to the canonical Go shape for one
// parameter type. Validators are pure: they never touch registry state.
type validateFunc func(def *Definition, raw any) (any, error)

// typeValidators dispatches on the declared type tag.
var typeValidators = map[Type]validateFunc{
	TypeText:     validateText,
	TypeNumber:   validateNumber,
	TypeToggle:   validateToggle,
	TypeSequence: validateSequence,
	TypeMapping:  validateMapping,
}

// validateValue runs type validation followed by allowed-value
// normalisation and returns the canonical value.
func validateValue(def *Definition, raw any) (any, error) {
	validate, ok := typeValidators[def.Type]
	if !ok {
		return nil, fmt.Errorf("parameter %q: unsupported type %q", def.Name, def.Type)
	}
	val, err := validate(def, raw)
	if err != nil {
		return nil, err
	}
	if len(def.AllowedValues) == 0 || !def.supportsAllowedValues() {
		return val, nil
	}
	return normalizeAllowed(def, val)
}

func validateText(def *Definition, raw any) (any, error) {
	s, ok := coerceText(raw)
	if !ok {
		return nil, &TypeConversionError{Name: def.Name, Type: TypeText, Raw: raw}
	}
	return s, nil
}

// coerceText converts scalars and stringers to text.
func coerceText(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case fmt.Stringer:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}

func validateNumber(def *Definition, raw any) (any, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return float64(v), nil
		}
		return int64(v), nil
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		return parseNumber(def, v)
	default:
		return nil, &TypeConversionError{Name: def.Name, Type: TypeNumber, Raw: raw}
	}
}

// parseNumber keeps integer syntax as int64 and falls back to float64.
func parseNumber(def *Definition, s string) (any, error) {
	trimmed := strings.TrimSpace(s)
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return i, nil
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f, nil
	}
	return nil, &TypeConversionError{Name: def.Name, Type: TypeNumber, Raw: s}
}

func validateToggle(def *Definition, raw any) (any, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "on", "1":
			return true, nil
		case "false", "no", "off", "0":
			return false, nil
		}
	}
	return nil, &TypeConversionError{Name: def.Name, Type: TypeToggle, Raw: raw}
}

// FlipDefault returns the negated declared default for a toggle
// parameter, used when a toggle occurs on a command line without a
// value. A toggle with no declared default flips to true.
func FlipDefault(def Definition) bool {
	if b, ok := def.Default.(bool); ok {
		return !b
	}
	return true
}

func validateSequence(def *Definition, raw any) (any, error) {
	var elems []any
	switch v := raw.(type) {
	case []string:
		elems = make([]any, len(v))
		for i, s := range v {
			elems[i] = s
		}
	case []any:
		elems = v
	default:
		// A lone scalar is promoted to a one-element sequence.
		elems = []any{raw}
	}
	result := make([]string, 0, len(elems))
	for _, e := range elems {
		s, ok := coerceText(e)
		if !ok {
			return nil, &TypeConversionError{Name: def.Name, Type: TypeSequence, Raw: e}
		}
		result = append(result, s)
	}
	return result, nil
}

func validateMapping(def *Definition, raw any) (any, error) {
	switch v := raw.(type) {
	case map[string]any:
		// Stored state must not alias the caller's map.
		return copyMapping(v), nil
	case map[any]any:
		rekeyed, err := rekeyMapping(def, v)
		if err != nil {
			return nil, err
		}
		return copyMapping(rekeyed), nil
	case string:
		return parseMapping(def, v)
	case []byte:
		return parseMapping(def, string(v))
	default:
		return nil, &TypeConversionError{Name: def.Name, Type: TypeMapping, Raw: raw}
	}
}

// parseMapping decodes a raw fragment as YAML, which also accepts JSON.
func parseMapping(def *Definition, fragment string) (any, error) {
	var decoded map[string]any
	if err := yaml.Unmarshal([]byte(fragment), &decoded); err != nil || decoded == nil {
		return nil, &TypeConversionError{Name: def.Name, Type: TypeMapping, Raw: fragment}
	}
	return decoded, nil
}

func rekeyMapping(def *Definition, m map[any]any) (map[string]any, error) {
	result := make(map[string]any, len(m))
	for k, v := range m {
		key, ok := coerceText(k)
		if !ok {
			return nil, &TypeConversionError{Name: def.Name, Type: TypeMapping, Raw: k}
		}
		if nested, ok := v.(map[any]any); ok {
			rekeyed, err := rekeyMapping(def, nested)
			if err != nil {
				return nil, err
			}
			v = rekeyed
		}
		result[key] = v
	}
	return result, nil
}

// normalizeAllowed canonicalises a validated value against the allowed
// list. Text matches case-insensitively and is rewritten to the
// canonical spelling; numbers require exact equality. The scan is
// linear: allowed lists are expected to stay small.
func normalizeAllowed(def *Definition, val any) (any, error) {
	switch def.Type {
	case TypeText:
		return normalizeAllowedText(def, val.(string))
	case TypeNumber:
		return normalizeAllowedNumber(def, val)
	case TypeSequence:
		seq := val.([]string)
		result := make([]string, len(seq))
		for i, elem := range seq {
			canonical, err := normalizeAllowedText(def, elem)
			if err != nil {
				return nil, err
			}
			result[i] = canonical.(string)
		}
		return result, nil
	default:
		return val, nil
	}
}

func normalizeAllowedText(def *Definition, s string) (any, error) {
	for _, allowed := range def.AllowedValues {
		if strings.EqualFold(allowed, s) {
			return allowed, nil
		}
	}
	return nil, &DisallowedValueError{Name: def.Name, Value: s, Allowed: def.AllowedValues}
}

func normalizeAllowedNumber(def *Definition, val any) (any, error) {
	for _, allowed := range def.AllowedValues {
		parsed, err := parseNumber(def, allowed)
		if err != nil {
			continue
		}
		if numbersEqual(val, parsed) {
			return val, nil
		}
	}
	return nil, &DisallowedValueError{Name: def.Name, Value: val, Allowed: def.AllowedValues}
}

// numbersEqual compares canonical number values across the int64/float64
// split.
func numbersEqual(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	return aok && bok && af == bf
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
