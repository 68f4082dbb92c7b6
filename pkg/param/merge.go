package param

import (
	"fmt"

	"dario.cat/mergo"
	"github.com/mohae/deepcopy"
)

// mergeValues combines a stored value with a validated incoming value
// under the definition's accumulation rules. Inputs are never mutated;
// the result is always a fresh value.
func mergeValues(def *Definition, current, incoming any) (any, error) {
	switch def.Type {
	case TypeText:
		return mergeText(def, current, incoming)
	case TypeSequence:
		return mergeSequence(current, incoming)
	case TypeMapping:
		return mergeMapping(def, current, incoming)
	default:
		return nil, &UnsupportedJoinError{Name: def.Name, Type: def.Type}
	}
}

func mergeText(def *Definition, current, incoming any) (any, error) {
	next, ok := incoming.(string)
	if !ok {
		return nil, &TypeConversionError{Name: def.Name, Type: TypeText, Raw: incoming}
	}
	prev, ok := current.(string)
	if !ok {
		return next, nil
	}
	return prev + def.joinSeparator() + next, nil
}

func mergeSequence(current, incoming any) (any, error) {
	next, _ := incoming.([]string)
	prev, _ := current.([]string)
	merged := make([]string, 0, len(prev)+len(next))
	merged = append(merged, prev...)
	merged = append(merged, next...)
	return merged, nil
}

func mergeMapping(def *Definition, current, incoming any) (any, error) {
	next, ok := incoming.(map[string]any)
	if !ok {
		return nil, &TypeConversionError{Name: def.Name, Type: TypeMapping, Raw: incoming}
	}
	prev, ok := current.(map[string]any)
	if !ok {
		return copyMapping(next), nil
	}
	if def.mergeDepth() == MergeDeep {
		return deepMerge(def, prev, next)
	}
	return shallowMerge(def, prev, next), nil
}

// shallowMerge resolves only top-level key collisions.
func shallowMerge(def *Definition, prev, next map[string]any) map[string]any {
	merged := copyMapping(prev)
	for key, val := range next {
		if _, exists := merged[key]; exists && def.overrideMode() == FirstWins {
			continue
		}
		merged[key] = deepcopy.Copy(val)
	}
	return merged
}

// deepMerge applies the override strategy recursively. Leaves whose
// shapes differ between the two sides follow the same strategy: last
// wins replaces wholesale, first wins keeps the stored value.
func deepMerge(def *Definition, prev, next map[string]any) (map[string]any, error) {
	merged := copyMapping(prev)
	src := copyMapping(next)
	if def.overrideMode() == FirstWins {
		return deepFill(merged, src), nil
	}
	if err := mergo.Merge(&merged, src, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("parameter %q: deep merge failed: %w", def.Name, err)
	}
	return merged, nil
}

// deepFill adds missing keys recursively. Collisions keep dst's entry
// by key existence, so zero values like false, "", and 0 survive; mergo
// without WithOverride would treat those as empty and fill them.
func deepFill(dst, src map[string]any) map[string]any {
	for key, val := range src {
		existing, exists := dst[key]
		if !exists {
			dst[key] = val
			continue
		}
		dstMap, dstOK := existing.(map[string]any)
		srcMap, srcOK := val.(map[string]any)
		if dstOK && srcOK {
			dst[key] = deepFill(dstMap, srcMap)
		}
	}
	return dst
}

func copyMapping(m map[string]any) map[string]any {
	copied, ok := deepcopy.Copy(m).(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return copied
}

// preMerge folds several raw inputs supplied in one assignment call
// into a single value, pairwise and left to right, before the normal
// validation path runs.
func preMerge(def *Definition, raws []any) (any, error) {
	if len(raws) == 0 {
		return nil, &TypeConversionError{Name: def.Name, Type: def.Type, Raw: raws}
	}
	switch def.Type {
	case TypeText, TypeSequence, TypeMapping:
	default:
		if len(raws) > 1 {
			return nil, &UnsupportedJoinError{Name: def.Name, Type: def.Type}
		}
		return raws[0], nil
	}
	combined, err := validateType(def, raws[0])
	if err != nil {
		return nil, err
	}
	for _, raw := range raws[1:] {
		next, err := validateType(def, raw)
		if err != nil {
			return nil, err
		}
		combined, err = mergeValues(def, combined, next)
		if err != nil {
			return nil, err
		}
	}
	return combined, nil
}

// validateType runs type coercion without allowed-value normalisation;
// preMerge results go through the full validateValue afterwards.
func validateType(def *Definition, raw any) (any, error) {
	validate, ok := typeValidators[def.Type]
	if !ok {
		return nil, fmt.Errorf("parameter %q: unsupported type %q", def.Name, def.Type)
	}
	return validate(def, raw)
}
