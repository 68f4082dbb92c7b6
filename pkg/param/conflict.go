package param

import (
	"reflect"
)

// effectivePolicy resolves the conflict policy for an assignment. Batch
// mode forces reject regardless of the parameter's own configuration.
func (r *Registry) effectivePolicy(def *Definition) SwitchBehavior {
	if r.batchDepth > 0 {
		return SwitchReject
	}
	return def.switchBehavior()
}

// resolveSwitchConflicts enforces mutual exclusion within the target's
// switch group and applies the configured policy to any active members.
// It is called before the new value is stored; with the reject policy a
// conflict leaves every value untouched. The returned flag reports
// whether any evicted member is persisted, so the caller can flush the
// settings store even when the incoming parameter itself is not.
func (r *Registry) resolveSwitchConflicts(def *Definition) (bool, error) {
	if def.SwitchGroup == "" || r.registering {
		return false, nil
	}
	conflicts := r.activeGroupMembers(def)
	if len(conflicts) == 0 {
		return false, nil
	}
	policy := r.effectivePolicy(def)
	if policy == SwitchReject {
		return false, &SwitchConflictError{
			Name:     def.Name,
			Group:    def.SwitchGroup,
			Conflict: conflicts[0].Name,
		}
	}
	// Immutable members cannot be evicted; surface that before touching
	// anything so the operation stays all-or-nothing.
	for _, member := range conflicts {
		if member.Immutable {
			return false, &ImmutableParameterError{Name: member.Name}
		}
	}
	evictedPersisted := false
	for _, member := range conflicts {
		switch policy {
		case SwitchUnset:
			r.removeValue(member)
		case SwitchReset:
			r.restoreDefault(member)
		}
		if member.Persisted {
			evictedPersisted = true
		}
		r.log.Warn("switch group evicted member",
			"group", def.SwitchGroup, "member", member.Name, "policy", string(policy))
	}
	return evictedPersisted, nil
}

// activeGroupMembers returns the other members of the target's switch
// group holding an explicitly set, truthy value, in registration order.
func (r *Registry) activeGroupMembers(def *Definition) []*Definition {
	var active []*Definition
	for _, name := range r.order {
		other := r.defs[name]
		if other.Name == def.Name || other.SwitchGroup != def.SwitchGroup {
			continue
		}
		if r.conflictsWhenSet(other) {
			active = append(active, other)
		}
	}
	return active
}

// conflictsWhenSet judges truthiness by the conflicting member's own
// type: a toggle conflicts when true, every other type conflicts when
// explicitly set to something other than its declared default.
func (r *Registry) conflictsWhenSet(def *Definition) bool {
	val, ok := r.values[def.bindName()]
	if !ok || !val.isSet {
		return false
	}
	if def.Type == TypeToggle {
		b, ok := val.data.(bool)
		return ok && b
	}
	if def.Default == nil {
		return true
	}
	return !reflect.DeepEqual(val.data, def.Default)
}
