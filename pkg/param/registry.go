package param

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/mohae/deepcopy"

	"github.com/paramkit/paramkit/pkg/logger"
)

// Registry owns all parameter definitions and their current values and
// composes validation, conflict resolution, merging, and prompting into
// the engine's public operations.
//
// A Registry is not safe for concurrent use; embedding applications
// must serialise access externally. Parameter resolution is a
// pre-execution setup phase, not a throughput path.
type Registry struct {
	defs          map[string]*Definition
	byBind        map[string]string
	order         []string
	values        map[string]*value
	promptHistory map[string]struct{}

	registering bool
	batchDepth  int

	validate  *validator.Validate
	store     Store
	solicitor Solicitor
	log       logger.Logger
}

// Option configures a Registry at construction time.
type Option func(*Registry)

// WithStore injects the persistence collaborator used for parameters
// marked persisted.
func WithStore(s Store) Option {
	return func(r *Registry) { r.store = s }
}

// WithSolicitor injects the input collaborator used for interactive
// prompting.
func WithSolicitor(s Solicitor) Option {
	return func(r *Registry) { r.solicitor = s }
}

// WithLogger injects the logger used for value-transition diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// New creates an empty registry with the given collaborators.
func New(opts ...Option) *Registry {
	r := &Registry{
		defs:          make(map[string]*Definition),
		byBind:        make(map[string]string),
		values:        make(map[string]*value),
		promptHistory: make(map[string]struct{}),
		validate:      validator.New(),
		log:           logger.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a definition. The declared default, when present, is
// validated and normalised eagerly; the canonical form is what Get and
// Reset observe from then on. Switch-group conflict checks are
// suppressed for the duration of the call: defaults never conflict at
// registration.
func (r *Registry) Register(def Definition) error {
	if err := r.validateDefinition(&def); err != nil {
		return err
	}
	if _, exists := r.defs[def.Name]; exists {
		return &DuplicateNameError{Name: def.Name}
	}
	bind := def.bindName()
	if _, exists := r.byBind[bind]; exists {
		return &DuplicateNameError{Name: bind}
	}
	r.registering = true
	defer func() { r.registering = false }()
	if def.Default != nil {
		canonical, err := validateValue(&def, def.Default)
		if err != nil {
			return &InvalidDefaultError{Name: def.Name, Err: err}
		}
		def.Default = canonical
	}
	stored := def
	r.defs[def.Name] = &stored
	r.byBind[bind] = def.Name
	r.order = append(r.order, def.Name)
	if stored.Default != nil {
		r.values[bind] = &value{data: stored.Default, isSet: false}
	}
	r.log.Debug("registered parameter", "name", def.Name, "type", string(def.Type))
	return nil
}

// validateDefinition runs the structural struct-tag checks that gate
// registration, before any semantic validation of the default.
func (r *Registry) validateDefinition(def *Definition) error {
	if err := r.validate.Struct(def); err != nil {
		return fmt.Errorf("invalid definition %q: %w", def.Name, err)
	}
	return nil
}

// resolve finds a definition by name or bind name.
func (r *Registry) resolve(nameOrBind string) (*Definition, error) {
	if def, ok := r.defs[nameOrBind]; ok {
		return def, nil
	}
	if name, ok := r.byBind[nameOrBind]; ok {
		return r.defs[name], nil
	}
	return nil, &UnknownParameterError{Name: nameOrBind}
}

// Get returns the current value, or the declared default when unset,
// or nil when neither exists. Sequence and mapping results are deep
// copies: stored state cannot be mutated through them.
func (r *Registry) Get(nameOrBind string) (any, error) {
	return r.GetOr(nameOrBind, nil)
}

// GetOr behaves like Get but returns fallback when the parameter is
// unset and has no declared default.
func (r *Registry) GetOr(nameOrBind string, fallback any) (any, error) {
	def, err := r.resolve(nameOrBind)
	if err != nil {
		return nil, err
	}
	if val, ok := r.values[def.bindName()]; ok {
		return copyOut(def, val.data), nil
	}
	if def.Default != nil {
		return copyOut(def, def.Default), nil
	}
	return fallback, nil
}

// copyOut shields stored composite values from caller mutation.
func copyOut(def *Definition, data any) any {
	switch def.Type {
	case TypeSequence, TypeMapping:
		return deepcopy.Copy(data)
	default:
		return data
	}
}

// Set validates, normalises, and stores a value, replacing any current
// one. Several raw fragments supplied as a slice for a mapping
// parameter are pre-merged pairwise, left to right, before the single
// validated store. A persisted parameter is written through to the
// settings store after a successful assignment.
func (r *Registry) Set(ctx context.Context, name string, raw any) error {
	def, err := r.resolve(name)
	if err != nil {
		return err
	}
	raw, err = r.foldFragments(def, raw)
	if err != nil {
		return err
	}
	canonical, err := validateValue(def, raw)
	if err != nil {
		return err
	}
	if err := r.guardImmutable(def); err != nil {
		return err
	}
	evictedPersisted, err := r.resolveSwitchConflicts(def)
	if err != nil {
		return err
	}
	r.values[def.bindName()] = &value{data: canonical, isSet: true}
	r.log.Debug("set parameter", "name", def.Name)
	if evictedPersisted {
		return r.SavePersisted(ctx)
	}
	return r.writeThrough(ctx, def)
}

// Join accumulates a value onto the current one. Accumulation is
// undefined for number and toggle parameters.
func (r *Registry) Join(ctx context.Context, name string, raw any) error {
	def, err := r.resolve(name)
	if err != nil {
		return err
	}
	switch def.Type {
	case TypeNumber, TypeToggle:
		return &UnsupportedJoinError{Name: def.Name, Type: def.Type}
	}
	raw, err = r.foldFragments(def, raw)
	if err != nil {
		return err
	}
	incoming, err := validateValue(def, raw)
	if err != nil {
		return err
	}
	if err := r.guardImmutable(def); err != nil {
		return err
	}
	evictedPersisted, err := r.resolveSwitchConflicts(def)
	if err != nil {
		return err
	}
	var current any
	if val, ok := r.values[def.bindName()]; ok && val.isSet {
		current = val.data
	}
	merged, err := mergeValues(def, current, incoming)
	if err != nil {
		return err
	}
	r.values[def.bindName()] = &value{data: merged, isSet: true}
	r.log.Debug("joined parameter", "name", def.Name)
	if evictedPersisted {
		return r.SavePersisted(ctx)
	}
	return r.writeThrough(ctx, def)
}

// Unset removes the stored value entirely.
func (r *Registry) Unset(ctx context.Context, name string) error {
	def, err := r.resolve(name)
	if err != nil {
		return err
	}
	if err := r.guardImmutable(def); err != nil {
		return err
	}
	r.removeValue(def)
	r.log.Debug("unset parameter", "name", def.Name)
	return r.writeThrough(ctx, def)
}

// Reset restores the declared default, or behaves as Unset when no
// default exists.
func (r *Registry) Reset(ctx context.Context, name string) error {
	def, err := r.resolve(name)
	if err != nil {
		return err
	}
	if err := r.guardImmutable(def); err != nil {
		return err
	}
	r.restoreDefault(def)
	r.log.Debug("reset parameter", "name", def.Name)
	return r.writeThrough(ctx, def)
}

// guardImmutable rejects mutation of an immutable parameter once it has
// been explicitly set.
func (r *Registry) guardImmutable(def *Definition) error {
	if !def.Immutable {
		return nil
	}
	if val, ok := r.values[def.bindName()]; ok && val.isSet {
		return &ImmutableParameterError{Name: def.Name}
	}
	return nil
}

// foldFragments pre-merges multiple raw inputs supplied in one call.
func (r *Registry) foldFragments(def *Definition, raw any) (any, error) {
	switch v := raw.(type) {
	case []any:
		return preMerge(def, v)
	case []string:
		if def.Type == TypeMapping {
			raws := make([]any, len(v))
			for i, s := range v {
				raws[i] = s
			}
			return preMerge(def, raws)
		}
	}
	return raw, nil
}

func (r *Registry) removeValue(def *Definition) {
	delete(r.values, def.bindName())
}

func (r *Registry) restoreDefault(def *Definition) {
	if def.Default != nil {
		r.values[def.bindName()] = &value{data: def.Default, isSet: false}
		return
	}
	delete(r.values, def.bindName())
}

// EnterBatch forces the switch-group policy to reject until the
// matching ExitBatch. Entries nest.
func (r *Registry) EnterBatch() {
	r.batchDepth++
}

// ExitBatch releases one batch-mode entry.
func (r *Registry) ExitBatch() {
	if r.batchDepth > 0 {
		r.batchDepth--
	}
}

// WithBatch runs fn inside batch mode, guaranteeing release on every
// exit path including a panicking parse pass.
func (r *Registry) WithBatch(fn func() error) error {
	r.EnterBatch()
	defer r.ExitBatch()
	return fn()
}

// IsSet reports whether the parameter holds an explicitly assigned
// value, as opposed to its default or nothing.
func (r *Registry) IsSet(nameOrBind string) (bool, error) {
	def, err := r.resolve(nameOrBind)
	if err != nil {
		return false, err
	}
	val, ok := r.values[def.bindName()]
	return ok && val.isSet, nil
}

// Definition returns a copy of the registered definition.
func (r *Registry) Definition(nameOrBind string) (Definition, bool) {
	def, err := r.resolve(nameOrBind)
	if err != nil {
		return Definition{}, false
	}
	return *def, true
}

// Names returns all registered parameter names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)
	return names
}

// MissingRequired returns the required parameters that currently hold
// no value at all, sorted.
func (r *Registry) MissingRequired() []string {
	var missing []string
	for _, name := range r.order {
		def := r.defs[name]
		if !def.Required {
			continue
		}
		if _, ok := r.values[def.bindName()]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// ResetPromptHistory clears the solicitation history for a new parse
// session.
func (r *Registry) ResetPromptHistory() {
	r.promptHistory = make(map[string]struct{})
}

// LoadPersisted applies the settings-store snapshot to persisted
// parameters. Values re-validate and re-normalise on the way in, so
// allowed-value canonicalisation always re-applies on load. Conflict
// checks are skipped: the saved state was consistent when written.
func (r *Registry) LoadPersisted(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	data, err := r.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load persisted parameters: %w", err)
	}
	r.registering = true
	defer func() { r.registering = false }()
	for _, name := range r.order {
		def := r.defs[name]
		if !def.Persisted {
			continue
		}
		raw, ok := data[def.bindName()]
		if !ok {
			continue
		}
		canonical, err := validateValue(def, raw)
		if err != nil {
			return fmt.Errorf("persisted value for %q is invalid: %w", def.Name, err)
		}
		r.values[def.bindName()] = &value{data: canonical, isSet: true}
	}
	return nil
}

// SavePersisted writes the explicitly set values of all persisted
// parameters to the settings store as a flat bind-name mapping.
func (r *Registry) SavePersisted(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	data := make(map[string]any)
	for _, name := range r.order {
		def := r.defs[name]
		if !def.Persisted {
			continue
		}
		if val, ok := r.values[def.bindName()]; ok && val.isSet {
			data[def.bindName()] = val.data
		}
	}
	if err := r.store.Save(ctx, data); err != nil {
		return fmt.Errorf("failed to save persisted parameters: %w", err)
	}
	return nil
}

// writeThrough saves persisted state after a successful mutation of a
// persisted parameter.
func (r *Registry) writeThrough(ctx context.Context, def *Definition) error {
	if !def.Persisted || r.store == nil {
		return nil
	}
	return r.SavePersisted(ctx)
}
