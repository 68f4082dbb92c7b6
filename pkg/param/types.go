package param

import "context"

// Type identifies the declared value type of a parameter.
type Type string

const (
	TypeText     Type = "text"
	TypeNumber   Type = "number"
	TypeToggle   Type = "toggle"
	TypeSequence Type = "sequence"
	TypeMapping  Type = "mapping"
)

// SwitchBehavior selects what happens when setting a parameter whose
// switch group already has another active member.
type SwitchBehavior string

const (
	SwitchReject SwitchBehavior = "reject"
	SwitchUnset  SwitchBehavior = "unset"
	SwitchReset  SwitchBehavior = "reset"
)

// MergeDepth controls how mapping accumulation descends into nested maps.
type MergeDepth string

const (
	MergeShallow MergeDepth = "shallow"
	MergeDeep    MergeDepth = "deep"
)

// OverrideMode resolves key collisions during mapping accumulation.
type OverrideMode string

const (
	FirstWins OverrideMode = "first-wins"
	LastWins  OverrideMode = "last-wins"
)

// PromptTiming declares when interactive solicitation may run.
type PromptTiming string

const (
	PromptOnStart   PromptTiming = "on-start"
	PromptOnCommand PromptTiming = "on-command"
)

// PromptRepeat declares whether a parameter may be solicited more than once.
type PromptRepeat string

const (
	RepeatNever   PromptRepeat = "never"
	RepeatIfBlank PromptRepeat = "if-blank"
	RepeatAlways  PromptRepeat = "always"
)

// PromptPolicy governs interactive solicitation of a parameter's value.
type PromptPolicy struct {
	Timing PromptTiming `validate:"required,oneof=on-start on-command"`
	// Command restricts an on-command policy to one command. Empty
	// matches any command context.
	Command    string
	Repeat     PromptRepeat `validate:"omitempty,oneof=never if-blank always"`
	Sensitive  bool
	RetryLimit int          `validate:"min=0"`
	// Text overrides the prompt text shown to the user. When empty the
	// parameter name is used.
	Text string
}

// Definition describes a single parameter. It is immutable once registered.
type Definition struct {
	// Name is the unique registry key, e.g. "output-format".
	Name string `validate:"required"`
	// BindName is the storage key used for values and persistence.
	// Defaults to Name.
	BindName string
	Type     Type `validate:"required,oneof=text number toggle sequence mapping"`
	// Default is validated and normalised eagerly at registration.
	Default any
	// AllowedValues restricts text, number, and sequence parameters.
	// Entries carry the canonical spelling; matching is case-insensitive
	// for text and sequence elements.
	AllowedValues []string
	SwitchGroup   string
	// SwitchBehavior defaults to SwitchReject.
	SwitchBehavior SwitchBehavior `validate:"omitempty,oneof=reject unset reset"`
	Immutable      bool
	Required       bool
	Persisted      bool
	// JoinSeparator separates accumulated text values. Defaults to a
	// single space.
	JoinSeparator string
	// MergeDepth defaults to MergeShallow. Mapping parameters only.
	MergeDepth MergeDepth `validate:"omitempty,oneof=shallow deep"`
	// OverrideMode defaults to LastWins. Mapping parameters only.
	OverrideMode OverrideMode `validate:"omitempty,oneof=first-wins last-wins"`
	// InputFilter transforms raw solicited input before validation.
	InputFilter func(string) string
	Prompt      *PromptPolicy
	// Description is surfaced as flag usage and prompt description text.
	Description string
	// Shorthand is an optional single-letter flag shorthand.
	Shorthand string `validate:"omitempty,len=1"`
}

// bindName returns the effective storage key.
func (d *Definition) bindName() string {
	if d.BindName != "" {
		return d.BindName
	}
	return d.Name
}

// joinSeparator returns the effective text accumulation separator.
func (d *Definition) joinSeparator() string {
	if d.JoinSeparator != "" {
		return d.JoinSeparator
	}
	return " "
}

// switchBehavior returns the effective conflict policy.
func (d *Definition) switchBehavior() SwitchBehavior {
	if d.SwitchBehavior != "" {
		return d.SwitchBehavior
	}
	return SwitchReject
}

// mergeDepth returns the effective mapping merge depth.
func (d *Definition) mergeDepth() MergeDepth {
	if d.MergeDepth != "" {
		return d.MergeDepth
	}
	return MergeShallow
}

// overrideMode returns the effective collision strategy.
func (d *Definition) overrideMode() OverrideMode {
	if d.OverrideMode != "" {
		return d.OverrideMode
	}
	return LastWins
}

// supportsAllowedValues reports whether the type participates in
// allowed-value checking.
func (d *Definition) supportsAllowedValues() bool {
	switch d.Type {
	case TypeText, TypeNumber, TypeSequence:
		return true
	default:
		return false
	}
}

// value is the mutable association between a bind name and its stored
// data. isSet distinguishes an explicit assignment from a held default.
type value struct {
	data  any
	isSet bool
}

// PromptPhase identifies the execution point a prompt decision is made at.
type PromptPhase string

const (
	PhaseAtStart       PromptPhase = "at-start"
	PhaseBeforeCommand PromptPhase = "before-command"
)

// PromptContext carries the execution context consulted by the prompt
// decision rules.
type PromptContext struct {
	Phase   PromptPhase
	Command string
}

// Decision is the outcome of the prompt decision rules for one parameter.
type Decision string

const (
	DecisionSkip   Decision = "skip"
	DecisionPrompt Decision = "prompt"
)

// Solicitor is the input collaborator used for interactive prompting.
// Implementations block until the user answers or the context is done.
type Solicitor interface {
	Solicit(ctx context.Context, prompt string, hideEcho bool, choices []string) (string, error)
}

// Store is the persistence collaborator. Load returns a flat mapping of
// bind name to value; Save writes one back.
type Store interface {
	Load(ctx context.Context) (map[string]any, error)
	Save(ctx context.Context, values map[string]any) error
}
