package param

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
)

// defaultPromptRetries bounds the solicitation loop when the policy
// does not set its own limit.
const defaultPromptRetries = 3

// Decide applies the prompt decision rules for one parameter in the
// given execution context. The rules run in order; the first match
// wins:
//
//  1. an explicitly set value pre-empts prompting
//  2. repeat never + already solicited
//  3. policy timing does not match the context
//  4. repeat if-blank + a non-blank current value
//
// Anything that survives all four requires a prompt.
func (r *Registry) Decide(nameOrBind string, pctx PromptContext) (Decision, error) {
	def, err := r.resolve(nameOrBind)
	if err != nil {
		return DecisionSkip, err
	}
	policy := def.Prompt
	if policy == nil {
		return DecisionSkip, nil
	}
	if val, ok := r.values[def.bindName()]; ok && val.isSet {
		return DecisionSkip, nil
	}
	if policy.repeat() == RepeatNever {
		if _, solicited := r.promptHistory[def.Name]; solicited {
			return DecisionSkip, nil
		}
	}
	if !timingMatches(policy, pctx) {
		return DecisionSkip, nil
	}
	if policy.repeat() == RepeatIfBlank && !r.isBlank(def) {
		return DecisionSkip, nil
	}
	return DecisionPrompt, nil
}

func (p *PromptPolicy) repeat() PromptRepeat {
	if p.Repeat == "" {
		return RepeatNever
	}
	return p.Repeat
}

func timingMatches(policy *PromptPolicy, pctx PromptContext) bool {
	switch policy.Timing {
	case PromptOnStart:
		return pctx.Phase == PhaseAtStart
	case PromptOnCommand:
		if pctx.Phase != PhaseBeforeCommand {
			return false
		}
		return policy.Command == "" || policy.Command == pctx.Command
	default:
		return false
	}
}

// isBlank reports whether the parameter currently holds nothing of
// substance: no value, nil, empty text, or an empty collection.
func (r *Registry) isBlank(def *Definition) bool {
	val, ok := r.values[def.bindName()]
	if !ok || val.data == nil {
		return true
	}
	switch v := val.data.(type) {
	case string:
		return v == ""
	case []string:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}

// PromptIfNeeded runs the decision rules and, when a prompt is
// required, drives solicitation through the configured collaborator:
// raw input is filtered, validated like any Set, and re-requested up to
// the policy's retry limit before the operation fails.
func (r *Registry) PromptIfNeeded(ctx context.Context, nameOrBind string, pctx PromptContext) error {
	def, err := r.resolve(nameOrBind)
	if err != nil {
		return err
	}
	decision, err := r.Decide(def.Name, pctx)
	if err != nil || decision == DecisionSkip {
		return err
	}
	return r.solicit(ctx, def)
}

// PromptAll applies PromptIfNeeded to every registered parameter in
// registration order.
func (r *Registry) PromptAll(ctx context.Context, pctx PromptContext) error {
	for _, name := range r.order {
		if err := r.PromptIfNeeded(ctx, name, pctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) solicit(ctx context.Context, def *Definition) error {
	if r.solicitor == nil {
		return fmt.Errorf("parameter %q requires prompting but no solicitor is configured", def.Name)
	}
	policy := def.Prompt
	limit := policy.RetryLimit
	if limit <= 0 {
		limit = defaultPromptRetries
	}
	attempts := 0
	backoff := retry.WithMaxRetries(uint64(limit-1), retry.NewConstant(time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		raw, err := r.solicitor.Solicit(ctx, promptText(def), policy.Sensitive, def.AllowedValues)
		if err != nil {
			// Solicitation I/O failures are terminal, not retried.
			return err
		}
		if def.InputFilter != nil {
			raw = def.InputFilter(raw)
		}
		if _, err := validateValue(def, raw); err != nil {
			return retry.RetryableError(err)
		}
		// Commit through the normal set path: switch-group and
		// immutability rules still apply and are terminal.
		return r.Set(ctx, def.Name, raw)
	})
	if err != nil {
		if errors.Is(err, ErrValidation) {
			return &PromptValidationExhaustedError{Name: def.Name, Attempts: attempts, Err: err}
		}
		return err
	}
	r.promptHistory[def.Name] = struct{}{}
	return nil
}

func promptText(def *Definition) string {
	if def.Prompt != nil && def.Prompt.Text != "" {
		return def.Prompt.Text
	}
	if def.Description != "" {
		return def.Description
	}
	return def.Name
}
