// Package cli adapts a parameter registry to cobra commands: flag
// declaration from definitions, batch-mode application of parsed
// flags, and a terminal prompt collaborator.
package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/paramkit/paramkit/pkg/param"
)

// Bind declares one flag per registered parameter on the command.
// Toggles get a NoOptDefVal so a bare occurrence flips the declared
// default; sequence and mapping parameters are repeatable flags whose
// occurrences accumulate as fragments.
func Bind(cmd *cobra.Command, reg *param.Registry) error {
	flags := cmd.Flags()
	for _, name := range reg.Names() {
		def, ok := reg.Definition(name)
		if !ok {
			continue
		}
		if flags.Lookup(name) != nil {
			return fmt.Errorf("flag %q is already declared on command %q", name, cmd.Name())
		}
		bindFlag(flags, def)
	}
	return nil
}

func bindFlag(flags *pflag.FlagSet, def param.Definition) {
	usage := def.Description
	switch def.Type {
	case param.TypeToggle:
		current := false
		if b, ok := def.Default.(bool); ok {
			current = b
		}
		flags.BoolP(def.Name, def.Shorthand, current, usage)
		flags.Lookup(def.Name).NoOptDefVal = strconv.FormatBool(param.FlipDefault(def))
	case param.TypeNumber:
		flags.StringP(def.Name, def.Shorthand, numberDefault(def), usage)
	case param.TypeSequence, param.TypeMapping:
		flags.StringArrayP(def.Name, def.Shorthand, nil, usage)
	default:
		current, _ := def.Default.(string)
		flags.StringP(def.Name, def.Shorthand, current, usage)
	}
}

// numberDefault renders the declared default for flag help.
func numberDefault(def param.Definition) string {
	switch n := def.Default.(type) {
	case int64:
		return strconv.FormatInt(n, 10)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	default:
		return ""
	}
}

// Apply feeds every flag the user actually passed into the registry,
// inside batch mode so switch-group policy is forced to reject for the
// whole parse pass.
func Apply(ctx context.Context, cmd *cobra.Command, reg *param.Registry) error {
	flags := cmd.Flags()
	return reg.WithBatch(func() error {
		var applyErr error
		flags.Visit(func(f *pflag.Flag) {
			if applyErr != nil {
				return
			}
			def, ok := reg.Definition(f.Name)
			if !ok {
				return
			}
			raw, err := flagValue(flags, def)
			if err != nil {
				applyErr = err
				return
			}
			if err := reg.Set(ctx, def.Name, raw); err != nil {
				applyErr = err
			}
		})
		return applyErr
	})
}

func flagValue(flags *pflag.FlagSet, def param.Definition) (any, error) {
	switch def.Type {
	case param.TypeToggle:
		return flags.GetBool(def.Name)
	case param.TypeSequence, param.TypeMapping:
		return flags.GetStringArray(def.Name)
	default:
		return flags.GetString(def.Name)
	}
}
