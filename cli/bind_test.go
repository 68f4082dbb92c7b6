package cli

import (
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paramkit/paramkit/pkg/param"
)

func newCommand() *cobra.Command {
	return &cobra.Command{Use: "app", RunE: func(*cobra.Command, []string) error { return nil }}
}

func TestBind(t *testing.T) {
	t.Run("Should declare one flag per registered parameter", func(t *testing.T) {
		reg := param.New()
		require.NoError(t, reg.Register(param.Definition{Name: "env", Type: param.TypeText, Description: "target environment"}))
		require.NoError(t, reg.Register(param.Definition{Name: "port", Type: param.TypeNumber, Default: int64(8080)}))

		cmd := newCommand()
		require.NoError(t, Bind(cmd, reg))

		env := cmd.Flags().Lookup("env")
		require.NotNil(t, env)
		assert.Equal(t, "target environment", env.Usage)
		port := cmd.Flags().Lookup("port")
		require.NotNil(t, port)
		assert.Equal(t, "8080", port.DefValue)
	})

	t.Run("Should give toggles a bare-occurrence value that flips the default", func(t *testing.T) {
		reg := param.New()
		require.NoError(t, reg.Register(param.Definition{Name: "verbose", Type: param.TypeToggle}))
		require.NoError(t, reg.Register(param.Definition{Name: "color", Type: param.TypeToggle, Default: true}))

		cmd := newCommand()
		require.NoError(t, Bind(cmd, reg))

		assert.Equal(t, "true", cmd.Flags().Lookup("verbose").NoOptDefVal)
		assert.Equal(t, "false", cmd.Flags().Lookup("color").NoOptDefVal)
	})

	t.Run("Should declare shorthand flags", func(t *testing.T) {
		reg := param.New()
		require.NoError(t, reg.Register(param.Definition{Name: "output", Type: param.TypeText, Shorthand: "o"}))

		cmd := newCommand()
		require.NoError(t, Bind(cmd, reg))

		assert.Equal(t, "o", cmd.Flags().Lookup("output").Shorthand)
	})

	t.Run("Should reject a flag name already taken on the command", func(t *testing.T) {
		reg := param.New()
		require.NoError(t, reg.Register(param.Definition{Name: "env", Type: param.TypeText}))

		cmd := newCommand()
		cmd.Flags().String("env", "", "pre-existing")
		assert.Error(t, Bind(cmd, reg))
	})
}

func TestApply(t *testing.T) {
	t.Run("Should set only the flags the user passed", func(t *testing.T) {
		reg := param.New()
		require.NoError(t, reg.Register(param.Definition{Name: "env", Type: param.TypeText, Default: "dev"}))
		require.NoError(t, reg.Register(param.Definition{Name: "port", Type: param.TypeNumber, Default: int64(8080)}))

		cmd := newCommand()
		require.NoError(t, Bind(cmd, reg))
		require.NoError(t, cmd.Flags().Parse([]string{"--env", "prod"}))

		require.NoError(t, Apply(context.Background(), cmd, reg))

		set, err := reg.IsSet("env")
		require.NoError(t, err)
		assert.True(t, set)
		set, err = reg.IsSet("port")
		require.NoError(t, err)
		assert.False(t, set)
	})

	t.Run("Should convert and canonicalise flag text", func(t *testing.T) {
		reg := param.New()
		require.NoError(t, reg.Register(param.Definition{
			Name:          "env",
			Type:          param.TypeText,
			AllowedValues: []string{"Development", "Production"},
		}))
		require.NoError(t, reg.Register(param.Definition{Name: "port", Type: param.TypeNumber}))

		cmd := newCommand()
		require.NoError(t, Bind(cmd, reg))
		require.NoError(t, cmd.Flags().Parse([]string{"--env", "production", "--port", "9090"}))
		require.NoError(t, Apply(context.Background(), cmd, reg))

		env, err := reg.GetString("env")
		require.NoError(t, err)
		assert.Equal(t, "Production", env)
		port, err := reg.GetInt("port")
		require.NoError(t, err)
		assert.Equal(t, int64(9090), port)
	})

	t.Run("Should flip a toggle on a bare flag occurrence", func(t *testing.T) {
		reg := param.New()
		require.NoError(t, reg.Register(param.Definition{Name: "verbose", Type: param.TypeToggle}))

		cmd := newCommand()
		require.NoError(t, Bind(cmd, reg))
		require.NoError(t, cmd.Flags().Parse([]string{"--verbose"}))
		require.NoError(t, Apply(context.Background(), cmd, reg))

		verbose, err := reg.GetBool("verbose")
		require.NoError(t, err)
		assert.True(t, verbose)
	})

	t.Run("Should accumulate repeated mapping occurrences as fragments", func(t *testing.T) {
		reg := param.New()
		require.NoError(t, reg.Register(param.Definition{Name: "labels", Type: param.TypeMapping}))

		cmd := newCommand()
		require.NoError(t, Bind(cmd, reg))
		require.NoError(t, cmd.Flags().Parse([]string{"--labels", `{"team":"infra"}`, "--labels", `{"tier":"web"}`}))
		require.NoError(t, Apply(context.Background(), cmd, reg))

		labels, err := reg.GetMap("labels")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"team": "infra", "tier": "web"}, labels)
	})

	t.Run("Should collect repeated sequence occurrences", func(t *testing.T) {
		reg := param.New()
		require.NoError(t, reg.Register(param.Definition{Name: "tags", Type: param.TypeSequence}))

		cmd := newCommand()
		require.NoError(t, Bind(cmd, reg))
		require.NoError(t, cmd.Flags().Parse([]string{"--tags", "a", "--tags", "b"}))
		require.NoError(t, Apply(context.Background(), cmd, reg))

		tags, err := reg.GetSlice("tags")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, tags)
	})

	t.Run("Should force switch-group rejection for the whole parse pass", func(t *testing.T) {
		reg := param.New()
		require.NoError(t, reg.Register(param.Definition{
			Name: "json", Type: param.TypeToggle, SwitchGroup: "format", SwitchBehavior: param.SwitchUnset,
		}))
		require.NoError(t, reg.Register(param.Definition{
			Name: "yaml", Type: param.TypeToggle, SwitchGroup: "format", SwitchBehavior: param.SwitchUnset,
		}))

		cmd := newCommand()
		require.NoError(t, Bind(cmd, reg))
		require.NoError(t, cmd.Flags().Parse([]string{"--json", "--yaml"}))

		err := Apply(context.Background(), cmd, reg)
		var conflict *param.SwitchConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "format", conflict.Group)
	})

	t.Run("Should surface a validation failure from a flag value", func(t *testing.T) {
		reg := param.New()
		require.NoError(t, reg.Register(param.Definition{Name: "port", Type: param.TypeNumber}))

		cmd := newCommand()
		require.NoError(t, Bind(cmd, reg))
		require.NoError(t, cmd.Flags().Parse([]string{"--port", "eighty"}))

		err := Apply(context.Background(), cmd, reg)
		require.Error(t, err)
		assert.ErrorIs(t, err, param.ErrValidation)
	})
}
