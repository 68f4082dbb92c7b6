package store

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Load(t *testing.T) {
	t.Run("Should return an empty mapping for a missing file", func(t *testing.T) {
		s := New("settings.yaml", WithFs(afero.NewMemMapFs()))
		values, err := s.Load(context.Background())
		require.NoError(t, err)
		assert.Empty(t, values)
	})

	t.Run("Should parse a flat YAML mapping", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		content := "env: Production\nport: 8080\nverbose: true\ntags:\n  - a\n  - b\n"
		require.NoError(t, afero.WriteFile(fs, "settings.yaml", []byte(content), 0o600))

		s := New("settings.yaml", WithFs(fs))
		values, err := s.Load(context.Background())
		require.NoError(t, err)

		assert.Equal(t, "Production", values["env"])
		assert.EqualValues(t, 8080, values["port"])
		assert.Equal(t, true, values["verbose"])
		assert.Len(t, values["tags"], 2)
	})

	t.Run("Should keep bind names containing dots intact", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "settings.yaml", []byte("server.port: 80\n"), 0o600))

		s := New("settings.yaml", WithFs(fs))
		values, err := s.Load(context.Background())
		require.NoError(t, err)
		assert.EqualValues(t, 80, values["server.port"])
	})

	t.Run("Should drop nil values", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "settings.yaml", []byte("env:\nport: 80\n"), 0o600))

		s := New("settings.yaml", WithFs(fs))
		values, err := s.Load(context.Background())
		require.NoError(t, err)
		assert.NotContains(t, values, "env")
		assert.EqualValues(t, 80, values["port"])
	})

	t.Run("Should fail on malformed YAML", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "settings.yaml", []byte("{invalid"), 0o600))

		s := New("settings.yaml", WithFs(fs))
		_, err := s.Load(context.Background())
		assert.Error(t, err)
	})
}

func TestStore_Save(t *testing.T) {
	t.Run("Should round-trip a flat mapping", func(t *testing.T) {
		ctx := context.Background()
		s := New("nested/dir/settings.yaml", WithFs(afero.NewMemMapFs()))

		in := map[string]any{
			"env":     "Production",
			"port":    int64(8080),
			"verbose": true,
			"tags":    []string{"a", "b"},
			"labels":  map[string]any{"team": "infra"},
		}
		require.NoError(t, s.Save(ctx, in))

		out, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Production", out["env"])
		assert.EqualValues(t, 8080, out["port"])
		assert.Equal(t, true, out["verbose"])
		assert.Len(t, out["tags"], 2)
		labels, ok := out["labels"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "infra", labels["team"])
	})

	t.Run("Should overwrite previous contents", func(t *testing.T) {
		ctx := context.Background()
		s := New("settings.yaml", WithFs(afero.NewMemMapFs()))

		require.NoError(t, s.Save(ctx, map[string]any{"old": "value"}))
		require.NoError(t, s.Save(ctx, map[string]any{"new": "value"}))

		out, err := s.Load(ctx)
		require.NoError(t, err)
		assert.NotContains(t, out, "old")
		assert.Equal(t, "value", out["new"])
	})
}
