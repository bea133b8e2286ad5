package am

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenSettingsWithSources(t *testing.T) {
	settings := map[string]interface{}{
		"backend": map[string]interface{}{
			"base_url": "http://x",
			"endpoints": map[string]interface{}{
				"load": "/l/",
			},
		},
		"console": map[string]interface{}{
			"max_history": 20,
		},
	}
	sources := map[string]SourceInfo{
		"backend.base_url": {Source: SourceUser, Path: "/home/u/.graphex/graphex.toml"},
	}

	ci := &ConfigIntrospection{}
	flattenSettingsWithSources(settings, "", ci, sources)

	require.Len(t, ci.Settings, 3)
	assert.Equal(t, "backend.base_url", ci.Settings[0].Key, "sorted, dotted")
	assert.Equal(t, SourceUser, ci.Settings[0].Source)
	assert.Equal(t, "backend.endpoints.load", ci.Settings[1].Key)
	assert.Equal(t, SourceDefault, ci.Settings[1].Source)
	assert.Equal(t, "built-in default", ci.Settings[1].SourcePath)
}

func TestFlattenSettingsWithSources_EnvironmentWins(t *testing.T) {
	t.Setenv("GRAPHEX_CONSOLE_MAX_HISTORY", "3")

	ci := &ConfigIntrospection{}
	flattenSettingsWithSources(map[string]interface{}{
		"console": map[string]interface{}{"max_history": 3},
	}, "", ci, map[string]SourceInfo{
		"console.max_history": {Source: SourceProject, Path: "graphex.toml"},
	})

	s, ok := ci.Lookup("console.max_history")
	require.True(t, ok)
	assert.Equal(t, SourceEnvironment, s.Source)
	assert.Equal(t, "GRAPHEX_CONSOLE_MAX_HISTORY", s.SourcePath)
}

func TestGetConfigIntrospection(t *testing.T) {
	project := isolate(t)
	path := filepath.Join(project, ConfigFileName)
	writeFile(t, path, "[surface]\nresend_delay_ms = 80\n")

	ci, err := GetConfigIntrospection()
	require.NoError(t, err)

	s, ok := ci.Lookup("surface.resend_delay_ms")
	require.True(t, ok)
	assert.Equal(t, SourceProject, s.Source)
	assert.Equal(t, path, s.SourcePath)

	s, ok = ci.Lookup("console.max_output_lines")
	require.True(t, ok)
	assert.Equal(t, SourceDefault, s.Source)

	_, ok = ci.Lookup("nope")
	assert.False(t, ok)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "GRAPHEX_BACKEND_ENDPOINTS_LOAD", EnvKey("backend.endpoints.load"))
}
