package am

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME and the working directory at fresh temp dirs and
// clears cached config. It returns the project directory.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	project := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(project)
	Reset()
	t.Cleanup(Reset)
	return project
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), DefaultDirPermissions))
	require.NoError(t, os.WriteFile(path, []byte(content), DefaultFilePermissions))
}

func TestLoad_Defaults(t *testing.T) {
	// Create isolated viper instance without loading user/system config
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	if err != nil {
		t.Fatalf("LoadWithViper() failed: %v", err)
	}

	if cfg.Backend.BaseURL != DefaultBaseURL {
		t.Errorf("expected default base URL %q, got %q", DefaultBaseURL, cfg.Backend.BaseURL)
	}
	if cfg.Backend.Endpoints.Load != "/api/graph/load/" {
		t.Errorf("expected default load path, got %q", cfg.Backend.Endpoints.Load)
	}
	if !cfg.Explorer.Directed {
		t.Error("expected directed by default")
	}
	if cfg.Surface.ResendDelayMS != 120 {
		t.Errorf("expected resend delay 120, got %d", cfg.Surface.ResendDelayMS)
	}
	if cfg.Console.MaxHistory != 20 || cfg.Console.MaxOutputLines != 120 {
		t.Errorf("unexpected console bounds %+v", cfg.Console)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{Backend: BackendConfig{BaseURL: "http://localhost:8000"}}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "zero values are valid (defaults)", mutate: func(*Config) {}, wantErr: false},
		{name: "https base url", mutate: func(c *Config) { c.Backend.BaseURL = "https://graphs.example.com/root" }, wantErr: false},
		{name: "relative base url", mutate: func(c *Config) { c.Backend.BaseURL = "/api" }, wantErr: true},
		{name: "ftp base url", mutate: func(c *Config) { c.Backend.BaseURL = "ftp://host" }, wantErr: true},
		{name: "negative timeout", mutate: func(c *Config) { c.Backend.TimeoutSeconds = -1 }, wantErr: true},
		{name: "negative request rate", mutate: func(c *Config) { c.Backend.MaxRequestsPerSecond = -0.5 }, wantErr: true},
		{name: "negative auto hide", mutate: func(c *Config) { c.Explorer.StatusAutoHideMS = -1 }, wantErr: true},
		{name: "negative resend delay", mutate: func(c *Config) { c.Surface.ResendDelayMS = -1 }, wantErr: true},
		{name: "negative inbound rate", mutate: func(c *Config) { c.Surface.MaxInboundPerSecond = -1 }, wantErr: true},
		{name: "negative history", mutate: func(c *Config) { c.Console.MaxHistory = -1 }, wantErr: true},
		{name: "negative output lines", mutate: func(c *Config) { c.Console.MaxOutputLines = -1 }, wantErr: true},
		{name: "block visualizer", mutate: func(c *Config) { c.Explorer.DefaultVisualizer = "block" }, wantErr: false},
		{name: "unknown visualizer", mutate: func(c *Config) { c.Explorer.DefaultVisualizer = "radial" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDurations(t *testing.T) {
	var cfg Config
	assert.Equal(t, "30s", cfg.Timeout().String())
	assert.Equal(t, "5s", cfg.AutoHide().String())
	assert.Equal(t, "120ms", cfg.ResendDelay().String())
	assert.Equal(t, "simple", cfg.GetVisualizer())

	cfg.Backend.TimeoutSeconds = 2
	cfg.Explorer.StatusAutoHideMS = 1500
	cfg.Surface.ResendDelayMS = 40
	assert.Equal(t, "2s", cfg.Timeout().String())
	assert.Equal(t, "1.5s", cfg.AutoHide().String())
	assert.Equal(t, "40ms", cfg.ResendDelay().String())
}

func TestFindProjectConfig(t *testing.T) {
	project := isolate(t)
	sub := filepath.Join(project, "a", "b")
	require.NoError(t, os.MkdirAll(sub, DefaultDirPermissions))
	writeFile(t, filepath.Join(project, ConfigFileName), "")
	t.Chdir(sub)

	got := FindProjectConfig()
	require.NotEmpty(t, got)
	assert.True(t, filepath.IsAbs(got))
	assert.Equal(t, ConfigFileName, filepath.Base(got))
}

func TestLoad_MergesUserProjectAndEnv(t *testing.T) {
	project := isolate(t)

	writeFile(t, UserConfigPath(), `
[backend]
base_url = "http://user.example:9000"
timeout_seconds = 12

[console]
max_history = 5
`)
	writeFile(t, filepath.Join(project, ConfigFileName), `
[backend]
timeout_seconds = 7

[explorer]
default_visualizer = "block"
`)
	t.Setenv("GRAPHEX_SURFACE_LISTEN_ADDR", "127.0.0.1:9999")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://user.example:9000", cfg.Backend.BaseURL, "user file")
	assert.Equal(t, 7, cfg.Backend.TimeoutSeconds, "project beats user")
	assert.Equal(t, 5, cfg.Console.MaxHistory)
	assert.Equal(t, "block", cfg.Explorer.DefaultVisualizer)
	assert.Equal(t, "127.0.0.1:9999", cfg.Surface.ListenAddr, "env beats files")
	assert.Equal(t, DefaultMaxOutputLines, cfg.Console.MaxOutputLines, "default")

	again, err := Load()
	require.NoError(t, err)
	assert.Same(t, cfg, again, "cached until Reset")
}

func TestConfigFiles(t *testing.T) {
	project := isolate(t)
	writeFile(t, filepath.Join(project, ConfigFileName), "")

	files := ConfigFiles()
	require.Len(t, files, 3)
	assert.Equal(t, SourceSystem, files[0].Source)
	assert.Equal(t, SourceUser, files[1].Source)
	assert.False(t, files[1].Exists)
	assert.Equal(t, SourceProject, files[2].Source)
	assert.True(t, files[2].Exists)
}
