package am

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Default values shared by SetDefaults and the accessors
const (
	DefaultBaseURL              = "http://localhost:8000"
	DefaultTimeoutSeconds       = 30
	DefaultMaxRequestsPerSecond = 10.0
	DefaultVisualizer           = "simple"
	DefaultStatusAutoHideMS     = 5000
	DefaultListenAddr           = "127.0.0.1:8765"
	DefaultResendDelayMS        = 120
	DefaultMaxInboundPerSecond  = 20.0
	DefaultMaxHistory           = 20
	DefaultMaxOutputLines       = 120
)

// Visualizers accepted by explorer.default_visualizer
var Visualizers = []string{"simple", "block"}

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Backend defaults
	v.SetDefault("backend.base_url", DefaultBaseURL)
	v.SetDefault("backend.timeout_seconds", DefaultTimeoutSeconds)
	v.SetDefault("backend.max_requests_per_second", DefaultMaxRequestsPerSecond)
	v.SetDefault("backend.block_private_ip", false) // Local backends are the common case
	v.SetDefault("backend.endpoints.load", "/api/graph/load/")
	v.SetDefault("backend.endpoints.search", "/api/graph/search/")
	v.SetDefault("backend.endpoints.filter", "/api/graph/filter/")
	v.SetDefault("backend.endpoints.reset", "/api/workspace/reset/")
	v.SetDefault("backend.endpoints.render", "/api/render/")
	v.SetDefault("backend.endpoints.console", "/api/cli/execute/")

	// Explorer defaults
	v.SetDefault("explorer.default_visualizer", DefaultVisualizer)
	v.SetDefault("explorer.directed", true)
	v.SetDefault("explorer.status_auto_hide_ms", DefaultStatusAutoHideMS)

	// Surface defaults
	v.SetDefault("surface.listen_addr", DefaultListenAddr)
	v.SetDefault("surface.resend_delay_ms", DefaultResendDelayMS)
	v.SetDefault("surface.max_inbound_per_second", DefaultMaxInboundPerSecond)
	v.SetDefault("surface.allowed_origins", []string{
		"http://localhost",
		"https://localhost",
		"http://127.0.0.1",
		"https://127.0.0.1",
	})

	// Console defaults
	v.SetDefault("console.max_history", DefaultMaxHistory)
	v.SetDefault("console.max_output_lines", DefaultMaxOutputLines)
}

// BindEnvVars explicitly binds nested keys whose names AutomaticEnv would not
// find on Unmarshal
func BindEnvVars(v *viper.Viper) {
	v.BindEnv("backend.base_url", EnvPrefix+"_BACKEND_BASE_URL")
	v.BindEnv("backend.timeout_seconds", EnvPrefix+"_BACKEND_TIMEOUT_SECONDS")
	v.BindEnv("backend.block_private_ip", EnvPrefix+"_BACKEND_BLOCK_PRIVATE_IP")
	v.BindEnv("surface.listen_addr", EnvPrefix+"_SURFACE_LISTEN_ADDR")
	v.BindEnv("explorer.default_visualizer", EnvPrefix+"_EXPLORER_DEFAULT_VISUALIZER")
}

// Timeout returns the backend request timeout
func (c *Config) Timeout() time.Duration {
	if c.Backend.TimeoutSeconds <= 0 {
		return DefaultTimeoutSeconds * time.Second
	}
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

// AutoHide returns how long a load success stays visible
func (c *Config) AutoHide() time.Duration {
	if c.Explorer.StatusAutoHideMS <= 0 {
		return DefaultStatusAutoHideMS * time.Millisecond
	}
	return time.Duration(c.Explorer.StatusAutoHideMS) * time.Millisecond
}

// ResendDelay returns the selection resend delay
func (c *Config) ResendDelay() time.Duration {
	if c.Surface.ResendDelayMS <= 0 {
		return DefaultResendDelayMS * time.Millisecond
	}
	return time.Duration(c.Surface.ResendDelayMS) * time.Millisecond
}

// GetVisualizer returns the default visualizer (default: simple)
func (c *Config) GetVisualizer() string {
	if c.Explorer.DefaultVisualizer == "" {
		return DefaultVisualizer
	}
	return c.Explorer.DefaultVisualizer
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Backend: %s, Explorer: {Visualizer: %s, Directed: %t}, Surface: %s}",
		c.Backend.BaseURL, c.GetVisualizer(), c.Explorer.Directed, c.Surface.ListenAddr)
}
