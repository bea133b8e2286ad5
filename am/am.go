// Package am ("as mentioned") loads graphex configuration from TOML files and
// GRAPHEX_* environment variables.
package am

// Config represents the graphex configuration
type Config struct {
	Backend  BackendConfig  `mapstructure:"backend" json:"backend" yaml:"backend" toml:"backend"`
	Explorer ExplorerConfig `mapstructure:"explorer" json:"explorer" yaml:"explorer" toml:"explorer"`
	Surface  SurfaceConfig  `mapstructure:"surface" json:"surface" yaml:"surface" toml:"surface"`
	Console  ConsoleConfig  `mapstructure:"console" json:"console" yaml:"console" toml:"console"`
}

// BackendConfig configures the graph platform client
type BackendConfig struct {
	BaseURL              string          `mapstructure:"base_url" json:"base_url" yaml:"base_url" toml:"base_url"`
	TimeoutSeconds       int             `mapstructure:"timeout_seconds" json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds"`                                 // Per-request timeout (default: 30)
	MaxRequestsPerSecond float64         `mapstructure:"max_requests_per_second" json:"max_requests_per_second" yaml:"max_requests_per_second" toml:"max_requests_per_second"` // 0 = unlimited
	BlockPrivateIP       bool            `mapstructure:"block_private_ip" json:"block_private_ip" yaml:"block_private_ip" toml:"block_private_ip"`                             // Refuse private and loopback backends
	Endpoints            EndpointsConfig `mapstructure:"endpoints" json:"endpoints" yaml:"endpoints" toml:"endpoints"`
}

// EndpointsConfig overrides collaborator paths. Empty means the default path.
type EndpointsConfig struct {
	Load    string `mapstructure:"load" json:"load" yaml:"load" toml:"load"`
	Search  string `mapstructure:"search" json:"search" yaml:"search" toml:"search"`
	Filter  string `mapstructure:"filter" json:"filter" yaml:"filter" toml:"filter"`
	Reset   string `mapstructure:"reset" json:"reset" yaml:"reset" toml:"reset"`
	Render  string `mapstructure:"render" json:"render" yaml:"render" toml:"render"`
	Console string `mapstructure:"console" json:"console" yaml:"console" toml:"console"`
}

// ExplorerConfig configures the workspace
type ExplorerConfig struct {
	DefaultVisualizer string `mapstructure:"default_visualizer" json:"default_visualizer" yaml:"default_visualizer" toml:"default_visualizer"` // simple or block
	Directed          bool   `mapstructure:"directed" json:"directed" yaml:"directed" toml:"directed"`
	StatusAutoHideMS  int    `mapstructure:"status_auto_hide_ms" json:"status_auto_hide_ms" yaml:"status_auto_hide_ms" toml:"status_auto_hide_ms"` // Success banner lifetime (default: 5000)
}

// SurfaceConfig configures the surface host
type SurfaceConfig struct {
	ListenAddr          string   `mapstructure:"listen_addr" json:"listen_addr" yaml:"listen_addr" toml:"listen_addr"`
	ResendDelayMS       int      `mapstructure:"resend_delay_ms" json:"resend_delay_ms" yaml:"resend_delay_ms" toml:"resend_delay_ms"`                             // Selection resend delay (default: 120)
	MaxInboundPerSecond float64  `mapstructure:"max_inbound_per_second" json:"max_inbound_per_second" yaml:"max_inbound_per_second" toml:"max_inbound_per_second"` // Per mount
	AllowedOrigins      []string `mapstructure:"allowed_origins" json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins"`
}

// ConsoleConfig bounds the console lists
type ConsoleConfig struct {
	MaxHistory     int `mapstructure:"max_history" json:"max_history" yaml:"max_history" toml:"max_history"`
	MaxOutputLines int `mapstructure:"max_output_lines" json:"max_output_lines" yaml:"max_output_lines" toml:"max_output_lines"`
}

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)

// Config file names
const (
	ConfigFileName = "graphex.toml"
	ConfigDirName  = ".graphex"
	SystemConfig   = "/etc/graphex/graphex.toml"
	EnvPrefix      = "GRAPHEX"
)
