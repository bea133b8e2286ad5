package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/graphex/am"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: "Manage graphex configuration",
	Long: `am - Manage graphex configuration ("I am")

Display and manage graphex configuration settings.

Configuration sources (in order of precedence):
1. Command line flags
2. Environment variables (GRAPHEX_* prefix)
3. Project config (./graphex.toml, searched upward)
4. User config (~/.graphex/graphex.toml)
5. System config (/etc/graphex/graphex.toml)
6. Default values

Examples:
  graphex am show                         # Show current configuration
  graphex am show --format json           # Show configuration in JSON format
  graphex am get backend.base_url         # Get specific config value
  graphex am set explorer.directed false  # Persist a value in the project config
  graphex am validate                     # Validate current configuration`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the current graphex configuration from all sources",
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., backend.base_url, surface.listen_addr)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in the project config",
	Long: `Write a configuration value into the project graphex.toml.

The nearest graphex.toml up from the working directory is updated, or a new
one is created in the working directory. The previous file is kept as a
rotating backup. Values are parsed as bool, integer, float or comma
separated list before falling back to a string.`,
	Args: cobra.ExactArgs(2),
	RunE: runAmSet,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	Long:  "Validate that the current graphex configuration is valid",
	RunE:  runAmValidate,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where configuration is loaded from",
	Long: `Show the configuration cascade and which files were checked.

Lists all configuration sources in order of precedence, showing
which files exist and which are missing.`,
	RunE: runAmWhere,
}

var configFormat string

func init() {
	// Add flags
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")

	// Add subcommands
	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amSetCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amWhereCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := am.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	return writeConfig(cmd.OutOrStdout(), cfg, configFormat)
}

// writeConfig marshals cfg in the requested format
func writeConfig(out io.Writer, cfg *am.Config, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}
		fmt.Fprintln(out, string(data))

	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config to YAML: %w", err)
		}
		fmt.Fprintf(out, "# graphex configuration\n%s", string(data))

	case "toml":
		data, err := toml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config to TOML: %w", err)
		}
		fmt.Fprintf(out, "# graphex configuration\n%s", string(data))

	default:
		return fmt.Errorf("unsupported format: %s (supported: toml, json, yaml)", format)
	}
	return nil
}

func runAmGet(cmd *cobra.Command, args []string) error {
	key := args[0]

	if _, err := am.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	// Check if key exists in configuration
	if !am.IsSet(key) {
		return fmt.Errorf("configuration key %q not found", key)
	}

	fmt.Fprintln(cmd.OutOrStdout(), am.Get(key))
	return nil
}

func runAmSet(cmd *cobra.Command, args []string) error {
	key, raw := args[0], args[1]

	path, err := am.ProjectConfigPath()
	if err != nil {
		return err
	}
	if err := am.SetValue(path, key, am.ParseValue(raw)); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	// Reload so the new value is validated with everything else
	am.Reset()
	cfg, err := am.Load()
	if err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		pterm.Warning.Printfln("%s was written but the configuration is now invalid: %v", path, err)
		return nil
	}
	pterm.Success.Printfln("%s = %v (%s)", key, am.Get(key), path)
	return nil
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := am.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration is valid")
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	// Get the full introspection data
	intro, err := am.GetConfigIntrospection()
	if err != nil {
		return fmt.Errorf("failed to get config introspection: %w", err)
	}
	writeCascade(cmd.OutOrStdout(), intro)
	return nil
}

// writeCascade prints the files consulted and every setting grouped by the
// source it came from
func writeCascade(out io.Writer, intro *am.ConfigIntrospection) {
	fmt.Fprintln(out, "Configuration cascade (later overrides earlier):")
	fmt.Fprintln(out, "  1. [DEFAULT]  Built-in defaults")
	for i, f := range intro.Files {
		state := "missing"
		if f.Exists {
			state = "found"
		}
		fmt.Fprintf(out, "  %d. %-10s %s (%s)\n", i+2, "["+strings.ToUpper(string(f.Source))+"]", f.Path, state)
	}
	fmt.Fprintf(out, "  %d. [ENV]      %s_* environment variables\n", len(intro.Files)+2, am.EnvPrefix)
	fmt.Fprintln(out)

	bySource := make(map[am.ConfigSource][]am.SettingInfo)
	paths := make(map[am.ConfigSource]string)
	for _, setting := range intro.Settings {
		bySource[setting.Source] = append(bySource[setting.Source], setting)
		if setting.Source != am.SourceEnvironment && setting.SourcePath != "" {
			paths[setting.Source] = setting.SourcePath
		}
	}

	// Define source order for consistent output
	sourceOrder := []am.ConfigSource{
		am.SourceDefault,
		am.SourceSystem,
		am.SourceUser,
		am.SourceProject,
		am.SourceEnvironment,
	}

	fmt.Fprintln(out, "Active configuration:")
	for _, source := range sourceOrder {
		settings := bySource[source]
		if len(settings) == 0 {
			continue
		}
		sort.Slice(settings, func(i, j int) bool { return settings[i].Key < settings[j].Key })

		switch {
		case paths[source] != "":
			fmt.Fprintf(out, "\n%s: %d settings from %s\n", source, len(settings), paths[source])
		case source == am.SourceEnvironment:
			fmt.Fprintf(out, "\n%s: %d settings from environment variables\n", source, len(settings))
		default:
			fmt.Fprintf(out, "\n%s: %d settings\n", source, len(settings))
		}

		for _, setting := range settings {
			// Format the value for display
			valueStr := fmt.Sprintf("%v", setting.Value)
			// Truncate long values
			if len(valueStr) > 50 {
				valueStr = valueStr[:47] + "..."
			}
			fmt.Fprintf(out, "  %s = %s\n", setting.Key, valueStr)
		}
	}
}
