package commands

import (
	"context"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/graphex/am"
	"github.com/teranos/graphex/backend"
	"github.com/teranos/graphex/errors"
	"github.com/teranos/graphex/logger"
	"github.com/teranos/graphex/server"
	"github.com/teranos/graphex/workspace"
)

// ExploreCmd starts the interactive explorer and the surface host
var ExploreCmd = &cobra.Command{
	Use:   "explore [file]",
	Short: "Start the interactive graph explorer",
	Long: `Start the interactive explorer. The graph platform backend loads, queries and
renders graphs; the explorer keeps the tree, summary, query chips and console in
sync and serves the rendered visualizer document on a local surface page.

When a file is given it is loaded right away. Type 'help' at the prompt for the
list of commands.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExplore,
}

var (
	exploreBackendURL string
	exploreListen     string
	exploreNoSurface  bool
	exploreBrowser    bool
	exploreVisualizer string
)

func init() {
	ExploreCmd.Flags().StringVar(&exploreBackendURL, "backend", "", "Graph platform base URL (overrides config)")
	ExploreCmd.Flags().StringVar(&exploreListen, "listen", "", "Surface host address (overrides config)")
	ExploreCmd.Flags().BoolVar(&exploreNoSurface, "no-surface", false, "Do not serve the visual surface")
	ExploreCmd.Flags().BoolVar(&exploreBrowser, "browser", false, "Open the visual surface in the default browser")
	ExploreCmd.Flags().StringVar(&exploreVisualizer, "visualizer", "", "Initial visualizer (overrides config)")
}

func runExplore(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	applyExploreFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api, err := newBackend(cfg)
	if err != nil {
		return err
	}

	// The loop outlives ctx so the workspace can be closed on the way out
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	loop := workspace.NewLoop()
	go func() { _ = loop.Run(loopCtx) }()

	mounts := server.NewMounts()
	opts := workspaceOptions(cfg)
	if !exploreNoSurface {
		opts.Surface = mounts
	}
	ws := workspace.New(ctx, loop, api, opts)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = loop.Do(closeCtx, ws.Close)
	}()

	surfaceURL := ""
	if !exploreNoSurface {
		srv, err := server.New(ctx, loop, ws, mounts, server.Options{
			Addr:                cfg.Surface.ListenAddr,
			AllowedOrigins:      cfg.Surface.AllowedOrigins,
			MaxInboundPerSecond: cfg.Surface.MaxInboundPerSecond,
			Logger:              logger.ComponentLogger("server"),
		})
		if err != nil {
			return errors.Wrap(err, "failed to create surface host")
		}
		addr, err := srv.Start(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to start surface host")
		}
		surfaceURL = "http://" + addr + "/surface"
	}

	if watcher := watchConfig(loop, ws); watcher != nil {
		defer watcher.Stop()
	}

	pterm.Success.Printfln("graphex explorer ready (backend %s)", api.BaseURL())
	if surfaceURL != "" {
		pterm.Info.Printfln("Visual surface: %s", surfaceURL)
		if exploreBrowser {
			openBrowser(surfaceURL)
		}
	}

	sess := newSession(ctx, loop, ws, cmd.OutOrStdout(), surfaceURL)
	if err := sess.watch(); err != nil {
		return err
	}
	if len(args) == 1 {
		if err := cmdLoad(sess, args); err != nil {
			pterm.Error.Println(err.Error())
		}
	}
	return sess.repl(cmd.InOrStdin())
}

// applyExploreFlags lets command line flags override loaded configuration
func applyExploreFlags(cfg *am.Config) {
	if exploreBackendURL != "" {
		cfg.Backend.BaseURL = exploreBackendURL
	}
	if exploreListen != "" {
		cfg.Surface.ListenAddr = exploreListen
	}
	if exploreVisualizer != "" {
		cfg.Explorer.DefaultVisualizer = exploreVisualizer
	}
}

func newBackend(cfg *am.Config) (*backend.Client, error) {
	ep := cfg.Backend.Endpoints
	api, err := backend.New(backend.Options{
		BaseURL:           cfg.Backend.BaseURL,
		Timeout:           cfg.Timeout(),
		RequestsPerSecond: cfg.Backend.MaxRequestsPerSecond,
		BlockPrivateIP:    cfg.Backend.BlockPrivateIP,
		Endpoints: backend.Endpoints{
			Load:    ep.Load,
			Search:  ep.Search,
			Filter:  ep.Filter,
			Reset:   ep.Reset,
			Render:  ep.Render,
			Console: ep.Console,
		},
		Logger: logger.ComponentLogger("backend"),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create backend client")
	}
	return api, nil
}

func workspaceOptions(cfg *am.Config) workspace.Options {
	return workspace.Options{
		Visualizer:     cfg.GetVisualizer(),
		Undirected:     !cfg.Explorer.Directed,
		AutoHide:       cfg.AutoHide(),
		ResendDelay:    cfg.ResendDelay(),
		MaxHistory:     cfg.Console.MaxHistory,
		MaxOutputLines: cfg.Console.MaxOutputLines,
		Logger:         logger.ComponentLogger("workspace"),
	}
}

// watchConfig retunes the running workspace when the nearest config file
// changes. It returns nil when there is no file to watch.
func watchConfig(loop *workspace.Loop, ws *workspace.Workspace) *am.ConfigWatcher {
	path := am.FindProjectConfig()
	if path == "" {
		if p := am.UserConfigPath(); p != "" {
			if _, err := os.Stat(p); err == nil {
				path = p
			}
		}
	}
	if path == "" {
		return nil
	}

	watcher, err := am.NewConfigWatcher(path)
	if err != nil {
		logger.Warnw("Config hot-reload disabled", logger.FieldFile, path, logger.FieldError, err)
		return nil
	}
	watcher.OnReload(func(cfg *am.Config) error {
		loop.Post(func() {
			ws.Tune(cfg.AutoHide(), cfg.ResendDelay(), cfg.Console.MaxHistory, cfg.Console.MaxOutputLines)
		})
		return nil
	})
	watcher.Start()
	am.SetGlobalWatcher(watcher)
	return watcher
}

// openBrowser attempts to open the URL in the default browser
func openBrowser(url string) {
	var err error
	switch runtime.GOOS {
	case "darwin":
		err = exec.Command("open", url).Start()
	case "linux":
		err = exec.Command("xdg-open", url).Start()
	case "windows":
		err = exec.Command("cmd", "/c", "start", url).Start()
	}
	// Silently ignore errors - user can manually open the URL
	_ = err
}
