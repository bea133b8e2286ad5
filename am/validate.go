package am

import (
	"net/url"

	"github.com/teranos/graphex/errors"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Backend base URL must be absolute http(s)
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Wrapf(errors.ErrInvalidRequest, "backend.base_url must be an http(s) URL, got %q", c.Backend.BaseURL)
	}

	// Zero means default for every duration and bound; negative is invalid
	if c.Backend.TimeoutSeconds < 0 {
		return errors.Newf("backend.timeout_seconds must be >= 0, got %d", c.Backend.TimeoutSeconds)
	}
	if c.Backend.MaxRequestsPerSecond < 0 {
		return errors.Newf("backend.max_requests_per_second must be >= 0, got %f", c.Backend.MaxRequestsPerSecond)
	}
	if c.Explorer.StatusAutoHideMS < 0 {
		return errors.Newf("explorer.status_auto_hide_ms must be >= 0, got %d", c.Explorer.StatusAutoHideMS)
	}
	if c.Surface.ResendDelayMS < 0 {
		return errors.Newf("surface.resend_delay_ms must be >= 0, got %d", c.Surface.ResendDelayMS)
	}
	if c.Surface.MaxInboundPerSecond < 0 {
		return errors.Newf("surface.max_inbound_per_second must be >= 0, got %f", c.Surface.MaxInboundPerSecond)
	}
	if c.Console.MaxHistory < 0 {
		return errors.Newf("console.max_history must be >= 0, got %d", c.Console.MaxHistory)
	}
	if c.Console.MaxOutputLines < 0 {
		return errors.Newf("console.max_output_lines must be >= 0, got %d", c.Console.MaxOutputLines)
	}

	// Unknown visualizers would be silently replaced at startup
	if vis := c.Explorer.DefaultVisualizer; vis != "" && !isVisualizer(vis) {
		return errors.Newf("explorer.default_visualizer must be one of %v, got %q", Visualizers, vis)
	}

	return nil
}

func isVisualizer(id string) bool {
	for _, v := range Visualizers {
		if v == id {
			return true
		}
	}
	return false
}
