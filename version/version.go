// Package version reports what graphex binary is running. The variables are
// stamped at build time:
//
//	go build -ldflags "-X github.com/teranos/graphex/version.Version=v0.3.0 \
//	  -X github.com/teranos/graphex/version.CommitHash=$(git rev-parse HEAD)"
package version

import (
	"fmt"
	"runtime"
)

var (
	// CommitHash is the git commit hash when the binary was built
	CommitHash = "dev"

	// BuildTime is when the binary was built
	BuildTime = "unknown"

	// Version is the semantic version (if tagged)
	Version = "dev"
)

// Info contains version and build information
type Info struct {
	CommitHash string `json:"commit_hash"`
	BuildTime  string `json:"build_time"`
	Version    string `json:"version"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
}

// Get returns the current version information
func Get() Info {
	return Info{
		CommitHash: CommitHash,
		BuildTime:  BuildTime,
		Version:    Version,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String is the line printed by `graphex version`.
func (i Info) String() string {
	return fmt.Sprintf("graphex %s (commit %s, built %s)", i.Version, i.Short(), i.BuildTime)
}

// Short returns at most the first seven characters of the commit hash.
func (i Info) Short() string {
	if len(i.CommitHash) > 7 {
		return i.CommitHash[:7]
	}
	return i.CommitHash
}

// UserAgent identifies graphex to the graph platform backend.
func (i Info) UserAgent() string {
	return fmt.Sprintf("graphex/%s (%s; %s)", i.Version, i.Short(), i.Platform)
}
