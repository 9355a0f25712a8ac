// Package version carries the build stamp injected with
//
//	-ldflags "-X github.com/shopeasly/easly/common/version.Version=v1.2.0 ..."
package version

var (
	Version   = "v0.0.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Build is the stamp as reported by /health, /status and `easly version`.
type Build struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

// Current returns the stamp of the running binary.
func Current() Build {
	return Build{Version: Version, Commit: GitCommit, BuildTime: BuildTime}
}

// Info returns a one-line description, e.g.
// "easly v1.2.0 (abc123) built at 2025-09-16T10:00:00Z".
func Info() string {
	b := Current()
	return "easly " + b.Version + " (" + b.Commit + ") built at " + b.BuildTime
}
