package version

// Set at build time with -ldflags, e.g.
// go build -ldflags "-X github.com/jopdorp/timberframe/internal/version.Version=0.3.0"
var (
	// Version is the semantic version of the application
	Version = "0.1.0"

	// BuildTime is the time the binary was built
	BuildTime = "unknown"

	// GitCommit is the git commit hash
	GitCommit = "unknown"
)
