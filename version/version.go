// Package version provides build information about the daemon.
package version

// Set at build time via -ldflags, e.g.
//	go build -ldflags "-X handoffd/version.version=v1.0.0 -X handoffd/version.revision=$(git rev-parse HEAD)"
var (
	version  string
	revision string
	branch   string
	date     string
)

// Version returns the tagged version. Is empty if the build was not tagged.
func Version() string {
	return version
}

// Revision returns the revision hash of the last git commit.
func Revision() string {
	return revision
}

// Branch returns the git branch.
func Branch() string {
	return branch
}

// Date returns the build date in RFC3339 format.
func Date() string {
	return date
}

// BestVersion returns the tagged version, or branch@revision when untagged.
func BestVersion() string {
	if version != "" {
		return version
	}
	if branch != "" || revision != "" {
		return branch + "@" + revision
	}
	return "dev"
}
