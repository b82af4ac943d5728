package version

// Package version holds build-time metadata injected via -ldflags. When
// nothing is injected the helpers fall back to development defaults.

var (
	// Version is a SemVer release tag like v1.2.3. Empty for dev builds.
	Version = ""
	// Commit is the short git SHA the binary was built from.
	Commit = ""
	// Date is the UTC build timestamp in RFC3339 format.
	Date = ""
	// Dirty is "dirty" when the tree had uncommitted changes at build time.
	Dirty = ""
)

// String returns a compact version for the health endpoint: the release
// tag when set, otherwise "dev-<sha>" ("dev-<sha>*" for dirty trees), or
// plain "dev" when no metadata was injected.
func String() string {
	if Version != "" {
		return Version
	}
	if Commit != "" {
		suffix := Commit
		if Dirty == "dirty" {
			suffix += "*"
		}
		return "dev-" + suffix
	}
	return "dev"
}
