// Package version provides build-time version information for mythctl.
//
// Version, Commit, Date, Branch and TreeState are injected at build time via ldflags:
//
//	go build -ldflags "-X github.com/jmylchreest/gomyth/internal/version.Version=x.y.z \
//	                   -X github.com/jmylchreest/gomyth/internal/version.Commit=$(git rev-parse HEAD) \
//	                   -X github.com/jmylchreest/gomyth/internal/version.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package version

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strings"
)

// Build-time variables injected via ldflags.
var (
	// Version is the semantic version following SemVer 2.0.0.
	// Release format: "1.2.3"
	// Prerelease format: "1.2.3-SNAPSHOT.abc1234"
	Version = "dev"

	// Commit is the full git commit SHA.
	Commit = "unknown"

	// Date is the build timestamp in RFC3339 format.
	Date = "unknown"

	// Branch is the git branch the build was made from.
	Branch = "unknown"

	// TreeState is "clean" or "dirty".
	TreeState = "unknown"
)

// ApplicationName is the canonical name of this application.
const ApplicationName = "mythctl"

// Info contains structured version information.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	CommitSHA string `json:"commit_sha"`
	Date      string `json:"date"`
	Branch    string `json:"branch"`
	TreeState string `json:"tree_state"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	Platform  string `json:"platform"`
}

// GetInfo returns all version information as a structured type.
func GetInfo() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		CommitSHA: shortCommit(),
		Date:      Date,
		Branch:    Branch,
		TreeState: TreeState,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

func shortCommit() string {
	if Commit == "unknown" || len(Commit) < 8 {
		return ""
	}
	return Commit[:8]
}

// commitLabel is the short commit with a * suffix for dirty trees.
func commitLabel() string {
	sha := shortCommit()
	if sha != "" && TreeState == "dirty" {
		sha += "*"
	}
	return sha
}

// String returns a human-readable version string.
func String() string {
	info := GetInfo()
	sha := commitLabel()
	if sha == "" {
		return fmt.Sprintf("%s version %s (%s, %s)", ApplicationName, info.Version, info.GoVersion, info.Platform)
	}
	s := fmt.Sprintf("%s version %s (commit: %s, built: %s", ApplicationName, info.Version, sha, info.Date)
	if Branch != "unknown" && Branch != "" {
		s += ", branch: " + Branch
	}
	return s + fmt.Sprintf(", %s, %s)", info.GoVersion, info.Platform)
}

// Short returns the version for cobra's --version output, which prefixes
// the application name itself.
func Short() string {
	if sha := commitLabel(); sha != "" {
		return fmt.Sprintf("%s (%s)", Version, sha)
	}
	return Version
}

// JSON returns the version information as indented JSON.
func JSON() string {
	b, err := json.MarshalIndent(GetInfo(), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

// IsSnapshot returns true if this is a snapshot/prerelease build.
// Snapshots use SemVer prerelease format: X.Y.Z-SNAPSHOT.commitsha
func IsSnapshot() bool {
	return Version == "dev" || strings.Contains(Version, "-SNAPSHOT")
}

// IsRelease returns true if this is a tagged release build.
func IsRelease() bool {
	return !IsSnapshot() && Version != "dev"
}
