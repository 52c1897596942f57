// Package version reports build information for the fininsight binaries.
package version

import (
	"runtime/debug"
	"strings"
)

// Set via -ldflags "-X fininsight/internal/version.Version=..."
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Info is served by /api/version and printed by insightctl version
type Info struct {
	Version     string `json:"version"`
	BuildTime   string `json:"buildTime"`
	GoVersion   string `json:"goVersion"`
	VCSRevision string `json:"vcsRevision,omitempty"`
	VCSTime     string `json:"vcsTime,omitempty"`
	VCSModified bool   `json:"vcsModified"`
}

// Get reads the linker variables and the embedded VCS settings
func Get() Info {
	info := Info{Version: Version, BuildTime: BuildTime}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info = fromBuildInfo(info, bi)
	}
	return info
}

func fromBuildInfo(info Info, bi *debug.BuildInfo) Info {
	info.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.VCSRevision = s.Value
		case "vcs.time":
			info.VCSTime = s.Value
		case "vcs.modified":
			info.VCSModified = s.Value == "true"
		}
	}
	return info
}

// ShortRevision is the first eight characters of the commit hash
func (i Info) ShortRevision() string {
	if len(i.VCSRevision) > 8 {
		return i.VCSRevision[:8]
	}
	return i.VCSRevision
}

func (i Info) String() string {
	parts := []string{"fininsight " + i.Version}
	if i.BuildTime != "unknown" && i.BuildTime != "" {
		parts = append(parts, "built "+i.BuildTime)
	}
	if i.GoVersion != "" {
		parts = append(parts, i.GoVersion)
	}
	if rev := i.ShortRevision(); rev != "" {
		if i.VCSModified {
			rev += "+dirty"
		}
		parts = append(parts, "commit "+rev)
	}
	return strings.Join(parts, ", ")
}

// Check returns a startup warning for builds that cannot be traced to a
// clean commit, or "" when there is nothing to report
func (i Info) Check() string {
	switch {
	case i.VCSModified:
		return "binary built from a modified source tree"
	case i.VCSRevision == "" && i.Version == "dev":
		return "development build without version control information"
	}
	return ""
}
