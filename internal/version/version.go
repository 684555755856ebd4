// Package version reports build information for the mywebapp binaries.
//
// The values are set at build time:
//
//	go build -ldflags "-X github.com/nov03/bgdeploy-ts/internal/version.version=v1.2.3 \
//	  -X github.com/nov03/bgdeploy-ts/internal/version.buildDate=2024-01-28T10:00:00Z \
//	  -X github.com/nov03/bgdeploy-ts/internal/version.gitCommit=abc1234"
//
// when they are not set the module build info embedded by the go toolchain is used instead.
package version

import "runtime/debug"

var (
	version   = ""
	buildDate = ""
	gitCommit = ""
)

// Info holds the build information
type Info struct {
	Version   string
	BuildDate string
	GitCommit string
}

// Get returns the build information for the running binary
func Get() Info {
	info := Info{
		Version:   version,
		BuildDate: buildDate,
		GitCommit: gitCommit,
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		if info.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.GitCommit == "" {
					info.GitCommit = shortCommit(s.Value)
				}
			case "vcs.time":
				if info.BuildDate == "" {
					info.BuildDate = s.Value
				}
			}
		}
	}

	return withDefaults(info)
}

func withDefaults(info Info) Info {
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.BuildDate == "" {
		info.BuildDate = "unknown"
	}
	if info.GitCommit == "" {
		info.GitCommit = "unknown"
	}
	return info
}

func shortCommit(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}
