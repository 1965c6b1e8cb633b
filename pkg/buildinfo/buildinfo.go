// Package buildinfo exposes the version stamped into the resload binary.
package buildinfo

import (
	"runtime/debug"
	"strings"
)

// BinaryVersion is set at build time via -ldflags. Defaults to "dev".
var BinaryVersion = "dev"

// ModuleVersion returns the module version embedded by the Go toolchain (when available).
func ModuleVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return ""
}

// VCS holds the revision settings recorded by the toolchain.
type VCS struct {
	Revision string
	Time     string
	Modified bool
}

// ReadVCS returns the vcs.* build settings, empty when the binary was built
// outside a checkout.
func ReadVCS() VCS {
	var v VCS
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return v
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			v.Revision = s.Value
		case "vcs.time":
			v.Time = s.Value
		case "vcs.modified":
			v.Modified = strings.EqualFold(s.Value, "true")
		}
	}
	return v
}

// Version prefers the ldflags version, then the module version.
func Version() string {
	if BinaryVersion != "" && BinaryVersion != "dev" {
		return BinaryVersion
	}
	if mv := ModuleVersion(); mv != "" && mv != "(devel)" {
		return mv
	}
	return BinaryVersion
}
