package version

import "runtime/debug"

// Build-time parameters set via -ldflags.
var Version = "devel"

// A user may install nospawn using `go install`, so version falls back to
// the module version in that case.
func init() {
	if Version != "devel" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		Version = v
	}
}
