package utils

import (
	"runtime/debug"
)

const (
	unknownVersion     = "unknown"
	develBuildVersion  = "(devel)"
	vcsRevisionSetting = "vcs.revision"
	shortRevisionSize  = 12
)

// GetApplicationVersion reports the module version embedded at build time,
// falling back to the VCS revision and finally to "unknown".
func GetApplicationVersion() string {
	buildInfo, buildInfoAvailable := debug.ReadBuildInfo()
	if !buildInfoAvailable {
		return unknownVersion
	}
	if buildInfo.Main.Version != "" && buildInfo.Main.Version != develBuildVersion {
		return buildInfo.Main.Version
	}
	for _, setting := range buildInfo.Settings {
		if setting.Key != vcsRevisionSetting || setting.Value == "" {
			continue
		}
		if len(setting.Value) > shortRevisionSize {
			return setting.Value[:shortRevisionSize]
		}
		return setting.Value
	}
	return unknownVersion
}
