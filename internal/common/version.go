package common

// GetVersion renders the build as "v1.0.0 (git: 1a2b3c4d)" for health
// checks and the User-Agent.
func GetVersion() string {
	build, ok := GetModuleBuildInfo()
	if !ok {
		return "unknown"
	}
	if commit := build.ShortCommit(); len(commit) > 0 {
		return build.Version + " (git: " + commit + ")"
	}
	return build.Version
}
