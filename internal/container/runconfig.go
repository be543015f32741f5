package container

import "github.com/gymbatch/gymbatch/consts"

// RunConfig holds the client-facing settings every training container gets:
// where environment assets live on the host and whether the client should
// report metrics to the tracking server.
type RunConfig struct {
	// AssetDir is a host directory of environment assets (ROMs). Empty
	// means the job brings no assets.
	AssetDir string
	// ReportMetrics points the client at the in-container tracking
	// server.
	ReportMetrics bool
}

// Apply returns a copy of spec with the run configuration folded in. The
// asset directory is mounted read-only at its well-known path and advertised
// through the environment; metric reporting sets the tracking URI the client
// libraries look for.
func (rc RunConfig) Apply(spec RunSpec) RunSpec {
	out := spec
	out.Env = make(map[string]string, len(spec.Env)+2)
	for k, v := range spec.Env {
		out.Env[k] = v
	}
	out.Volumes = append([]VolumeMount(nil), spec.Volumes...)
	if rc.AssetDir != "" {
		out.Volumes = append(out.Volumes, VolumeMount{Host: rc.AssetDir, Target: consts.AssetMountPath, Mode: "ro"})
		out.Env[consts.AssetDirEnv] = consts.AssetMountPath
	}
	if rc.ReportMetrics {
		out.Env[consts.TrackingURIEnv] = consts.TrackingURL
	}
	return out
}
