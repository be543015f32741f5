package consts

import "time"

// The tracking server listens on the loopback interface inside the job
// container, so its address is fixed for every job.
const (
	TrackingHost = "127.0.0.1"
	TrackingPort = 8080
	TrackingURL  = "http://127.0.0.1:8080"
)

// DefaultServerCommand brings up the experiment tracking server that training
// clients report metrics to.
const DefaultServerCommand = "mlflow server --host 127.0.0.1 --port 8080"

// Environment variables consumed by training clients.
const (
	AssetDirEnv    = "ATARI_ROM_DIR"
	TrackingURIEnv = "MLFLOW_TRACKING_URI"
)

// Well-known container paths. The submit binary bind-mounts the asset
// directory and the launch binary at these locations.
const (
	AssetMountPath    = "/root/atari_rom"
	LauncherMountPath = "/usr/local/bin/gymbatch-launch"
)

const LauncherBinaryName = "gymbatch-launch"

// ExitServerNotReady is the code gymbatch-launch exits with when the tracking
// server died or never accepted a connection within the ready window. The
// value is EX_UNAVAILABLE from BSD sysexits, which keeps it clear of the
// 125-127 range container engines reserve for their own launch failures.
const ExitServerNotReady = 69

// Readiness probe defaults.
const (
	DefaultReadyTimeout = 30 * time.Second
	DefaultPollInterval = time.Second
)

// DefaultShmBytes is the default size of /dev/shm in job containers. Replay
// buffers and vectorized-environment workers go through shared memory, and
// the engine default of 64MiB starves them.
const DefaultShmBytes int64 = 16 * 1024 * 1024 * 1024
