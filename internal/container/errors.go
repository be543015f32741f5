package container

import "errors"

var (
	// ErrVolumeMount reports a volume triple that cannot be mounted: a
	// malformed spec, a host path that does not exist, a relative
	// container path, or an unknown access mode.
	ErrVolumeMount = errors.New("invalid volume mount")

	// ErrNameConflict reports a requested container name that is already
	// in use on the host. The check is advisory; the engine still
	// enforces uniqueness at run time.
	ErrNameConflict = errors.New("container name conflict")
)
