package notifications

import "context"

// StaticCapability is a Capability with a fixed answer. Used in development
// mode (always granted) and in tests.
type StaticCapability struct {
	IsSupported bool
	Result      PermissionState
}

func (c StaticCapability) Supported() bool { return c.IsSupported }

func (c StaticCapability) Request(ctx context.Context) (PermissionState, error) {
	return c.Result, nil
}
