package delivery

import (
	"context"

	"github.com/JeffersonAlvarez16/leoncito/internal/notifications"
)

// PushCapability implements the permission capability over push-token
// registration: notifications are supported when push is configured, and a
// permission request resolves to granted exactly when the user holds at
// least one active token (the token only exists after the user accepted
// the platform prompt on their device).
type PushCapability struct {
	Configured bool
	Tokens     TokenSource
	UserID     string
}

func (c PushCapability) Supported() bool { return c.Configured }

func (c PushCapability) Request(ctx context.Context) (notifications.PermissionState, error) {
	tokens, err := c.Tokens.Tokens(ctx, c.UserID)
	if err != nil {
		return notifications.PermissionDenied, err
	}
	if len(tokens) > 0 {
		return notifications.PermissionGranted, nil
	}
	return notifications.PermissionDenied, nil
}
