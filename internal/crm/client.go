// Package crm talks to the legacy CRM's session-based REST endpoint. The
// protocol is form-encoded POSTs carrying a method name and a JSON payload;
// every call after login carries the session handle.
package crm

import "context"

// SessionID is an opaque remote session handle.
type SessionID string

// Client is the remote CRM surface the sync worker consumes.
type Client interface {
	// Authenticate logs in with service credentials and returns a session
	// handle.
	Authenticate(ctx context.Context, username, password string) (SessionID, error)

	// ValidateSession reports whether the session handle is still live.
	ValidateSession(ctx context.Context, id SessionID) (bool, error)

	// UpdateEntity sets fields on a remote record and returns the raw
	// response payload for audit storage.
	UpdateEntity(ctx context.Context, id SessionID, module, entityID string, fields map[string]string) (string, error)
}
