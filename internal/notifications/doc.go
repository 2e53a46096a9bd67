// Package notifications delivers batch outcomes through ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers can notify unconditionally.
package notifications
