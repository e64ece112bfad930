// File: internal/detect/errors.go
package detect

import "errors"

// ErrNoDetectors indicates that every configured detection strategy failed to
// arm, leaving the watcher with no way to ever observe completion.
var ErrNoDetectors = errors.New("no detector could be started")
