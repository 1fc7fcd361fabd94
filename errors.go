package intake

import "errors"

var (
	// Configuration errors, raised at construction.
	ErrNoQueueURL = errors.New("intake: queue URL must not be empty")
	ErrNoBackend  = errors.New("intake: backend client must not be nil")
	ErrNilLogger  = errors.New("intake: logger must not be nil")
	ErrNilHandler = errors.New("intake: handler must not be nil")

	// Lifecycle errors.
	ErrClosed = errors.New("intake: consumer is closed")

	// ErrNotPurgeable guards Purge: the queue URL must carry the
	// PurgeMarker so a production queue cannot be wiped by accident.
	ErrNotPurgeable = errors.New("intake: queue URL does not carry the purgeable marker")
)
