// Package budget translates a caller-requested concurrency limit into
// the number of parallel long-poll workers required to sustain it and
// the batch size each receive call should ask for.
//
// The remote backend caps a single receive request at ten messages, so
// limits above ten are spread across ten-message workers. A limit that
// cannot be spread evenly is a configuration error and is rejected at
// construction rather than at first fetch.
package budget

import (
	"errors"
	"fmt"
)

// maxBatch is the backend's per-request message cap.
const maxBatch = 10

// ErrInvalidLimit is returned for limits that cannot be spread evenly
// across workers: anything above ten that is not a multiple of ten,
// and anything not positive.
var ErrInvalidLimit = errors.New("intake/budget: concurrency limit must be 1-10 or a multiple of 10")

// Budget is the derived fetch plan for a concurrency limit.
type Budget struct {
	// Limit is the caller-requested concurrency ceiling.
	Limit int

	// Workers is the number of parallel long-poll cycles required to
	// keep Limit messages in flight.
	Workers int

	// BatchSize is the number of messages each receive call asks for,
	// at most the backend's per-request cap.
	BatchSize int
}

// New derives a Budget from the requested limit.
func New(limit int) (Budget, error) {
	if limit <= 0 {
		return Budget{}, fmt.Errorf("%w: got %d", ErrInvalidLimit, limit)
	}

	b := Budget{Limit: limit, Workers: 1, BatchSize: limit}
	if limit <= maxBatch {
		return b, nil
	}

	if limit%maxBatch != 0 {
		return Budget{}, fmt.Errorf("%w: got %d", ErrInvalidLimit, limit)
	}

	b.Workers = limit / maxBatch
	b.BatchSize = maxBatch
	return b, nil
}
