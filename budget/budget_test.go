package budget_test

import (
	"errors"
	"testing"

	"github.com/xraph/intake/budget"
)

func TestNew_ValidLimits(t *testing.T) {
	tests := []struct {
		limit     int
		workers   int
		batchSize int
	}{
		{1, 1, 1},
		{3, 1, 3},
		{9, 1, 9},
		{10, 1, 10},
		{20, 2, 10},
		{40, 4, 10},
		{100, 10, 10},
	}

	for _, tt := range tests {
		b, err := budget.New(tt.limit)
		if err != nil {
			t.Errorf("New(%d) unexpected error: %v", tt.limit, err)
			continue
		}
		if b.Workers != tt.workers {
			t.Errorf("New(%d).Workers = %d, want %d", tt.limit, b.Workers, tt.workers)
		}
		if b.BatchSize != tt.batchSize {
			t.Errorf("New(%d).BatchSize = %d, want %d", tt.limit, b.BatchSize, tt.batchSize)
		}
		if b.Limit != tt.limit {
			t.Errorf("New(%d).Limit = %d", tt.limit, b.Limit)
		}
	}
}

func TestNew_InvalidLimits(t *testing.T) {
	for _, limit := range []int{0, -1, -10, 11, 15, 19, 21, 25, 99, 101} {
		_, err := budget.New(limit)
		if err == nil {
			t.Errorf("New(%d) expected error, got nil", limit)
			continue
		}
		if !errors.Is(err, budget.ErrInvalidLimit) {
			t.Errorf("New(%d) error = %v, want ErrInvalidLimit", limit, err)
		}
	}
}
