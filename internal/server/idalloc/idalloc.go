// Package idalloc assigns primary keys to new rows. The default strategy
// leaves assignment to the database identity sequence; the dense strategy
// reuses the lowest free id of the table.
package idalloc

import (
	"context"
	"fmt"
	"slices"
)

const (
	Sequence = "sequence"
	Dense    = "dense"
)

// LowestFree returns the smallest positive integer not present in ids.
// Non-positive values and duplicates are ignored.
func LowestFree(ids []int64) int64 {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)

	next := int64(1)
	for _, id := range sorted {
		if id < next {
			continue
		}
		if id > next {
			break
		}
		next++
	}
	return next
}

// Source lists the ids currently used by a table.
type Source interface {
	IDs(ctx context.Context) ([]int64, error)
}

type Allocator struct {
	strategy string
}

func New(strategy string) (*Allocator, error) {
	switch strategy {
	case "", Sequence:
		return &Allocator{strategy: Sequence}, nil
	case Dense:
		return &Allocator{strategy: Dense}, nil
	}
	return nil, fmt.Errorf("unknown id strategy %q", strategy)
}

func (a *Allocator) Strategy() string { return a.strategy }

// Next returns the id to insert with. Zero means "let the database decide".
// Under the dense strategy two concurrent callers may get the same id; the
// primary key rejects the second insert.
func (a *Allocator) Next(ctx context.Context, src Source) (int64, error) {
	if a == nil || a.strategy != Dense {
		return 0, nil
	}
	ids, err := src.IDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list ids: %w", err)
	}
	return LowestFree(ids), nil
}
