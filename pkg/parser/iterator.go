package parser

import (
	"context"
	"fmt"
)

// Iterator lazily produces elements of one value type.
type Iterator interface {
	// Next returns the next element, or ok=false once exhausted. A non-nil
	// error is terminal.
	Next(ctx context.Context) (v any, ok bool, err error)
	// Source returns the source that produced the element last returned.
	Source() any
	// Close releases the iterator; it is safe to call more than once.
	Close() error
}

// Empty returns an iterator that is exhausted from the start.
func Empty() Iterator {
	return emptyIterator{}
}

type emptyIterator struct{}

func (emptyIterator) Next(context.Context) (any, bool, error) { return nil, false, nil }
func (emptyIterator) Source() any                             { return nil }
func (emptyIterator) Close() error                            { return nil }

// SliceIterator iterates over an in-memory slice.
type SliceIterator struct {
	src    any
	values []any
	pos    int
}

// NewSliceIterator returns an iterator over values attributed to src.
func NewSliceIterator(src any, values []any) *SliceIterator {
	return &SliceIterator{src: src, values: values}
}

func (it *SliceIterator) Next(ctx context.Context) (any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if it.pos >= len(it.values) {
		return nil, false, nil
	}
	v := it.values[it.pos]
	it.pos++
	return v, true, nil
}

func (it *SliceIterator) Source() any { return it.src }

func (it *SliceIterator) Close() error {
	it.pos = len(it.values)
	return nil
}

// Collect drains it into a slice and closes it.
func Collect(ctx context.Context, it Iterator) ([]any, error) {
	defer it.Close()

	var out []any
	for {
		v, ok, err := it.Next(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}

// Describe returns a short printable description of a source for logs.
func Describe(src any) string {
	switch s := src.(type) {
	case nil:
		return "<nil>"
	case Namer:
		return s.Name()
	case fmt.Stringer:
		return s.String()
	case string:
		return s
	default:
		return fmt.Sprintf("%T", src)
	}
}
