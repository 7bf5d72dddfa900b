// Package query is the execution surface: typed node and relationship
// queries, aggregation records, traversals, and entity CRUD, all running
// through a dialect.Driver.
package query

import (
	"context"

	"github.com/syssam/neogm/dialect"
)

// A Stream yields decoded results one at a time while the underlying
// cursor stays open, holding one in-flight row. Rows belonging to one
// entity arrive contiguously, so grouping happens with a single peeked
// row of lookahead.
type Stream[T any] struct {
	cur    dialect.Cursor
	key    func(dialect.Record) string
	decode func([]dialect.Record) (T, error)

	peeked  *dialect.Record
	current T
	err     error
	done    bool
}

func newStream[T any](cur dialect.Cursor, key func(dialect.Record) string, decode func([]dialect.Record) (T, error)) *Stream[T] {
	return &Stream[T]{cur: cur, key: key, decode: decode}
}

// Next advances to the next result. It returns false at the end of the
// stream or on error; Err distinguishes the two. Cancelling ctx stops the
// stream and releases the cursor.
func (s *Stream[T]) Next(ctx context.Context) bool {
	if s.done || s.err != nil {
		return false
	}
	batch, ok := s.nextBatch(ctx)
	if !ok {
		return false
	}
	v, err := s.decode(batch)
	if err != nil {
		s.fail(ctx, err)
		return false
	}
	s.current = v
	return true
}

// nextBatch collects the contiguous run of rows sharing one group key.
func (s *Stream[T]) nextBatch(ctx context.Context) ([]dialect.Record, bool) {
	var batch []dialect.Record
	var key string
	if s.peeked != nil {
		batch = append(batch, *s.peeked)
		key = s.key(*s.peeked)
		s.peeked = nil
	}
	for {
		if err := ctx.Err(); err != nil {
			s.fail(ctx, err)
			return nil, false
		}
		if !s.cur.Next(ctx) {
			if err := s.cur.Err(); err != nil {
				s.fail(ctx, err)
				return nil, false
			}
			s.done = true
			return batch, len(batch) > 0
		}
		rec := s.cur.Record()
		if batch == nil {
			batch = append(batch, rec)
			key = s.key(rec)
			continue
		}
		if s.key(rec) != key {
			s.peeked = &rec
			return batch, true
		}
		batch = append(batch, rec)
	}
}

func (s *Stream[T]) fail(ctx context.Context, err error) {
	s.err = err
	s.done = true
	_ = s.cur.Close(ctx)
}

// Item returns the result produced by the last successful Next.
func (s *Stream[T]) Item() T {
	return s.current
}

// Err returns the first error the stream hit, if any.
func (s *Stream[T]) Err() error {
	return s.err
}

// Close releases the underlying cursor. Safe to call more than once.
func (s *Stream[T]) Close(ctx context.Context) error {
	s.done = true
	return s.cur.Close(ctx)
}
