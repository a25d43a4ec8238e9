package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/aleksaelezovic/rdfstream/pkg/dispatch"
	"github.com/aleksaelezovic/rdfstream/pkg/feed"
	"github.com/aleksaelezovic/rdfstream/pkg/parser"
	"github.com/aleksaelezovic/rdfstream/pkg/rdf"
)

// DefaultBatchSize is the number of quads written per transaction.
const DefaultBatchSize = 1000

// Listener writes delivered quads into a QuadStore in batches. It declares
// only a quad type, so triples reach it through the feeder's lifter.
type Listener struct {
	feed.Base

	store     *QuadStore
	batchSize int
	batch     []*rdf.Quad

	received int
	inserted int
}

// NewListener creates a listener writing into store. batchSize <= 0 means
// DefaultBatchSize.
func NewListener(store *QuadStore, batchSize int) *Listener {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Listener{
		Base: feed.Base{
			Quads:  dispatch.TypeOf[*rdf.Quad](),
			Logger: store.logger.With(zap.String("component", "store_listener")),
		},
		store:     store,
		batchSize: batchSize,
		batch:     make([]*rdf.Quad, 0, batchSize),
	}
}

func (l *Listener) Quad(ctx context.Context, v any) error {
	q, ok := v.(*rdf.Quad)
	if !ok {
		return fmt.Errorf("store listener: unexpected %T", v)
	}
	l.received++
	l.batch = append(l.batch, q)
	if len(l.batch) >= l.batchSize {
		return l.flush(ctx)
	}
	return nil
}

func (l *Listener) FinishSource(ctx context.Context, src any) error {
	if err := l.flush(ctx); err != nil {
		return err
	}
	l.Logger.Info("source loaded", zap.String("source", parser.Describe(src)), zap.Int("received", l.received))
	return nil
}

func (l *Listener) Finish(ctx context.Context) error {
	return l.flush(ctx)
}

// Received returns the number of quads delivered so far.
func (l *Listener) Received() int {
	return l.received
}

// Inserted returns the number of quads that were new to the store.
func (l *Listener) Inserted() int {
	return l.inserted
}

func (l *Listener) flush(ctx context.Context) error {
	if len(l.batch) == 0 {
		return nil
	}
	n, err := l.store.Insert(ctx, l.batch...)
	l.batch = l.batch[:0]
	if err != nil {
		return err
	}
	l.inserted += n
	return nil
}
