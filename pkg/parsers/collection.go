package parsers

import (
	"context"
	"reflect"

	"github.com/aleksaelezovic/rdfstream/pkg/dispatch"
	"github.com/aleksaelezovic/rdfstream/pkg/errors"
	"github.com/aleksaelezovic/rdfstream/pkg/parser"
	"github.com/aleksaelezovic/rdfstream/pkg/rdf"
	"github.com/aleksaelezovic/rdfstream/pkg/source"
	"github.com/aleksaelezovic/rdfstream/pkg/store"
)

// CollectionParser yields the elements of a *source.Collection as they are.
// Elements may be of any representation, so neither shape nor value type is
// known statically.
type CollectionParser struct{}

func (*CollectionParser) SourceTypes() []reflect.Type {
	return []reflect.Type{dispatch.TypeOf[*source.Collection]()}
}

func (*CollectionParser) Accepts(src any) bool {
	_, ok := src.(*source.Collection)
	return ok
}

func (*CollectionParser) Shape() rdf.Shape        { return rdf.ShapeUnknown }
func (*CollectionParser) ValueType() reflect.Type { return dispatch.TypeOf[any]() }

func (*CollectionParser) Open(_ context.Context, src any) (parser.Iterator, error) {
	c, ok := src.(*source.Collection)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeInternal, "unexpected source %T", src)
	}
	return parser.NewSliceIterator(c, c.Elements), nil
}

// StoreScanParser reads every quad of a *store.QuadStore.
type StoreScanParser struct{}

func (*StoreScanParser) SourceTypes() []reflect.Type {
	return []reflect.Type{dispatch.TypeOf[*store.QuadStore]()}
}

func (*StoreScanParser) Accepts(src any) bool {
	_, ok := src.(*store.QuadStore)
	return ok
}

func (*StoreScanParser) Shape() rdf.Shape        { return rdf.ShapeQuad }
func (*StoreScanParser) ValueType() reflect.Type { return dispatch.TypeOf[*rdf.Quad]() }

func (*StoreScanParser) Open(_ context.Context, src any) (parser.Iterator, error) {
	s, ok := src.(*store.QuadStore)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeInternal, "unexpected source %T", src)
	}
	it, err := s.Scan(nil)
	if err != nil {
		return nil, err
	}
	return &scanIterator{store: s, it: it}, nil
}

type scanIterator struct {
	store *store.QuadStore
	it    *store.QuadIterator
}

func (s *scanIterator) Next(ctx context.Context) (any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if !s.it.Next() {
		return nil, false, s.it.Err()
	}
	return s.it.Quad(), true, nil
}

func (s *scanIterator) Source() any  { return s.store }
func (s *scanIterator) Close() error { return s.it.Close() }
