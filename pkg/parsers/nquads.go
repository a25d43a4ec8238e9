package parsers

import (
	"context"
	"fmt"
	"io"
	"reflect"

	"github.com/aleksaelezovic/rdfstream/pkg/dispatch"
	"github.com/aleksaelezovic/rdfstream/pkg/errors"
	"github.com/aleksaelezovic/rdfstream/pkg/parser"
	"github.com/aleksaelezovic/rdfstream/pkg/rdf"
	"github.com/aleksaelezovic/rdfstream/pkg/source"
)

// NTriplesParser reads N-Triples documents into *rdf.Triple.
type NTriplesParser struct{}

func (*NTriplesParser) SourceTypes() []reflect.Type { return []reflect.Type{documentType} }
func (*NTriplesParser) Shape() rdf.Shape             { return rdf.ShapeTriple }
func (*NTriplesParser) ValueType() reflect.Type      { return dispatch.TypeOf[*rdf.Triple]() }

func (*NTriplesParser) Accepts(src any) bool {
	return acceptsFormat(src, source.FormatNTriples)
}

func (*NTriplesParser) Open(_ context.Context, src any) (parser.Iterator, error) {
	return openLines(src, func(line int, st *rdf.Statement) (any, error) {
		if st.IsQuad() {
			return nil, errors.Newf(errors.ErrorTypeParse, "line %d: graph term in N-Triples", line)
		}
		return st.AsTriple(), nil
	})
}

// NQuadsParser reads N-Quads documents into *rdf.Quad. Statements without a
// graph are in the default graph.
type NQuadsParser struct{}

func (*NQuadsParser) SourceTypes() []reflect.Type { return []reflect.Type{documentType} }
func (*NQuadsParser) Shape() rdf.Shape             { return rdf.ShapeQuad }
func (*NQuadsParser) ValueType() reflect.Type      { return dispatch.TypeOf[*rdf.Quad]() }

func (*NQuadsParser) Accepts(src any) bool {
	return acceptsFormat(src, source.FormatNQuads)
}

func (*NQuadsParser) Open(_ context.Context, src any) (parser.Iterator, error) {
	return openLines(src, func(_ int, st *rdf.Statement) (any, error) {
		return st.AsQuad(), nil
	})
}

// lineIterator pulls statements from a document one line at a time.
type lineIterator struct {
	doc    *source.Document
	rc     io.ReadCloser
	reader *rdf.NQuadsReader
	build  func(line int, st *rdf.Statement) (any, error)
	closed bool
}

func openLines(src any, build func(int, *rdf.Statement) (any, error)) (parser.Iterator, error) {
	doc, ok := src.(*source.Document)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeInternal, "unexpected source %T", src)
	}
	rc, err := doc.Open()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSource, fmt.Sprintf("opening %s", doc))
	}
	return &lineIterator{doc: doc, rc: rc, reader: rdf.NewNQuadsReader(rc), build: build}, nil
}

func (it *lineIterator) Next(ctx context.Context) (any, bool, error) {
	if it.closed {
		return nil, false, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	st, err := it.reader.Next()
	if err == io.EOF {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, errors.ErrorTypeParse, it.doc.String())
	}
	v, err := it.build(it.reader.Line(), st)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (it *lineIterator) Source() any {
	return it.doc
}

func (it *lineIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	return it.rc.Close()
}
