package parsers

import (
	"context"
	"fmt"
	"io"
	"reflect"

	gojson "github.com/goccy/go-json"

	"github.com/aleksaelezovic/rdfstream/pkg/dispatch"
	"github.com/aleksaelezovic/rdfstream/pkg/errors"
	"github.com/aleksaelezovic/rdfstream/pkg/lexical"
	"github.com/aleksaelezovic/rdfstream/pkg/parser"
	"github.com/aleksaelezovic/rdfstream/pkg/rdf"
	"github.com/aleksaelezovic/rdfstream/pkg/source"
)

// JSONLinesParser reads a stream of JSON objects with "subject",
// "predicate", "object" and optional "graph" members holding N-Triples
// terms. Objects without a graph are delivered as lexical.Triple, the others
// as lexical.Quad, so the declared shape is unknown.
type JSONLinesParser struct{}

func (*JSONLinesParser) SourceTypes() []reflect.Type { return []reflect.Type{documentType} }
func (*JSONLinesParser) Shape() rdf.Shape             { return rdf.ShapeUnknown }
func (*JSONLinesParser) ValueType() reflect.Type      { return dispatch.TypeOf[lexical.Quad]() }

func (*JSONLinesParser) Accepts(src any) bool {
	return acceptsFormat(src, source.FormatJSONLines)
}

func (*JSONLinesParser) Parse(ctx context.Context, src any, h parser.Handler) (err error) {
	doc, ok := src.(*source.Document)
	if !ok {
		return errors.Newf(errors.ErrorTypeInternal, "unexpected source %T", src)
	}
	rc, err := doc.Open()
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeSource, fmt.Sprintf("opening %s", doc))
	}
	defer rc.Close()

	if err := h.Start(ctx, src); err != nil {
		return errors.Join(err, h.FinishSource(ctx, src))
	}
	defer func() {
		if ferr := h.FinishSource(ctx, src); err == nil {
			err = ferr
		}
	}()

	dec := gojson.NewDecoder(rc)
	for record := 1; ; record++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		var q lexical.Quad
		if err := dec.Decode(&q); err != nil {
			if err == io.EOF {
				return nil
			}
			return errors.Wrap(err, errors.ErrorTypeParse, fmt.Sprintf("%s: record %d", doc, record))
		}
		if q.Subject == "" || q.Predicate == "" || q.Object == "" {
			return errors.Newf(errors.ErrorTypeParse, "%s: record %d: subject, predicate and object are required", doc, record)
		}

		var cont bool
		if q.Graph == "" {
			cont, err = h.FeedTriple(ctx, q.Triple())
		} else {
			cont, err = h.FeedQuad(ctx, q)
		}
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
}
