package ingest

import (
	"context"
	stderrors "errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/aleksaelezovic/rdfstream/internal/logger"
	"github.com/aleksaelezovic/rdfstream/internal/metrics"
	"github.com/aleksaelezovic/rdfstream/pkg/errors"
	"github.com/aleksaelezovic/rdfstream/pkg/feed"
	"github.com/aleksaelezovic/rdfstream/pkg/parser"
)

// Parse pushes every element of sources into listener, in source order.
//
// A failing source is reported to OnSourceError, whose result decides
// whether the next source is parsed. An interrupt from any listener method
// stops everything and is returned. Finish is called exactly once on every
// path.
func (e *Engine) Parse(ctx context.Context, listener feed.Listener, sources ...any) (err error) {
	ctx, span := tracer.Start(ctx, "ingest.parse", trace.WithAttributes(
		attribute.Int("sources", len(sources)),
	))
	defer span.End()

	feeder, err := feed.NewFeeder(listener, e.feedOptions()...)
	if err != nil {
		return stderrors.Join(err, listener.Finish(ctx))
	}
	defer func() {
		if ferr := feeder.Finish(ctx); ferr != nil {
			err = stderrors.Join(err, ferr)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	for _, src := range sources {
		cont, err := e.parseSource(ctx, feeder, src)
		if err != nil {
			return err
		}
		if !cont {
			e.logger.Debug("parsing stopped by listener", zap.String("source", parser.Describe(src)))
			return nil
		}
	}
	return nil
}

// parseSource parses src, recursing into sequences. The error result is
// reserved for conditions that stop all sources.
func (e *Engine) parseSource(ctx context.Context, feeder *feed.Feeder, src any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	norm, err := e.normalizer.Normalize(ctx, src)
	if err != nil {
		err = errors.Wrap(err, errors.ErrorTypeSource, fmt.Sprintf("normalizing %s", parser.Describe(src)))
		return e.sourceFailed(ctx, feeder, src, err)
	}

	if seq, ok := norm.(parser.Sequence); ok {
		for member := range seq.Sources() {
			cont, err := e.parseSource(ctx, feeder, member)
			if err != nil || !cont {
				return cont, err
			}
		}
		return true, nil
	}

	err = e.parseOne(ctx, feeder, norm)
	switch {
	case err == nil:
		metrics.SourcesProcessed.WithLabelValues("ok").Inc()
		return true, nil
	case errors.IsInterrupted(err):
		metrics.SourcesProcessed.WithLabelValues("interrupted").Inc()
		return false, err
	case ctx.Err() != nil:
		return false, ctx.Err()
	default:
		return e.sourceFailed(ctx, feeder, norm, err)
	}
}

func (e *Engine) sourceFailed(ctx context.Context, feeder *feed.Feeder, src any, err error) (bool, error) {
	outcome := "error"
	if errors.IsType(err, errors.ErrorTypeNoParser) {
		outcome = "no_parser"
	}
	metrics.SourcesProcessed.WithLabelValues(outcome).Inc()
	return feeder.Listener().OnSourceError(ctx, src, err), nil
}

// parseOne hands a canonical source to a push parser, or drives a pull
// parser through the feeder when no push parser accepts it.
func (e *Engine) parseOne(ctx context.Context, feeder *feed.Feeder, src any) (err error) {
	desc := parser.Describe(src)
	ctx = logger.WithSource(ctx, desc)
	ctx, span := tracer.Start(ctx, "ingest.source", trace.WithAttributes(attribute.String("source", desc)))
	defer func() {
		if err != nil && !errors.IsInterrupted(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if p, ok := e.parsers.FindPushParser(src); ok {
		return e.push(ctx, feeder, p, src)
	}
	if p, ok := e.parsers.FindPullParser(src); ok {
		return e.drive(ctx, feeder, p, src)
	}
	return noParser(src)
}

func (e *Engine) push(ctx context.Context, feeder *feed.Feeder, p parser.PushParser, src any) (err error) {
	depth := feeder.Depth()
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf(errors.ErrorTypeInternal, "parser panic: %v", r)
		}
		// a parser that fails between Start and FinishSource leaves sources open
		for feeder.Depth() > depth {
			open := feeder.Source()
			logger.WithContext(ctx).Warn("closing source left open by parser", zap.String("open", parser.Describe(open)))
			if ferr := feeder.FinishSource(ctx, open); err == nil {
				err = ferr
			}
		}
	}()

	if err := p.Parse(ctx, src, feeder); err != nil {
		return wrapParse(err, src)
	}
	return nil
}

func (e *Engine) drive(ctx context.Context, feeder *feed.Feeder, p parser.PullParser, src any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf(errors.ErrorTypeInternal, "parser panic: %v", r)
		}
	}()

	it, err := p.Open(ctx, src)
	if err != nil {
		return wrapParse(err, src)
	}
	defer it.Close()

	if err := feeder.Start(ctx, src); err != nil {
		return stderrors.Join(err, feeder.FinishSource(ctx, src))
	}
	defer func() {
		if ferr := feeder.FinishSource(ctx, src); err == nil {
			err = ferr
		}
	}()

	for {
		v, ok, err := it.Next(ctx)
		if err != nil {
			return wrapParse(err, src)
		}
		if !ok {
			return nil
		}
		cont, err := parser.Deliver(ctx, feeder, p.Shape(), v)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
}
