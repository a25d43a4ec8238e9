package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"reflect"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aleksaelezovic/rdfstream/internal/logger"
	"github.com/aleksaelezovic/rdfstream/internal/storage"
	"github.com/aleksaelezovic/rdfstream/pkg/bridge"
	"github.com/aleksaelezovic/rdfstream/pkg/convert"
	"github.com/aleksaelezovic/rdfstream/pkg/convert/rdfconv"
	"github.com/aleksaelezovic/rdfstream/pkg/dispatch"
	"github.com/aleksaelezovic/rdfstream/pkg/feed"
	"github.com/aleksaelezovic/rdfstream/pkg/ingest"
	"github.com/aleksaelezovic/rdfstream/pkg/parser"
	"github.com/aleksaelezovic/rdfstream/pkg/parsers"
	"github.com/aleksaelezovic/rdfstream/pkg/rdf"
	"github.com/aleksaelezovic/rdfstream/pkg/source"
	"github.com/aleksaelezovic/rdfstream/pkg/store"
)

// engine builds an ingestion engine from the loaded configuration.
func (a *app) engine() (*ingest.Engine, error) {
	graph, err := a.cfg.DefaultGraph()
	if err != nil {
		return nil, err
	}

	parserRegistry := parser.NewRegistry(dispatch.NewHierarchy())
	parsers.RegisterDefaults(parserRegistry)

	converters := convert.NewRegistry(dispatch.NewHierarchy())
	rdfconv.Register(converters)

	return ingest.New(
		ingest.WithParsers(parserRegistry),
		ingest.WithConverters(converters),
		ingest.WithNormalizer(source.Normalizer{DefaultFormat: source.ParseFormat(a.cfg.Ingest.DefaultFormat)}),
		ingest.WithPool(bridge.NewPool(a.cfg.Ingest.PoolSize)),
		ingest.WithLifter(&feed.GraphLifter{Graph: graph}),
		ingest.WithQueueCapacity(a.cfg.Ingest.QueueCapacity),
		ingest.WithSkipInconvertible(!a.cfg.Ingest.FailFast),
		ingest.WithLogger(logger.Get()),
	), nil
}

func (a *app) openStore(path string) (*store.QuadStore, error) {
	cfg := a.cfg.Store.Config
	if path != "" {
		cfg.Path = path
	}
	backend, err := storage.Open(cfg)
	if err != nil {
		return nil, err
	}
	return store.NewQuadStore(backend, cfg.Path), nil
}

func (a *app) catCommand() *cobra.Command {
	var quads, triples bool

	cmd := &cobra.Command{
		Use:   "cat SOURCE...",
		Short: "Print sources as canonical N-Triples or N-Quads",
		Long: `Print every statement of the given files or directories. By default
statements are printed as triples (graphs are dropped); with --quads they are
printed as quads (triples are placed in the configured default graph).`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.engine()
			if err != nil {
				return err
			}
			sources := make([]any, len(args))
			for i, arg := range args {
				sources[i] = source.File(arg)
			}
			return printAll(cmd.Context(), cmd.OutOrStdout(), engine, quads, sources...)
		},
	}
	cmd.Flags().BoolVar(&quads, "quads", false, "Print quads instead of triples")
	cmd.Flags().BoolVar(&triples, "triples", false, "Print triples (default)")
	cmd.MarkFlagsMutuallyExclusive("triples", "quads")
	return cmd
}

func (a *app) dumpCommand() *cobra.Command {
	var storePath string
	var triples bool

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the contents of a quad store",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.engine()
			if err != nil {
				return err
			}
			qs, err := a.openStore(storePath)
			if err != nil {
				return err
			}
			defer qs.Close()
			return printAll(cmd.Context(), cmd.OutOrStdout(), engine, !triples, qs)
		},
	}
	cmd.Flags().StringVar(&storePath, "store", "", "Store directory (defaults to store.path)")
	cmd.Flags().BoolVar(&triples, "triples", false, "Print triples instead of quads")
	return cmd
}

// printAll iterates sources as triples or quads and writes one canonical
// line per element.
func printAll(ctx context.Context, out io.Writer, engine *ingest.Engine, quads bool, sources ...any) error {
	shape, valueType := rdf.ShapeTriple, dispatch.TypeOf[*rdf.Triple]()
	if quads {
		shape, valueType = rdf.ShapeQuad, dispatch.TypeOf[*rdf.Quad]()
	}

	it, err := engine.Iterate(ctx, shape, valueType, sources...)
	if err != nil {
		return err
	}
	defer it.Close()

	w := bufio.NewWriter(out)
	defer w.Flush()

	for {
		v, ok, err := it.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := writeStatement(w, valueType, v); err != nil {
			return err
		}
	}
}

func writeStatement(w *bufio.Writer, valueType reflect.Type, v any) error {
	var line string
	switch s := v.(type) {
	case *rdf.Triple:
		line = rdf.FormatTriple(s)
	case *rdf.Quad:
		line = rdf.FormatQuad(s)
	default:
		return fmt.Errorf("unexpected %T while printing %s", v, valueType)
	}
	if _, err := w.WriteString(line); err != nil {
		return err
	}
	return w.WriteByte('\n')
}

func (a *app) loadCommand() *cobra.Command {
	var storePath string
	var keepGoing bool

	cmd := &cobra.Command{
		Use:   "load SOURCE...",
		Short: "Load sources into a quad store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.engine()
			if err != nil {
				return err
			}
			qs, err := a.openStore(storePath)
			if err != nil {
				return err
			}
			defer qs.Close()

			listener := &loadListener{
				Listener:  store.NewListener(qs, a.cfg.Store.BatchSize),
				keepGoing: keepGoing,
			}
			sources := make([]any, len(args))
			for i, arg := range args {
				sources[i] = source.File(arg)
			}

			if err := engine.Parse(cmd.Context(), listener, sources...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d quads (%d new), %d sources failed\n",
				listener.Received(), listener.Inserted(), listener.failed)
			if listener.failed > 0 && !keepGoing {
				return fmt.Errorf("load stopped after %d failed source (use --keep-going to continue)", listener.failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&storePath, "store", "", "Store directory (defaults to store.path)")
	cmd.Flags().BoolVar(&keepGoing, "keep-going", false, "Continue with the next source when one fails")
	return cmd
}

// loadListener counts failed sources and optionally keeps going past them.
type loadListener struct {
	*store.Listener
	keepGoing bool
	failed    int
}

func (l *loadListener) OnSourceError(ctx context.Context, src any, cause error) bool {
	l.failed++
	if !l.keepGoing {
		return l.Listener.OnSourceError(ctx, src, cause)
	}
	logger.WithContext(ctx).Warn("skipping failed source",
		zap.String("source", parser.Describe(src)),
		zap.Error(cause))
	return true
}

func (a *app) countCommand() *cobra.Command {
	var storePath string

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Print the number of quads in a store",
		RunE: func(cmd *cobra.Command, args []string) error {
			qs, err := a.openStore(storePath)
			if err != nil {
				return err
			}
			defer qs.Close()

			n, err := qs.Count()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
	cmd.Flags().StringVar(&storePath, "store", "", "Store directory (defaults to store.path)")
	return cmd
}
