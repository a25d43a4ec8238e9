package convert

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleksaelezovic/rdfstream/pkg/dispatch"
)

type celsius float64
type kelvin float64
type label string
type record struct{ text string }

type texter interface{ Text() string }

func (r record) Text() string { return r.text }

// A -> B -> D, A -> C -> D -> A plus a direct A -> D edge further down the
// registration order.
func newCyclicRegistry() (*Registry, map[string]Converter) {
	reg := NewRegistry(dispatch.NewHierarchy())
	cs := map[string]Converter{
		"c->k": Func("c->k", func(_ context.Context, c celsius) (kelvin, error) { return kelvin(c + 273.15), nil }),
		"k->l": Func("k->l", func(_ context.Context, k kelvin) (label, error) {
			return label(strconv.FormatFloat(float64(k), 'f', 2, 64)), nil
		}),
		"l->c": Func("l->c", func(_ context.Context, l label) (celsius, error) {
			f, err := strconv.ParseFloat(string(l), 64)
			return celsius(f), err
		}),
		"l->r": Func("l->r", func(_ context.Context, l label) (record, error) { return record{text: string(l)}, nil }),
	}
	reg.Register(cs["c->k"], cs["k->l"], cs["l->c"], cs["l->r"])
	return reg, cs
}

func TestResolveShortestPath(t *testing.T) {
	reg, cs := newCyclicRegistry()
	r := NewResolver(reg, dispatch.TypeOf[record]())

	path, ok := r.Resolve(dispatch.TypeOf[celsius]())
	require.True(t, ok)
	assert.Equal(t, Path{cs["c->k"], cs["k->l"], cs["l->r"]}, path)

	direct := Func("c->r", func(_ context.Context, c celsius) (record, error) { return record{text: "direct"}, nil })
	reg.Register(direct)

	path, ok = r.Resolve(dispatch.TypeOf[celsius]())
	require.True(t, ok)
	assert.Equal(t, Path{direct}, path)
}

func TestConvertAppliesChain(t *testing.T) {
	reg, _ := newCyclicRegistry()
	r := NewResolver(reg, dispatch.TypeOf[record]())

	out, err := r.Convert(context.Background(), celsius(0))
	require.NoError(t, err)
	assert.Equal(t, record{text: "273.15"}, out)
}

func TestConvertAssignableIsIdentity(t *testing.T) {
	reg, _ := newCyclicRegistry()
	r := NewResolver(reg, dispatch.TypeOf[texter]())

	in := record{text: "x"}
	out, err := r.Convert(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Zero(t, r.Searches())

	path, ok := r.Resolve(dispatch.TypeOf[record]())
	assert.True(t, ok)
	assert.Empty(t, path)
}

func TestNegativeResultIsCached(t *testing.T) {
	reg, _ := newCyclicRegistry()
	r := NewResolver(reg, dispatch.TypeOf[celsius]())

	for range 3 {
		_, err := r.Convert(context.Background(), record{text: "1"})
		var inconvertible *InconvertibleError
		require.ErrorAs(t, err, &inconvertible)
		assert.Equal(t, dispatch.TypeOf[record](), inconvertible.From)
		assert.Equal(t, dispatch.TypeOf[celsius](), inconvertible.To)
	}
	assert.Equal(t, int64(1), r.Searches())
}

func TestRegistryChangeInvalidatesCache(t *testing.T) {
	reg, _ := newCyclicRegistry()
	r := NewResolver(reg, dispatch.TypeOf[celsius]())

	_, ok := r.Resolve(dispatch.TypeOf[record]())
	require.False(t, ok)

	reg.Register(Func("r->l", func(_ context.Context, r record) (label, error) { return label(r.text), nil }))

	out, err := r.Convert(context.Background(), record{text: "21.5"})
	require.NoError(t, err)
	assert.Equal(t, celsius(21.5), out)
	assert.Equal(t, int64(2), r.Searches())
}

func TestResultOfStaleSearchIsNotCached(t *testing.T) {
	reg, _ := newCyclicRegistry()
	r := NewResolver(reg, dispatch.TypeOf[celsius]())
	from := dispatch.TypeOf[record]()

	// a registration lands while a search started at generation is running
	generation := reg.Generation()
	reg.Register(Func("r->l", func(_ context.Context, r record) (label, error) { return label(r.text), nil }))
	assert.False(t, r.remember(from, resolution{}, generation))

	r.invalidateIfStale()
	assert.False(t, r.remember(from, resolution{}, generation))
	assert.True(t, r.remember(from, resolution{}, reg.Generation()))
	delete(r.cache, from)

	path, ok := r.Resolve(from)
	require.True(t, ok)
	assert.Len(t, path, 2)
}

func TestConverterFailureIsInconvertible(t *testing.T) {
	reg, _ := newCyclicRegistry()
	r := NewResolver(reg, dispatch.TypeOf[celsius]())

	_, err := r.Convert(context.Background(), label("not a number"))
	var inconvertible *InconvertibleError
	require.ErrorAs(t, err, &inconvertible)
	assert.Error(t, errors.Unwrap(err))

	_, err = r.Convert(context.Background(), nil)
	assert.ErrorAs(t, err, &inconvertible)
}

func TestInterfaceEdges(t *testing.T) {
	reg := NewRegistry(dispatch.NewHierarchy())
	reg.Register(Func("texter->label", func(_ context.Context, v texter) (label, error) { return label(v.Text()), nil }))

	out, err := reg.Resolver(dispatch.TypeOf[label]()).Convert(context.Background(), record{text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, label("hi"), out)
}

func TestResolverIsShared(t *testing.T) {
	reg, _ := newCyclicRegistry()
	target := dispatch.TypeOf[record]()

	assert.Same(t, reg.Resolver(target), reg.Resolver(target))
}

func TestConcurrentResolveSearchesOnce(t *testing.T) {
	reg, _ := newCyclicRegistry()
	r := NewResolver(reg, dispatch.TypeOf[record]())

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Convert(context.Background(), celsius(1))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// singleflight plus the double-checked cache bound this to one search
	assert.Equal(t, int64(1), r.Searches())
}

func TestPathString(t *testing.T) {
	reg, _ := newCyclicRegistry()
	path, _ := NewResolver(reg, dispatch.TypeOf[label]()).Resolve(dispatch.TypeOf[celsius]())

	assert.Equal(t, "convert.kelvin -> convert.label", path.String())
	assert.Equal(t, "identity", Path{}.String())
}
