// Package convert resolves and applies chains of converters between value
// representations.
//
// Registered converters form a directed graph whose nodes are Go types. A
// Resolver fixed on a target type finds the shortest chain from a value's
// runtime type to the target by breadth-first search, caches it per source
// type (including an explicit negative entry for unreachable types), and
// applies it to each value.
package convert

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/aleksaelezovic/rdfstream/pkg/dispatch"
)

// Converter maps values of one of its input types to its output type.
// Converters are expected to be pure and are compared by identity.
type Converter interface {
	InputTypes() []reflect.Type
	OutputType() reflect.Type
	Convert(ctx context.Context, v any) (any, error)
}

// FuncConverter adapts a typed function to Converter.
type FuncConverter[In, Out any] struct {
	Name string
	Fn   func(context.Context, In) (Out, error)
}

// Func builds a converter from fn. The returned pointer is the converter's
// identity, so build each converter once.
func Func[In, Out any](name string, fn func(context.Context, In) (Out, error)) *FuncConverter[In, Out] {
	return &FuncConverter[In, Out]{Name: name, Fn: fn}
}

func (c *FuncConverter[In, Out]) InputTypes() []reflect.Type {
	return []reflect.Type{dispatch.TypeOf[In]()}
}

func (c *FuncConverter[In, Out]) OutputType() reflect.Type {
	return dispatch.TypeOf[Out]()
}

func (c *FuncConverter[In, Out]) Convert(ctx context.Context, v any) (any, error) {
	in, ok := v.(In)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected input %T", c.Name, v)
	}
	return c.Fn(ctx, in)
}

func (c *FuncConverter[In, Out]) String() string {
	return c.Name
}

// Path is an ordered chain of converters. The empty path is the identity.
type Path []Converter

// Apply runs every step in order.
func (p Path) Apply(ctx context.Context, v any) (any, error) {
	var err error
	for _, c := range p {
		if v, err = c.Convert(ctx, v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (p Path) String() string {
	if len(p) == 0 {
		return "identity"
	}
	steps := make([]string, len(p))
	for i, c := range p {
		steps[i] = fmt.Sprintf("%v", c.OutputType())
	}
	return strings.Join(steps, " -> ")
}

// InconvertibleError reports a value that could not be brought to To.
type InconvertibleError struct {
	Value any
	From  reflect.Type
	To    reflect.Type
	Cause error
}

func (e *InconvertibleError) Error() string {
	msg := fmt.Sprintf("cannot convert %v to %v", e.From, e.To)
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *InconvertibleError) Unwrap() error {
	return e.Cause
}

// Inconvertible builds the error for v not reaching to.
func Inconvertible(v any, to reflect.Type, cause error) *InconvertibleError {
	return &InconvertibleError{Value: v, From: reflect.TypeOf(v), To: to, Cause: cause}
}
