// Package filter evaluates expr-lang expressions against Wialon units.
//
// Expressions see the unit fields directly (Name, Speed, LastSeen, ...) and a
// set of helpers:
//
//	hasPrefix(Name, "truck") and Speed > 5
//	within(53.9, 27.56, 10) or silentFor(24)
package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/file"
	"github.com/expr-lang/expr/vm"

	"github.com/s0up4200/wialon/wialon"
)

// Filter is a compiled unit filter
type Filter struct {
	expression string
	program    *vm.Program
}

// Expression returns the source expression
func (f *Filter) Expression() string {
	return f.expression
}

// String returns the source expression
func (f *Filter) String() string {
	return f.expression
}

// Match reports whether item satisfies the filter.
func (f *Filter) Match(item wialon.Item) (bool, error) {
	result, err := expr.Run(f.program, newEnv(NewUnit(item)))
	if err != nil {
		return false, &EvaluationError{
			Expression: f.expression,
			ItemName:   item.Name,
			Reason:     err.Error(),
			Err:        err,
		}
	}

	matched, ok := result.(bool)
	if !ok {
		return false, &EvaluationError{
			Expression: f.expression,
			ItemName:   item.Name,
			Reason:     fmt.Sprintf("expression returned %T, not bool", result),
		}
	}
	return matched, nil
}

// Apply returns the items matching the filter, in order. A nil filter
// matches everything.
func (f *Filter) Apply(items []wialon.Item) ([]wialon.Item, error) {
	if f == nil {
		return items, nil
	}

	matches := make([]wialon.Item, 0, len(items))
	for _, item := range items {
		ok, err := f.Match(item)
		if err != nil {
			return nil, err
		}
		if ok {
			matches = append(matches, item)
		}
	}
	return matches, nil
}

// CompilerOption configures a Compiler
type CompilerOption func(*Compiler)

// WithCache keeps up to size compiled filters
func WithCache(size int) CompilerOption {
	return func(c *Compiler) {
		if size > 0 {
			c.cache = newLRUCache[*Filter](size)
		}
	}
}

// Compiler compiles filter expressions
type Compiler struct {
	cache *lruCache[*Filter]
}

// NewCompiler creates a new compiler
func NewCompiler(opts ...CompilerOption) *Compiler {
	c := &Compiler{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile type checks an expression against the unit environment.
func (c *Compiler) Compile(expression string) (*Filter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
		}
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached, nil
		}
	}

	program, err := expr.Compile(expression,
		expr.Env(newEnv(Unit{})),
		expr.AsBool(),
	)
	if err != nil {
		compErr := &CompilationError{
			Expression: expression,
			Reason:     err.Error(),
			Err:        err,
		}
		var fileErr *file.Error
		if errors.As(err, &fileErr) {
			compErr.Reason = fileErr.Message
			compErr.Column = fileErr.Column
		}
		return nil, compErr
	}

	filter := &Filter{
		expression: expression,
		program:    program,
	}
	if c.cache != nil {
		c.cache.Put(expression, filter)
	}
	return filter, nil
}

// Resolve combines a named preset and an inline expression. Both are
// optional; when both are given the unit must satisfy both. A nil filter
// is returned when neither is given.
func (c *Compiler) Resolve(presets map[string]string, preset, expression string) (*Filter, error) {
	var parts []string

	if preset != "" {
		presetExpr, ok := presets[preset]
		if !ok {
			return nil, fmt.Errorf("unknown filter preset %q", preset)
		}
		parts = append(parts, "("+presetExpr+")")
	}
	if strings.TrimSpace(expression) != "" {
		parts = append(parts, "("+expression+")")
	}

	if len(parts) == 0 {
		return nil, nil
	}
	return c.Compile(strings.Join(parts, " and "))
}
