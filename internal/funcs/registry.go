// Package funcs holds the built-in function library: pure, total, named
// callables available to every trading-rule expression. Functions never
// panic and never perform I/O; invalid operands surface as typed
// evaluation errors, out-of-domain numeric inputs (division by zero,
// sqrt of a negative) collapse to null.
package funcs

import (
	"sort"

	"github.com/rendis/tickrule/pkg/schema"
)

// Variadic marks a function with no upper argument bound.
const Variadic = -1

// Categories group functions for the variable/function catalog.
const (
	CategoryMath     = "math"
	CategoryArray    = "array"
	CategoryString   = "string"
	CategoryType     = "type"
	CategoryDomain   = "domain"
	CategoryInternal = "internal" // operator rewrites, hidden from the catalog
)

// Func is one registered builtin. Call is nil for the lambda combinators
// (map, filter, ...) which are provided by the expression engine itself;
// such entries exist only so the compiler can recognize the name.
type Func struct {
	Name        string
	Category    string
	Description string
	MinArgs     int
	MaxArgs     int // Variadic for no upper bound
	Call        func(args []any) (any, error)
}

// Info is the catalog projection of a Func.
type Info struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
	MinArgs     int    `json:"min_args"`
	MaxArgs     int    `json:"max_args"`
}

// Registry is the name->function table, built once at engine construction
// and read-only afterwards. Lookup is a plain map access.
type Registry struct {
	maxArrayLen int
	funcs       map[string]*Func
}

// Options bounds the library's array handling.
type Options struct {
	// MaxArrayLen caps the element count accepted by array functions.
	// Zero means DefaultMaxArrayLen.
	MaxArrayLen int
}

// DefaultMaxArrayLen is the default array combinator bound.
const DefaultMaxArrayLen = 10_000

// NewRegistry builds the full builtin table.
func NewRegistry(opts Options) *Registry {
	if opts.MaxArrayLen <= 0 {
		opts.MaxArrayLen = DefaultMaxArrayLen
	}
	r := &Registry{
		maxArrayLen: opts.MaxArrayLen,
		funcs:       make(map[string]*Func, 96),
	}
	r.registerMath()
	r.registerArray()
	r.registerString()
	r.registerType()
	r.registerDomain()
	r.registerOperators()
	return r
}

// register adds a function, panicking on duplicate names. Registration
// happens only at construction, so a duplicate is a programming error.
func (r *Registry) register(f *Func) {
	if _, exists := r.funcs[f.Name]; exists {
		panic("funcs: duplicate builtin " + f.Name)
	}
	r.funcs[f.Name] = f
}

// Lookup returns the function with the given name.
func (r *Registry) Lookup(name string) (*Func, bool) {
	f, ok := r.funcs[name]
	return f, ok
}

// Has reports whether name is a registered builtin.
func (r *Registry) Has(name string) bool {
	_, ok := r.funcs[name]
	return ok
}

// Count returns the number of registered builtins.
func (r *Registry) Count() int { return len(r.funcs) }

// MaxArrayLen returns the configured array bound.
func (r *Registry) MaxArrayLen() int { return r.maxArrayLen }

// Env returns the callable environment entries injected into every
// expression evaluation. Combinator placeholders (nil Call) are skipped.
func (r *Registry) Env() map[string]any {
	env := make(map[string]any, len(r.funcs))
	for name, f := range r.funcs {
		if f.Call == nil {
			continue
		}
		call := f.Call
		env[name] = func(args ...any) (any, error) {
			return call(args)
		}
	}
	return env
}

// List returns catalog info for all non-internal functions, sorted by name.
func (r *Registry) List() []Info {
	infos := make([]Info, 0, len(r.funcs))
	for _, f := range r.funcs {
		if f.Category == CategoryInternal {
			continue
		}
		infos = append(infos, Info{
			Name:        f.Name,
			Category:    f.Category,
			Description: f.Description,
			MinArgs:     f.MinArgs,
			MaxArgs:     f.MaxArgs,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// CheckArity validates a call site against the registered arity.
func (r *Registry) CheckArity(name string, argc int) error {
	f, ok := r.funcs[name]
	if !ok {
		return schema.NewErrorf(schema.ErrCodeCompile, "unknown function %q", name)
	}
	if argc < f.MinArgs {
		return schema.NewErrorf(schema.ErrCodeCompile,
			"function %q expects at least %d argument(s), got %d", name, f.MinArgs, argc)
	}
	if f.MaxArgs != Variadic && argc > f.MaxArgs {
		return schema.NewErrorf(schema.ErrCodeCompile,
			"function %q expects at most %d argument(s), got %d", name, f.MaxArgs, argc)
	}
	return nil
}
