package scope

import (
	"sync"

	"github.com/itchyny/gojq"

	"github.com/rendis/tickrule/pkg/schema"
)

// Deriver evaluates jq queries that project derived variables (flat
// indicator aliases and computed shortcuts) out of the merged namespace
// document. Parsed queries are cached and reused across ticks.
type Deriver struct {
	mu    sync.RWMutex
	cache map[string]*gojq.Code
}

// NewDeriver creates an empty Deriver.
func NewDeriver() *Deriver {
	return &Deriver{cache: make(map[string]*gojq.Code)}
}

// Apply evaluates each derived query against the context's namespace
// document and writes the first result into the flat map under the
// derived name. Derived names override snapshot short names; a query
// producing no output yields null for its name.
func (d *Deriver) Apply(ctx *Context, derived map[string]string) error {
	for name, query := range derived {
		code, err := d.getOrCompile(query)
		if err != nil {
			return err
		}

		iter := code.Run(ctx.namespaces)
		var out any
		if v, ok := iter.Next(); ok {
			if qerr, isErr := v.(error); isErr {
				return schema.NewErrorf(schema.ErrCodeEval,
					"derived variable %q: %s", name, qerr.Error()).
					WithExpr(query).
					WithCause(qerr)
			}
			out = v
		}

		ctx.flat[name] = freezeAny(out)
		ctx.provenance[name] = SourceDerived
	}
	return nil
}

// getOrCompile returns a cached compiled query or compiles and caches a
// new one.
func (d *Deriver) getOrCompile(query string) (*gojq.Code, error) {
	d.mu.RLock()
	if code, ok := d.cache[query]; ok {
		d.mu.RUnlock()
		return code, nil
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	// Double-check after acquiring write lock.
	if code, ok := d.cache[query]; ok {
		return code, nil
	}

	parsed, err := gojq.Parse(query)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeCompile,
			"jq parse error: %s", err.Error()).
			WithExpr(query).
			WithCause(err)
	}

	code, err := gojq.Compile(parsed,
		// Sandbox: block $ENV and env access, evaluation does no I/O.
		gojq.WithEnvironLoader(func() []string { return nil }),
	)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeCompile,
			"jq compile error: %s", err.Error()).
			WithExpr(query).
			WithCause(err)
	}

	d.cache[query] = code
	return code, nil
}
