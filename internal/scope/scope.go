// Package scope assembles the per-tick evaluation context. Five
// independent snapshot sources (chart, bot, indicators, regime, project)
// are frozen and merged into one immutable flattened name->value mapping
// under an explicit precedence order. A Context is rebuilt fresh every
// tick and never mutated.
package scope

import (
	"sort"

	"github.com/rendis/tickrule/pkg/schema"
)

// Source identifies one of the five context namespaces.
type Source string

const (
	SourceChart      Source = "chart"
	SourceBot        Source = "bot"
	SourceIndicators Source = "indicators"
	SourceRegime     Source = "regime"
	SourceProject    Source = "project"
	// SourceDerived marks variables produced by jq derivations rather
	// than by a snapshot provider.
	SourceDerived Source = "derived"
)

// Precedence orders the namespaces for short-name collisions, highest
// first. The default follows "the more specific source wins": project
// variables are user-authored and beat everything, the chart snapshot is
// the most generic and yields to everything.
type Precedence []Source

// DefaultPrecedence is project > bot > regime > indicators > chart.
var DefaultPrecedence = Precedence{SourceProject, SourceBot, SourceRegime, SourceIndicators, SourceChart}

// Validate checks the order names each snapshot namespace exactly once.
func (p Precedence) Validate() error {
	if len(p) != 5 {
		return schema.NewErrorf(schema.ErrCodeValidation,
			"precedence must list all 5 namespaces, got %d", len(p))
	}
	seen := make(map[Source]bool, 5)
	for _, s := range p {
		switch s {
		case SourceChart, SourceBot, SourceIndicators, SourceRegime, SourceProject:
		default:
			return schema.NewErrorf(schema.ErrCodeValidation, "unknown namespace %q in precedence", s)
		}
		if seen[s] {
			return schema.NewErrorf(schema.ErrCodeValidation, "namespace %q listed twice in precedence", s)
		}
		seen[s] = true
	}
	return nil
}

// Snapshots carries the point-in-time inputs for one build. Any source
// may be nil: its namespace is simply absent, never a build error.
type Snapshots struct {
	Chart      map[string]any
	Bot        map[string]any
	Indicators map[string]any
	// Regime holds the classification snapshot: current, previous,
	// confidence, strength. It is projected into the flat names regime,
	// regime_prev, regime_confidence and regime_strength.
	Regime map[string]any
	// Project holds the user-defined, per-project variables.
	Project map[string]schema.Value
	// Derived maps variable names to jq paths evaluated over the merged
	// namespaces, e.g. "rsi": ".indicators.rsi14.value". Derived names
	// override flat short names from every snapshot source.
	Derived map[string]string
}

// Regime snapshot field names.
const (
	RegimeFieldCurrent    = "current"
	RegimeFieldPrevious   = "previous"
	RegimeFieldConfidence = "confidence"
	RegimeFieldStrength   = "strength"
)

// Flat names the regime snapshot projects to.
const (
	VarRegime           = "regime"
	VarRegimePrev       = "regime_prev"
	VarRegimeConfidence = "regime_confidence"
	VarRegimeStrength   = "regime_strength"
)

// Context is the immutable evaluation snapshot. All data is deep-copied
// at build time; nothing written by a provider after Build is visible.
type Context struct {
	flat       map[string]any
	namespaces map[string]any    // ns name -> map[string]any, for CEL and the catalog
	provenance map[string]Source // flat name -> winning source
}

// Flat returns the flattened name->value environment for the expr
// engine. Callers must treat it as read-only.
func (c *Context) Flat() map[string]any { return c.flat }

// Namespaces returns the five namespace maps for the CEL engine.
// Callers must treat it as read-only.
func (c *Context) Namespaces() map[string]any { return c.namespaces }

// Resolve looks up a name, supporting dot-paths (a.b.c), and returns the
// typed value.
func (c *Context) Resolve(name string) (schema.Value, bool) {
	var cur any
	found := false

	rest := name
	for {
		dot := indexDot(rest)
		var seg string
		if dot < 0 {
			seg = rest
		} else {
			seg = rest[:dot]
		}

		if !found {
			v, ok := c.flat[seg]
			if !ok {
				return schema.Null, false
			}
			cur, found = v, true
		} else {
			obj, ok := cur.(map[string]any)
			if !ok {
				return schema.Null, false
			}
			v, ok := obj[seg]
			if !ok {
				return schema.Null, false
			}
			cur = v
		}

		if dot < 0 {
			break
		}
		rest = rest[dot+1:]
	}

	return schema.FromAny(cur), true
}

// VariableInfo is one catalog entry for authoring/autocomplete tooling.
type VariableInfo struct {
	Name     string       `json:"name"`
	Type     string       `json:"type"`
	Category string       `json:"category"`
	Value    schema.Value `json:"value"`
}

// Variables returns the catalog of every resolvable flat name, sorted by
// name for deterministic output.
func (c *Context) Variables() []VariableInfo {
	out := make([]VariableInfo, 0, len(c.flat))
	for name, v := range c.flat {
		category := string(c.provenance[name])
		if category == "" {
			category = "namespace"
		}
		val := schema.FromAny(v)
		out = append(out, VariableInfo{
			Name:     name,
			Type:     val.Kind().String(),
			Category: category,
			Value:    val,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func indexDot(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}
