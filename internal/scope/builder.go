package scope

import (
	"github.com/rendis/tickrule/pkg/schema"
)

// Builder merges snapshot sources into Contexts. One Builder serves the
// whole session; Build is called once per tick.
type Builder struct {
	precedence Precedence
	deriver    *Deriver
}

// NewBuilder creates a Builder with the given precedence order. A nil
// precedence means DefaultPrecedence.
func NewBuilder(precedence Precedence) (*Builder, error) {
	if precedence == nil {
		precedence = DefaultPrecedence
	}
	if err := precedence.Validate(); err != nil {
		return nil, err
	}
	return &Builder{precedence: precedence, deriver: NewDeriver()}, nil
}

// Precedence returns the configured order, highest first.
func (b *Builder) Precedence() Precedence { return b.precedence }

// Build assembles one immutable Context. Absent sources contribute
// nothing; the only error path is a broken derived-variable query, and
// even then every snapshot-backed variable is already in place.
func (b *Builder) Build(snap Snapshots) (*Context, error) {
	sources := map[Source]map[string]any{
		SourceChart:      freezeMap(snap.Chart),
		SourceBot:        freezeMap(snap.Bot),
		SourceIndicators: freezeMap(snap.Indicators),
		SourceRegime:     freezeMap(snap.Regime),
		SourceProject:    freezeProject(snap.Project),
	}

	ctx := &Context{
		flat:       make(map[string]any),
		namespaces: make(map[string]any, 5),
		provenance: make(map[string]Source),
	}

	for _, ns := range []Source{SourceChart, SourceBot, SourceIndicators, SourceRegime, SourceProject} {
		if m := sources[ns]; m != nil {
			ctx.namespaces[string(ns)] = m
		} else {
			ctx.namespaces[string(ns)] = map[string]any{}
		}
	}

	// Flat merge, lowest precedence first so higher sources overwrite.
	for i := len(b.precedence) - 1; i >= 0; i-- {
		ns := b.precedence[i]
		m := sources[ns]
		if m == nil {
			continue
		}
		if ns == SourceRegime {
			for name, v := range projectRegime(m) {
				ctx.flat[name] = v
				ctx.provenance[name] = ns
			}
			continue
		}
		for k, v := range m {
			ctx.flat[k] = v
			ctx.provenance[k] = ns
		}
	}

	// Namespace maps stay addressable under their own names regardless
	// of flat collisions. The regime classification keeps the flat name.
	for ns, m := range ctx.namespaces {
		if ns == string(SourceRegime) {
			continue
		}
		ctx.flat[ns] = m
		delete(ctx.provenance, ns)
	}

	if len(snap.Derived) > 0 {
		if err := b.deriver.Apply(ctx, snap.Derived); err != nil {
			return ctx, err
		}
	}

	return ctx, nil
}

// projectRegime maps the regime snapshot fields onto their flat names.
func projectRegime(m map[string]any) map[string]any {
	out := make(map[string]any, 4)
	if v, ok := m[RegimeFieldCurrent]; ok {
		out[VarRegime] = v
	}
	if v, ok := m[RegimeFieldPrevious]; ok {
		out[VarRegimePrev] = v
	}
	if v, ok := m[RegimeFieldConfidence]; ok {
		out[VarRegimeConfidence] = v
	}
	if v, ok := m[RegimeFieldStrength]; ok {
		out[VarRegimeStrength] = v
	}
	return out
}

// freezeProject converts typed project variables into the frozen plain
// representation.
func freezeProject(vars map[string]schema.Value) map[string]any {
	if vars == nil {
		return nil
	}
	out := make(map[string]any, len(vars))
	for k, v := range vars {
		out[k] = v.ToAny()
	}
	return out
}
