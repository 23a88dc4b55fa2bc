package validation

import (
	"fmt"
	"strings"

	"github.com/rendis/tickrule/internal/expressions"
	"github.com/rendis/tickrule/pkg/schema"
)

// indicatorRefs tracks which declared indicators each expression
// touches, for the unknown-reference error and the unused-indicator
// advisory.
type indicatorRefs struct {
	declared   map[string]bool
	referenced map[string]bool
}

func newIndicatorRefs(declared []string) *indicatorRefs {
	refs := &indicatorRefs{
		declared:   make(map[string]bool, len(declared)),
		referenced: make(map[string]bool),
	}
	for _, id := range declared {
		refs.declared[id] = true
	}
	return refs
}

// recordCompiled accounts for one compiled expression: every
// indicators.<id> member path must name a declared indicator, and flat
// identifiers matching a declared indicator count as references.
func (refs *indicatorRefs) recordCompiled(c expressions.Compiled, path string, result *schema.ValidationResult) {
	for _, p := range c.Paths() {
		rest, ok := strings.CutPrefix(p, "indicators.")
		if !ok {
			continue
		}
		id := rest
		if dot := strings.IndexByte(rest, '.'); dot >= 0 {
			id = rest[:dot]
		}
		refs.referenced[id] = true
		if !refs.declared[id] {
			result.AddError(path, schema.ErrCodeValidation,
				fmt.Sprintf("expression references undeclared indicator %q", id))
		}
	}
	for _, ident := range c.Identifiers() {
		if refs.declared[ident] {
			refs.referenced[ident] = true
		}
	}
}

// recordDerived accounts for indicator references inside jq derivation
// queries (.indicators.<id> selectors).
func (refs *indicatorRefs) recordDerived(name, query string, result *schema.ValidationResult) {
	rest := query
	for {
		idx := strings.Index(rest, ".indicators.")
		if idx < 0 {
			return
		}
		rest = rest[idx+len(".indicators."):]
		id := leadingIdentifier(rest)
		if id == "" {
			continue
		}
		refs.referenced[id] = true
		if !refs.declared[id] {
			result.AddWarning("/derived/"+name, schema.ErrCodeValidation,
				fmt.Sprintf("derivation selects undeclared indicator %q", id))
		}
	}
}

// warnUnused emits the advisory for declared indicators no expression
// ever reads.
func (refs *indicatorRefs) warnUnused(path string, result *schema.ValidationResult) {
	for id := range refs.declared {
		if !refs.referenced[id] {
			result.AddWarning(path, schema.ErrCodeValidation,
				fmt.Sprintf("declared indicator %q is never referenced", id))
		}
	}
}

// checkExpression compiles one expression slot and applies the advisory
// lints. Returns the compiled form when compilation succeeded.
func checkExpression(ev *expressions.Evaluator, language, source, path string, result *schema.ValidationResult) (expressions.Compiled, bool) {
	compiled, err := ev.Compile(language, source)
	if err != nil {
		msg := err.Error()
		if ee, ok := err.(*schema.EngineError); ok {
			msg = ee.Message
		}
		result.AddError(path, schema.ErrCodeCompile, msg)
		return nil, false
	}

	if isLiteralBool(source) {
		result.AddWarning(path, schema.ErrCodeValidation,
			"expression is a constant boolean; the rule can never depend on market state")
	}
	return compiled, true
}

// isLiteralBool reports whether the source is exactly a true/false
// literal. Almost always a misconfiguration worth flagging, never an
// error.
func isLiteralBool(source string) bool {
	switch strings.TrimSpace(source) {
	case "true", "false":
		return true
	}
	return false
}

// leadingIdentifier returns the identifier prefix of s.
func leadingIdentifier(s string) string {
	end := 0
	for end < len(s) {
		c := s[end]
		if c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || end > 0 && c >= '0' && c <= '9' {
			end++
			continue
		}
		break
	}
	return s[:end]
}
