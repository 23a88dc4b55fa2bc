package validation

import (
	"fmt"

	"github.com/rendis/tickrule/internal/expressions"
	"github.com/rendis/tickrule/pkg/schema"
)

// Validator runs the full load-time pipeline over rule documents.
// Safe for concurrent use.
type Validator struct {
	schemas   *documentSchemas
	evaluator *expressions.Evaluator
}

// NewValidator compiles the embedded document schemas and binds the
// expression evaluator used for the semantic pass.
func NewValidator(evaluator *expressions.Evaluator) (*Validator, error) {
	schemas, err := compileDocumentSchemas()
	if err != nil {
		return nil, err
	}
	return &Validator{schemas: schemas, evaluator: evaluator}, nil
}

// ValidateRulePack checks a raw RulePack document. On a clean schema
// pass the decoded pack is returned together with the full semantic
// result; a schema failure returns a nil pack.
func (v *Validator) ValidateRulePack(raw []byte) (*schema.RulePack, *schema.ValidationResult) {
	result := &schema.ValidationResult{}
	if !validateAgainst(v.schemas.rulePack, raw, result) {
		return nil, result
	}

	pack, err := schema.ParseRulePack(raw)
	if err != nil {
		result.AddError("/", schema.ErrCodeSchema, err.Error())
		return nil, result
	}

	v.validateRulePackSemantic(pack, result)
	return pack, result
}

// ValidateRulePackDecoded re-checks an in-memory pack (round-trips it
// through JSON so edits made after load still hit the schema).
func (v *Validator) ValidateRulePackDecoded(pack *schema.RulePack) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	doc, err := toJSONValue(pack)
	if err != nil {
		result.AddError("/", schema.ErrCodeSchema, "cannot serialize rule pack: "+err.Error())
		return result
	}
	if err := v.schemas.rulePack.Validate(doc); err != nil {
		for _, viol := range collectViolations(err) {
			result.AddError(viol.path, schema.ErrCodeSchema, viol.message)
		}
		return result
	}
	v.validateRulePackSemantic(pack, result)
	return result
}

func (v *Validator) validateRulePackSemantic(pack *schema.RulePack, result *schema.ValidationResult) {
	refs := newIndicatorRefs(pack.Indicators)

	for name, query := range pack.Derived {
		refs.recordDerived(name, query, result)
	}

	for pi, p := range pack.Packs {
		seen := make(map[string]bool, len(p.Rules))
		for ri, rule := range p.Rules {
			path := fmt.Sprintf("/packs/%d/rules/%d", pi, ri)

			if seen[rule.ID] {
				result.AddError(path+"/id", schema.ErrCodeConflict,
					fmt.Sprintf("duplicate rule id %q in pack %q", rule.ID, p.PackType))
			}
			seen[rule.ID] = true

			compiled, ok := checkExpression(v.evaluator, rule.Language, rule.Expression, path+"/expression", result)
			if !ok {
				continue
			}
			refs.recordCompiled(compiled, path+"/expression", result)

			if rule.Enabled && compiled.Empty() {
				result.AddWarning(path+"/expression", schema.ErrCodeValidation,
					fmt.Sprintf("rule %q is enabled with an empty expression; it can never fire", rule.ID))
			}
		}
	}

	refs.warnUnused("/indicators", result)
}

// ValidateStrategy checks a raw workflow strategy document.
func (v *Validator) ValidateStrategy(raw []byte) (*schema.StrategyDoc, *schema.ValidationResult) {
	result := &schema.ValidationResult{}
	if !validateAgainst(v.schemas.strategy, raw, result) {
		return nil, result
	}

	doc, err := schema.ParseStrategyDoc(raw)
	if err != nil {
		result.AddError("/", schema.ErrCodeSchema, err.Error())
		return nil, result
	}

	v.validateStrategySemantic(doc, result)
	return doc, result
}

func (v *Validator) validateStrategySemantic(doc *schema.StrategyDoc, result *schema.ValidationResult) {
	refs := newIndicatorRefs(doc.Indicators)

	for name, query := range doc.Derived {
		refs.recordDerived(name, query, result)
	}

	for _, kind := range schema.WorkflowKinds {
		slot := doc.Workflow.Rule(kind)
		path := "/workflow/" + string(kind) + "/expression"

		compiled, ok := checkExpression(v.evaluator, slot.Language, slot.Expression, path, result)
		if !ok {
			continue
		}
		refs.recordCompiled(compiled, path, result)
	}

	refs.warnUnused("/indicators", result)
}

// ValidateExpression checks a single expression outside any document,
// for editor feedback.
func (v *Validator) ValidateExpression(language, source string) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	checkExpression(v.evaluator, language, source, "/expression", result)
	return result
}
