package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/tickrule/internal/expressions"
	"github.com/rendis/tickrule/internal/funcs"
	"github.com/rendis/tickrule/pkg/schema"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	registry := funcs.NewRegistry(funcs.Options{})
	exprEngine := expressions.NewExprEngine(registry, expressions.ExprOptions{})
	celEngine, err := expressions.NewCELEngine()
	require.NoError(t, err)
	evaluator := expressions.NewEvaluator(expressions.NewCompiledCache(0), exprEngine, celEngine)

	v, err := NewValidator(evaluator)
	require.NoError(t, err)
	return v
}

func issuePaths(issues []schema.ValidationIssue) []string {
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = issue.Path
	}
	return out
}

// --- Rule pack documents ---

const validPack = `{
  "rules_version": "1.2.0",
  "engine": "tickrule",
  "indicators": ["rsi14", "adx14"],
  "derived": {"rsi": ".indicators.rsi14.value", "adx": ".indicators.adx14.value"},
  "packs": [
    {
      "pack_type": "no_trade",
      "rules": [
        {"id": "nt-extreme", "name": "extreme regime", "enabled": true,
         "expression": "regime == 'EXTREME_BULL' || regime == 'EXTREME_BEAR'",
         "severity": "block", "message": "extreme regime"},
        {"id": "nt-chop", "name": "weak trend", "enabled": true,
         "expression": "adx < 15", "severity": "warn", "message": "chop"}
      ]
    },
    {
      "pack_type": "exit",
      "rules": [
        {"id": "x-rsi", "name": "rsi exit", "enabled": true,
         "expression": "rsi > 70", "severity": "exit", "message": "overbought"}
      ]
    }
  ]
}`

func TestValidateRulePack_Valid(t *testing.T) {
	v := newTestValidator(t)

	pack, result := v.ValidateRulePack([]byte(validPack))
	require.NotNil(t, pack)
	assert.True(t, result.Valid())
	assert.Empty(t, result.Warnings)
	assert.Equal(t, "1.2.0", pack.RulesVersion)
	assert.Len(t, pack.Packs, 2)
}

func TestValidateRulePack_NotJSON(t *testing.T) {
	v := newTestValidator(t)

	pack, result := v.ValidateRulePack([]byte("{nope"))
	assert.Nil(t, pack)
	assert.False(t, result.Valid())
}

func TestValidateRulePack_SchemaViolations(t *testing.T) {
	v := newTestValidator(t)

	t.Run("missing rules_version", func(t *testing.T) {
		pack, result := v.ValidateRulePack([]byte(`{"packs": []}`))
		assert.Nil(t, pack)
		assert.False(t, result.Valid())
	})

	t.Run("bad semver", func(t *testing.T) {
		pack, result := v.ValidateRulePack([]byte(`{"rules_version": "v1", "packs": []}`))
		assert.Nil(t, pack)
		assert.False(t, result.Valid())
	})

	t.Run("bad severity", func(t *testing.T) {
		doc := `{"rules_version": "1.0.0", "packs": [
			{"pack_type": "exit", "rules": [
				{"id": "a", "name": "a", "enabled": true, "expression": "rsi > 1", "severity": "fatal"}
			]}
		]}`
		pack, result := v.ValidateRulePack([]byte(doc))
		assert.Nil(t, pack)
		require.False(t, result.Valid())
		assert.Contains(t, issuePaths(result.Errors)[0], "/packs/0/rules/0")
	})

	t.Run("unknown top-level field", func(t *testing.T) {
		pack, result := v.ValidateRulePack([]byte(`{"rules_version": "1.0.0", "packs": [], "extra": 1}`))
		assert.Nil(t, pack)
		assert.False(t, result.Valid())
	})
}

func TestValidateRulePack_DuplicateRuleID(t *testing.T) {
	v := newTestValidator(t)
	doc := `{"rules_version": "1.0.0", "packs": [
		{"pack_type": "exit", "rules": [
			{"id": "dup", "name": "a", "enabled": true, "expression": "rsi > 70", "severity": "exit"},
			{"id": "dup", "name": "b", "enabled": true, "expression": "rsi > 80", "severity": "exit"}
		]}
	]}`

	pack, result := v.ValidateRulePack([]byte(doc))
	assert.Nil(t, pack)
	require.False(t, result.Valid())
	assert.Equal(t, schema.ErrCodeConflict, result.Errors[0].Code)
}

func TestValidateRulePack_CompileErrorHasPath(t *testing.T) {
	v := newTestValidator(t)
	doc := `{"rules_version": "1.0.0", "packs": [
		{"pack_type": "exit", "rules": [
			{"id": "bad", "name": "bad", "enabled": true, "expression": "rsi < 35 && && adx", "severity": "exit"}
		]}
	]}`

	pack, result := v.ValidateRulePack([]byte(doc))
	assert.Nil(t, pack)
	require.False(t, result.Valid())
	assert.Equal(t, schema.ErrCodeCompile, result.Errors[0].Code)
	assert.Equal(t, "/packs/0/rules/0/expression", result.Errors[0].Path)
}

func TestValidateRulePack_UndeclaredIndicatorIsError(t *testing.T) {
	v := newTestValidator(t)
	doc := `{"rules_version": "1.0.0", "indicators": ["rsi14"], "packs": [
		{"pack_type": "exit", "rules": [
			{"id": "x", "name": "x", "enabled": true,
			 "expression": "indicators.macd12.hist > 0", "severity": "exit"}
		]}
	]}`

	_, result := v.ValidateRulePack([]byte(doc))
	require.False(t, result.Valid())
	assert.Contains(t, result.Errors[0].Message, "macd12")
}

func TestValidateRulePack_UnusedIndicatorIsWarning(t *testing.T) {
	v := newTestValidator(t)
	doc := `{"rules_version": "1.0.0", "indicators": ["rsi14", "unused9"], "packs": [
		{"pack_type": "exit", "rules": [
			{"id": "x", "name": "x", "enabled": true,
			 "expression": "indicators.rsi14.value > 70", "severity": "exit"}
		]}
	]}`

	_, result := v.ValidateRulePack([]byte(doc))
	assert.True(t, result.Valid())
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0].Message, "unused9")
}

func TestValidateRulePack_LiteralBoolIsWarning(t *testing.T) {
	v := newTestValidator(t)
	doc := `{"rules_version": "1.0.0", "packs": [
		{"pack_type": "no_trade", "rules": [
			{"id": "always", "name": "always", "enabled": true, "expression": "true", "severity": "block"}
		]}
	]}`

	pack, result := v.ValidateRulePack([]byte(doc))
	require.NotNil(t, pack)
	assert.True(t, result.Valid(), "advisory warnings never block activation")
	assert.NotEmpty(t, result.Warnings)
}

func TestValidateRulePack_EnabledEmptyExpressionIsWarning(t *testing.T) {
	v := newTestValidator(t)
	doc := `{"rules_version": "1.0.0", "packs": [
		{"pack_type": "exit", "rules": [
			{"id": "hollow", "name": "hollow", "enabled": true, "expression": "", "severity": "exit"}
		]}
	]}`

	pack, result := v.ValidateRulePack([]byte(doc))
	require.NotNil(t, pack)
	assert.True(t, result.Valid())
	assert.NotEmpty(t, result.Warnings)
}

func TestValidateRulePackDecoded(t *testing.T) {
	v := newTestValidator(t)

	pack, result := v.ValidateRulePack([]byte(validPack))
	require.NotNil(t, pack)
	require.True(t, result.Valid())

	t.Run("clean pack revalidates", func(t *testing.T) {
		result := v.ValidateRulePackDecoded(pack)
		assert.True(t, result.Valid())
	})

	t.Run("edited severity hits the schema", func(t *testing.T) {
		edited := *pack
		edited.Packs = append([]schema.Pack(nil), pack.Packs...)
		edited.Packs[0].Rules = append([]schema.Rule(nil), pack.Packs[0].Rules...)
		edited.Packs[0].Rules[0].Severity = "fatal"

		result := v.ValidateRulePackDecoded(&edited)
		require.False(t, result.Valid())
		assert.Contains(t, issuePaths(result.Errors)[0], "/packs/0/rules/0")
	})

	t.Run("edited duplicate id hits the semantic pass", func(t *testing.T) {
		edited := *pack
		edited.Packs = append([]schema.Pack(nil), pack.Packs...)
		edited.Packs[0].Rules = append([]schema.Rule(nil), pack.Packs[0].Rules...)
		edited.Packs[0].Rules[1].ID = edited.Packs[0].Rules[0].ID

		result := v.ValidateRulePackDecoded(&edited)
		require.False(t, result.Valid())
		assert.Equal(t, schema.ErrCodeConflict, result.Errors[0].Code)
	})
}

// --- Strategy documents ---

const validStrategy = `{
  "schema_version": "1.0.0",
  "strategy_type": "trend",
  "name": "baseline",
  "indicators": ["rsi14"],
  "derived": {"rsi": ".indicators.rsi14.value"},
  "workflow": {
    "entry": {"expression": "rsi < 30 && regime == 'BULL'", "enabled": true},
    "no_entry": {"expression": "", "enabled": false},
    "exit": {"expression": "rsi > 70", "enabled": true},
    "before_exit": {"expression": "", "enabled": false},
    "update_stop": {"expression": "", "enabled": false}
  }
}`

func TestValidateStrategy_Valid(t *testing.T) {
	v := newTestValidator(t)

	doc, result := v.ValidateStrategy([]byte(validStrategy))
	require.NotNil(t, doc)
	assert.True(t, result.Valid())
	assert.Equal(t, "baseline", doc.Name)
	assert.True(t, doc.Workflow.Entry.Enabled)
}

func TestValidateStrategy_BadWorkflowExpression(t *testing.T) {
	v := newTestValidator(t)
	doc := `{
	  "schema_version": "1.0.0",
	  "name": "broken",
	  "workflow": {
	    "exit": {"expression": "rsi < 35 && && adx", "enabled": true}
	  }
	}`

	_, result := v.ValidateStrategy([]byte(doc))
	require.False(t, result.Valid())
	assert.Equal(t, "/workflow/exit/expression", result.Errors[0].Path)
}

func TestValidateStrategy_UnknownSlotRejected(t *testing.T) {
	v := newTestValidator(t)
	doc := `{
	  "schema_version": "1.0.0",
	  "name": "extra",
	  "workflow": {
	    "on_tick": {"expression": "true", "enabled": true}
	  }
	}`

	_, result := v.ValidateStrategy([]byte(doc))
	assert.False(t, result.Valid())
}

// --- Single expressions ---

func TestValidateExpression(t *testing.T) {
	v := newTestValidator(t)

	t.Run("valid", func(t *testing.T) {
		result := v.ValidateExpression("", "rsi < 30")
		assert.True(t, result.Valid())
	})

	t.Run("syntax error", func(t *testing.T) {
		result := v.ValidateExpression("", "rsi < 35 && && adx")
		assert.False(t, result.Valid())
	})

	t.Run("unknown function", func(t *testing.T) {
		result := v.ValidateExpression("", "explode(rsi)")
		assert.False(t, result.Valid())
	})

	t.Run("cel", func(t *testing.T) {
		result := v.ValidateExpression("cel", "indicators.rsi < 30.0")
		assert.True(t, result.Valid())
	})
}
