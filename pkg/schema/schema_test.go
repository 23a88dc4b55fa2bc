package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Value ---

func TestValue_Truthy(t *testing.T) {
	assert.True(t, BoolValue(true).Truthy())
	assert.False(t, BoolValue(false).Truthy())
	assert.False(t, NumberValue(1).Truthy(), "non-bool values never count as true")
	assert.False(t, StringValue("true").Truthy())
	assert.False(t, Null.Truthy())
}

func TestValue_FromAnyWidensNumbers(t *testing.T) {
	assert.Equal(t, NumberValue(5), FromAny(5))
	assert.Equal(t, NumberValue(5), FromAny(int64(5)))
	assert.Equal(t, NumberValue(5), FromAny(5.0))
	assert.Equal(t, Null, FromAny(nil))
	assert.Equal(t, Null, FromAny(struct{}{}), "unsupported types collapse to null")
}

func TestValue_RoundTrip(t *testing.T) {
	v := ObjectValue(map[string]Value{
		"rsi":    NumberValue(25),
		"regime": StringValue("BULL"),
		"flags":  ArrayValue(BoolValue(true), Null),
	})

	raw, err := json.Marshal(v)
	require.NoError(t, err)

	var back Value
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, v.Equal(back))
}

func TestValue_Equal(t *testing.T) {
	assert.True(t, Null.Equal(Null))
	assert.False(t, Null.Equal(NumberValue(0)))
	assert.True(t, NumberValue(1.5).Equal(NumberValue(1.5)))
	assert.False(t, NumberValue(1).Equal(StringValue("1")))
}

// --- Errors ---

func TestEngineError(t *testing.T) {
	err := NewErrorf(ErrCodeEval, "undefined variable %q", "rsi").WithExpr("rsi < 30")

	assert.True(t, IsEvalError(err))
	assert.False(t, IsCompileError(err))
	assert.Contains(t, err.Error(), "EVAL_ERROR")
	assert.Contains(t, err.Error(), "rsi < 30")
}

func TestValidationResult_ToError(t *testing.T) {
	r := &ValidationResult{}
	assert.NoError(t, r.ToError())

	r.AddWarning("/indicators", ErrCodeValidation, "indicator unused9 is never referenced")
	assert.NoError(t, r.ToError(), "warnings alone never become an error")

	r.AddError("/packs/0/rules/0/expression", ErrCodeCompile, "unexpected token")
	err := r.ToError()
	var ee *EngineError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, ErrCodeValidation, ee.Code)
	assert.Equal(t, "/packs/0/rules/0/expression", ee.Path)
	assert.Equal(t, 1, ee.Details["error_count"])

	r.AddError("/packs/0/rules/1/id", ErrCodeConflict, "duplicate rule id")
	err = r.ToError()
	require.ErrorAs(t, err, &ee)
	assert.Contains(t, ee.Error(), "2 errors")
}

// --- Severity ordering ---

func TestSeverity_Rank(t *testing.T) {
	assert.Greater(t, SeverityBlock.Rank(), SeverityExit.Rank())
	assert.Greater(t, SeverityExit.Rank(), SeverityUpdateStop.Rank())
	assert.Greater(t, SeverityUpdateStop.Rank(), SeverityWarn.Rank())
	assert.Less(t, Severity("bogus").Rank(), SeverityWarn.Rank())
}

func TestPack_EnabledRules(t *testing.T) {
	pack := Pack{
		PackType: PackExit,
		Rules: []Rule{
			{ID: "a", Enabled: true, Severity: SeverityWarn},
			{ID: "b", Enabled: false, Severity: SeverityBlock},
			{ID: "c", Enabled: true, Severity: SeverityExit},
			{ID: "d", Enabled: true, Severity: SeverityBlock},
			{ID: "e", Enabled: true, Severity: SeverityExit},
		},
	}

	rules := pack.EnabledRules()
	ids := make([]string, len(rules))
	for i, r := range rules {
		ids[i] = r.ID
	}
	// Descending severity, document order within a level; disabled dropped.
	assert.Equal(t, []string{"d", "c", "e", "a"}, ids)
}

// --- RulePack round-trip ---

func TestRulePack_RoundTrip(t *testing.T) {
	original := &RulePack{
		RulesVersion: "2.1.0",
		Engine:       "tickrule",
		Indicators:   []string{"rsi14"},
		Derived:      map[string]string{"rsi": ".indicators.rsi14.value"},
		Packs: []Pack{
			{
				PackType: PackNoTrade,
				Rules: []Rule{
					{ID: "nt-1", Name: "extreme", Enabled: true,
						Expression: "regime == 'EXTREME_BULL'",
						Severity:   SeverityBlock, Message: "stand down"},
				},
			},
		},
	}

	raw, err := json.Marshal(original)
	require.NoError(t, err)

	back, err := ParseRulePack(raw)
	require.NoError(t, err)
	assert.Equal(t, original, back)
}

func TestParseRulePack_Invalid(t *testing.T) {
	_, err := ParseRulePack([]byte("{not json"))
	require.Error(t, err)
	var ee *EngineError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, ErrCodeSchema, ee.Code)
}

// --- Workflow model ---

func TestWorkflowKind_Valid(t *testing.T) {
	for _, kind := range WorkflowKinds {
		assert.True(t, kind.Valid())
	}
	assert.False(t, WorkflowKind("on_tick").Valid())
}

func TestWorkflowSet_Rule(t *testing.T) {
	w := WorkflowSet{
		Entry: WorkflowRule{Expression: "rsi < 30", Enabled: true},
		Exit:  WorkflowRule{Expression: "rsi > 70", Enabled: true},
	}

	assert.Equal(t, "rsi < 30", w.Rule(WorkflowEntry).Expression)
	assert.Equal(t, "rsi > 70", w.Rule(WorkflowExit).Expression)

	unknown := w.Rule(WorkflowKind("bogus"))
	assert.False(t, unknown.Enabled)
	assert.Empty(t, unknown.Expression)
}

// --- EvaluationResult ---

func TestEvaluationResult(t *testing.T) {
	r := EvaluationResult{
		Workflow:    WorkflowEntry,
		Decision:    true,
		ReasonCodes: []string{"RSI_OVERSOLD", "STRONG_TREND"},
	}

	assert.False(t, r.Errored())
	assert.True(t, r.HasReason("RSI_OVERSOLD"))
	assert.False(t, r.HasReason("MACD_BULLISH"))
}
