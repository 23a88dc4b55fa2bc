package schema

import "encoding/json"

// WorkflowKind is one of the five evaluation points in a trading decision
// cycle. Polarity and safe defaults are fixed per kind (see engine).
type WorkflowKind string

const (
	WorkflowEntry      WorkflowKind = "entry"
	WorkflowNoEntry    WorkflowKind = "no_entry"
	WorkflowExit       WorkflowKind = "exit"
	WorkflowBeforeExit WorkflowKind = "before_exit"
	WorkflowUpdateStop WorkflowKind = "update_stop"
)

// WorkflowKinds lists all kinds in their evaluation order: entry flow
// first, then the in-position flow (before_exit precedes exit).
var WorkflowKinds = []WorkflowKind{
	WorkflowEntry,
	WorkflowNoEntry,
	WorkflowBeforeExit,
	WorkflowExit,
	WorkflowUpdateStop,
}

// Valid reports whether k names a known workflow kind.
func (k WorkflowKind) Valid() bool {
	switch k {
	case WorkflowEntry, WorkflowNoEntry, WorkflowExit, WorkflowBeforeExit, WorkflowUpdateStop:
		return true
	}
	return false
}

// WorkflowRule is one expression slot in the flat strategy model.
type WorkflowRule struct {
	Language   string `json:"language,omitempty"` // expr (default) | cel
	Expression string `json:"expression"`
	Enabled    bool   `json:"enabled"`
}

// WorkflowSet holds one expression per workflow kind.
type WorkflowSet struct {
	Entry      WorkflowRule `json:"entry"`
	NoEntry    WorkflowRule `json:"no_entry"`
	Exit       WorkflowRule `json:"exit"`
	BeforeExit WorkflowRule `json:"before_exit"`
	UpdateStop WorkflowRule `json:"update_stop"`
}

// Rule returns the slot for the given kind. Unknown kinds return a
// disabled zero rule.
func (w *WorkflowSet) Rule(kind WorkflowKind) WorkflowRule {
	switch kind {
	case WorkflowEntry:
		return w.Entry
	case WorkflowNoEntry:
		return w.NoEntry
	case WorkflowExit:
		return w.Exit
	case WorkflowBeforeExit:
		return w.BeforeExit
	case WorkflowUpdateStop:
		return w.UpdateStop
	}
	return WorkflowRule{}
}

// StrategyDoc is the flat per-strategy JSON document: one expression per
// workflow kind, plus declared indicators and derived variables.
type StrategyDoc struct {
	SchemaVersion string            `json:"schema_version"`
	StrategyType  string            `json:"strategy_type,omitempty"`
	Name          string            `json:"name"`
	Indicators    []string          `json:"indicators,omitempty"`
	Derived       map[string]string `json:"derived,omitempty"`
	Workflow      WorkflowSet       `json:"workflow"`
}

// ParseStrategyDoc decodes a strategy document. Callers run schema
// validation first; this only decodes.
func ParseStrategyDoc(data []byte) (*StrategyDoc, error) {
	var doc StrategyDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, NewError(ErrCodeSchema, "cannot parse strategy document").WithCause(err)
	}
	return &doc, nil
}
