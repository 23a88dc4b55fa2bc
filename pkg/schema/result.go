package schema

import "time"

// EvaluationResult is the per-tick outcome of one workflow evaluation.
// Decision is always populated: on any error it holds the workflow's safe
// default and Err carries the captured fault.
type EvaluationResult struct {
	ID          string       `json:"id,omitempty"` // evaluation id (uuid), for journal correlation
	Workflow    WorkflowKind `json:"workflow"`
	Decision    bool         `json:"decision"`
	Value       Value        `json:"value,omitempty"`   // raw expression value, Null on error/empty
	ReasonCodes []string     `json:"reason_codes,omitempty"`
	RuleID      string       `json:"rule_id,omitempty"` // pack aggregation: rule that decided
	Message     string       `json:"message,omitempty"` // pack aggregation: deciding rule's message
	Err         *EngineError `json:"error,omitempty"`
	EvaluatedAt time.Time    `json:"evaluated_at,omitzero"`
}

// Errored reports whether the evaluation was absorbed into its default.
func (r *EvaluationResult) Errored() bool { return r.Err != nil }

// HasReason reports whether the given reason code was derived.
func (r *EvaluationResult) HasReason(code string) bool {
	for _, c := range r.ReasonCodes {
		if c == code {
			return true
		}
	}
	return false
}
