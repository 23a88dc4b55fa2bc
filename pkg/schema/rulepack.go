package schema

import "encoding/json"

// Severity orders rules inside a pack. Aggregation for exit-type packs
// walks rules by descending severity; warn-level rules never flip a
// decision, they only contribute reason codes.
type Severity string

const (
	SeverityBlock      Severity = "block"
	SeverityExit       Severity = "exit"
	SeverityUpdateStop Severity = "update_stop"
	SeverityWarn       Severity = "warn"
)

// severityRank maps severities to their aggregation order (higher first).
var severityRank = map[Severity]int{
	SeverityBlock:      3,
	SeverityExit:       2,
	SeverityUpdateStop: 1,
	SeverityWarn:       0,
}

// Rank returns the aggregation rank of the severity (higher wins).
// Unknown severities rank below warn.
func (s Severity) Rank() int {
	r, ok := severityRank[s]
	if !ok {
		return -1
	}
	return r
}

// PackType identifies what a group of rules gates.
type PackType string

const (
	PackNoTrade    PackType = "no_trade"
	PackEntry      PackType = "entry"
	PackExit       PackType = "exit"
	PackUpdateStop PackType = "update_stop"
	PackRisk       PackType = "risk"
)

// Rule is one named, toggleable expression inside a pack.
type Rule struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Enabled    bool     `json:"enabled"`
	Language   string   `json:"language,omitempty"` // expr (default) | cel
	Expression string   `json:"expression"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message,omitempty"`
}

// Pack groups rules under one pack type.
type Pack struct {
	PackType PackType `json:"pack_type"`
	Rules    []Rule   `json:"rules"`
}

// RulePack is the versioned JSON document grouping rule packs. It is
// schema-validated before any field is trusted.
type RulePack struct {
	RulesVersion string            `json:"rules_version"`
	Engine       string            `json:"engine,omitempty"`
	Metadata     map[string]any    `json:"metadata,omitempty"`
	Indicators   []string          `json:"indicators,omitempty"` // declared indicator ids
	Derived      map[string]string `json:"derived,omitempty"`    // name -> jq path over the context
	Packs        []Pack            `json:"packs"`
}

// Pack returns the pack with the given type, or nil.
func (rp *RulePack) Pack(t PackType) *Pack {
	for i := range rp.Packs {
		if rp.Packs[i].PackType == t {
			return &rp.Packs[i]
		}
	}
	return nil
}

// EnabledRules returns the enabled rules of a pack sorted by descending
// severity, preserving document order within a severity level.
func (p *Pack) EnabledRules() []Rule {
	out := make([]Rule, 0, len(p.Rules))
	for _, r := range p.Rules {
		if r.Enabled {
			out = append(out, r)
		}
	}
	// Stable insertion sort; packs hold a handful of rules.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Severity.Rank() > out[j-1].Severity.Rank(); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// ParseRulePack decodes a RulePack document. Callers are expected to run
// schema validation first; this only decodes.
func ParseRulePack(data []byte) (*RulePack, error) {
	var rp RulePack
	if err := json.Unmarshal(data, &rp); err != nil {
		return nil, NewError(ErrCodeSchema, "cannot parse rule pack document").WithCause(err)
	}
	return &rp, nil
}
