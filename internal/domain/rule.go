package domain

import "encoding/json"

// Rule is a filtered stream rule.
type Rule struct {
	ID    string `json:"id,omitempty" toml:"id,omitempty"`
	Value string `json:"value" toml:"value"`
	Tag   string `json:"tag,omitempty" toml:"tag,omitempty"`
}

// Key identifies a rule by content. Server assigned ids are ignored.
func (r Rule) Key() string {
	return r.Value + "\x00" + r.Tag
}

// RulesSummary reports the outcome of an add or delete request.
type RulesSummary struct {
	Created    int `json:"created,omitempty"`
	NotCreated int `json:"not_created,omitempty"`
	Valid      int `json:"valid,omitempty"`
	Invalid    int `json:"invalid,omitempty"`
	Deleted    int `json:"deleted,omitempty"`
	NotDeleted int `json:"not_deleted,omitempty"`
}

// RulesMeta is the meta block of a rules response.
type RulesMeta struct {
	Sent        string       `json:"sent"`
	ResultCount int          `json:"result_count,omitempty"`
	Summary     RulesSummary `json:"summary,omitempty"`
}

// RulesResponse is the body returned by the rules endpoint.
type RulesResponse struct {
	Data   []Rule            `json:"data,omitempty"`
	Meta   RulesMeta         `json:"meta"`
	Errors []json.RawMessage `json:"errors,omitempty"`
}
