package navstack

import (
	"encoding/json"
)

// Trace captures one dispatch's reconciliation outcome: which element scopes
// were cancelled and which were newly mounted, keyed by their canonical scope
// paths.
type Trace struct {
	Action    string   `json:"action"`
	Cancelled []string `json:"cancelled,omitempty"`
	Mounted   []string `json:"mounted,omitempty"`
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
