package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

// rawCondition mirrors Condition for decoding. Value stays a RawMessage so
// that nested objects can be rejected instead of silently decoded.
type rawCondition struct {
	Field    *string         `json:"field"`
	Operator *string         `json:"operator"`
	Value    json.RawMessage `json:"value"`
}

// rawGroup accepts "children" as an alias for the canonical "conditions" key;
// MarshalJSON always emits "conditions".
type rawGroup struct {
	Operator   *LogicalOperator `json:"logicalOperator"`
	Conditions []Predicate      `json:"conditions"`
	Children   []Predicate      `json:"children"`
	Negate     bool             `json:"negate"`
}

// UnmarshalJSON decodes the two-shape predicate union. The shape is decided by
// the discriminating keys: "field" marks a condition, "logicalOperator" marks
// a group. Objects carrying both, or neither, are rejected at construction.
func (p *Predicate) UnmarshalJSON(data []byte) error {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return fmt.Errorf("predicate must be a JSON object: %v", err)
	}

	_, hasField := keys["field"]
	_, hasLogical := keys["logicalOperator"]

	switch {
	case hasField && hasLogical:
		return errors.New("predicate cannot be both a condition and a group")
	case hasField:
		var raw rawCondition
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		if raw.Field == nil || raw.Operator == nil {
			return errors.New("condition requires both field and operator")
		}
		var value interface{}
		if len(raw.Value) > 0 {
			if err := json.Unmarshal(raw.Value, &value); err != nil {
				return err
			}
		}
		p.Condition = &Condition{Field: *raw.Field, Operator: *raw.Operator, Value: value}
		p.Group = nil
		return nil
	case hasLogical:
		var raw rawGroup
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		if raw.Operator == nil {
			return errors.New("group requires a logicalOperator")
		}
		children := raw.Conditions
		if len(children) == 0 {
			children = raw.Children
		}
		p.Group = &Group{Operator: *raw.Operator, Children: children, Negate: raw.Negate}
		p.Condition = nil
		return nil
	default:
		return errors.New("predicate requires either field or logicalOperator")
	}
}

// MarshalJSON encodes whichever arm of the union is set.
func (p Predicate) MarshalJSON() ([]byte, error) {
	switch {
	case p.Condition != nil && p.Group != nil:
		return nil, errors.New("predicate cannot be both a condition and a group")
	case p.Condition != nil:
		return json.Marshal(p.Condition)
	case p.Group != nil:
		return json.Marshal(p.Group)
	default:
		return nil, errors.New("empty predicate")
	}
}
