package property

import (
	"encoding/json"
	"fmt"
)

// Operator is the comparison a DecisionRule applies to a context value.
type Operator string

const (
	// OperatorIs tests equality with a scalar operand.
	OperatorIs Operator = "is"
	// OperatorIn tests membership of a [from, to) interval, cyclic when
	// from > to.
	OperatorIn Operator = "[in["
	// OperatorGTE tests value >= operand.
	OperatorGTE Operator = ">="
	// OperatorLT tests value < operand.
	OperatorLT Operator = "<"
)

// Valid returns true for the known operators.
func (o Operator) Valid() bool {
	switch o {
	case OperatorIs, OperatorIn, OperatorGTE, OperatorLT:
		return true
	}
	return false
}

/*
DecisionRule is the constraint a branch of a decision tree imposes on a
context property.

The type of the operand depends on the operator: a [2]float64 for
OperatorIn, a float64 for OperatorGTE and OperatorLT, and a scalar
(string, float64, bool or nil) for OperatorIs.
*/
type DecisionRule struct {
	Property string      `json:"property"`
	Operator Operator    `json:"operator"`
	Operand  interface{} `json:"operand"`
}

// NewIs returns a rule testing the property equals the given value.
func NewIs(property string, value interface{}) *DecisionRule {
	if value != nil {
		value = Normalize(value)
	}
	return &DecisionRule{Property: property, Operator: OperatorIs, Operand: value}
}

// NewIn returns a rule testing the property lies in [from, to).
func NewIn(property string, from, to float64) *DecisionRule {
	return &DecisionRule{Property: property, Operator: OperatorIn, Operand: [2]float64{from, to}}
}

// NewGTE returns a rule testing the property is >= bound.
func NewGTE(property string, bound float64) *DecisionRule {
	return &DecisionRule{Property: property, Operator: OperatorGTE, Operand: bound}
}

// NewLT returns a rule testing the property is < bound.
func NewLT(property string, bound float64) *DecisionRule {
	return &DecisionRule{Property: property, Operator: OperatorLT, Operand: bound}
}

/*
Interval returns the bounds of an OperatorIn rule, or an error if the
rule does not hold an interval operand.
*/
func (r *DecisionRule) Interval() (float64, float64, error) {
	iv, ok := r.Operand.([2]float64)
	if r.Operator != OperatorIn || !ok {
		return 0, 0, fmt.Errorf("rule %v has no interval operand", r)
	}
	return iv[0], iv[1], nil
}

/*
Bound returns the operand of an OperatorGTE or OperatorLT rule, or an
error if the rule does not hold a numeric bound.
*/
func (r *DecisionRule) Bound() (float64, error) {
	b, ok := r.Operand.(float64)
	if (r.Operator != OperatorGTE && r.Operator != OperatorLT) || !ok {
		return 0, fmt.Errorf("rule %v has no numeric bound", r)
	}
	return b, nil
}

/*
IsCyclic returns true for OperatorIn rules whose lower bound exceeds their
upper bound, that is intervals wrapping around the end of a periodic domain.
*/
func (r *DecisionRule) IsCyclic() bool {
	from, to, err := r.Interval()
	return err == nil && from > to
}

/*
IsOptionalBranch returns true for the rules selecting the subtree of
contexts where an optional property is absent.
*/
func (r *DecisionRule) IsOptionalBranch() bool {
	return r.Operator == OperatorIs && r.Operand == nil
}

/*
Matches takes a context value and returns whether it satisfies the rule.
Missing and Optional values never satisfy a rule, nor do values of a type
the operator cannot compare.
*/
func (r *DecisionRule) Matches(value interface{}) bool {
	value = Normalize(value)
	if IsUnknown(value) {
		return false
	}
	switch r.Operator {
	case OperatorIs:
		return r.Operand != nil && scalarEqual(Normalize(r.Operand), value)
	case OperatorIn:
		v, ok := value.(float64)
		if !ok {
			return false
		}
		from, to, err := r.Interval()
		if err != nil {
			return false
		}
		return InInterval(v, from, to, false)
	case OperatorGTE, OperatorLT:
		v, ok := value.(float64)
		if !ok {
			return false
		}
		b, err := r.Bound()
		if err != nil {
			return false
		}
		if r.Operator == OperatorGTE {
			return v >= b
		}
		return v < b
	}
	return false
}

func scalarEqual(a, b interface{}) bool {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return false
}

/*
InInterval returns whether v belongs to the interval going from `from` to
`to`. When from > to the interval is cyclic and wraps around the end of
the domain. The lower bound always belongs to the interval, the upper
bound only when closed is true.
*/
func InInterval(v, from, to float64, closed bool) bool {
	belowTo := v < to
	if closed {
		belowTo = v <= to
	}
	if from > to {
		return v >= from || belowTo
	}
	return v >= from && belowTo
}

func (r *DecisionRule) String() string {
	switch r.Operator {
	case OperatorIn:
		if from, to, err := r.Interval(); err == nil {
			return fmt.Sprintf("%s in [%v, %v[", r.Property, from, to)
		}
	case OperatorIs:
		if r.Operand == nil {
			return fmt.Sprintf("%s is not defined", r.Property)
		}
	}
	return fmt.Sprintf("%s %s %v", r.Property, r.Operator, r.Operand)
}

/*
UnmarshalJSON decodes a rule and converts its operand into the type
expected for its operator.
*/
func (r *DecisionRule) UnmarshalJSON(data []byte) error {
	jr := &struct {
		Property string          `json:"property"`
		Operator Operator        `json:"operator"`
		Operand  json.RawMessage `json:"operand"`
	}{}
	if err := json.Unmarshal(data, jr); err != nil {
		return err
	}
	if !jr.Operator.Valid() {
		return fmt.Errorf("%q is not a valid decision operator", jr.Operator)
	}
	r.Property = jr.Property
	r.Operator = jr.Operator
	switch jr.Operator {
	case OperatorIn:
		var iv []float64
		if err := json.Unmarshal(jr.Operand, &iv); err != nil || len(iv) != 2 {
			return fmt.Errorf("operator %q on %s expects a pair of numbers, got %s", jr.Operator, jr.Property, jr.Operand)
		}
		r.Operand = [2]float64{iv[0], iv[1]}
	case OperatorGTE, OperatorLT:
		var b float64
		if err := json.Unmarshal(jr.Operand, &b); err != nil {
			return fmt.Errorf("operator %q on %s expects a number, got %s", jr.Operator, jr.Property, jr.Operand)
		}
		r.Operand = b
	default:
		var v interface{}
		if len(jr.Operand) > 0 {
			if err := json.Unmarshal(jr.Operand, &v); err != nil {
				return err
			}
		}
		if m, ok := v.(map[string]interface{}); ok && len(m) == 0 {
			v = nil
		}
		r.Operand = v
	}
	return nil
}
