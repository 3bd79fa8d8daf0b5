package property

import (
	"fmt"
	"strings"
)

/*
IncompatibleRulesError is returned when decision rules cannot be reduced
into a single rule, either because the values they accept are disjoint or
because their operators or properties cannot be combined.
*/
type IncompatibleRulesError struct {
	Rules  []DecisionRule
	Reason string
}

func (e *IncompatibleRulesError) Error() string {
	rules := make([]string, len(e.Rules))
	for i := range e.Rules {
		rules[i] = fmt.Sprintf("'%s'", e.Rules[i].String())
	}
	if len(rules) == 0 {
		return fmt.Sprintf("unable to reduce decision rules: %s", e.Reason)
	}
	return fmt.Sprintf("unable to reduce decision rules %s: %s", strings.Join(rules, " and "), e.Reason)
}

const (
	reasonUnfulfillable = "the resulting rule is not fulfillable"
	reasonOperators     = "incompatible operators"
	reasonProperties    = "rules apply to different properties"
)

func incompatible(reason string, rules ...*DecisionRule) error {
	err := &IncompatibleRulesError{Reason: reason}
	for _, r := range rules {
		if r != nil {
			err.Rules = append(err.Rules, *r)
		}
	}
	return err
}
