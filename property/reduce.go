package property

import "math"

type reducerFunc func(r1, r2 *DecisionRule) (*DecisionRule, error)

var reducers map[[2]Operator]reducerFunc

func init() {
	reducers = map[[2]Operator]reducerFunc{
		{OperatorIs, OperatorIs}:   reduceIsIs,
		{OperatorIn, OperatorIn}:   reduceInIn,
		{OperatorIn, OperatorGTE}:  reduceInGTE,
		{OperatorIn, OperatorLT}:   reduceInLT,
		{OperatorGTE, OperatorIn}:  swapped(reduceInGTE),
		{OperatorGTE, OperatorGTE}: reduceGTEGTE,
		{OperatorGTE, OperatorLT}:  reduceGTELT,
		{OperatorLT, OperatorIn}:   swapped(reduceInLT),
		{OperatorLT, OperatorGTE}:  swapped(reduceGTELT),
		{OperatorLT, OperatorLT}:   reduceLTLT,
	}
}

func swapped(f reducerFunc) reducerFunc {
	return func(r1, r2 *DecisionRule) (*DecisionRule, error) {
		return f(r2, r1)
	}
}

/*
Reduce takes two decision rules on the same property and returns a single
rule accepting exactly the values both accept. If one of the rules is nil
the other is returned unchanged. An *IncompatibleRulesError is returned if
the rules apply to different properties, if their operators cannot be
combined or if no value satisfies both.
*/
func Reduce(r1, r2 *DecisionRule) (*DecisionRule, error) {
	if r1 == nil {
		return r2, nil
	}
	if r2 == nil {
		return r1, nil
	}
	if r1.Property != r2.Property {
		return nil, incompatible(reasonProperties, r1, r2)
	}
	f, ok := reducers[[2]Operator{r1.Operator, r2.Operator}]
	if !ok {
		return nil, incompatible(reasonOperators, r1, r2)
	}
	return f(r1, r2)
}

/*
ReduceMany folds Reduce over the given rules from left to right and
returns the resulting rule or the first error encountered.
*/
func ReduceMany(rules []*DecisionRule) (*DecisionRule, error) {
	if len(rules) == 0 {
		return nil, incompatible("no decision rules to reduce")
	}
	result := rules[0]
	for _, r := range rules[1:] {
		var err error
		result, err = Reduce(result, r)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

/*
ReduceByProperty groups the given rules by property, keeping the order in
which properties first appear, and reduces each group into a single rule.
*/
func ReduceByProperty(rules []*DecisionRule) ([]*DecisionRule, error) {
	var order []string
	groups := make(map[string][]*DecisionRule)
	for _, r := range rules {
		if r == nil {
			continue
		}
		if _, ok := groups[r.Property]; !ok {
			order = append(order, r.Property)
		}
		groups[r.Property] = append(groups[r.Property], r)
	}
	reduced := make([]*DecisionRule, 0, len(order))
	for _, p := range order {
		r, err := ReduceMany(groups[p])
		if err != nil {
			return nil, err
		}
		reduced = append(reduced, r)
	}
	return reduced, nil
}

func reduceIsIs(r1, r2 *DecisionRule) (*DecisionRule, error) {
	o1, o2 := r1.Operand, r2.Operand
	if o1 == nil || o2 == nil {
		if o1 != o2 {
			return nil, incompatible(reasonUnfulfillable, r1, r2)
		}
		return NewIs(r1.Property, nil), nil
	}
	if !scalarEqual(Normalize(o1), Normalize(o2)) {
		return nil, incompatible(reasonUnfulfillable, r1, r2)
	}
	return NewIs(r1.Property, o2), nil
}

func reduceInIn(r1, r2 *DecisionRule) (*DecisionRule, error) {
	from1, to1, err := r1.Interval()
	if err != nil {
		return nil, incompatible(reasonOperators, r1, r2)
	}
	from2, to2, err := r2.Interval()
	if err != nil {
		return nil, incompatible(reasonOperators, r1, r2)
	}
	from2In1 := InInterval(from2, from1, to1, true)
	to2In1 := InInterval(to2, from1, to1, true)
	from1In2 := InInterval(from1, from2, to2, true)
	to1In2 := InInterval(to1, from2, to2, true)

	switch {
	case from1In2 && to1In2:
		//    |  r1  |
		//  |     r2     |
		return r1, nil
	case from2In1 && to2In1:
		//  |     r1     |
		//    |  r2  |
		return r2, nil
	case from2In1 && to1In2:
		//  |   r1   |
		//       |   r2   |
		return NewIn(r1.Property, from2, to1), nil
	case to2In1 && from1In2:
		//       |   r1   |
		//  |   r2   |
		return NewIn(r1.Property, from1, to2), nil
	}
	return nil, incompatible(reasonUnfulfillable, r1, r2)
}

func reduceInGTE(in, gte *DecisionRule) (*DecisionRule, error) {
	from, to, err := in.Interval()
	if err != nil {
		return nil, incompatible(reasonOperators, in, gte)
	}
	bound, err := gte.Bound()
	if err != nil {
		return nil, incompatible(reasonOperators, in, gte)
	}
	switch {
	case from > to, bound >= to:
		// a single bound cannot restrict a cyclic interval
		return nil, incompatible(reasonUnfulfillable, in, gte)
	case bound >= from:
		return NewIn(in.Property, bound, to), nil
	}
	return in, nil
}

func reduceInLT(in, lt *DecisionRule) (*DecisionRule, error) {
	from, to, err := in.Interval()
	if err != nil {
		return nil, incompatible(reasonOperators, in, lt)
	}
	bound, err := lt.Bound()
	if err != nil {
		return nil, incompatible(reasonOperators, in, lt)
	}
	switch {
	case from > to, bound < from:
		return nil, incompatible(reasonUnfulfillable, in, lt)
	case bound < to:
		return NewIn(in.Property, from, bound), nil
	}
	return in, nil
}

func reduceGTEGTE(r1, r2 *DecisionRule) (*DecisionRule, error) {
	b1, err1 := r1.Bound()
	b2, err2 := r2.Bound()
	if err1 != nil || err2 != nil {
		return nil, incompatible(reasonOperators, r1, r2)
	}
	return NewGTE(r1.Property, math.Max(b1, b2)), nil
}

func reduceLTLT(r1, r2 *DecisionRule) (*DecisionRule, error) {
	b1, err1 := r1.Bound()
	b2, err2 := r2.Bound()
	if err1 != nil || err2 != nil {
		return nil, incompatible(reasonOperators, r1, r2)
	}
	return NewLT(r1.Property, math.Min(b1, b2)), nil
}

func reduceGTELT(gte, lt *DecisionRule) (*DecisionRule, error) {
	lower, err1 := gte.Bound()
	upper, err2 := lt.Bound()
	if err1 != nil || err2 != nil {
		return nil, incompatible(reasonOperators, gte, lt)
	}
	if upper < lower {
		return nil, incompatible(reasonUnfulfillable, gte, lt)
	}
	return NewIn(gte.Property, lower, upper), nil
}
