package property

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	days   = [...]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
	months = [...]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
)

/*
FormatValue takes a property type and a value and returns the value as a
human readable string: hours for time_of_day, day and month names for
day_of_week and month_of_year, and continuous values rounded to two
decimals.
*/
func FormatValue(t Type, v interface{}) string {
	v = Normalize(v)
	if IsUnknown(v) {
		return "N/A"
	}
	f, numeric := v.(float64)
	if !numeric {
		return fmt.Sprintf("%v", v)
	}
	switch t {
	case TimeOfDay:
		return formatHour(f)
	case DayOfWeek:
		return days[mod(int(f), 7)]
	case MonthOfYear:
		return months[mod(int(f)-1, 12)]
	case DayOfMonth:
		return strconv.Itoa(int(f))
	}
	return strconv.FormatFloat(math.Round(f*100)/100, 'f', -1, 64)
}

// seconds are truncated, within a tolerance absorbing the error of h*3600
const secondTolerance = 1e-6

func formatHour(h float64) string {
	total := int(math.Floor(h*3600 + secondTolerance))
	hours, minutes, seconds := mod(total/3600, 24), (total/60)%60, total%60
	if seconds == 0 {
		return fmt.Sprintf("%02d:%02d", hours, minutes)
	}
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

func mod(a, n int) int {
	return ((a % n) + n) % n
}

/*
FormatRule takes the type of the property a rule applies to and returns
the rule as a sentence fragment such as "temperature >= 12.5" or
"day_of_week from Mon to Fri".
*/
func FormatRule(t Type, r *DecisionRule) string {
	switch r.Operator {
	case OperatorIs:
		if r.Operand == nil {
			return fmt.Sprintf("%s is not defined", r.Property)
		}
		return fmt.Sprintf("%s is %s", r.Property, FormatValue(t, r.Operand))
	case OperatorGTE, OperatorLT:
		b, err := r.Bound()
		if err != nil {
			break
		}
		return fmt.Sprintf("%s %s %s", r.Property, r.Operator, FormatValue(t, b))
	case OperatorIn:
		from, to, err := r.Interval()
		if err != nil {
			break
		}
		switch t {
		case DayOfWeek:
			return formatUnitRange(r.Property, days[:], int(from), int(to), 0)
		case MonthOfYear:
			return formatUnitRange(r.Property, months[:], int(from), int(to), 1)
		}
		return fmt.Sprintf("%s is between %s and %s", r.Property, FormatValue(t, from), FormatValue(t, to))
	}
	return r.String()
}

// Ranges of units are half open, the displayed upper unit is the last one
// included.
func formatUnitRange(name string, units []string, from, to, offset int) string {
	n := len(units)
	first := mod(from-offset, n)
	last := mod(to-offset-1, n)
	if first == last {
		return fmt.Sprintf("%s is %s", name, units[first])
	}
	return fmt.Sprintf("%s from %s to %s", name, units[first], units[last])
}

/*
FormatRules takes the property declarations of a tree configuration and a
list of decision rules, reduces the rules by property and returns them as a
single sentence. An error is returned if the rules cannot be reduced or if
one of them applies to an undeclared property.
*/
func FormatRules(specs map[string]Spec, rules []*DecisionRule) (string, error) {
	reduced, err := ReduceByProperty(rules)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(reduced))
	for _, r := range reduced {
		spec, ok := specs[r.Property]
		if !ok {
			return "", fmt.Errorf("formatting decision rules: unknown property %s", r.Property)
		}
		parts = append(parts, FormatRule(spec.Type, r))
	}
	return strings.Join(parts, " and "), nil
}
