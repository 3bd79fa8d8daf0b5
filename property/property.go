/*
Package property describes the context properties a decision tree is built
on: their types, the values a context may hold for them, and the decision
rules that constrain them on the branches of a tree.
*/
package property

import (
	"fmt"
	"math"
)

// Type is the type of a context property as declared in the
// configuration of a decision tree.
type Type string

const (
	// Continuous properties take any real value.
	Continuous Type = "continuous"
	// Enum properties take a value among a finite set of strings.
	Enum Type = "enum"
	// Boolean properties take true or false.
	Boolean Type = "boolean"
	// Timezone properties hold an UTC offset such as "+01:00".
	Timezone Type = "timezone"
	// TimeOfDay properties hold a fractional hour in [0, 24).
	TimeOfDay Type = "time_of_day"
	// DayOfWeek properties hold a day index in [0, 6], Monday being 0.
	DayOfWeek Type = "day_of_week"
	// DayOfMonth properties hold a day in [1, 31].
	DayOfMonth Type = "day_of_month"
	// MonthOfYear properties hold a month in [1, 12].
	MonthOfYear Type = "month_of_year"
)

/*
Valid returns true if the type is one of the known property types.
*/
func (t Type) Valid() bool {
	switch t {
	case Continuous, Enum, Boolean, Timezone, TimeOfDay, DayOfWeek, DayOfMonth, MonthOfYear:
		return true
	}
	return false
}

/*
IsTime returns true for the types whose values can be derived from a
timestamp and are generated by default.
*/
func (t Type) IsTime() bool {
	switch t {
	case TimeOfDay, DayOfWeek, DayOfMonth, MonthOfYear:
		return true
	}
	return false
}

/*
IsDiscrete returns true for the types predicted through a probability
distribution over a set of classes rather than through a mean value.
*/
func (t Type) IsDiscrete() bool {
	return t == Enum || t == Boolean
}

// Spec is the declaration of a context property in a tree configuration.
type Spec struct {
	Type Type `json:"type" yaml:"type"`
	// IsGenerated is nil when the configuration does not say, in which case
	// the default for the type applies (see Generated).
	IsGenerated *bool `json:"is_generated,omitempty" yaml:"is_generated,omitempty"`
	IsOptional  bool  `json:"is_optional,omitempty" yaml:"is_optional,omitempty"`
}

/*
Generated returns whether the value for the property is computed from
the decision time rather than read from the given context. Time types are
generated unless the configuration explicitly says otherwise, any other
type is generated only when the configuration asks for it.
*/
func (s Spec) Generated() bool {
	if s.IsGenerated != nil {
		return *s.IsGenerated
	}
	return s.Type.IsTime()
}

/*
Valid takes the name of the property and a value and returns an error
describing why the value cannot be held by a property with this spec,
or nil if it can. Missing and Optional are valid for every property.
*/
func (s Spec) Valid(name string, value interface{}) error {
	value = Normalize(value)
	if IsUnknown(value) {
		return nil
	}
	switch s.Type {
	case Enum, Timezone:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("%s property %s expects a string value, got %T value", s.Type, name, value)
		}
	case Boolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("boolean property %s expects a bool value, got %T value", name, value)
		}
	case Continuous:
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("continuous property %s expects a numeric value, got %T value", name, value)
		}
	case TimeOfDay, DayOfWeek, DayOfMonth, MonthOfYear:
		f, ok := value.(float64)
		if !ok {
			return fmt.Errorf("%s property %s expects a numeric value, got %T value", s.Type, name, value)
		}
		lo, hi := s.Type.bounds()
		if f < lo || f > hi || (s.Type != TimeOfDay && f != math.Trunc(f)) {
			return fmt.Errorf("%s property %s got out of range value %v", s.Type, name, f)
		}
	default:
		return fmt.Errorf("property %s has unknown type %q", name, s.Type)
	}
	return nil
}

func (t Type) bounds() (float64, float64) {
	switch t {
	case TimeOfDay:
		return 0, math.Nextafter(24, 0)
	case DayOfWeek:
		return 0, 6
	case DayOfMonth:
		return 1, 31
	case MonthOfYear:
		return 1, 12
	}
	return math.Inf(-1), math.Inf(1)
}
