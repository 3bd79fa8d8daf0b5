package tree

import (
	"fmt"
	"sort"

	"github.com/matthieu-boussard/craft-ai-client-python/clock"
	"github.com/matthieu-boussard/craft-ai-client-python/property"
)

/*
RebuildContext takes a configuration, the state of the properties read from
the environment and an optional decision time and returns the full context
a tree built with that configuration decides on.

Generated properties get their values from the time, overriding the state.
If the state holds a value for a timezone property, the time is read in
that timezone. A timezone property absent from the state is filled from the
time. Declared properties absent from the state are Missing.

Without a time, generated properties keep the values of the state. A
*clock.InvalidTimeError is returned if one of them is absent from it.
*/
func RebuildContext(cfg Configuration, state property.Context, tm *clock.Time) (property.Context, error) {
	ctx := make(property.Context, len(cfg.Context))
	for k, v := range state {
		ctx[k] = property.Normalize(v)
	}
	names := make([]string, 0, len(cfg.Context))
	for name := range cfg.Context {
		names = append(names, name)
	}
	sort.Strings(names)

	if tm != nil {
		local, err := localTime(cfg, state, names, *tm)
		if err != nil {
			return nil, err
		}
		tm = &local
	}
	for _, name := range names {
		spec := cfg.Context[name]
		_, inState := state[name]
		switch {
		case spec.Generated() && tm == nil && inState:
		case spec.Generated():
			if tm == nil {
				return nil, &clock.InvalidTimeError{Reason: fmt.Sprintf("property %s is generated from the decision time but neither its value nor a time was given", name)}
			}
			v, ok := tm.Value(spec.Type)
			if !ok {
				return nil, malformed("property %s of type %s cannot be generated", name, spec.Type)
			}
			ctx[name] = v
		case spec.Type == property.Timezone && !inState && tm != nil:
			ctx[name] = tm.Timezone
		case !inState:
			ctx[name] = property.Missing
		}
	}
	return ctx, nil
}

func localTime(cfg Configuration, state property.Context, names []string, tm clock.Time) (clock.Time, error) {
	for _, name := range names {
		if cfg.Context[name].Type != property.Timezone {
			continue
		}
		tz, ok := property.Normalize(state[name]).(string)
		if !ok {
			continue
		}
		local, err := clock.New(tm.Timestamp, tz)
		if err != nil {
			return clock.Time{}, fmt.Errorf("reading time in timezone of property %s: %w", name, err)
		}
		return local, nil
	}
	return tm, nil
}
