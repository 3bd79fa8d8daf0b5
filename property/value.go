package property

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type sentinel string

func (s sentinel) String() string {
	return string(s)
}

func (s sentinel) MarshalJSON() ([]byte, error) {
	if s == Optional {
		return []byte("{}"), nil
	}
	return []byte("null"), nil
}

const (
	// Missing is the value of a property explicitly absent from a context.
	// It is encoded as null in JSON.
	Missing = sentinel("MISSING")
	// Optional is the value of a property that is absent from a context
	// but could exist. It is encoded as an empty object in JSON.
	Optional = sentinel("OPTIONAL")
)

/*
IsUnknown returns true if the given value is one of the Missing or
Optional sentinels.
*/
func IsUnknown(v interface{}) bool {
	return v == Missing || v == Optional
}

/*
Normalize takes a context value and returns its canonical representation:
numbers become float64, nil becomes Missing and empty maps become Optional.
Any other value is returned unchanged.
*/
func Normalize(v interface{}) interface{} {
	switch n := v.(type) {
	case nil:
		return Missing
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return n.String()
		}
		return f
	case map[string]interface{}:
		if len(n) == 0 {
			return Optional
		}
	case map[interface{}]interface{}:
		if len(n) == 0 {
			return Optional
		}
	}
	return v
}

// Context maps property names to the values a decision is taken for.
type Context map[string]interface{}

/*
NewContext takes a map of property names to values and returns a Context
holding their normalized values.
*/
func NewContext(values map[string]interface{}) Context {
	c := make(Context, len(values))
	for k, v := range values {
		c[k] = Normalize(v)
	}
	return c
}

/*
Get returns the normalized value for the given property, Missing if the
context holds no value for it.
*/
func (c Context) Get(name string) interface{} {
	v, ok := c[name]
	if !ok {
		return Missing
	}
	return Normalize(v)
}

func (c *Context) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding context: %w", err)
	}
	ctx := make(Context, len(raw))
	for k, r := range raw {
		dec := json.NewDecoder(bytes.NewReader(r))
		dec.UseNumber()
		var v interface{}
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("decoding context value for %s: %w", k, err)
		}
		ctx[k] = Normalize(v)
	}
	*c = ctx
	return nil
}
