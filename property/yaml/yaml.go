/*
Package yaml provides methods to parse decision contexts and property
declarations from YAML documents. As JSON is a subset of YAML, JSON
documents are accepted too.
*/
package yaml

import (
	"fmt"
	"os"

	"github.com/matthieu-boussard/craft-ai-client-python/property"
	yaml "gopkg.in/yaml.v2"
)

/*
ReadContext takes a slice of bytes with a context in YML and returns the
parsed context or an error.
The YML is expected to be an object with a property for each context
property holding a scalar value. A null value stands for a missing value
and an empty object for an optional value.
*/
func ReadContext(data []byte) (property.Context, error) {
	raw := map[string]interface{}{}
	err := yaml.Unmarshal(data, &raw)
	if err != nil {
		return nil, fmt.Errorf("parsing yml context: %v", err)
	}
	for name, v := range raw {
		switch value := property.Normalize(v).(type) {
		case map[interface{}]interface{}, map[string]interface{}, []interface{}:
			return nil, fmt.Errorf("invalid value of type %T for context property %s", value, name)
		}
	}
	return property.NewContext(raw), nil
}

/*
ReadContextFromFile takes a filepath string, reads its contents and uses
ReadContext to parse it and return the parsed context or an error.
*/
func ReadContextFromFile(filepath string) (property.Context, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("reading context yml file %s: %v", filepath, err)
	}
	ctx, err := ReadContext(data)
	if err != nil {
		err = fmt.Errorf("parsing context yml file %s: %v", filepath, err)
	}
	return ctx, err
}

/*
ReadSpecs takes a slice of bytes with property declarations in YML and
returns them indexed by property name, or an error.
The YML is expected to be an object containing a context property, as the
configuration of a decision tree does. The value for this should be an
object with a property for each context property holding its type and
optionally its is_generated and is_optional flags.
*/
func ReadSpecs(data []byte) (map[string]property.Spec, error) {
	configuration := struct {
		Context map[string]property.Spec `yaml:"context"`
	}{}
	err := yaml.Unmarshal(data, &configuration)
	if err != nil {
		return nil, fmt.Errorf("parsing yml property declarations: %v", err)
	}
	if configuration.Context == nil {
		return nil, fmt.Errorf("document has no context property declarations")
	}
	for name, spec := range configuration.Context {
		if !spec.Type.Valid() {
			return nil, fmt.Errorf("invalid type %q for property %s", spec.Type, name)
		}
	}
	return configuration.Context, nil
}

/*
ReadSpecsFromFile takes a filepath string, reads its contents and uses
ReadSpecs to parse it and return the declared properties or an error.
*/
func ReadSpecsFromFile(filepath string) (map[string]property.Spec, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("reading property declarations yml file %s: %v", filepath, err)
	}
	specs, err := ReadSpecs(data)
	if err != nil {
		err = fmt.Errorf("parsing property declarations yml file %s: %v", filepath, err)
	}
	return specs, err
}
