/*
Package json reads and writes decision trees in the JSON format of the
decision service: an object with the following fields:
  - "_version": a string with the semantic version of the format
  - "configuration": an object declaring the context properties, outputs
    and decision policy of the tree
  - "trees": an object with the root node of the tree of each output

Documents are validated against an embedded JSON schema before decoding.
*/
package json

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/matthieu-boussard/craft-ai-client-python/property"
	"github.com/matthieu-boussard/craft-ai-client-python/tree"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaJSON string

const schemaURL = "decision-tree.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(schemaURL)
	})
	return schema, schemaErr
}

type configuration struct {
	Context                 map[string]property.Spec `json:"context"`
	Output                  []string                 `json:"output"`
	TimeQuantum             float64                  `json:"time_quantum,omitempty"`
	LearningPeriod          float64                  `json:"learning_period,omitempty"`
	DeactivateMissingValues *bool                    `json:"deactivate_missing_values,omitempty"`
}

type jsonTree struct {
	Version       string           `json:"_version"`
	Configuration configuration    `json:"configuration"`
	Trees         map[string]*node `json:"trees"`
}

/*
ReadTree takes an io.Reader and returns the decision tree read from it.
A *tree.MalformedTreeError is returned if the document does not describe
a valid tree, and another error if it cannot be read or is not JSON.
*/
func ReadTree(r io.Reader) (*tree.Tree, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading decision tree: %v", err)
	}
	return Decode(data)
}

/*
Decode takes a slice of bytes with a JSON document and returns the decision
tree it describes.
*/
func Decode(data []byte) (*tree.Tree, error) {
	var payload interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decoding decision tree: %w", err)
	}
	if obj, ok := payload.(map[string]interface{}); ok {
		if _, ok := obj["_version"]; !ok {
			return nil, &tree.MalformedTreeError{Reason: "unable to find the version informations"}
		}
	}
	s, err := compiledSchema()
	if err != nil {
		return nil, err
	}
	if err := s.Validate(payload); err != nil {
		return nil, &tree.MalformedTreeError{Reason: err.Error()}
	}

	jt := &jsonTree{}
	if err := json.Unmarshal(data, jt); err != nil {
		return nil, &tree.MalformedTreeError{Reason: err.Error()}
	}
	probe := &tree.Tree{Version: jt.Version}
	major := probe.Major()

	cfg := tree.Configuration{
		Context:                 jt.Configuration.Context,
		Output:                  jt.Configuration.Output,
		TimeQuantum:             jt.Configuration.TimeQuantum,
		LearningPeriod:          jt.Configuration.LearningPeriod,
		DeactivateMissingValues: true,
	}
	if jt.Configuration.DeactivateMissingValues != nil {
		cfg.DeactivateMissingValues = *jt.Configuration.DeactivateMissingValues
	}
	trees := make(map[string]*tree.Node, len(jt.Trees))
	for output, jn := range jt.Trees {
		if jn == nil {
			continue
		}
		n, err := decodeNode(jn, major, "0")
		if err != nil {
			return nil, err
		}
		trees[output] = n
	}
	return tree.New(jt.Version, cfg, trees)
}

/*
WriteTree takes an io.Writer and a decision tree and writes the tree onto
the io.Writer as JSON. Leaves are written in the format of the version of
the tree. An error is returned if the tree cannot be serialized or written.
*/
func WriteTree(w io.Writer, t *tree.Tree) error {
	data, err := Encode(t)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Encode returns the JSON document describing the tree.
func Encode(t *tree.Tree) ([]byte, error) {
	major := t.Major()
	deactivate := t.Configuration.DeactivateMissingValues
	jt := &jsonTree{
		Version: t.Version,
		Configuration: configuration{
			Context:                 t.Configuration.Context,
			Output:                  t.Configuration.Output,
			TimeQuantum:             t.Configuration.TimeQuantum,
			LearningPeriod:          t.Configuration.LearningPeriod,
			DeactivateMissingValues: &deactivate,
		},
		Trees: make(map[string]*node, len(t.Trees)),
	}
	for output, n := range t.Trees {
		jn, err := encodeNode(n, nil, major)
		if err != nil {
			return nil, fmt.Errorf("encoding tree of output %s: %v", output, err)
		}
		jt.Trees[output] = jn
	}
	return json.Marshal(jt)
}

type encodeDecoder struct{}

/*
NewEncodeDecoder returns a tree.EncodeDecoder encoding trees as JSON, for
use by stores.
*/
func NewEncodeDecoder() tree.EncodeDecoder {
	return encodeDecoder{}
}

func (encodeDecoder) Encode(t *tree.Tree) ([]byte, error) {
	return Encode(t)
}

func (encodeDecoder) Decode(data []byte) (*tree.Tree, error) {
	return ReadTree(bytes.NewReader(data))
}
