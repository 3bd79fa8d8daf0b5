package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testdata = filepath.Join("..", "..", "tree", "testdata")

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := cliParser()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

type decision struct {
	Output map[string]struct {
		PredictedValue   interface{} `json:"predicted_value"`
		DecisionPath     string      `json:"decision_path"`
		NbSamples        int         `json:"nb_samples"`
		AggregatedLeaves int         `json:"aggregated_leaves"`
	} `json:"output"`
	Context      map[string]interface{} `json:"context"`
	Explanations map[string]string      `json:"explanations"`
}

func decode(t *testing.T, out string) *decision {
	t.Helper()
	d := &decision{}
	require.NoError(t, json.Unmarshal([]byte(out), d), out)
	return d
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "craftai v0.1.0\n", out)
}

func TestDecideAtTime(t *testing.T) {
	metrics := filepath.Join(t.TempDir(), "craftai.prom")
	out, err := run(t, "decide", "--tree", filepath.Join(testdata, "v1_lamp.json"),
		"--timestamp", "1489998174", "--timezone", "+01:00", "--explain", "--metrics-textfile", metrics)
	require.NoError(t, err)

	d := decode(t, out)
	assert.Equal(t, "OFF", d.Output["lamp"].PredictedValue)
	assert.Equal(t, "0-0-0", d.Output["lamp"].DecisionPath)
	assert.Equal(t, "+01:00", d.Context["tz"])
	assert.Equal(t, "day from Mon to Fri and time is between 08:00 and 18:00", d.Explanations["lamp"])

	prom, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `craftai_decisions_total{result="ok",version="1"} 1`)
}

func TestDecideAtDate(t *testing.T) {
	lamp := filepath.Join(testdata, "v1_lamp.json")
	out, err := run(t, "decide", "--tree", lamp, "--time", "2017-03-20T09:22:54+01:00")
	require.NoError(t, err)
	d := decode(t, out)
	assert.Equal(t, "OFF", d.Output["lamp"].PredictedValue)
	assert.Equal(t, "+01:00", d.Context["tz"])
	assert.Equal(t, 0.0, d.Context["day"])

	// the same instant observed in another timezone
	out, err = run(t, "decide", "--tree", lamp, "--time", "2017-03-20T08:22:54Z", "--timezone", "+01:00")
	require.NoError(t, err)
	assert.Equal(t, d, decode(t, out))
}

func TestDecideMissingValues(t *testing.T) {
	tree := filepath.Join(testdata, "v2_lamp.json")
	ctx := writeFile(t, "context.yml", "time: 10\npresence: null\n")

	out, err := run(t, "decide", "-t", tree, "-c", ctx)
	require.NoError(t, err)
	d := decode(t, out)
	assert.Equal(t, "ON", d.Output["lamp"].PredictedValue)
	assert.Equal(t, 40, d.Output["lamp"].NbSamples)
	assert.Equal(t, 2, d.Output["lamp"].AggregatedLeaves)

	_, err = run(t, "decide", "-t", tree, "-c", ctx, "--deactivate-missing-values")
	require.Error(t, err)
	assert.Equal(t, 6, exitCode(err))
}

func TestDecideErrors(t *testing.T) {
	tree := filepath.Join(testdata, "v2_lamp.json")
	testCases := []struct {
		name string
		args []string
		code int
	}{
		{"no tree", []string{"decide"}, 1},
		{"invalid timezone", []string{"decide", "-t", tree, "--timestamp", "10", "--timezone", "Mars"}, 1},
		{"negative timestamp", []string{"decide", "-t", tree, "--timestamp", "-10"}, 1},
		{"tree and tree id", []string{"decide", "-t", tree, "--tree-id", "x", "--store-url", "x.db"}, 1},
		{"tree id without store", []string{"decide", "--tree-id", "x"}, 1},
		{"missing tree file", []string{"decide", "-t", filepath.Join(t.TempDir(), "none.json")}, 2},
		{"malformed tree", []string{"decide", "-t", writeFile(t, "tree.json", `{"_version": "4.0.0"}`)}, 2},
		{"invalid context", []string{"decide", "-t", tree, "-c", writeFile(t, "ctx.yml", "time: [1, 2]\n")}, 3},
		{"time and timestamp", []string{"decide", "-t", tree, "--timestamp", "10", "--time", "2017-03-20T09:22:54+01:00"}, 1},
		{"invalid time", []string{"decide", "-t", tree, "--time", "20/03/2017"}, 4},
		{"no time", []string{"decide", "-t", tree, "-c", writeFile(t, "ctx.yml", "presence: home\n")}, 5},
		{"null decision", []string{"decide", "-t", tree, "-c", writeFile(t, "ctx.yml", "time: 10\npresence: abroad\n")}, 6},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := run(t, tc.args...)
			require.Error(t, err)
			assert.Equal(t, tc.code, exitCode(err), err.Error())
		})
	}
}

func TestTree(t *testing.T) {
	out, err := run(t, "tree", "-t", filepath.Join(testdata, "v1_lamp.json"))
	require.NoError(t, err)
	assert.Contains(t, out, "decision tree v1.1.0")
	assert.Contains(t, out, "day in [0, 5[")
}

func TestPaths(t *testing.T) {
	out, err := run(t, "paths", "-t", filepath.Join(testdata, "v1_lamp.json"), "-o", "lamp")
	require.NoError(t, err)
	assert.Equal(t, "0\n0-0\n0-0-0\n0-0-1\n0-1\n", out)

	_, err = run(t, "paths", "-t", filepath.Join(testdata, "v1_lamp.json"), "-o", "day")
	assert.Equal(t, 3, exitCode(err))
}

func TestNeighbours(t *testing.T) {
	tree := filepath.Join(testdata, "v1_lamp.json")
	out, err := run(t, "neighbours", "-t", tree, "-o", "lamp", "-p", "0-0-1")
	require.NoError(t, err)
	assert.Equal(t, "0-0-0\n0-1\n", out)

	out, err = run(t, "neighbours", "-t", tree, "-o", "lamp", "-p", "0-0-1", "-d", "1", "--include-self")
	require.NoError(t, err)
	assert.Equal(t, "0-0-0\n0-0-1\n", out)

	_, err = run(t, "neighbours", "-t", tree, "-o", "lamp", "-p", "1-0")
	assert.Equal(t, 1, exitCode(err))
	_, err = run(t, "neighbours", "-t", tree, "-o", "lamp", "-p", "0-7")
	assert.Equal(t, 3, exitCode(err))
}

func TestReduce(t *testing.T) {
	out, err := run(t, "reduce", "-t", filepath.Join(testdata, "v1_lamp.json"), "-o", "lamp", "-p", "0-0-0")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "day in [0, 5[", lines[0])
	assert.Equal(t, "time in [8, 18[", lines[1])
	assert.Equal(t, "day from Mon to Fri and time is between 08:00 and 18:00", lines[2])

	rules := writeFile(t, "rules.json", `[
		{"property": "t", "operator": ">=", "operand": 3},
		{"property": "t", "operator": "<", "operand": 7},
		{"property": "t", "operator": "[in[", "operand": [2, 10]}
	]`)
	out, err = run(t, "reduce", "-r", rules)
	require.NoError(t, err)
	assert.Equal(t, "t in [3, 7[\n", out)

	specs := writeFile(t, "specs.yml", "context:\n  t:\n    type: continuous\n")
	out, err = run(t, "reduce", "-r", rules, "-s", specs)
	require.NoError(t, err)
	assert.Equal(t, "t in [3, 7[\nt is between 3 and 7\n", out)

	incompatible := writeFile(t, "rules.json", `[
		{"property": "t", "operator": ">=", "operand": 8},
		{"property": "t", "operator": "<", "operand": 7}
	]`)
	_, err = run(t, "reduce", "-r", incompatible)
	assert.Equal(t, 3, exitCode(err))

	_, err = run(t, "reduce")
	assert.Equal(t, 1, exitCode(err))
}

func TestStore(t *testing.T) {
	url := "sqlite3://" + filepath.Join(t.TempDir(), "trees.db")
	out, err := run(t, "store", "-u", url, "put", "-t", filepath.Join(testdata, "v2_lamp.json"))
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	require.NotEmpty(t, id)

	out, err = run(t, "store", "-u", url, "get", id)
	require.NoError(t, err)
	assert.Contains(t, out, `"_version":"2.0.0"`)

	ctx := writeFile(t, "context.yml", "time: 23\n")
	out, err = run(t, "decide", "--store-url", url, "--tree-id", id, "-c", ctx)
	require.NoError(t, err)
	assert.Equal(t, "OFF", decode(t, out).Output["lamp"].PredictedValue)

	_, err = run(t, "store", "-u", url, "delete", id)
	require.NoError(t, err)
	_, err = run(t, "store", "-u", url, "get", id)
	assert.Equal(t, 4, exitCode(err))

	_, err = run(t, "store", "put", "-t", filepath.Join(testdata, "v2_lamp.json"))
	assert.Equal(t, 1, exitCode(err))
}

func TestRedisOptions(t *testing.T) {
	opts, err := redisOptions("redis://:secret@cache.local/3")
	require.NoError(t, err)
	assert.Equal(t, "cache.local:6379", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 3, opts.DB)

	opts, err = redisOptions("redis://localhost:6380")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6380", opts.Addr)
	assert.Equal(t, 0, opts.DB)

	_, err = redisOptions("redis://localhost/zero")
	assert.Error(t, err)
}
