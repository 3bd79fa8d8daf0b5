package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	craftai "github.com/matthieu-boussard/craft-ai-client-python"
	"github.com/matthieu-boussard/craft-ai-client-python/clock"
	"github.com/matthieu-boussard/craft-ai-client-python/property"
	"github.com/matthieu-boussard/craft-ai-client-python/property/yaml"
	"github.com/matthieu-boussard/craft-ai-client-python/tree"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

type decideCmdConfig struct {
	*rootCmdConfig
	TreeInput               string `validate:"required_without=TreeID,excluded_with=TreeID"`
	TreeID                  string `validate:"required_with=StoreURL"`
	StoreURL                string `validate:"required_with=TreeID"`
	ContextInput            string `validate:"omitempty,file"`
	Timestamp               *int64 `validate:"omitempty,gte=0"`
	Time                    string `validate:"excluded_with=Timestamp"`
	Timezone                string `validate:"omitempty,timezone"`
	DeactivateMissingValues *bool
	MetricsTextfile         string
	Explain                 bool
}

type decideOutput struct {
	Output       map[string]*tree.Decision `json:"output"`
	Context      property.Context          `json:"context"`
	Explanations map[string]string         `json:"explanations,omitempty"`
}

func decideCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &decideCmdConfig{rootCmdConfig: rootConfig}
	var (
		timestamp  int64
		deactivate bool
	)
	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Take a decision with a decision tree",
		Long:  `Take a decision with a decision tree for a context read from a YML or JSON file, at an optional time, and print it as JSON`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("timestamp") {
				config.Timestamp = &timestamp
			}
			if cmd.Flags().Changed("deactivate-missing-values") {
				config.DeactivateMissingValues = &deactivate
			}
			if err := validateFlags(config); err != nil {
				return err
			}
			return config.run(cmd.Context(), cmd)
		},
	}
	cmd.Flags().StringVarP(&(config.TreeInput), "tree", "t", "", "path to a file from which the tree will be read and parsed as JSON (required unless tree-id is set)")
	cmd.Flags().StringVar(&(config.TreeID), "tree-id", "", "id of the tree to retrieve from the store at store-url")
	cmd.Flags().StringVar(&(config.StoreURL), "store-url", "", "URL of the store holding the tree with id tree-id")
	cmd.Flags().StringVarP(&(config.ContextInput), "context", "c", "", "path to a YML or JSON file with the values of the context properties")
	cmd.Flags().Int64Var(&timestamp, "timestamp", 0, "unix timestamp in seconds of the decision, used to generate the time properties")
	cmd.Flags().StringVar(&(config.Time), "time", "", "RFC 3339 date of the decision such as 2017-03-20T09:22:54+01:00, an alternative to timestamp")
	cmd.Flags().StringVar(&(config.Timezone), "timezone", "", "timezone of the decision as an offset such as +01:00 or an abbreviation such as CET (defaults to UTC)")
	cmd.Flags().BoolVar(&deactivate, "deactivate-missing-values", true, "override the missing values policy of the tree")
	cmd.Flags().StringVar(&(config.MetricsTextfile), "metrics-textfile", "", "path of a file to write the decision metrics to in the Prometheus text format")
	cmd.Flags().BoolVar(&(config.Explain), "explain", false, "explain every decision with the rules that lead to it")
	return cmd
}

func (dcc *decideCmdConfig) run(ctx context.Context, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	t, err := dcc.tree(ctx)
	if err != nil {
		return exit(2, err)
	}
	if dcc.DeactivateMissingValues != nil {
		t = t.WithDeactivateMissingValues(*dcc.DeactivateMissingValues)
	}
	state := property.Context{}
	if dcc.ContextInput != "" {
		dcc.logger.Debug("reading context", "path", dcc.ContextInput)
		if state, err = yaml.ReadContextFromFile(dcc.ContextInput); err != nil {
			return exit(3, err)
		}
	}
	tm, err := dcc.time()
	if err != nil {
		return exit(4, err)
	}

	reg := prometheus.NewRegistry()
	metrics, err := craftai.NewMetrics(reg)
	if err != nil {
		return exit(1, err)
	}
	in := craftai.New(craftai.WithLogger(dcc.logger), craftai.WithMetrics(metrics))
	result, err := in.Decide(ctx, t, state, tm)
	if dcc.MetricsTextfile != "" {
		if werr := prometheus.WriteToTextfile(dcc.MetricsTextfile, reg); werr != nil {
			return exit(7, fmt.Errorf("writing metrics to %s: %v", dcc.MetricsTextfile, werr))
		}
	}
	var ndErr *tree.NullDecisionError
	switch {
	case errors.As(err, &ndErr):
		return exit(6, err)
	case err != nil:
		return exit(5, err)
	}

	out := &decideOutput{Output: result.Output, Context: result.Context}
	if dcc.Explain {
		out.Explanations = make(map[string]string, len(result.Output))
		for output, d := range result.Output {
			if out.Explanations[output], err = t.Explain(d); err != nil {
				return exit(5, fmt.Errorf("explaining decision for %s: %v", output, err))
			}
		}
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func (dcc *decideCmdConfig) tree(ctx context.Context) (*tree.Tree, error) {
	if dcc.TreeInput != "" {
		return dcc.loadTree(dcc.TreeInput)
	}
	s, err := openStore(ctx, dcc.StoreURL, storeOptions{})
	if err != nil {
		return nil, err
	}
	defer s.Close(ctx)
	s = tree.NewCachingStore(s, func(id string) {
		dcc.logger.Debug("tree loaded from store", "id", id, "store", dcc.StoreURL)
	})
	t, err := s.Get(ctx, dcc.TreeID)
	if err != nil {
		return nil, fmt.Errorf("retrieving tree %s: %w", dcc.TreeID, err)
	}
	return t, nil
}

// time returns the time of the decision given by the flags, nil if none is.
func (dcc *decideCmdConfig) time() (*clock.Time, error) {
	switch {
	case dcc.Timestamp != nil:
		at, err := clock.New(*dcc.Timestamp, dcc.Timezone)
		return &at, err
	case dcc.Time != "":
		at, err := clock.Parse(dcc.Time)
		if err != nil || dcc.Timezone == "" {
			return &at, err
		}
		at, err = clock.New(at.Timestamp, dcc.Timezone)
		return &at, err
	}
	return nil, nil
}
