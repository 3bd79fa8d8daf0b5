package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/matthieu-boussard/craft-ai-client-python/property"
	"github.com/matthieu-boussard/craft-ai-client-python/property/yaml"
	"github.com/matthieu-boussard/craft-ai-client-python/tree"
	"github.com/spf13/cobra"
)

type reduceCmdConfig struct {
	*rootCmdConfig
	TreeInput  string `validate:"required_without=RulesInput,excluded_with=RulesInput"`
	Output     string `validate:"required_with=TreeInput"`
	Path       string `validate:"required_with=TreeInput"`
	RulesInput string `validate:"required_without=TreeInput"`
	SpecsInput string `validate:"excluded_with=TreeInput"`
}

func reduceCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &reduceCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "reduce",
		Short: "Reduce decision rules",
		Long: `Reduce decision rules into a minimal equivalent rule per property. The rules are
either those along a decision path of a tree or read from a JSON file holding
an array of rules. The reduced rules are printed one per line, followed by
a sentence explaining them when the types of the properties are known.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFlags(config); err != nil {
				return err
			}
			rules, specs, err := config.rules()
			if err != nil {
				return exit(2, err)
			}
			reduced, err := property.ReduceByProperty(rules)
			if err != nil {
				return exit(3, err)
			}
			for _, r := range reduced {
				fmt.Fprintln(cmd.OutOrStdout(), r)
			}
			if specs == nil {
				return nil
			}
			sentence, err := property.FormatRules(specs, reduced)
			if err != nil {
				return exit(3, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), sentence)
			return nil
		},
	}
	cmd.Flags().StringVarP(&(config.TreeInput), "tree", "t", "", "path to a file from which a tree will be read and parsed as JSON")
	cmd.Flags().StringVarP(&(config.Output), "output", "o", "", "output property whose tree holds the decision path (required with tree)")
	cmd.Flags().StringVarP(&(config.Path), "path", "p", "", "decision path whose rules are reduced (required with tree)")
	cmd.Flags().StringVarP(&(config.RulesInput), "rules", "r", "", "path to a JSON file with an array of decision rules")
	cmd.Flags().StringVarP(&(config.SpecsInput), "specs", "s", "", "path to a YML file declaring the types of the properties of the rules")
	return cmd
}

func (rcc *reduceCmdConfig) rules() ([]*property.DecisionRule, map[string]property.Spec, error) {
	if rcc.TreeInput != "" {
		t, err := rcc.loadTree(rcc.TreeInput)
		if err != nil {
			return nil, nil, err
		}
		root, ok := t.Trees[rcc.Output]
		if !ok {
			return nil, nil, fmt.Errorf("tree has no output property %s", rcc.Output)
		}
		rules, err := tree.RulesAt(root, rcc.Path)
		if err != nil {
			return nil, nil, err
		}
		return rules, t.Configuration.Context, nil
	}
	data, err := os.ReadFile(rcc.RulesInput)
	if err != nil {
		return nil, nil, fmt.Errorf("reading rules from %s: %v", rcc.RulesInput, err)
	}
	var rules []*property.DecisionRule
	if err = json.Unmarshal(data, &rules); err != nil {
		return nil, nil, fmt.Errorf("parsing rules in JSON from %s: %v", rcc.RulesInput, err)
	}
	if rcc.SpecsInput == "" {
		return rules, nil, nil
	}
	specs, err := yaml.ReadSpecsFromFile(rcc.SpecsInput)
	if err != nil {
		return nil, nil, err
	}
	return rules, specs, nil
}
