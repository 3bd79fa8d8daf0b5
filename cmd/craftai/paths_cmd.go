package main

import (
	"fmt"
	"sort"

	"github.com/matthieu-boussard/craft-ai-client-python/tree"
	"github.com/spf13/cobra"
)

type pathsCmdConfig struct {
	*rootCmdConfig
	TreeInput string `validate:"required,file"`
	Output    string `validate:"required"`
}

func pathsCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &pathsCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "paths",
		Short: "List the decision paths of a tree",
		Long:  `List the decision paths of every node of the tree of an output property, one per line`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFlags(config); err != nil {
				return err
			}
			t, err := config.loadTree(config.TreeInput)
			if err != nil {
				return exit(2, err)
			}
			paths, err := t.Paths(config.Output)
			if err != nil {
				return exit(3, err)
			}
			sorted := make([]string, 0, len(paths))
			for p := range paths {
				sorted = append(sorted, p)
			}
			sort.Strings(sorted)
			for _, p := range sorted {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&(config.TreeInput), "tree", "t", "", "path to a file from which the tree will be read and parsed as JSON (required)")
	cmd.Flags().StringVarP(&(config.Output), "output", "o", "", "output property whose tree is listed (required)")
	return cmd
}

type neighboursCmdConfig struct {
	*rootCmdConfig
	TreeInput   string `validate:"required,file"`
	Output      string `validate:"required"`
	Path        string `validate:"required,decisionpath"`
	MaxDepth    int
	IncludeSelf bool
}

func neighboursCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &neighboursCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "neighbours",
		Short: "List the neighbours of a node of a tree",
		Long:  `List the decision paths of the siblings of a node and of its ancestors, up to a maximum depth, one per line`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFlags(config); err != nil {
				return err
			}
			t, err := config.loadTree(config.TreeInput)
			if err != nil {
				return exit(2, err)
			}
			root, ok := t.Trees[config.Output]
			if !ok {
				return exit(3, fmt.Errorf("tree has no output property %s", config.Output))
			}
			neighbours, err := tree.Neighbours(root, config.Path, config.MaxDepth, config.IncludeSelf)
			if err != nil {
				return exit(3, err)
			}
			for _, p := range neighbours {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&(config.TreeInput), "tree", "t", "", "path to a file from which the tree will be read and parsed as JSON (required)")
	cmd.Flags().StringVarP(&(config.Output), "output", "o", "", "output property whose tree is explored (required)")
	cmd.Flags().StringVarP(&(config.Path), "path", "p", "", "decision path of the node, such as 0-1-0 (required)")
	cmd.Flags().IntVarP(&(config.MaxDepth), "max-depth", "d", 2, "number of levels to go up the tree, negative for all of them")
	cmd.Flags().BoolVar(&(config.IncludeSelf), "include-self", false, "list the path of the node too")
	return cmd
}
