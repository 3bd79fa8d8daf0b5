package main

import (
	"fmt"
	"os"
	"regexp"

	"github.com/matthieu-boussard/craft-ai-client-python/tree"
	treejson "github.com/matthieu-boussard/craft-ai-client-python/tree/json"
	"github.com/spf13/cobra"
)

var decisionPathRegexp = regexp.MustCompile(`^0(-[0-9]+)*$`)

type treeCmdConfig struct {
	*rootCmdConfig
	TreeInput string `validate:"required,file"`
}

func treeCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &treeCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Show a decision tree",
		Long:  `Show the configuration and the nodes of a decision tree read from a JSON file`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFlags(config); err != nil {
				return err
			}
			t, err := config.loadTree(config.TreeInput)
			if err != nil {
				return exit(2, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), t)
			return nil
		},
	}
	cmd.Flags().StringVarP(&(config.TreeInput), "tree", "t", "", "path to a file from which the tree to show will be read and parsed as JSON (required)")
	return cmd
}

func (rcc *rootCmdConfig) loadTree(filepath string) (*tree.Tree, error) {
	rcc.logger.Debug("reading tree", "path", filepath)
	f, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("reading tree in JSON from %s: %v", filepath, err)
	}
	defer f.Close()
	t, err := treejson.ReadTree(f)
	if err != nil {
		return nil, fmt.Errorf("parsing tree in JSON from %s: %w", filepath, err)
	}
	rcc.logger.Debug("tree read", "version", t.Version, "outputs", t.Configuration.Output)
	return t, nil
}
