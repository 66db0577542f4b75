package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sofmeright/cpdstage/src/build"
	"github.com/sofmeright/cpdstage/src/stage"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List registered plugins and the phases they run in",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		for _, name := range stage.All() {
			def, err := stage.Get(name)
			if err != nil {
				return err
			}
			var phases []string
			for _, st := range build.Stages {
				if def.CanExecute == nil || def.CanExecute(st) {
					phases = append(phases, string(st))
				}
			}
			fmt.Fprintf(w, "%-16s %s\n", name, strings.Join(phases, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pluginsCmd)
}
