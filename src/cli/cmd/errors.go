package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sofmeright/cpdstage/src/build"
	"github.com/sofmeright/cpdstage/src/output"
)

var errorsCmd = &cobra.Command{
	Use:   "errors <build-id>",
	Short: "Show the recorded errors and metadata of a build",
	Args:  cobra.ExactArgs(1),
	RunE:  runErrors,
}

func init() {
	rootCmd.AddCommand(errorsCmd)
}

func runErrors(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id := args[0]

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	b, err := st.Build(ctx, id)
	if err != nil {
		return err
	}
	errs, err := st.Errors(ctx, id)
	if err != nil {
		return err
	}
	meta, err := st.AllMeta(ctx, id)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	color := output.UseColor()

	kv := []output.KV{{Key: "build", Value: b.ID}, {Key: "path", Value: b.Path}}
	if b.Commit != "" {
		kv = append(kv, output.KV{Key: "commit", Value: shortSHA(b.Commit)}, output.KV{Key: "branch", Value: b.Branch})
	}
	output.ContextBlock(w, kv)

	for _, phase := range build.Stages {
		ok, ran := b.Success[phase]
		if !ran {
			continue
		}
		status := output.StatusSuccess
		if !ok {
			status = output.StatusFailed
		}
		fmt.Fprintf(w, "    %-12s%s\n", phase, output.StatusIcon(status, color))
	}

	sec := output.NewSection(w, "errors", 0, color)
	output.SectionErrors(sec, errs, color)
	sec.Row("%s", output.ErrorsSummaryLine(errs, color))
	sec.Close()

	if len(meta) > 0 {
		keys := make([]string, 0, len(meta))
		for k := range meta {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sec = output.NewSection(w, "metadata", 0, color)
		for _, k := range keys {
			sec.Row("%-24s %d", k, meta[k])
		}
		sec.Close()
	}
	return nil
}
