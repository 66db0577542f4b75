package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/sofmeright/cpdstage/src/build"
	"github.com/sofmeright/cpdstage/src/output"
	"github.com/sofmeright/cpdstage/src/runner"
	"github.com/sofmeright/cpdstage/src/stage"
	"github.com/sofmeright/cpdstage/src/store"
)

// reportDir is where CI reports land, relative to each build path.
const reportDir = ".cpdstage/reports"

var runPhase string

var runCmd = &cobra.Command{
	Use:   "run [dir...]",
	Short: "Run a build phase over one or more checkouts",
	Long: `Run the plugins configured for a phase. Each directory is one build;
with no directory the current one is used. Build errors and metadata are
recorded in the store and summarized on stdout.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runPhase, "phase", string(build.StageTest), "phase to run")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	phase, err := build.ParseStage(runPhase)
	if err != nil {
		return err
	}
	timeout, err := cfg.Runner.TimeoutDuration()
	if err != nil {
		return err
	}

	dirs := args
	if len(dirs) == 0 {
		dirs = []string{"."}
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	plugins := cfg.Plugins(string(phase))
	jobs := make([]stage.Job, 0, len(dirs))
	for _, dir := range dirs {
		b, err := newBuilder(dir, timeout, st)
		if err != nil {
			return err
		}
		jobs = append(jobs, stage.Job{Builder: b, Plugins: plugins})
	}

	results, err := stage.RunBuilds(ctx, phase, jobs, cfg.Runner.Concurrency)
	if err != nil {
		return fmt.Errorf("running %s: %w", phase, err)
	}

	w := cmd.OutOrStdout()
	color := output.UseColor()
	failed := 0
	for i, job := range jobs {
		b := job.Builder.Build
		if err := st.SaveBuild(ctx, b); err != nil {
			return err
		}
		errs, err := st.Errors(ctx, b.ID)
		if err != nil {
			return err
		}

		renderBuild(w, b, phase, results[i], errs, color)

		if output.IsCI() {
			path, err := output.WriteJUnit(filepath.Join(b.Path, reportDir), b, phase, results[i], errs)
			if err != nil {
				logger.Warn().Err(err).Str("build", b.ID).Msg("writing junit report")
			} else {
				logger.Info().Str("build", b.ID).Str("path", path).Msg("junit report written")
			}
		}

		if !b.Success[phase] {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%s failed for %d of %d builds", phase, failed, len(jobs))
	}
	return nil
}

// newBuilder prepares a build of the checkout at dir.
func newBuilder(dir string, timeout time.Duration, st *store.Store) (*build.Builder, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", abs)
	}

	rev, err := build.DetectRevision(abs)
	if err != nil {
		logger.Warn().Err(err).Str("path", abs).Msg("reading git revision")
	}

	b := build.NewBuild(abs, rev)
	blog := build.NewLogger(logger, b.ID)
	return &build.Builder{
		Build:      b,
		BuildPath:  abs,
		Ignore:     cfg.BuildSettings.Ignore,
		BinaryPath: cfg.BuildSettings.BinaryPath,
		Log:        blog,
		Exec:       &runner.Executor{Dir: abs, Timeout: timeout, Log: blog},
		Errors:     st,
		Meta:       st,
	}, nil
}

func renderBuild(w io.Writer, b *build.Build, phase build.Stage, results []stage.Result, errs []build.Error, color bool) {
	kv := []output.KV{{Key: "build", Value: b.ID}, {Key: "path", Value: b.Path}}
	if b.Commit != "" {
		kv = append(kv, output.KV{Key: "commit", Value: shortSHA(b.Commit)}, output.KV{Key: "branch", Value: b.Branch})
	}
	output.ContextBlock(w, kv)

	var elapsed time.Duration
	for _, r := range results {
		elapsed += r.Elapsed
	}

	output.SectionStart(w, "cpdstage_"+string(phase), string(phase))
	sec := output.NewSection(w, string(phase), elapsed, color)
	output.SectionResults(sec, results, color)
	output.SectionErrors(sec, errs, color)
	sec.Row("%s", output.ErrorsSummaryLine(errs, color))
	sec.Close()
	output.SectionEnd(w, "cpdstage_"+string(phase))
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
