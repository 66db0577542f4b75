package stage

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sofmeright/cpdstage/src/build"
	"github.com/sofmeright/cpdstage/src/config"
)

// Result is the outcome of one plugin in one phase.
type Result struct {
	Plugin  string
	Stage   build.Stage
	Success bool
	Skipped bool // plugin not eligible for the phase
	Err     error
	Elapsed time.Duration
}

// Job is one build to run a phase for.
type Job struct {
	Builder *build.Builder
	Plugins []config.PluginConfig
}

// Run executes every configured plugin eligible for st, in order. A plugin
// that fails, fatally or not, does not stop the ones after it. The phase
// succeeds when every plugin that ran succeeded.
func Run(ctx context.Context, b *build.Builder, st build.Stage, plugins []config.PluginConfig) ([]Result, bool) {
	results := make([]Result, 0, len(plugins))
	success := true

	for _, pc := range plugins {
		start := time.Now()
		res := runPlugin(ctx, b, st, pc)
		res.Elapsed = time.Since(start)

		switch {
		case res.Skipped:
			b.Log.LogDebug(fmt.Sprintf("%s: not eligible for stage %s, skipped", pc.Plugin, st))
		case res.Err != nil:
			b.Log.LogWarning(fmt.Sprintf("%s: %v", pc.Plugin, res.Err))
		case res.Success:
			b.Log.Log(fmt.Sprintf("%s: passed", pc.Plugin))
		default:
			b.Log.Log(fmt.Sprintf("%s: failed", pc.Plugin))
		}

		if !res.Skipped && !res.Success {
			success = false
		}
		results = append(results, res)
	}

	if b.Build != nil {
		b.Build.Success[st] = success
	}
	return results, success
}

func runPlugin(ctx context.Context, b *build.Builder, st build.Stage, pc config.PluginConfig) Result {
	res := Result{Plugin: pc.Plugin, Stage: st}

	def, err := Get(pc.Plugin)
	if err != nil {
		res.Err = err
		return res
	}
	if def.CanExecute != nil && !def.CanExecute(st) {
		res.Skipped = true
		return res
	}

	p, err := def.New(b, pc.Options)
	if err != nil {
		res.Err = fmt.Errorf("configuring: %w", err)
		return res
	}

	res.Success, res.Err = p.Run(ctx)
	if res.Err != nil {
		res.Success = false
	}
	return res
}

// RunBuilds runs st for each job, at most concurrency builds at a time.
// results[i] belongs to jobs[i].
func RunBuilds(ctx context.Context, st build.Stage, jobs []Job, concurrency int) ([][]Result, error) {
	if concurrency <= 0 {
		concurrency = 1
	}

	results := make([][]Result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i], _ = Run(gctx, job.Builder, st, job.Plugins)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
