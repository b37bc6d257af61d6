package pipeline

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sync/errgroup"

	"github.com/guttosm/idxpulse/internal/logger"
)

// Status is the outcome of one partition job.
type Status string

const (
	StatusProcessed Status = "processed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Job is one unit of batch work: a named partition computation.
type Job struct {
	Name string
	Run  func(ctx context.Context) (Status, error)
}

// Result captures a single job outcome. A failure is isolated here instead
// of cancelling sibling jobs.
type Result struct {
	Name   string
	Status Status
	Err    error
}

// Summary is what a driving caller sees: partition-granularity outcomes
// only, no row-level detail.
type Summary struct {
	Processed int
	Skipped   int
	Failed    int
	Results   []Result
}

func (s *Summary) add(r Result) {
	s.Results = append(s.Results, r)
	switch r.Status {
	case StatusProcessed:
		s.Processed++
	case StatusSkipped:
		s.Skipped++
	default:
		s.Failed++
	}
}

// Merge folds another summary into this one.
func (s *Summary) Merge(o Summary) {
	s.Processed += o.Processed
	s.Skipped += o.Skipped
	s.Failed += o.Failed
	s.Results = append(s.Results, o.Results...)
}

// RunnerConfig tunes one execution phase. The stock phase runs with a
// larger batch/concurrency pair than the heavier index phase.
type RunnerConfig struct {
	BatchSize      int
	MaxConcurrency int
	Pause          time.Duration // delay between batches, throttles request rate
	MemSoftLimitMB int
	MemHardLimitMB int
}

// Runner executes partition jobs in batches with bounded parallelism.
//
// Guarantees:
//   - At most MaxConcurrency jobs are in flight at once.
//   - A job's failure is captured in its Result and never cancels siblings.
//   - Context cancellation is honored between jobs and batches; already
//     finished work keeps its results.
//   - Before each batch the process memory is sampled: above the soft limit
//     a GC pass is forced and the batch briefly delayed; above the hard
//     limit a critical log line is emitted but processing continues.
type Runner struct {
	cfg RunnerConfig

	// memSample is injectable for tests; returns resident set size in MB.
	memSample func() (int, error)
}

// NewRunner builds a Runner, clamping nonsensical config to safe minimums.
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 1
	}
	return &Runner{cfg: cfg, memSample: processRSSMB}
}

// Run executes jobs batch by batch and returns the aggregate summary.
// The only error returned is context cancellation; job failures live in
// the summary.
func (r *Runner) Run(ctx context.Context, jobs []Job) (Summary, error) {
	log := logger.With("batch")
	var summary Summary

	for start := 0; start < len(jobs); start += r.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		r.checkMemoryPressure(log)

		end := start + r.cfg.BatchSize
		if end > len(jobs) {
			end = len(jobs)
		}
		batch := jobs[start:end]
		results := make([]Result, len(batch))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.cfg.MaxConcurrency)
		for i, job := range batch {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					results[i] = Result{Name: job.Name, Status: StatusFailed, Err: err}
					return nil
				}
				started := time.Now()
				status, err := job.Run(gctx)
				if err != nil {
					status = StatusFailed
					log.Error().Str("job", job.Name).Dur("elapsed", time.Since(started)).Err(err).Msg("job failed")
				} else {
					log.Info().Str("job", job.Name).Str("status", string(status)).Dur("elapsed", time.Since(started)).Msg("job done")
				}
				results[i] = Result{Name: job.Name, Status: status, Err: err}
				// Failures are reported via results; never fail the group,
				// so siblings keep running.
				return nil
			})
		}
		_ = g.Wait()

		for _, res := range results {
			summary.add(res)
		}

		if end < len(jobs) && r.cfg.Pause > 0 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(r.cfg.Pause):
			}
		}
	}

	return summary, nil
}

// checkMemoryPressure samples process RSS and degrades gracefully: soft
// limit forces a GC pass plus a short pause, hard limit logs at the highest
// severity. Neither halts the run.
func (r *Runner) checkMemoryPressure(log zerolog.Logger) {
	if r.cfg.MemSoftLimitMB <= 0 {
		return
	}
	rssMB, err := r.memSample()
	if err != nil {
		log.Debug().Err(err).Msg("memory sample failed")
		return
	}

	if r.cfg.MemHardLimitMB > 0 && rssMB > r.cfg.MemHardLimitMB {
		log.Error().Bool("critical", true).Int("rss_mb", rssMB).Int("hard_limit_mb", r.cfg.MemHardLimitMB).
			Msg("memory above hard limit")
	}
	if rssMB > r.cfg.MemSoftLimitMB {
		log.Warn().Int("rss_mb", rssMB).Int("soft_limit_mb", r.cfg.MemSoftLimitMB).Msg("memory pressure, forcing GC")
		runtime.GC()
		time.Sleep(200 * time.Millisecond)
	}
}

// processRSSMB reads the current process resident set size in megabytes.
func processRSSMB() (int, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, err
	}
	mi, err := proc.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return int(mi.RSS / (1024 * 1024)), nil
}
