package warmup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sternrassler/sendgrid-newsletter/pkg/client"
	"github.com/Sternrassler/sendgrid-newsletter/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for warm-up runs.
var (
	warmupCohortsPlanned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warmup_cohorts_planned_total",
		Help: "Total cohorts planned by warm-up runs",
	})

	warmupStepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warmup_steps_total",
		Help: "Total warm-up workflow steps by step and outcome (done, skipped, failed)",
	}, []string{"step", "outcome"})

	warmupRecipientsUploaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warmup_recipients_uploaded_total",
		Help: "Total recipients uploaded to warm-up lists",
	})
)

// Workflow step names as recorded in the ProgressStore.
const (
	StepList     = "list"
	StepClone    = "clone"
	StepAttach   = "attach"
	StepSchedule = "schedule"
)

// StepChunk returns the step name of the i-th upload chunk (zero based).
func StepChunk(i int) string {
	return fmt.Sprintf("chunk:%d", i)
}

// ErrSourceNotFound is returned when the source newsletter lookup is not a
// single match.
var ErrSourceNotFound = errors.New("source newsletter not found")

// API is the subset of the SendGrid client used by the runner.
// *client.Client implements it.
type API interface {
	AddList(ctx context.Context, name string) (*client.Result, error)
	CloneNewsletter(ctx context.Context, existing, newName string) (*client.CloneResult, error)
	AddEmails(ctx context.Context, list string, recipients []client.Recipient) (*client.Result, error)
	AddRecipients(ctx context.Context, newsletter, list string) (*client.Result, error)
	AddSchedule(ctx context.Context, newsletter string, s client.Schedule) (*client.Result, error)
}

// StepError reports the workflow step that aborted a run.
type StepError struct {
	RunID  string
	Cohort string
	Step   string
	Err    error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("warm-up %s: cohort %s: step %s: %v", e.RunID, e.Cohort, e.Step, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *StepError) Unwrap() error {
	return e.Err
}

// Report summarizes a run.
type Report struct {
	RunID string

	// Labels lists the cohort labels in send order.
	Labels []string

	// SendTimes maps each label to its send time.
	SendTimes map[string]time.Time

	Cohorts []Cohort

	// Skipped counts steps already completed by an earlier run.
	Skipped int
}

// Runner executes warm-up runs against the API.
type Runner struct {
	api      API
	progress ProgressStore
	logger   zerolog.Logger
	now      func() time.Time
}

// New creates a runner. A nil progress store keeps progress in memory.
func New(api API, progress ProgressStore) *Runner {
	if progress == nil {
		progress = NewMemoryProgress()
	}
	return &Runner{
		api:      api,
		progress: progress,
		logger:   logging.NewLogger(logging.ComponentWarmup),
		now:      time.Now,
	}
}

// RunFromCSV reads recipients from the CSV file at path and runs the warm-up.
// Options are validated before the file is read.
func (r *Runner) RunFromCSV(ctx context.Context, path string, opts Options) (*Report, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	recipients, err := ReadRecipientsFile(path, opts.Keys)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, recipients, opts)
}

// Run plans cohorts for recipients and executes the workflow for each one.
// Options are validated before any API call. On failure the returned report
// still describes the planned cohorts.
func (r *Runner) Run(ctx context.Context, recipients []client.Recipient, opts Options) (*Report, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	cohorts := Plan(recipients, opts, opts.firstSendAt(r.now()))
	warmupCohortsPlanned.Add(float64(len(cohorts)))

	report := &Report{
		RunID:     opts.RunID,
		Labels:    make([]string, 0, len(cohorts)),
		SendTimes: make(map[string]time.Time, len(cohorts)),
		Cohorts:   cohorts,
	}
	for _, c := range cohorts {
		report.Labels = append(report.Labels, c.Label)
		report.SendTimes[c.Label] = c.SendAt
	}

	r.logger.Info().
		Str("run_id", opts.RunID).
		Int("recipients", len(recipients)).
		Int("cohorts", len(cohorts)).
		Int("concurrency", opts.Concurrency).
		Msg("Starting warm-up run")

	start := time.Now()
	var skipped atomic.Int64
	err = r.runCohorts(ctx, cohorts, opts, &skipped)
	report.Skipped = int(skipped.Load())
	if err != nil {
		r.logger.Error().Err(err).Str("run_id", opts.RunID).Msg("Warm-up run aborted")
		return report, err
	}

	r.logger.Info().
		Str("run_id", opts.RunID).
		Int("cohorts", len(cohorts)).
		Int("skipped_steps", report.Skipped).
		Dur("duration", time.Since(start)).
		Msg("Warm-up run complete")
	return report, nil
}

// runCohorts feeds cohorts to a pool of opts.Concurrency workers and returns
// the first error. Remaining cohorts are abandoned once a worker fails.
func (r *Runner) runCohorts(ctx context.Context, cohorts []Cohort, opts Options, skipped *atomic.Int64) error {
	if opts.Concurrency == 1 {
		for _, c := range cohorts {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := r.runCohort(ctx, c, opts, skipped); err != nil {
				return err
			}
		}
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := make(chan Cohort)
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)

	for i := 0; i < opts.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range queue {
				if err := r.runCohort(ctx, c, opts, skipped); err != nil {
					once.Do(func() {
						firstErr = err
						cancel()
					})
				}
			}
		}()
	}

feed:
	for _, c := range cohorts {
		select {
		case queue <- c:
		case <-ctx.Done():
			break feed
		}
	}
	close(queue)
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

func (r *Runner) runCohort(ctx context.Context, c Cohort, opts Options, skipped *atomic.Int64) error {
	name := c.Name(opts.Prefix)
	logger := r.logger.With().Str("run_id", opts.RunID).Str("cohort", c.Label).Logger()

	do := func(step string, fn func() error) error {
		done, err := r.progress.Done(ctx, opts.RunID, c.Label, step)
		if err != nil {
			return &StepError{RunID: opts.RunID, Cohort: c.Label, Step: step, Err: err}
		}
		if done {
			skipped.Add(1)
			warmupStepsTotal.WithLabelValues(stepLabel(step), "skipped").Inc()
			logger.Debug().Str("step", step).Msg("Step already done, skipping")
			return nil
		}

		if err := fn(); err != nil {
			warmupStepsTotal.WithLabelValues(stepLabel(step), "failed").Inc()
			return &StepError{RunID: opts.RunID, Cohort: c.Label, Step: step, Err: err}
		}
		warmupStepsTotal.WithLabelValues(stepLabel(step), "done").Inc()

		if err := r.progress.MarkDone(ctx, opts.RunID, c.Label, step); err != nil {
			return &StepError{RunID: opts.RunID, Cohort: c.Label, Step: step, Err: err}
		}
		logger.Debug().Str("step", step).Msg("Step done")
		return nil
	}

	if err := do(StepList, func() error {
		return check(r.api.AddList(ctx, name))
	}); err != nil {
		return err
	}

	if err := do(StepClone, func() error {
		clone, err := r.api.CloneNewsletter(ctx, opts.SourceNewsletter, name)
		if err != nil {
			return err
		}
		if !clone.Cloned() {
			return fmt.Errorf("%w: %q lookup %s", ErrSourceNotFound, opts.SourceNewsletter, clone.Source.Kind)
		}
		return check(clone.Created, nil)
	}); err != nil {
		return err
	}

	for i, chunk := range Chunk(c.Recipients, opts.ChunkSize) {
		if err := do(StepChunk(i), func() error {
			if err := check(r.api.AddEmails(ctx, name, chunk)); err != nil {
				return err
			}
			warmupRecipientsUploaded.Add(float64(len(chunk)))
			return nil
		}); err != nil {
			return err
		}
	}

	if err := do(StepAttach, func() error {
		return check(r.api.AddRecipients(ctx, name, name))
	}); err != nil {
		return err
	}

	if err := do(StepSchedule, func() error {
		return check(r.api.AddSchedule(ctx, name, client.Schedule{At: c.SendAt}))
	}); err != nil {
		return err
	}

	logger.Info().
		Int("recipients", len(c.Recipients)).
		Time("send_at", c.SendAt).
		Msg("Cohort scheduled")
	return nil
}

// check turns an application error carried by result into an error.
func check(result *client.Result, err error) error {
	if err != nil {
		return err
	}
	if appErr := result.AppError(); appErr != nil {
		return appErr
	}
	return nil
}

// stepLabel folds chunk steps into one metric label.
func stepLabel(step string) string {
	if strings.HasPrefix(step, "chunk:") {
		return "chunk"
	}
	return step
}
