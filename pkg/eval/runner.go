package eval

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hed1ad/swarmtrust/pkg/models"
	"github.com/hed1ad/swarmtrust/pkg/telemetry"
)

// Scenario is one attack condition with its telemetry log.
type Scenario struct {
	Name    string
	Records []telemetry.Record
}

// Runner evaluates every model kind against every scenario and
// accumulates the results into a Summary. Scenarios are independent;
// they may be evaluated in parallel without changing the output, since
// records are ordered by the final sort.
type Runner struct {
	log          *zap.Logger
	task         Task
	mode         Mode
	threshold    float64
	seed         int64
	testFraction float64
	workers      int
	kinds        []models.Kind
	modelCfg     models.Config
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(log *zap.Logger) RunnerOption {
	return func(r *Runner) {
		r.log = log
	}
}

// WithTask selects regression or classification metrics.
func WithTask(task Task) RunnerOption {
	return func(r *Runner) {
		r.task = task
	}
}

// WithMode selects in-sample or holdout evaluation.
func WithMode(mode Mode) RunnerOption {
	return func(r *Runner) {
		r.mode = mode
	}
}

// WithThreshold sets the classification binarization threshold.
func WithThreshold(t float64) RunnerOption {
	return func(r *Runner) {
		r.threshold = t
	}
}

// WithSeed fixes the split and model seeds. It takes effect after all
// options are applied, regardless of option order.
func WithSeed(seed int64) RunnerOption {
	return func(r *Runner) {
		r.seed = seed
	}
}

// WithTestFraction sets the held-out share of each scenario.
func WithTestFraction(f float64) RunnerOption {
	return func(r *Runner) {
		r.testFraction = f
	}
}

// WithWorkers bounds how many scenarios are evaluated concurrently.
func WithWorkers(n int) RunnerOption {
	return func(r *Runner) {
		r.workers = n
	}
}

// WithKinds overrides the evaluated model kinds.
func WithKinds(kinds ...models.Kind) RunnerOption {
	return func(r *Runner) {
		r.kinds = kinds
	}
}

// WithModelConfig overrides the model construction config. The runner
// owns the seed: cfg.Seed is replaced by the runner's seed (default 42,
// or WithSeed) once all options are applied.
func WithModelConfig(cfg models.Config) RunnerOption {
	return func(r *Runner) {
		r.modelCfg = cfg
	}
}

// NewRunner creates a Runner with the given options.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		log:          zap.NewNop(),
		task:         TaskRegression,
		mode:         ModeInSample,
		threshold:    DefaultClassThreshold,
		seed:         42,
		testFraction: DefaultTestFraction,
		workers:      1,
		kinds:        models.Kinds(),
		modelCfg:     models.DefaultConfig(),
	}

	for _, opt := range opts {
		opt(r)
	}

	// Resolved after options so the outcome cannot depend on option
	// order: the runner's seed feeds the models, and the sigmoid head
	// keeps classification predictions in [0, 1].
	r.modelCfg.Seed = r.seed
	r.modelCfg.Sigmoid = r.task == TaskClassification

	return r
}

// scenarioResult carries one scenario's outcome back to the batch.
type scenarioResult struct {
	records []Record
	skips   []Skip
	err     error
}

// Run evaluates all scenarios. A model failure is fatal only to its
// (scenario, model) pair: the pair is reported as a skip, the error is
// collected, and the rest of the batch proceeds. The returned Summary is
// valid even when the error is non-nil.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) (*Summary, error) {
	summary := &Summary{
		RunID: uuid.NewString(),
		Task:  r.task,
		Mode:  r.mode,
	}

	results := make([]scenarioResult, len(scenarios))

	g, ctx := errgroup.WithContext(ctx)
	workers := r.workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for i, scenario := range scenarios {
		i, scenario := i, scenario
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = r.evaluateScenario(scenario)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}

	var batchErr *multierror.Error
	for _, res := range results {
		summary.Records = append(summary.Records, res.records...)
		summary.Skips = append(summary.Skips, res.skips...)
		batchErr = multierror.Append(batchErr, res.err)
	}
	sortRecords(summary.Records)

	return summary, batchErr.ErrorOrNil()
}

func (r *Runner) evaluateScenario(scenario Scenario) scenarioResult {
	var res scenarioResult
	log := r.log.With(zap.String("scenario", scenario.Name))

	if len(scenario.Records) == 0 {
		log.Warn("scenario skipped: no telemetry rows")
		res.skips = append(res.skips, Skip{Scenario: scenario.Name, Reason: "no telemetry rows"})
		return res
	}

	derived := telemetry.Derive(scenario.Records)
	x, y := telemetry.Matrix(derived)

	// A scenario whose binarized truth holds one class cannot produce a
	// confusion matrix for any model; skip it before fitting anything.
	if r.task == TaskClassification {
		truth := Binarize(y, r.threshold)
		if degenerate(truth) {
			log.Warn("scenario skipped: binarized labels contain a single class",
				zap.Float64("threshold", r.threshold))
			res.skips = append(res.skips, Skip{
				Scenario: scenario.Name,
				Reason:   ErrDegenerateLabels.Error(),
			})
			return res
		}
	}

	trainIdx, testIdx := Split(len(x), r.testFraction, r.seed)
	trainX, trainY := gather(x, y, trainIdx)

	evalX, evalY := x, y
	if r.mode == ModeHoldout {
		evalX, evalY = gather(x, y, testIdx)
	}

	for _, kind := range r.kinds {
		record, err := r.evaluatePair(scenario.Name, kind, trainX, trainY, evalX, evalY)
		if err != nil {
			log.Error("model evaluation failed",
				zap.String("model", string(kind)), zap.Error(err))
			res.skips = append(res.skips, Skip{
				Scenario: scenario.Name,
				Model:    kind,
				Reason:   err.Error(),
			})
			res.err = multierror.Append(res.err,
				fmt.Errorf("scenario %q model %q: %w", scenario.Name, kind, err)).ErrorOrNil()
			continue
		}
		res.records = append(res.records, record)
	}
	return res
}

func (r *Runner) evaluatePair(scenario string, kind models.Kind, trainX [][]float64, trainY []float64, evalX [][]float64, evalY []float64) (Record, error) {
	model, err := models.New(kind, r.modelCfg)
	if err != nil {
		return Record{}, err
	}

	predictions, err := model.FitPredictAll(trainX, trainY, evalX)
	if err != nil {
		return Record{}, fmt.Errorf("fit: %w", err)
	}

	record := Record{
		Scenario: scenario,
		Model:    kind,
		Name:     model.Name(),
	}

	switch r.task {
	case TaskRegression:
		m, err := Regression(evalY, predictions)
		if err != nil {
			return Record{}, fmt.Errorf("regression metrics: %w", err)
		}
		record.Regression = &m
	case TaskClassification:
		m, err := Classification(evalY, predictions, r.threshold)
		if err != nil {
			return Record{}, fmt.Errorf("classification metrics: %w", err)
		}
		record.Classification = &m
	default:
		return Record{}, errors.New("unknown task")
	}

	return record, nil
}

func degenerate(classes []int) bool {
	if len(classes) == 0 {
		return true
	}
	first := classes[0]
	for _, c := range classes[1:] {
		if c != first {
			return false
		}
	}
	return true
}

func gather(x [][]float64, y []float64, indices []int) ([][]float64, []float64) {
	gx := make([][]float64, len(indices))
	gy := make([]float64, len(indices))
	for i, idx := range indices {
		gx[i] = x[idx]
		gy[i] = y[idx]
	}
	return gx, gy
}
