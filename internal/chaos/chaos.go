// internal/chaos/chaos.go
package chaos

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrSteadyStateInvalid = errors.New("steady state invalid - aborting experiment")

// Experiment defines a chaos engineering test
type Experiment struct {
	Name        string
	Hypothesis  string
	SteadyState []Probe
	Method      []Action
	Rollback    []Action
	Validation  []Assertion
	// Samples is how many times the probes are read while faults are active.
	Samples  int
	Interval time.Duration
}

// Probe is a measurable system property
type Probe struct {
	Name      string
	Query     func(context.Context) (float64, error)
	Threshold Threshold
}

type Threshold struct {
	Operator string // >, <, >=, <=, ==
	Value    float64
}

// Holds reports whether value satisfies the threshold.
func (t Threshold) Holds(value float64) bool {
	switch t.Operator {
	case ">":
		return value > t.Value
	case "<":
		return value < t.Value
	case ">=":
		return value >= t.Value
	case "<=":
		return value <= t.Value
	case "==":
		return value == t.Value
	default:
		return false
	}
}

// Action is a fault injection, a workload or a recovery step
type Action struct {
	Type    string // inject-failure, inject-latency, workload, clear-faults
	Target  string
	Execute func(context.Context) error
}

// Assertion validates the final observation of a probe
type Assertion struct {
	Probe     string
	Condition func(float64) bool
	Message   string
}

// Result captures experiment execution data
type Result struct {
	ExperimentName   string                 `json:"experiment_name"`
	StartTime        time.Time              `json:"start_time"`
	EndTime          time.Time              `json:"end_time"`
	Duration         time.Duration          `json:"duration"`
	HypothesisHeld   bool                   `json:"hypothesis_held"`
	SteadyStateValid bool                   `json:"steady_state_valid"`
	Violations       []Violation            `json:"violations"`
	Observations     map[string][]DataPoint `json:"observations"`
	ErrorEvents      []ErrorEvent           `json:"error_events"`
	FailedAssertions []string               `json:"failed_assertions,omitempty"`
	MTTR             *time.Duration         `json:"mttr,omitempty"`
}

type Violation struct {
	Probe     string    `json:"probe"`
	Expected  float64   `json:"expected"`
	Actual    float64   `json:"actual"`
	Timestamp time.Time `json:"timestamp"`
}

type DataPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

type ErrorEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error"`
	Component string    `json:"component"`
}

// Engine runs experiments and keeps their results
type Engine struct {
	tracer      trace.Tracer
	logger      *slog.Logger
	mu          sync.Mutex
	experiments []Experiment
	results     []Result
}

func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		tracer: otel.Tracer("realticket/chaos"),
		logger: logger,
	}
}

func (e *Engine) Register(exp Experiment) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.experiments = append(e.experiments, exp)
}

func (e *Engine) Experiments() []Experiment {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Experiment, len(e.experiments))
	copy(out, e.experiments)
	return out
}

func (e *Engine) Results() []Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Result, len(e.results))
	copy(out, e.results)
	return out
}

// Run executes a single experiment: steady state, inject, observe, roll back, validate.
func (e *Engine) Run(ctx context.Context, exp Experiment) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "chaos.run_experiment",
		trace.WithAttributes(attribute.String("experiment.name", exp.Name)),
	)
	defer span.End()

	result := &Result{
		ExperimentName: exp.Name,
		StartTime:      time.Now(),
		Observations:   make(map[string][]DataPoint),
	}

	span.AddEvent("validating_steady_state")
	if violations := e.steadyState(ctx, exp.SteadyState); len(violations) > 0 {
		result.Violations = violations
		span.SetStatus(codes.Error, "steady state invalid")
		return result, ErrSteadyStateInvalid
	}
	result.SteadyStateValid = true

	span.AddEvent("injecting_chaos")
	e.execute(ctx, span, exp.Method, result)

	span.AddEvent("observing_system")
	var violatedAt time.Time
	for i := 0; i < exp.Samples; i++ {
		if i > 0 && exp.Interval > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(exp.Interval):
			}
		}
		if e.sample(ctx, exp.SteadyState, result) {
			if violatedAt.IsZero() {
				violatedAt = time.Now()
			}
		} else if !violatedAt.IsZero() && result.MTTR == nil {
			mttr := time.Since(violatedAt)
			result.MTTR = &mttr
		}
	}

	span.AddEvent("rolling_back")
	e.execute(ctx, span, exp.Rollback, result)
	e.sample(ctx, exp.SteadyState, result)

	span.AddEvent("validating_assertions")
	result.FailedAssertions = validate(exp.Validation, result)
	result.HypothesisHeld = len(result.FailedAssertions) == 0
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	e.mu.Lock()
	e.results = append(e.results, *result)
	e.mu.Unlock()

	span.SetAttributes(
		attribute.Bool("hypothesis_held", result.HypothesisHeld),
		attribute.Int("violations", len(result.Violations)),
	)
	return result, nil
}

func (e *Engine) execute(ctx context.Context, span trace.Span, actions []Action, result *Result) {
	for _, action := range actions {
		if err := action.Execute(ctx); err != nil {
			result.ErrorEvents = append(result.ErrorEvents, ErrorEvent{
				Timestamp: time.Now(),
				Error:     err.Error(),
				Component: action.Target,
			})
			span.RecordError(err)
		}
	}
}

func (e *Engine) steadyState(ctx context.Context, probes []Probe) []Violation {
	var violations []Violation
	for _, p := range probes {
		value, err := p.Query(ctx)
		if err != nil {
			value = -1
		}
		if err != nil || !p.Threshold.Holds(value) {
			violations = append(violations, Violation{
				Probe:     p.Name,
				Expected:  p.Threshold.Value,
				Actual:    value,
				Timestamp: time.Now(),
			})
		}
	}
	return violations
}

// sample reads every probe once and reports whether any threshold was violated.
func (e *Engine) sample(ctx context.Context, probes []Probe, result *Result) bool {
	violated := false
	for _, p := range probes {
		value, err := p.Query(ctx)
		if err != nil {
			result.ErrorEvents = append(result.ErrorEvents, ErrorEvent{
				Timestamp: time.Now(),
				Error:     err.Error(),
				Component: p.Name,
			})
			continue
		}
		result.Observations[p.Name] = append(result.Observations[p.Name], DataPoint{Timestamp: time.Now(), Value: value})
		if !p.Threshold.Holds(value) {
			violated = true
			result.Violations = append(result.Violations, Violation{
				Probe:     p.Name,
				Expected:  p.Threshold.Value,
				Actual:    value,
				Timestamp: time.Now(),
			})
		}
	}
	return violated
}

func validate(assertions []Assertion, result *Result) []string {
	var failed []string
	for _, a := range assertions {
		observations := result.Observations[a.Probe]
		if len(observations) == 0 {
			failed = append(failed, fmt.Sprintf("%s: no observations", a.Message))
			continue
		}
		if final := observations[len(observations)-1].Value; !a.Condition(final) {
			failed = append(failed, fmt.Sprintf("%s: final value %.2f", a.Message, final))
		}
	}
	return failed
}

// GameDay is a named series of experiments.
type GameDay struct {
	Name      string
	Date      time.Time
	Scenarios []Experiment
	Pause     time.Duration
}

// ExecuteGameDay runs every scenario in order and reports how many hypotheses failed.
func (e *Engine) ExecuteGameDay(ctx context.Context, day GameDay) (int, error) {
	ctx, span := e.tracer.Start(ctx, "chaos.game_day",
		trace.WithAttributes(attribute.String("gameday.name", day.Name)),
	)
	defer span.End()

	e.logger.InfoContext(ctx, "starting game day", "name", day.Name, "date", day.Date, "scenarios", len(day.Scenarios))
	failed := 0
	for i, scenario := range day.Scenarios {
		e.logger.InfoContext(ctx, "running experiment",
			"index", i+1, "name", scenario.Name, "hypothesis", scenario.Hypothesis)

		result, err := e.Run(ctx, scenario)
		if err != nil {
			failed++
			e.logger.ErrorContext(ctx, "experiment aborted", "name", scenario.Name, "error", err)
			if ctx.Err() != nil {
				return failed, ctx.Err()
			}
			continue
		}
		if !result.HypothesisHeld {
			failed++
		}
		e.logResult(ctx, result)

		if day.Pause > 0 && i < len(day.Scenarios)-1 {
			select {
			case <-ctx.Done():
				return failed, ctx.Err()
			case <-time.After(day.Pause):
			}
		}
	}
	return failed, nil
}

func (e *Engine) logResult(ctx context.Context, result *Result) {
	attrs := []any{
		"name", result.ExperimentName,
		"hypothesis_held", result.HypothesisHeld,
		"violations", len(result.Violations),
		"errors", len(result.ErrorEvents),
		"duration", result.Duration,
	}
	if result.MTTR != nil {
		attrs = append(attrs, "mttr", *result.MTTR)
	}
	if result.HypothesisHeld {
		e.logger.InfoContext(ctx, "hypothesis held", attrs...)
		return
	}
	e.logger.WarnContext(ctx, "hypothesis violated", append(attrs, "failed_assertions", result.FailedAssertions)...)
}
