package chaos

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realticket/internal/domain"
	"realticket/internal/eventstore"
	"realticket/internal/marketplace"
)

func newTarget(t *testing.T) Target {
	t.Helper()
	journal := NewFaultyJournal(eventstore.NewMemoryStore())
	svc, err := marketplace.NewService(context.Background(), journal, marketplace.Config{Deployer: "operator"})
	require.NoError(t, err)
	return Target{
		Service:  svc,
		Journal:  journal,
		Operator: "operator",
		Buyers:   []domain.Address{"alice", "bob", "carol"},
	}
}

func TestThresholdHolds(t *testing.T) {
	assert.True(t, Threshold{">", 1}.Holds(2))
	assert.False(t, Threshold{">", 1}.Holds(1))
	assert.True(t, Threshold{"<=", 1}.Holds(1))
	assert.True(t, Threshold{"==", 0}.Holds(0))
	assert.False(t, Threshold{"!=", 0}.Holds(1))
}

func TestFaultyJournal(t *testing.T) {
	ctx := context.Background()
	j := NewFaultyJournal(eventstore.NewMemoryStore())
	event := eventstore.Event{EventType: "probe"}

	require.NoError(t, j.Append(ctx, []eventstore.Event{event}))
	j.InjectFailure(1)
	assert.ErrorIs(t, j.Append(ctx, []eventstore.Event{event}), ErrInjectedFault)
	j.Clear()

	j.InjectLatency(20 * time.Millisecond)
	start := time.Now()
	require.NoError(t, j.Append(ctx, []eventstore.Event{event}))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, j.Append(cancelled, []eventstore.Event{event}), context.Canceled)

	appends, failures := j.Stats()
	assert.Equal(t, 4, appends)
	assert.Equal(t, 1, failures)

	n, err := CountEvents(ctx, j, "probe")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPredefinedExperimentsHold(t *testing.T) {
	target := newTarget(t)
	engine := NewEngine(nil)
	engine.RegisterExperiments(target)

	failed, err := engine.ExecuteGameDay(context.Background(), GameDay{
		Name:      "test",
		Date:      time.Now(),
		Scenarios: engine.Experiments(),
	})
	require.NoError(t, err)

	for _, r := range engine.Results() {
		assert.True(t, r.HypothesisHeld, "%s: %v", r.ExperimentName, r.FailedAssertions)
		assert.True(t, r.SteadyStateValid, r.ExperimentName)
	}
	assert.Equal(t, 0, failed)
	assert.Len(t, engine.Results(), 4)
	assert.False(t, target.Service.Paused(context.Background()))
	assert.Equal(t, uint64(1000), target.Service.Capacity(context.Background()))
}

func TestRunDetectsViolatedHypothesis(t *testing.T) {
	value := 0.0
	exp := Experiment{
		Name: "broken",
		SteadyState: []Probe{{
			Name:      "errors",
			Query:     func(context.Context) (float64, error) { return value, nil },
			Threshold: Threshold{"==", 0},
		}},
		Method: []Action{{
			Target:  "system",
			Execute: func(context.Context) error { value = 3; return errors.New("boom") },
		}},
		Validation: []Assertion{{Probe: "errors", Condition: func(v float64) bool { return v == 0 }, Message: "errors stay at zero"}},
		Samples:    2,
	}

	result, err := NewEngine(nil).Run(context.Background(), exp)
	require.NoError(t, err)
	assert.False(t, result.HypothesisHeld)
	assert.Len(t, result.ErrorEvents, 1)
	assert.Len(t, result.Violations, 3)
	assert.Len(t, result.Observations["errors"], 3)
}

func TestRunAbortsOnInvalidSteadyState(t *testing.T) {
	exp := Experiment{
		Name: "unsteady",
		SteadyState: []Probe{{
			Name:      "latency",
			Query:     func(context.Context) (float64, error) { return 0, errors.New("unreachable") },
			Threshold: Threshold{"<", 1},
		}},
	}
	result, err := NewEngine(nil).Run(context.Background(), exp)
	assert.ErrorIs(t, err, ErrSteadyStateInvalid)
	assert.False(t, result.SteadyStateValid)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, -1.0, result.Violations[0].Actual)
}
