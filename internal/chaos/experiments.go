// internal/chaos/experiments.go
package chaos

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"realticket/internal/domain"
	"realticket/internal/ledger"
	"realticket/internal/marketplace"
)

// Target is the marketplace under test. Operator must hold ADMIN and MANAGER.
type Target struct {
	Service  marketplace.Service
	Journal  *FaultyJournal
	Operator domain.Address
	Buyers   []domain.Address
}

// RegisterExperiments registers every predefined experiment against t.
func (e *Engine) RegisterExperiments(t Target) {
	e.Register(JournalOutageExperiment(t, 20))
	e.Register(JournalLatencyExperiment(t, 25*time.Millisecond, 20))
	e.Register(PauseDrillExperiment(t))
	e.Register(CapacityRaceExperiment(t, 10, 50))
}

// JournalDriftProbe compares tickets created by the engine with TicketMinted journal entries.
func JournalDriftProbe(t Target) Probe {
	return Probe{
		Name: "journal_drift",
		Query: func(ctx context.Context) (float64, error) {
			minted := t.Service.TotalMinted(ctx)
			logged, err := CountEvents(ctx, t.Journal, marketplace.EventTicketMinted)
			if err != nil {
				return 0, err
			}
			return float64(minted) - float64(logged), nil
		},
		Threshold: Threshold{Operator: "==", Value: 0},
	}
}

func counterProbe(name string, n *atomic.Int64, threshold Threshold) Probe {
	return Probe{
		Name: name,
		Query: func(context.Context) (float64, error) {
			return float64(n.Load()), nil
		},
		Threshold: threshold,
	}
}

// purchase buys one ticket for buyer at the current price plus fee.
func purchase(ctx context.Context, t Target, buyer domain.Address) (uint64, error) {
	value := new(big.Int).Add(t.Service.Price(ctx), t.Service.Fee(ctx))
	return t.Service.PrimaryPurchase(ctx, ledger.Call{Caller: buyer, Value: value})
}

// concurrently runs fn n times in parallel, spreading calls over the buyers.
func concurrently(t Target, n int, fn func(buyer domain.Address)) {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		buyer := t.Buyers[i%len(t.Buyers)]
		go func() {
			defer wg.Done()
			fn(buyer)
		}()
	}
	wg.Wait()
}

// JournalOutageExperiment fails every journal append and checks that no sale is accepted.
func JournalOutageExperiment(t Target, workload int) Experiment {
	var accepted atomic.Int64

	return Experiment{
		Name:       "journal-outage",
		Hypothesis: "No sale is accepted while the journal is down, and none is lost afterwards",
		SteadyState: []Probe{
			JournalDriftProbe(t),
			counterProbe("accepted_during_outage", &accepted, Threshold{Operator: "==", Value: 0}),
		},
		Method: []Action{
			{
				Type:   "inject-failure",
				Target: "journal",
				Execute: func(context.Context) error {
					t.Journal.InjectFailure(1)
					return nil
				},
			},
			{
				Type:   "workload",
				Target: "primary-sales",
				Execute: func(ctx context.Context) error {
					concurrently(t, workload, func(buyer domain.Address) {
						if _, err := purchase(ctx, t, buyer); err == nil {
							accepted.Add(1)
						}
					})
					return nil
				},
			},
		},
		Rollback: []Action{
			{
				Type:   "clear-faults",
				Target: "journal",
				Execute: func(ctx context.Context) error {
					t.Journal.Clear()
					if _, err := purchase(ctx, t, t.Buyers[0]); err != nil {
						return fmt.Errorf("sale after recovery: %w", err)
					}
					return nil
				},
			},
		},
		Validation: []Assertion{
			{Probe: "journal_drift", Condition: func(v float64) bool { return v == 0 }, Message: "every created ticket must be journaled"},
			{Probe: "accepted_during_outage", Condition: func(v float64) bool { return v == 0 }, Message: "no sale may succeed without the journal"},
		},
		Samples: 1,
	}
}

// JournalLatencyExperiment slows the journal down and checks that sales still serialise correctly.
func JournalLatencyExperiment(t Target, latency time.Duration, workload int) Experiment {
	var rejected atomic.Int64

	return Experiment{
		Name:       "journal-latency",
		Hypothesis: "A slow journal delays sales without rejecting or duplicating any",
		SteadyState: []Probe{
			JournalDriftProbe(t),
			counterProbe("rejected_sales", &rejected, Threshold{Operator: "==", Value: 0}),
		},
		Method: []Action{
			{
				Type:   "inject-latency",
				Target: "journal",
				Execute: func(context.Context) error {
					t.Journal.InjectLatency(latency)
					return nil
				},
			},
			{
				Type:   "workload",
				Target: "primary-sales",
				Execute: func(ctx context.Context) error {
					concurrently(t, workload, func(buyer domain.Address) {
						if _, err := purchase(ctx, t, buyer); err != nil {
							rejected.Add(1)
						}
					})
					return nil
				},
			},
		},
		Rollback: []Action{
			{
				Type:   "clear-faults",
				Target: "journal",
				Execute: func(context.Context) error {
					t.Journal.Clear()
					return nil
				},
			},
		},
		Validation: []Assertion{
			{Probe: "journal_drift", Condition: func(v float64) bool { return v == 0 }, Message: "every created ticket must be journaled"},
			{Probe: "rejected_sales", Condition: func(v float64) bool { return v == 0 }, Message: "latency alone must not reject sales"},
		},
		Samples: 1,
	}
}

// PauseDrillExperiment pauses the contract and tries to move every buyer's fresh ticket.
func PauseDrillExperiment(t Target) Experiment {
	var moved, unexpected atomic.Int64

	return Experiment{
		Name:       "pause-drill",
		Hypothesis: "No ticket changes hands while the marketplace is paused",
		SteadyState: []Probe{
			counterProbe("transfers_while_paused", &moved, Threshold{Operator: "==", Value: 0}),
			counterProbe("unexpected_errors", &unexpected, Threshold{Operator: "==", Value: 0}),
		},
		Method: []Action{
			{
				Type:   "pause",
				Target: "marketplace",
				Execute: func(ctx context.Context) error {
					return t.Service.Pause(ctx, t.Operator)
				},
			},
			{
				Type:   "workload",
				Target: "transfers",
				Execute: func(ctx context.Context) error {
					concurrently(t, len(t.Buyers), func(buyer domain.Address) {
						id, err := purchase(ctx, t, buyer)
						if err != nil {
							unexpected.Add(1)
							return
						}
						err = t.Service.TransferFrom(ctx, buyer, buyer, t.Operator, id)
						switch {
						case err == nil:
							moved.Add(1)
						case !errors.Is(err, domain.ErrPaused):
							unexpected.Add(1)
						}
					})
					return nil
				},
			},
		},
		Rollback: []Action{
			{
				Type:   "unpause",
				Target: "marketplace",
				Execute: func(ctx context.Context) error {
					return t.Service.Unpause(ctx, t.Operator)
				},
			},
		},
		Validation: []Assertion{
			{Probe: "transfers_while_paused", Condition: func(v float64) bool { return v == 0 }, Message: "paused transfers must be refused"},
			{Probe: "unexpected_errors", Condition: func(v float64) bool { return v == 0 }, Message: "only ErrPaused is acceptable"},
		},
		Samples: 1,
	}
}

// CapacityRaceExperiment leaves headroom tickets of capacity and races concurrency buyers for them.
func CapacityRaceExperiment(t Target, headroom uint64, concurrency int) Experiment {
	var accepted atomic.Int64
	var original atomic.Uint64

	return Experiment{
		Name:       "capacity-race",
		Hypothesis: "Concurrent buyers never push the number of tickets past capacity",
		SteadyState: []Probe{
			{
				Name: "over_capacity",
				Query: func(ctx context.Context) (float64, error) {
					return float64(t.Service.TotalMinted(ctx)) - float64(t.Service.Capacity(ctx)), nil
				},
				Threshold: Threshold{Operator: "<=", Value: 0},
			},
			counterProbe("accepted_sales", &accepted, Threshold{Operator: ">=", Value: 0}),
			JournalDriftProbe(t),
		},
		Method: []Action{
			{
				Type:   "shrink-capacity",
				Target: "settings",
				Execute: func(ctx context.Context) error {
					original.Store(t.Service.Capacity(ctx))
					return t.Service.SetCapacity(ctx, t.Operator, t.Service.TotalMinted(ctx)+headroom)
				},
			},
			{
				Type:   "workload",
				Target: "primary-sales",
				Execute: func(ctx context.Context) error {
					concurrently(t, concurrency, func(buyer domain.Address) {
						if _, err := purchase(ctx, t, buyer); err == nil {
							accepted.Add(1)
						}
					})
					return nil
				},
			},
		},
		Rollback: []Action{
			{
				Type:   "restore-capacity",
				Target: "settings",
				Execute: func(ctx context.Context) error {
					return t.Service.SetCapacity(ctx, t.Operator, original.Load())
				},
			},
		},
		Validation: []Assertion{
			{Probe: "over_capacity", Condition: func(v float64) bool { return v <= 0 }, Message: "capacity must hold"},
			{Probe: "accepted_sales", Condition: func(v float64) bool { return v == float64(headroom) }, Message: "exactly the headroom must sell"},
			{Probe: "journal_drift", Condition: func(v float64) bool { return v == 0 }, Message: "every created ticket must be journaled"},
		},
		Samples: 1,
	}
}
