// cmd/chaos/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"realticket/internal/chaos"
	"realticket/internal/domain"
	"realticket/internal/eventstore"
	"realticket/internal/marketplace"
	"realticket/internal/settings"
)

func main() {
	flags := pflag.NewFlagSet("chaos", pflag.ExitOnError)
	pause := flags.Duration("pause", time.Second, "wait between experiments")
	buyers := flags.Int("buyers", 8, "number of simulated buyers")
	_ = flags.Parse(os.Args[1:])

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	const operator = domain.Address("chaos-operator")
	journal := chaos.NewFaultyJournal(eventstore.NewMemoryStore())
	svc, err := marketplace.NewService(ctx, journal, marketplace.Config{
		Deployer: operator,
		Settings: settings.Defaults(),
		Logger:   logger,
	})
	if err != nil {
		logger.Error("failed to start marketplace", "error", err)
		os.Exit(1)
	}

	target := chaos.Target{Service: svc, Journal: journal, Operator: operator}
	for i := 0; i < max(*buyers, 1); i++ {
		target.Buyers = append(target.Buyers, domain.Address(fmt.Sprintf("buyer-%02d", i)))
	}

	engine := chaos.NewEngine(logger)
	engine.RegisterExperiments(target)

	failed, err := engine.ExecuteGameDay(ctx, chaos.GameDay{
		Name:      "marketplace game day",
		Date:      time.Now(),
		Scenarios: engine.Experiments(),
		Pause:     *pause,
	})
	if err != nil {
		logger.Error("game day interrupted", "error", err)
		os.Exit(1)
	}
	if failed > 0 {
		logger.Error("game day finished with violated hypotheses", "failed", failed)
		os.Exit(1)
	}
	logger.Info("game day finished", "experiments", len(engine.Results()))
}
