// internal/marketplace/implementation.go
package marketplace

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"realticket/internal/access"
	"realticket/internal/domain"
	"realticket/internal/eventstore"
	"realticket/internal/ledger"
	"realticket/internal/registry"
	"realticket/internal/settings"
	"realticket/internal/ticket"
	"realticket/internal/treasury"
)

// Config holds the construction-time parameters of the marketplace.
type Config struct {
	// Deployer receives ADMIN, MANAGER and BOUNCER.
	Deployer domain.Address
	Settings settings.Settings
	// RefundExcess pushes value above the required minimum back to the buyer
	// instead of keeping it in the treasury.
	RefundExcess bool
	Logger       *slog.Logger
	// MeterProvider defaults to the global provider.
	MeterProvider metric.MeterProvider
}

// state is everything one operation may touch. The ledger clones it per operation.
type state struct {
	roles    *access.Registry
	tickets  *ticket.Store
	assets   *registry.Registry
	settings settings.Settings
	treasury *treasury.Treasury
	accounts *ledger.Accounts
	paused   bool
	pending  []pendingEvent
}

func (st *state) Clone() *state {
	c := &state{
		roles:    st.roles.Clone(),
		tickets:  st.tickets.Clone(),
		settings: st.settings.Clone(),
		treasury: st.treasury.Clone(),
		accounts: st.accounts.Clone(),
		paused:   st.paused,
	}
	c.assets = st.assets.Clone(transferGate{st: c})
	return c
}

// create allocates the next ticket for to, enforcing capacity.
func (st *state) create(to domain.Address) (uint64, error) {
	if next := st.tickets.Next(); next >= st.settings.Capacity {
		return 0, fmt.Errorf("%w: %d of %d tickets created", domain.ErrCapacityExceeded, next, st.settings.Capacity)
	}
	id := st.tickets.Create()
	if err := st.assets.Mint(to, id); err != nil {
		return 0, err
	}
	st.recordTicket(id, EventTicketMinted, TicketMintedEvent{TicketID: id, Owner: to})
	return id, nil
}

// requireOwnerOrApproved fails with ErrUnauthorized unless caller may move id.
func (st *state) requireOwnerOrApproved(caller domain.Address, id uint64) error {
	ok, err := st.assets.IsApprovedOrOwner(caller, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s is not owner nor approved for ticket %d", domain.ErrUnauthorized, caller, id)
	}
	return nil
}

// service implements the Service interface.
type service struct {
	ledger       *ledger.Ledger[*state]
	journal      eventstore.Journal
	refundExcess bool
	logger       *slog.Logger
	tracer       trace.Tracer
	sales        metric.Int64Counter
	rejections   metric.Int64Counter
}

// NewService creates a marketplace whose deployer holds every role, then replays the
// journal so a restarted process resumes where the previous one stopped.
func NewService(ctx context.Context, journal eventstore.Journal, cfg Config) (Service, error) {
	if journal == nil {
		journal = eventstore.NewMemoryStore()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Settings.BaseFee == nil || cfg.Settings.BasePrice == nil {
		cfg.Settings = settings.Defaults()
	}
	current, err := settings.New(cfg.Settings.BaseFee, cfg.Settings.BasePrice, cfg.Settings.Capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to validate settings: %w", err)
	}

	roles := access.NewRegistry()
	if err := roles.Bootstrap(cfg.Deployer); err != nil {
		return nil, err
	}

	initial := &state{
		roles:    roles,
		tickets:  ticket.NewStore(),
		settings: current,
		treasury: treasury.New(),
		accounts: ledger.NewAccounts(),
	}
	initial.assets = registry.New(transferGate{st: initial})

	replayed, err := replay(ctx, journal, initial)
	if err != nil {
		return nil, err
	}
	if replayed > 0 {
		logger.InfoContext(ctx, "journal replayed",
			"events", replayed,
			"tickets", initial.tickets.Next(),
			"paused", initial.paused,
		)
	}

	provider := cfg.MeterProvider
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter("realticket/marketplace")
	sales, err := meter.Int64Counter("realticket.sales",
		metric.WithDescription("Completed ticket sales"))
	if err != nil {
		sales = noop.Int64Counter{}
	}
	rejections, err := meter.Int64Counter("realticket.rejections",
		metric.WithDescription("Operations aborted with an error"))
	if err != nil {
		rejections = noop.Int64Counter{}
	}

	return &service{
		ledger:       ledger.New(initial),
		journal:      journal,
		refundExcess: cfg.RefundExcess,
		logger:       logger,
		tracer:       otel.Tracer("realticket/marketplace"),
		sales:        sales,
		rejections:   rejections,
	}, nil
}

// exec runs one mutating operation atomically and records its outcome.
func (s *service) exec(ctx context.Context, op string, caller domain.Address, fn func(st *state) error) error {
	ctx, span := s.tracer.Start(ctx, "marketplace."+op,
		trace.WithAttributes(
			attribute.String("operation", op),
			attribute.String("caller", caller.String()),
		),
	)
	defer span.End()

	err := s.ledger.Execute(ctx, func(_ context.Context, st *state) error {
		return fn(st)
	}, s.commit)
	if err != nil {
		code, _ := ErrorCode(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, code)
		s.rejections.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", op),
			attribute.String("reason", code),
		))
		s.logger.InfoContext(ctx, "operation rejected", "op", op, "caller", caller, "reason", code, "error", err)
		return err
	}

	s.logger.DebugContext(ctx, "operation committed", "op", op, "caller", caller)
	return nil
}

// read runs fn against the live state.
func (s *service) read(fn func(st *state) error) error {
	return s.ledger.Read(fn)
}

func (s *service) countSale(ctx context.Context, market string) {
	s.sales.Add(ctx, 1, metric.WithAttributes(attribute.String("market", market)))
}
