// cmd/ticketctl/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"realticket/internal/access"
	"realticket/internal/clients"
	"realticket/internal/domain"
	"realticket/internal/settings"
)

type command struct {
	usage string
	args  int
	run   func(ctx context.Context, c *clients.MarketplaceClient, args []string) (interface{}, error)
}

var errUsage = errors.New("usage")

var commands = map[string]command{
	"status": {"status", 0, func(ctx context.Context, c *clients.MarketplaceClient, _ []string) (interface{}, error) {
		return c.Status(ctx)
	}},
	"settings": {"settings", 0, func(ctx context.Context, c *clients.MarketplaceClient, _ []string) (interface{}, error) {
		return c.Settings(ctx)
	}},
	"configure": {"configure <fee> <price> <capacity>", 3, func(ctx context.Context, c *clients.MarketplaceClient, args []string) (interface{}, error) {
		fee, price, err := amounts(args[0], args[1])
		if err != nil {
			return nil, err
		}
		capacity, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid capacity %q", args[2])
		}
		s, err := settings.New(fee, price, capacity)
		if err != nil {
			return nil, err
		}
		return c.UpdateSettings(ctx, s)
	}},
	"set": {"set <fee|price|capacity> <value>", 2, func(ctx context.Context, c *clients.MarketplaceClient, args []string) (interface{}, error) {
		return c.SetSetting(ctx, args[0], args[1])
	}},
	"buy": {"buy <value>", 1, func(ctx context.Context, c *clients.MarketplaceClient, args []string) (interface{}, error) {
		value, err := domain.ParseAmount(args[0])
		if err != nil {
			return nil, err
		}
		return c.Purchase(ctx, value)
	}},
	"mint": {"mint <to>", 1, func(ctx context.Context, c *clients.MarketplaceClient, args []string) (interface{}, error) {
		return c.Mint(ctx, domain.Address(args[0]))
	}},
	"ticket": {"ticket <id>", 1, withID(func(ctx context.Context, c *clients.MarketplaceClient, id uint64, _ []string) (interface{}, error) {
		return c.Ticket(ctx, id)
	})},
	"history": {"history <id>", 1, withID(func(ctx context.Context, c *clients.MarketplaceClient, id uint64, _ []string) (interface{}, error) {
		return c.TicketHistory(ctx, id, 0)
	})},
	"burn": {"burn <id>", 1, withID(func(ctx context.Context, c *clients.MarketplaceClient, id uint64, _ []string) (interface{}, error) {
		return nil, c.Burn(ctx, id)
	})},
	"use": {"use <id>", 1, withID(func(ctx context.Context, c *clients.MarketplaceClient, id uint64, _ []string) (interface{}, error) {
		return c.Use(ctx, id)
	})},
	"block": {"block <id>", 1, withID(func(ctx context.Context, c *clients.MarketplaceClient, id uint64, _ []string) (interface{}, error) {
		return c.Block(ctx, id)
	})},
	"bind": {"bind <id>", 1, withID(func(ctx context.Context, c *clients.MarketplaceClient, id uint64, _ []string) (interface{}, error) {
		return c.Bind(ctx, id)
	})},
	"transfer": {"transfer <id> <from> <to>", 3, withID(func(ctx context.Context, c *clients.MarketplaceClient, id uint64, args []string) (interface{}, error) {
		return c.Transfer(ctx, id, domain.Address(args[0]), domain.Address(args[1]))
	})},
	"approve": {"approve <id> <to>", 2, withID(func(ctx context.Context, c *clients.MarketplaceClient, id uint64, args []string) (interface{}, error) {
		return c.Approve(ctx, id, domain.Address(args[0]))
	})},
	"list": {"list <id> <price>", 2, withID(func(ctx context.Context, c *clients.MarketplaceClient, id uint64, args []string) (interface{}, error) {
		price, err := domain.ParseAmount(args[0])
		if err != nil {
			return nil, err
		}
		return c.List(ctx, id, price)
	})},
	"resale": {"resale <id> <seller> <value>", 3, withID(func(ctx context.Context, c *clients.MarketplaceClient, id uint64, args []string) (interface{}, error) {
		value, err := domain.ParseAmount(args[1])
		if err != nil {
			return nil, err
		}
		return c.Buy(ctx, id, domain.Address(args[0]), value)
	})},
	"operator": {"operator <address> <true|false>", 2, func(ctx context.Context, c *clients.MarketplaceClient, args []string) (interface{}, error) {
		approved, err := strconv.ParseBool(args[1])
		if err != nil {
			return nil, fmt.Errorf("invalid approval %q", args[1])
		}
		return nil, c.SetOperator(ctx, domain.Address(args[0]), approved)
	}},
	"withdraw": {"withdraw <recipient>", 1, func(ctx context.Context, c *clients.MarketplaceClient, args []string) (interface{}, error) {
		amount, err := c.Withdraw(ctx, domain.Address(args[0]))
		if err != nil {
			return nil, err
		}
		return map[string]string{"recipient": args[0], "amount": amount.String()}, nil
	}},
	"pause": {"pause", 0, func(ctx context.Context, c *clients.MarketplaceClient, _ []string) (interface{}, error) {
		return nil, c.Pause(ctx)
	}},
	"unpause": {"unpause", 0, func(ctx context.Context, c *clients.MarketplaceClient, _ []string) (interface{}, error) {
		return nil, c.Unpause(ctx)
	}},
	"members": {"members <role>", 1, func(ctx context.Context, c *clients.MarketplaceClient, args []string) (interface{}, error) {
		role, err := access.ParseRole(args[0])
		if err != nil {
			return nil, err
		}
		return c.RoleMembers(ctx, role)
	}},
	"grant": {"grant <role> <address>", 2, func(ctx context.Context, c *clients.MarketplaceClient, args []string) (interface{}, error) {
		role, err := access.ParseRole(args[0])
		if err != nil {
			return nil, err
		}
		return nil, c.GrantRole(ctx, role, domain.Address(args[1]))
	}},
	"revoke": {"revoke <role> <address>", 2, func(ctx context.Context, c *clients.MarketplaceClient, args []string) (interface{}, error) {
		role, err := access.ParseRole(args[0])
		if err != nil {
			return nil, err
		}
		return nil, c.RevokeRole(ctx, role, domain.Address(args[1]))
	}},
	"account": {"account <address>", 1, func(ctx context.Context, c *clients.MarketplaceClient, args []string) (interface{}, error) {
		return c.Account(ctx, domain.Address(args[0]))
	}},
}

func withID(fn func(context.Context, *clients.MarketplaceClient, uint64, []string) (interface{}, error)) func(context.Context, *clients.MarketplaceClient, []string) (interface{}, error) {
	return func(ctx context.Context, c *clients.MarketplaceClient, args []string) (interface{}, error) {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ticket id %q", args[0])
		}
		return fn(ctx, c, id, args[1:])
	}
}

func amounts(a, b string) (*big.Int, *big.Int, error) {
	x, err := domain.ParseAmount(a)
	if err != nil {
		return nil, nil, err
	}
	y, err := domain.ParseAmount(b)
	if err != nil {
		return nil, nil, err
	}
	return x, y, nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	flags := pflag.NewFlagSet("ticketctl", pflag.ContinueOnError)
	flags.SetInterspersed(false)
	flags.SetOutput(stderr)
	server := flags.String("server", envOr("REALTICKET_URL", "http://localhost:8080"), "marketplace base URL")
	account := flags.String("account", os.Getenv("REALTICKET_ACCOUNT"), "account to act as")
	apiKey := flags.String("api-key", os.Getenv("REALTICKET_API_KEY"), "API key of --account")
	timeout := flags.Duration("timeout", 10*time.Second, "request timeout")
	flags.Usage = func() { usage(flags, stderr) }
	if err := flags.Parse(args); err != nil {
		return errUsage
	}

	rest := flags.Args()
	if len(rest) == 0 {
		usage(flags, stderr)
		return errUsage
	}
	cmd, ok := commands[rest[0]]
	if !ok || len(rest)-1 != cmd.args {
		if ok {
			fmt.Fprintf(stderr, "usage: ticketctl %s\n", cmd.usage)
		} else {
			usage(flags, stderr)
		}
		return errUsage
	}

	client := clients.NewMarketplaceClient(*server)
	if *account != "" {
		client = client.WithCredentials(domain.Address(*account), *apiKey)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	out, err := cmd.run(ctx, client, rest[1:])
	if err != nil {
		return err
	}
	if out == nil {
		out = map[string]string{"result": "ok"}
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func usage(flags *pflag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "usage: ticketctl [flags] <command> [args]")
	fmt.Fprintln(w, "\ncommands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}
	fmt.Fprintln(w, "\nflags:")
	fmt.Fprint(w, flags.FlagUsages())
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
