package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-redis/redis/v8"
	"github.com/urfave/cli/v2"
	"go.dedis.ch/sealbid"
	"go.dedis.ch/sealbid/contracts/auction"
	"go.dedis.ch/sealbid/contracts/auction/notify"
	"go.dedis.ch/sealbid/core/access"
	"go.dedis.ch/sealbid/core/access/acl"
	"go.dedis.ch/sealbid/core/seal/elgamal"
	"go.dedis.ch/sealbid/core/store/kv"
	"go.dedis.ch/sealbid/core/txn"
	"go.dedis.ch/sealbid/core/txn/plain"
	"go.dedis.ch/sealbid/internal/tracing"
	proxy "go.dedis.ch/sealbid/proxy/http"
	"golang.org/x/xerrors"
)

var ledgerBucket = []byte("sealbid")

// clock is the time of the commands.
var clock = time.Now

// stopSignal returns the channel that stops the proxy.
var stopSignal = func() <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	return ch
}

func keygenAction(c *cli.Context) error {
	path := c.String("key")

	_, err := os.Stat(path)
	if err == nil && !c.Bool("force") {
		return xerrors.Errorf("key '%s' already exists", path)
	}

	data, err := elgamal.GenerateCipher().MarshalSecret()
	if err != nil {
		return xerrors.Errorf("failed to marshal key: %v", err)
	}

	err = os.WriteFile(path, data, 0600)
	if err != nil {
		return xerrors.Errorf("failed to write key: %v", err)
	}

	fmt.Fprintf(c.App.Writer, "sealing key written to %s\n", path)

	return nil
}

func createAction(c *cli.Context) error {
	return withLedger(c, func(l *auction.Ledger, p access.Principal) error {
		err := submit(l, p,
			arg(auction.CmdArg, string(auction.CmdCreate)),
			arg(auction.TitleArg, c.String("title")),
			arg(auction.DescriptionArg, c.String("description")),
			arg(auction.CategoryArg, c.String("category")),
			arg(auction.MinimumArg, strconv.FormatUint(c.Uint64("minimum"), 10)))
		if err != nil {
			return err
		}

		ids, err := l.AuctionsOf(p)
		if err != nil || len(ids) == 0 {
			return xerrors.Errorf("failed to find the new auction: %v", err)
		}

		fmt.Fprintf(c.App.Writer, "auction %d created\n", ids[len(ids)-1])

		return nil
	})
}

func bidAction(c *cli.Context) error {
	return withLedger(c, func(l *auction.Ledger, p access.Principal) error {
		id := c.Uint64("id")

		err := submit(l, p,
			arg(auction.CmdArg, string(auction.CmdBid)),
			arg(auction.IDArg, strconv.FormatUint(id, 10)),
			arg(auction.AmountArg, strconv.FormatUint(c.Uint64("amount"), 10)),
			arg(auction.PaymentArg, strconv.FormatUint(c.Uint64("payment"), 10)),
			arg(auction.ClaimArg, strconv.FormatBool(c.Bool("claim"))),
			arg(auction.CommentArg, c.String("comment")))
		if err != nil {
			return err
		}

		fmt.Fprintf(c.App.Writer, "bid placed on auction %d\n", id)

		return nil
	})
}

func endAction(c *cli.Context) error {
	return withLedger(c, func(l *auction.Ledger, p access.Principal) error {
		id := c.Uint64("id")

		err := submit(l, p,
			arg(auction.CmdArg, string(auction.CmdEnd)),
			arg(auction.IDArg, strconv.FormatUint(id, 10)))
		if err != nil {
			return err
		}

		a, err := l.GetAuction(id)
		if err != nil {
			return err
		}

		if a.Winner == "" {
			fmt.Fprintf(c.App.Writer, "auction %d ended without bid\n", id)
		} else {
			fmt.Fprintf(c.App.Writer, "auction %d won by %s for %d\n", id, a.Winner, a.WinningAmount)
		}

		return nil
	})
}

func showAction(c *cli.Context) error {
	return withLedger(c, func(l *auction.Ledger, _ access.Principal) error {
		a, err := l.GetAuction(c.Uint64("id"))
		if err != nil {
			return err
		}

		printAuction(c, a)

		return nil
	})
}

func listAction(c *cli.Context) error {
	return withLedger(c, func(l *auction.Ledger, _ access.Principal) error {
		list, err := l.ListActive(clock())
		if err != nil {
			return err
		}

		for _, a := range list {
			printAuction(c, a)
		}

		return nil
	})
}

func mineAction(c *cli.Context) error {
	return withLedger(c, func(l *auction.Ledger, p access.Principal) error {
		ids, err := l.AuctionsOf(p)
		if err != nil {
			return err
		}

		fmt.Fprintf(c.App.Writer, "%s: %v\n", p, ids)

		return nil
	})
}

func revealAction(c *cli.Context) error {
	return withLedger(c, func(l *auction.Ledger, p access.Principal) error {
		reveal, err := l.RevealBid(c.Uint64("id"), p)
		if err != nil {
			return err
		}

		fmt.Fprintf(c.App.Writer, "amount=%d claim=%v payment=%d\n",
			reveal.Amount, reveal.ClaimedHigh, reveal.Payment)

		return nil
	})
}

func proxyAction(c *cli.Context) error {
	return withLedger(c, func(l *auction.Ledger, _ access.Principal) error {
		opts := []proxy.Option{}

		if c.Bool("trace") {
			tracer, err := tracing.GetTracer("sealbid-proxy")
			if err != nil {
				return xerrors.Errorf("failed to create tracer: %v", err)
			}

			defer tracing.CloseAll()

			opts = append(opts, proxy.WithTracer(tracer))
		}

		srv := proxy.NewHTTP(c.String("addr"), opts...)
		proxy.RegisterLedger(srv, l, clock)

		path := c.String("metrics")
		if path != "" {
			err := proxy.RegisterMetrics(srv, path)
			if err != nil {
				return err
			}
		}

		errs := make(chan error, 1)
		go func() {
			errs <- srv.Listen()
		}()

		select {
		case err := <-errs:
			return err
		case <-stopSignal():
		}

		srv.Stop()

		return <-errs
	})
}

// withLedger opens the ledger for the duration of the function.
func withLedger(c *cli.Context, fn func(*auction.Ledger, access.Principal) error) error {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}

	principal := access.Principal(c.String("as"))
	if principal == "" && needsPrincipal(c.Command.Name) {
		return xerrors.New("missing principal: use --as")
	}

	secret, err := os.ReadFile(c.String("key"))
	if err != nil {
		return xerrors.Errorf("failed to read key, run keygen first: %v", err)
	}

	cipher, err := elgamal.CipherFromSecret(secret)
	if err != nil {
		return xerrors.Errorf("failed to load key: %v", err)
	}

	srvc, err := acl.NewService(access.Principal(cfg.Ledger.Contract))
	if err != nil {
		return xerrors.Errorf("failed to create access service: %v", err)
	}

	db, err := kv.New(c.String("db"))
	if err != nil {
		return xerrors.Errorf("failed to open database: %v", err)
	}

	defer db.Close()

	publishers := notify.Multi{notify.NewLog(sealbid.Logger)}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer client.Close()

		opts := []notify.RedisOption{}
		if cfg.Redis.MaxLen > 0 {
			opts = append(opts, notify.WithMaxLen(cfg.Redis.MaxLen))
		}
		if cfg.Redis.Stream != "" {
			opts = append(opts, notify.WithStream(cfg.Redis.Stream))
		}

		publishers = append(publishers, notify.NewRedis(client, opts...))
	}

	// Payments are settled by the operator outside of the CLI.
	l, err := auction.NewLedger(kv.NewStore(db, ledgerBucket),
		elgamal.NewOracle(cipher, srvc, auction.ContractName),
		auction.WithConfig(cfg.Ledger),
		auction.WithPublisher(publishers),
		auction.WithEscrow(nil),
		auction.WithClock(clock))
	if err != nil {
		return err
	}

	return fn(l, principal)
}

func needsPrincipal(cmd string) bool {
	switch cmd {
	case "create", "bid", "end", "mine", "reveal":
		return true
	default:
		return false
	}
}

func submit(l *auction.Ledger, p access.Principal, args ...txn.Arg) error {
	tx, err := plain.NewManager(p).Make(args...)
	if err != nil {
		return err
	}

	res, err := l.Submit(tx)
	if err != nil {
		return err
	}

	if !res.Accepted {
		return xerrors.Errorf("transaction refused: %s", res.Message)
	}

	return nil
}

func arg(key, value string) txn.Arg {
	return txn.Arg{Key: key, Value: []byte(value)}
}

func printAuction(c *cli.Context, a auction.Auction) {
	fmt.Fprintf(c.App.Writer, "#%d %q [%s] by %s, minimum %d, %d bid(s), %s, deadline %s",
		a.ID, a.Title, a.Category, a.Creator, a.MinimumBid, a.BidCount, a.State,
		humanize.RelTime(a.EndsAt, clock(), "ago", "from now"))

	if a.State == auction.StateEnded && a.Winner != "" {
		fmt.Fprintf(c.App.Writer, ", won by %s for %d", a.Winner, a.WinningAmount)
	}

	fmt.Fprintln(c.App.Writer)
}
