package auction

import (
	"sync"
	"time"

	"go.dedis.ch/sealbid/core/access"
	"go.dedis.ch/sealbid/core/execution"
	"go.dedis.ch/sealbid/core/execution/native"
	"go.dedis.ch/sealbid/core/seal"
	"go.dedis.ch/sealbid/core/store"
	"go.dedis.ch/sealbid/core/txn"
	"golang.org/x/xerrors"
)

// Ledger is the auction ledger on top of a transactional store. Every
// mutating operation is applied in a single transaction of the store, which
// is discarded if the operation fails. The notifications and the payments are
// performed once the transaction is committed.
type Ledger struct {
	sync.Mutex

	store  store.Store
	engine engine
	exec   *native.Service
	clock  func() time.Time
}

// NewLedger creates a ledger that persists its records in the store and uses
// the oracle for the sealed values.
func NewLedger(s store.Store, oracle seal.Oracle, opts ...Option) (*Ledger, error) {
	tmpl, err := newTemplate(opts)
	if err != nil {
		return nil, err
	}

	e := newEngine(oracle, tmpl)

	exec := native.NewExecution()
	RegisterContract(exec, newContract(e, tmpl.clock))

	l := &Ledger{
		store:  s,
		engine: e,
		exec:   exec,
		clock:  tmpl.clock,
	}

	return l, nil
}

// Self returns the identity of the contract.
func (l *Ledger) Self() access.Identity {
	return l.engine.self
}

// Config returns the configuration of the ledger.
func (l *Ledger) Config() Config {
	return l.engine.config
}

// CreateAuction opens an auction for the creator and returns its identifier.
func (l *Ledger) CreateAuction(req CreateRequest, creator access.Principal, now time.Time) (uint64, error) {
	var id uint64

	err := l.update(func(tx store.WritableTx) error {
		var err error
		id, err = l.engine.create(tx, req, creator, now)

		return err
	})

	if err != nil {
		return 0, xerrors.Errorf("failed to create auction: %w", observe(err))
	}

	return id, nil
}

// PlaceBid submits the bid of the bidder.
func (l *Ledger) PlaceBid(req BidRequest, bidder access.Principal, now time.Time) error {
	err := l.update(func(tx store.WritableTx) error {
		return l.engine.placeBid(tx, req, bidder, now)
	})

	if err != nil {
		return xerrors.Errorf("failed to place bid: %w", observe(err))
	}

	return nil
}

// EndAuction ends the auction and settles it. Anyone can end an auction once
// its deadline has passed, and its creator can end it at any time. It returns
// the settled record.
func (l *Ledger) EndAuction(id uint64, caller access.Principal, now time.Time) (Auction, error) {
	var a Auction

	err := l.update(func(tx store.WritableTx) error {
		var err error
		a, err = l.engine.end(tx, id, caller, now)

		return err
	})

	if err != nil {
		return Auction{}, xerrors.Errorf("failed to end auction: %w", observe(err))
	}

	return a, nil
}

// Submit executes the transaction with the native contract of the ledger. A
// refused transaction leaves the ledger unchanged and returns the result with
// the reason of the refusal.
func (l *Ledger) Submit(tx txn.Transaction) (execution.Result, error) {
	if len(tx.GetArg(native.ContractArg)) == 0 {
		tx = withContract{Transaction: tx}
	}

	step := execution.Step{Current: tx}

	var res execution.Result

	err := l.update(func(wtx store.WritableTx) error {
		var err error
		res, err = l.exec.Execute(wtx, step)
		if err != nil {
			return err
		}

		if !res.Accepted {
			return errRefused
		}

		return nil
	})

	if err != nil && !xerrors.Is(err, errRefused) {
		return res, xerrors.Errorf("failed to execute: %v", err)
	}

	return res, nil
}

// GetAuction returns the auction with the identifier.
func (l *Ledger) GetAuction(id uint64) (Auction, error) {
	var a Auction

	err := l.store.View(func(r store.Readable) error {
		var err error
		a, err = l.engine.get(r, id)

		return err
	})

	return a, err
}

// ListActive returns the auctions that accept bids at the given time, in
// ascending order of identifier.
func (l *Ledger) ListActive(now time.Time) ([]Auction, error) {
	var list []Auction

	err := l.store.View(func(r store.Readable) error {
		var err error
		list, err = l.engine.listActive(r, now)

		return err
	})

	return list, err
}

// AuctionsOf returns the identifiers of the auctions created by the
// principal, in creation order.
func (l *Ledger) AuctionsOf(p access.Principal) ([]uint64, error) {
	var ids []uint64

	err := l.store.View(func(r store.Readable) error {
		var err error
		ids, err = l.engine.auctionsOf(r, p)

		return err
	})

	return ids, err
}

// BidCount returns the number of bids of the auction.
func (l *Ledger) BidCount(id uint64) (uint64, error) {
	a, err := l.GetAuction(id)
	if err != nil {
		return 0, err
	}

	return a.BidCount, nil
}

// HasBid returns true if the principal has bid on the auction.
func (l *Ledger) HasBid(id uint64, p access.Principal) (bool, error) {
	var found bool

	err := l.store.View(func(r store.Readable) error {
		var err error
		found, err = l.engine.hasBid(r, id, p)

		return err
	})

	return found, err
}

// GetBids returns the bids of the auction in submission order. The amounts
// are sealed.
func (l *Ledger) GetBids(id uint64) ([]Bid, error) {
	var bids []Bid

	err := l.store.View(func(r store.Readable) error {
		var err error
		bids, err = l.engine.bids(r, id)

		return err
	})

	return bids, err
}

// RevealBid discloses the bid of the principal on the auction to the
// principal itself.
func (l *Ledger) RevealBid(id uint64, p access.Principal) (Reveal, error) {
	var reveal Reveal

	err := l.store.View(func(r store.Readable) error {
		var err error
		reveal, err = l.engine.reveal(r, id, p)

		return err
	})

	if err != nil {
		return reveal, observe(err)
	}

	return reveal, nil
}

func (l *Ledger) update(fn func(store.WritableTx) error) error {
	l.Lock()
	defer l.Unlock()

	return l.store.Update(fn)
}

var errRefused = xerrors.New("transaction refused")

// withContract is a transaction that targets the auction contract by default.
type withContract struct {
	txn.Transaction
}

func (tx withContract) GetArg(key string) []byte {
	if key == native.ContractArg {
		return []byte(ContractName)
	}

	return tx.Transaction.GetArg(key)
}
